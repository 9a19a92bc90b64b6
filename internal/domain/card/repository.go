package card

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for the card inventory.
type Repository interface {
	FindByCardNumber(ctx context.Context, cardNumber string) (*Card, error)
	FindByPublicID(ctx context.Context, publicID uuid.UUID) (*Card, error)
	Save(ctx context.Context, c *Card) error
	Update(ctx context.Context, c *Card) error
}
