package card

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kopitetangga/service-loyalty/pkg/domain"
)

// Card is a physical membership card in inventory. Cards are printed in
// batches with a QR code carrying the public id, and assigned to a membership
// when a customer activates one at the counter.
type Card struct {
	id           uuid.UUID
	publicID     uuid.UUID
	cardNumber   string
	assigned     bool
	membershipID *uuid.UUID
	createdAt    time.Time
	updatedAt    time.Time
}

// GenerateCardNumber produces a printable card number.
func GenerateCardNumber() string {
	return "CARD-" + strings.ToUpper(uuid.New().String()[:8])
}

// NewCard registers a blank, unassigned card. An empty cardNumber gets a
// generated one.
func NewCard(cardNumber string) *Card {
	if cardNumber == "" {
		cardNumber = GenerateCardNumber()
	}
	now := time.Now().UTC()
	return &Card{
		id:         uuid.New(),
		publicID:   uuid.New(),
		cardNumber: strings.ToUpper(strings.TrimSpace(cardNumber)),
		createdAt:  now,
		updatedAt:  now,
	}
}

func (c *Card) ID() uuid.UUID            { return c.id }
func (c *Card) PublicID() uuid.UUID      { return c.publicID }
func (c *Card) CardNumber() string       { return c.cardNumber }
func (c *Card) Assigned() bool           { return c.assigned }
func (c *Card) MembershipID() *uuid.UUID { return c.membershipID }
func (c *Card) CreatedAt() time.Time     { return c.createdAt }
func (c *Card) UpdatedAt() time.Time     { return c.updatedAt }

// Assign binds the card to a membership. A card is assigned at most once.
func (c *Card) Assign(membershipID uuid.UUID) error {
	if c.assigned {
		return domain.NewConflictError(fmt.Sprintf("card %s is already assigned", c.cardNumber))
	}
	c.assigned = true
	c.membershipID = &membershipID
	c.updatedAt = time.Now().UTC()
	return nil
}

// Unassign releases the card. Used as saga compensation when activation fails
// partway, and when a damaged card is replaced.
func (c *Card) Unassign() {
	c.assigned = false
	c.membershipID = nil
	c.updatedAt = time.Now().UTC()
}

// Reconstitute rebuilds a Card from persisted data.
func Reconstitute(id, publicID uuid.UUID, cardNumber string, assigned bool, membershipID *uuid.UUID, createdAt, updatedAt time.Time) *Card {
	return &Card{
		id:           id,
		publicID:     publicID,
		cardNumber:   cardNumber,
		assigned:     assigned,
		membershipID: membershipID,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}
