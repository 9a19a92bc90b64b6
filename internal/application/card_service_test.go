package application

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kopitetangga/service-loyalty/internal/domain/card"
	"github.com/kopitetangga/service-loyalty/pkg/domain"
)

type memCardRepo struct {
	mu    sync.Mutex
	cards map[string]*card.Card
}

func newMemCardRepo() *memCardRepo {
	return &memCardRepo{cards: make(map[string]*card.Card)}
}

func (r *memCardRepo) FindByCardNumber(ctx context.Context, cardNumber string) (*card.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cards[cardNumber]
	if !ok {
		return nil, domain.NewNotFoundError("Card", cardNumber)
	}
	return c, nil
}

func (r *memCardRepo) FindByPublicID(ctx context.Context, publicID uuid.UUID) (*card.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cards {
		if c.PublicID() == publicID {
			return c, nil
		}
	}
	return nil, domain.NewNotFoundError("Card", publicID.String())
}

func (r *memCardRepo) Save(ctx context.Context, c *card.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[c.CardNumber()] = c
	return nil
}

func (r *memCardRepo) Update(ctx context.Context, c *card.Card) error {
	return r.Save(ctx, c)
}

func TestRegisterCards_MintsRequestedBatch(t *testing.T) {
	repo := newMemCardRepo()
	svc := NewCardService(repo, zap.NewNop())

	dtos, err := svc.RegisterCards(context.Background(), RegisterCardsRequest{Count: 3})
	require.NoError(t, err)
	require.Len(t, dtos, 3)

	seen := make(map[string]bool)
	for _, dto := range dtos {
		assert.False(t, dto.Assigned)
		assert.NotEmpty(t, dto.CardNumber)
		assert.False(t, seen[dto.CardNumber], "card numbers must be unique")
		seen[dto.CardNumber] = true
	}
}

func TestRegisterCards_DefaultsToOne(t *testing.T) {
	svc := NewCardService(newMemCardRepo(), zap.NewNop())

	dtos, err := svc.RegisterCards(context.Background(), RegisterCardsRequest{})
	require.NoError(t, err)
	assert.Len(t, dtos, 1)
}

func TestRegisterCards_RejectsOversizedBatch(t *testing.T) {
	svc := NewCardService(newMemCardRepo(), zap.NewNop())

	_, err := svc.RegisterCards(context.Background(), RegisterCardsRequest{Count: 501})
	assert.Error(t, err)

	_, err = svc.RegisterCards(context.Background(), RegisterCardsRequest{Count: -1})
	assert.Error(t, err)
}

func TestGetCard(t *testing.T) {
	repo := newMemCardRepo()
	svc := NewCardService(repo, zap.NewNop())
	ctx := context.Background()

	minted, err := svc.RegisterCards(ctx, RegisterCardsRequest{Count: 1})
	require.NoError(t, err)

	dto, err := svc.GetCard(ctx, minted[0].CardNumber)
	require.NoError(t, err)
	assert.Equal(t, minted[0].PublicID, dto.PublicID)

	_, err = svc.GetCard(ctx, "CARD-MISSING")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}
