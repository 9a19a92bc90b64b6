package application

import (
	"context"

	"go.uber.org/zap"

	"github.com/kopitetangga/service-loyalty/internal/domain/card"
	"github.com/kopitetangga/service-loyalty/pkg/domain"
)

// CardDTO is the API representation of an inventory card.
type CardDTO struct {
	ID         string `json:"id"`
	PublicID   string `json:"public_id"`
	CardNumber string `json:"card_number"`
	Assigned   bool   `json:"assigned"`
}

// RegisterCardsRequest asks for a batch of fresh cards to be minted.
type RegisterCardsRequest struct {
	Count int `json:"count"`
}

// CardService manages the physical card inventory.
type CardService struct {
	cards  card.Repository
	logger *zap.Logger
}

// NewCardService creates a new CardService.
func NewCardService(cards card.Repository, logger *zap.Logger) *CardService {
	return &CardService{cards: cards, logger: logger}
}

const maxCardBatch = 500

// RegisterCards mints a batch of unassigned cards. Each card gets a generated
// card number for printing and a public id for the QR code.
func (s *CardService) RegisterCards(ctx context.Context, req RegisterCardsRequest) ([]CardDTO, error) {
	count := req.Count
	if count == 0 {
		count = 1
	}
	if count < 1 || count > maxCardBatch {
		return nil, domain.NewValidationError("count must be within 1..500")
	}

	out := make([]CardDTO, 0, count)
	for i := 0; i < count; i++ {
		c := card.NewCard(card.GenerateCardNumber())
		if err := s.cards.Save(ctx, c); err != nil {
			return nil, err
		}
		out = append(out, toCardDTO(c))
	}

	s.logger.Info("cards registered", zap.Int("count", count))
	return out, nil
}

// GetCard fetches one card by its card number.
func (s *CardService) GetCard(ctx context.Context, cardNumber string) (*CardDTO, error) {
	c, err := s.cards.FindByCardNumber(ctx, cardNumber)
	if err != nil {
		return nil, err
	}
	dto := toCardDTO(c)
	return &dto, nil
}

func toCardDTO(c *card.Card) CardDTO {
	return CardDTO{
		ID:         c.ID().String(),
		PublicID:   c.PublicID().String(),
		CardNumber: c.CardNumber(),
		Assigned:   c.Assigned(),
	}
}
