package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	cardDomain "github.com/kopitetangga/service-loyalty/internal/domain/card"
	"github.com/kopitetangga/service-loyalty/pkg/domain"
)

// CardModel is the GORM persistence model for the membership_cards table.
type CardModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PublicID     uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null"`
	CardNumber   string     `gorm:"type:varchar(50);uniqueIndex;not null"`
	Assigned     bool       `gorm:"not null;default:false"`
	MembershipID *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt    time.Time  `gorm:"type:timestamptz;not null"`
	UpdatedAt    time.Time  `gorm:"type:timestamptz;not null"`
}

func (CardModel) TableName() string { return "membership_cards" }

// GormCardRepository is the Postgres card inventory.
type GormCardRepository struct {
	db *gorm.DB
}

// NewGormCardRepository creates a card repository.
func NewGormCardRepository(db *gorm.DB) *GormCardRepository {
	return &GormCardRepository{db: db}
}

// FindByCardNumber retrieves a card by its printed number.
func (r *GormCardRepository) FindByCardNumber(ctx context.Context, cardNumber string) (*cardDomain.Card, error) {
	var model CardModel
	if err := r.db.WithContext(ctx).Where("card_number = ?", cardNumber).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Card", cardNumber)
		}
		return nil, err
	}
	return toCardDomain(&model), nil
}

// FindByPublicID retrieves a card by the public id embedded in its QR code.
func (r *GormCardRepository) FindByPublicID(ctx context.Context, publicID uuid.UUID) (*cardDomain.Card, error) {
	var model CardModel
	if err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Card", publicID.String())
		}
		return nil, err
	}
	return toCardDomain(&model), nil
}

// Save persists a new card.
func (r *GormCardRepository) Save(ctx context.Context, c *cardDomain.Card) error {
	model := toCardModel(c)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("card number already registered")
		}
		return err
	}
	return nil
}

// Update persists assignment changes to an existing card.
func (r *GormCardRepository) Update(ctx context.Context, c *cardDomain.Card) error {
	model := toCardModel(c)
	return r.db.WithContext(ctx).Model(&CardModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"assigned":      model.Assigned,
			"membership_id": model.MembershipID,
			"updated_at":    model.UpdatedAt,
		}).Error
}

func toCardModel(c *cardDomain.Card) CardModel {
	return CardModel{
		ID:           c.ID(),
		PublicID:     c.PublicID(),
		CardNumber:   c.CardNumber(),
		Assigned:     c.Assigned(),
		MembershipID: c.MembershipID(),
		CreatedAt:    c.CreatedAt(),
		UpdatedAt:    c.UpdatedAt(),
	}
}

func toCardDomain(m *CardModel) *cardDomain.Card {
	return cardDomain.Reconstitute(m.ID, m.PublicID, m.CardNumber, m.Assigned, m.MembershipID, m.CreatedAt, m.UpdatedAt)
}
