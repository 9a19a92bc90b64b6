package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	membershipDomain "github.com/kopitetangga/service-loyalty/internal/domain/membership"
	"github.com/kopitetangga/service-loyalty/internal/domain/reward"
	"github.com/kopitetangga/service-loyalty/pkg/domain"
)

// retry budget for transient write conflicts before surfacing an internal error
const maxWriteRetries = 3

// CustomerModel is the GORM persistence model for the customers table.
type CustomerModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Phone     string    `gorm:"type:varchar(20);uniqueIndex;not null"`
	Email     string    `gorm:"type:varchar(255)"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

func (CustomerModel) TableName() string { return "customers" }

// MembershipModel is the GORM persistence model for the memberships table.
type MembershipModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	CustomerID uuid.UUID `gorm:"type:uuid;not null;index"`
	CardNumber string    `gorm:"type:varchar(50);uniqueIndex;not null"`
	PublicID   uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Status     string    `gorm:"type:varchar(20);not null;default:'active'"`
	StartDate  time.Time `gorm:"type:date;not null"`
	EndDate    time.Time `gorm:"type:date;not null"`
	Version    int64     `gorm:"not null;default:1"`
	CreatedAt  time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt  time.Time `gorm:"type:timestamptz;not null"`
}

func (MembershipModel) TableName() string { return "memberships" }

// CycleModel is the GORM persistence model for the stamp_cycles table.
type CycleModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	MembershipID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cycles_membership_number"`
	CycleNumber  int       `gorm:"not null;uniqueIndex:idx_cycles_membership_number"`
	Closed       bool      `gorm:"not null;default:false"`
	CreatedAt    time.Time `gorm:"type:timestamptz;not null"`
}

func (CycleModel) TableName() string { return "stamp_cycles" }

// StampModel is the GORM persistence model for the stamps table.
type StampModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CycleID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_stamps_cycle_number"`
	Number        int        `gorm:"not null;uniqueIndex:idx_stamps_cycle_number"`
	RewardType    string     `gorm:"type:varchar(20);not null;default:'none'"`
	RedeemedAt    *time.Time `gorm:"type:timestamptz"`
	Amount        int64      `gorm:"not null"`
	ReceiptNumber *string    `gorm:"type:varchar(100);index"`
	CreatedAt     time.Time  `gorm:"type:timestamptz;not null"`
}

func (StampModel) TableName() string { return "stamps" }

// GormMembershipRepository is the Postgres-backed Membership store. Mutations
// run inside a transaction holding a FOR UPDATE lock on the membership row, so
// writers to the same membership are serialized while other memberships
// proceed independently.
type GormMembershipRepository struct {
	db *gorm.DB
}

// NewGormMembershipRepository creates a new GORM-based membership repository.
func NewGormMembershipRepository(db *gorm.DB) *GormMembershipRepository {
	return &GormMembershipRepository{db: db}
}

// FindByID retrieves the full aggregate by membership id.
func (r *GormMembershipRepository) FindByID(ctx context.Context, id uuid.UUID) (*membershipDomain.Membership, error) {
	return r.findOne(ctx, r.db, "id = ?", id)
}

// FindByCardNumber retrieves the full aggregate by card number.
func (r *GormMembershipRepository) FindByCardNumber(ctx context.Context, cardNumber string) (*membershipDomain.Membership, error) {
	return r.findOne(ctx, r.db, "card_number = ?", cardNumber)
}

// FindByPublicID retrieves the full aggregate by public scan id.
func (r *GormMembershipRepository) FindByPublicID(ctx context.Context, publicID uuid.UUID) (*membershipDomain.Membership, error) {
	return r.findOne(ctx, r.db, "public_id = ?", publicID)
}

// FindByPhone retrieves the membership of the customer with the given phone.
// When a customer somehow holds several memberships, the one with the latest
// start date wins.
func (r *GormMembershipRepository) FindByPhone(ctx context.Context, phone string) (*membershipDomain.Membership, error) {
	var customer CustomerModel
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Membership", phone)
		}
		return nil, err
	}

	var model MembershipModel
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customer.ID).
		Order("start_date DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Membership", phone)
		}
		return nil, err
	}

	return r.loadAggregate(ctx, r.db, &model)
}

// Save persists a new membership aggregate. New memberships carry no cycles;
// cycle rows appear through UpdateAtomic.
func (r *GormMembershipRepository) Save(ctx context.Context, m *membershipDomain.Membership) error {
	model := toMembershipModel(m)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("card number or public id already in use")
		}
		return err
	}
	return nil
}

// UpdateAtomic applies the mutator under a per-membership row lock and
// persists the resulting aggregate changes all-or-nothing. Concurrent-update
// conflicts are retried a bounded number of times; any other error aborts
// immediately, rolls everything back, and is returned unchanged so callers
// can inspect it.
func (r *GormMembershipRepository) UpdateAtomic(ctx context.Context, id uuid.UUID, mutate membershipDomain.Mutator) (*membershipDomain.Membership, error) {
	var result *membershipDomain.Membership
	var lastErr error

	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var model MembershipModel
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", id).First(&model).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domain.NewNotFoundError("Membership", id.String())
				}
				return err
			}

			m, existingCycles, existingStamps, err := r.loadAggregateForUpdate(ctx, tx, &model)
			if err != nil {
				return err
			}

			if err := mutate(m); err != nil {
				return err
			}

			m.IncrementVersion()
			if err := r.persistChanges(ctx, tx, m, model.Version, existingCycles, existingStamps); err != nil {
				return err
			}

			result = m
			return nil
		})
		if err == nil {
			return result, nil
		}
		if !domain.IsConflict(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("membership write retry budget exhausted: %w", lastErr)
}

// findOne loads one membership row by condition plus its full aggregate.
func (r *GormMembershipRepository) findOne(ctx context.Context, tx *gorm.DB, query string, arg interface{}) (*membershipDomain.Membership, error) {
	var model MembershipModel
	if err := tx.WithContext(ctx).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Membership", toStr(arg))
		}
		return nil, err
	}
	return r.loadAggregate(ctx, tx, &model)
}

func toStr(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if id, ok := v.(uuid.UUID); ok {
		return id.String()
	}
	return ""
}

// loadAggregate rebuilds the domain aggregate from its rows.
func (r *GormMembershipRepository) loadAggregate(ctx context.Context, tx *gorm.DB, model *MembershipModel) (*membershipDomain.Membership, error) {
	m, _, _, err := r.loadAggregateForUpdate(ctx, tx, model)
	return m, err
}

// loadAggregateForUpdate rebuilds the aggregate and returns the sets of
// already-persisted cycle and stamp ids so persistChanges can tell inserts
// from updates.
func (r *GormMembershipRepository) loadAggregateForUpdate(ctx context.Context, tx *gorm.DB, model *MembershipModel) (*membershipDomain.Membership, map[uuid.UUID]bool, map[uuid.UUID]*time.Time, error) {
	var customer CustomerModel
	if err := tx.WithContext(ctx).Where("id = ?", model.CustomerID).First(&customer).Error; err != nil {
		return nil, nil, nil, err
	}

	var cycleModels []CycleModel
	if err := tx.WithContext(ctx).
		Where("membership_id = ?", model.ID).
		Order("cycle_number ASC").
		Find(&cycleModels).Error; err != nil {
		return nil, nil, nil, err
	}

	existingCycles := make(map[uuid.UUID]bool, len(cycleModels))
	cycleIDs := make([]uuid.UUID, len(cycleModels))
	for i, c := range cycleModels {
		cycleIDs[i] = c.ID
		existingCycles[c.ID] = c.Closed
	}

	stampsByCycle := make(map[uuid.UUID][]*membershipDomain.Stamp)
	existingStamps := make(map[uuid.UUID]*time.Time)
	if len(cycleIDs) > 0 {
		var stampModels []StampModel
		if err := tx.WithContext(ctx).
			Where("cycle_id IN ?", cycleIDs).
			Order("number ASC").
			Find(&stampModels).Error; err != nil {
			return nil, nil, nil, err
		}
		for _, s := range stampModels {
			existingStamps[s.ID] = s.RedeemedAt
			stampsByCycle[s.CycleID] = append(stampsByCycle[s.CycleID],
				membershipDomain.ReconstituteStamp(
					s.ID, s.CycleID, s.Number,
					reward.Type(s.RewardType),
					s.RedeemedAt, s.Amount, s.ReceiptNumber, s.CreatedAt,
				))
		}
	}

	cycles := make([]*membershipDomain.Cycle, len(cycleModels))
	for i, c := range cycleModels {
		cycles[i] = membershipDomain.ReconstituteCycle(c.ID, c.CycleNumber, c.Closed, stampsByCycle[c.ID], c.CreatedAt)
	}

	m := membershipDomain.Reconstitute(
		model.ID,
		membershipDomain.Customer{
			ID:        customer.ID,
			Name:      customer.Name,
			Phone:     customer.Phone,
			Email:     customer.Email,
			CreatedAt: customer.CreatedAt,
		},
		model.CardNumber,
		model.PublicID,
		membershipDomain.Status(model.Status),
		model.StartDate,
		model.EndDate,
		cycles,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
	return m, existingCycles, existingStamps, nil
}

// persistChanges writes the aggregate diff: the membership row with a version
// check, new cycle rows, closed-flag flips, new stamps, and redemptions.
func (r *GormMembershipRepository) persistChanges(
	ctx context.Context,
	tx *gorm.DB,
	m *membershipDomain.Membership,
	previousVersion int64,
	existingCycles map[uuid.UUID]bool,
	existingStamps map[uuid.UUID]*time.Time,
) error {
	res := tx.WithContext(ctx).Model(&MembershipModel{}).
		Where("id = ? AND version = ?", m.ID(), previousVersion).
		Updates(map[string]interface{}{
			"status":     string(m.Status()),
			"start_date": m.StartDate(),
			"end_date":   m.EndDate(),
			"version":    m.Version(),
			"updated_at": m.UpdatedAt(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NewConflictError("membership was modified by another transaction")
	}

	for _, c := range m.Cycles() {
		closed, known := existingCycles[c.ID()]
		switch {
		case !known:
			model := CycleModel{
				ID:           c.ID(),
				MembershipID: m.ID(),
				CycleNumber:  c.Number(),
				Closed:       c.Closed(),
				CreatedAt:    c.CreatedAt(),
			}
			if err := tx.WithContext(ctx).Create(&model).Error; err != nil {
				return err
			}
		case closed != c.Closed():
			if err := tx.WithContext(ctx).Model(&CycleModel{}).
				Where("id = ?", c.ID()).
				Update("closed", c.Closed()).Error; err != nil {
				return err
			}
		}

		for _, s := range c.Stamps() {
			redeemedAt, known := existingStamps[s.ID()]
			switch {
			case !known:
				model := StampModel{
					ID:            s.ID(),
					CycleID:       s.CycleID(),
					Number:        s.Number(),
					RewardType:    string(s.RewardType()),
					RedeemedAt:    s.RedeemedAt(),
					Amount:        s.Amount(),
					ReceiptNumber: s.ReceiptNumber(),
					CreatedAt:     s.CreatedAt(),
				}
				if err := tx.WithContext(ctx).Create(&model).Error; err != nil {
					if errors.Is(err, gorm.ErrDuplicatedKey) {
						return domain.NewConflictError("stamp conflicts with a concurrent write")
					}
					return err
				}
			case (redeemedAt == nil) != (s.RedeemedAt() == nil):
				if err := tx.WithContext(ctx).Model(&StampModel{}).
					Where("id = ?", s.ID()).
					Update("redeemed_at", s.RedeemedAt()).Error; err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func toMembershipModel(m *membershipDomain.Membership) MembershipModel {
	return MembershipModel{
		ID:         m.ID(),
		CustomerID: m.Customer().ID,
		CardNumber: m.CardNumber(),
		PublicID:   m.PublicID(),
		Status:     string(m.Status()),
		StartDate:  m.StartDate(),
		EndDate:    m.EndDate(),
		Version:    m.Version(),
		CreatedAt:  m.CreatedAt(),
		UpdatedAt:  m.UpdatedAt(),
	}
}

// GormCustomerRepository persists referenced customers.
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a customer repository.
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByPhone returns the customer with the given phone number.
func (r *GormCustomerRepository) FindByPhone(ctx context.Context, phone string) (*membershipDomain.Customer, error) {
	var model CustomerModel
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Customer", phone)
		}
		return nil, err
	}
	return &membershipDomain.Customer{
		ID:        model.ID,
		Name:      model.Name,
		Phone:     model.Phone,
		Email:     model.Email,
		CreatedAt: model.CreatedAt,
	}, nil
}

// Save persists a new customer.
func (r *GormCustomerRepository) Save(ctx context.Context, c *membershipDomain.Customer) error {
	now := time.Now().UTC()
	model := CustomerModel{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     c.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("phone number already registered")
		}
		return err
	}
	c.CreatedAt = now
	return nil
}

// Update persists changes to an existing customer.
func (r *GormCustomerRepository) Update(ctx context.Context, c *membershipDomain.Customer) error {
	return r.db.WithContext(ctx).Model(&CustomerModel{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"name":       c.Name,
			"email":      c.Email,
			"updated_at": time.Now().UTC(),
		}).Error
}
