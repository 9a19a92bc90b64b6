package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	programDomain "github.com/kopitetangga/service-loyalty/internal/domain/program"
	"github.com/kopitetangga/service-loyalty/internal/domain/reward"
)

// settingsRowID is the fixed primary key of the singleton settings row.
const settingsRowID = 1

// SettingsModel is the GORM persistence model for the program_settings table.
type SettingsModel struct {
	ID                       int       `gorm:"primaryKey"`
	MembershipFee            int64     `gorm:"not null"`
	MembershipDurationMonths int       `gorm:"not null"`
	DiscountPercent          int       `gorm:"not null"`
	MinAmountForStamp        int64     `gorm:"not null"`
	RewardMilestones         string    `gorm:"type:varchar(255);not null"`
	UpdatedAt                time.Time `gorm:"type:timestamptz;not null"`
}

func (SettingsModel) TableName() string { return "program_settings" }

// GormSettingsRepository persists the program settings singleton. First
// access seeds the row from the deployment defaults.
type GormSettingsRepository struct {
	db        *gorm.DB
	cycleSize int
	defaults  programDomain.Settings
}

// NewGormSettingsRepository creates a settings repository seeded with the
// given defaults.
func NewGormSettingsRepository(db *gorm.DB, cycleSize int, defaults programDomain.Settings) *GormSettingsRepository {
	return &GormSettingsRepository{db: db, cycleSize: cycleSize, defaults: defaults}
}

// Get returns the current settings, creating the row from defaults when the
// program has never been configured.
func (r *GormSettingsRepository) Get(ctx context.Context) (*programDomain.Settings, error) {
	var model SettingsModel
	err := r.db.WithContext(ctx).Where("id = ?", settingsRowID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seeded := r.defaults
		if err := r.Update(ctx, &seeded); err != nil {
			return nil, err
		}
		return &seeded, nil
	}
	if err != nil {
		return nil, err
	}

	milestones, err := reward.ParseMilestones(model.RewardMilestones)
	if err != nil {
		return nil, err
	}

	return &programDomain.Settings{
		MembershipFee:            model.MembershipFee,
		MembershipDurationMonths: model.MembershipDurationMonths,
		DiscountPercent:          model.DiscountPercent,
		MinAmountForStamp:        model.MinAmountForStamp,
		RewardMilestones:         milestones,
		UpdatedAt:                model.UpdatedAt,
	}, nil
}

// Update validates and upserts the settings row.
func (r *GormSettingsRepository) Update(ctx context.Context, s *programDomain.Settings) error {
	if err := s.Validate(r.cycleSize); err != nil {
		return err
	}

	policy, err := s.Policy(r.cycleSize)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	model := SettingsModel{
		ID:                       settingsRowID,
		MembershipFee:            s.MembershipFee,
		MembershipDurationMonths: s.MembershipDurationMonths,
		DiscountPercent:          s.DiscountPercent,
		MinAmountForStamp:        s.MinAmountForStamp,
		RewardMilestones:         policy.MilestoneString(),
		UpdatedAt:                now,
	}
	s.UpdatedAt = now
	return r.db.WithContext(ctx).Save(&model).Error
}

// MemorySettingsRepository keeps settings in memory for unit tests.
type MemorySettingsRepository struct {
	cycleSize int
	current   programDomain.Settings
}

// NewMemorySettingsRepository creates an in-memory settings store.
func NewMemorySettingsRepository(cycleSize int, initial programDomain.Settings) *MemorySettingsRepository {
	return &MemorySettingsRepository{cycleSize: cycleSize, current: initial}
}

// Get returns the current settings.
func (r *MemorySettingsRepository) Get(ctx context.Context) (*programDomain.Settings, error) {
	s := r.current
	return &s, nil
}

// Update replaces the settings after validation.
func (r *MemorySettingsRepository) Update(ctx context.Context, s *programDomain.Settings) error {
	if err := s.Validate(r.cycleSize); err != nil {
		return err
	}
	r.current = *s
	return nil
}
