package program

import (
	"context"
	"time"

	"github.com/kopitetangga/service-loyalty/internal/domain/reward"
	"github.com/kopitetangga/service-loyalty/pkg/domain"
)

// Settings is the singleton runtime configuration of the loyalty program.
// Admins tune these without redeploying; the engine reads them per operation.
// Cycle size is deliberately NOT here: changing it mid-flight would corrupt
// open cycles, so it stays static deployment configuration.
type Settings struct {
	MembershipFee            int64
	MembershipDurationMonths int
	DiscountPercent          int
	MinAmountForStamp        int64
	RewardMilestones         map[int]reward.Type
	UpdatedAt                time.Time
}

// Validate checks the settings against the given cycle size.
func (s *Settings) Validate(cycleSize int) error {
	if s.MinAmountForStamp <= 0 {
		return domain.NewValidationError("min amount for stamp must be positive")
	}
	if s.MembershipDurationMonths < 1 {
		return domain.NewValidationError("membership duration must be at least one month")
	}
	if s.DiscountPercent < 0 || s.DiscountPercent > 100 {
		return domain.NewValidationError("discount percent must be within 0..100")
	}
	_, err := reward.NewPolicy(cycleSize, s.RewardMilestones)
	return err
}

// Policy builds the reward policy from the configured milestones.
func (s *Settings) Policy(cycleSize int) (*reward.Policy, error) {
	return reward.NewPolicy(cycleSize, s.RewardMilestones)
}

// Repository persists the settings singleton.
type Repository interface {
	// Get returns the current settings, seeding defaults on first access.
	Get(ctx context.Context) (*Settings, error)

	// Update replaces the settings.
	Update(ctx context.Context, s *Settings) error
}
