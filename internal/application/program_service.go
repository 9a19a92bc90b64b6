package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kopitetangga/service-loyalty/internal/domain/program"
	"github.com/kopitetangga/service-loyalty/internal/domain/reward"
	"github.com/kopitetangga/service-loyalty/pkg/domain"
)

// ReportRepository exposes the aggregate queries the admin reports need.
type ReportRepository interface {
	CountMembershipsByStatus(ctx context.Context, from, to *time.Time) (map[string]int64, error)
	CountRedeemedByType(ctx context.Context, from, to *time.Time) (map[string]int64, error)
	CountUnredeemedByType(ctx context.Context, from, to *time.Time) (map[string]int64, error)
}

// SettingsDTO is the API representation of the program settings.
type SettingsDTO struct {
	MembershipFee            int64          `json:"membership_fee"`
	MembershipDurationMonths int            `json:"membership_duration_months"`
	DiscountPercent          int            `json:"discount_percent"`
	MinAmountForStamp        int64          `json:"min_amount_for_stamp"`
	RewardMilestones         map[int]string `json:"reward_milestones"`
	UpdatedAt                string         `json:"updated_at"`
}

// UpdateSettingsRequest carries a full replacement of the program settings.
type UpdateSettingsRequest struct {
	MembershipFee            int64          `json:"membership_fee" binding:"required"`
	MembershipDurationMonths int            `json:"membership_duration_months" binding:"required"`
	DiscountPercent          int            `json:"discount_percent"`
	MinAmountForStamp        int64          `json:"min_amount_for_stamp" binding:"required"`
	RewardMilestones         map[int]string `json:"reward_milestones" binding:"required"`
}

// SummaryReportDTO counts memberships per status for a period.
type SummaryReportDTO struct {
	From         string           `json:"from,omitempty"`
	To           string           `json:"to,omitempty"`
	ByStatus     map[string]int64 `json:"memberships_by_status"`
	TotalMembers int64            `json:"total_members"`
}

// RewardReportDTO counts redeemed and outstanding rewards per type.
type RewardReportDTO struct {
	From        string           `json:"from,omitempty"`
	To          string           `json:"to,omitempty"`
	Redeemed    map[string]int64 `json:"redeemed_by_type"`
	Outstanding map[string]int64 `json:"outstanding_by_type"`
}

// ProgramService serves the admin surface: settings and reports.
type ProgramService struct {
	settings  program.Repository
	reports   ReportRepository
	cycleSize int
	logger    *zap.Logger
}

// NewProgramService creates a new ProgramService.
func NewProgramService(settings program.Repository, reports ReportRepository, cycleSize int, logger *zap.Logger) *ProgramService {
	return &ProgramService{
		settings:  settings,
		reports:   reports,
		cycleSize: cycleSize,
		logger:    logger,
	}
}

// GetSettings returns the current program settings.
func (s *ProgramService) GetSettings(ctx context.Context) (*SettingsDTO, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	return toSettingsDTO(cfg), nil
}

// UpdateSettings validates and replaces the program settings. The new reward
// milestones apply to stamps awarded after the update; already-awarded stamps
// keep their recorded reward.
func (s *ProgramService) UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (*SettingsDTO, error) {
	milestones := make(map[int]reward.Type, len(req.RewardMilestones))
	for pos, raw := range req.RewardMilestones {
		t, err := reward.ParseType(raw)
		if err != nil {
			return nil, err
		}
		milestones[pos] = t
	}

	cfg := &program.Settings{
		MembershipFee:            req.MembershipFee,
		MembershipDurationMonths: req.MembershipDurationMonths,
		DiscountPercent:          req.DiscountPercent,
		MinAmountForStamp:        req.MinAmountForStamp,
		RewardMilestones:         milestones,
		UpdatedAt:                time.Now().UTC(),
	}
	if err := cfg.Validate(s.cycleSize); err != nil {
		return nil, err
	}

	if err := s.settings.Update(ctx, cfg); err != nil {
		return nil, err
	}

	s.logger.Info("program settings updated",
		zap.Int64("min_amount_for_stamp", cfg.MinAmountForStamp),
		zap.Int("duration_months", cfg.MembershipDurationMonths),
	)
	return toSettingsDTO(cfg), nil
}

// SummaryReport counts memberships by status, optionally bounded to a period
// by membership start date.
func (s *ProgramService) SummaryReport(ctx context.Context, from, to *time.Time) (*SummaryReportDTO, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, domain.NewValidationError("report period end must not precede start")
	}

	byStatus, err := s.reports.CountMembershipsByStatus(ctx, from, to)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, n := range byStatus {
		total += n
	}

	return &SummaryReportDTO{
		From:         formatDatePtr(from),
		To:           formatDatePtr(to),
		ByStatus:     byStatus,
		TotalMembers: total,
	}, nil
}

// RewardReport counts redeemed and outstanding rewards by type. Redeemed
// counts are bounded by redemption time, outstanding by award time.
func (s *ProgramService) RewardReport(ctx context.Context, from, to *time.Time) (*RewardReportDTO, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, domain.NewValidationError("report period end must not precede start")
	}

	redeemed, err := s.reports.CountRedeemedByType(ctx, from, to)
	if err != nil {
		return nil, err
	}
	outstanding, err := s.reports.CountUnredeemedByType(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return &RewardReportDTO{
		From:        formatDatePtr(from),
		To:          formatDatePtr(to),
		Redeemed:    redeemed,
		Outstanding: outstanding,
	}, nil
}

func toSettingsDTO(cfg *program.Settings) *SettingsDTO {
	milestones := make(map[int]string, len(cfg.RewardMilestones))
	for pos, t := range cfg.RewardMilestones {
		milestones[pos] = string(t)
	}
	return &SettingsDTO{
		MembershipFee:            cfg.MembershipFee,
		MembershipDurationMonths: cfg.MembershipDurationMonths,
		DiscountPercent:          cfg.DiscountPercent,
		MinAmountForStamp:        cfg.MinAmountForStamp,
		RewardMilestones:         milestones,
		UpdatedAt:                cfg.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
