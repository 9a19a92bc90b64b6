package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kopitetangga/service-loyalty/internal/adapter"
	"github.com/kopitetangga/service-loyalty/internal/domain/membership"
	"github.com/kopitetangga/service-loyalty/internal/domain/program"
	"github.com/kopitetangga/service-loyalty/internal/domain/reward"
	"github.com/kopitetangga/service-loyalty/internal/events"
	"github.com/kopitetangga/service-loyalty/pkg/domain"
)

// EventPublisher is the slice of the event surface the loyalty use cases need.
type EventPublisher interface {
	StampAwarded(ctx context.Context, evt events.StampAwardedEvent)
	CycleClosed(ctx context.Context, evt events.CycleClosedEvent)
	RewardRedeemed(ctx context.Context, evt events.RewardRedeemedEvent)
}

// AuditRecorder appends audit entries without ever failing the operation.
type AuditRecorder interface {
	Record(ctx context.Context, action string, userID, membershipID *uuid.UUID, metadata map[string]interface{})
}

// Audit actions recorded by the cashier-facing operations.
const (
	AuditActionScan     = "scan"
	AuditActionAddStamp = "add_stamp"
	AuditActionRedeem   = "redeem"
)

// AddStampRequest is the DTO for recording a qualifying purchase.
type AddStampRequest struct {
	Amount        int64   `json:"transaction_amount" binding:"required"`
	ReceiptNumber *string `json:"pos_receipt_number"`
}

// RedeemRequest is the DTO for redeeming an earned reward.
type RedeemRequest struct {
	RewardType string `json:"reward_type" binding:"required"`
}

// ineligibleOutcome aborts the store mutation for a disqualified transaction.
// It travels as an error inside UpdateAtomic but is unwrapped into a business
// outcome before leaving the service.
type ineligibleOutcome struct {
	reason membership.IneligibleReason
}

func (e *ineligibleOutcome) Error() string { return string(e.reason) }

// noRewardOutcome aborts the store mutation when no redeemable stamp exists.
type noRewardOutcome struct{}

func (e *noRewardOutcome) Error() string { return "no_unredeemed_reward_of_type" }

// LoyaltyService orchestrates the stamp-cycle engine use cases: lookup, scan,
// add-stamp, and redeem.
type LoyaltyService struct {
	memberships membership.Repository
	settings    program.Repository
	pos         adapter.POSAdapter
	publisher   EventPublisher
	audit       AuditRecorder
	cycleSize   int
	logger      *zap.Logger
}

// NewLoyaltyService creates a new LoyaltyService.
func NewLoyaltyService(
	memberships membership.Repository,
	settings program.Repository,
	pos adapter.POSAdapter,
	publisher EventPublisher,
	audit AuditRecorder,
	cycleSize int,
	logger *zap.Logger,
) *LoyaltyService {
	return &LoyaltyService{
		memberships: memberships,
		settings:    settings,
		pos:         pos,
		publisher:   publisher,
		audit:       audit,
		cycleSize:   cycleSize,
		logger:      logger,
	}
}

// Lookup resolves an identifier to the full membership aggregate. The
// identifier may be a card number, a phone number, or a public scan id;
// matching is exact and tried in that order. No side effects.
func (s *LoyaltyService) Lookup(ctx context.Context, identifier string) (*MembershipDTO, error) {
	identifier = strings.TrimSpace(strings.TrimRight(identifier, "/"))
	if identifier == "" {
		return nil, domain.NewValidationError("identifier is required")
	}

	m, err := s.memberships.FindByCardNumber(ctx, identifier)
	if err != nil && domain.IsNotFound(err) {
		m, err = s.memberships.FindByPhone(ctx, identifier)
	}
	if err != nil && domain.IsNotFound(err) {
		if publicID, parseErr := uuid.Parse(identifier); parseErr == nil {
			m, err = s.memberships.FindByPublicID(ctx, publicID)
		}
	}
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewNotFoundError("Membership", identifier)
		}
		return nil, err
	}

	m = s.refreshStatus(ctx, m)
	dto := toMembershipDTO(m)
	return &dto, nil
}

// Scan resolves a membership by the public id from its QR code.
func (s *LoyaltyService) Scan(ctx context.Context, publicID string, userID *uuid.UUID) (*MembershipDTO, error) {
	id, err := uuid.Parse(strings.TrimSpace(publicID))
	if err != nil {
		return nil, domain.NewValidationError("invalid public id")
	}

	m, err := s.memberships.FindByPublicID(ctx, id)
	if err != nil {
		return nil, err
	}

	m = s.refreshStatus(ctx, m)
	mid := m.ID()
	s.audit.Record(ctx, AuditActionScan, userID, &mid, map[string]interface{}{
		"public_id": publicID,
	})

	dto := toMembershipDTO(m)
	return &dto, nil
}

// refreshStatus expires a lapsed membership and writes the transition back so
// the stored status column (and the reports grouped on it) matches what the
// cashier sees. Read flows keep working when the write fails.
func (s *LoyaltyService) refreshStatus(ctx context.Context, m *membership.Membership) *membership.Membership {
	now := time.Now().UTC()
	if !m.RefreshStatus(now) {
		return m
	}

	updated, err := s.memberships.UpdateAtomic(ctx, m.ID(), func(mm *membership.Membership) error {
		mm.RefreshStatus(now)
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to persist expired membership status",
			zap.String("membership_id", m.ID().String()),
			zap.Error(err),
		)
		return m
	}
	return updated
}

// GetMembership returns the full aggregate by membership id.
func (s *LoyaltyService) GetMembership(ctx context.Context, id uuid.UUID) (*MembershipDTO, error) {
	m, err := s.memberships.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toMembershipDTO(m)
	return &dto, nil
}

// HistorySummary returns the active (or latest) cycle condensed for display.
func (s *LoyaltyService) HistorySummary(ctx context.Context, id uuid.UUID) (*HistorySummaryDTO, error) {
	m, err := s.memberships.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	cycle := m.OpenCycle()
	if cycle == nil {
		cycle = m.LatestCycle()
	}
	if cycle == nil {
		return &HistorySummaryDTO{MembershipID: m.ID()}, nil
	}

	number := cycle.Number()
	return &HistorySummaryDTO{
		MembershipID: m.ID(),
		CycleNumber:  &number,
		StampCount:   cycle.StampCount(),
		IsFull:       cycle.StampCount() >= s.cycleSize,
	}, nil
}

// AddStamp records a qualifying purchase against the membership. Eligibility,
// cycle placement, reward assignment and cycle closing all commit
// atomically under the membership's lock. A disqualified transaction returns
// Awarded=false with a reason; it is not an error and mutates nothing.
func (s *LoyaltyService) AddStamp(ctx context.Context, membershipID uuid.UUID, userID *uuid.UUID, req AddStampRequest) (*AddStampResult, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	policy, err := settings.Policy(s.cycleSize)
	if err != nil {
		return nil, err
	}

	if req.ReceiptNumber != nil && *req.ReceiptNumber != "" {
		if err := s.pos.VerifyReceipt(ctx, *req.ReceiptNumber, req.Amount); err != nil {
			return nil, domain.NewValidationError("receipt could not be verified: " + err.Error())
		}
	}

	var stamp *membership.Stamp
	var cycleNumber int
	var cycleClosed bool

	committed, err := s.memberships.UpdateAtomic(ctx, membershipID, func(m *membership.Membership) error {
		now := time.Now().UTC()
		m.RefreshStatus(now)

		eligible, reason := membership.EvaluateEligibility(m, req.Amount, req.ReceiptNumber, settings.MinAmountForStamp, now)
		if !eligible {
			return &ineligibleOutcome{reason: reason}
		}

		created, err := m.AppendStamp(req.Amount, req.ReceiptNumber, policy)
		if err != nil {
			return err
		}

		stamp = created
		cycle := m.CycleForStamp(created)
		cycleNumber = cycle.Number()
		cycleClosed = cycle.Closed()
		return nil
	})
	if err != nil {
		var ineligible *ineligibleOutcome
		if errors.As(err, &ineligible) {
			s.logger.Info("no stamp awarded",
				zap.String("membership_id", membershipID.String()),
				zap.String("reason", string(ineligible.reason)),
			)
			return &AddStampResult{Awarded: false, Reason: string(ineligible.reason)}, nil
		}
		return nil, err
	}

	s.logger.Info("stamp awarded",
		zap.String("membership_id", membershipID.String()),
		zap.Int("cycle_number", cycleNumber),
		zap.Int("stamp_number", stamp.Number()),
		zap.String("reward_type", string(stamp.RewardType())),
		zap.Bool("cycle_closed", cycleClosed),
	)

	mid := committed.ID()
	s.audit.Record(ctx, AuditActionAddStamp, userID, &mid, map[string]interface{}{
		"cycle_number": cycleNumber,
		"stamp_number": stamp.Number(),
		"amount":       req.Amount,
	})

	receipt := ""
	if req.ReceiptNumber != nil {
		receipt = *req.ReceiptNumber
	}
	s.publisher.StampAwarded(ctx, events.StampAwardedEvent{
		MembershipID:  committed.ID(),
		CardNumber:    committed.CardNumber(),
		CycleNumber:   cycleNumber,
		StampNumber:   stamp.Number(),
		RewardType:    string(stamp.RewardType()),
		Amount:        req.Amount,
		ReceiptNumber: receipt,
		OccurredAt:    time.Now().UTC(),
	})
	if cycleClosed {
		s.publisher.CycleClosed(ctx, events.CycleClosedEvent{
			MembershipID: committed.ID(),
			CardNumber:   committed.CardNumber(),
			CycleNumber:  cycleNumber,
			OccurredAt:   time.Now().UTC(),
		})
	}

	dto := toStampDTO(stamp)
	return &AddStampResult{
		Awarded:     true,
		Stamp:       &dto,
		CycleNumber: cycleNumber,
		CycleClosed: cycleClosed,
	}, nil
}

// Redeem marks the earliest unredeemed stamp of the requested reward type as
// redeemed, exactly once. No matching stamp is a business outcome, not an
// error.
func (s *LoyaltyService) Redeem(ctx context.Context, membershipID uuid.UUID, userID *uuid.UUID, req RedeemRequest) (*RedeemResult, error) {
	rewardType, err := reward.ParseType(req.RewardType)
	if err != nil {
		return nil, err
	}
	if rewardType == reward.TypeNone {
		return nil, domain.NewValidationError("cannot redeem reward type 'none'")
	}

	var stamp *membership.Stamp
	var cycleNumber int

	committed, err := s.memberships.UpdateAtomic(ctx, membershipID, func(m *membership.Membership) error {
		redeemed, ok := m.RedeemReward(rewardType, time.Now().UTC())
		if !ok {
			return &noRewardOutcome{}
		}
		stamp = redeemed
		cycleNumber = m.CycleForStamp(redeemed).Number()
		return nil
	})
	if err != nil {
		var none *noRewardOutcome
		if errors.As(err, &none) {
			return &RedeemResult{Redeemed: false, Reason: "no_unredeemed_reward_of_type"}, nil
		}
		return nil, err
	}

	s.logger.Info("reward redeemed",
		zap.String("membership_id", membershipID.String()),
		zap.String("reward_type", string(rewardType)),
		zap.Int("cycle_number", cycleNumber),
		zap.Int("stamp_number", stamp.Number()),
	)

	mid := committed.ID()
	s.audit.Record(ctx, AuditActionRedeem, userID, &mid, map[string]interface{}{
		"reward_type":  string(rewardType),
		"cycle_number": cycleNumber,
		"stamp_number": stamp.Number(),
	})

	s.publisher.RewardRedeemed(ctx, events.RewardRedeemedEvent{
		MembershipID: committed.ID(),
		CardNumber:   committed.CardNumber(),
		CycleNumber:  cycleNumber,
		StampNumber:  stamp.Number(),
		RewardType:   string(rewardType),
		RedeemedAt:   *stamp.RedeemedAt(),
		OccurredAt:   time.Now().UTC(),
	})

	dto := toStampDTO(stamp)
	return &RedeemResult{
		Redeemed:    true,
		Stamp:       &dto,
		CycleNumber: cycleNumber,
	}, nil
}

// HandleTransactionRecorded processes a purchase the POS rang up with the
// member's card scanned. An unknown card is logged and dropped rather than
// retried: the POS accepts cards from other store programs too.
func (s *LoyaltyService) HandleTransactionRecorded(ctx context.Context, evt events.TransactionRecordedEvent) error {
	m, err := s.memberships.FindByCardNumber(ctx, evt.CardNumber)
	if err != nil {
		if domain.IsNotFound(err) {
			s.logger.Warn("transaction for unknown card dropped",
				zap.String("card_number", evt.CardNumber),
				zap.String("receipt_number", evt.ReceiptNumber),
			)
			return nil
		}
		return err
	}

	var receipt *string
	if evt.ReceiptNumber != "" {
		receipt = &evt.ReceiptNumber
	}

	_, err = s.AddStamp(ctx, m.ID(), nil, AddStampRequest{
		Amount:        evt.Amount,
		ReceiptNumber: receipt,
	})
	return err
}
