package saga

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kopitetangga/service-loyalty/internal/domain/card"
	"github.com/kopitetangga/service-loyalty/internal/domain/membership"
	"github.com/kopitetangga/service-loyalty/internal/domain/program"
	"github.com/kopitetangga/service-loyalty/internal/events"
	"github.com/kopitetangga/service-loyalty/pkg/domain"
)

// Step is a single unit of work in a saga with an optional compensating action.
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga runs steps in order and, on failure, compensates the already-executed
// steps in reverse order. Compensation errors are logged but do not stop the
// unwind.
type Saga struct {
	name   string
	steps  []Step
	logger *zap.Logger
}

// NewSaga creates an empty saga orchestrator.
func NewSaga(name string, logger *zap.Logger) *Saga {
	return &Saga{
		name:   name,
		steps:  make([]Step, 0),
		logger: logger,
	}
}

// AddStep appends a step to the saga.
func (s *Saga) AddStep(step Step) {
	s.steps = append(s.steps, step)
}

// Execute runs all steps in order, compensating on the first failure.
func (s *Saga) Execute(ctx context.Context) error {
	s.logger.Info("saga started", zap.String("saga", s.name))

	executed := make([]Step, 0, len(s.steps))

	for _, step := range s.steps {
		s.logger.Info("executing saga step",
			zap.String("saga", s.name),
			zap.String("step", step.Name),
		)

		if err := step.Execute(ctx); err != nil {
			s.logger.Error("saga step failed, starting compensation",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)

			for i := len(executed) - 1; i >= 0; i-- {
				undo := executed[i]
				if undo.Compensate == nil {
					continue
				}
				s.logger.Info("compensating saga step",
					zap.String("saga", s.name),
					zap.String("step", undo.Name),
				)
				if compErr := undo.Compensate(ctx); compErr != nil {
					s.logger.Error("compensation failed",
						zap.String("saga", s.name),
						zap.String("step", undo.Name),
						zap.Error(compErr),
					)
				}
			}

			return fmt.Errorf("saga '%s' failed at step '%s': %w", s.name, step.Name, err)
		}

		executed = append(executed, step)
	}

	s.logger.Info("saga completed successfully", zap.String("saga", s.name))
	return nil
}

// ActivationPublisher is the slice of the event surface card activation needs.
type ActivationPublisher interface {
	MemberActivated(ctx context.Context, evt events.MemberActivatedEvent)
}

// AuditRecorder appends audit entries without ever failing the operation.
type AuditRecorder interface {
	Record(ctx context.Context, action string, userID, membershipID *uuid.UUID, metadata map[string]interface{})
}

const auditActionActivateCard = "activate_card"

// ActivateCardRequest carries the customer details for activating a physical
// card. The card is identified by its printed number or by the public id from
// its QR code; at least one must be set.
type ActivateCardRequest struct {
	CardNumber    string `json:"card_number"`
	PublicID      string `json:"public_id"`
	CustomerName  string `json:"customer_name" binding:"required"`
	CustomerPhone string `json:"customer_phone" binding:"required"`
	CustomerEmail string `json:"customer_email"`
}

// ActivationSagaService turns an unassigned card from inventory into an active
// membership. The steps span two aggregates (card and membership), so failures
// after the card is claimed must release it again.
type ActivationSagaService struct {
	memberships membership.Repository
	customers   membership.CustomerRepository
	cards       card.Repository
	settings    program.Repository
	publisher   ActivationPublisher
	audit       AuditRecorder
	logger      *zap.Logger
}

// NewActivationSagaService creates a new ActivationSagaService.
func NewActivationSagaService(
	memberships membership.Repository,
	customers membership.CustomerRepository,
	cards card.Repository,
	settings program.Repository,
	publisher ActivationPublisher,
	audit AuditRecorder,
	logger *zap.Logger,
) *ActivationSagaService {
	return &ActivationSagaService{
		memberships: memberships,
		customers:   customers,
		cards:       cards,
		settings:    settings,
		publisher:   publisher,
		audit:       audit,
		logger:      logger,
	}
}

// ActivateCard claims the card, creates (or reuses) the customer, and persists
// the new membership. The membership starts today and runs for the configured
// duration.
func (s *ActivationSagaService) ActivateCard(ctx context.Context, req ActivateCardRequest, userID *uuid.UUID) (*membership.Membership, error) {
	phone := strings.TrimSpace(req.CustomerPhone)
	name := strings.TrimSpace(req.CustomerName)
	if phone == "" || name == "" {
		return nil, domain.NewValidationError("customer name and phone are required")
	}

	c, err := s.resolveCard(ctx, req)
	if err != nil {
		return nil, err
	}
	if c.Assigned() {
		return nil, domain.NewConflictError("card is already activated")
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	startDate := time.Now().UTC()
	endDate := startDate.AddDate(0, cfg.MembershipDurationMonths, 0)

	var (
		cust *membership.Customer
		m    *membership.Membership
	)

	sg := NewSaga("activate_card", s.logger)

	// Step 1: find or create the customer by phone.
	sg.AddStep(Step{
		Name: "ensure_customer",
		Execute: func(ctx context.Context) error {
			existing, err := s.customers.FindByPhone(ctx, phone)
			if err == nil {
				cust = existing
				return s.backfillCustomer(ctx, existing, name, strings.TrimSpace(req.CustomerEmail))
			}
			if !domain.IsNotFound(err) {
				return err
			}
			cust = &membership.Customer{
				ID:        uuid.New(),
				Name:      name,
				Phone:     phone,
				Email:     strings.TrimSpace(req.CustomerEmail),
				CreatedAt: time.Now().UTC(),
			}
			return s.customers.Save(ctx, cust)
		},
		// An existing or newly created customer record is harmless on its
		// own, so there is nothing to undo.
		Compensate: nil,
	})

	// Step 2: create the membership and claim the card for it.
	sg.AddStep(Step{
		Name: "assign_card",
		Execute: func(ctx context.Context) error {
			created, err := membership.NewMembership(*cust, c.CardNumber(), c.PublicID(), startDate, endDate)
			if err != nil {
				return err
			}
			m = created
			if err := c.Assign(m.ID()); err != nil {
				return err
			}
			return s.cards.Update(ctx, c)
		},
		Compensate: func(ctx context.Context) error {
			c.Unassign()
			return s.cards.Update(ctx, c)
		},
	})

	// Step 3: persist the membership aggregate.
	sg.AddStep(Step{
		Name: "save_membership",
		Execute: func(ctx context.Context) error {
			return s.memberships.Save(ctx, m)
		},
		Compensate: nil,
	})

	// Step 4: announce the new member.
	sg.AddStep(Step{
		Name: "publish_member_activated",
		Execute: func(ctx context.Context) error {
			s.publisher.MemberActivated(ctx, events.MemberActivatedEvent{
				MembershipID: m.ID(),
				CardNumber:   m.CardNumber(),
				CustomerName: cust.Name,
				Phone:        cust.Phone,
				StartDate:    m.StartDate(),
				EndDate:      m.EndDate(),
				OccurredAt:   time.Now().UTC(),
			})
			return nil
		},
		Compensate: nil,
	})

	if err := sg.Execute(ctx); err != nil {
		return nil, err
	}

	mid := m.ID()
	s.audit.Record(ctx, auditActionActivateCard, userID, &mid, map[string]interface{}{
		"card_number": m.CardNumber(),
		"public_id":   m.PublicID().String(),
	})

	return m, nil
}

// resolveCard locates the card by printed number when given, falling back to
// the public id from the QR code.
func (s *ActivationSagaService) resolveCard(ctx context.Context, req ActivateCardRequest) (*card.Card, error) {
	if cardNumber := strings.TrimSpace(req.CardNumber); cardNumber != "" {
		return s.cards.FindByCardNumber(ctx, cardNumber)
	}
	if raw := strings.TrimSpace(req.PublicID); raw != "" {
		publicID, err := uuid.Parse(raw)
		if err != nil {
			return nil, domain.NewValidationError("invalid public id")
		}
		return s.cards.FindByPublicID(ctx, publicID)
	}
	return nil, domain.NewValidationError("card number or public id is required")
}

// backfillCustomer fills the name and email a returning customer's record is
// missing. An already-populated field keeps its stored value.
func (s *ActivationSagaService) backfillCustomer(ctx context.Context, cust *membership.Customer, name, email string) error {
	changed := false
	if cust.Name == "" && name != "" {
		cust.Name = name
		changed = true
	}
	if cust.Email == "" && email != "" {
		cust.Email = email
		changed = true
	}
	if !changed {
		return nil
	}
	return s.customers.Update(ctx, cust)
}
