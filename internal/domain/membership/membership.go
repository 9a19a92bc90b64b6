package membership

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kopitetangga/service-loyalty/internal/domain/reward"
	"github.com/kopitetangga/service-loyalty/pkg/domain"
)

// Status represents the lifecycle state of a membership.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
)

// Customer identifies the person a membership belongs to. Customers are
// referenced by the membership, never owned by it.
type Customer struct {
	ID        uuid.UUID
	Name      string
	Phone     string
	Email     string
	CreatedAt time.Time
}

// Stamp records one qualifying transaction within a cycle. It references its
// cycle by id rather than holding a parent pointer.
type Stamp struct {
	id            uuid.UUID
	cycleID       uuid.UUID
	number        int
	rewardType    reward.Type
	redeemedAt    *time.Time
	amount        int64
	receiptNumber *string
	createdAt     time.Time
}

func (s *Stamp) ID() uuid.UUID            { return s.id }
func (s *Stamp) CycleID() uuid.UUID       { return s.cycleID }
func (s *Stamp) Number() int              { return s.number }
func (s *Stamp) RewardType() reward.Type  { return s.rewardType }
func (s *Stamp) RedeemedAt() *time.Time   { return s.redeemedAt }
func (s *Stamp) Amount() int64            { return s.amount }
func (s *Stamp) ReceiptNumber() *string   { return s.receiptNumber }
func (s *Stamp) CreatedAt() time.Time     { return s.createdAt }
func (s *Stamp) IsRedeemed() bool         { return s.redeemedAt != nil }

// Cycle is a bounded run of stamps. At most one cycle per membership is open;
// a closed cycle is immutable.
type Cycle struct {
	id        uuid.UUID
	number    int
	closed    bool
	stamps    []*Stamp
	createdAt time.Time
}

func (c *Cycle) ID() uuid.UUID        { return c.id }
func (c *Cycle) Number() int          { return c.number }
func (c *Cycle) Closed() bool         { return c.closed }
func (c *Cycle) Stamps() []*Stamp     { return c.stamps }
func (c *Cycle) StampCount() int      { return len(c.stamps) }
func (c *Cycle) CreatedAt() time.Time { return c.createdAt }

// Membership is the aggregate root for the stamp-cycle engine. All mutations
// go through the aggregate so invariants hold under the store's per-membership
// serialization.
type Membership struct {
	id         uuid.UUID
	customer   Customer
	cardNumber string
	publicID   uuid.UUID
	status     Status
	startDate  time.Time
	endDate    time.Time
	cycles     []*Cycle
	version    int64
	createdAt  time.Time
	updatedAt  time.Time
}

// NewMembership creates an active membership with no cycles. The first
// eligible transaction creates cycle 1.
func NewMembership(customer Customer, cardNumber string, publicID uuid.UUID, startDate, endDate time.Time) (*Membership, error) {
	if cardNumber == "" {
		return nil, domain.NewValidationError("card number is required")
	}
	if publicID == uuid.Nil {
		return nil, domain.NewValidationError("public id is required")
	}
	if endDate.Before(startDate) {
		return nil, domain.NewValidationError("end date must be after start date")
	}

	now := time.Now().UTC()
	return &Membership{
		id:         uuid.New(),
		customer:   customer,
		cardNumber: cardNumber,
		publicID:   publicID,
		status:     StatusActive,
		startDate:  startDate,
		endDate:    endDate,
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

func (m *Membership) ID() uuid.UUID        { return m.id }
func (m *Membership) Customer() Customer   { return m.customer }
func (m *Membership) CardNumber() string   { return m.cardNumber }
func (m *Membership) PublicID() uuid.UUID  { return m.publicID }
func (m *Membership) Status() Status       { return m.status }
func (m *Membership) StartDate() time.Time { return m.startDate }
func (m *Membership) EndDate() time.Time   { return m.endDate }
func (m *Membership) Cycles() []*Cycle     { return m.cycles }
func (m *Membership) Version() int64       { return m.version }
func (m *Membership) CreatedAt() time.Time { return m.createdAt }
func (m *Membership) UpdatedAt() time.Time { return m.updatedAt }

// OpenCycle returns the currently open cycle, or nil if none exists.
func (m *Membership) OpenCycle() *Cycle {
	for _, c := range m.cycles {
		if !c.closed {
			return c
		}
	}
	return nil
}

// LatestCycle returns the cycle with the highest number, or nil.
func (m *Membership) LatestCycle() *Cycle {
	var latest *Cycle
	for _, c := range m.cycles {
		if latest == nil || c.number > latest.number {
			latest = c
		}
	}
	return latest
}

// HasReceipt reports whether any stamp of this membership already references
// the given POS receipt number.
func (m *Membership) HasReceipt(receipt string) bool {
	for _, c := range m.cycles {
		for _, s := range c.stamps {
			if s.receiptNumber != nil && *s.receiptNumber == receipt {
				return true
			}
		}
	}
	return false
}

// IsActive reports whether the membership can earn stamps on the given day.
func (m *Membership) IsActive(today time.Time) bool {
	day := today.Truncate(24 * time.Hour)
	return m.status == StatusActive &&
		!day.Before(m.startDate.Truncate(24*time.Hour)) &&
		!day.After(m.endDate.Truncate(24*time.Hour))
}

// RefreshStatus expires the membership when its validity window has passed
// and reports whether the status changed. Suspended memberships stay
// suspended.
func (m *Membership) RefreshStatus(today time.Time) bool {
	if m.status == StatusSuspended {
		return false
	}
	if m.status != StatusExpired && today.Truncate(24*time.Hour).After(m.endDate.Truncate(24*time.Hour)) {
		m.status = StatusExpired
		m.updatedAt = time.Now().UTC()
		return true
	}
	return false
}

// Suspend blocks the membership from earning or redeeming.
func (m *Membership) Suspend() error {
	if m.status == StatusSuspended {
		return domain.NewInvalidStateError(string(m.status), string(StatusSuspended))
	}
	m.status = StatusSuspended
	m.updatedAt = time.Now().UTC()
	return nil
}

// AppendStamp appends a stamp for an already-eligible transaction. It opens
// cycle max+1 lazily when no cycle is open, numbers the stamp contiguously,
// assigns the reward by position, and closes the cycle when the stamp fills
// it. Eligibility is the caller's responsibility (see EvaluateEligibility).
func (m *Membership) AppendStamp(amount int64, receiptNumber *string, policy *reward.Policy) (*Stamp, error) {
	cycle := m.OpenCycle()
	if cycle == nil {
		nextNumber := 1
		if latest := m.LatestCycle(); latest != nil {
			nextNumber = latest.number + 1
		}
		cycle = &Cycle{
			id:        uuid.New(),
			number:    nextNumber,
			createdAt: time.Now().UTC(),
		}
		m.cycles = append(m.cycles, cycle)
	}

	number := len(cycle.stamps) + 1
	if number > policy.CycleSize() {
		// A closed cycle would have been skipped by OpenCycle; an open cycle
		// past the size means the stored aggregate is corrupt.
		return nil, domain.NewInternalError(
			fmt.Sprintf("open cycle %d already holds %d stamps", cycle.number, len(cycle.stamps)))
	}

	rewardType, err := policy.RewardFor(number)
	if err != nil {
		return nil, err
	}

	stamp := &Stamp{
		id:            uuid.New(),
		cycleID:       cycle.id,
		number:        number,
		rewardType:    rewardType,
		amount:        amount,
		receiptNumber: receiptNumber,
		createdAt:     time.Now().UTC(),
	}
	cycle.stamps = append(cycle.stamps, stamp)

	if number == policy.CycleSize() {
		cycle.closed = true
	}

	m.updatedAt = time.Now().UTC()
	return stamp, nil
}

// RedeemReward marks the earliest unredeemed stamp carrying the requested
// reward as redeemed. Selection order is (cycle number, stamp number)
// ascending so redemption is FIFO and deterministic. Returns false when no
// such stamp exists.
func (m *Membership) RedeemReward(rewardType reward.Type, now time.Time) (*Stamp, bool) {
	if rewardType == reward.TypeNone {
		return nil, false
	}

	var best *Stamp
	bestCycle := 0
	for _, c := range m.cycles {
		for _, s := range c.stamps {
			if s.rewardType != rewardType || s.IsRedeemed() {
				continue
			}
			if best == nil || c.number < bestCycle || (c.number == bestCycle && s.number < best.number) {
				best = s
				bestCycle = c.number
			}
		}
	}
	if best == nil {
		return nil, false
	}

	ts := now.UTC()
	best.redeemedAt = &ts
	m.updatedAt = ts
	return best, true
}

// CycleForStamp returns the cycle owning the given stamp.
func (m *Membership) CycleForStamp(s *Stamp) *Cycle {
	for _, c := range m.cycles {
		if c.id == s.cycleID {
			return c
		}
	}
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (m *Membership) IncrementVersion() {
	m.version++
	m.updatedAt = time.Now().UTC()
}

// Clone returns a deep copy of the aggregate. The in-memory store mutates a
// clone so a failed mutator leaves the stored aggregate untouched.
func (m *Membership) Clone() *Membership {
	cp := *m
	cp.cycles = make([]*Cycle, len(m.cycles))
	for i, c := range m.cycles {
		cc := *c
		cc.stamps = make([]*Stamp, len(c.stamps))
		for j, s := range c.stamps {
			sc := *s
			if s.redeemedAt != nil {
				t := *s.redeemedAt
				sc.redeemedAt = &t
			}
			if s.receiptNumber != nil {
				r := *s.receiptNumber
				sc.receiptNumber = &r
			}
			cc.stamps[j] = &sc
		}
		cp.cycles[i] = &cc
	}
	return &cp
}

// --- Reconstitution (used by repositories to rebuild from persistence) ---

// ReconstituteStamp rebuilds a Stamp from persisted data.
func ReconstituteStamp(id, cycleID uuid.UUID, number int, rewardType reward.Type, redeemedAt *time.Time, amount int64, receiptNumber *string, createdAt time.Time) *Stamp {
	return &Stamp{
		id:            id,
		cycleID:       cycleID,
		number:        number,
		rewardType:    rewardType,
		redeemedAt:    redeemedAt,
		amount:        amount,
		receiptNumber: receiptNumber,
		createdAt:     createdAt,
	}
}

// ReconstituteCycle rebuilds a Cycle from persisted data. Stamps must be in
// stamp-number order.
func ReconstituteCycle(id uuid.UUID, number int, closed bool, stamps []*Stamp, createdAt time.Time) *Cycle {
	return &Cycle{
		id:        id,
		number:    number,
		closed:    closed,
		stamps:    stamps,
		createdAt: createdAt,
	}
}

// Reconstitute rebuilds a Membership from persisted data. Cycles must be in
// cycle-number order.
func Reconstitute(
	id uuid.UUID,
	customer Customer,
	cardNumber string,
	publicID uuid.UUID,
	status Status,
	startDate, endDate time.Time,
	cycles []*Cycle,
	version int64,
	createdAt, updatedAt time.Time,
) *Membership {
	return &Membership{
		id:         id,
		customer:   customer,
		cardNumber: cardNumber,
		publicID:   publicID,
		status:     status,
		startDate:  startDate,
		endDate:    endDate,
		cycles:     cycles,
		version:    version,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}
