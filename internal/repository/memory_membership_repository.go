package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	membershipDomain "github.com/kopitetangga/service-loyalty/internal/domain/membership"
	"github.com/kopitetangga/service-loyalty/pkg/domain"
)

// MemoryMembershipRepository is the in-memory Membership store used by unit
// tests and local tooling. It gives the same per-membership serialization
// guarantee as the Postgres store via a mutex per aggregate.
type MemoryMembershipRepository struct {
	mu          sync.RWMutex
	memberships map[uuid.UUID]*membershipDomain.Membership
	locks       map[uuid.UUID]*sync.Mutex
}

// NewMemoryMembershipRepository creates an empty in-memory store.
func NewMemoryMembershipRepository() *MemoryMembershipRepository {
	return &MemoryMembershipRepository{
		memberships: make(map[uuid.UUID]*membershipDomain.Membership),
		locks:       make(map[uuid.UUID]*sync.Mutex),
	}
}

// FindByID returns a copy of the aggregate.
func (r *MemoryMembershipRepository) FindByID(ctx context.Context, id uuid.UUID) (*membershipDomain.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.memberships[id]
	if !ok {
		return nil, domain.NewNotFoundError("Membership", id.String())
	}
	return m.Clone(), nil
}

// FindByCardNumber returns the membership with the given card number.
func (r *MemoryMembershipRepository) FindByCardNumber(ctx context.Context, cardNumber string) (*membershipDomain.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.memberships {
		if m.CardNumber() == cardNumber {
			return m.Clone(), nil
		}
	}
	return nil, domain.NewNotFoundError("Membership", cardNumber)
}

// FindByPhone returns the membership whose customer has the given phone.
func (r *MemoryMembershipRepository) FindByPhone(ctx context.Context, phone string) (*membershipDomain.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *membershipDomain.Membership
	for _, m := range r.memberships {
		if m.Customer().Phone != phone {
			continue
		}
		if best == nil || m.StartDate().After(best.StartDate()) {
			best = m
		}
	}
	if best == nil {
		return nil, domain.NewNotFoundError("Membership", phone)
	}
	return best.Clone(), nil
}

// FindByPublicID returns the membership with the given public scan id.
func (r *MemoryMembershipRepository) FindByPublicID(ctx context.Context, publicID uuid.UUID) (*membershipDomain.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.memberships {
		if m.PublicID() == publicID {
			return m.Clone(), nil
		}
	}
	return nil, domain.NewNotFoundError("Membership", publicID.String())
}

// Save stores a new membership aggregate.
func (r *MemoryMembershipRepository) Save(ctx context.Context, m *membershipDomain.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.memberships {
		if existing.CardNumber() == m.CardNumber() || existing.PublicID() == m.PublicID() {
			return domain.NewConflictError("card number or public id already in use")
		}
	}
	r.memberships[m.ID()] = m.Clone()
	r.locks[m.ID()] = &sync.Mutex{}
	return nil
}

// UpdateAtomic applies the mutator to a clone under the membership's lock and
// swaps it in only on success, so a failed mutator leaves no partial state.
func (r *MemoryMembershipRepository) UpdateAtomic(ctx context.Context, id uuid.UUID, mutate membershipDomain.Mutator) (*membershipDomain.Membership, error) {
	r.mu.RLock()
	lock, ok := r.locks[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFoundError("Membership", id.String())
	}

	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	current := r.memberships[id]
	r.mu.RUnlock()

	working := current.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	working.IncrementVersion()

	r.mu.Lock()
	r.memberships[id] = working
	r.mu.Unlock()

	return working.Clone(), nil
}
