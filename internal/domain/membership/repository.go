package membership

import (
	"context"

	"github.com/google/uuid"
)

// Mutator is applied to the aggregate under the store's per-membership
// exclusive lock. Returning an error aborts the write with no state change.
type Mutator func(m *Membership) error

// Repository defines the persistence contract for Membership aggregates.
// Implementations must guarantee that a successful UpdateAtomic is immediately
// visible to subsequent reads and writes, that concurrent writers to the same
// membership are serialized, and that writers to different memberships proceed
// independently.
type Repository interface {
	// FindByID retrieves the full aggregate (all cycles, all stamps).
	FindByID(ctx context.Context, id uuid.UUID) (*Membership, error)

	// FindByCardNumber retrieves a membership by its unique card number.
	FindByCardNumber(ctx context.Context, cardNumber string) (*Membership, error)

	// FindByPhone retrieves a membership by the owning customer's phone.
	FindByPhone(ctx context.Context, phone string) (*Membership, error)

	// FindByPublicID retrieves a membership by its public scan identifier.
	FindByPublicID(ctx context.Context, publicID uuid.UUID) (*Membership, error)

	// Save persists a new membership aggregate.
	Save(ctx context.Context, m *Membership) error

	// UpdateAtomic applies the mutator to the current aggregate state under a
	// per-membership exclusive lock and commits all-or-nothing. The returned
	// aggregate reflects the committed state.
	UpdateAtomic(ctx context.Context, id uuid.UUID, mutate Mutator) (*Membership, error)
}

// CustomerRepository defines persistence for referenced customers.
type CustomerRepository interface {
	FindByPhone(ctx context.Context, phone string) (*Customer, error)
	Save(ctx context.Context, c *Customer) error
	Update(ctx context.Context, c *Customer) error
}
