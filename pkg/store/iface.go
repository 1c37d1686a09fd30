// iface.go defines the StoreInterface for dependency injection and testing.
//
// The concrete *Store type satisfies this interface. Code that depends on
// the store (the network layer, the cmd layer) accepts StoreInterface
// instead of *Store, enabling mock injection in tests.
package store

import "github.com/XopheD/chronologic/pkg/model"

// StoreInterface defines the full set of store operations.
// The concrete *Store type implements this interface.
type StoreInterface interface {
	// Close closes the database connection.
	Close() error

	// Path returns the database file.
	Path() string

	// --- Instants ---

	// AddInstant registers a label. Idempotent.
	AddInstant(label string) (*model.Instant, error)

	// GetInstant retrieves an instant by label.
	GetInstant(label string) (*model.Instant, error)

	// ListInstants returns every instant ordered by id.
	ListInstants() ([]model.Instant, error)

	// --- Constraints ---

	// AppendConstraint appends to the constraint log. Returns the row ID.
	AppendConstraint(c *model.Constraint) (int64, error)

	// AppendConstraintAfter appends only if the last entry is still head;
	// ErrStaleLog otherwise.
	AppendConstraintAfter(head int64, c *model.Constraint) (int64, error)

	// LastConstraintID returns the row ID of the last entry, or 0.
	LastConstraintID() (int64, error)

	// SetConstraintStatus rewrites the status of one entry.
	SetConstraintStatus(id int64, status model.Status) error

	// ListConstraints returns log entries with row ID > sinceID.
	ListConstraints(sinceID int64, limit int) ([]model.Constraint, error)

	// ListReplayable returns the applied and implied constraints in order.
	ListReplayable() ([]model.Constraint, error)

	// CountConstraints returns the number of log entries per status.
	CountConstraints() (map[model.Status]int64, error)

	// MaxVersion returns the highest recorded graph version, or 0.
	MaxVersion() uint64

	// --- Restrictions ---

	// AddRestriction records a domain asserted on one instant.
	AddRestriction(r *model.Restriction) (int64, error)

	// ListRestrictions returns every restriction in order.
	ListRestrictions() ([]model.Restriction, error)

	// --- Meta ---

	// GetMeta returns the value stored under key ("" if unset).
	GetMeta(key string) string

	// SetMeta stores value under key.
	SetMeta(key, value string) error
}

// Compile-time check that *Store implements StoreInterface.
var _ StoreInterface = (*Store)(nil)
