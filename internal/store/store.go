// Package store defines the queue engine's persistence contract: a
// transactional, key-addressed set of collections for businesses,
// services, queue entries, and manual customers (spec §2, §3), with
// secondary indexes on (businessId,status), (helperId,status),
// (helperId,position), and (joiningTime).
//
// Every write-path engine operation runs its reads and writes inside a
// single call to WithTransaction, so it either fully commits or leaves no
// trace (spec §5, §7 Propagation).
package store

import (
	"context"
	"time"

	"github.com/dipesh-m12/QVuew-Backend/internal/model"
)

// ErrNotFound is returned by Tx lookups when the requested document does
// not exist.
var ErrNotFound = model.NotFound(nil, "document not found")

// TxFunc is the body of a Store transaction. Returning an error aborts
// the transaction; returning nil commits it.
type TxFunc func(ctx context.Context, tx Tx) error

// Store opens transactions over the engine's collections. Reads outside
// of WithTransaction (via Snapshot) may observe briefly-stale positions.
// Memory serves them from a point-in-time clone of its state; Mongo reads
// with the driver's default read concern, so successive reads through one
// Snapshot are not isolated from commits made in between.
type Store interface {
	// WithTransaction runs fn inside a single multi-document transaction.
	// Callers are responsible for holding the per-business mutex around
	// this call (internal/mutex); WithTransaction itself is not
	// serializing across businesses or callers.
	WithTransaction(ctx context.Context, fn TxFunc) error

	// Snapshot returns a read-only Tx usable outside of a transaction,
	// for the read projections in spec §4.5.
	Snapshot(ctx context.Context) Tx

	// EnsureIndexes creates the secondary indexes spec §2/§3 name. Safe
	// to call repeatedly; implementations make it idempotent.
	EnsureIndexes(ctx context.Context) error

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

// Tx is the set of reads and writes available inside one transaction (or,
// via Snapshot, outside of one for read-only projections).
type Tx interface {
	GetBusiness(ctx context.Context, businessID string) (*model.Business, error)
	SaveBusiness(ctx context.Context, b *model.Business) error

	GetService(ctx context.Context, businessID, serviceID string) (*model.Service, error)
	ListServices(ctx context.Context, businessID string) ([]*model.Service, error)

	GetManualCustomer(ctx context.Context, businessID, manualID string) (*model.ManualCustomer, error)
	SaveManualCustomer(ctx context.Context, m *model.ManualCustomer) error
	FindManualCustomers(ctx context.Context, businessID, name, phone string) ([]*model.ManualCustomer, error)

	GetQueueEntry(ctx context.Context, entryID string) (*model.QueueEntry, error)
	InsertQueueEntries(ctx context.Context, entries []*model.QueueEntry) error
	SaveQueueEntry(ctx context.Context, e *model.QueueEntry) error

	// ListLane returns entries for (businessID, helperID) whose status is
	// in statuses, in no particular order — callers that care about
	// position order (I1) sort the result themselves.
	ListLane(ctx context.Context, businessID, helperID string, statuses []model.EntryStatus) ([]*model.QueueEntry, error)

	// ListBusinessWindow returns entries for businessID with status in
	// statuses and JoiningTime in [from, to], ordered by JoiningTime
	// ascending (FCFS, spec §4.3 step 2).
	ListBusinessWindow(ctx context.Context, businessID string, statuses []model.EntryStatus, from, to time.Time) ([]*model.QueueEntry, error)

	// ListHelperWindow returns entries for helperID with status in
	// statuses and JoiningTime in [from, to].
	ListHelperWindow(ctx context.Context, helperID string, statuses []model.EntryStatus, from, to time.Time) ([]*model.QueueEntry, error)

	// ListUserWindow returns every entry (any status) for a registered
	// user's JoiningTime in [from, to].
	ListUserWindow(ctx context.Context, userID string, from, to time.Time) ([]*model.QueueEntry, error)

	// ListBusinessAllWindow returns every entry (any status) for a
	// business's JoiningTime in [from, to].
	ListBusinessAllWindow(ctx context.Context, businessID string, from, to time.Time) ([]*model.QueueEntry, error)
}
