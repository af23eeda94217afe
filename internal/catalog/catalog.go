// Package catalog is the engine's dependency on the out-of-scope catalog
// service (spec §1): "yields business, helper, and service records".
// Business registration, helper onboarding, and menu/service editing all
// happen upstream in that external service — this package only reads.
//
// spec §2 also lists businesses/helpers/services among the Store's own
// collections, since the queue engine needs a transactionally-consistent
// local copy to enforce I1-I7 without a network round trip per
// operation. Catalog is therefore an interface over that local copy by
// default (FromStore), not a second source of truth: a deployment that
// wants a real upstream catalog microservice can swap the implementation
// without touching internal/engine. Open question resolved; see
// DESIGN.md.
package catalog

import (
	"context"
	"sync"

	"github.com/dipesh-m12/QVuew-Backend/internal/model"
	"github.com/dipesh-m12/QVuew-Backend/internal/store"
)

// Catalog resolves business/service records and the registered-user
// records enqueue's precondition (b) needs (spec §4.1), which the Store's
// collection list does not include — the identity/account service is the
// real owner of user records, so this extension point is where that
// service's data is reached. See DESIGN.md.
type Catalog interface {
	GetBusiness(ctx context.Context, businessID string) (*model.Business, error)
	GetService(ctx context.Context, businessID, serviceID string) (*model.Service, error)
	GetRegisteredUser(ctx context.Context, userID string) (*model.RegisteredUser, error)
}

// FromStore reads Business and Service records from the engine's own
// Store (spec §2's Business/Service collections), and registered users
// from an in-memory directory standing in for the out-of-scope account
// service.
type FromStore struct {
	store store.Store

	mu    sync.RWMutex
	users map[string]*model.RegisteredUser
}

// NewFromStore wraps s, with an empty registered-user directory.
func NewFromStore(s store.Store) *FromStore {
	return &FromStore{store: s, users: make(map[string]*model.RegisteredUser)}
}

// PutUser registers (or replaces) a registered user, for tests/dev and
// for the identity service's write-path to mirror its user records here.
func (c *FromStore) PutUser(u *model.RegisteredUser) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *u
	c.users[u.UserID] = &cp
}

func (c *FromStore) GetBusiness(ctx context.Context, businessID string) (*model.Business, error) {
	return c.store.Snapshot(ctx).GetBusiness(ctx, businessID)
}

func (c *FromStore) GetService(ctx context.Context, businessID, serviceID string) (*model.Service, error) {
	return c.store.Snapshot(ctx).GetService(ctx, businessID, serviceID)
}

func (c *FromStore) GetRegisteredUser(ctx context.Context, userID string) (*model.RegisteredUser, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}
