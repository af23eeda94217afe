package store

import (
	"context"
	"sync"
	"time"

	"github.com/dipesh-m12/QVuew-Backend/internal/model"
)

// Memory is an in-process Store, grounded on the teacher's map-backed
// stock.Store. It gives WithTransaction real all-or-nothing semantics by
// cloning its state at the start of a transaction and only publishing the
// clone back if fn returns nil — useful for tests and for a single-node
// development deployment without MongoDB.
type Memory struct {
	mu sync.Mutex

	businesses      map[string]*model.Business
	services        map[string]*model.Service
	manualCustomers map[string]*model.ManualCustomer
	entries         map[string]*model.QueueEntry
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		businesses:      make(map[string]*model.Business),
		services:        make(map[string]*model.Service),
		manualCustomers: make(map[string]*model.ManualCustomer),
		entries:         make(map[string]*model.QueueEntry),
	}
}

// SeedBusiness inserts or replaces a business, for test fixtures.
func (m *Memory) SeedBusiness(b *model.Business) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.businesses[b.ID] = b.Clone()
}

// SeedService inserts or replaces a service, for test fixtures.
func (m *Memory) SeedService(s *model.Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[s.ID] = s.Clone()
}

// SeedManualCustomer inserts or replaces a manual customer, for test fixtures.
func (m *Memory) SeedManualCustomer(c *model.ManualCustomer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manualCustomers[c.ManualID] = c.Clone()
}

func (m *Memory) EnsureIndexes(ctx context.Context) error { return nil }
func (m *Memory) Close(ctx context.Context) error         { return nil }

// memState is the cloned, mutable working set a transaction operates on.
type memState struct {
	businesses      map[string]*model.Business
	services        map[string]*model.Service
	manualCustomers map[string]*model.ManualCustomer
	entries         map[string]*model.QueueEntry
}

func (m *Memory) snapshotState() *memState {
	st := &memState{
		businesses:      make(map[string]*model.Business, len(m.businesses)),
		services:        make(map[string]*model.Service, len(m.services)),
		manualCustomers: make(map[string]*model.ManualCustomer, len(m.manualCustomers)),
		entries:         make(map[string]*model.QueueEntry, len(m.entries)),
	}
	for k, v := range m.businesses {
		st.businesses[k] = v.Clone()
	}
	for k, v := range m.services {
		st.services[k] = v.Clone()
	}
	for k, v := range m.manualCustomers {
		st.manualCustomers[k] = v.Clone()
	}
	for k, v := range m.entries {
		st.entries[k] = v.Clone()
	}
	return st
}

// WithTransaction clones the store's state, runs fn against the clone,
// and publishes the clone back only if fn succeeds.
func (m *Memory) WithTransaction(ctx context.Context, fn TxFunc) error {
	m.mu.Lock()
	st := m.snapshotState()
	m.mu.Unlock()

	tx := &memTx{state: st}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	m.mu.Lock()
	m.businesses = st.businesses
	m.services = st.services
	m.manualCustomers = st.manualCustomers
	m.entries = st.entries
	m.mu.Unlock()
	return nil
}

// Snapshot returns a read-only view over a clone of the current state.
func (m *Memory) Snapshot(ctx context.Context) Tx {
	m.mu.Lock()
	st := m.snapshotState()
	m.mu.Unlock()
	return &memTx{state: st}
}

type memTx struct {
	state *memState
}

func (t *memTx) GetBusiness(ctx context.Context, businessID string) (*model.Business, error) {
	b, ok := t.state.businesses[businessID]
	if !ok {
		return nil, ErrNotFound
	}
	return b.Clone(), nil
}

func (t *memTx) SaveBusiness(ctx context.Context, b *model.Business) error {
	t.state.businesses[b.ID] = b.Clone()
	return nil
}

func (t *memTx) GetService(ctx context.Context, businessID, serviceID string) (*model.Service, error) {
	s, ok := t.state.services[serviceID]
	if !ok || s.BusinessID != businessID {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (t *memTx) ListServices(ctx context.Context, businessID string) ([]*model.Service, error) {
	var out []*model.Service
	for _, s := range t.state.services {
		if s.BusinessID == businessID {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (t *memTx) GetManualCustomer(ctx context.Context, businessID, manualID string) (*model.ManualCustomer, error) {
	c, ok := t.state.manualCustomers[manualID]
	if !ok || c.BusinessID != businessID {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (t *memTx) SaveManualCustomer(ctx context.Context, c *model.ManualCustomer) error {
	t.state.manualCustomers[c.ManualID] = c.Clone()
	return nil
}

func (t *memTx) FindManualCustomers(ctx context.Context, businessID, name, phone string) ([]*model.ManualCustomer, error) {
	var out []*model.ManualCustomer
	for _, c := range t.state.manualCustomers {
		if c.BusinessID != businessID {
			continue
		}
		if name != "" && c.Name != name {
			continue
		}
		if phone != "" && c.Phone != phone {
			continue
		}
		out = append(out, c.Clone())
	}
	return out, nil
}

func (t *memTx) GetQueueEntry(ctx context.Context, entryID string) (*model.QueueEntry, error) {
	e, ok := t.state.entries[entryID]
	if !ok {
		return nil, ErrNotFound
	}
	return e.Clone(), nil
}

func (t *memTx) InsertQueueEntries(ctx context.Context, entries []*model.QueueEntry) error {
	for _, e := range entries {
		t.state.entries[e.ID] = e.Clone()
	}
	return nil
}

func (t *memTx) SaveQueueEntry(ctx context.Context, e *model.QueueEntry) error {
	t.state.entries[e.ID] = e.Clone()
	return nil
}

// matchStatus reports whether s is among statuses; an empty statuses
// means "any status" (used by the history projections that read every
// entry regardless of lifecycle state).
func matchStatus(s model.EntryStatus, statuses []model.EntryStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, want := range statuses {
		if s == want {
			return true
		}
	}
	return false
}

func (t *memTx) ListLane(ctx context.Context, businessID, helperID string, statuses []model.EntryStatus) ([]*model.QueueEntry, error) {
	var out []*model.QueueEntry
	for _, e := range t.state.entries {
		if e.BusinessID == businessID && e.HelperID == helperID && matchStatus(e.Status, statuses) {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

func (t *memTx) ListBusinessWindow(ctx context.Context, businessID string, statuses []model.EntryStatus, from, to time.Time) ([]*model.QueueEntry, error) {
	var out []*model.QueueEntry
	for _, e := range t.state.entries {
		if e.BusinessID == businessID && matchStatus(e.Status, statuses) && inWindow(e.JoiningTime, from, to) {
			out = append(out, e.Clone())
		}
	}
	sortByJoiningTime(out)
	return out, nil
}

func (t *memTx) ListHelperWindow(ctx context.Context, helperID string, statuses []model.EntryStatus, from, to time.Time) ([]*model.QueueEntry, error) {
	var out []*model.QueueEntry
	for _, e := range t.state.entries {
		if e.HelperID == helperID && matchStatus(e.Status, statuses) && inWindow(e.JoiningTime, from, to) {
			out = append(out, e.Clone())
		}
	}
	sortByJoiningTime(out)
	return out, nil
}

func (t *memTx) ListUserWindow(ctx context.Context, userID string, from, to time.Time) ([]*model.QueueEntry, error) {
	var out []*model.QueueEntry
	for _, e := range t.state.entries {
		if e.UserRef.Kind == model.UserRefRegistered && e.UserRef.UserID == userID && inWindow(e.JoiningTime, from, to) {
			out = append(out, e.Clone())
		}
	}
	sortByJoiningTime(out)
	return out, nil
}

func (t *memTx) ListBusinessAllWindow(ctx context.Context, businessID string, from, to time.Time) ([]*model.QueueEntry, error) {
	var out []*model.QueueEntry
	for _, e := range t.state.entries {
		if e.BusinessID == businessID && inWindow(e.JoiningTime, from, to) {
			out = append(out, e.Clone())
		}
	}
	sortByJoiningTime(out)
	return out, nil
}
