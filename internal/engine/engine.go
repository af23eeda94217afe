// Package engine is the queue scheduling and mutation core spec §1 calls
// "the hard part of this repository": enqueue, the action/undo state
// machine, the FCFS restructure balancer, break/resume, and the read
// projections built on top of them.
package engine

import (
	"context"
	"time"

	"github.com/dipesh-m12/QVuew-Backend/internal/catalog"
	"github.com/dipesh-m12/QVuew-Backend/internal/clock"
	"github.com/dipesh-m12/QVuew-Backend/internal/identity"
	"github.com/dipesh-m12/QVuew-Backend/internal/model"
	"github.com/dipesh-m12/QVuew-Backend/internal/metrics"
	"github.com/dipesh-m12/QVuew-Backend/internal/mutex"
	"github.com/dipesh-m12/QVuew-Backend/internal/notifier"
	"github.com/dipesh-m12/QVuew-Backend/internal/store"
	"github.com/dipesh-m12/QVuew-Backend/internal/store/cache"
)

// Engine is the concrete implementation of Interface. It holds no
// process-global state (spec §9 "replace [globals] with an engine value
// parameterized on [Store, Clock, Notifier]"); every worker goroutine is
// handed the same *Engine by reference.
type Engine struct {
	Store    store.Store
	Clock    clock.Clock
	Notifier notifier.Notifier
	Identity identity.Resolver
	Catalog  catalog.Catalog
	Cache    *cache.Cache // optional; nil disables projection caching
	Mutex    *mutex.Registry

	// EngineMetrics is optional; nil disables the conflict-retry counter.
	// Set it to the same instance passed to WithTelemetry so both see one
	// registration of each metric.
	EngineMetrics *metrics.EngineMetrics

	UndoWindow         time.Duration
	RestructureHorizon time.Duration
	MaterialWaitDelta  int // minutes
}

// Config bundles the tunables spec §6 lists as environment-configured.
type Config struct {
	UndoWindow         time.Duration
	RestructureHorizon time.Duration
	MaterialWaitDelta  int
}

// New wires the engine's dependencies. Every field is required except
// Cache, which is optional (a nil Cache makes projections always
// recompute).
func New(s store.Store, c clock.Clock, n notifier.Notifier, id identity.Resolver, cat catalog.Catalog, ch *cache.Cache, cfg Config) *Engine {
	return &Engine{
		Store:              s,
		Clock:              c,
		Notifier:           n,
		Identity:           id,
		Catalog:            cat,
		Cache:              ch,
		Mutex:              mutex.New(),
		UndoWindow:         cfg.UndoWindow,
		RestructureHorizon: cfg.RestructureHorizon,
		MaterialWaitDelta:  cfg.MaterialWaitDelta,
	}
}

// Interface is the engine's public contract, implemented by *Engine and
// wrapped unchanged by the telemetry decorator (telemetry.go). httpapi
// handlers depend on this interface, never on *Engine directly.
type Interface interface {
	Enqueue(ctx context.Context, req EnqueueRequest) ([]*model.QueueEntry, error)
	ApplyAction(ctx context.Context, req ActionRequest) (*model.QueueEntry, error)
	Restructure(ctx context.Context, businessID string, from, to time.Time) (RestructureResult, error)
	SetBreak(ctx context.Context, businessID string, helperID string) error
	ResumeBreak(ctx context.Context, businessID string, helperID string) error
	UpdateRating(ctx context.Context, entryID string, rating int, notes string, principal identity.Principal) (*model.QueueEntry, error)
	HelperQueue(ctx context.Context, helperID string, from, to time.Time) (HelperQueueView, error)
	HelperWaitTimes(ctx context.Context, businessID string) (HelperWaitTimesView, error)
	RecentHelperActions(ctx context.Context, helperID string, limit int) ([]RecentAction, error)
	UserQueueHistory(ctx context.Context, userID string, from, to time.Time) ([]*model.QueueEntry, error)
	BusinessQueueHistory(ctx context.Context, businessID string, helperID string, from, to time.Time) ([]*model.QueueEntry, error)
	AddManualCustomer(ctx context.Context, businessID, name, phone string, gender model.Gender) (*model.ManualCustomer, error)
	SearchManualCustomers(ctx context.Context, businessID, name, phone string) ([]*model.ManualCustomer, error)
}

var _ Interface = (*Engine)(nil)

// invalidateProjections drops the cached helper-wait-times entry for a
// business whose queue just changed (spec §4.5's cache-aside projections
// must never serve stale data past a commit). Best-effort: a cache
// failure here is discarded and never surfaces to the caller.
func (e *Engine) invalidateProjections(ctx context.Context, businessID string) {
	if e.Cache == nil {
		return
	}
	_ = e.Cache.InvalidateWaitTimes(ctx, businessID)
}

// invalidateHelperProjections drops the cached recent-actions entry for
// a helper whose lane just changed.
func (e *Engine) invalidateHelperProjections(ctx context.Context, helperID string) {
	if e.Cache == nil {
		return
	}
	_ = e.Cache.InvalidateRecentActions(ctx, helperID)
}

// recomputeETA applies I3: estWait = (position-1)*duration + added-time
// overlay, and derives the paired estServiceStartTime.
func recomputeETA(now time.Time, position int, durationMins int, addedTimeMins int) (estWaitMins int, estServiceStart time.Time) {
	estWaitMins = (position-1)*durationMins + addedTimeMins
	estServiceStart = now.Add(time.Duration(estWaitMins) * time.Minute)
	return
}
