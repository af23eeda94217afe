package engine

import (
	"context"
	"sort"
	"time"

	"github.com/dipesh-m12/QVuew-Backend/internal/identity"
	"github.com/dipesh-m12/QVuew-Backend/internal/model"
	"github.com/dipesh-m12/QVuew-Backend/internal/store"
	"github.com/google/uuid"
)

// HelperQueueEntryView is one row of the helper-queue projection (spec
// §4.5), joined with the service's name/duration.
type HelperQueueEntryView struct {
	Entry           *model.QueueEntry
	ServiceName     string
	ServiceDuration int
}

// HelperQueueView is the helper-queue projection: entries ordered by
// (currentPosition asc, joiningTime asc), plus counts per status.
type HelperQueueView struct {
	Entries []HelperQueueEntryView
	Counts  map[model.EntryStatus]int
}

// HelperQueue returns a helper's live lane for [from, to] (spec §4.5).
func (e *Engine) HelperQueue(ctx context.Context, helperID string, from, to time.Time) (HelperQueueView, error) {
	tx := e.Store.Snapshot(ctx)
	entries, err := tx.ListHelperWindow(ctx, helperID, model.LiveStatuses, from, to)
	if err != nil {
		return HelperQueueView{}, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CurrentPosition != entries[j].CurrentPosition {
			return entries[i].CurrentPosition < entries[j].CurrentPosition
		}
		return entries[i].JoiningTime.Before(entries[j].JoiningTime)
	})

	view := HelperQueueView{Counts: make(map[model.EntryStatus]int)}
	serviceNames := make(map[string]*model.Service)
	for _, entry := range entries {
		svc, ok := serviceNames[entry.ServiceID]
		if !ok {
			svc, err = tx.GetService(ctx, entry.BusinessID, entry.ServiceID)
			if err != nil {
				return HelperQueueView{}, err
			}
			serviceNames[entry.ServiceID] = svc
		}
		view.Entries = append(view.Entries, HelperQueueEntryView{
			Entry:           entry,
			ServiceName:     svc.Name,
			ServiceDuration: svc.DurationMins,
		})
		view.Counts[entry.Status]++
	}
	return view, nil
}

// ServiceWait is one service's queue length and estimated wait for a
// helper.
type ServiceWait struct {
	ServiceID     string
	QueueLength   int
	EstimatedWait int
}

// HelperWait is one helper's per-service wait breakdown.
type HelperWait struct {
	HelperID string
	Waits    []ServiceWait
}

// HelperWaitTimesView is the full business helper-wait-times projection.
type HelperWaitTimesView struct {
	Helpers []HelperWait
}

// HelperWaitTimes computes, for each active helper and each service it
// supports, (queueLength, estimatedWait = queueLength*duration) (spec
// §4.5). Backed by the Redis cache-aside layer when configured.
func (e *Engine) HelperWaitTimes(ctx context.Context, businessID string) (HelperWaitTimesView, error) {
	if e.Cache != nil {
		var cached HelperWaitTimesView
		hit, err := e.Cache.GetWaitTimes(ctx, businessID, &cached)
		if err == nil && hit {
			return cached, nil
		}
	}

	tx := e.Store.Snapshot(ctx)
	business, err := tx.GetBusiness(ctx, businessID)
	if err != nil {
		return HelperWaitTimesView{}, err
	}
	services, err := tx.ListServices(ctx, businessID)
	if err != nil {
		return HelperWaitTimesView{}, err
	}

	view := HelperWaitTimesView{}
	for _, h := range business.ActiveHelpers() {
		lane, err := tx.ListLane(ctx, businessID, h.HelperID, model.LiveStatuses)
		if err != nil {
			return HelperWaitTimesView{}, err
		}
		hw := HelperWait{HelperID: h.HelperID}
		for _, svc := range services {
			if svc.Deleted || !h.Services[svc.ID] {
				continue
			}
			n := 0
			for _, entry := range lane {
				if entry.ServiceID == svc.ID {
					n++
				}
			}
			hw.Waits = append(hw.Waits, ServiceWait{
				ServiceID:     svc.ID,
				QueueLength:   n,
				EstimatedWait: n * svc.DurationMins,
			})
		}
		view.Helpers = append(view.Helpers, hw)
	}

	if e.Cache != nil {
		_ = e.Cache.SetWaitTimes(ctx, businessID, view)
	}
	return view, nil
}

// RecentAction is one vendor-sourced history event surfaced by the
// recent-helper-actions projection.
type RecentAction struct {
	EntryID string
	Action  model.ActionKind
	At      time.Time
}

// RecentHelperActions returns vendor-sourced history events within the
// undo window across a helper's live entries, excluding undo, sorted
// newest-first, limited to ≤10 (spec §4.5).
func (e *Engine) RecentHelperActions(ctx context.Context, helperID string, limit int) ([]RecentAction, error) {
	if limit <= 0 || limit > 10 {
		limit = 10
	}

	if e.Cache != nil {
		var cached []RecentAction
		hit, err := e.Cache.GetRecentActions(ctx, helperID, &cached)
		if err == nil && hit {
			if len(cached) > limit {
				cached = cached[:limit]
			}
			return cached, nil
		}
	}

	tx := e.Store.Snapshot(ctx)
	now := e.Clock.Now()
	entries, err := tx.ListHelperWindow(ctx, helperID, model.LiveStatuses, time.Time{}, now)
	if err != nil {
		return nil, err
	}

	var actions []RecentAction
	for _, entry := range entries {
		for _, ev := range entry.History {
			if ev.Source != model.SourceVendor || ev.Action == model.ActionUndo {
				continue
			}
			if now.Sub(ev.At) > e.UndoWindow {
				continue
			}
			actions = append(actions, RecentAction{EntryID: entry.ID, Action: ev.Action, At: ev.At})
		}
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i].At.After(actions[j].At) })
	if len(actions) > limit {
		actions = actions[:limit]
	}

	if e.Cache != nil {
		_ = e.Cache.SetRecentActions(ctx, helperID, actions)
	}
	return actions, nil
}

// UserQueueHistory returns every entry for a registered user's
// [from, to] window (spec §4.5).
func (e *Engine) UserQueueHistory(ctx context.Context, userID string, from, to time.Time) ([]*model.QueueEntry, error) {
	return e.Store.Snapshot(ctx).ListUserWindow(ctx, userID, from, to)
}

// BusinessQueueHistory returns every entry for a business's [from, to]
// window, optionally filtered to one helper (spec §4.5).
func (e *Engine) BusinessQueueHistory(ctx context.Context, businessID string, helperID string, from, to time.Time) ([]*model.QueueEntry, error) {
	if helperID != "" {
		return e.Store.Snapshot(ctx).ListHelperWindow(ctx, helperID, nil, from, to)
	}
	return e.Store.Snapshot(ctx).ListBusinessAllWindow(ctx, businessID, from, to)
}

// UpdateRating fills in a completed entry's rating and notes, the one
// mutation terminal entries still allow (spec §3, P4).
func (e *Engine) UpdateRating(ctx context.Context, entryID string, rating int, notes string, principal identity.Principal) (*model.QueueEntry, error) {
	if rating < 0 || rating > 5 {
		return nil, model.InvalidArgument(nil, "rating must be between 0 and 5")
	}

	var out *model.QueueEntry
	err := e.Store.WithTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		entry, err := tx.GetQueueEntry(ctx, entryID)
		if err != nil {
			if err == store.ErrNotFound {
				return model.NotFound(err, "queue entry %s not found", entryID)
			}
			return err
		}
		if principal.Role == identity.RoleCustomer &&
			(entry.UserRef.Kind != model.UserRefRegistered || entry.UserRef.UserID != principal.ID) {
			return model.Forbidden(nil, "customers may only rate their own entry")
		}
		if entry.Status != model.StatusCompleted {
			return model.FailedPrecondition(nil, "rating requires status=completed")
		}
		if entry.Rating != nil {
			return model.FailedPrecondition(nil, "entry already has a rating")
		}
		r := rating
		entry.Rating = &r
		entry.Notes = notes
		out = entry
		return tx.SaveQueueEntry(ctx, entry)
	})
	return out, err
}

// AddManualCustomer registers a walk-in customer (spec §3: "manual
// customers have no push channel").
func (e *Engine) AddManualCustomer(ctx context.Context, businessID, name, phone string, gender model.Gender) (*model.ManualCustomer, error) {
	if name == "" {
		return nil, model.InvalidArgument(nil, "name is required")
	}
	c := &model.ManualCustomer{
		ManualID:   uuid.NewString(),
		BusinessID: businessID,
		Name:       name,
		Phone:      phone,
		Gender:     gender,
	}
	err := e.Store.WithTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.SaveManualCustomer(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SearchManualCustomers looks up manual customers by name and/or phone
// within a business.
func (e *Engine) SearchManualCustomers(ctx context.Context, businessID, name, phone string) ([]*model.ManualCustomer, error) {
	return e.Store.Snapshot(ctx).FindManualCustomers(ctx, businessID, name, phone)
}
