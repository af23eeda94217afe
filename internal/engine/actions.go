package engine

import (
	"context"
	"time"

	"github.com/dipesh-m12/QVuew-Backend/internal/identity"
	"github.com/dipesh-m12/QVuew-Backend/internal/model"
	"github.com/dipesh-m12/QVuew-Backend/internal/store"
)

// ActionRequest is the input to ApplyAction (spec §4.2).
type ActionRequest struct {
	EntryID   string
	Action    model.ActionKind
	AddedTime int // required for ActionAddTime
	Principal identity.Principal
}

// restructureTriggers are the actions that change lane membership or
// position and must be followed by a restructure (spec §4.2).
var restructureTriggers = map[model.ActionKind]bool{
	model.ActionSkip:    true,
	model.ActionHold:    true,
	model.ActionUnhold:  true,
	model.ActionRemove:  true,
	model.ActionNext:    true,
	model.ActionAddTime: true,
	model.ActionUndo:    true,
}

// ApplyAction transitions one queue entry's state (skip/hold/unhold/
// remove/next/add_time/undo), enforcing authorization first and then the
// action's preconditions, all inside one transaction scoped to the
// entry's business. A triggering action is followed by an in-process
// restructure call over [now, now+RestructureHorizon] once the
// transaction commits (spec §9: "never a re-entrant network hop").
func (e *Engine) ApplyAction(ctx context.Context, req ActionRequest) (*model.QueueEntry, error) {
	if req.Action == model.ActionAddTime && req.AddedTime <= 0 {
		return nil, model.InvalidArgument(nil, "addedTime must be > 0")
	}

	var businessID string
	var result *model.QueueEntry
	var didTrigger bool

	for attempt := 0; attempt < 3; attempt++ {
		entry, err := e.Store.Snapshot(ctx).GetQueueEntry(ctx, req.EntryID)
		if err != nil {
			if err == store.ErrNotFound {
				return nil, model.NotFound(err, "queue entry %s not found", req.EntryID)
			}
			return nil, err
		}
		businessID = entry.BusinessID

		unlock := e.Mutex.Lock(businessID)
		result, didTrigger, err = e.applyActionLocked(ctx, req)
		unlock()

		if err == nil {
			break
		}
		if model.KindOf(err) != model.KindConflict {
			return nil, err
		}
		if e.EngineMetrics != nil {
			e.EngineMetrics.ConflictRetries.Inc()
		}
	}
	if result == nil {
		return nil, model.Conflict("could not apply action after retries")
	}
	e.invalidateHelperProjections(ctx, result.HelperID)

	if didTrigger {
		horizon := e.Clock.Now()
		if _, rerr := e.Restructure(ctx, businessID, horizon, horizon.Add(e.RestructureHorizon)); rerr != nil {
			return result, rerr
		}
	}
	return result, nil
}

func (e *Engine) applyActionLocked(ctx context.Context, req ActionRequest) (*model.QueueEntry, bool, error) {
	var out *model.QueueEntry
	err := e.Store.WithTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		entry, err := tx.GetQueueEntry(ctx, req.EntryID)
		if err != nil {
			if err == store.ErrNotFound {
				return model.NotFound(err, "queue entry %s not found", req.EntryID)
			}
			return err
		}
		business, err := tx.GetBusiness(ctx, entry.BusinessID)
		if err != nil {
			return err
		}
		if err := authorize(business, entry, req); err != nil {
			return err
		}

		now := e.Clock.Now()
		source := sourceFor(req.Principal)
		var apply func() error
		switch req.Action {
		case model.ActionSkip:
			apply = func() error { return e.doSkip(ctx, tx, entry, now, source) }
		case model.ActionHold:
			apply = func() error { return e.doHold(entry, now, source) }
		case model.ActionUnhold:
			apply = func() error { return e.doUnhold(entry, now, source) }
		case model.ActionRemove:
			apply = func() error { return e.doRemove(entry, now, source) }
		case model.ActionNext:
			apply = func() error { return e.doNext(entry, now, source) }
		case model.ActionAddTime:
			apply = func() error { return e.doAddTime(entry, now, req.AddedTime, source) }
		case model.ActionUndo:
			apply = func() error { return e.doUndo(ctx, tx, entry, now, req.Principal) }
		default:
			return model.InvalidArgument(nil, "unknown action %q", req.Action)
		}
		if err := apply(); err != nil {
			return err
		}
		if err := tx.SaveQueueEntry(ctx, entry); err != nil {
			return err
		}
		out = entry
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, restructureTriggers[req.Action], nil
}

// sourceFor derives a HistoryEvent's source from the acting principal: a
// customer's own action is user-sourced, an owner or helper's is
// vendor-sourced. Only user-sourced events are excluded from undo and
// from RecentHelperActions (spec §4.2, §4.5).
func sourceFor(principal identity.Principal) model.ActionSource {
	if principal.Role == identity.RoleCustomer {
		return model.SourceUser
	}
	return model.SourceVendor
}

// authorize enforces spec §4.2's rule: a registered-user principal may
// only apply remove, and only to their own entry; an owner or an
// accepted∧active helper of the entry's business may apply any action.
func authorize(business *model.Business, entry *model.QueueEntry, req ActionRequest) error {
	switch req.Principal.Role {
	case identity.RoleOwnerOrHelper:
		if !business.OwnedOrHelpedBy(req.Principal.ID) {
			return model.Forbidden(nil, "principal %s is not an owner or active helper of business %s", req.Principal.ID, business.ID)
		}
		return nil
	case identity.RoleCustomer:
		if req.Action != model.ActionRemove && req.Action != model.ActionUndo {
			return model.Forbidden(nil, "customers may only remove their own entry")
		}
		if req.Action == model.ActionUndo {
			return model.Forbidden(nil, "only a vendor principal may undo")
		}
		if entry.UserRef.Kind != model.UserRefRegistered || entry.UserRef.UserID != req.Principal.ID {
			return model.Forbidden(nil, "customers may only mutate their own entry")
		}
		return nil
	default:
		return model.Unauthorized(nil, "unknown principal role")
	}
}

func (e *Engine) doSkip(ctx context.Context, tx store.Tx, entry *model.QueueEntry, now time.Time, source model.ActionSource) error {
	if entry.Status != model.StatusInQueue {
		return model.FailedPrecondition(nil, "skip requires status=in_queue")
	}
	lane, err := tx.ListLane(ctx, entry.BusinessID, entry.HelperID, model.LiveStatuses)
	if err != nil {
		return err
	}
	var next *model.QueueEntry
	for _, other := range lane {
		if other.ID == entry.ID || other.Status != model.StatusInQueue {
			continue
		}
		if other.CurrentPosition <= entry.CurrentPosition {
			continue
		}
		if next == nil || other.CurrentPosition < next.CurrentPosition {
			next = other
		}
	}
	if next == nil {
		return model.FailedPrecondition(nil, "no successor entry to skip past")
	}

	entrySvc, err := tx.GetService(ctx, entry.BusinessID, entry.ServiceID)
	if err != nil {
		return err
	}
	nextSvc, err := tx.GetService(ctx, entry.BusinessID, next.ServiceID)
	if err != nil {
		return err
	}

	prevEntryPos, prevNextPos := entry.CurrentPosition, next.CurrentPosition
	entry.CurrentPosition, next.CurrentPosition = prevNextPos, prevEntryPos
	entry.EstWaitMins, entry.EstServiceStartTime = recomputeETA(now, entry.CurrentPosition, entrySvc.DurationMins, entry.AddedTimeMins)
	next.EstWaitMins, next.EstServiceStartTime = recomputeETA(now, next.CurrentPosition, nextSvc.DurationMins, next.AddedTimeMins)

	p1, p2 := prevEntryPos, entry.CurrentPosition
	entry.History = append(entry.History, model.HistoryEvent{
		Action: model.ActionSkip, Source: source, At: now,
		PrevPosition: &p1, NewPosition: &p2,
	})
	q1, q2 := prevNextPos, next.CurrentPosition
	next.History = append(next.History, model.HistoryEvent{
		Action: model.ActionSkip, Source: source, At: now,
		PrevPosition: &q1, NewPosition: &q2,
	})
	return tx.SaveQueueEntry(ctx, next)
}

func (e *Engine) doHold(entry *model.QueueEntry, now time.Time, source model.ActionSource) error {
	if entry.Status != model.StatusInQueue {
		return model.FailedPrecondition(nil, "hold requires status=in_queue")
	}
	entry.Status = model.StatusHold
	entry.History = append(entry.History, model.HistoryEvent{
		Action: model.ActionHold, Source: source, At: now,
	})
	return nil
}

func (e *Engine) doUnhold(entry *model.QueueEntry, now time.Time, source model.ActionSource) error {
	if entry.Status != model.StatusHold {
		return model.FailedPrecondition(nil, "unhold requires status=hold")
	}
	entry.Status = model.StatusInQueue
	entry.History = append(entry.History, model.HistoryEvent{
		Action: model.ActionUnhold, Source: source, At: now,
	})
	return nil
}

func (e *Engine) doRemove(entry *model.QueueEntry, now time.Time, source model.ActionSource) error {
	if entry.Status.IsTerminal() {
		return model.FailedPrecondition(nil, "entry is already terminal")
	}
	entry.Status = model.StatusRemoved
	entry.History = append(entry.History, model.HistoryEvent{
		Action: model.ActionRemove, Source: source, At: now,
	})
	return nil
}

func (e *Engine) doNext(entry *model.QueueEntry, now time.Time, source model.ActionSource) error {
	if entry.Status != model.StatusInQueue || entry.CurrentPosition != 1 {
		return model.FailedPrecondition(nil, "next requires status=in_queue at position 1")
	}
	entry.Status = model.StatusCompleted
	entry.History = append(entry.History, model.HistoryEvent{
		Action: model.ActionNext, Source: source, At: now,
	})
	return nil
}

func (e *Engine) doAddTime(entry *model.QueueEntry, now time.Time, addedTime int, source model.ActionSource) error {
	switch entry.Status {
	case model.StatusInQueue, model.StatusHold, model.StatusSkipped:
	default:
		return model.FailedPrecondition(nil, "add_time requires status in {in_queue, hold, skipped}")
	}
	entry.AddedTimeMins += addedTime
	entry.EstWaitMins += addedTime
	entry.EstServiceStartTime = entry.EstServiceStartTime.Add(time.Duration(addedTime) * time.Minute)
	at := addedTime
	entry.History = append(entry.History, model.HistoryEvent{
		Action: model.ActionAddTime, Source: source, At: now, AddedTime: &at,
	})
	return nil
}
