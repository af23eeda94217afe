package engine

import (
	"context"
	"time"

	"github.com/dipesh-m12/QVuew-Backend/internal/identity"
	"github.com/dipesh-m12/QVuew-Backend/internal/model"
	"github.com/dipesh-m12/QVuew-Backend/internal/store"
)

// doUndo inverts the most recent vendor-sourced, undoable history event
// on entry, provided it falls within the undo window (spec §4.2).
func (e *Engine) doUndo(ctx context.Context, tx store.Tx, entry *model.QueueEntry, now time.Time, principal identity.Principal) error {
	last, ok := entry.LastVendorEvent()
	if !ok {
		return model.FailedPrecondition(nil, "no undoable action on this entry")
	}
	if now.Sub(last.At) > e.UndoWindow {
		return model.InvalidArgument(nil, "undo window has elapsed")
	}

	switch last.Action {
	case model.ActionSkip:
		if err := e.undoSkip(ctx, tx, entry, last, now); err != nil {
			return err
		}
	case model.ActionHold:
		entry.Status = model.StatusInQueue
	case model.ActionUnhold:
		entry.Status = model.StatusHold
	case model.ActionRemove:
		entry.Status = model.StatusInQueue
	case model.ActionNext:
		entry.Status = model.StatusInQueue
	case model.ActionAddTime:
		if last.AddedTime != nil {
			entry.AddedTimeMins -= *last.AddedTime
			entry.EstWaitMins -= *last.AddedTime
			entry.EstServiceStartTime = entry.EstServiceStartTime.Add(-time.Duration(*last.AddedTime) * time.Minute)
		}
	default:
		return model.FailedPrecondition(nil, "action %q is not undoable", last.Action)
	}

	entry.History = append(entry.History, model.HistoryEvent{
		Action: model.ActionUndo, Source: model.SourceVendor, At: now,
	})
	return nil
}

// undoSkip swaps entry back to its pre-skip position with the
// counterpart entry that still holds it, if that entry still exists in
// the lane at the recorded position (spec §4.2: "only if the
// counterpart entry still exists in the lane with the recorded
// position").
func (e *Engine) undoSkip(ctx context.Context, tx store.Tx, entry *model.QueueEntry, last model.HistoryEvent, now time.Time) error {
	if last.PrevPosition == nil {
		return nil
	}
	lane, err := tx.ListLane(ctx, entry.BusinessID, entry.HelperID, model.LiveStatuses)
	if err != nil {
		return err
	}
	var counterpart *model.QueueEntry
	for _, other := range lane {
		if other.ID != entry.ID && other.CurrentPosition == *last.PrevPosition {
			counterpart = other
			break
		}
	}
	if counterpart == nil {
		return nil
	}

	entrySvc, err := tx.GetService(ctx, entry.BusinessID, entry.ServiceID)
	if err != nil {
		return err
	}
	cpSvc, err := tx.GetService(ctx, entry.BusinessID, counterpart.ServiceID)
	if err != nil {
		return err
	}

	entry.CurrentPosition, counterpart.CurrentPosition = counterpart.CurrentPosition, entry.CurrentPosition
	entry.EstWaitMins, entry.EstServiceStartTime = recomputeETA(now, entry.CurrentPosition, entrySvc.DurationMins, entry.AddedTimeMins)
	counterpart.EstWaitMins, counterpart.EstServiceStartTime = recomputeETA(now, counterpart.CurrentPosition, cpSvc.DurationMins, counterpart.AddedTimeMins)

	counterpart.History = append(counterpart.History, model.HistoryEvent{
		Action: model.ActionUndo, Source: model.SourceVendor, At: now,
	})
	return tx.SaveQueueEntry(ctx, counterpart)
}
