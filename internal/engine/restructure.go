package engine

import (
	"context"
	"sort"
	"time"

	"github.com/dipesh-m12/QVuew-Backend/internal/model"
	"github.com/dipesh-m12/QVuew-Backend/internal/notifier"
	"github.com/dipesh-m12/QVuew-Backend/internal/store"
)

// RestructureResult is the summary returned to callers and exposed over
// the restructure endpoint (spec §6).
type RestructureResult struct {
	UpdatedCount      int `json:"updatedCount"`
	NotificationsSent int `json:"notificationsSent"`
	ActiveHelpers     int `json:"activeHelpers"`
	TotalQueues       int `json:"totalQueues"`
}

// entryClass is a restructure-local classification of one entry (spec
// §4.3 step 4).
type entryClass int

const (
	classHead entryClass = iota
	classSpecific
	classHold
	classFlexible
)

// Restructure is the FCFS balancer (spec §4.3): it reassigns and
// repositions every live entry in [from, to] across the business's
// active helpers, in one transaction, and is idempotent (P6).
func (e *Engine) Restructure(ctx context.Context, businessID string, from, to time.Time) (RestructureResult, error) {
	unlock := e.Mutex.Lock(businessID)
	defer unlock()

	var result RestructureResult
	var intents []notifier.Intent

	err := e.Store.WithTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		business, err := tx.GetBusiness(ctx, businessID)
		if err != nil {
			return err
		}

		// Step 1 — Gate.
		if !business.Active {
			return nil
		}
		activeHelpers := business.ActiveHelpers()
		result.ActiveHelpers = len(activeHelpers)
		if len(activeHelpers) == 0 {
			live, err := tx.ListBusinessWindow(ctx, businessID, model.LiveStatuses, from, to)
			if err != nil {
				return err
			}
			for _, entry := range live {
				if in := e.pauseIntent(ctx, tx, entry); in != nil {
					intents = append(intents, *in)
				}
			}
			return nil
		}

		// Step 2 — Partition by service, FCFS order.
		live, err := tx.ListBusinessWindow(ctx, businessID, model.LiveStatuses, from, to)
		if err != nil {
			return err
		}
		byService := make(map[string][]*model.QueueEntry)
		for _, entry := range live {
			byService[entry.ServiceID] = append(byService[entry.ServiceID], entry)
		}

		now := e.Clock.Now()
		var changed []*model.QueueEntry
		result.TotalQueues = len(live)

		for serviceID, group := range byService {
			svc, err := tx.GetService(ctx, businessID, serviceID)
			if err != nil {
				return err
			}

			// Step 3 — capable helpers for this service.
			capable := make([]model.Helper, 0)
			for _, h := range activeHelpers {
				if h.Capable(serviceID) {
					capable = append(capable, h)
				}
			}
			if len(capable) == 0 {
				continue
			}
			sort.Slice(capable, func(i, j int) bool { return capable[i].HelperID < capable[j].HelperID })

			buckets := make(map[string][]*model.QueueEntry, len(capable))
			for _, h := range capable {
				buckets[h.HelperID] = nil
			}
			capableSet := make(map[string]bool, len(capable))
			for _, h := range capable {
				capableSet[h.HelperID] = true
			}

			// Step 4 — classify.
			var heads, specifics, holds, flexibles []*model.QueueEntry
			for _, entry := range group {
				switch {
				case entry.CurrentPosition == 1 && entry.Status == model.StatusInQueue:
					heads = append(heads, entry)
				case entry.Preference == model.PreferenceSpecific && capableSet[entry.HelperID]:
					specifics = append(specifics, entry)
				case entry.Status == model.StatusHold:
					holds = append(holds, entry)
				default:
					flexibles = append(flexibles, entry)
				}
			}

			firstCapable := capable[0].HelperID

			// Step 5 — seed buckets.
			for _, entry := range heads {
				target := entry.HelperID
				if !capableSet[target] {
					target = firstCapable
				}
				buckets[target] = append(buckets[target], entry)
			}
			for _, entry := range specifics {
				buckets[entry.HelperID] = append(buckets[entry.HelperID], entry)
			}
			for _, entry := range holds {
				target := entry.HelperID
				if !capableSet[target] {
					target = firstCapable
				}
				buckets[target] = append(buckets[target], entry)
			}
			sort.SliceStable(flexibles, func(i, j int) bool {
				return flexibles[i].JoiningTime.Before(flexibles[j].JoiningTime)
			})
			for _, entry := range flexibles {
				target := smallestBucket(buckets, capable)
				buckets[target] = append(buckets[target], entry)
			}

			// Step 6 — order within bucket and assign positions. Entries
			// that keep their current helper retain their relative order
			// (so a prior skip/hold is not undone by the very restructure
			// it triggers); entries migrating in from another helper are
			// merged in FCFS joiningTime order.
			for _, h := range capable {
				bucket := buckets[h.HelperID]
				sort.SliceStable(bucket, func(i, j int) bool {
					iHead := bucket[i].CurrentPosition == 1 && bucket[i].Status == model.StatusInQueue
					jHead := bucket[j].CurrentPosition == 1 && bucket[j].Status == model.StatusInQueue
					if iHead != jHead {
						return iHead
					}
					iStay := bucket[i].HelperID == h.HelperID
					jStay := bucket[j].HelperID == h.HelperID
					if iStay != jStay {
						return iStay
					}
					if iStay {
						return bucket[i].CurrentPosition < bucket[j].CurrentPosition
					}
					return bucket[i].JoiningTime.Before(bucket[j].JoiningTime)
				})

				for i, entry := range bucket {
					newPos := i + 1
					newWait, newStart := recomputeETA(now, newPos, svc.DurationMins, entry.AddedTimeMins)

					oldPos, oldHelper, oldWait := entry.CurrentPosition, entry.HelperID, entry.EstWaitMins
					helperChanged := oldHelper != h.HelperID

					// Step 7 — only write/append history if something changed.
					if oldPos == newPos && !helperChanged && oldWait == newWait {
						continue
					}

					entry.CurrentPosition = newPos
					entry.HelperID = h.HelperID
					entry.EstWaitMins = newWait
					entry.EstServiceStartTime = newStart

					op, np := oldPos, newPos
					ev := model.HistoryEvent{
						Action: model.ActionEdit, Source: model.SourceVendor, At: now,
						PrevPosition: &op, NewPosition: &np, EstWait: &newWait,
					}
					if helperChanged {
						ev.NewlyAssignedHelperID = h.HelperID
					}
					entry.History = append(entry.History, ev)
					changed = append(changed, entry)

					if materialChange(oldPos, newPos, oldHelper, h.HelperID, oldWait, newWait, e.MaterialWaitDelta) {
						if in := e.materialChangeIntent(ctx, tx, entry, oldPos, newPos, oldHelper != h.HelperID); in != nil {
							intents = append(intents, *in)
						}
					}
				}
			}
		}

		for _, entry := range changed {
			if err := tx.SaveQueueEntry(ctx, entry); err != nil {
				return err
			}
		}
		result.UpdatedCount = len(changed)
		return nil
	})
	if err != nil {
		return RestructureResult{}, err
	}

	if len(intents) > 0 {
		e.Notifier.Notify(ctx, intents)
		result.NotificationsSent = len(intents)
	}
	e.invalidateProjections(ctx, businessID)
	return result, nil
}

func smallestBucket(buckets map[string][]*model.QueueEntry, capable []model.Helper) string {
	best := capable[0].HelperID
	bestLen := len(buckets[best])
	for _, h := range capable[1:] {
		if l := len(buckets[h.HelperID]); l < bestLen {
			bestLen = l
			best = h.HelperID
		}
	}
	return best
}

// materialChange implements the GLOSSARY definition: a position change,
// helper change, or an ETA delta at or above the configured threshold.
func materialChange(oldPos, newPos int, oldHelper, newHelper string, oldWait, newWait, thresholdMins int) bool {
	if oldPos != newPos || oldHelper != newHelper {
		return true
	}
	delta := oldWait - newWait
	if delta < 0 {
		delta = -delta
	}
	return delta >= thresholdMins
}

// materialChangeIntent builds the notification spec §4.3 step 8
// describes, for normal (registered) users only.
func (e *Engine) materialChangeIntent(ctx context.Context, tx store.Tx, entry *model.QueueEntry, oldPos, newPos int, helperChanged bool) *notifier.Intent {
	if entry.UserRef.Kind != model.UserRefRegistered {
		return nil
	}
	u, err := e.Catalog.GetRegisteredUser(ctx, entry.UserRef.UserID)
	if err != nil || !u.ReceiveNotifications || u.PushToken == "" {
		return nil
	}
	var body string
	if entry.Status == model.StatusHold {
		body = holdBody(newPos, entry.EstWaitMins)
	} else {
		body = positionBody(oldPos, newPos, entry.EstWaitMins, helperChanged)
	}
	return &notifier.Intent{
		UserID:    u.UserID,
		PushToken: u.PushToken,
		Title:     "Queue update",
		Body:      body,
		Data:      map[string]string{"type": "queue_update", "entryId": entry.ID},
	}
}

// pauseIntent builds the "queue paused" notification sent when a
// business has no active helpers left (spec §4.3 step 1).
func (e *Engine) pauseIntent(ctx context.Context, tx store.Tx, entry *model.QueueEntry) *notifier.Intent {
	if entry.UserRef.Kind != model.UserRefRegistered {
		return nil
	}
	u, err := e.Catalog.GetRegisteredUser(ctx, entry.UserRef.UserID)
	if err != nil || !u.ReceiveNotifications || u.PushToken == "" {
		return nil
	}
	return &notifier.Intent{
		UserID:    u.UserID,
		PushToken: u.PushToken,
		Title:     "Queue paused",
		Body:      "The queue is temporarily paused. We'll notify you when it resumes.",
		Data:      map[string]string{"type": "queue_paused", "entryId": entry.ID},
	}
}
