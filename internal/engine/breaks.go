package engine

import (
	"context"

	"github.com/dipesh-m12/QVuew-Backend/internal/model"
	"github.com/dipesh-m12/QVuew-Backend/internal/notifier"
	"github.com/dipesh-m12/QVuew-Backend/internal/store"
)

// SetBreak pauses scheduling participation, either for the whole
// business (helperID == "") or for one helper, then triggers a
// restructure over [now, now+RestructureHorizon] (spec §4.4).
func (e *Engine) SetBreak(ctx context.Context, businessID string, helperID string) error {
	unlock := e.Mutex.Lock(businessID)

	var intents []notifier.Intent
	err := e.Store.WithTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		business, err := tx.GetBusiness(ctx, businessID)
		if err != nil {
			return err
		}
		now := e.Clock.Now()

		if helperID == "" {
			business.Active = false
			live, err := tx.ListBusinessWindow(ctx, businessID, model.LiveStatuses, now, now.Add(e.RestructureHorizon))
			if err != nil {
				return err
			}
			intents = e.buildBreakIntents(ctx, live, "Queue paused", "This business is temporarily closed. We'll notify you when the queue resumes.")
		} else {
			h := business.Helper(helperID)
			if h == nil {
				return model.NotFound(nil, "helper %s not found", helperID)
			}
			h.Active = false
			live, err := tx.ListHelperWindow(ctx, helperID, model.LiveStatuses, now, now.Add(e.RestructureHorizon))
			if err != nil {
				return err
			}
			intents = e.buildBreakIntents(ctx, live, "Helper unavailable", "Your helper has gone on break. Your spot will be reassigned shortly.")
		}
		return tx.SaveBusiness(ctx, business)
	})
	unlock()
	if err != nil {
		return err
	}

	if len(intents) > 0 {
		e.Notifier.Notify(ctx, intents)
	}

	now := e.Clock.Now()
	_, err = e.Restructure(ctx, businessID, now, now.Add(e.RestructureHorizon))
	return err
}

// ResumeBreak is SetBreak's inverse; it always restructures afterward
// (spec §4.4).
func (e *Engine) ResumeBreak(ctx context.Context, businessID string, helperID string) error {
	unlock := e.Mutex.Lock(businessID)
	err := e.Store.WithTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		business, err := tx.GetBusiness(ctx, businessID)
		if err != nil {
			return err
		}
		if helperID == "" {
			business.Active = true
		} else {
			h := business.Helper(helperID)
			if h == nil {
				return model.NotFound(nil, "helper %s not found", helperID)
			}
			h.Active = true
		}
		return tx.SaveBusiness(ctx, business)
	})
	unlock()
	if err != nil {
		return err
	}

	now := e.Clock.Now()
	_, err = e.Restructure(ctx, businessID, now, now.Add(e.RestructureHorizon))
	return err
}

func (e *Engine) buildBreakIntents(ctx context.Context, entries []*model.QueueEntry, title, body string) []notifier.Intent {
	var intents []notifier.Intent
	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.UserRef.Kind != model.UserRefRegistered || seen[entry.UserRef.UserID] {
			continue
		}
		u, err := e.Catalog.GetRegisteredUser(ctx, entry.UserRef.UserID)
		if err != nil || !u.ReceiveNotifications || u.PushToken == "" {
			continue
		}
		seen[entry.UserRef.UserID] = true
		intents = append(intents, notifier.Intent{
			UserID:    u.UserID,
			PushToken: u.PushToken,
			Title:     title,
			Body:      body,
			Data:      map[string]string{"type": "break"},
		})
	}
	return intents
}
