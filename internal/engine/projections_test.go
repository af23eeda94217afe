package engine

import (
	"context"
	"testing"
	"time"

	"github.com/dipesh-m12/QVuew-Backend/internal/identity"
	"github.com/dipesh-m12/QVuew-Backend/internal/model"
)

func TestHelperQueue_OrderedByPosition(t *testing.T) {
	h := newHarness(t)
	seedBusiness(h, "biz1", "owner1", "H1")
	seedService(h, "biz1", "haircut", 30)
	enqueueN(t, h, 3)

	ctx := context.Background()
	from, to := windowAround(h.clk)
	view, err := h.engine.HelperQueue(ctx, "H1", from, to)
	if err != nil {
		t.Fatalf("HelperQueue failed: %v", err)
	}
	if len(view.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(view.Entries))
	}
	for i, row := range view.Entries {
		if row.Entry.CurrentPosition != i+1 {
			t.Errorf("row %d: position=%d, want %d", i, row.Entry.CurrentPosition, i+1)
		}
		if row.ServiceName != "haircut" || row.ServiceDuration != 30 {
			t.Errorf("row %d: service join missing, got name=%s duration=%d", i, row.ServiceName, row.ServiceDuration)
		}
	}
	if view.Counts[model.StatusInQueue] != 3 {
		t.Errorf("expected 3 in_queue counted, got %d", view.Counts[model.StatusInQueue])
	}
}

func TestHelperWaitTimes_PerServiceQueueLength(t *testing.T) {
	h := newHarness(t)
	seedBusiness(h, "biz1", "owner1", "H1")
	seedService(h, "biz1", "haircut", 30)
	enqueueN(t, h, 2)

	view, err := h.engine.HelperWaitTimes(context.Background(), "biz1")
	if err != nil {
		t.Fatalf("HelperWaitTimes failed: %v", err)
	}
	if len(view.Helpers) != 1 {
		t.Fatalf("expected 1 helper, got %d", len(view.Helpers))
	}
	hw := view.Helpers[0]
	if hw.HelperID != "H1" || len(hw.Waits) != 1 {
		t.Fatalf("unexpected helper wait view: %+v", hw)
	}
	if hw.Waits[0].QueueLength != 2 || hw.Waits[0].EstimatedWait != 60 {
		t.Errorf("expected queueLength=2 estimatedWait=60, got %+v", hw.Waits[0])
	}
}

func TestRecentHelperActions_ExcludesUndoAndRespectsWindow(t *testing.T) {
	h := newHarness(t)
	seedBusiness(h, "biz1", "owner1", "H1")
	seedService(h, "biz1", "haircut", 30)
	entries := enqueueN(t, h, 2)

	ctx := context.Background()
	if _, err := h.engine.ApplyAction(ctx, ActionRequest{
		EntryID:   entries[0].ID,
		Action:    model.ActionHold,
		Principal: vendorPrincipal("owner1"),
	}); err != nil {
		t.Fatalf("hold failed: %v", err)
	}

	actions, err := h.engine.RecentHelperActions(ctx, "H1", 10)
	if err != nil {
		t.Fatalf("RecentHelperActions failed: %v", err)
	}
	foundHold := false
	for _, a := range actions {
		if a.Action == model.ActionUndo {
			t.Errorf("undo actions must never appear in recent actions, got %+v", a)
		}
		if a.EntryID == entries[0].ID && a.Action == model.ActionHold {
			foundHold = true
		}
	}
	if !foundHold {
		t.Error("expected the hold event to appear in recent actions")
	}

	h.clk.Advance(h.engine.UndoWindow + time.Minute)
	actions, err = h.engine.RecentHelperActions(ctx, "H1", 10)
	if err != nil {
		t.Fatalf("RecentHelperActions (after window) failed: %v", err)
	}
	for _, a := range actions {
		if a.EntryID == entries[0].ID && a.Action == model.ActionHold {
			t.Error("hold event should have aged out of the undo window")
		}
	}
}

func TestUpdateRating_RequiresCompletedAndBoundedRating(t *testing.T) {
	h := newHarness(t)
	seedBusiness(h, "biz1", "owner1", "H1")
	seedService(h, "biz1", "haircut", 30)
	entries := enqueueN(t, h, 1)

	ctx := context.Background()
	if _, err := h.engine.UpdateRating(ctx, entries[0].ID, 4, "great cut", vendorPrincipal("owner1")); model.KindOf(err) != model.KindFailedPrecondition {
		t.Fatalf("expected FailedPrecondition rating a non-completed entry, got %v", err)
	}

	if _, err := h.engine.ApplyAction(ctx, ActionRequest{
		EntryID:   entries[0].ID,
		Action:    model.ActionNext,
		Principal: vendorPrincipal("owner1"),
	}); err != nil {
		t.Fatalf("next failed: %v", err)
	}

	if _, err := h.engine.UpdateRating(ctx, entries[0].ID, 7, "", vendorPrincipal("owner1")); model.KindOf(err) != model.KindInvalidArgument {
		t.Fatalf("expected InvalidArgument for an out-of-range rating, got %v", err)
	}

	rated, err := h.engine.UpdateRating(ctx, entries[0].ID, 4, "great cut", vendorPrincipal("owner1"))
	if err != nil {
		t.Fatalf("UpdateRating failed: %v", err)
	}
	if rated.Rating == nil || *rated.Rating != 4 {
		t.Errorf("expected rating=4, got %+v", rated.Rating)
	}

	if _, err := h.engine.UpdateRating(ctx, entries[0].ID, 3, "", vendorPrincipal("owner1")); model.KindOf(err) != model.KindFailedPrecondition {
		t.Errorf("expected FailedPrecondition re-rating an already-rated entry, got %v", err)
	}
}

func TestAddManualCustomer_AndSearch(t *testing.T) {
	h := newHarness(t)
	seedBusiness(h, "biz1", "owner1", "H1")

	ctx := context.Background()
	created, err := h.engine.AddManualCustomer(ctx, "biz1", "Jane Doe", "555-0100", model.GenderFemale)
	if err != nil {
		t.Fatalf("AddManualCustomer failed: %v", err)
	}
	if created.ManualID == "" {
		t.Fatal("expected a generated manual customer id")
	}

	if _, err := h.engine.AddManualCustomer(ctx, "biz1", "", "", model.GenderFemale); model.KindOf(err) != model.KindInvalidArgument {
		t.Fatalf("expected InvalidArgument for an empty name, got %v", err)
	}

	found, err := h.engine.SearchManualCustomers(ctx, "biz1", "Jane Doe", "")
	if err != nil {
		t.Fatalf("SearchManualCustomers failed: %v", err)
	}
	if len(found) != 1 || found[0].ManualID != created.ManualID {
		t.Fatalf("expected to find the seeded manual customer, got %+v", found)
	}
}

func TestUserQueueHistory_CoversAllStatuses(t *testing.T) {
	h := newHarness(t)
	seedBusiness(h, "biz1", "owner1", "H1")
	seedService(h, "biz1", "haircut", 30)

	ctx := context.Background()
	seedUser(h, "customer1")
	created, err := h.engine.Enqueue(ctx, EnqueueRequest{
		BusinessID: "biz1",
		Principal:  customerPrincipal("customer1"),
		UserType:   "normal",
		Items:      []LineItem{{ServiceID: "haircut", Preference: model.PreferenceSpecific, HelperID: "H1"}},
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if _, err := h.engine.ApplyAction(ctx, ActionRequest{
		EntryID:   created[0].ID,
		Action:    model.ActionRemove,
		Principal: identity.Principal{ID: "customer1", Role: identity.RoleCustomer},
	}); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	from, to := windowAround(h.clk)
	history, err := h.engine.UserQueueHistory(ctx, "customer1", from, to)
	if err != nil {
		t.Fatalf("UserQueueHistory failed: %v", err)
	}
	if len(history) != 1 || history[0].Status != model.StatusRemoved {
		t.Fatalf("expected the removed entry to remain visible in history, got %+v", history)
	}
}
