package engine

import (
	"context"
	"testing"
	"time"

	"github.com/dipesh-m12/QVuew-Backend/internal/identity"
	"github.com/dipesh-m12/QVuew-Backend/internal/model"
)

// enqueueN seeds n in_queue entries against a single helper lane, in
// joining order, all SPECIFIC so restructure never reshuffles them.
func enqueueN(t *testing.T, h *testHarness, n int) []*model.QueueEntry {
	t.Helper()
	ctx := context.Background()
	var out []*model.QueueEntry
	for i := 0; i < n; i++ {
		userID := "customer" + string(rune('A'+i))
		seedUser(h, userID)
		entries, err := h.engine.Enqueue(ctx, EnqueueRequest{
			BusinessID: "biz1",
			Principal:  customerPrincipal(userID),
			UserType:   "normal",
			Items: []LineItem{
				{ServiceID: "haircut", Preference: model.PreferenceSpecific, HelperID: "H1"},
			},
		})
		if err != nil {
			t.Fatalf("enqueue %d failed: %v", i, err)
		}
		out = append(out, entries[0])
	}
	return out
}

// Scenario 2: skipping position 2 in a 5-entry lane swaps it with its
// successor, recomputes both ETAs, and undo within the window restores
// the original ordering.
func TestApplyAction_SkipAndUndo(t *testing.T) {
	h := newHarness(t)
	seedBusiness(h, "biz1", "owner1", "H1")
	seedService(h, "biz1", "haircut", 30)
	entries := enqueueN(t, h, 5)

	ctx := context.Background()
	target := entries[1] // position 2

	updated, err := h.engine.ApplyAction(ctx, ActionRequest{
		EntryID:   target.ID,
		Action:    model.ActionSkip,
		Principal: vendorPrincipal("owner1"),
	})
	if err != nil {
		t.Fatalf("skip failed: %v", err)
	}
	if updated.CurrentPosition != 3 {
		t.Fatalf("skipped entry: position=%d, want 3", updated.CurrentPosition)
	}

	snap := h.mem.Snapshot(ctx)
	successor, err := snap.GetQueueEntry(ctx, entries[2].ID)
	if err != nil {
		t.Fatalf("lookup successor: %v", err)
	}
	if successor.CurrentPosition != 2 {
		t.Fatalf("successor: position=%d, want 2", successor.CurrentPosition)
	}
	if updated.EstWaitMins != 60 { // position 3: (3-1)*30
		t.Errorf("skipped entry estWait=%d, want 60", updated.EstWaitMins)
	}
	if successor.EstWaitMins != 30 { // position 2: (2-1)*30
		t.Errorf("successor estWait=%d, want 30", successor.EstWaitMins)
	}

	h.clk.Advance(1 * time.Minute)
	_, err = h.engine.ApplyAction(ctx, ActionRequest{
		EntryID:   target.ID,
		Action:    model.ActionUndo,
		Principal: vendorPrincipal("owner1"),
	})
	if err != nil {
		t.Fatalf("undo failed: %v", err)
	}

	snap = h.mem.Snapshot(ctx)
	restored, _ := snap.GetQueueEntry(ctx, target.ID)
	restoredSuccessor, _ := snap.GetQueueEntry(ctx, entries[2].ID)
	if restored.CurrentPosition != 2 {
		t.Errorf("after undo, target position=%d, want 2", restored.CurrentPosition)
	}
	if restoredSuccessor.CurrentPosition != 3 {
		t.Errorf("after undo, successor position=%d, want 3", restoredSuccessor.CurrentPosition)
	}
}

// P7: a customer principal may only remove their own entry.
func TestApplyAction_CustomerAuthorization(t *testing.T) {
	h := newHarness(t)
	seedBusiness(h, "biz1", "owner1", "H1")
	seedService(h, "biz1", "haircut", 30)
	entries := enqueueN(t, h, 2)

	ctx := context.Background()
	own := entries[0]
	other := entries[1]

	ownerOfOwn, _ := h.mem.Snapshot(ctx).GetQueueEntry(ctx, own.ID)
	customerID := ownerOfOwn.UserRef.UserID

	if _, err := h.engine.ApplyAction(ctx, ActionRequest{
		EntryID:   own.ID,
		Action:    model.ActionHold,
		Principal: customerPrincipal(customerID),
	}); model.KindOf(err) != model.KindForbidden {
		t.Errorf("expected Forbidden for customer hold, got %v", err)
	}

	if _, err := h.engine.ApplyAction(ctx, ActionRequest{
		EntryID:   other.ID,
		Action:    model.ActionRemove,
		Principal: customerPrincipal(customerID),
	}); model.KindOf(err) != model.KindForbidden {
		t.Errorf("expected Forbidden removing someone else's entry, got %v", err)
	}

	removed, err := h.engine.ApplyAction(ctx, ActionRequest{
		EntryID:   own.ID,
		Action:    model.ActionRemove,
		Principal: customerPrincipal(customerID),
	})
	if err != nil {
		t.Errorf("expected customer to remove their own entry, got %v", err)
	}
	last := removed.History[len(removed.History)-1]
	if last.Source != model.SourceUser {
		t.Errorf("customer-initiated remove recorded as source=%s, want %s", last.Source, model.SourceUser)
	}
}

// A customer removing their own entry records a user-sourced event, and
// a vendor's undo must not revive it (spec §4.2: user-sourced actions
// are not undoable).
func TestApplyAction_VendorCannotUndoCustomerRemove(t *testing.T) {
	h := newHarness(t)
	seedBusiness(h, "biz1", "owner1", "H1")
	seedService(h, "biz1", "haircut", 30)
	entries := enqueueN(t, h, 2)

	ctx := context.Background()
	removed, err := h.engine.ApplyAction(ctx, ActionRequest{
		EntryID:   entries[0].ID,
		Action:    model.ActionRemove,
		Principal: customerPrincipal("customerA"),
	})
	if err != nil {
		t.Fatalf("customer remove failed: %v", err)
	}
	if last := removed.History[len(removed.History)-1]; last.Source != model.SourceUser {
		t.Fatalf("expected remove to be recorded source=user, got %s", last.Source)
	}

	if _, err := h.engine.ApplyAction(ctx, ActionRequest{
		EntryID:   entries[0].ID,
		Action:    model.ActionUndo,
		Principal: vendorPrincipal("owner1"),
	}); model.KindOf(err) != model.KindFailedPrecondition {
		t.Errorf("expected FailedPrecondition undoing a user-sourced remove, got %v", err)
	}

	stillRemoved, err := h.mem.Snapshot(ctx).GetQueueEntry(ctx, entries[0].ID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if stillRemoved.Status != model.StatusRemoved {
		t.Errorf("entry status=%s after rejected undo, want removed", stillRemoved.Status)
	}
}

func TestApplyAction_VendorMustOwnOrHelpBusiness(t *testing.T) {
	h := newHarness(t)
	seedBusiness(h, "biz1", "owner1", "H1")
	seedService(h, "biz1", "haircut", 30)
	entries := enqueueN(t, h, 1)

	_, err := h.engine.ApplyAction(context.Background(), ActionRequest{
		EntryID:   entries[0].ID,
		Action:    model.ActionHold,
		Principal: identity.Principal{ID: "stranger", Role: identity.RoleOwnerOrHelper},
	})
	if model.KindOf(err) != model.KindForbidden {
		t.Fatalf("expected Forbidden for a non-owner/helper principal, got %v", err)
	}
}
