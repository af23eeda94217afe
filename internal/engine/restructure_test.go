package engine

import (
	"context"
	"testing"

	"github.com/dipesh-m12/QVuew-Backend/internal/model"
)

// Scenario 3: holding the entry at position 3 in a 5-entry lane, then
// restructuring, leaves every position unchanged; unhold plus another
// restructure also leaves the configuration unchanged.
func TestRestructure_HoldPreservesPosition(t *testing.T) {
	h := newHarness(t)
	seedBusiness(h, "biz1", "owner1", "H1")
	seedService(h, "biz1", "haircut", 30)
	entries := enqueueN(t, h, 5)

	ctx := context.Background()
	held := entries[2] // position 3

	if _, err := h.engine.ApplyAction(ctx, ActionRequest{
		EntryID:   held.ID,
		Action:    model.ActionHold,
		Principal: vendorPrincipal("owner1"),
	}); err != nil {
		t.Fatalf("hold failed: %v", err)
	}

	from, to := windowAround(h.clk)
	if _, err := h.engine.Restructure(ctx, "biz1", from, to); err != nil {
		t.Fatalf("restructure after hold failed: %v", err)
	}

	snap := h.mem.Snapshot(ctx)
	wantPos := map[string]int{
		entries[0].ID: 1,
		entries[1].ID: 2,
		entries[2].ID: 3,
		entries[3].ID: 4,
		entries[4].ID: 5,
	}
	for id, want := range wantPos {
		got, err := snap.GetQueueEntry(ctx, id)
		if err != nil {
			t.Fatalf("lookup %s: %v", id, err)
		}
		if got.CurrentPosition != want {
			t.Errorf("entry %s: position=%d, want %d", id, got.CurrentPosition, want)
		}
	}
	heldEntry, _ := snap.GetQueueEntry(ctx, held.ID)
	if heldEntry.Status != model.StatusHold {
		t.Errorf("held entry status=%s, want hold", heldEntry.Status)
	}

	if _, err := h.engine.ApplyAction(ctx, ActionRequest{
		EntryID:   held.ID,
		Action:    model.ActionUnhold,
		Principal: vendorPrincipal("owner1"),
	}); err != nil {
		t.Fatalf("unhold failed: %v", err)
	}
	if _, err := h.engine.Restructure(ctx, "biz1", from, to); err != nil {
		t.Fatalf("restructure after unhold failed: %v", err)
	}

	snap = h.mem.Snapshot(ctx)
	for id, want := range wantPos {
		got, err := snap.GetQueueEntry(ctx, id)
		if err != nil {
			t.Fatalf("lookup %s: %v", id, err)
		}
		if got.CurrentPosition != want {
			t.Errorf("after unhold+restructure, entry %s: position=%d, want %d", id, got.CurrentPosition, want)
		}
	}
}

// Scenario 4: H1 goes on break with 3 in_queue entries; H2 is active and
// capable with none. Restructure reassigns all 3 to H2 in joining-time
// order, each recording newlyAssignedHelperId.
func TestRestructure_HelperBreakReassignsFlexibleEntries(t *testing.T) {
	h := newHarness(t)
	seedBusiness(h, "biz1", "owner1", "H1", "H2")
	seedService(h, "biz1", "haircut", 30)

	ctx := context.Background()
	// SPECIFIC-pinned to H1: once H1 goes on break it drops out of the
	// capable set, so Step 4 classifies the position-1 entry as Head (moved
	// to the first capable helper) and downgrades the other two to
	// Flexible (I7); all three migrate to H2 as scenario 4 describes.
	entries := enqueueN(t, h, 3)

	if err := h.engine.SetBreak(ctx, "biz1", "H1"); err != nil {
		t.Fatalf("SetBreak failed: %v", err)
	}

	snap := h.mem.Snapshot(ctx)
	for i, want := range []int{1, 2, 3} {
		got, err := snap.GetQueueEntry(ctx, entries[i].ID)
		if err != nil {
			t.Fatalf("lookup %s: %v", entries[i].ID, err)
		}
		if got.HelperID != "H2" {
			t.Errorf("entry %d: helper=%s, want H2", i, got.HelperID)
		}
		if got.CurrentPosition != want {
			t.Errorf("entry %d: position=%d, want %d", i, got.CurrentPosition, want)
		}
		last := got.History[len(got.History)-1]
		if last.NewlyAssignedHelperID != "H2" {
			t.Errorf("entry %d: last history event missing newlyAssignedHelperId=H2, got %+v", i, last)
		}
	}

	if len(h.notifier.batches) == 0 {
		t.Fatal("expected at least one notification batch for the reassignment")
	}
}

// Restructure run twice back-to-back with no intervening change produces
// no further updates (P6, idempotence).
func TestRestructure_Idempotent(t *testing.T) {
	h := newHarness(t)
	seedBusiness(h, "biz1", "owner1", "H1", "H2")
	seedService(h, "biz1", "haircut", 30)
	enqueueN(t, h, 3)

	ctx := context.Background()
	from, to := windowAround(h.clk)

	first, err := h.engine.Restructure(ctx, "biz1", from, to)
	if err != nil {
		t.Fatalf("first restructure failed: %v", err)
	}
	second, err := h.engine.Restructure(ctx, "biz1", from, to)
	if err != nil {
		t.Fatalf("second restructure failed: %v", err)
	}
	if second.UpdatedCount != 0 {
		t.Errorf("second restructure updated %d entries, want 0 (idempotent)", second.UpdatedCount)
	}
	_ = first
}
