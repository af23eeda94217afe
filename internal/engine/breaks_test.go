package engine

import (
	"context"
	"testing"

	"github.com/dipesh-m12/QVuew-Backend/internal/model"
)

// Business-wide break pauses the whole business: Restructure becomes a
// gated no-op (spec §4.3 step 1) until ResumeBreak flips it back.
func TestSetBreak_BusinessWide(t *testing.T) {
	h := newHarness(t)
	seedBusiness(h, "biz1", "owner1", "H1")
	seedService(h, "biz1", "haircut", 30)
	entries := enqueueN(t, h, 2)

	ctx := context.Background()
	if err := h.engine.SetBreak(ctx, "biz1", ""); err != nil {
		t.Fatalf("SetBreak failed: %v", err)
	}

	biz, err := h.mem.Snapshot(ctx).GetBusiness(ctx, "biz1")
	if err != nil {
		t.Fatalf("lookup business: %v", err)
	}
	if biz.Active {
		t.Fatal("expected business.Active=false after business-wide break")
	}
	if len(h.notifier.batches) == 0 {
		t.Fatal("expected a notification batch for the business-wide pause")
	}

	// Enqueue must now refuse new entries against a paused business.
	seedUser(h, "latecomer")
	if _, err := h.engine.Enqueue(ctx, EnqueueRequest{
		BusinessID: "biz1",
		Principal:  customerPrincipal("latecomer"),
		UserType:   "normal",
		Items:      []LineItem{{ServiceID: "haircut", Preference: model.PreferenceSpecific, HelperID: "H1"}},
	}); model.KindOf(err) != model.KindFailedPrecondition {
		t.Errorf("expected FailedPrecondition enqueueing against a paused business, got %v", err)
	}

	if err := h.engine.ResumeBreak(ctx, "biz1", ""); err != nil {
		t.Fatalf("ResumeBreak failed: %v", err)
	}
	biz, _ = h.mem.Snapshot(ctx).GetBusiness(ctx, "biz1")
	if !biz.Active {
		t.Fatal("expected business.Active=true after resume")
	}

	snap := h.mem.Snapshot(ctx)
	for _, e := range entries {
		got, err := snap.GetQueueEntry(ctx, e.ID)
		if err != nil {
			t.Fatalf("lookup %s: %v", e.ID, err)
		}
		if !got.Status.IsLive() {
			t.Errorf("entry %s: status=%s, expected still live across the pause", e.ID, got.Status)
		}
	}
}

// Helper-scoped break deactivates one helper and notifies only that
// helper's normal users, then restructures so flexible entries migrate.
func TestSetBreak_HelperScoped(t *testing.T) {
	h := newHarness(t)
	seedBusiness(h, "biz1", "owner1", "H1", "H2")
	seedService(h, "biz1", "haircut", 30)
	enqueueN(t, h, 2)

	ctx := context.Background()
	if err := h.engine.SetBreak(ctx, "biz1", "H1"); err != nil {
		t.Fatalf("SetBreak failed: %v", err)
	}

	biz, err := h.mem.Snapshot(ctx).GetBusiness(ctx, "biz1")
	if err != nil {
		t.Fatalf("lookup business: %v", err)
	}
	if !biz.Active {
		t.Fatal("business-level Active must stay true for a helper-scoped break")
	}
	h1 := biz.Helper("H1")
	if h1.Active {
		t.Fatal("expected H1.Active=false after a helper-scoped break")
	}
	h2 := biz.Helper("H2")
	if !h2.Active {
		t.Fatal("H2 must remain active")
	}
}

func TestSetBreak_UnknownHelper(t *testing.T) {
	h := newHarness(t)
	seedBusiness(h, "biz1", "owner1", "H1")
	seedService(h, "biz1", "haircut", 30)

	if err := h.engine.SetBreak(context.Background(), "biz1", "ghost"); model.KindOf(err) != model.KindNotFound {
		t.Fatalf("expected NotFound for an unknown helper, got %v", err)
	}
}
