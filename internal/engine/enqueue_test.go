package engine

import (
	"context"
	"testing"

	"github.com/dipesh-m12/QVuew-Backend/internal/model"
)

// Scenario 1: three ANY-preference haircuts against two capable helpers
// (H1, H2) split 2/1 by smallest-lane tiebreak, with I3-consistent ETAs.
func TestEnqueue_AnyPreferenceSplitsBySmallestLane(t *testing.T) {
	h := newHarness(t)
	seedBusiness(h, "biz1", "owner1", "H1", "H2")
	seedService(h, "biz1", "haircut", 30)
	seedUser(h, "customer1")

	ctx := context.Background()
	principal := customerPrincipal("customer1")

	entries, err := h.engine.Enqueue(ctx, EnqueueRequest{
		BusinessID: "biz1",
		Principal:  principal,
		UserType:   "normal",
		Items: []LineItem{
			{ServiceID: "haircut", Preference: model.PreferenceAny},
			{ServiceID: "haircut", Preference: model.PreferenceAny},
			{ServiceID: "haircut", Preference: model.PreferenceAny},
		},
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	byHelper := map[string][]*model.QueueEntry{}
	for _, e := range entries {
		byHelper[e.HelperID] = append(byHelper[e.HelperID], e)
	}
	if len(byHelper["H1"]) != 2 || len(byHelper["H2"]) != 1 {
		t.Fatalf("expected 2 entries on H1 and 1 on H2, got H1=%d H2=%d", len(byHelper["H1"]), len(byHelper["H2"]))
	}

	wantWaits := map[int]int{1: 0, 2: 30}
	for _, e := range byHelper["H1"] {
		if e.EstWaitMins != wantWaits[e.CurrentPosition] {
			t.Errorf("H1 entry at position %d: estWait=%d, want %d", e.CurrentPosition, e.EstWaitMins, wantWaits[e.CurrentPosition])
		}
	}
	if byHelper["H2"][0].EstWaitMins != 0 || byHelper["H2"][0].CurrentPosition != 1 {
		t.Errorf("H2 entry: position=%d estWait=%d, want position=1 estWait=0", byHelper["H2"][0].CurrentPosition, byHelper["H2"][0].EstWaitMins)
	}
}

func TestEnqueue_RejectsEmptyLineItems(t *testing.T) {
	h := newHarness(t)
	seedBusiness(h, "biz1", "owner1", "H1")

	_, err := h.engine.Enqueue(context.Background(), EnqueueRequest{
		BusinessID: "biz1",
		Principal:  customerPrincipal("customer1"),
		UserType:   "normal",
	})
	if model.KindOf(err) != model.KindInvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestEnqueue_SpecificPreferenceRequiresCapableHelper(t *testing.T) {
	h := newHarness(t)
	seedBusiness(h, "biz1", "owner1", "H1")
	seedService(h, "biz1", "haircut", 30)
	seedUser(h, "customer1")

	_, err := h.engine.Enqueue(context.Background(), EnqueueRequest{
		BusinessID: "biz1",
		Principal:  customerPrincipal("customer1"),
		UserType:   "normal",
		Items: []LineItem{
			{ServiceID: "haircut", Preference: model.PreferenceSpecific, HelperID: "ghost"},
		},
	})
	if model.KindOf(err) != model.KindNotFound {
		t.Fatalf("expected NotFound for unknown helper, got %v", err)
	}
}
