package engine

import (
	"context"
	"testing"
	"time"

	"github.com/dipesh-m12/QVuew-Backend/internal/catalog"
	"github.com/dipesh-m12/QVuew-Backend/internal/clock"
	"github.com/dipesh-m12/QVuew-Backend/internal/identity"
	"github.com/dipesh-m12/QVuew-Backend/internal/model"
	"github.com/dipesh-m12/QVuew-Backend/internal/notifier"
	"github.com/dipesh-m12/QVuew-Backend/internal/store"
)

// recordingNotifier captures every batch handed to it, so tests can
// assert on notification intents without a running Notifier/AMQP stack.
type recordingNotifier struct {
	batches [][]notifier.Intent
}

func (n *recordingNotifier) Notify(ctx context.Context, intents []notifier.Intent) {
	n.batches = append(n.batches, intents)
}

// testHarness bundles the fixtures every engine test needs: an in-memory
// Store, a manual Clock, a Static identity resolver, a Catalog over the
// same Store, and a recording Notifier.
type testHarness struct {
	t        *testing.T
	mem      *store.Memory
	clk      *clock.Manual
	ids      *identity.Static
	cat      *catalog.FromStore
	notifier *recordingNotifier
	engine   *Engine
	business *model.Business
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	mem := store.NewMemory()
	clk := clock.NewManual(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	ids := identity.NewStatic()
	cat := catalog.NewFromStore(mem)
	notif := &recordingNotifier{}

	eng := New(mem, clk, notif, ids, cat, nil, Config{
		UndoWindow:         5 * time.Minute,
		RestructureHorizon: 24 * time.Hour,
		MaterialWaitDelta:  5,
	})

	return &testHarness{t: t, mem: mem, clk: clk, ids: ids, cat: cat, notifier: notif, engine: eng}
}

func seedBusiness(h *testHarness, businessID, ownerID string, helperIDs ...string) *model.Business {
	b := &model.Business{
		ID:       businessID,
		OwnerID:  ownerID,
		Active:   true,
		Timezone: "UTC",
	}
	for _, hid := range helperIDs {
		b.Helpers = append(b.Helpers, model.Helper{
			HelperID: hid,
			Status:   model.HelperAccepted,
			Active:   true,
			Services: map[string]bool{},
		})
	}
	h.mem.SeedBusiness(b)
	h.business = b
	return b
}

func seedService(h *testHarness, businessID, serviceID string, durationMins int) *model.Service {
	svc := &model.Service{
		ID:           serviceID,
		BusinessID:   businessID,
		Name:         serviceID,
		DurationMins: durationMins,
	}
	h.mem.SeedService(svc)
	for i := range h.business.Helpers {
		h.business.Helpers[i].Services[serviceID] = true
	}
	h.mem.SeedBusiness(h.business)
	return svc
}

func seedUser(h *testHarness, userID string) *model.RegisteredUser {
	u := &model.RegisteredUser{
		UserID:               userID,
		Active:               true,
		ReceiveNotifications: true,
		PushToken:            "tok-" + userID,
	}
	h.cat.PutUser(u)
	return u
}

func customerPrincipal(userID string) identity.Principal {
	return identity.Principal{ID: userID, Role: identity.RoleCustomer}
}

func vendorPrincipal(id string) identity.Principal {
	return identity.Principal{ID: id, Role: identity.RoleOwnerOrHelper}
}

func windowAround(clk *clock.Manual) (time.Time, time.Time) {
	now := clk.Now()
	return now.Add(-time.Hour), now.Add(24 * time.Hour)
}
