package engine

import (
	"context"
	"sort"

	"github.com/dipesh-m12/QVuew-Backend/internal/identity"
	"github.com/dipesh-m12/QVuew-Backend/internal/model"
	"github.com/dipesh-m12/QVuew-Backend/internal/store"
	"github.com/google/uuid"
)

// LineItem is one requested queue entry within an Enqueue call (spec §4.1).
type LineItem struct {
	ServiceID  string
	Gender     model.Gender
	Preference model.Preference
	HelperID   string // required when Preference == SPECIFIC
}

// EnqueueRequest is the input to Enqueue.
type EnqueueRequest struct {
	BusinessID string
	Principal  identity.Principal
	UserType   string // "normal" or "manual"
	ManualID   string
	Items      []LineItem
}

// Enqueue creates one queue entry per requested line item, inside a
// single transaction that either creates every entry or none (spec
// §4.1).
func (e *Engine) Enqueue(ctx context.Context, req EnqueueRequest) ([]*model.QueueEntry, error) {
	if len(req.Items) == 0 {
		return nil, model.InvalidArgument(nil, "enqueue requires at least one line item")
	}
	if req.UserType != "normal" && req.UserType != "manual" {
		return nil, model.InvalidArgument(nil, "userType must be normal or manual")
	}
	if req.UserType == "normal" && req.ManualID != "" {
		return nil, model.InvalidArgument(nil, "manualId must be absent for a normal enqueue")
	}
	if req.UserType == "manual" && req.ManualID == "" {
		return nil, model.InvalidArgument(nil, "manualId is required for a manual enqueue")
	}

	unlock := e.Mutex.Lock(req.BusinessID)
	defer unlock()

	var created []*model.QueueEntry
	err := e.Store.WithTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		business, err := tx.GetBusiness(ctx, req.BusinessID)
		if err != nil {
			if err == store.ErrNotFound {
				return model.NotFound(err, "business %s not found", req.BusinessID)
			}
			return err
		}
		if !business.Active {
			return model.FailedPrecondition(nil, "business %s is on break", business.ID)
		}

		var userRef model.UserRef
		if req.UserType == "normal" {
			if req.Principal.Role != identity.RoleCustomer {
				return model.Forbidden(nil, "only a customer principal may enqueue themselves")
			}
			u, err := e.Catalog.GetRegisteredUser(ctx, req.Principal.ID)
			if err != nil {
				return model.NotFound(err, "registered user %s not found", req.Principal.ID)
			}
			if !u.Active || u.Deleted || u.Suspended {
				return model.FailedPrecondition(nil, "user %s is not eligible to enqueue", u.UserID)
			}
			userRef = model.UserRef{Kind: model.UserRefRegistered, UserID: u.UserID}
		} else {
			if req.Principal.Role != identity.RoleOwnerOrHelper {
				return model.Forbidden(nil, "only an owner or helper may enqueue a manual customer")
			}
			mc, err := tx.GetManualCustomer(ctx, req.BusinessID, req.ManualID)
			if err != nil {
				return model.NotFound(err, "manual customer %s not found", req.ManualID)
			}
			userRef = model.UserRef{Kind: model.UserRefManual, ManualID: mc.ManualID}
		}

		now := e.Clock.Now()
		entries := make([]*model.QueueEntry, 0, len(req.Items))
		// pending counts this call's not-yet-inserted entries per helper, so
		// several line items landing on one lane get distinct positions.
		pending := make(map[string]int)
		for _, item := range req.Items {
			svc, err := tx.GetService(ctx, req.BusinessID, item.ServiceID)
			if err != nil {
				return model.NotFound(err, "service %s not found", item.ServiceID)
			}
			if svc.Deleted {
				return model.NotFound(nil, "service %s has been removed", item.ServiceID)
			}
			if !svc.AllowsGender(item.Gender) {
				return model.InvalidArgument(nil, "service %s does not allow gender %s", svc.ID, item.Gender)
			}

			helperID, err := e.resolveHelper(ctx, tx, business, svc, item, pending)
			if err != nil {
				return err
			}

			lane, err := tx.ListLane(ctx, req.BusinessID, helperID, model.LiveStatuses)
			if err != nil {
				return err
			}
			k := len(lane) + pending[helperID]
			pending[helperID]++
			position := k + 1
			estWait, estStart := recomputeETA(now, position, svc.DurationMins, 0)

			entry := &model.QueueEntry{
				ID:                  uuid.NewString(),
				BusinessID:          req.BusinessID,
				HelperID:            helperID,
				UserRef:             userRef,
				ServiceID:           svc.ID,
				Gender:              item.Gender,
				Preference:          item.Preference,
				JoiningPosition:     position,
				CurrentPosition:     position,
				JoiningTime:         now,
				EstServiceStartTime: estStart,
				EstWaitMins:         estWait,
				Status:              model.StatusInQueue,
				Total:               svc.Price,
			}
			entries = append(entries, entry)
		}

		if err := tx.InsertQueueEntries(ctx, entries); err != nil {
			return err
		}
		created = entries
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.invalidateProjections(ctx, req.BusinessID)
	return created, nil
}

// resolveHelper implements preconditions (e) and (f): a SPECIFIC line
// item must name an eligible helper; an ANY line item picks the capable
// helper with the smallest current lane (including entries this call has
// already placed there, per pending), ties broken by smallest id.
func (e *Engine) resolveHelper(ctx context.Context, tx store.Tx, business *model.Business, svc *model.Service, item LineItem, pending map[string]int) (string, error) {
	switch item.Preference {
	case model.PreferenceSpecific:
		if item.HelperID == "" {
			return "", model.InvalidArgument(nil, "helperId is required for a SPECIFIC preference")
		}
		h := business.Helper(item.HelperID)
		if h == nil {
			return "", model.NotFound(nil, "helper %s not found", item.HelperID)
		}
		if !h.Capable(svc.ID) {
			return "", model.FailedPrecondition(nil, "helper %s cannot perform service %s", item.HelperID, svc.ID)
		}
		return item.HelperID, nil

	case model.PreferenceAny:
		capable := make([]model.Helper, 0)
		for _, h := range business.ActiveHelpers() {
			if h.Capable(svc.ID) {
				capable = append(capable, h)
			}
		}
		if len(capable) == 0 {
			return "", model.FailedPrecondition(nil, "no active helper can perform service %s", svc.ID)
		}
		sort.Slice(capable, func(i, j int) bool { return capable[i].HelperID < capable[j].HelperID })

		best := capable[0].HelperID
		bestLen := -1
		for _, h := range capable {
			lane, err := tx.ListLane(ctx, business.ID, h.HelperID, model.LiveStatuses)
			if err != nil {
				return "", err
			}
			n := len(lane) + pending[h.HelperID]
			if bestLen == -1 || n < bestLen {
				bestLen = n
				best = h.HelperID
			}
		}
		return best, nil

	default:
		return "", model.InvalidArgument(nil, "unknown preference %q", item.Preference)
	}
}
