// Package model defines the entities and enums the queue engine operates
// on. Every type here is a plain value type — stores persist these by
// value and look callers up by id; nothing holds a pointer cycle.
package model

import "time"

// HelperStatus is the lifecycle state of a helper's membership in a
// business, independent of whether the helper is currently on break.
type HelperStatus string

const (
	HelperPending  HelperStatus = "pending"
	HelperAccepted HelperStatus = "accepted"
	HelperRejected HelperStatus = "rejected"
	HelperRemoved  HelperStatus = "removed"
)

// Gender is used both as a customer attribute and as a service's allowed
// set; kept as a small closed string enum rather than an int so store
// documents stay self-describing.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderChild  Gender = "child"
)

// Preference controls whether a queue entry is pinned to the helper it
// was enqueued against (SPECIFIC) or may be reassigned by a restructure
// (ANY).
type Preference string

const (
	PreferenceAny      Preference = "ANY"
	PreferenceSpecific Preference = "SPECIFIC"
)

// EntryStatus is the queue entry lifecycle. completed and removed are
// terminal (I5).
type EntryStatus string

const (
	StatusInQueue  EntryStatus = "in_queue"
	StatusHold     EntryStatus = "hold"
	StatusSkipped  EntryStatus = "skipped"
	StatusCompleted EntryStatus = "completed"
	StatusRemoved  EntryStatus = "removed"
)

// LiveStatuses are the statuses that occupy a position in a lane (I1).
var LiveStatuses = []EntryStatus{StatusInQueue, StatusHold, StatusSkipped}

// IsLive reports whether status occupies a lane position.
func (s EntryStatus) IsLive() bool {
	return s == StatusInQueue || s == StatusHold || s == StatusSkipped
}

// IsTerminal reports whether status is completed or removed (I5, P4).
func (s EntryStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRemoved
}

// Business is the tenant root. Helpers are embedded rather than stored as
// a separate top-level collection, per the source system's document shape
// (spec §9: "Helpers are expressed as records embedded in Business").
type Business struct {
	ID       string   `bson:"_id" json:"id"`
	OwnerID  string   `bson:"ownerId" json:"ownerId"`
	Active   bool     `bson:"active" json:"active"`
	Timezone string   `bson:"timezone" json:"timezone"`
	Helpers  []Helper `bson:"helpers" json:"helpers"`
}

// OwnedOrHelpedBy reports whether principalID is this business's owner,
// or an accepted-and-active helper of it (spec §4.2's authorization
// rule: "an owner or an accepted∧active helper of the entry's
// business").
func (b *Business) OwnedOrHelpedBy(principalID string) bool {
	if b.OwnerID == principalID {
		return true
	}
	h := b.Helper(principalID)
	return h != nil && h.Status == HelperAccepted && h.Active
}

// Helper finds an embedded helper by id. Returns nil if absent.
func (b *Business) Helper(helperID string) *Helper {
	for i := range b.Helpers {
		if b.Helpers[i].HelperID == helperID {
			return &b.Helpers[i]
		}
	}
	return nil
}

// ActiveHelpers returns helpers participating in scheduling: accepted and
// not on break (I6).
func (b *Business) ActiveHelpers() []Helper {
	var out []Helper
	for _, h := range b.Helpers {
		if h.Status == HelperAccepted && h.Active {
			out = append(out, h)
		}
	}
	return out
}

// Helper is a business's capability to serve a subset of services.
type Helper struct {
	HelperID string          `bson:"helperId" json:"helperId"`
	Status   HelperStatus    `bson:"status" json:"status"`
	Active   bool            `bson:"active" json:"active"`
	Services map[string]bool `bson:"services" json:"services"`
}

// Capable reports whether the helper can perform serviceID and currently
// participates in scheduling.
func (h Helper) Capable(serviceID string) bool {
	return h.Status == HelperAccepted && h.Active && h.Services[serviceID]
}

// Service is an offering with a fixed duration for the lifetime of any
// queue entry that references it (spec §3).
type Service struct {
	ID             string          `bson:"_id" json:"id"`
	BusinessID     string          `bson:"businessId" json:"businessId"`
	Name           string          `bson:"name" json:"name"`
	DurationMins   int             `bson:"duration" json:"duration"`
	Price          float64         `bson:"price" json:"price"`
	AllowedGenders map[Gender]bool `bson:"allowedGenders" json:"allowedGenders"`
	Deleted        bool            `bson:"deleted" json:"deleted"`
}

// AllowsGender reports whether g may book this service. An empty allow
// set is treated as "no restriction".
func (s Service) AllowsGender(g Gender) bool {
	if len(s.AllowedGenders) == 0 {
		return true
	}
	return s.AllowedGenders[g]
}

// UserRefKind distinguishes a registered user from a manual (walk-in,
// no-account) customer.
type UserRefKind string

const (
	UserRefRegistered UserRefKind = "registered"
	UserRefManual     UserRefKind = "manual"
)

// UserRef identifies the customer a queue entry belongs to, without
// embedding the customer record itself.
type UserRef struct {
	Kind     UserRefKind `bson:"kind" json:"kind"`
	UserID   string      `bson:"userId,omitempty" json:"userId,omitempty"`
	ManualID string      `bson:"manualId,omitempty" json:"manualId,omitempty"`
}

// RegisteredUser is a customer principal with an account and optional
// push channel.
type RegisteredUser struct {
	UserID              string `bson:"_id" json:"id"`
	PushToken           string `bson:"pushToken,omitempty" json:"pushToken,omitempty"`
	ReceiveNotifications bool  `bson:"receiveNotifications" json:"receiveNotifications"`
	Gender              Gender `bson:"gender" json:"gender"`
	Active              bool   `bson:"active" json:"active"`
	Deleted             bool   `bson:"deleted" json:"deleted"`
	Suspended           bool   `bson:"suspended" json:"suspended"`
}

// ManualCustomer is a walk-in customer entered by the vendor; it has no
// push channel.
type ManualCustomer struct {
	ManualID   string `bson:"_id" json:"id"`
	BusinessID string `bson:"businessId" json:"businessId"`
	Name       string `bson:"name" json:"name"`
	Phone      string `bson:"phone" json:"phone"`
	Gender     Gender `bson:"gender" json:"gender"`
}

// ActionKind enumerates the state-machine transitions a queue entry can
// record in its history.
type ActionKind string

const (
	ActionSkip    ActionKind = "skip"
	ActionHold    ActionKind = "hold"
	ActionUnhold  ActionKind = "unhold"
	ActionRemove  ActionKind = "remove"
	ActionNext    ActionKind = "next"
	ActionAddTime ActionKind = "add_time"
	ActionEdit    ActionKind = "edit"
	ActionUndo    ActionKind = "undo"
)

// ActionSource distinguishes a customer-initiated action from a vendor
// (owner/helper) one; only vendor-sourced actions are undoable.
type ActionSource string

const (
	SourceUser   ActionSource = "user"
	SourceVendor ActionSource = "vendor"
)

// HistoryEvent is one append-only record of a queue entry transition.
type HistoryEvent struct {
	Action               ActionKind   `bson:"action" json:"action"`
	Source               ActionSource `bson:"source" json:"source"`
	At                   time.Time    `bson:"at" json:"at"`
	PrevPosition         *int         `bson:"prevPosition,omitempty" json:"prevPosition,omitempty"`
	NewPosition          *int         `bson:"newPosition,omitempty" json:"newPosition,omitempty"`
	AddedTime            *int         `bson:"addedTime,omitempty" json:"addedTime,omitempty"`
	EstWait              *int         `bson:"estWait,omitempty" json:"estWait,omitempty"`
	NewlyAssignedHelperID string      `bson:"newlyAssignedHelperId,omitempty" json:"newlyAssignedHelperId,omitempty"`
}

// QueueEntry is the core record the whole engine revolves around.
type QueueEntry struct {
	ID                  string         `bson:"_id" json:"id"`
	BusinessID          string         `bson:"businessId" json:"businessId"`
	HelperID            string         `bson:"helperId" json:"helperId"`
	UserRef             UserRef        `bson:"userRef" json:"userRef"`
	ServiceID           string         `bson:"serviceId" json:"serviceId"`
	Gender              Gender         `bson:"gender" json:"gender"`
	Preference          Preference     `bson:"preference" json:"preference"`
	JoiningPosition     int            `bson:"joiningPosition" json:"joiningPosition"`
	CurrentPosition     int            `bson:"currentPosition" json:"currentPosition"`
	JoiningTime         time.Time      `bson:"joiningTime" json:"joiningTime"`
	EstServiceStartTime time.Time      `bson:"estServiceStartTime" json:"estServiceStartTime"`
	EstWaitMins         int            `bson:"estWait" json:"estWait"`
	AddedTimeMins        int           `bson:"addedTimeMins" json:"addedTimeMins"`
	Status              EntryStatus    `bson:"status" json:"status"`
	Total               float64        `bson:"total" json:"total"`
	Rating              *int           `bson:"rating,omitempty" json:"rating,omitempty"`
	Notes               string         `bson:"notes,omitempty" json:"notes,omitempty"`
	History             []HistoryEvent `bson:"history" json:"history"`
}

// LastVendorEvent returns the most recent vendor-sourced history event
// other than an undo, and true, or the zero value and false if there is
// none.
func (e *QueueEntry) LastVendorEvent() (HistoryEvent, bool) {
	for i := len(e.History) - 1; i >= 0; i-- {
		if e.History[i].Source == SourceVendor && e.History[i].Action != ActionUndo {
			return e.History[i], true
		}
	}
	return HistoryEvent{}, false
}

// Lane identifies an ordered list of live entries for one helper within
// one business.
type Lane struct {
	BusinessID string
	HelperID   string
}
