package httpapi

import (
	"time"

	"github.com/dipesh-m12/QVuew-Backend/internal/engine"
	"github.com/dipesh-m12/QVuew-Backend/internal/identity"
	"github.com/dipesh-m12/QVuew-Backend/internal/model"
)

// enqueueLineItemDTO is one requested line item in an enqueue request body.
type enqueueLineItemDTO struct {
	ServiceID  string `json:"serviceId"`
	Gender     string `json:"gender"`
	Preference string `json:"preference"`
	HelperID   string `json:"helperId,omitempty"`
}

type enqueueRequestDTO struct {
	BusinessID string               `json:"businessId"`
	UserType   string               `json:"userType"`
	ManualID   string               `json:"manualId,omitempty"`
	Items      []enqueueLineItemDTO `json:"items"`
}

func (d enqueueRequestDTO) toEngine(principal identity.Principal) engine.EnqueueRequest {
	items := make([]engine.LineItem, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, engine.LineItem{
			ServiceID:  it.ServiceID,
			Gender:     model.Gender(it.Gender),
			Preference: model.Preference(it.Preference),
			HelperID:   it.HelperID,
		})
	}
	return engine.EnqueueRequest{
		BusinessID: d.BusinessID,
		Principal:  principal,
		UserType:   d.UserType,
		ManualID:   d.ManualID,
		Items:      items,
	}
}

type actionRequestDTO struct {
	EntryID   string `json:"entryId"`
	Action    string `json:"action"`
	AddedTime int    `json:"addedTime,omitempty"`
}

func (d actionRequestDTO) toEngine(principal identity.Principal) engine.ActionRequest {
	return engine.ActionRequest{
		EntryID:   d.EntryID,
		Action:    model.ActionKind(d.Action),
		AddedTime: d.AddedTime,
		Principal: principal,
	}
}

type restructureRequestDTO struct {
	BusinessID string    `json:"businessId"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
}

type breakRequestDTO struct {
	BusinessID string `json:"businessId"`
	HelperID   string `json:"helperId,omitempty"`
}

type updateRatingRequestDTO struct {
	EntryID string `json:"entryId"`
	Rating  int    `json:"rating"`
	Notes   string `json:"notes,omitempty"`
}

type addManualCustomerRequestDTO struct {
	BusinessID string `json:"businessId"`
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	Gender     string `json:"gender,omitempty"`
}
