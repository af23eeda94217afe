package model

// Clone returns a deep copy of the business, including its embedded
// helpers and their capability sets.
func (b *Business) Clone() *Business {
	if b == nil {
		return nil
	}
	out := *b
	out.Helpers = make([]Helper, len(b.Helpers))
	for i, h := range b.Helpers {
		out.Helpers[i] = h.clone()
	}
	return &out
}

func (h Helper) clone() Helper {
	out := h
	out.Services = make(map[string]bool, len(h.Services))
	for k, v := range h.Services {
		out.Services[k] = v
	}
	return out
}

// Clone returns a deep copy of the service, including its allowed-gender
// set.
func (s *Service) Clone() *Service {
	if s == nil {
		return nil
	}
	out := *s
	out.AllowedGenders = make(map[Gender]bool, len(s.AllowedGenders))
	for k, v := range s.AllowedGenders {
		out.AllowedGenders[k] = v
	}
	return &out
}

// Clone returns a deep copy of the manual customer.
func (m *ManualCustomer) Clone() *ManualCustomer {
	if m == nil {
		return nil
	}
	out := *m
	return &out
}

// Clone returns a deep copy of the queue entry, including its history and
// optional rating.
func (e *QueueEntry) Clone() *QueueEntry {
	if e == nil {
		return nil
	}
	out := *e
	out.History = make([]HistoryEvent, len(e.History))
	copy(out.History, e.History)
	if e.Rating != nil {
		r := *e.Rating
		out.Rating = &r
	}
	return &out
}
