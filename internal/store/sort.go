package store

import (
	"sort"

	"github.com/dipesh-m12/QVuew-Backend/internal/model"
)

// sortByJoiningTime orders entries FCFS (spec §4.3 step 2), breaking
// ties by id for a deterministic order.
func sortByJoiningTime(entries []*model.QueueEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].JoiningTime.Equal(entries[j].JoiningTime) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].JoiningTime.Before(entries[j].JoiningTime)
	})
}
