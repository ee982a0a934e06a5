package history

import (
	"sort"

	"github.com/eazycard/eazycard/internal/account"
)

// Annotate returns a copy of entries with the owner's display name stamped in.
func Annotate(entries []account.ReloadEntry, firstName, lastName string) []account.ReloadEntry {
	name := firstName + " " + lastName
	out := make([]account.ReloadEntry, len(entries))
	for i, e := range entries {
		e.Name = name
		out[i] = e
	}
	return out
}

// SortDescendingByDate returns a copy ordered most recent day first. Entries
// sharing a day keep their input order.
func SortDescendingByDate(entries []account.ReloadEntry) []account.ReloadEntry {
	out := make([]account.ReloadEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return account.Day(out[i].Date).After(account.Day(out[j].Date))
	})
	return out
}

// MergeAll flattens the annotated histories of every account, then sorts.
func MergeAll(accounts []account.ClientAccount) []account.ReloadEntry {
	var merged []account.ReloadEntry
	for _, acc := range accounts {
		merged = append(merged, Annotate(acc.ReloadHistory, acc.FirstName, acc.LastName)...)
	}
	return SortDescendingByDate(merged)
}
