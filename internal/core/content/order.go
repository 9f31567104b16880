package content

import (
	"bytes"
	"cmp"
	"slices"

	"github.com/example/mediadb/internal/core/files"
)

var typeRank = map[Type]int{Files: 0, Mappings: 1, Ratings: 2}

var actionRank = map[Action]int{
	Add:             0,
	Pend:            1,
	Petition:        2,
	RescindPend:     3,
	RescindPetition: 4,
	Delete:          5,
	Archive:         6,
	Inbox:           7,
}

// Canonical returns the updates in the order they are applied. A batch is a
// set: the net state depends only on which updates it holds, so updates are
// applied by content type, action, tag, rating, hashes and reason,
// regardless of input order. Updates equal on every key are interchangeable.
func Canonical(updates []Update) []Update {
	out := append([]Update(nil), updates...)
	slices.SortStableFunc(out, compareUpdates)
	return out
}

func compareUpdates(a, b Update) int {
	if c := cmp.Compare(typeRank[a.Type], typeRank[b.Type]); c != 0 {
		return c
	}
	if c := cmp.Compare(actionRank[a.Action], actionRank[b.Action]); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Tag, b.Tag); c != 0 {
		return c
	}
	if c := compareRatings(a.Rating, b.Rating); c != 0 {
		return c
	}
	if c := compareHashes(a.Hashes, b.Hashes); c != 0 {
		return c
	}
	return cmp.Compare(a.Reason, b.Reason)
}

// compareRatings puts a cleared rating before any value.
func compareRatings(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return cmp.Compare(*a, *b)
}

// compareHashes compares two hash sets as sorted sequences.
func compareHashes(a, b []files.Hash) int {
	a, b = sortedHashes(a), sortedHashes(b)
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := bytes.Compare(a[i][:], b[i][:]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

func sortedHashes(hashes []files.Hash) []files.Hash {
	out := slices.Clone(hashes)
	slices.SortFunc(out, func(x, y files.Hash) int { return bytes.Compare(x[:], y[:]) })
	return out
}
