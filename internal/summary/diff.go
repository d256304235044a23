package summary

import "time"

// Diff pairs the latest item before a point in time with the latest item at a
// later point. HasOld is false when nothing existed before.
type Diff[T any] struct {
	Old    T
	HasOld bool
	New    T
}

// DiffLatest finds the latest item with key < before and the latest item with
// key <= after. ok is false when no item exists at or before after. Among
// items with equal keys the later one in the slice wins.
func DiffLatest[T any](items []T, key func(T) time.Time, before, after time.Time) (d Diff[T], ok bool) {
	var oldAt, newAt time.Time
	for _, item := range items {
		at := key(item)
		if at.Before(before) && (!d.HasOld || !at.Before(oldAt)) {
			d.Old, d.HasOld, oldAt = item, true, at
		}
		if !at.After(after) && (!ok || !at.Before(newAt)) {
			d.New, ok, newAt = item, true, at
		}
	}
	return d, ok
}

// FieldChange is one compared field of a diff.
type FieldChange[T comparable] struct {
	Old     T    `json:"old"`
	New     T    `json:"new"`
	Changed bool `json:"changed"`
}

func compareField[T comparable](old, new T) FieldChange[T] {
	return FieldChange[T]{Old: old, New: new, Changed: old != new}
}
