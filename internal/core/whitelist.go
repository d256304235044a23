package core

import "strings"

// Whitelist limits the subscriptions that are emailed and handed to the
// controller. When ignored every subscription is allowed.
type Whitelist struct {
	ids    map[string]struct{}
	ignore bool
}

func NewWhitelist(ids []string, ignore bool) Whitelist {
	w := Whitelist{ids: make(map[string]struct{}, len(ids)), ignore: ignore}
	for _, id := range ids {
		w.ids[strings.ToLower(id)] = struct{}{}
	}
	return w
}

func (w Whitelist) Allows(id string) bool {
	if w.ignore {
		return true
	}
	_, ok := w.ids[strings.ToLower(id)]
	return ok
}
