package router

import "github.com/cloi-dev/hub/internal/hubcore"

// Policy gates which message types a connection may emit. It
// models allow/deny lists keyed on message type rather than on skill
// names.
//
// An empty Policy allows everything. A non-empty Allow makes the
// policy a strict allow-list (anything not listed is denied); Deny is
// checked first and always wins over Allow.
type Policy struct {
	Allow []hubcore.MessageType
	Deny  []hubcore.MessageType
}

// Permits reports whether t is allowed to be emitted under p.
func (p Policy) Permits(t hubcore.MessageType) bool {
	for _, d := range p.Deny {
		if d == t {
			return false
		}
	}
	if len(p.Allow) == 0 {
		return true
	}
	for _, a := range p.Allow {
		if a == t {
			return true
		}
	}
	return false
}
