package simnet

import "github.com/rs/xid"

// newID returns a new, unique, compact identifier suitable for use as an
// arena handle for a [Node] or [Link]. See spec §9's design note on
// modeling node/link object cycles with an arena plus a stable identifier.
func newID() string {
	return xid.New().String()
}
