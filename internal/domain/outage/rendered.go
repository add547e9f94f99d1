package outage

import "maps"

// Rendered maps an address to the last message sent for it.
// It only serves change detection.
type Rendered map[string]string

// NewRendered returns an empty rendered-state mapping.
func NewRendered() Rendered {
	return make(Rendered)
}

// ShouldNotify reports whether message differs byte-for-byte from the last
// one sent for address. It is true when nothing was sent yet.
func (r Rendered) ShouldNotify(address, message string) bool {
	previous, ok := r[address]

	return !ok || previous != message
}

// Remember records message as sent for address.
func (r Rendered) Remember(address, message string) {
	r[address] = message
}

// Clone returns a copy of the mapping.
func (r Rendered) Clone() Rendered {
	cloned := make(Rendered, len(r))
	maps.Copy(cloned, r)

	return cloned
}
