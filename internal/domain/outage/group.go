package outage

import "strings"

// UnknownGroup is rendered when an address has no configured group.
const UnknownGroup = "невідома"

// Groups maps an address prefix (text before the first comma) to its
// distribution group. It is used for presentation only.
type Groups map[string]string

// Lookup returns the group for the address or UnknownGroup.
func (g Groups) Lookup(address string) string {
	prefix, _, _ := strings.Cut(address, ",")

	if group, ok := g[strings.TrimSpace(prefix)]; ok {
		return group
	}

	if group, ok := g[strings.TrimSpace(address)]; ok {
		return group
	}

	return UnknownGroup
}
