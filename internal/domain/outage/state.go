package outage

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// PowerState is the classified state of a monitored address.
type PowerState uint8

const (
	// WithPower means the address is not affected by an active outage.
	WithPower PowerState = iota
	// WithoutPower means the address is currently disconnected.
	WithoutPower
)

// String implements fmt.Stringer.
func (s PowerState) String() string {
	if s == WithoutPower {
		return "without_power"
	}

	return "with_power"
}

var (
	// DefaultActiveTokens mark an ongoing outage. Matched case-sensitively.
	//nolint:gochecknoglobals // Read-only defaults.
	DefaultActiveTokens = []string{"Активне"}
	// DefaultDisconnectedTokens mark a disconnection. Matched case-insensitively.
	//nolint:gochecknoglobals // Read-only defaults.
	DefaultDisconnectedTokens = []string{"відключено"}
)

// Classifier decides from raw status text whether an address has power.
//
// The upstream vocabulary is uncontrolled, so this is a lexical heuristic:
// text that matches no token is treated as WithPower.
type Classifier struct {
	// active tokens are matched as-is after NFC normalization.
	active []string
	// disconnected tokens are stored case-folded.
	disconnected []string
}

// NewClassifier builds a classifier. Empty token lists fall back to the defaults.
func NewClassifier(active, disconnected []string) *Classifier {
	if len(active) == 0 {
		active = DefaultActiveTokens
	}

	if len(disconnected) == 0 {
		disconnected = DefaultDisconnectedTokens
	}

	c := &Classifier{
		active:       make([]string, 0, len(active)),
		disconnected: make([]string, 0, len(disconnected)),
	}

	for _, token := range active {
		if token = norm.NFC.String(strings.TrimSpace(token)); token != "" {
			c.active = append(c.active, token)
		}
	}

	for _, token := range disconnected {
		if token = fold(token); token != "" {
			c.disconnected = append(c.disconnected, token)
		}
	}

	return c
}

// Classify returns WithoutPower when the status carries an active or
// disconnected token, and WithPower otherwise.
func (c *Classifier) Classify(status string) PowerState {
	normalized := norm.NFC.String(status)

	for _, token := range c.active {
		if strings.Contains(normalized, token) {
			return WithoutPower
		}
	}

	folded := fold(normalized)

	for _, token := range c.disconnected {
		if strings.Contains(folded, token) {
			return WithoutPower
		}
	}

	return WithPower
}

// fold normalizes and case-folds s. A new Caser is taken per call because
// casers keep internal state.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}
