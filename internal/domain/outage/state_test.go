package outage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestClassifier_Defaults checks the default tokens and the fail-open fallback.
func TestClassifier_Defaults(t *testing.T) {
	t.Parallel()

	c := NewClassifier(nil, nil)

	cases := map[string]PowerState{
		"Активне":                 WithoutPower,
		"Статус: Активне з 10:00": WithoutPower,
		"Відключено":              WithoutPower,
		"ВІДКЛЮЧЕНО аварійно":     WithoutPower,
		"активне":                 WithPower,
		"Завершене":               WithPower,
		"":                        WithPower,
		"unexpected wording":      WithPower,
	}

	for status, want := range cases {
		require.Equal(t, want, c.Classify(status), "status %q", status)
	}
}

// TestClassifier_CustomTokens verifies configured tokens replace the defaults.
func TestClassifier_CustomTokens(t *testing.T) {
	t.Parallel()

	c := NewClassifier([]string{"ONGOING"}, []string{"Cut Off"})

	require.Equal(t, WithoutPower, c.Classify("status ONGOING"))
	require.Equal(t, WithoutPower, c.Classify("power cut off"))
	require.Equal(t, WithPower, c.Classify("ongoing"))
	require.Equal(t, WithPower, c.Classify("Активне"))
}

// TestPowerState_String covers the log representation.
func TestPowerState_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "with_power", WithPower.String())
	require.Equal(t, "without_power", WithoutPower.String())
}
