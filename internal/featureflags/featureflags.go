// Package featureflags exposes the operator-configured feature flag set.
package featureflags

import (
	"encoding/json"

	apperrors "github.com/allisson/integration-events/internal/errors"
)

// Flags is an immutable flag set loaded at startup. The zero value has no
// flags configured.
type Flags struct {
	values map[string]bool
}

// Parse builds a flag set from a JSON object mapping flag names to booleans.
func Parse(raw string) (*Flags, error) {
	values := map[string]bool{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			return nil, apperrors.Wrap(err, "parsing feature flags")
		}
	}
	return &Flags{values: values}, nil
}

// Lookup returns the configured value for name and whether the flag is
// configured at all.
func (f *Flags) Lookup(name string) (value bool, present bool) {
	if f == nil || f.values == nil {
		return false, false
	}
	value, present = f.values[name]
	return value, present
}
