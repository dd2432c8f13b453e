// Package domain defines the subscriber policy entities: the per-client filter
// policies kept in sync with the authorization API.
package domain

import (
	"slices"
	"time"
)

// FilterPolicy is the decrypted form of a subscriber policy: the integration
// event type names one client is allowed to receive.
type FilterPolicy struct {
	AllowedEventTypes []string `json:"allowedEventTypes"`
}

// Equal reports whether both policies allow the same event types, ignoring order.
func (p FilterPolicy) Equal(other FilterPolicy) bool {
	left := slices.Clone(p.AllowedEventTypes)
	right := slices.Clone(other.AllowedEventTypes)
	slices.Sort(left)
	slices.Sort(right)
	return slices.Equal(left, right)
}

// StoredPolicy is one subscriber_policies row. The policy body is kept
// encrypted at rest; decryption happens in the sync use case.
type StoredPolicy struct {
	ClientID   string
	Ciphertext []byte
	UpdatedAt  time.Time
}
