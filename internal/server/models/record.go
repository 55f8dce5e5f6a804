// Package models defines server-side data models persisted by the repositories.
package models

import (
	"encoding/json"
	"time"
)

// Record kinds served by the profile endpoints.
const (
	KindOnboarding  = "onboarding"
	KindPreferences = "preferences"
	KindDelegations = "delegations"
)

// Kinds lists every accepted record kind.
var Kinds = []string{KindOnboarding, KindPreferences, KindDelegations}

// Record is one JSON document stored per (wallet address, kind).
// Address is always the lowercase 0x-prefixed hex form.
type Record struct {
	Address   string
	Kind      string
	Data      json.RawMessage
	UpdatedAt time.Time
}
