// Package audit captures every successful mutation and feeds the live
// notification stream (score entries, medal boundaries, registrations).
package audit

import (
	"time"

	"github.com/mssola/useragent"
)

// Action labels what happened.
type Action string

const (
	ActionCountryCreated  Action = "country_created"
	ActionCountryUpdated  Action = "country_updated"
	ActionCountryRetired  Action = "country_retired"
	ActionPersonCreated   Action = "person_created"
	ActionPersonUpdated   Action = "person_updated"
	ActionPersonRetired   Action = "person_retired"
	ActionBulkImport      Action = "bulk_import"
	ActionScoresEntered   Action = "scores_entered"
	ActionBoundariesSet   Action = "medal_boundaries_set"
	ActionBoundariesUnset Action = "medal_boundaries_unset"
	ActionEventFlags      Action = "event_flags_changed"
)

// Event is emitted from domain logic after a successful commit. Keep it
// transport-agnostic so sinks can fan out. Summary is the human-readable line
// the live feed shows; CountryID scopes per-country feeds.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Entity    string    `json:"entity,omitempty"`
	EntityID  string    `json:"entity_id,omitempty"`
	CountryID string    `json:"country_id,omitempty"`
	ActorKind string    `json:"actor_kind,omitempty"`
	Summary   string    `json:"summary"`
	Client    string    `json:"client,omitempty"`
}

// ClientFromUserAgent condenses a User-Agent header into "browser/platform"
// for the audit record. Empty input stays empty.
func ClientFromUserAgent(ua string) string {
	if ua == "" {
		return ""
	}
	parsed := useragent.New(ua)
	name, _ := parsed.Browser()
	platform := parsed.Platform()
	switch {
	case name == "" && platform == "":
		return ua
	case platform == "":
		return name
	default:
		return name + "/" + platform
	}
}
