// Package event holds the process-wide event singleton: the static rulebook
// every auditor call receives, and the small mutable state (enable flags and
// the medal boundary triple) that the scoring gate depends on.
package event

import (
	"olympreg/pkg/dates"
)

// Config is the static rulebook for one occurrence of the event. It is built
// once at boot and passed explicitly into every auditor call; nothing reads
// it from ambient state.
type Config struct {
	ShortName string
	Year      string

	// Virtual events collect a leader email and physical address per
	// country instead of travel details.
	VirtualEvent bool

	// ConsentUI enables collection of the consent fields.
	ConsentUI bool

	RequirePassportNumber bool
	RequireNationality    bool
	RequireDiet           bool
	RequireDateOfBirth    bool

	NumProblems     int
	MarksPerProblem []int

	// AllowedContestantGenders restricts contestant roles only; empty
	// means unrestricted.
	AllowedContestantGenders []string

	// Date-of-birth bounds. EarliestBirthContestant is the contest age
	// rule ("Contestant too old"); the other two are plausibility bounds
	// for every participant.
	EarliestBirthContestant dates.Date
	EarliestBirth           dates.Date
	SanityBirth             dates.Date

	EarliestArrival   dates.Date
	LatestArrival     dates.Date
	EarliestDeparture dates.Date
	LatestDeparture   dates.Date

	// GenericURLBase is the root of the static site for prior occurrences;
	// CountryRoster/PersonRoster, when non-nil, are the known numbers there.
	GenericURLBase string
	CountryRoster  map[int]bool
	PersonRoster   map[int]bool

	// Locations are the known arrival/departure places.
	Locations []string

	// RoomTypeOverride replaces a role's permitted room-type set.
	RoomTypeOverride map[string][]string
}

// TotalMarks is the highest possible contestant total.
func (c Config) TotalMarks() int {
	total := 0
	for _, m := range c.MarksPerProblem {
		total += m
	}
	return total
}

// KnownLocation reports whether a travel place is recognized.
func (c Config) KnownLocation(place string) bool {
	for _, l := range c.Locations {
		if l == place {
			return true
		}
	}
	return false
}

// StaffCountryName is the display name of the staff pseudo-country.
func (c Config) StaffCountryName() string {
	return c.ShortName + " " + c.Year + " Staff"
}

// MedalBoundaries is the gold/silver/bronze triple. The three fields are
// unset as a group or set as a group, never partially, so they move through
// the store as one value.
type MedalBoundaries struct {
	Gold   *int
	Silver *int
	Bronze *int
}

// Set reports whether boundaries have been set.
func (b MedalBoundaries) Set() bool {
	return b.Gold != nil || b.Silver != nil || b.Bronze != nil
}

// Award returns the award for a contestant total once boundaries are set.
func (b MedalBoundaries) Award(total int) string {
	if !b.Set() {
		return ""
	}
	switch {
	case b.Gold != nil && total >= *b.Gold:
		return "Gold"
	case b.Silver != nil && total >= *b.Silver:
		return "Silver"
	case b.Bronze != nil && total >= *b.Bronze:
		return "Bronze"
	default:
		return ""
	}
}

// State is the mutable part of the event singleton, versioned so concurrent
// edits of the flags and the boundary triple are detectable in one place.
type State struct {
	Version                int64
	RegistrationEnabled    bool
	PreregistrationEnabled bool
	SelfScoringEnabled     bool
	Boundaries             MedalBoundaries
}
