// Package auth models the acting identity behind every mutation and the
// session plumbing that produces it. The auditors never look at HTTP or JWT
// concepts; they receive an Actor.
package auth

// Kind is the class of account acting on a record.
type Kind string

const (
	// KindAdmin is an event administrator: full access, may override room
	// types and set the incomplete flag.
	KindAdmin Kind = "admin"
	// KindDelegate is a registering user scoped to one country.
	KindDelegate Kind = "delegate"
	// KindSelfRegistration is scoped to exactly one person record.
	KindSelfRegistration Kind = "self_registration"
	// KindScoreEntry may enter score cells and nothing else.
	KindScoreEntry Kind = "score_entry"
	// KindAnonymous is an unauthenticated viewer.
	KindAnonymous Kind = "anonymous"
)

// Actor is the identity every auditor and visibility check receives.
type Actor struct {
	Kind Kind
	// CountryID scopes delegates and self-registration accounts.
	CountryID string
	// PersonID is set only for self-registration accounts.
	PersonID string
}

// Anonymous is the viewer used when no credentials are presented.
var Anonymous = Actor{Kind: KindAnonymous}

// IsAdmin reports whether the actor has administrative capability.
func (a Actor) IsAdmin() bool { return a.Kind == KindAdmin }

// CanActFor reports whether the actor may mutate records of the country.
func (a Actor) CanActFor(countryID string) bool {
	switch a.Kind {
	case KindAdmin:
		return true
	case KindDelegate, KindSelfRegistration:
		return a.CountryID == countryID
	default:
		return false
	}
}

// OwnsPerson reports whether the actor's scope covers the person record.
func (a Actor) OwnsPerson(personID, countryID string) bool {
	switch a.Kind {
	case KindAdmin:
		return true
	case KindDelegate:
		return a.CountryID == countryID
	case KindSelfRegistration:
		return a.PersonID == personID
	default:
		return false
	}
}
