package files

import "olympreg/internal/auth"

// State is the resolved visibility of one file for serving decisions.
type State string

const (
	// StatePublic is servable to anyone.
	StatePublic State = "public"
	// StateBadgeOnly is servable to administrators and the owning
	// country's delegate or self-registrant, for badge rendering only;
	// hidden from the public photo archive and the general embed.
	StateBadgeOnly State = "badge_only"
	// StatePrivate is servable to administrators and, for person files,
	// the owning country's delegate or self-registrant.
	StatePrivate State = "private"
	// StateSuperseded marks a replaced file: admin-only, always.
	StateSuperseded State = "superseded"
)

// Owner is the consent-relevant snapshot of the record owning a file. It is
// read fresh per access; visibility is never stored.
type Owner struct {
	CountryID      string
	PersonID       string
	CountryRetired bool
	PersonRetired  bool
	ConsentUI      bool
	PhotoConsent   PhotoConsent
}

// Resolve computes the visibility state of a file from its metadata and the
// owner's current consent fields. Pure function; evaluated per access.
func Resolve(f File, owner Owner) State {
	if f.Superseded {
		return StateSuperseded
	}
	if f.Kind == KindConsentForm {
		return StatePrivate
	}
	if owner.CountryRetired || owner.PersonRetired {
		return StatePrivate
	}
	if f.Kind == KindFlag {
		return StatePublic
	}
	// Photo.
	if !owner.ConsentUI {
		return StatePublic
	}
	switch owner.PhotoConsent {
	case PhotoConsentWebsite:
		return StatePublic
	case PhotoConsentBadgeOnly:
		return StateBadgeOnly
	default:
		// none or no recorded choice: withheld.
		return StatePrivate
	}
}

// CanView reports whether the actor may be served a file in the given state.
func CanView(state State, actor auth.Actor, owner Owner) bool {
	switch state {
	case StatePublic:
		return true
	case StateSuperseded:
		return actor.IsAdmin()
	case StateBadgeOnly, StatePrivate:
		if actor.IsAdmin() {
			return true
		}
		if owner.PersonID != "" {
			return actor.OwnsPerson(owner.PersonID, owner.CountryID)
		}
		return actor.Kind == auth.KindDelegate && actor.CountryID == owner.CountryID
	default:
		return false
	}
}
