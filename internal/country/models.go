// Package country implements the Country record: its auditor, service, and
// stores. The auditor is the single rulebook applied to every create or edit,
// whether it arrives from a form or from one row of a bulk import.
package country

import "olympreg/internal/files"

// Expected holds the declared delegation size for a normal country. Staff
// countries must leave every field at its zero default.
type Expected struct {
	Leaders                  int
	Deputies                 int
	Contestants              int
	ObserversWithLeader      int
	ObserversWithDeputy      int
	ObserversWithContestants int
	SingleRooms              int
}

// Country is one national team (or the staff pseudo-country).
type Country struct {
	ID   string
	Code string
	Name string
	// IsStaff and ParticipantsOK are set at creation and immutable.
	IsStaff        bool
	ParticipantsOK bool

	ContactEmails []string
	ContactExtra  []string

	Expected         Expected
	NumbersConfirmed bool

	// GenericURL references this country's roster entry at a prior
	// occurrence of the event.
	GenericURL string

	FlagFileID string

	// Virtual-event mode only.
	LeaderEmail     string
	PhysicalAddress string

	Retired bool
}

// Input is a proposed create or edit. nil pointer fields were not supplied;
// empty strings were explicitly emptied (see auditutil).
type Input struct {
	Code *string
	Name *string

	IsStaff        *bool
	ParticipantsOK *bool

	ContactEmail *string
	ContactExtra *string

	ExpectedLeaders                  *string
	ExpectedDeputies                 *string
	ExpectedContestants              *string
	ExpectedObserversWithLeader      *string
	ExpectedObserversWithDeputy      *string
	ExpectedObserversWithContestants *string
	ExpectedSingleRooms              *string

	NumbersConfirmed *bool

	GenericURL *string

	LeaderEmail     *string
	PhysicalAddress *string

	Flag *files.Upload
}
