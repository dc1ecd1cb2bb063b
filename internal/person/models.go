// Package person implements the Person record: its auditor, service, and
// stores. The auditor carries the largest rule surface in the system and is
// shared verbatim by the form path and the bulk import pipeline.
package person

import (
	"olympreg/internal/files"
	"olympreg/pkg/dates"
)

// DietUnknown is the sentinel the diet field resets to when dietary-
// requirements consent is revoked; the information is withheld, not erased.
const DietUnknown = "Unknown"

// TravelLeg is one endpoint of the journey. Every field is independently
// optional, but a time is meaningless without a date.
type TravelLeg struct {
	Place  string
	Date   dates.Date
	Time   *dates.TimeOfDay
	Flight string
}

// Person is one registered participant or staff member.
type Person struct {
	ID        string
	CountryID string

	PrimaryRole string
	OtherRoles  []string
	GuideFor    []string

	GivenName  string
	FamilyName string
	// Passport names, when they differ from the display names.
	PassportGivenName  string
	PassportFamilyName string

	Gender      string
	DateOfBirth dates.Date

	Languages []string
	Diet      string
	TShirt    string

	Arrival   TravelLeg
	Departure TravelLeg

	RoomType      string
	RoomShareWith string
	RoomNumber    string

	PhoneNumber string

	PassportNumber string
	Nationality    string

	// Incomplete suspends required-field checks; only administrators may
	// set it.
	Incomplete bool

	PhotoFileID       string
	ConsentFormFileID string

	EventPhotosConsent *bool
	PhotoConsent       files.PhotoConsent
	DietConsent        *bool

	GenericURL string

	Retired bool
}

// IsContestant reports whether the primary role is a contestant role.
func (p Person) IsContestant() bool {
	return isContestantRole(p.PrimaryRole)
}

// Input is a proposed create or edit. nil pointer fields were not supplied;
// empty strings were explicitly emptied (see auditutil).
type Input struct {
	CountryID *string

	PrimaryRole *string
	OtherRoles  *[]string
	GuideFor    *[]string

	GivenName          *string
	FamilyName         *string
	PassportGivenName  *string
	PassportFamilyName *string

	Gender *string

	// Date of birth as the three sub-fields the forms collect.
	BirthYear  *string
	BirthMonth *string
	BirthDay   *string

	FirstLanguage  *string
	SecondLanguage *string
	Diet           *string
	TShirt         *string

	ArrivalPlace    *string
	ArrivalDate     *string
	ArrivalHour     *string
	ArrivalMinute   *string
	ArrivalFlight   *string
	DeparturePlace  *string
	DepartureDate   *string
	DepartureHour   *string
	DepartureMinute *string
	DepartureFlight *string

	RoomType      *string
	RoomShareWith *string
	RoomNumber    *string

	PhoneNumber *string

	PassportNumber *string
	Nationality    *string

	Incomplete *bool

	Photo       *files.Upload
	ConsentForm *files.Upload

	EventPhotosConsent *bool
	PhotoConsent       *string
	DietConsent        *bool

	GenericURL *string
}
