package person

import (
	"context"
	"strconv"
	"strings"
	"time"

	"olympreg/internal/auditutil"
	"olympreg/internal/auth"
	"olympreg/internal/event"
	"olympreg/internal/files"
	"olympreg/internal/roles"
	dErrors "olympreg/pkg/domain-errors"
	"olympreg/pkg/dates"
	pstrings "olympreg/pkg/platform/strings"
	"olympreg/pkg/validate"
)

// CountryView is the slice of a country record the auditor needs.
type CountryView struct {
	ID             string
	IsStaff        bool
	ParticipantsOK bool
	Retired        bool
}

// Lookup is the store view the auditor validates against. Bulk import
// supplies an overlay that includes rows already accepted in the batch.
type Lookup interface {
	// Country returns the view for an ID, sentinel.ErrNotFound when absent.
	Country(ctx context.Context, id string) (CountryView, error)
	// RoleTaken reports whether a non-retired person other than excludeID
	// already holds the role in the country.
	RoleTaken(ctx context.Context, countryID, role, excludeID string) (bool, error)
}

// Result is a successful audit: the normalized record plus any validated
// uploads for the caller to commit.
type Result struct {
	Person      Person
	Photo       *files.File
	ConsentForm *files.File
}

// Auditor validates and normalizes one person create or edit.
type Auditor struct {
	cfg event.Config
}

func NewAuditor(cfg event.Config) *Auditor {
	return &Auditor{cfg: cfg}
}

func isContestantRole(name string) bool {
	c, err := roles.Lookup(name)
	return err == nil && c.Contestant
}

// Audit applies the full person rulebook. prev is nil on create.
func (a *Auditor) Audit(ctx context.Context, state event.State, actor auth.Actor, in Input, prev *Person, lookup Lookup) (Result, error) {
	create := prev == nil
	var out Person
	if !create {
		out = *prev
	}

	if !actor.IsAdmin() && !state.RegistrationEnabled {
		return Result{}, dErrors.New(dErrors.CodeStateConflict,
			"Registration is now disabled, please contact the event organisers"+
				" to change details of registered participants")
	}

	// The incomplete escape hatch suspends required-field checks but never
	// format checks. A record left incomplete must be completed the next
	// time a non-administrator touches it.
	if in.Incomplete != nil && *in.Incomplete != out.Incomplete {
		if !actor.IsAdmin() {
			return Result{}, dErrors.New(dErrors.CodePermissionDenied,
				"Only administrators may mark a registration as incomplete")
		}
		out.Incomplete = *in.Incomplete
	}
	if !actor.IsAdmin() {
		out.Incomplete = false
	}
	skipRequired := out.Incomplete

	countryID, err := a.requireField("country", "No country specified",
		in.CountryID, prevStr(prev, func(p *Person) string { return p.CountryID }),
		create, !skipRequired)
	if err != nil {
		return Result{}, err
	}
	if actor.Kind == auth.KindSelfRegistration && !create && countryID != prev.CountryID {
		return Result{}, dErrors.New(dErrors.CodePermissionDenied,
			"You may not change your country")
	}
	if !actor.CanActFor(countryID) {
		return Result{}, dErrors.New(dErrors.CodePermissionDenied,
			"Person must be from your country")
	}
	cv, err := lookup.Country(ctx, countryID)
	if err != nil || cv.Retired || !cv.ParticipantsOK {
		return Result{}, dErrors.New(dErrors.CodeReferenceInvalid, "Invalid country")
	}
	out.CountryID = countryID

	if out.GivenName, err = a.requireField("given_name", "No given name specified",
		in.GivenName, out.GivenName, create, !skipRequired); err != nil {
		return Result{}, err
	}
	if out.FamilyName, err = a.requireField("family_name", "No family name specified",
		in.FamilyName, out.FamilyName, create, !skipRequired); err != nil {
		return Result{}, err
	}
	out.PassportGivenName = auditutil.Get(in.PassportGivenName, out.PassportGivenName)
	out.PassportFamilyName = auditutil.Get(in.PassportFamilyName, out.PassportFamilyName)

	gender, err := a.requireField("gender", "No gender specified",
		in.Gender, out.Gender, create, !skipRequired)
	if err != nil {
		return Result{}, err
	}
	out.Gender = gender

	primaryRole, err := a.requireField("primary_role", "No primary role specified",
		in.PrimaryRole, out.PrimaryRole, create, !skipRequired)
	if err != nil {
		return Result{}, err
	}
	var role roles.Capability
	if primaryRole != "" {
		if role, err = roles.Lookup(primaryRole); err != nil {
			return Result{}, err
		}
	}
	out.PrimaryRole = primaryRole

	if err := a.auditRoleShape(ctx, in, &out, cv, role, create, lookup); err != nil {
		return Result{}, err
	}

	if role.Contestant && role.GenderRestricted && len(a.cfg.AllowedContestantGenders) > 0 && gender != "" {
		if !contains(a.cfg.AllowedContestantGenders, gender) {
			return Result{}, dErrors.Newf(dErrors.CodeFormatInvalid,
				"Contestant gender must be %s",
				strings.Join(a.cfg.AllowedContestantGenders, " or "))
		}
	}

	firstLanguage, err := a.requireField("first_language", "No first language specified",
		in.FirstLanguage, firstOf(out.Languages), create, !skipRequired)
	if err != nil {
		return Result{}, err
	}
	secondLanguage := auditutil.Get(in.SecondLanguage, secondOf(out.Languages))
	out.Languages = nil
	if firstLanguage != "" {
		out.Languages = append(out.Languages, firstLanguage)
	}
	if secondLanguage != "" {
		out.Languages = append(out.Languages, secondLanguage)
	}

	if out.TShirt, err = a.requireField("tshirt", "No T-shirt size specified",
		in.TShirt, out.TShirt, create, !skipRequired); err != nil {
		return Result{}, err
	}

	dietRequired := a.cfg.RequireDiet && !skipRequired
	if out.Diet, err = a.requireField("diet", "No dietary requirements specified",
		in.Diet, out.Diet, create, dietRequired); err != nil {
		return Result{}, err
	}

	passportRequired := a.cfg.RequirePassportNumber && !skipRequired
	if out.PassportNumber, err = a.requireField("passport_number",
		"No passport or identity card number specified",
		in.PassportNumber, out.PassportNumber, create, passportRequired); err != nil {
		return Result{}, err
	}
	nationalityRequired := a.cfg.RequireNationality && !skipRequired
	if out.Nationality, err = a.requireField("nationality", "No nationality specified",
		in.Nationality, out.Nationality, create, nationalityRequired); err != nil {
		return Result{}, err
	}

	if err := a.auditDateOfBirth(in, &out, role, skipRequired); err != nil {
		return Result{}, err
	}

	if err := a.auditTravel(in, &out); err != nil {
		return Result{}, err
	}

	if err := a.auditRoom(actor, in, &out, role); err != nil {
		return Result{}, err
	}

	phone := auditutil.Get(in.PhoneNumber, out.PhoneNumber)
	if phone != "" && !role.Staff {
		return Result{}, dErrors.New(dErrors.CodeFormatInvalid,
			"Phone numbers may only be entered for staff")
	}
	out.PhoneNumber = phone

	genericURL := auditutil.Get(in.GenericURL, out.GenericURL)
	if genericURL != "" {
		if _, err := validate.GenericURL(a.cfg.GenericURLBase, "person", genericURL, a.cfg.PersonRoster); err != nil {
			return Result{}, err
		}
	}
	out.GenericURL = genericURL

	result := Result{}
	if in.Photo != nil {
		f, err := files.New(files.KindPhoto, *in.Photo)
		if err != nil {
			return Result{}, err
		}
		result.Photo = &f
		out.PhotoFileID = f.ID
	}
	if in.ConsentForm != nil {
		f, err := files.New(files.KindConsentForm, *in.ConsentForm)
		if err != nil {
			return Result{}, err
		}
		result.ConsentForm = &f
		out.ConsentFormFileID = f.ID
	}

	if err := a.auditConsent(in, &out, skipRequired); err != nil {
		return Result{}, err
	}

	result.Person = out
	return result, nil
}

// requireField wraps auditutil.Require so the incomplete flag can downgrade a
// required field to optional without losing the merge semantics.
func (a *Auditor) requireField(field, friendly string, proposed *string, prevVal string, create, required bool) (string, error) {
	if !required {
		return auditutil.Get(proposed, prevVal), nil
	}
	return auditutil.Require(field, friendly, proposed, prevVal, create)
}

func (a *Auditor) auditRoleShape(ctx context.Context, in Input, out *Person, cv CountryView, role roles.Capability, create bool, lookup Lookup) error {
	if in.OtherRoles != nil {
		out.OtherRoles = pstrings.DedupeAndTrim(*in.OtherRoles)
	}
	if in.GuideFor != nil {
		out.GuideFor = pstrings.DedupeAndTrim(*in.GuideFor)
	}
	if out.PrimaryRole == "" {
		return nil
	}

	if cv.IsStaff {
		if !role.Staff {
			return dErrors.New(dErrors.CodeFormatInvalid,
				"Staff must have administrative roles")
		}
		for _, r := range out.OtherRoles {
			rc, err := roles.Lookup(r)
			if err != nil {
				return err
			}
			if !rc.Staff {
				return dErrors.New(dErrors.CodeFormatInvalid,
					"Staff must have administrative roles")
			}
		}
	} else {
		if role.Staff {
			return dErrors.New(dErrors.CodeFormatInvalid,
				"Invalid role for participant")
		}
		if len(out.OtherRoles) > 0 {
			return dErrors.New(dErrors.CodeFormatInvalid,
				"Non-staff may not have secondary roles")
		}
	}

	if len(out.GuideFor) > 0 {
		if !role.CanGuide {
			return dErrors.New(dErrors.CodeFormatInvalid,
				"Only Guides may guide a country")
		}
		for _, gid := range out.GuideFor {
			gcv, err := lookup.Country(ctx, gid)
			if err != nil || gcv.Retired || gcv.IsStaff || !gcv.ParticipantsOK {
				return dErrors.New(dErrors.CodeFormatInvalid,
					"May only guide normal countries")
			}
		}
	}

	// Non-observer roles are unique per (country, role) for normal
	// countries: at most one Leader, one Contestant 2, and so on.
	if !cv.IsStaff && !role.Observer {
		excludeID := ""
		if !create {
			excludeID = out.ID
		}
		taken, err := lookup.RoleTaken(ctx, out.CountryID, out.PrimaryRole, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return dErrors.New(dErrors.CodeUniqueness,
				"A person with this role already exists")
		}
	}
	return nil
}

func (a *Auditor) auditDateOfBirth(in Input, out *Person, role roles.Capability, skipRequired bool) error {
	dob := out.DateOfBirth
	supplied := in.BirthYear != nil || in.BirthMonth != nil || in.BirthDay != nil
	if supplied {
		year := auditutil.Get(in.BirthYear, "")
		month := auditutil.Get(in.BirthMonth, "")
		day := auditutil.Get(in.BirthDay, "")
		switch {
		case year == "" && month == "" && day == "":
			dob = dates.Date{}
		case year == "":
			return dErrors.New(dErrors.CodeRequiredMissing, "No year of birth specified")
		case month == "":
			return dErrors.New(dErrors.CodeRequiredMissing, "No month of birth specified")
		case day == "":
			return dErrors.New(dErrors.CodeRequiredMissing, "No day of birth specified")
		default:
			y, err := validate.BoundedInt("year_of_birth", year, 9999)
			if err != nil {
				return err
			}
			m, err := validate.BoundedInt("month_of_birth", month, 12)
			if err != nil {
				return err
			}
			d, err := validate.BoundedInt("day_of_birth", day, 31)
			if err != nil {
				return err
			}
			if dob, err = dates.New(y, time.Month(m), d); err != nil {
				return dErrors.New(dErrors.CodeFormatInvalid,
					"Date of birth is not a valid date")
			}
		}
	}

	required := a.cfg.RequireDateOfBirth || role.Contestant
	if dob.IsZero() {
		if required && !skipRequired {
			if role.Contestant {
				return dErrors.New(dErrors.CodeRequiredMissing,
					"No date of birth specified for contestant")
			}
			return dErrors.New(dErrors.CodeRequiredMissing,
				"No date of birth specified")
		}
		out.DateOfBirth = dob
		return nil
	}

	if role.Contestant {
		if !a.cfg.EarliestBirthContestant.IsZero() && dob.Before(a.cfg.EarliestBirthContestant) {
			return dErrors.New(dErrors.CodeFormatInvalid, "Contestant too old")
		}
	} else if !a.cfg.EarliestBirth.IsZero() && dob.Before(a.cfg.EarliestBirth) {
		return dErrors.New(dErrors.CodeFormatInvalid, "Participant implausibly old")
	}
	if !a.cfg.SanityBirth.IsZero() && !dob.Before(a.cfg.SanityBirth) {
		return dErrors.New(dErrors.CodeFormatInvalid, "Participant implausibly young")
	}
	out.DateOfBirth = dob
	return nil
}

func (a *Auditor) auditTravel(in Input, out *Person) error {
	arrival, err := a.auditLeg("Arrival",
		legInput{in.ArrivalPlace, in.ArrivalDate, in.ArrivalHour, in.ArrivalMinute, in.ArrivalFlight},
		out.Arrival, a.cfg.EarliestArrival, a.cfg.LatestArrival)
	if err != nil {
		return err
	}
	departure, err := a.auditLeg("Departure",
		legInput{in.DeparturePlace, in.DepartureDate, in.DepartureHour, in.DepartureMinute, in.DepartureFlight},
		out.Departure, a.cfg.EarliestDeparture, a.cfg.LatestDeparture)
	if err != nil {
		return err
	}

	if !arrival.Date.IsZero() && !departure.Date.IsZero() {
		after := arrival.Date.After(departure.Date)
		if !after && arrival.Date == departure.Date &&
			arrival.Time != nil && departure.Time != nil &&
			departure.Time.Before(*arrival.Time) {
			after = true
		}
		if after {
			return dErrors.New(dErrors.CodeFormatInvalid,
				"Arrival must not be after departure")
		}
	}
	out.Arrival = arrival
	out.Departure = departure
	return nil
}

type legInput struct {
	place, date, hour, minute, flight *string
}

func (a *Auditor) auditLeg(kind string, in legInput, prev TravelLeg, earliest, latest dates.Date) (TravelLeg, error) {
	leg := prev

	place := auditutil.Get(in.place, prev.Place)
	if place != "" && !a.cfg.KnownLocation(place) {
		return TravelLeg{}, dErrors.Newf(dErrors.CodeReferenceInvalid,
			"%s place not recognized", kind)
	}
	leg.Place = place

	if in.date != nil {
		if *in.date == "" {
			leg.Date = dates.Date{}
		} else {
			d, err := dates.Parse(*in.date)
			if err != nil {
				return TravelLeg{}, dErrors.Newf(dErrors.CodeFormatInvalid,
					"%s date is not a valid date", kind)
			}
			leg.Date = d
		}
	}

	hourStr := auditutil.Get(in.hour, prevHour(prev.Time))
	minuteStr := auditutil.Get(in.minute, prevMinute(prev.Time))
	switch {
	case hourStr == "" && minuteStr != "":
		return TravelLeg{}, dErrors.Newf(dErrors.CodeFormatInvalid,
			"%s minute specified without an hour", kind)
	case hourStr == "":
		leg.Time = nil
	default:
		hour, err := validate.BoundedInt(strings.ToLower(kind)+"_hour", hourStr, 23)
		if err != nil {
			return TravelLeg{}, err
		}
		// An hour with no minute means on the hour.
		if minuteStr == "" {
			minuteStr = "0"
		}
		minute, err := validate.BoundedInt(strings.ToLower(kind)+"_minute", minuteStr, 59)
		if err != nil {
			return TravelLeg{}, err
		}
		t, err := dates.NewTimeOfDay(hour, minute)
		if err != nil {
			return TravelLeg{}, dErrors.Newf(dErrors.CodeFormatInvalid,
				"%s time is not valid", kind)
		}
		leg.Time = &t
	}

	if leg.Time != nil && leg.Date.IsZero() {
		return TravelLeg{}, dErrors.Newf(dErrors.CodeFormatInvalid,
			"%s time specified without a date", kind)
	}

	if !leg.Date.IsZero() {
		if !earliest.IsZero() && leg.Date.Before(earliest) {
			return TravelLeg{}, dErrors.Newf(dErrors.CodeFormatInvalid,
				"%s date too early", kind)
		}
		if !latest.IsZero() && leg.Date.After(latest) {
			return TravelLeg{}, dErrors.Newf(dErrors.CodeFormatInvalid,
				"%s date too late", kind)
		}
	}

	leg.Flight = auditutil.Get(in.flight, prev.Flight)
	return leg, nil
}

func (a *Auditor) auditRoom(actor auth.Actor, in Input, out *Person, role roles.Capability) error {
	roomType := auditutil.Get(in.RoomType, out.RoomType)
	switch {
	case roomType == "":
		roomType = role.DefaultRoomType
	case actor.IsAdmin():
		// Administrators may assign any room type verbatim.
	case !role.AllowsRoom(roomType, a.cfg.RoomTypeOverride):
		return dErrors.Newf(dErrors.CodeFormatInvalid,
			"Room type %s not available for role %s", roomType, role.Name)
	}
	out.RoomType = roomType
	out.RoomShareWith = auditutil.Get(in.RoomShareWith, out.RoomShareWith)
	out.RoomNumber = auditutil.Get(in.RoomNumber, out.RoomNumber)
	return nil
}

func (a *Auditor) auditConsent(in Input, out *Person, skipRequired bool) error {
	if !a.cfg.ConsentUI {
		return nil
	}
	if in.EventPhotosConsent != nil {
		out.EventPhotosConsent = in.EventPhotosConsent
	}
	if in.DietConsent != nil {
		out.DietConsent = in.DietConsent
	}
	if in.PhotoConsent != nil {
		switch files.PhotoConsent(*in.PhotoConsent) {
		case files.PhotoConsentNone, files.PhotoConsentBadgeOnly, files.PhotoConsentWebsite:
			out.PhotoConsent = files.PhotoConsent(*in.PhotoConsent)
		case files.PhotoConsentUnset:
			out.PhotoConsent = files.PhotoConsentUnset
		default:
			return dErrors.New(dErrors.CodeFormatInvalid,
				"Photo consent choice not recognized")
		}
	}

	if !skipRequired {
		if out.EventPhotosConsent == nil {
			return dErrors.New(dErrors.CodeRequiredMissing,
				"No event photos consent specified")
		}
		if out.DietConsent == nil {
			return dErrors.New(dErrors.CodeRequiredMissing,
				"No dietary requirements consent specified")
		}
		if out.PhotoFileID != "" && out.PhotoConsent == files.PhotoConsentUnset {
			return dErrors.New(dErrors.CodeRequiredMissing,
				"No photo consent specified")
		}
	}

	// Revoking dietary consent withholds the information rather than
	// erasing it.
	if out.DietConsent != nil && !*out.DietConsent {
		out.Diet = DietUnknown
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func firstOf(languages []string) string {
	if len(languages) > 0 {
		return languages[0]
	}
	return ""
}

func secondOf(languages []string) string {
	if len(languages) > 1 {
		return languages[1]
	}
	return ""
}

func prevHour(t *dates.TimeOfDay) string {
	if t == nil {
		return ""
	}
	return strconv.Itoa(t.Hour)
}

func prevMinute(t *dates.TimeOfDay) string {
	if t == nil {
		return ""
	}
	return strconv.Itoa(t.Minute)
}

func prevStr(prev *Person, get func(*Person) string) string {
	if prev == nil {
		return ""
	}
	return get(prev)
}
