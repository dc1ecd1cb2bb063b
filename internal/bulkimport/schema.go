package bulkimport

import (
	"fmt"
	"strings"

	"olympreg/internal/country"
	"olympreg/internal/files"
	"olympreg/internal/person"
	dErrors "olympreg/pkg/domain-errors"
	"olympreg/pkg/validate"
)

// column describes one recognized header of an import schema. Required
// columns must be present in every row; unique columns may not repeat
// within a batch.
type column struct {
	name          string
	required      bool
	uniqueInBatch bool
}

var countrySchema = []column{
	{name: "Country Number", uniqueInBatch: true},
	{name: "Code", required: true, uniqueInBatch: true},
	{name: "Name", required: true, uniqueInBatch: true},
	{name: "Expected Leaders"},
	{name: "Expected Deputies"},
	{name: "Expected Contestants"},
	{name: "Expected Observers with Leader"},
	{name: "Expected Observers with Deputy"},
	{name: "Expected Observers with Contestants"},
	{name: "Expected Single Rooms"},
	{name: "Leader Email"},
	{name: "Physical Address"},
	{name: "Flag"},
}

var personSchema = []column{
	{name: "Person Number", uniqueInBatch: true},
	{name: "Country Code", required: true},
	{name: "Given Name", required: true},
	{name: "Family Name", required: true},
	{name: "Primary Role", required: true},
	{name: "Other Roles"},
	{name: "Guide For"},
	{name: "Gender"},
	{name: "Date of Birth"},
	{name: "Language 1"},
	{name: "Language 2"},
	{name: "Allergies and Dietary Requirements"},
	{name: "T-Shirt Size"},
	{name: "Arrival Place"},
	{name: "Arrival Date"},
	{name: "Arrival Time"},
	{name: "Arrival Flight"},
	{name: "Departure Place"},
	{name: "Departure Date"},
	{name: "Departure Time"},
	{name: "Departure Flight"},
	{name: "Room Type"},
	{name: "Share Room With"},
	{name: "Room Number"},
	{name: "Phone Number"},
	{name: "Passport Given Name"},
	{name: "Passport Family Name"},
	{name: "Passport or Identity Card Number"},
	{name: "Nationality"},
	{name: "Event Photos Consent"},
	{name: "Photo Consent"},
	{name: "Diet Consent"},
	{name: "Photo"},
	{name: "Consent Form"},
}

// checkSchema enforces the required and unique-in-batch column rules before
// any auditing happens. Row numbers are 1-based with the header as row 0.
func checkSchema(schema []column, rows []Row) error {
	seen := make(map[string]map[string]int)
	for i, row := range rows {
		n := i + 1
		for _, col := range schema {
			value, ok := row[col.name]
			if col.required && !ok {
				return dErrors.Newf(dErrors.CodeRequiredMissing,
					"row %d: no %s specified", n, col.name)
			}
			if col.uniqueInBatch && ok {
				if seen[col.name] == nil {
					seen[col.name] = make(map[string]int)
				}
				if first, dup := seen[col.name][value]; dup {
					return dErrors.Newf(dErrors.CodeUniqueness,
						"row %d: %s %s already used in row %d",
						n, col.name, value, first)
				}
				seen[col.name][value] = n
			}
		}
	}
	return nil
}

func optional(row Row, name string) *string {
	if value, ok := row[name]; ok {
		v := value
		return &v
	}
	return nil
}

// numberURL turns a roster number column into a previous-participation URL,
// the way exports write them. Non-numeric values are left for the auditor to
// reject via the URL validator.
func numberURL(base, kind, number string) string {
	return fmt.Sprintf("%s%s%s/", base, kind, number)
}

// contactEmails gathers the Contact Email 1..N columns, stopping at the
// first gap.
func contactEmails(row Row) *string {
	first, ok := row["Contact Email 1"]
	if !ok {
		return nil
	}
	emails := []string{first}
	for n := 2; ; n++ {
		next, ok := row[fmt.Sprintf("Contact Email %d", n)]
		if !ok {
			break
		}
		emails = append(emails, next)
	}
	joined := strings.Join(emails, ",")
	return &joined
}

// countryInput maps one CSV row onto the single-record audit input.
func (im *Importer) countryInput(row Row, attachments map[string][]byte) (country.Input, error) {
	in := country.Input{
		Code:                             optional(row, "Code"),
		Name:                             optional(row, "Name"),
		ContactEmail:                     contactEmails(row),
		ExpectedLeaders:                  optional(row, "Expected Leaders"),
		ExpectedDeputies:                 optional(row, "Expected Deputies"),
		ExpectedContestants:              optional(row, "Expected Contestants"),
		ExpectedObserversWithLeader:      optional(row, "Expected Observers with Leader"),
		ExpectedObserversWithDeputy:      optional(row, "Expected Observers with Deputy"),
		ExpectedObserversWithContestants: optional(row, "Expected Observers with Contestants"),
		ExpectedSingleRooms:              optional(row, "Expected Single Rooms"),
		LeaderEmail:                      optional(row, "Leader Email"),
		PhysicalAddress:                  optional(row, "Physical Address"),
	}
	if number, ok := row["Country Number"]; ok {
		url := numberURL(im.cfg.GenericURLBase, "country", number)
		in.GenericURL = &url
	}
	if name, ok := row["Flag"]; ok {
		content, found := attachments[name]
		if !found {
			return country.Input{}, dErrors.Newf(dErrors.CodeReferenceInvalid,
				"flag file %s not in uploaded archive", name)
		}
		in.Flag = &files.Upload{Filename: name, Content: content}
	}
	return in, nil
}

// personInput maps one CSV row onto the single-record audit input.
// countryIDByCode resolves Country Code and Guide For references.
func (im *Importer) personInput(row Row, countryIDByCode map[string]string, attachments map[string][]byte) (person.Input, error) {
	in := person.Input{
		GivenName:          optional(row, "Given Name"),
		FamilyName:         optional(row, "Family Name"),
		Gender:             optional(row, "Gender"),
		PrimaryRole:        optional(row, "Primary Role"),
		FirstLanguage:      optional(row, "Language 1"),
		SecondLanguage:     optional(row, "Language 2"),
		Diet:               optional(row, "Allergies and Dietary Requirements"),
		TShirt:             optional(row, "T-Shirt Size"),
		ArrivalPlace:       optional(row, "Arrival Place"),
		ArrivalDate:        optional(row, "Arrival Date"),
		ArrivalFlight:      optional(row, "Arrival Flight"),
		DeparturePlace:     optional(row, "Departure Place"),
		DepartureDate:      optional(row, "Departure Date"),
		DepartureFlight:    optional(row, "Departure Flight"),
		RoomType:           optional(row, "Room Type"),
		RoomShareWith:      optional(row, "Share Room With"),
		RoomNumber:         optional(row, "Room Number"),
		PhoneNumber:        optional(row, "Phone Number"),
		PassportGivenName:  optional(row, "Passport Given Name"),
		PassportFamilyName: optional(row, "Passport Family Name"),
		PassportNumber:     optional(row, "Passport or Identity Card Number"),
		Nationality:        optional(row, "Nationality"),
		PhotoConsent:       optional(row, "Photo Consent"),
	}

	if code, ok := row["Country Code"]; ok {
		id, found := countryIDByCode[code]
		if !found {
			return person.Input{}, dErrors.New(dErrors.CodeReferenceInvalid,
				"Invalid country")
		}
		in.CountryID = &id
	}
	if number, ok := row["Person Number"]; ok {
		url := numberURL(im.cfg.GenericURLBase, "person", number)
		in.GenericURL = &url
	}

	if value, ok := row["Other Roles"]; ok {
		roles, err := commaSplit("Other Roles", value)
		if err != nil {
			return person.Input{}, err
		}
		in.OtherRoles = &roles
	}
	if value, ok := row["Guide For"]; ok {
		codes, err := commaSplit("Guide For", value)
		if err != nil {
			return person.Input{}, err
		}
		ids := make([]string, 0, len(codes))
		for _, code := range codes {
			id, found := countryIDByCode[code]
			if !found {
				return person.Input{}, dErrors.Newf(dErrors.CodeFormatInvalid,
					"May only guide normal countries")
			}
			ids = append(ids, id)
		}
		in.GuideFor = &ids
	}

	if dob, ok := row["Date of Birth"]; ok {
		parts := strings.SplitN(dob, "-", 3)
		if len(parts) != 3 {
			return person.Input{}, dErrors.New(dErrors.CodeFormatInvalid,
				"Date of birth is not a valid date")
		}
		year := strings.TrimLeft(parts[0], "0")
		month := strings.TrimLeft(parts[1], "0")
		day := strings.TrimLeft(parts[2], "0")
		in.BirthYear, in.BirthMonth, in.BirthDay = &year, &month, &day
	}

	var err error
	if in.ArrivalHour, in.ArrivalMinute, err = splitTime("Arrival", row["Arrival Time"]); err != nil {
		return person.Input{}, err
	}
	if in.DepartureHour, in.DepartureMinute, err = splitTime("Departure", row["Departure Time"]); err != nil {
		return person.Input{}, err
	}

	if in.EventPhotosConsent, err = yesNo("Event Photos Consent", row); err != nil {
		return person.Input{}, err
	}
	if in.DietConsent, err = yesNo("Diet Consent", row); err != nil {
		return person.Input{}, err
	}

	for name, target := range map[string]**files.Upload{
		"Photo":        &in.Photo,
		"Consent Form": &in.ConsentForm,
	} {
		filename, ok := row[name]
		if !ok {
			continue
		}
		content, found := attachments[filename]
		if !found {
			return person.Input{}, dErrors.Newf(dErrors.CodeReferenceInvalid,
				"%s file %s not in uploaded archive", strings.ToLower(name), filename)
		}
		*target = &files.Upload{Filename: filename, Content: content}
	}
	return in, nil
}

func splitTime(kind, value string) (*string, *string, error) {
	if value == "" {
		return nil, nil, nil
	}
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return nil, nil, dErrors.Newf(dErrors.CodeFormatInvalid,
			"%s time is not valid", kind)
	}
	hour := strings.TrimLeft(parts[0], "0")
	if hour == "" {
		hour = "0"
	}
	minute := strings.TrimLeft(parts[1], "0")
	if minute == "" {
		minute = "0"
	}
	if _, err := validate.BoundedInt(strings.ToLower(kind)+"_hour", hour, 23); err != nil {
		return nil, nil, err
	}
	if _, err := validate.BoundedInt(strings.ToLower(kind)+"_minute", minute, 59); err != nil {
		return nil, nil, err
	}
	return &hour, &minute, nil
}

func yesNo(name string, row Row) (*bool, error) {
	value, ok := row[name]
	if !ok {
		return nil, nil
	}
	switch value {
	case "Yes":
		b := true
		return &b, nil
	case "No":
		b := false
		return &b, nil
	default:
		return nil, dErrors.Newf(dErrors.CodeFormatInvalid,
			"%s must be Yes or No", name)
	}
}
