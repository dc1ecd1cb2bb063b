// Package export renders the registration data as CSV spreadsheets. The
// column names match the bulk import schema, so an admin export of one
// event can seed the next. Non-admin viewers get a reduced column set:
// contact and expected-number details on countries, and travel, room,
// phone, passport, and file internals on people, are admin-only.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"olympreg/internal/auth"
	"olympreg/internal/country"
	"olympreg/internal/event"
	"olympreg/internal/person"
	"olympreg/internal/scoring"
	"olympreg/pkg/dates"
	"olympreg/pkg/validate"
)

type Exporter struct {
	cfg       event.Config
	countries country.Store
	people    person.Store
	scores    *scoring.Service
}

func New(cfg event.Config, countries country.Store, people person.Store, scores *scoring.Service) *Exporter {
	return &Exporter{cfg: cfg, countries: countries, people: people, scores: scores}
}

// Countries renders countries.csv, derived fresh from the store on every
// call. Rows are ordered by country code; retired countries are omitted.
func (e *Exporter) Countries(ctx context.Context, actor auth.Actor) ([]byte, error) {
	all, err := e.countries.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	active := make([]country.Country, 0, len(all))
	maxEmails := 0
	for _, c := range all {
		if c.Retired {
			continue
		}
		active = append(active, c)
		if len(c.ContactEmails) > maxEmails {
			maxEmails = len(c.ContactEmails)
		}
	}

	header := []string{"Country Number", "Code", "Name"}
	if actor.IsAdmin() {
		header = append(header,
			"Expected Leaders", "Expected Deputies", "Expected Contestants",
			"Expected Observers with Leader", "Expected Observers with Deputy",
			"Expected Observers with Contestants", "Expected Single Rooms",
			"Leader Email", "Physical Address")
		for n := 1; n <= maxEmails; n++ {
			header = append(header, fmt.Sprintf("Contact Email %d", n))
		}
	}

	rows := make([][]string, 0, len(active))
	for _, c := range active {
		row := []string{e.rosterNumber("country", c.GenericURL), c.Code, c.Name}
		if actor.IsAdmin() {
			ex := c.Expected
			row = append(row,
				countOrBlank(ex.Leaders), countOrBlank(ex.Deputies),
				countOrBlank(ex.Contestants), countOrBlank(ex.ObserversWithLeader),
				countOrBlank(ex.ObserversWithDeputy), countOrBlank(ex.ObserversWithContestants),
				countOrBlank(ex.SingleRooms),
				c.LeaderEmail, c.PhysicalAddress)
			for n := 0; n < maxEmails; n++ {
				if n < len(c.ContactEmails) {
					row = append(row, c.ContactEmails[n])
				} else {
					row = append(row, "")
				}
			}
		}
		rows = append(rows, row)
	}
	return writeCSV(header, rows)
}

var personPublicHeader = []string{
	"Person Number", "Country Code", "Given Name", "Family Name",
	"Primary Role", "Other Roles", "Guide For",
}

var personAdminHeader = []string{
	"Gender", "Date of Birth", "Language 1", "Language 2",
	"Allergies and Dietary Requirements", "T-Shirt Size",
	"Arrival Place", "Arrival Date", "Arrival Time", "Arrival Flight",
	"Departure Place", "Departure Date", "Departure Time", "Departure Flight",
	"Room Type", "Share Room With", "Room Number", "Phone Number",
	"Passport Given Name", "Passport Family Name",
	"Passport or Identity Card Number", "Nationality",
	"Event Photos Consent", "Photo Consent", "Diet Consent",
	"Photo", "Consent Form",
}

// People renders people.csv. Retired registrations are omitted.
func (e *Exporter) People(ctx context.Context, actor auth.Actor) ([]byte, error) {
	people, err := e.people.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	codeByID, err := e.countryCodes(ctx)
	if err != nil {
		return nil, err
	}

	header := personPublicHeader
	if actor.IsAdmin() {
		header = append(append([]string{}, personPublicHeader...), personAdminHeader...)
	}

	rows := make([][]string, 0, len(people))
	for _, p := range people {
		if p.Retired {
			continue
		}
		guideFor := make([]string, 0, len(p.GuideFor))
		for _, id := range p.GuideFor {
			guideFor = append(guideFor, codeByID[id])
		}
		row := []string{
			e.rosterNumber("person", p.GenericURL), codeByID[p.CountryID],
			p.GivenName, p.FamilyName,
			p.PrimaryRole, strings.Join(p.OtherRoles, ","), strings.Join(guideFor, ","),
		}
		if actor.IsAdmin() {
			row = append(row,
				p.Gender, dateOrBlank(p.DateOfBirth),
				languageAt(p.Languages, 0), languageAt(p.Languages, 1),
				p.Diet, p.TShirt,
				p.Arrival.Place, dateOrBlank(p.Arrival.Date), timeOrBlank(p.Arrival.Time), p.Arrival.Flight,
				p.Departure.Place, dateOrBlank(p.Departure.Date), timeOrBlank(p.Departure.Time), p.Departure.Flight,
				p.RoomType, p.RoomShareWith, p.RoomNumber, p.PhoneNumber,
				p.PassportGivenName, p.PassportFamilyName,
				p.PassportNumber, p.Nationality,
				yesNoOrBlank(p.EventPhotosConsent), string(p.PhotoConsent), yesNoOrBlank(p.DietConsent),
				p.PhotoFileID, p.ConsentFormFileID)
		}
		rows = append(rows, row)
	}
	return writeCSV(header, rows)
}

// Scores renders scores.csv: one row per active contestant with per-problem
// cells, the total, and the award once medal boundaries are set. The same
// columns serve both admin and public viewers.
func (e *Exporter) Scores(ctx context.Context) ([]byte, error) {
	standings, err := e.scores.Standings(ctx)
	if err != nil {
		return nil, fmt.Errorf("standings: %w", err)
	}
	codeByID, err := e.countryCodes(ctx)
	if err != nil {
		return nil, err
	}

	header := []string{"Country Code", "Given Name", "Family Name"}
	for p := 1; p <= e.cfg.NumProblems; p++ {
		header = append(header, fmt.Sprintf("P%d", p))
	}
	header = append(header, "Total", "Award")

	rows := make([][]string, 0, len(standings))
	for _, st := range standings {
		row := []string{codeByID[st.CountryID], st.GivenName, st.FamilyName}
		for p := 1; p <= e.cfg.NumProblems; p++ {
			if score, ok := st.Scores[p]; ok {
				row = append(row, strconv.Itoa(score))
			} else {
				row = append(row, "")
			}
		}
		row = append(row, strconv.Itoa(st.Total), st.Award)
		rows = append(rows, row)
	}
	return writeCSV(header, rows)
}

func (e *Exporter) countryCodes(ctx context.Context) (map[string]string, error) {
	all, err := e.countries.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	out := make(map[string]string, len(all))
	for _, c := range all {
		out[c.ID] = c.Code
	}
	return out, nil
}

// rosterNumber recovers the roster number from a previous-participation URL.
// Records without one get a blank cell.
func (e *Exporter) rosterNumber(kind, url string) string {
	if url == "" {
		return ""
	}
	n, err := validate.GenericURL(e.cfg.GenericURLBase, kind, url, nil)
	if err != nil {
		return ""
	}
	return strconv.Itoa(n)
}

func writeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func countOrBlank(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func dateOrBlank(d dates.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func timeOrBlank(t *dates.TimeOfDay) string {
	if t == nil {
		return ""
	}
	return t.String()
}

func languageAt(langs []string, i int) string {
	if i < len(langs) {
		return langs[i]
	}
	return ""
}

func yesNoOrBlank(b *bool) string {
	switch {
	case b == nil:
		return ""
	case *b:
		return "Yes"
	default:
		return "No"
	}
}
