package country

import (
	"context"
	"regexp"

	"olympreg/internal/auditutil"
	"olympreg/internal/auth"
	"olympreg/internal/event"
	"olympreg/internal/files"
	dErrors "olympreg/pkg/domain-errors"
	"olympreg/pkg/validate"
)

// MaxExpected bounds every expected_* field.
const MaxExpected = 99

var codeRe = regexp.MustCompile(`^[A-Z]+$`)

// Lookup is the store view the auditor checks uniqueness against. Bulk import
// supplies an overlay that includes rows already accepted in the batch.
type Lookup interface {
	// CodeInUse reports whether a non-retired country other than excludeID
	// has exactly this code.
	CodeInUse(ctx context.Context, code, excludeID string) (bool, error)
	// NameInUse is the same check for names.
	NameInUse(ctx context.Context, name, excludeID string) (bool, error)
}

// Auditor validates and normalizes one country create or edit.
type Auditor struct {
	cfg event.Config
}

func NewAuditor(cfg event.Config) *Auditor {
	return &Auditor{cfg: cfg}
}

// Audit applies the full rulebook. prev is nil on create. On success it
// returns the normalized record and, when a flag was uploaded, the validated
// file; the caller commits both.
func (a *Auditor) Audit(ctx context.Context, state event.State, actor auth.Actor, in Input, prev *Country, lookup Lookup) (Country, *files.File, error) {
	create := prev == nil
	var out Country
	if !create {
		out = *prev
	}

	code, err := auditutil.Require("code", "No country code specified", in.Code, prevStr(prev, func(c *Country) string { return c.Code }), create)
	if err != nil {
		return Country{}, nil, err
	}
	if !codeRe.MatchString(code) {
		return Country{}, nil, dErrors.New(dErrors.CodeFormatInvalid,
			"Country codes must be all capital letters")
	}
	name, err := auditutil.Require("name", "No country name specified", in.Name, prevStr(prev, func(c *Country) string { return c.Name }), create)
	if err != nil {
		return Country{}, nil, err
	}

	excludeID := ""
	if !create {
		excludeID = prev.ID
	}
	// Exact-match collisions only; substrings of other codes and names are
	// explicitly allowed.
	inUse, err := lookup.CodeInUse(ctx, code, excludeID)
	if err != nil {
		return Country{}, nil, err
	}
	if inUse {
		return Country{}, nil, dErrors.Newf(dErrors.CodeUniqueness,
			"A country with code %s already exists", code)
	}
	inUse, err = lookup.NameInUse(ctx, name, excludeID)
	if err != nil {
		return Country{}, nil, err
	}
	if inUse {
		return Country{}, nil, dErrors.Newf(dErrors.CodeUniqueness,
			"A country with name %s already exists", name)
	}
	out.Code = code
	out.Name = name

	// is_staff and participants_ok are fixed at creation.
	if create {
		out.IsStaff = auditutil.GetBool(in.IsStaff, false)
		out.ParticipantsOK = auditutil.GetBool(in.ParticipantsOK, true)
	} else {
		if in.IsStaff != nil && *in.IsStaff != prev.IsStaff {
			return Country{}, nil, dErrors.New(dErrors.CodePermissionDenied,
				"Whether a country is a staff country cannot be changed")
		}
		if in.ParticipantsOK != nil && *in.ParticipantsOK != prev.ParticipantsOK {
			return Country{}, nil, dErrors.New(dErrors.CodePermissionDenied,
				"Whether a country can have participants cannot be changed")
		}
	}

	expected, err := a.auditExpected(in, prev, out.IsStaff)
	if err != nil {
		return Country{}, nil, err
	}
	out.Expected = expected
	out.NumbersConfirmed = auditutil.GetBool(in.NumbersConfirmed, out.NumbersConfirmed)

	if in.ContactEmail != nil {
		emails, err := validate.EmailList("contact_email", *in.ContactEmail)
		if err != nil {
			return Country{}, nil, err
		}
		out.ContactEmails = emails
	}
	if in.ContactExtra != nil {
		emails, err := validate.EmailList("contact_extra", *in.ContactExtra)
		if err != nil {
			return Country{}, nil, err
		}
		out.ContactExtra = emails
	}

	genericURL := auditutil.Get(in.GenericURL, out.GenericURL)
	if genericURL != "" {
		if _, err := validate.GenericURL(a.cfg.GenericURLBase, "country", genericURL, a.cfg.CountryRoster); err != nil {
			return Country{}, nil, err
		}
	}
	out.GenericURL = genericURL

	var flag *files.File
	if in.Flag != nil {
		f, err := files.New(files.KindFlag, *in.Flag)
		if err != nil {
			return Country{}, nil, err
		}
		flag = &f
		out.FlagFileID = f.ID
	}

	if a.cfg.VirtualEvent {
		leaderEmail := auditutil.Get(in.LeaderEmail, out.LeaderEmail)
		if leaderEmail != "" {
			if err := validate.Email("leader_email", leaderEmail); err != nil {
				return Country{}, nil, err
			}
		}
		out.LeaderEmail = leaderEmail
		out.PhysicalAddress = auditutil.Get(in.PhysicalAddress, out.PhysicalAddress)
	}

	if !actor.IsAdmin() && !create {
		if err := a.auditPreregistration(state, in, prev, out); err != nil {
			return Country{}, nil, err
		}
	}
	if !actor.IsAdmin() && create {
		return Country{}, nil, dErrors.New(dErrors.CodePermissionDenied,
			"Only administrators may create countries")
	}

	return out, flag, nil
}

func (a *Auditor) auditExpected(in Input, prev *Country, isStaff bool) (Expected, error) {
	var out Expected
	if prev != nil {
		out = prev.Expected
	}
	fields := []struct {
		name     string
		proposed *string
		dst      *int
	}{
		{"expected_leaders", in.ExpectedLeaders, &out.Leaders},
		{"expected_deputies", in.ExpectedDeputies, &out.Deputies},
		{"expected_contestants", in.ExpectedContestants, &out.Contestants},
		{"expected_observers_a", in.ExpectedObserversWithLeader, &out.ObserversWithLeader},
		{"expected_observers_b", in.ExpectedObserversWithDeputy, &out.ObserversWithDeputy},
		{"expected_observers_c", in.ExpectedObserversWithContestants, &out.ObserversWithContestants},
		{"expected_single_rooms", in.ExpectedSingleRooms, &out.SingleRooms},
	}
	for _, f := range fields {
		if f.proposed == nil || *f.proposed == "" {
			continue
		}
		n, err := validate.BoundedInt(f.name, *f.proposed, MaxExpected)
		if err != nil {
			return Expected{}, err
		}
		if isStaff && n != 0 {
			return Expected{}, dErrors.New(dErrors.CodeFormatInvalid,
				"Staff country may not have expected numbers of participants")
		}
		*f.dst = n
	}
	return out, nil
}

// auditPreregistration restricts what a delegate may change and enforces the
// preregistration gate. A resubmission carrying no actual change is always
// permitted regardless of the flag.
func (a *Auditor) auditPreregistration(state event.State, in Input, prev *Country, out Country) error {
	if out.Code != prev.Code || out.Name != prev.Name ||
		out.GenericURL != prev.GenericURL || in.Flag != nil ||
		!emailsEqual(out.ContactEmails, prev.ContactEmails) ||
		!emailsEqual(out.ContactExtra, prev.ContactExtra) {
		return dErrors.New(dErrors.CodePermissionDenied,
			"Registering users may only change expected numbers and contact details")
	}
	changed := out.Expected != prev.Expected ||
		out.NumbersConfirmed != prev.NumbersConfirmed ||
		out.LeaderEmail != prev.LeaderEmail ||
		out.PhysicalAddress != prev.PhysicalAddress
	if changed && !state.PreregistrationEnabled {
		return dErrors.New(dErrors.CodeStateConflict,
			"preregistration is now disabled")
	}
	return nil
}

func emailsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func prevStr(prev *Country, get func(*Country) string) string {
	if prev == nil {
		return ""
	}
	return get(prev)
}
