package country

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"olympreg/internal/auth"
	"olympreg/internal/event"
	"olympreg/internal/files"
	dErrors "olympreg/pkg/domain-errors"
)

var (
	admin    = auth.Actor{Kind: auth.KindAdmin}
	pngStub  = append([]byte("\x89PNG\r\n\x1a\n"), 'x')
	jpegStub = append([]byte("\xff\xd8\xff"), 'x')
)

func str(s string) *string { return &s }
func boolp(b bool) *bool   { return &b }

func testConfig() event.Config {
	return event.Config{
		ShortName:      "XMO",
		Year:           "2026",
		GenericURLBase: "https://www.example.org/registry/",
	}
}

func newTestAuditor(t *testing.T) (*Auditor, *InMemoryStore) {
	t.Helper()
	return NewAuditor(testConfig()), NewInMemoryStore()
}

func seed(t *testing.T, store *InMemoryStore, c Country) Country {
	t.Helper()
	require.NoError(t, store.Save(context.Background(), c))
	return c
}

func minimalInput() Input {
	return Input{Code: str("ZZA"), Name: str("Zedland")}
}

func TestAuditCreateMinimal(t *testing.T) {
	auditor, store := newTestAuditor(t)
	out, flag, err := auditor.Audit(context.Background(), event.State{}, admin, minimalInput(), nil, store)
	require.NoError(t, err)
	assert.Nil(t, flag)
	assert.Equal(t, "ZZA", out.Code)
	assert.Equal(t, "Zedland", out.Name)
	assert.True(t, out.ParticipantsOK)
	assert.False(t, out.IsStaff)
}

func TestAuditRequiredFields(t *testing.T) {
	auditor, store := newTestAuditor(t)
	ctx := context.Background()

	// Silent omission names the field.
	_, _, err := auditor.Audit(ctx, event.State{}, admin, Input{Name: str("Zedland")}, nil, store)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRequiredMissing))
	assert.Equal(t, "required field code not supplied", err.Error())

	// Acknowledged omission gets the friendlier phrasing.
	_, _, err = auditor.Audit(ctx, event.State{}, admin, Input{Code: str(""), Name: str("Zedland")}, nil, store)
	require.Error(t, err)
	assert.Equal(t, "No country code specified", err.Error())

	_, _, err = auditor.Audit(ctx, event.State{}, admin, Input{Code: str("ZZA"), Name: str("")}, nil, store)
	require.Error(t, err)
	assert.Equal(t, "No country name specified", err.Error())
}

func TestAuditCodeShape(t *testing.T) {
	auditor, store := newTestAuditor(t)
	for _, bad := range []string{"Abc", "zza", "ZZ1", "ZZ A", "ZZ-"} {
		in := Input{Code: str(bad), Name: str("Zedland")}
		_, _, err := auditor.Audit(context.Background(), event.State{}, admin, in, nil, store)
		require.Error(t, err, bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeFormatInvalid))
		assert.Equal(t, "Country codes must be all capital letters", err.Error())
	}
}

func TestAuditUniqueness(t *testing.T) {
	auditor, store := newTestAuditor(t)
	ctx := context.Background()
	seed(t, store, Country{ID: "c1", Code: "ZZA", Name: "Zedland", ParticipantsOK: true})

	_, _, err := auditor.Audit(ctx, event.State{}, admin, Input{Code: str("ZZA"), Name: str("Other")}, nil, store)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUniqueness))
	assert.Equal(t, "A country with code ZZA already exists", err.Error())

	_, _, err = auditor.Audit(ctx, event.State{}, admin, Input{Code: str("OTH"), Name: str("Zedland")}, nil, store)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUniqueness))

	// Substrings of existing codes and names are explicitly allowed.
	_, _, err = auditor.Audit(ctx, event.State{}, admin, Input{Code: str("ZZ"), Name: str("Zed")}, nil, store)
	require.NoError(t, err)

	// Retired countries do not block reuse.
	seed(t, store, Country{ID: "c2", Code: "RET", Name: "Has Retired", Retired: true})
	_, _, err = auditor.Audit(ctx, event.State{}, admin, Input{Code: str("RET"), Name: str("Fresh")}, nil, store)
	require.NoError(t, err)

	// Editing a country does not collide with itself.
	prev := Country{ID: "c1", Code: "ZZA", Name: "Zedland", ParticipantsOK: true}
	_, _, err = auditor.Audit(ctx, event.State{}, admin, Input{Code: str("ZZA"), Name: str("Zedland Renamed")}, &prev, store)
	require.NoError(t, err)
}

func TestAuditImmutableFlags(t *testing.T) {
	auditor, store := newTestAuditor(t)
	prev := Country{ID: "c1", Code: "ZZA", Name: "Zedland", IsStaff: false, ParticipantsOK: true}

	_, _, err := auditor.Audit(context.Background(), event.State{}, admin, Input{IsStaff: boolp(true)}, &prev, store)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodePermissionDenied))

	_, _, err = auditor.Audit(context.Background(), event.State{}, admin, Input{ParticipantsOK: boolp(false)}, &prev, store)
	require.Error(t, err)

	// Restating the current values is fine.
	_, _, err = auditor.Audit(context.Background(), event.State{}, admin, Input{IsStaff: boolp(false), ParticipantsOK: boolp(true)}, &prev, store)
	require.NoError(t, err)
}

func TestAuditExpectedNumbers(t *testing.T) {
	auditor, store := newTestAuditor(t)
	ctx := context.Background()

	for _, bad := range []string{"-1", "01", "1x", "100"} {
		in := minimalInput()
		in.ExpectedContestants = str(bad)
		_, _, err := auditor.Audit(ctx, event.State{}, admin, in, nil, store)
		require.Error(t, err, bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeFormatInvalid))
	}

	in := minimalInput()
	in.ExpectedContestants = str("0")
	in.ExpectedSingleRooms = str("2")
	out, _, err := auditor.Audit(ctx, event.State{}, admin, in, nil, store)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Expected.Contestants)
	assert.Equal(t, 2, out.Expected.SingleRooms)

	// A staff country must leave expected numbers at their default.
	staffIn := Input{Code: str("STF"), Name: str("XMO 2026 Staff"), IsStaff: boolp(true), ExpectedLeaders: str("1")}
	_, _, err = auditor.Audit(ctx, event.State{}, admin, staffIn, nil, store)
	require.Error(t, err)
	assert.Equal(t, "Staff country may not have expected numbers of participants", err.Error())

	staffIn.ExpectedLeaders = str("0")
	_, _, err = auditor.Audit(ctx, event.State{}, admin, staffIn, nil, store)
	require.NoError(t, err)
}

func TestAuditContactEmails(t *testing.T) {
	auditor, store := newTestAuditor(t)
	in := minimalInput()
	in.ContactEmail = str("leader@example.org, second@example.org")
	out, _, err := auditor.Audit(context.Background(), event.State{}, admin, in, nil, store)
	require.NoError(t, err)
	assert.Len(t, out.ContactEmails, 2)

	in.ContactEmail = str("not an address")
	_, _, err = auditor.Audit(context.Background(), event.State{}, admin, in, nil, store)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeFormatInvalid))
}

func TestAuditGenericURL(t *testing.T) {
	cfg := testConfig()
	cfg.CountryRoster = map[int]bool{7: true}
	auditor := NewAuditor(cfg)
	store := NewInMemoryStore()
	ctx := context.Background()

	in := minimalInput()
	in.GenericURL = str(cfg.GenericURLBase + "country7/")
	_, _, err := auditor.Audit(ctx, event.State{}, admin, in, nil, store)
	require.NoError(t, err)

	in.GenericURL = str(cfg.GenericURLBase + "country8/")
	_, _, err = auditor.Audit(ctx, event.State{}, admin, in, nil, store)
	require.Error(t, err)
	assert.Equal(t, "example URL for previous participation not valid", err.Error())

	in.GenericURL = str(cfg.GenericURLBase + "country07/")
	_, _, err = auditor.Audit(ctx, event.State{}, admin, in, nil, store)
	require.Error(t, err)
}

func TestAuditFlagUpload(t *testing.T) {
	auditor, store := newTestAuditor(t)
	in := minimalInput()
	in.Flag = &files.Upload{Filename: "flag.png", Content: pngStub}
	out, flag, err := auditor.Audit(context.Background(), event.State{}, admin, in, nil, store)
	require.NoError(t, err)
	require.NotNil(t, flag)
	assert.Equal(t, files.FormatPNG, flag.Format)
	assert.Equal(t, flag.ID, out.FlagFileID)

	in.Flag = &files.Upload{Filename: "flag.png", Content: jpegStub}
	_, _, err = auditor.Audit(context.Background(), event.State{}, admin, in, nil, store)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeFormatInvalid))
}

func TestAuditVirtualEvent(t *testing.T) {
	cfg := testConfig()
	cfg.VirtualEvent = true
	auditor := NewAuditor(cfg)
	store := NewInMemoryStore()

	in := minimalInput()
	in.LeaderEmail = str("leader@example.org")
	in.PhysicalAddress = str("1 Main Street")
	out, _, err := auditor.Audit(context.Background(), event.State{}, admin, in, nil, store)
	require.NoError(t, err)
	assert.Equal(t, "leader@example.org", out.LeaderEmail)
	assert.Equal(t, "1 Main Street", out.PhysicalAddress)

	in.LeaderEmail = str("bogus")
	_, _, err = auditor.Audit(context.Background(), event.State{}, admin, in, nil, store)
	require.Error(t, err)
}

func TestAuditPreregistration(t *testing.T) {
	auditor, store := newTestAuditor(t)
	ctx := context.Background()
	prev := Country{ID: "c1", Code: "ZZA", Name: "Zedland", ParticipantsOK: true,
		Expected: Expected{Contestants: 4}}
	delegate := auth.Actor{Kind: auth.KindDelegate, CountryID: "c1"}
	enabled := event.State{PreregistrationEnabled: true}
	disabled := event.State{PreregistrationEnabled: false}

	// Delegates may change expected numbers while preregistration is open.
	in := Input{ExpectedContestants: str("6")}
	out, _, err := auditor.Audit(ctx, enabled, delegate, in, &prev, store)
	require.NoError(t, err)
	assert.Equal(t, 6, out.Expected.Contestants)

	// But not identity fields.
	_, _, err = auditor.Audit(ctx, enabled, delegate, Input{Name: str("New Zedland")}, &prev, store)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodePermissionDenied))

	// With preregistration disabled, an actual change is rejected...
	_, _, err = auditor.Audit(ctx, disabled, delegate, Input{ExpectedContestants: str("6")}, &prev, store)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeStateConflict))
	assert.Equal(t, "preregistration is now disabled", err.Error())

	// ...but a no-op resubmission of the stored values is always permitted.
	_, _, err = auditor.Audit(ctx, disabled, delegate, Input{ExpectedContestants: str("4")}, &prev, store)
	require.NoError(t, err)

	// Delegates cannot create countries at all.
	_, _, err = auditor.Audit(ctx, enabled, delegate, minimalInput(), nil, store)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodePermissionDenied))
}
