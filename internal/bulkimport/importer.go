package bulkimport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"olympreg/internal/audit"
	"olympreg/internal/auth"
	"olympreg/internal/country"
	"olympreg/internal/event"
	"olympreg/internal/files"
	"olympreg/internal/person"
	"olympreg/internal/platform/metrics"
	dErrors "olympreg/pkg/domain-errors"
	"olympreg/pkg/platform/sentinel"
)

// Options select how one uploaded batch is processed.
type Options struct {
	// Delimiter is ',' or ';'. Anything else falls back to ','.
	Delimiter rune
	// CheckOnly runs the full validation pass but commits nothing. The
	// check stage of two-stage imports uses it.
	CheckOnly bool
	// Archive is an optional ZIP of attachments referenced by the Photo,
	// Consent Form, and Flag columns.
	Archive []byte
}

// Result reports a finished batch.
type Result struct {
	Rows      int
	Committed int
}

// Importer runs bulk registration: every row goes through the same auditor
// as a single-record form, validated against the store plus the rows already
// accepted in this batch, and nothing commits until the whole file passes.
type Importer struct {
	cfg       event.Config
	countries *country.Service
	people    *person.Service
	fileSt    files.Store
	events    event.Store
	pub       audit.Publisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	logger    *slog.Logger
}

func NewImporter(cfg event.Config, countries *country.Service, people *person.Service, fileSt files.Store, events event.Store, pub audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Importer {
	return &Importer{
		cfg:       cfg,
		countries: countries,
		people:    people,
		fileSt:    fileSt,
		events:    events,
		pub:       pub,
		metrics:   m,
		tracer:    otel.Tracer("olympreg/bulkimport"),
		logger:    logger,
	}
}

// countryOverlay widens the uniqueness view with rows accepted earlier in
// the batch, so a file may not register the same code twice.
type countryOverlay struct {
	store    country.Store
	accepted []country.Country
}

func (o *countryOverlay) CodeInUse(ctx context.Context, code, excludeID string) (bool, error) {
	for _, c := range o.accepted {
		if c.Code == code {
			return true, nil
		}
	}
	return o.store.CodeInUse(ctx, code, excludeID)
}

func (o *countryOverlay) NameInUse(ctx context.Context, name, excludeID string) (bool, error) {
	for _, c := range o.accepted {
		if c.Name == name {
			return true, nil
		}
	}
	return o.store.NameInUse(ctx, name, excludeID)
}

// personOverlay is the same idea for role seats.
type personOverlay struct {
	person.CountryDirectory
	store    person.Store
	accepted []person.Person
}

func (o *personOverlay) RoleTaken(ctx context.Context, countryID, role, excludeID string) (bool, error) {
	for _, p := range o.accepted {
		if p.CountryID == countryID && p.PrimaryRole == role {
			return true, nil
		}
	}
	return o.store.RoleTaken(ctx, countryID, role, excludeID)
}

type countryCommit struct {
	row     int
	country country.Country
	flag    *files.File
}

// ImportCountries processes one uploaded country spreadsheet.
func (im *Importer) ImportCountries(ctx context.Context, actor auth.Actor, data []byte, opts Options) (Result, error) {
	if !actor.IsAdmin() {
		return Result{}, dErrors.New(dErrors.CodePermissionDenied,
			"Only administrators may bulk register")
	}
	rows, attachments, state, err := im.prepare(ctx, data, opts)
	if err != nil {
		return Result{}, im.failed(err)
	}
	if err := checkSchema(countrySchema, rows); err != nil {
		return Result{}, im.failed(err)
	}

	ctx, span := im.tracer.Start(ctx, "bulkimport.validate_countries",
		trace.WithAttributes(attribute.Int("rows", len(rows))))
	overlay := &countryOverlay{store: im.countries.Store()}
	commits := make([]countryCommit, 0, len(rows))
	for i, row := range rows {
		n := i + 1
		in, err := im.countryInput(row, attachments)
		if err != nil {
			span.End()
			return Result{}, im.failed(rowErr(n, err))
		}
		out, flag, err := im.countries.Auditor().Audit(ctx, state, actor, in, nil, overlay)
		if err != nil {
			span.End()
			return Result{}, im.failed(rowErr(n, err))
		}
		out.ID = uuid.NewString()
		overlay.accepted = append(overlay.accepted, out)
		commits = append(commits, countryCommit{row: n, country: out, flag: flag})
	}
	span.End()

	if opts.CheckOnly {
		return Result{Rows: len(rows)}, nil
	}

	ctx, span = im.tracer.Start(ctx, "bulkimport.commit_countries")
	defer span.End()
	committed := 0
	for _, c := range commits {
		if c.flag != nil {
			if err := im.fileSt.Save(ctx, *c.flag); err != nil {
				return Result{Rows: len(rows), Committed: committed},
					im.failed(fmt.Errorf("save flag: %w", err))
			}
		}
		if err := im.countries.Store().Save(ctx, c.country); err != nil {
			return Result{Rows: len(rows), Committed: committed},
				im.failed(im.commitErr(c.row, committed, err))
		}
		committed++
		im.metrics.CountRegistration("country")
	}
	im.finish(ctx, actor, "country", committed)
	return Result{Rows: len(rows), Committed: committed}, nil
}

type personCommit struct {
	row    int
	result person.Result
}

// ImportPeople processes one uploaded person spreadsheet.
func (im *Importer) ImportPeople(ctx context.Context, actor auth.Actor, data []byte, opts Options) (Result, error) {
	if !actor.IsAdmin() {
		return Result{}, dErrors.New(dErrors.CodePermissionDenied,
			"Only administrators may bulk register")
	}
	rows, attachments, state, err := im.prepare(ctx, data, opts)
	if err != nil {
		return Result{}, im.failed(err)
	}
	if err := checkSchema(personSchema, rows); err != nil {
		return Result{}, im.failed(err)
	}

	codeToID, err := im.countryCodes(ctx)
	if err != nil {
		return Result{}, im.failed(err)
	}

	ctx, span := im.tracer.Start(ctx, "bulkimport.validate_people",
		trace.WithAttributes(attribute.Int("rows", len(rows))))
	overlay := &personOverlay{
		CountryDirectory: person.NewCountryDirectory(im.countries.Store()),
		store:            im.people.Store(),
	}
	commits := make([]personCommit, 0, len(rows))
	for i, row := range rows {
		n := i + 1
		in, err := im.personInput(row, codeToID, attachments)
		if err != nil {
			span.End()
			return Result{}, im.failed(rowErr(n, err))
		}
		res, err := im.people.Auditor().Audit(ctx, state, actor, in, nil, overlay)
		if err != nil {
			span.End()
			return Result{}, im.failed(rowErr(n, err))
		}
		res.Person.ID = uuid.NewString()
		overlay.accepted = append(overlay.accepted, res.Person)
		commits = append(commits, personCommit{row: n, result: res})
	}
	span.End()

	if opts.CheckOnly {
		return Result{Rows: len(rows)}, nil
	}

	ctx, span = im.tracer.Start(ctx, "bulkimport.commit_people")
	defer span.End()
	committed := 0
	for _, c := range commits {
		for _, f := range []*files.File{c.result.Photo, c.result.ConsentForm} {
			if f == nil {
				continue
			}
			if err := im.fileSt.Save(ctx, *f); err != nil {
				return Result{Rows: len(rows), Committed: committed},
					im.failed(fmt.Errorf("save upload: %w", err))
			}
		}
		if err := im.people.Store().Save(ctx, c.result.Person); err != nil {
			return Result{Rows: len(rows), Committed: committed},
				im.failed(im.commitErr(c.row, committed, err))
		}
		committed++
		im.metrics.CountRegistration("person")
	}
	im.finish(ctx, actor, "person", committed)
	return Result{Rows: len(rows), Committed: committed}, nil
}

func (im *Importer) prepare(ctx context.Context, data []byte, opts Options) ([]Row, map[string][]byte, event.State, error) {
	_, span := im.tracer.Start(ctx, "bulkimport.decode")
	defer span.End()
	rows, err := DecodeCSV(data, opts.Delimiter)
	if err != nil {
		return nil, nil, event.State{}, err
	}
	attachments, err := ReadArchive(opts.Archive)
	if err != nil {
		return nil, nil, event.State{}, err
	}
	state, err := im.events.Get(ctx)
	if err != nil {
		return nil, nil, event.State{}, err
	}
	return rows, attachments, state, nil
}

func (im *Importer) countryCodes(ctx context.Context) (map[string]string, error) {
	all, err := im.countries.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	out := make(map[string]string, len(all))
	for _, c := range all {
		if !c.Retired {
			out[c.Code] = c.ID
		}
	}
	return out, nil
}

// rowErr prefixes a validation failure with its 1-based row number, the
// header counting as row 0.
func rowErr(n int, err error) error {
	code := dErrors.CodeOf(err)
	if code == "" {
		code = dErrors.CodeFormatInvalid
	}
	return dErrors.Wrap(code, fmt.Sprintf("row %d: %s", n, err.Error()), err)
}

// commitErr classifies a commit-stage store failure. A uniqueness conflict
// here means a concurrent actor won the race after validation; earlier
// commits of this batch stay.
func (im *Importer) commitErr(n, committed int, err error) error {
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(dErrors.CodeRaceCondition,
			fmt.Sprintf("row %d: conflict with a concurrent registration, %d rows already committed", n, committed),
			err)
	}
	return fmt.Errorf("row %d: %w", n, err)
}

func (im *Importer) failed(err error) error {
	im.metrics.CountBulkFailure()
	return err
}

func (im *Importer) finish(ctx context.Context, actor auth.Actor, entity string, committed int) {
	im.metrics.CountBulkRows(committed)
	im.pub.Emit(ctx, audit.Event{
		Action:    audit.ActionBulkImport,
		Entity:    entity,
		ActorKind: string(actor.Kind),
		Summary:   fmt.Sprintf("Bulk registered %d %s rows", committed, entity),
	})
}
