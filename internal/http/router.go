// Package httpapi is the thin HTTP layer over the domain services. Handlers
// decode, delegate, and encode; every rule lives in the auditors and
// services, and every domain error code maps to a status in one place
// (respond.go).
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"olympreg/internal/audit"
	"olympreg/internal/auth"
	"olympreg/internal/bulkimport"
	"olympreg/internal/country"
	"olympreg/internal/event"
	"olympreg/internal/export"
	"olympreg/internal/files"
	"olympreg/internal/person"
	"olympreg/internal/platform/metrics"
	"olympreg/internal/ratelimit"
	"olympreg/internal/scoring"
)

// Server holds the wired services behind the API.
type Server struct {
	eventCfg   event.Config
	auth       *auth.Service
	issuer     *auth.TokenIssuer
	sessions   auth.SessionChecker
	countries  *country.Service
	people     *person.Service
	scores     *scoring.Service
	events     *event.Service
	importer   *bulkimport.Importer
	exporter   *export.Exporter
	files      files.Store
	metrics    *metrics.Metrics
	logger     *slog.Logger
	adminToken string

	loginLimiter *ratelimit.Limiter
}

type Config struct {
	Event      event.Config
	Auth       *auth.Service
	Issuer     *auth.TokenIssuer
	Sessions   auth.SessionChecker
	Countries  *country.Service
	People     *person.Service
	Scores     *scoring.Service
	Events     *event.Service
	Importer   *bulkimport.Importer
	Exporter   *export.Exporter
	Files      files.Store
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	AdminToken string
}

func NewServer(cfg Config) *Server {
	return &Server{
		eventCfg:   cfg.Event,
		auth:       cfg.Auth,
		issuer:     cfg.Issuer,
		sessions:   cfg.Sessions,
		countries:  cfg.Countries,
		people:     cfg.People,
		scores:     cfg.Scores,
		events:     cfg.Events,
		importer:   cfg.Importer,
		exporter:   cfg.Exporter,
		files:      cfg.Files,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		adminToken: cfg.AdminToken,

		loginLimiter: ratelimit.NewLimiter(20, time.Minute),
	}
}

// Router wires all endpoints. Reads are open to anonymous viewers; the
// services and exporters narrow what each actor sees.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(clientTag)
	r.Use(auth.Identify(s.issuer, s.sessions, s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(s.loginLimiter, s.logger))
		r.Post("/auth/login", s.handleLogin)
	})
	r.Post("/auth/logout", s.handleLogout)
	r.Post("/auth/accounts", s.handleCreateAccount)

	r.Route("/countries", func(r chi.Router) {
		r.Get("/", s.handleListCountries)
		r.Post("/", s.handleCreateCountry)
		r.Get("/{id}", s.handleGetCountry)
		r.Put("/{id}", s.handleUpdateCountry)
		r.Delete("/{id}", s.handleRetireCountry)
		r.Get("/{id}/people", s.handlePeopleByCountry)
		r.Post("/{id}/scores/{problem}", s.handleEnterScores)
	})

	r.Route("/people", func(r chi.Router) {
		r.Get("/", s.handleListPeople)
		r.Post("/", s.handleCreatePerson)
		r.Get("/{id}", s.handleGetPerson)
		r.Put("/{id}", s.handleUpdatePerson)
		r.Delete("/{id}", s.handleRetirePerson)
	})

	r.Get("/files/{id}", s.handleDownloadFile)

	r.Route("/import", func(r chi.Router) {
		r.Use(auth.RequireAdmin(s.logger))
		r.Post("/countries/check", s.handleImportCountriesCheck)
		r.Post("/countries", s.handleImportCountries)
		r.Post("/people/check", s.handleImportPeopleCheck)
		r.Post("/people", s.handleImportPeople)
	})

	r.Get("/export/countries.csv", s.handleExportCountries)
	r.Get("/export/people.csv", s.handleExportPeople)
	r.Get("/export/scores.csv", s.handleExportScores)

	r.Get("/standings", s.handleStandings)

	r.Route("/event", func(r chi.Router) {
		r.Get("/", s.handleGetEvent)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdminToken(s.adminToken, s.logger))
			r.Put("/flags", s.handleSetFlags)
			r.Put("/boundaries", s.handleSetBoundaries)
		})
	})

	return r
}

// clientTag condenses the User-Agent for the audit feed.
func clientTag(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := audit.WithClient(r.Context(), audit.ClientFromUserAgent(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
