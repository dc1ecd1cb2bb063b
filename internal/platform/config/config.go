// Package config assembles the process configuration from environment
// variables so main stays lean. Rulebook knobs that change per event
// occurrence (dates, marks, locations) live here too.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"olympreg/internal/event"
	"olympreg/pkg/dates"
)

// Config is everything the server binary needs to start.
type Config struct {
	Addr string

	JWTSigningKey string
	SessionTTL    time.Duration
	AdminToken    string

	PostgresURL  string
	RedisURL     string
	KafkaBrokers []string
	KafkaTopic   string

	LogLevel string

	Event event.Config
}

// FromEnv reads OLYMPREG_* environment variables, falling back to defaults
// suitable for local development. It fails on malformed values rather than
// silently running with a half-configured rulebook.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:          getenv("OLYMPREG_ADDR", ":8080"),
		JWTSigningKey: os.Getenv("OLYMPREG_JWT_SIGNING_KEY"),
		AdminToken:    os.Getenv("OLYMPREG_ADMIN_TOKEN"),
		PostgresURL:   os.Getenv("OLYMPREG_POSTGRES_URL"),
		RedisURL:      os.Getenv("OLYMPREG_REDIS_URL"),
		KafkaTopic:    getenv("OLYMPREG_KAFKA_TOPIC", "olympreg.audit"),
		LogLevel:      getenv("OLYMPREG_LOG_LEVEL", "info"),
	}
	if cfg.JWTSigningKey == "" {
		return Config{}, fmt.Errorf("OLYMPREG_JWT_SIGNING_KEY must be set")
	}
	if brokers := os.Getenv("OLYMPREG_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitList(brokers)
	}

	var err error
	if cfg.SessionTTL, err = getDuration("OLYMPREG_SESSION_TTL", 12*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.Event, err = eventFromEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func eventFromEnv() (event.Config, error) {
	cfg := event.Config{
		ShortName:                getenv("OLYMPREG_EVENT_SHORT_NAME", "XMO"),
		Year:                     getenv("OLYMPREG_EVENT_YEAR", "2026"),
		VirtualEvent:             getbool("OLYMPREG_EVENT_VIRTUAL"),
		ConsentUI:                getbool("OLYMPREG_EVENT_CONSENT_UI"),
		RequirePassportNumber:    getbool("OLYMPREG_REQUIRE_PASSPORT_NUMBER"),
		RequireNationality:       getbool("OLYMPREG_REQUIRE_NATIONALITY"),
		RequireDiet:              getbool("OLYMPREG_REQUIRE_DIET"),
		RequireDateOfBirth:       getbool("OLYMPREG_REQUIRE_DATE_OF_BIRTH"),
		AllowedContestantGenders: splitList(getenv("OLYMPREG_CONTESTANT_GENDERS", "Female,Male")),
		GenericURLBase:           os.Getenv("OLYMPREG_GENERIC_URL_BASE"),
		Locations:                splitList(os.Getenv("OLYMPREG_LOCATIONS")),
	}

	var err error
	if cfg.NumProblems, err = getint("OLYMPREG_NUM_PROBLEMS", 6); err != nil {
		return event.Config{}, err
	}
	marks := splitList(getenv("OLYMPREG_MARKS_PER_PROBLEM", "7,7,7,7,7,7"))
	for _, m := range marks {
		n, err := strconv.Atoi(m)
		if err != nil {
			return event.Config{}, fmt.Errorf("OLYMPREG_MARKS_PER_PROBLEM: %q is not a number", m)
		}
		cfg.MarksPerProblem = append(cfg.MarksPerProblem, n)
	}
	if len(cfg.MarksPerProblem) != cfg.NumProblems {
		return event.Config{}, fmt.Errorf("OLYMPREG_MARKS_PER_PROBLEM lists %d problems, OLYMPREG_NUM_PROBLEMS says %d",
			len(cfg.MarksPerProblem), cfg.NumProblems)
	}

	for _, d := range []struct {
		key      string
		fallback string
		dst      *dates.Date
	}{
		{"OLYMPREG_EARLIEST_BIRTH_CONTESTANT", "2006-07-01", &cfg.EarliestBirthContestant},
		{"OLYMPREG_EARLIEST_BIRTH", "1926-01-01", &cfg.EarliestBirth},
		{"OLYMPREG_SANITY_BIRTH", "2016-01-01", &cfg.SanityBirth},
		{"OLYMPREG_EARLIEST_ARRIVAL", "2026-07-01", &cfg.EarliestArrival},
		{"OLYMPREG_LATEST_ARRIVAL", "2026-07-10", &cfg.LatestArrival},
		{"OLYMPREG_EARLIEST_DEPARTURE", "2026-07-05", &cfg.EarliestDeparture},
		{"OLYMPREG_LATEST_DEPARTURE", "2026-07-15", &cfg.LatestDeparture},
	} {
		parsed, err := dates.Parse(getenv(d.key, d.fallback))
		if err != nil {
			return event.Config{}, fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getbool(key string) bool {
	return os.Getenv(key) == "true"
}

func getint(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, v)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration", key, v)
	}
	return d, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
