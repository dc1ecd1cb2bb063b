// Command server runs the registration API. It wires the storage and audit
// backends chosen by the environment, the domain services, and the HTTP
// router, then serves until interrupted.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"olympreg/internal/audit"
	"olympreg/internal/auth"
	"olympreg/internal/bulkimport"
	"olympreg/internal/country"
	"olympreg/internal/event"
	"olympreg/internal/export"
	"olympreg/internal/files"
	httpapi "olympreg/internal/http"
	"olympreg/internal/person"
	"olympreg/internal/platform/config"
	"olympreg/internal/platform/httpserver"
	"olympreg/internal/platform/logger"
	"olympreg/internal/platform/metrics"
	platformredis "olympreg/internal/platform/redis"
	"olympreg/internal/scoring"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores. Postgres when configured, in-memory otherwise so the server
	// can run without infrastructure for local work.
	var (
		countrySt country.Store
		personSt  person.Store
		scoreSt   scoring.Store
		accountSt auth.AccountStore
		fileSt    files.Store
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("pgx", cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}

		countries := country.NewPostgresStore(db)
		people := person.NewPostgresStore(db)
		scores := scoring.NewPostgresStore(db)
		accounts := auth.NewPostgresAccountStore(db)
		uploads := files.NewPostgresStore(db)
		for _, m := range []interface {
			Migrate(context.Context) error
		}{countries, people, scores, accounts, uploads} {
			if err := m.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		countrySt, personSt, scoreSt, accountSt, fileSt = countries, people, scores, accounts, uploads
	} else {
		log.Warn("OLYMPREG_POSTGRES_URL not set, using in-memory stores")
		countrySt = country.NewInMemoryStore()
		personSt = person.NewInMemoryStore()
		scoreSt = scoring.NewInMemoryStore()
		accountSt = auth.NewInMemoryAccountStore()
		fileSt = files.NewInMemoryStore()
	}

	var sessionSt auth.SessionStore
	if cfg.RedisURL != "" {
		client, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		sessionSt = auth.NewRedisSessionStore(client, cfg.SessionTTL)
	} else {
		log.Warn("OLYMPREG_REDIS_URL not set, sessions will not survive restarts")
		sessionSt = auth.NewInMemorySessionStore()
	}

	var pub audit.Publisher = audit.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer func() {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := kafka.Close(cctx); err != nil {
				log.Error("close kafka", "error", err)
			}
		}()
		pub = kafka
	} else {
		log.Warn("OLYMPREG_KAFKA_BROKERS not set, audit feed disabled")
	}
	pub = audit.WithClientFromContext(pub)

	eventSt := event.NewInMemoryStore(event.State{RegistrationEnabled: true})
	m := metrics.New()

	countries := country.NewService(countrySt, fileSt, country.NewAuditor(cfg.Event), eventSt, pub, m, log)
	people := person.NewService(personSt, fileSt, person.NewAuditor(cfg.Event),
		eventSt, person.NewCountryDirectory(countrySt), pub, m, log)
	countries.SetPeopleCascade(people)

	scores := scoring.NewService(cfg.Event, scoreSt, personSt, eventSt, pub, m, log)
	eventSvc := event.NewService(cfg.Event, eventSt, pub, log)
	eventSvc.SetScoresChecker(scores)

	issuer := auth.NewTokenIssuer(cfg.JWTSigningKey, cfg.SessionTTL)
	authSvc := auth.NewService(accountSt, sessionSt, issuer, log)
	countries.SetAccountsCascade(authSvc)

	importer := bulkimport.NewImporter(cfg.Event, countries, people, fileSt, eventSt, pub, m, log)
	exporter := export.New(cfg.Event, countrySt, personSt, scores)

	server := httpapi.NewServer(httpapi.Config{
		Event:      cfg.Event,
		Auth:       authSvc,
		Issuer:     issuer,
		Sessions:   sessionSt,
		Countries:  countries,
		People:     people,
		Scores:     scores,
		Events:     eventSvc,
		Importer:   importer,
		Exporter:   exporter,
		Files:      fileSt,
		Metrics:    m,
		Logger:     log,
		AdminToken: cfg.AdminToken,
	})

	srv := httpserver.New(cfg.Addr, server.Router())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr,
			"event", cfg.Event.ShortName+" "+cfg.Event.Year)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return httpserver.Shutdown(srv, 10*time.Second)
	})
	return g.Wait()
}
