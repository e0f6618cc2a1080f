package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"distance-request-service/internal/adapters/cache"
	"distance-request-service/internal/adapters/maptoken"
	"distance-request-service/internal/adapters/repositories"
	"distance-request-service/internal/adapters/routing"
	"distance-request-service/internal/adapters/store"
	"distance-request-service/internal/api"
	"distance-request-service/internal/api/handlers"
	"distance-request-service/internal/config"
	"distance-request-service/internal/i18n"
	"distance-request-service/internal/platform/db"
	"distance-request-service/internal/platform/logging"
	"distance-request-service/internal/ports"
	"distance-request-service/internal/services"

	backend "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// main is the application composition root.
// It wires concrete adapters (SQL, Redis, ORS) behind ports and starts the HTTP server.
func main() {
	envLoaded := config.LoadDotEnv(".env")

	cfg, err := config.Load()
	if err != nil {
		logging.Setup(os.Stderr, "human", "info")
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Setup(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	if !envLoaded {
		log.Info().Msg("no .env file found (using environment variables)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, dialect, err := openDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer conn.Close()

	if err := repositories.InitSchema(ctx, conn); err != nil {
		log.Fatal().Err(err).Msg("init schema")
	}

	repo := repositories.NewSQLTransactionRepository(conn, dialect)
	deps := map[string]handlers.Pinger{"db": conn}

	var (
		txStore     ports.TransactionStore
		backups     ports.BackupStore
		walletStore ports.WalletDetailsStore
	)
	if cfg.RedisAddr != "" {
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()

		rs := store.NewRedis(client, store.WithPersister(repo), store.WithBackupTTL(cfg.BackupTTL))
		txStore, backups, walletStore = rs, rs, rs
		deps["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis transaction store")
	} else {
		mem := store.NewMemory(repo)
		txStore, backups, walletStore = mem, mem, mem
		log.Warn().Msg("REDIS_ADDR not set, using in-process transaction store")
	}

	provider, geocoder, err := newRouting(cfg, conn, dialect)
	if err != nil {
		log.Fatal().Err(err).Msg("init routing")
	}

	translator := i18n.NewCatalog().Translator(cfg.Locale)
	fetcher := &services.RouteFetcher{
		Store:          txStore,
		Provider:       provider,
		Translator:     translator,
		Rate:           cfg.Mileage,
		CurrencySymbol: i18n.CurrencySymbol(cfg.Mileage.Currency),
	}

	tokens := maptoken.NewManager(cfg.MapTokenURL, nil)
	sessions := services.NewSessions()

	router := api.NewRouter(api.Handlers{
		Health: &handlers.Health{Deps: deps},
		Transactions: &handlers.TransactionHandler{
			Store:           txStore,
			DefaultCurrency: cfg.Mileage.Currency,
		},
		Sessions: &handlers.SessionHandler{
			Sessions:   sessions,
			Store:      txStore,
			Backups:    backups,
			Routes:     fetcher,
			Token:      tokens,
			Geocoder:   geocoder,
			Translator: translator,
			OnSubmit:   services.ConfirmWaypoints(txStore),
		},
		Wallet:   &handlers.WalletHandler{Store: walletStore},
		MapToken: &handlers.MapTokenHandler{Source: tokens},
	})

	// Write timeout covers a cold-cache directions call plus its retries.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("locale", translator.Locale()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	// Closing sessions restores edit backups and releases map token refs.
	if err := sessions.CloseAll(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("close sessions")
	}
}

// openDB prefers Postgres when DATABASE_URL is set and falls back to a local SQLite file.
func openDB(cfg config.Config) (*sql.DB, db.Dialect, error) {
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL)
		return conn, db.Postgres, err
	}
	conn, err := db.OpenSQLite(cfg.DBPath)
	return conn, db.SQLite, err
}

// newRouting builds the ORS provider and geocoder behind persistent caches.
// Without an API key routes fall back to great-circle distances and addresses
// cannot be geocoded.
func newRouting(cfg config.Config, conn *sql.DB, dialect db.Dialect) (ports.RouteProvider, ports.Geocoder, error) {
	if cfg.ORSAPIKey == "" {
		log.Warn().Msg("ORS_API_KEY not set, using straight-line distances")
		return routing.StraightLineProvider{}, nil, nil
	}

	provider, err := routing.NewORSRouteProvider(cfg.ORSAPIKey, cache.NewSQLRouteCache(conn, dialect))
	if err != nil {
		return nil, nil, err
	}
	geocoder, err := routing.NewORSGeocoder(cfg.ORSAPIKey, cfg.GeocodeCountry, cache.NewSQLGeocodeCache(conn, dialect))
	if err != nil {
		return nil, nil, err
	}
	return provider, geocoder, nil
}
