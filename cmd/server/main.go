package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/org/memberauth/internal/api"
	"github.com/org/memberauth/internal/auth"
	"github.com/org/memberauth/internal/config"
	"github.com/org/memberauth/internal/crypto"
	"github.com/org/memberauth/internal/password"
	"github.com/org/memberauth/internal/storage"
	"github.com/org/memberauth/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load config
	cfgFile := "config.yaml"
	if v := os.Getenv("MEMBERAUTH_CONFIG"); v != "" {
		cfgFile = v
	}
	cfg, found, err := config.Load(cfgFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if !found {
		log.Warn().Str("file", cfgFile).Msg("config file not found, using defaults and environment")
	}

	if cfg.LogJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer store.Close()

	key, generated, err := crypto.SigningKey(cfg.Token.Secret)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare token signing key")
	}
	if generated {
		log.Warn().Msg("token.secret is empty: using a random signing key, issued tokens will not survive a restart")
	}

	tokens := auth.NewTokenManager(key, cfg.Token.Validity)
	revocations := auth.NewRevocationStore(tokens.ExpiresAt, cfg.Token.Validity)
	svc := auth.NewService(store,
		password.New(cfg.Password.BcryptCost),
		auth.NewBruteForceGuard(cfg.Lockout.MaxAttempts, cfg.Lockout.Duration),
		tokens,
		revocations,
	)

	if cfg.OperatorToken == "" {
		log.Warn().Msg("operator_token is empty: /api/v1/sys routes are disabled")
	}
	srv := api.NewServer(store, svc, api.Config{
		ListenAddr:    cfg.ListenAddr,
		TLSCertFile:   cfg.TLSCertFile,
		TLSKeyFile:    cfg.TLSKeyFile,
		OperatorToken: cfg.OperatorToken,
		LoginRPS:      cfg.RateLimit.RPS,
		LoginBurst:    cfg.RateLimit.Burst,
	})

	go revocations.Run(ctx, cfg.Token.SweepInterval)
	go srv.RunMaintenance(ctx, cfg.Token.SweepInterval)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	log.Info().
		Str("addr", cfg.ListenAddr).
		Dur("token_validity", cfg.Token.Validity).
		Int("max_attempts", cfg.Lockout.MaxAttempts).
		Dur("lock_duration", cfg.Lockout.Duration).
		Msg("server started")
	<-quit

	log.Info().Msg("shutting down...")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")
}

// openBackend connects to Postgres and applies migrations, or falls back to
// an in-memory store seeded from config when no database is configured.
func openBackend(ctx context.Context, cfg config.Config) (storage.Backend, error) {
	if cfg.DBUrl == "" {
		log.Warn().Int("identities", len(cfg.Identities)).Msg("db_url not set: running with in-memory identity store")
		mem := storage.NewMemoryBackend()
		if err := seedIdentities(mem, cfg.Identities); err != nil {
			return nil, err
		}
		return mem, nil
	}

	store, err := storage.NewPostgresBackend(ctx, cfg.DBUrl)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	version, err := storage.RunMigrations(cfg.DBUrl, cfg.MigrationsDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info().Uint("version", version).Msg("migrations applied")
	if len(cfg.Identities) > 0 {
		log.Warn().Msg("identities in config are ignored when db_url is set")
	}
	return store, nil
}

func seedIdentities(mem *storage.MemoryBackend, seeds []config.SeedIdentity) error {
	for _, s := range seeds {
		role := models.ParseRole(s.Role)
		if !role.Valid() {
			return fmt.Errorf("identity %q: unknown role %q", s.Username, s.Role)
		}
		active := true
		if s.Active != nil {
			active = *s.Active
		}
		if _, err := mem.AddIdentity(models.Identity{
			ID:           s.ID,
			Username:     s.Username,
			PasswordHash: s.Password,
			Role:         role,
			Active:       active,
		}); err != nil {
			return fmt.Errorf("identity %q: %w", s.Username, err)
		}
	}
	return nil
}
