package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/pricetracker/internal/auth"
	"github.com/geocoder89/pricetracker/internal/config"
	"github.com/geocoder89/pricetracker/internal/db"
	httpx "github.com/geocoder89/pricetracker/internal/http"
	"github.com/geocoder89/pricetracker/internal/http/handlers"
	"github.com/geocoder89/pricetracker/internal/http/middlewares"
	"github.com/geocoder89/pricetracker/internal/observability"
	"github.com/geocoder89/pricetracker/internal/redisclient"
	"github.com/geocoder89/pricetracker/internal/repo/postgres"
	"github.com/geocoder89/pricetracker/internal/security"
	"github.com/geocoder89/pricetracker/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd.Root().Version, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply migrations before serving")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config, version string, migrate bool) error {
	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	if cfg.OTelEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
			Version:     version,
			Env:         cfg.Env,
			Endpoint:    cfg.OTelEndpoint,
			SampleRatio: cfg.OTelSampleRatio,
		})
		if err != nil {
			log.Warn("tracing disabled", "err", err)
		} else {
			defer func() {
				sctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdownTracer(sctx)
			}()
		}
	}

	pool, err := openPool(ctx, cfg, observability.ServiceName)
	if err != nil {
		return err
	}
	defer pool.Close()

	if migrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	usersRepo := postgres.NewUsersRepo(pool, prom)
	prefsRepo := postgres.NewPreferencesRepo(pool, prom)
	hasher := security.NewHasher(cfg.BcryptCost)
	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	authSvc := service.NewAuthService(usersRepo, hasher, tokens, log)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		created, err := authSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if created {
			log.Info("bootstrap admin created", "email", cfg.AdminEmail)
		}
	}

	checks := map[string]handlers.PingFunc{
		"postgres": pool.Ping,
	}

	var rateStore middlewares.WindowStore
	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rc.Close()

		rateStore = middlewares.NewRedisWindowStore(rc)
		checks["redis"] = rc.Ping
	}

	router := httpx.NewRouter(log, cfg, httpx.Deps{
		Tokens:      tokens,
		Principals:  usersRepo,
		Auth:        authSvc,
		Users:       service.NewUserService(usersRepo, hasher, log),
		Preferences: service.NewPreferencesService(prefsRepo, usersRepo),
		RateStore:   rateStore,
		Prom:        prom,
		Checks:      checks,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err, ok := <-serveErr:
		if ok {
			log.Error("server failed", "err", err)
			return err
		}
		return nil
	case <-stop:
	}

	log.Info("server shutting down")

	return shutdown(log, srv)
}

func shutdown(log *slog.Logger, srv *http.Server) error {
	shutdownCh := make(chan error, 1)

	go func() {
		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		shutdownCh <- srv.Shutdown(ctx)
	}()

	select {
	case err := <-shutdownCh:
		if err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return err
		}
		log.Info("shutdown complete")
		return nil

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
		return errors.New("shutdown timed out")
	}
}
