package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/swapbnb/exchange-coordinator/internal/api"
	"github.com/swapbnb/exchange-coordinator/internal/auth"
	"github.com/swapbnb/exchange-coordinator/internal/config"
	"github.com/swapbnb/exchange-coordinator/internal/db"
	"github.com/swapbnb/exchange-coordinator/internal/logger"
	"github.com/swapbnb/exchange-coordinator/internal/metrics"
	"github.com/swapbnb/exchange-coordinator/internal/notify"
	"github.com/swapbnb/exchange-coordinator/internal/provider"
	repo "github.com/swapbnb/exchange-coordinator/internal/repository"
	"github.com/swapbnb/exchange-coordinator/internal/repository/memory"
	"github.com/swapbnb/exchange-coordinator/internal/repository/postgres"
	"github.com/swapbnb/exchange-coordinator/internal/services"
	"github.com/swapbnb/exchange-coordinator/internal/worker"
)

type stores struct {
	users     repo.Users
	homes     repo.Homes
	exchanges repo.Exchanges
	audit     repo.AuditLogs
	close     func() error
}

func main() {
	migrateOnly := flag.Bool("migrate", false, "apply database migrations and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log, *migrateOnly)
	if err != nil {
		log.Error("store", "err", err)
		os.Exit(1)
	}
	if *migrateOnly {
		log.Info("migrations applied")
		_ = st.close()
		return
	}

	inbox, err := notify.OpenInbox(cfg.NotificationsPath)
	if err != nil {
		log.Error("notifications", "err", err)
		_ = st.close()
		os.Exit(1)
	}
	wp := worker.NewPool(cfg.Workers, 0)

	payments, identity := providers(cfg, log)
	tm := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	exchangeSvc := services.NewExchangeService(services.ExchangeDeps{
		Users:     st.users,
		Homes:     st.homes,
		Exchanges: st.exchanges,
		AuditLogs: st.audit,
		Payments:  payments,
		Identity:  identity,
		Notifier:  notify.NewRelay(wp, inbox),
		FeeCents:  cfg.ServiceFeeCents,
		Currency:  cfg.Currency,
	})

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		Cfg:       cfg,
		Tokens:    tm,
		Users:     services.NewUserService(st.users, tm, cfg.SignupCredits),
		Homes:     services.NewHomeService(st.homes),
		Exchanges: exchangeSvc,
		Webhooks:  services.NewWebhooks(exchangeSvc, cfg.Currency),
		Inbox:     inbox,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	// drain pending notifications before the inbox closes
	wp.Stop()
	err = multierr.Combine(err, inbox.Close(), st.close())
	if err != nil {
		log.Error("shutdown", "err", err)
		os.Exit(1)
	}
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger, migrateOnly bool) (stores, error) {
	if cfg.Store == config.StoreMemory {
		if migrateOnly {
			return stores{}, errors.New("-migrate needs STORE=postgres")
		}
		log.Warn("using in-memory store; data is lost on restart")
		m := memory.New().Repositories()
		return stores{users: m.Users, homes: m.Homes, exchanges: m.Exchanges, audit: m.AuditLogs, close: func() error { return nil }}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{TraceQueries: cfg.TraceSQL, Logger: log})
	if err != nil {
		return stores{}, err
	}
	if cfg.Migrate || migrateOnly {
		if err := db.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return stores{}, err
		}
	}
	p := postgres.NewRepositories(pool)
	return stores{
		users:     p.Users,
		homes:     p.Homes,
		exchanges: p.Exchanges,
		audit:     p.AuditLogs,
		close: func() error {
			pool.Close()
			return nil
		},
	}, nil
}

// providers returns HTTP clients when URLs are configured and the in-process
// fake otherwise. Validate refuses the fake in prod.
func providers(cfg config.Config, log *slog.Logger) (provider.Payments, provider.Identity) {
	var (
		payments provider.Payments
		identity provider.Identity
	)
	if cfg.PaymentProviderURL != "" {
		payments = provider.NewHTTPClient(provider.NamePayments, cfg.PaymentProviderURL, cfg.PaymentAPIKey, cfg.ProviderTimeout)
	} else {
		log.Warn("payment provider not configured; using fake sessions")
		payments = provider.NewFake()
	}
	if cfg.IdentityProviderURL != "" {
		identity = provider.NewHTTPClient(provider.NameIdentity, cfg.IdentityProviderURL, cfg.IdentityAPIKey, cfg.ProviderTimeout)
	} else {
		log.Warn("identity provider not configured; using fake sessions")
		identity = provider.NewFake()
	}
	return payments, identity
}
