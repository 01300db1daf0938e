package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	susuauth "github.com/kweku/susu/internal/auth"
	"github.com/kweku/susu/internal/circle"
	"github.com/kweku/susu/internal/config"
	"github.com/kweku/susu/internal/credit"
	"github.com/kweku/susu/internal/events"
	"github.com/kweku/susu/internal/identity"
	"github.com/kweku/susu/internal/ledger"
	"github.com/kweku/susu/internal/service"
	"github.com/kweku/susu/internal/storage"
	"github.com/kweku/susu/internal/storage/badgerkv"
	"github.com/kweku/susu/internal/storage/sqlitekv"
	"github.com/kweku/susu/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogFormat)

	store, err := openStore(cfg)
	if err != nil {
		slog.Error("storage init failed", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("storage ready", "backend", cfg.StorageBackend, "data_dir", cfg.DataDir)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	bus := events.NewBus(registry, slog.Default())
	kvLedger := ledger.NewKV(store)
	approver := susuauth.ContextApprover{}

	registryIdentity := identity.NewRegistry(store, approver, bus, cfg.RecordTTL)
	resolver := identity.Fallback{Primary: registryIdentity, Secondary: identity.Derived{}}

	creditEngine := credit.NewEngine(store, approver, credit.Options{
		Events:    bus,
		RecordTTL: cfg.RecordTTL,
	})
	circleEngine := circle.NewEngine(store, creditEngine, kvLedger, resolver, approver, cfg.EnginePrincipal, circle.Options{
		Events: bus,
	})

	if err := bootstrap(cfg, circleEngine, creditEngine); err != nil {
		slog.Error("engine bootstrap failed", "error", err)
		os.Exit(1)
	}

	users := susuauth.NewUserStore(store)
	authenticator := susuauth.NewPasswordAuthenticator(users)
	jwtManager := susuauth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	svc := service.New(circleEngine, creditEngine, registryIdentity, kvLedger, authenticator, users, jwtManager)
	handler := h2c.NewHandler(svc.Router(registry), &http2.Server{})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "address", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown incomplete", "error", err)
	}
}

func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.StorageBackend == "sqlite" {
		return sqlitekv.New(cfg.DataDir + "/susu.db")
	}
	return badgerkv.New(cfg.DataDir)
}

// bootstrap initializes both engines on first boot and makes sure the circle
// engine can report to the credit engine. Re-running against an initialized
// store is a no-op.
func bootstrap(cfg *config.Config, circles *circle.Engine, credits *credit.Engine) error {
	// Engine initialization and allow-list edits are admin operations; run
	// them under the admin principal.
	ctx := susuauth.WithPrincipal(context.Background(), cfg.AdminPrincipal)

	if err := circles.Init(ctx, cfg.AdminPrincipal); err != nil && !errors.Is(err, circle.ErrAlreadyInitialized) {
		return err
	}
	if err := credits.Init(ctx, cfg.AdminPrincipal); err != nil && !errors.Is(err, credit.ErrAlreadyInitialized) {
		return err
	}
	if err := credits.AuthorizeCaller(ctx, cfg.EnginePrincipal); err != nil && !errors.Is(err, credit.ErrCallerAlreadyAuthorized) {
		return err
	}
	return nil
}
