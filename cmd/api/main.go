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

	"frontdesk-platform/internal/auth"
	"frontdesk-platform/internal/billing"
	"frontdesk-platform/internal/calls"
	"frontdesk-platform/internal/config"
	"frontdesk-platform/internal/dashboard"
	"frontdesk-platform/internal/httpapi"
	"frontdesk-platform/internal/ledger"
	"frontdesk-platform/internal/notify"
	"frontdesk-platform/internal/telephony"
	"frontdesk-platform/internal/tenant"
	"frontdesk-platform/pkg/logger"
	"frontdesk-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Shared domain wiring. Webhook reconciliation runs inside per-delivery
	// transactions; everything else reads through pool-scoped stores.
	reservation := ledger.NewReservation(rdb, 0)
	subStore := tenant.NewPostgresSubscriptionStore(db)
	ledgerSvc := ledger.NewService(ledger.NewPostgresRepo(db))
	prices := billing.NewPriceTable(cfg.Stripe)

	telephonyHandlers := telephony.WebhookHandlers{
		Verifier: telephony.SignatureVerifier{
			AuthToken:          cfg.Twilio.AuthToken,
			InsecureSkipVerify: cfg.Twilio.InsecureSkipVerify,
		},
		Reconciler:    telephony.NewReconciler(telephony.PostgresRunner(db)).WithReservation(reservation),
		PublicBaseURL: cfg.App.PublicBaseURL,
	}

	stripeClient := billing.NewClient(cfg.Stripe.SecretKey, prices)
	billingHandlers := billing.Handlers{
		Verifier: billing.SignatureVerifier{
			Secret:    cfg.Stripe.WebhookSecret,
			Tolerance: cfg.Stripe.WebhookTolerance,
		},
		Reconciler: billing.NewReconciler(billing.PostgresRunner(db), prices).WithReservation(reservation),
		Client:     stripeClient,
		Portal: &billing.PortalService{
			Client: stripeClient,
			Subs:   subStore,
			Ledger: ledgerSvc,
		},
	}

	apiHandlers := httpapi.Handlers{
		Auth: authManager,
		Dashboard: &dashboard.Service{
			Calls:     calls.NewPostgresStore(db),
			Subs:      subStore,
			FollowUps: notify.NewPostgresRepo(db),
		},
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, appHandlers{
		telephony: telephonyHandlers,
		billing:   billingHandlers,
		api:       apiHandlers,
	}, auth.RequireAccessToken(authManager), db)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
