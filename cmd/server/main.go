package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-booking-engine/internal/config"
	"github.com/iliyamo/seat-booking-engine/internal/database"
	"github.com/iliyamo/seat-booking-engine/internal/gateway"
	"github.com/iliyamo/seat-booking-engine/internal/handler"
	"github.com/iliyamo/seat-booking-engine/internal/middleware"
	"github.com/iliyamo/seat-booking-engine/internal/model"
	"github.com/iliyamo/seat-booking-engine/internal/queue"
	"github.com/iliyamo/seat-booking-engine/internal/repository"
	"github.com/iliyamo/seat-booking-engine/internal/router"
	"github.com/iliyamo/seat-booking-engine/internal/service"
)

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg)
	bcfg := config.LoadBookingConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, db, err := openStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("open store")
	}
	if db != nil {
		defer db.Close()
	}

	publisher := queue.NewPublisher(cfg.RabbitURL, log)
	defer publisher.Close()

	opts := service.Options{
		MaxSeats:     bcfg.MaxSeats,
		MaxAttempts:  bcfg.MaxAttempts,
		RetryBackoff: bcfg.RetryBackoff,
		Logger:       log,
		Events:       publisher,
	}
	var limiter echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		defer rdb.Close()
		if cc := config.LoadSeatCacheConfig(); cc.Enabled {
			opts.Cache = repository.NewSeatCache(rdb, cc.Prefix, cc.TTL)
		}
		limiter = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	}

	manager := service.NewManager(store, opts)
	gw := gateway.NewHostedCheckout(cfg.CheckoutBaseURL, cfg.PaymentWebhookSecret)
	reaper := service.NewReaper(manager, bcfg.ReaperInterval, bcfg.ReaperBatch)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger(log))
	router.Register(e, router.Handlers{
		Bookings:    handler.NewBookingHandler(service.NewCheckout(manager, gw), manager, service.NewLedger(store), bcfg.HoldTTL),
		Shows:       handler.NewShowHandler(manager),
		Payments:    handler.NewPaymentHandler(service.NewConfirmer(manager), gw),
		Admin:       handler.NewAdminHandler(service.NewLedger(store)),
		JWTSecret:   cfg.JWTSecret,
		HoldLimiter: limiter,
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		publisher.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		reaper.Run(ctx)
	}()
	if cfg.ConsumerEnabled {
		consumer := queue.NewConsumer(cfg.RabbitURL, cfg.LogDir, queue.LogMailer{Log: log}, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer.Run(ctx)
		}()
	}

	go func() {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "store": cfg.StoreDriver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		log.WithError(err).Error("server forced to shut down")
	}
	wg.Wait()
	log.Info("server exited")
}

// openStore returns the configured store.  db is nil for the memory store.
func openStore(ctx context.Context, cfg config.Config) (service.Store, *sql.DB, error) {
	if cfg.StoreDriver == "memory" {
		mem := repository.NewMemoryStore()
		if err := seedDemo(ctx, mem); err != nil {
			return nil, nil, err
		}
		return mem, nil, nil
	}

	dialect, err := repository.ParseDialect(cfg.StoreDriver)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(ctx, database.Options{
		Dialect: dialect,
		User:    cfg.DBUser,
		Pass:    cfg.DBPass,
		Host:    cfg.DBHost,
		Port:    cfg.DBPort,
		Name:    cfg.DBName,
		SSLMode: cfg.DBSSLMode,
	})
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db, dialect); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	return repository.NewSQLStore(db, dialect), db, nil
}

// seedDemo registers one show so a memory-backed instance is usable
// without cmd/seed, which needs a shared database.
func seedDemo(ctx context.Context, mem *repository.MemoryStore) error {
	if os.Getenv("DEMO_SHOW_ID") == "" {
		return nil
	}
	return mem.CreateShow(ctx, &model.Show{
		ID:           os.Getenv("DEMO_SHOW_ID"),
		Title:        "Demo screening",
		PriceCents:   1200,
		ScheduleTime: time.Now().Add(24 * time.Hour).UTC(),
	})
}
