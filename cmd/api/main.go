package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bx-options/internal/affiliate"
	"bx-options/internal/assets"
	"bx-options/internal/config"
	"bx-options/internal/db"
	"bx-options/internal/httpserver"
	"bx-options/internal/keylock"
	"bx-options/internal/ledger"
	"bx-options/internal/logging"
	"bx-options/internal/notify"
	"bx-options/internal/orders"
	"bx-options/internal/pricing"
	"bx-options/internal/tier"
	"bx-options/internal/verify"
	"bx-options/internal/withdrawals"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(logging.Config{
		Level:      cfg.LogLevel,
		OutputFile: cfg.LogFile,
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 30,
	})

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		logger.WithError(err).Fatal("database connect failed")
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}

	bus := notify.NewBus()
	locks := keylock.New(cfg.LockTimeout, time.Second, logger)
	defer locks.Close()

	engine := ledger.NewEngine(ledger.NewPGStore(pool), locks, bus, logger)
	defer engine.Close()
	engine.SetTierRecalculator(tier.NewRecalculator(pool))

	affiliateStore := affiliate.NewPGStore(pool)
	engine.SetFirstDepositHook(affiliate.NewTrigger(affiliateStore, engine, logger))

	source := pricing.NewClient(cfg.PriceAPIURL, cfg.PriceAPIKey, cfg.PriceTimeout)
	oracle := pricing.NewOracle(source, cfg.PriceTimeout, logger)
	defer oracle.Close()

	assetStore := assets.NewPGStore(pool)
	orderSvc := orders.NewService(orders.NewPGStore(pool), assetStore, engine, oracle, bus, logger)
	sweeper := orders.NewSweeper(orderSvc, cfg.SettleInterval, logger)
	sweeper.Start()
	defer sweeper.Stop()

	withdrawSvc := withdrawals.NewService(withdrawals.NewPGStore(pool), engine, verify.NewPGStatus(pool), cfg.WithdrawMin, logger)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AssetHandler:      assets.NewHandler(assetStore, oracle),
		LedgerHandler:     ledger.NewHandler(engine),
		OrderHandler:      orders.NewHandler(orderSvc),
		WithdrawalHandler: withdrawals.NewHandler(withdrawSvc),
		WSHandler:         httpserver.NewWSHandler(bus, cfg.JWTSecret, cfg.WebSocketOrigin),
		JWTSecret:         cfg.JWTSecret,
		AdminPasswordHash: cfg.AdminPasswordHash,
		InternalToken:     cfg.InternalToken,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	logger.WithField("addr", cfg.HTTPAddr).Info("server listening")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Fatal("server stopped")
	}
}
