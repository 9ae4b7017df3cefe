package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"

	"marketpulse/config"
	"marketpulse/internal/adapters/binanceclient"
	"marketpulse/internal/adapters/logger"
	"marketpulse/internal/adapters/ratesapi"
	"marketpulse/internal/adapters/sqlite"
	"marketpulse/internal/domain"
	"marketpulse/internal/instruments"
	"marketpulse/internal/monitor"
	"marketpulse/internal/pnl"
	"marketpulse/internal/ports"
	"marketpulse/internal/prices"
	"marketpulse/internal/rates"
	"marketpulse/internal/workerpool"
)

func main() {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	var appLogger ports.Logger
	if cfg.LogFormat == logger.FormatJSON {
		zapLogger, err := logger.NewZapLogger(cfg.LogLevel)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize zap logger: %v", err)
		}
		defer func() { _ = zapLogger.Sync() }()
		appLogger = zapLogger
	} else {
		appLogger = logger.NewStdLogger(cfg.LogLevel)
	}
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{
		"level":  cfg.LogLevel.String(),
		"format": string(cfg.LogFormat),
	})

	// 3. Initialize Position Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize position repository")
		log.Fatalf("FATAL: Failed to initialize position repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing position repository")
		}
	}()

	// 4. Initialize Market Data Client (Binance Adapter)
	marketClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	// 5. Initialize Worker Pool bridging blocking vendor calls
	pool, err := workerpool.New(cfg.WorkerPoolSize, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize worker pool")
		log.Fatalf("FATAL: Failed to initialize worker pool: %v", err)
	}
	defer pool.Close()

	// 6. Initialize HTTP rate endpoints (fallback tiers)
	primaryRates, err := ratesapi.New(ratesapi.Config{
		Name:    domain.RateSourcePrimaryAPI,
		BaseURL: cfg.PrimaryRatesURL,
		Timeout: cfg.RatesHTTPTimeout,
		Logger:  appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize primary rates endpoint")
		log.Fatalf("FATAL: Failed to initialize primary rates endpoint: %v", err)
	}
	secondaryRates, err := ratesapi.New(ratesapi.Config{
		Name:    domain.RateSourceSecondaryAPI,
		BaseURL: cfg.SecondaryRatesURL,
		Timeout: cfg.RatesHTTPTimeout,
		Logger:  appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize secondary rates endpoint")
		log.Fatalf("FATAL: Failed to initialize secondary rates endpoint: %v", err)
	}

	// 7. Initialize Providers
	rateProvider, err := rates.New(rates.Config{
		TTL:           cfg.RateCacheTTL,
		FallbackRates: cfg.FallbackRates,
	}, appLogger, marketClient, pool, []ports.RateSource{primaryRates, secondaryRates})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize rate provider")
		log.Fatalf("FATAL: Failed to initialize rate provider: %v", err)
	}

	priceProvider, err := prices.New(prices.Config{
		TTL: cfg.PriceCacheTTL,
	}, appLogger, marketClient, pool)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize price provider")
		log.Fatalf("FATAL: Failed to initialize price provider: %v", err)
	}

	// 8. Initialize P&L Engine
	instrumentTable := instruments.NewTable(nil)
	engine, err := pnl.New(pnl.Config{
		BaseCurrency: cfg.BaseCurrency,
	}, appLogger, rateProvider, instrumentTable)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize P&L engine")
		log.Fatalf("FATAL: Failed to initialize P&L engine: %v", err)
	}

	// 9. Initialize and start the Position Monitor
	posMonitor, err := monitor.New(monitor.Config{
		Interval: cfg.MonitorInterval,
	}, appLogger, priceProvider, engine, repo)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize position monitor")
		log.Fatalf("FATAL: Failed to initialize position monitor: %v", err)
	}

	// Default subscriber: log every alert. The host application registers
	// its chat-notification subscriber the same way.
	posMonitor.RegisterCallback(func(alert domain.Alert) {
		appLogger.Info(ctx, "ALERT", map[string]interface{}{
			"positionID":   alert.PositionID,
			"symbol":       alert.Symbol,
			"kind":         string(alert.Kind),
			"level":        alert.Level,
			"triggerPrice": alert.TriggerPrice,
			"pnlBase":      alert.PnL.Base,
			"pnlCurrency":  alert.PnL.BaseCurrency,
		})
	})

	if err := posMonitor.Start(ctx); err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to start position monitor")
		log.Fatalf("FATAL: Failed to start position monitor: %v", err)
	}

	// 10. Block until shutdown signal, then stop the monitor before the
	// deferred teardown of the pool and repository runs.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	appLogger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})

	posMonitor.Stop()
	appLogger.Info(ctx, "Application finished gracefully.")
}
