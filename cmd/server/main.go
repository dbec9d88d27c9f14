package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/dealroom/internal/config"
	"github.com/mamadbah2/dealroom/internal/repository/mongodb"
	"github.com/mamadbah2/dealroom/internal/repository/sheets"
	"github.com/mamadbah2/dealroom/internal/scheduler"
	"github.com/mamadbah2/dealroom/internal/server/handlers"
	"github.com/mamadbah2/dealroom/internal/server/router"
	dealroomsvc "github.com/mamadbah2/dealroom/internal/service/dealroom"
	finalizersvc "github.com/mamadbah2/dealroom/internal/service/finalizer"
	transactionsvc "github.com/mamadbah2/dealroom/internal/service/transactions"
	verificationsvc "github.com/mamadbah2/dealroom/internal/service/verification"
	"github.com/mamadbah2/dealroom/internal/stream"
	"github.com/mamadbah2/dealroom/pkg/clients/airtable"
	"github.com/mamadbah2/dealroom/pkg/logger"
	"github.com/mamadbah2/dealroom/pkg/metrics"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	if err := mongoRepo.EnsureIndexes(context.Background()); err != nil {
		baseLogger.Fatal("failed to ensure mongodb indexes", zap.Error(err))
	}

	redisClient, err := stream.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		baseLogger.Fatal("failed to init redis client", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()
	broker := stream.NewBroker(redisClient, baseLogger.Named("stream.redis"))

	ledger := newLedgerSink(cfg, baseLogger)

	verificationSvc := verificationsvc.NewService(mongoRepo, mongoRepo, baseLogger.Named("svc.verification"))
	transactionSvc := transactionsvc.NewService(mongoRepo, verificationSvc, baseLogger.Named("svc.transactions"))
	finalizer := finalizersvc.NewService(mongoRepo, ledger, cfg.Ledger.Table, appMetrics, baseLogger.Named("svc.finalizer"))
	dealSvc := dealroomsvc.NewService(mongoRepo, mongoRepo, finalizer, broker, appMetrics, baseLogger.Named("svc.dealroom"))

	dealHandler := handlers.NewDealHandler(dealSvc, transactionSvc, verificationSvc, baseLogger.Named("handlers.deals"))
	streamHandler := handlers.NewStreamHandler(dealSvc, broker, baseLogger.Named("handlers.stream"))
	engine := router.New(dealHandler, streamHandler, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Scheduler, dealSvc, appMetrics, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// No WriteTimeout: the stream endpoint holds connections open.
	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     engine,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLedgerSink(cfg *config.Config, baseLogger *zap.Logger) finalizersvc.LedgerSink {
	switch cfg.Ledger.Sink {
	case config.LedgerSinkSheets:
		sink, err := sheets.NewLedgerSink(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets ledger", zap.Error(err))
		}
		baseLogger.Info("google sheets ledger enabled")
		return sink
	case config.LedgerSinkAirtable:
		baseLogger.Info("airtable ledger enabled")
		return airtable.NewLedgerSink(airtable.NewClient(cfg.Airtable))
	default:
		baseLogger.Warn("ledger sink disabled, transactions are only stored in mongodb")
		return finalizersvc.NopSink{}
	}
}
