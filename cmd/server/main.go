package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mamadbah2/foodstation/internal/config"
	"github.com/mamadbah2/foodstation/internal/domain/models"
	"github.com/mamadbah2/foodstation/internal/domain/repositories"
	"github.com/mamadbah2/foodstation/internal/events"
	kafkaevents "github.com/mamadbah2/foodstation/internal/events/kafka"
	"github.com/mamadbah2/foodstation/internal/repository/mongodb"
	"github.com/mamadbah2/foodstation/internal/repository/sheets"
	"github.com/mamadbah2/foodstation/internal/scheduler"
	"github.com/mamadbah2/foodstation/internal/server/handlers"
	"github.com/mamadbah2/foodstation/internal/server/router"
	commandsvc "github.com/mamadbah2/foodstation/internal/service/commands"
	ledgersvc "github.com/mamadbah2/foodstation/internal/service/ledger"
	reportingsvc "github.com/mamadbah2/foodstation/internal/service/reporting"
	shipmentsvc "github.com/mamadbah2/foodstation/internal/service/shipments"
	whatsappsvc "github.com/mamadbah2/foodstation/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/foodstation/pkg/clients/whatsapp"
	"github.com/mamadbah2/foodstation/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)
	loc := cfg.Location()

	mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName, baseLogger.Named("repo.mongodb"))
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	var sheetsRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		sheetsRepo, err = sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
	}

	var shipmentRepo repositories.ShipmentRepository = mongoRepo
	if cfg.Ledger.ShipmentSource == config.ShipmentSourceSheets {
		shipmentRepo = sheets.NewShipmentSheet(sheetsRepo, loc, baseLogger.Named("repo.sheets.shipments"))
	}
	reconciler := shipmentsvc.NewReconciler(shipmentRepo, shipmentRepo, loc, baseLogger.Named("svc.shipments"))

	aggregator := reportingsvc.NewAggregator(mongoRepo, models.RevenueBasis(cfg.Ledger.RevenueBasis), baseLogger.Named("svc.reporting"))
	opts := []ledgersvc.Option{ledgersvc.WithSummarizer(aggregator)}

	if cfg.Redis.Address != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password})
		defer func() { _ = redisClient.Close() }()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			baseLogger.Fatal("failed to reach redis", zap.Error(err))
		}
		opts = append(opts, ledgersvc.WithLocker(ledgersvc.NewRedisLocker(redislock.New(redisClient), cfg.Redis.LockTTL, baseLogger.Named("svc.ledger.lock"))))
		baseLogger.Info("distributed pipeline lock enabled", zap.String("redis", cfg.Redis.Address))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher := kafkaevents.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := publisher.Close(); err != nil {
				baseLogger.Error("failed to close kafka writer", zap.Error(err))
			}
		}()
		opts = append(opts, ledgersvc.WithPublisher(publisher))
		baseLogger.Info("ledger events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		opts = append(opts, ledgersvc.WithPublisher(events.NopPublisher{}))
	}

	ledgerSvc := ledgersvc.NewService(mongoRepo, reconciler, baseLogger.Named("svc.ledger"), opts...)

	repaired, err := ledgerSvc.RepairPending(context.Background())
	if err != nil {
		baseLogger.Error("startup cascade repair failed", zap.Error(err))
	} else if len(repaired) > 0 {
		baseLogger.Warn("finished interrupted cascades at startup", zap.Int("pipelines", len(repaired)))
	}

	var summaryExporter reportingsvc.SummaryExporter
	if sheetsRepo != nil {
		summaryExporter = sheets.NewSummaryExporter(sheetsRepo)
	}
	weeklyReporter := reportingsvc.NewWeeklyReporter(ledgerSvc, mongoRepo, summaryExporter, loc, baseLogger.Named("svc.reporting.weekly"))

	var (
		webhookHandler *handlers.WebhookHandler
		messenger      scheduler.Messenger
	)
	if cfg.WhatsApp.Enabled() {
		commandDispatcher := commandsvc.NewService(ledgerSvc, loc, baseLogger.Named("svc.commands"))
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, commandDispatcher, baseLogger.Named("svc.whatsapp"))
		webhookHandler = handlers.NewWebhookHandler(messagingSvc, weeklyReporter, cfg.WhatsApp.ReportRecipient, baseLogger.Named("handlers.whatsapp"))
		messenger = messagingSvc
	} else {
		baseLogger.Warn("whatsapp token missing, chat commands disabled")
	}

	ledgerHandler := handlers.NewLedgerHandler(ledgerSvc, reconciler, loc, baseLogger.Named("handlers.ledger"))
	engine := router.New(ledgerHandler, webhookHandler, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(*cfg, weeklyReporter, ledgerSvc, messenger, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("timezone", loc.String()))
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
