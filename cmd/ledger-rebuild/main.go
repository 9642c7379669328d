package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mamadbah2/foodstation/internal/config"
	"github.com/mamadbah2/foodstation/internal/domain/models"
	"github.com/mamadbah2/foodstation/internal/repository/mongodb"
	ledgersvc "github.com/mamadbah2/foodstation/internal/service/ledger"
	"github.com/mamadbah2/foodstation/pkg/logger"
)

// beginning precedes every recorded day.
const beginning = models.Day("0001-01-01")

func main() {
	envFile := flag.String("env", "", "Optional: env file to load")
	pipelineFlag := flag.String("pipeline", "", "Optional: pipeline to rebuild. Defaults to every pipeline.")
	fromFlag := flag.String("from", "", "Optional: rebuild from date (YYYY-MM-DD). Defaults to the first recorded day.")
	pendingOnly := flag.Bool("pending-only", false, "Only finish cascades left pending by an interrupted write")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failing pipelines and continue rebuilding others")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, log.Named("repo.mongodb"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect mongodb: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = repo.Close(context.Background()) }()

	opts, closeLocker, err := lockerOptions(ctx, cfg.Redis, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer closeLocker()

	// Rebuild never reconciles shipments; it only restores the carry-over chain.
	svc := ledgersvc.NewService(repo, nil, log.Named("svc.ledger"), opts...)

	if *pendingOnly {
		repaired, err := svc.RepairPending(ctx)
		for _, p := range repaired {
			fmt.Printf("Finished pending cascade for %s\n", p)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "repair failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	from := beginning
	if strings.TrimSpace(*fromFlag) != "" {
		from, err = models.ParseDay(*fromFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid from date: %v\n", err)
			os.Exit(1)
		}
	}

	var pipelines []models.PipelineKind
	if strings.TrimSpace(*pipelineFlag) != "" {
		kind, err := models.ParsePipelineKind(*pipelineFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		pipelines = append(pipelines, kind)
	} else {
		for _, p := range models.Pipelines() {
			pipelines = append(pipelines, p.Kind)
		}
	}

	for _, p := range pipelines {
		fmt.Printf("Rebuilding pipeline=%s from=%s\n", p, from)
		res, err := svc.Rebuild(ctx, p, from)
		if err != nil {
			log.Error("rebuild failed", zap.String("pipeline", string(p)), zap.Error(err))
			if *continueOnError {
				fmt.Fprintf(os.Stderr, "rebuild failed (skipping): %v\n", err)
				continue
			}
			fmt.Fprintf(os.Stderr, "rebuild failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  rewrote %d records, %d shortfalls\n", len(res.Updated), len(res.Shortfalls))
		for _, sf := range res.Shortfalls {
			fmt.Printf("  shortfall: %s\n", sf)
		}
	}
}

// lockerOptions takes the same Redis pipeline locks as the server when Redis
// is configured, so a rebuild never races a live cascade.
func lockerOptions(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) ([]ledgersvc.Option, func(), error) {
	if cfg.Address == "" {
		return nil, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Address, Password: cfg.Password})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, func() {}, fmt.Errorf("connect redis %s: %w", cfg.Address, err)
	}

	locker := ledgersvc.NewRedisLocker(redislock.New(client), cfg.LockTTL, log.Named("svc.ledger.lock"))
	return []ledgersvc.Option{ledgersvc.WithLocker(locker)}, func() { _ = client.Close() }, nil
}
