package main

import (
	"context"
	"encoding/hex"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sponsorlink/dealcore/internal/chain"
	"github.com/sponsorlink/dealcore/internal/config"
	"github.com/sponsorlink/dealcore/internal/creative"
	"github.com/sponsorlink/dealcore/internal/db"
	"github.com/sponsorlink/dealcore/internal/dealengine"
	"github.com/sponsorlink/dealcore/internal/dispute"
	"github.com/sponsorlink/dealcore/internal/events"
	"github.com/sponsorlink/dealcore/internal/notify"
	"github.com/sponsorlink/dealcore/internal/platform"
	"github.com/sponsorlink/dealcore/internal/platform/telegram"
	"github.com/sponsorlink/dealcore/internal/privacy"
	"github.com/sponsorlink/dealcore/internal/purge"
	"github.com/sponsorlink/dealcore/internal/repositories"
	"github.com/sponsorlink/dealcore/internal/requirement"
	"github.com/sponsorlink/dealcore/internal/saga"
	"github.com/sponsorlink/dealcore/internal/statsparser"
	"github.com/sponsorlink/dealcore/internal/store"
	"github.com/sponsorlink/dealcore/internal/worker"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	key, err := hex.DecodeString(cfg.EscrowEncryptionKey)
	if err != nil {
		log.Fatal("invalid ESCROW_ENCRYPTION_KEY", zap.Error(err))
	}
	cipher, err := privacy.NewFieldCipher(key)
	if err != nil {
		log.Fatal("failed to build field cipher", zap.Error(err))
	}

	chainClient, err := chain.New(ctx, cfg.TONNetwork, cfg.LiteServerConfigURL, cfg.LiteServerFallback,
		cfg.MasterWalletMnemonic, cipher, log)
	if err != nil {
		log.Fatal("failed to connect to chain", zap.Error(err))
	}

	dealRepo := repositories.NewDealRepo(pool)
	channelRepo := repositories.NewChannelRepo(pool)
	creativeRepo := repositories.NewCreativeRepo(pool)
	requirementRepo := repositories.NewRequirementRepo(pool)
	transactionRepo := repositories.NewTransactionRepo(pool)
	transferRepo := repositories.NewPendingTransferRepo(pool)
	disputeRepo := repositories.NewDisputeRepo(pool)
	evidenceRepo := repositories.NewDisputeEvidenceRepo(pool)
	eventRepo := repositories.NewEventRepo(pool)
	receiptRepo := repositories.NewReceiptRepo(pool)
	userRepo := repositories.NewUserRepo(pool)

	st := store.New(pool, log)
	publisher := events.NewRedisPublisher(rdb, log)
	notifier := notify.New(publisher, log)
	engine := dealengine.New(st, dealRepo, eventRepo, requirementRepo, notifier, log)
	evaluator := requirement.New(st, dealRepo, requirementRepo, log)

	registry := platform.NewRegistry()
	parser := statsparser.NewParser(cfg.TMEFetchTimeoutMS, cfg.TMEFetchMaxRetries, log)
	registry.Register(telegram.New(parser, nil, log))

	creativePipeline := creative.New(st, dealRepo, channelRepo, creativeRepo, engine, cipher, registry, log)
	sagaCoord := saga.New(st, dealRepo, channelRepo, userRepo, transactionRepo, transferRepo, chainClient, engine, log)
	disputeProtocol := dispute.New(st, dealRepo, channelRepo, disputeRepo, evidenceRepo, engine, sagaCoord, log)
	purgeWorker := purge.New(st, dealRepo, channelRepo, creativeRepo, transactionRepo, eventRepo, receiptRepo, log)

	locker := worker.NewLocker(rdb)
	workerCfg := worker.Config{
		RetentionDays:          cfg.PurgeRetentionDays,
		StatsRefreshStaleAfter: time.Duration(cfg.StatsRefreshStaleHours) * time.Hour,
		StatsRefreshBatchSize:  cfg.StatsRefreshBatchSize,
	}
	scheduler := worker.New(workerCfg, st, dealRepo, channelRepo, requirementRepo, transactionRepo, transferRepo,
		disputeRepo, chainClient, engine, evaluator, creativePipeline, sagaCoord, disputeProtocol, purgeWorker,
		registry, locker, log)

	log.Info("worker started")

	tick := cfg.WorkerTickInterval
	paymentTicker := time.NewTicker(tick)
	timeoutTicker := time.NewTicker(2 * tick)
	metricTicker := time.NewTicker(5 * tick)
	statsTicker := time.NewTicker(time.Duration(cfg.StatsRefreshStaleHours) * time.Hour)
	sagaTicker := time.NewTicker(tick)
	purgeTicker := time.NewTicker(time.Hour)
	disputeTicker := time.NewTicker(10 * tick)
	defer paymentTicker.Stop()
	defer timeoutTicker.Stop()
	defer metricTicker.Stop()
	defer statsTicker.Stop()
	defer sagaTicker.Stop()
	defer purgeTicker.Stop()
	defer disputeTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-paymentTicker.C:
			runProcessor(ctx, log, "payment_detector", scheduler.RunPaymentDetector)
		case <-timeoutTicker.C:
			runProcessor(ctx, log, "timeout_sweep", scheduler.RunTimeoutSweep)
		case <-metricTicker.C:
			runProcessor(ctx, log, "metric_tracker", scheduler.RunMetricTracker)
		case <-statsTicker.C:
			runProcessor(ctx, log, "stats_refresh", scheduler.RunStatsRefresh)
		case <-sagaTicker.C:
			runProcessor(ctx, log, "saga_recovery", scheduler.RunSagaRecovery)
		case <-purgeTicker.C:
			runProcessor(ctx, log, "purge_worker", scheduler.RunPurgeWorker)
		case <-disputeTicker.C:
			runProcessor(ctx, log, "dispute_escalator", scheduler.RunDisputeEscalator)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

func runProcessor(ctx context.Context, log *zap.Logger, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		log.Error("worker cycle failed", zap.String("processor", name), zap.Error(err))
	}
}
