package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sponsorlink/dealcore/internal/chain"
	"github.com/sponsorlink/dealcore/internal/config"
	"github.com/sponsorlink/dealcore/internal/creative"
	"github.com/sponsorlink/dealcore/internal/db"
	"github.com/sponsorlink/dealcore/internal/dealengine"
	"github.com/sponsorlink/dealcore/internal/dispute"
	"github.com/sponsorlink/dealcore/internal/events"
	"github.com/sponsorlink/dealcore/internal/httpapi"
	"github.com/sponsorlink/dealcore/internal/notify"
	"github.com/sponsorlink/dealcore/internal/platform"
	"github.com/sponsorlink/dealcore/internal/platform/telegram"
	"github.com/sponsorlink/dealcore/internal/privacy"
	"github.com/sponsorlink/dealcore/internal/repositories"
	"github.com/sponsorlink/dealcore/internal/requirement"
	"github.com/sponsorlink/dealcore/internal/saga"
	"github.com/sponsorlink/dealcore/internal/statsparser"
	"github.com/sponsorlink/dealcore/internal/store"
	"github.com/gofiber/fiber/v2"
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

	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

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

	dealRepo := repositories.NewDealRepo(pool)
	channelRepo := repositories.NewChannelRepo(pool)
	creativeRepo := repositories.NewCreativeRepo(pool)
	requirementRepo := repositories.NewRequirementRepo(pool)
	disputeRepo := repositories.NewDisputeRepo(pool)
	evidenceRepo := repositories.NewDisputeEvidenceRepo(pool)
	transactionRepo := repositories.NewTransactionRepo(pool)
	transferRepo := repositories.NewPendingTransferRepo(pool)
	eventRepo := repositories.NewEventRepo(pool)
	receiptRepo := repositories.NewReceiptRepo(pool)
	userRepo := repositories.NewUserRepo(pool)
	adFormatRepo := repositories.NewAdFormatRepo(pool)

	st := store.New(pool, log)
	publisher := events.NewRedisPublisher(rdb, log)
	notifier := notify.New(publisher, log)
	engine := dealengine.New(st, dealRepo, eventRepo, requirementRepo, notifier, log)
	evaluator := requirement.New(st, dealRepo, requirementRepo, log)

	registry := platform.NewRegistry()
	parser := statsparser.NewParser(cfg.TMEFetchTimeoutMS, cfg.TMEFetchMaxRetries, log)
	registry.Register(telegram.New(parser, nil, log))

	creativePipeline := creative.New(st, dealRepo, channelRepo, creativeRepo, engine, cipher, registry, log)

	chainClient, err := chain.New(ctx, cfg.TONNetwork, cfg.LiteServerConfigURL, cfg.LiteServerFallback,
		cfg.MasterWalletMnemonic, cipher, log)
	if err != nil {
		log.Fatal("failed to connect to chain", zap.Error(err))
	}
	sagaCoord := saga.New(st, dealRepo, channelRepo, userRepo, transactionRepo, transferRepo, chainClient, engine, log)
	disputeProtocol := dispute.New(st, dealRepo, channelRepo, disputeRepo, evidenceRepo, engine, sagaCoord, log)

	api := httpapi.New(cfg, dealRepo, userRepo, receiptRepo, adFormatRepo, engine, creativePipeline, disputeProtocol, evaluator, log)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": "internal_error", "message": err.Error()})
		},
	})
	api.Mount(app, rdb)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
