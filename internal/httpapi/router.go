// Package httpapi is a thin illustrative HTTP binding over the core deal
// lifecycle. It is not the product surface — channel/campaign management,
// full request validation, and the web client all live outside this
// repository (see the out-of-scope external collaborators). What's here
// exists to show each core operation reachable from a request and to
// exercise internal/middleware end to end.
package httpapi

import (
	"time"

	"github.com/sponsorlink/dealcore/internal/config"
	"github.com/sponsorlink/dealcore/internal/creative"
	"github.com/sponsorlink/dealcore/internal/dealengine"
	"github.com/sponsorlink/dealcore/internal/dispute"
	"github.com/sponsorlink/dealcore/internal/middleware"
	"github.com/sponsorlink/dealcore/internal/repositories"
	"github.com/sponsorlink/dealcore/internal/requirement"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// API holds every collaborator a handler in this package may need.
type API struct {
	cfg          *config.Config
	deals        *repositories.DealRepo
	users        *repositories.UserRepo
	receipts     *repositories.ReceiptRepo
	adFormats    *repositories.AdFormatRepo
	engine       *dealengine.Engine
	creatives    *creative.Pipeline
	disputes     *dispute.Protocol
	requirements *requirement.Evaluator
	log          *zap.Logger
}

func New(cfg *config.Config, deals *repositories.DealRepo, users *repositories.UserRepo,
	receipts *repositories.ReceiptRepo, adFormats *repositories.AdFormatRepo, engine *dealengine.Engine,
	creatives *creative.Pipeline, disputes *dispute.Protocol, requirements *requirement.Evaluator,
	log *zap.Logger) *API {
	return &API{
		cfg: cfg, deals: deals, users: users, receipts: receipts, adFormats: adFormats, engine: engine,
		creatives: creatives, disputes: disputes, requirements: requirements, log: log,
	}
}

// Mount wires every route onto app. rdb backs the rate limiter ahead of
// the authenticated group.
func (a *API) Mount(app *fiber.App, rdb *redis.Client) {
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(a.log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "timestamp": time.Now().UTC()})
	})

	api := app.Group("/api/v1")
	api.Post("/auth/telegram", a.TelegramAuth)
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	protected := api.Group("", middleware.AuthMiddleware(a.cfg, a.log))

	protected.Get("/me", a.GetMe)

	protected.Post("/deals", a.CreateDeal)
	protected.Get("/deals", a.ListDeals)
	protected.Get("/deals/:id", a.GetDeal)
	protected.Post("/deals/:id/cancel", a.CancelDeal)
	protected.Get("/deals/:id/receipt", a.GetReceipt)

	protected.Post("/deals/:id/creative", a.SubmitCreative)
	protected.Get("/deals/:id/creatives", a.GetCreatives)
	protected.Post("/deals/:id/creative/approve", a.ApproveCreative)
	protected.Post("/deals/:id/creative/revision", a.RequestCreativeRevision)
	protected.Post("/deals/:id/post-proof", a.SubmitPostProof)

	protected.Post("/deals/:id/requirements/:rid/waive", a.WaiveRequirement)
	protected.Post("/deals/:id/requirements/:rid/confirm", a.ConfirmRequirement)

	protected.Post("/deals/:id/dispute", a.OpenDispute)
	protected.Post("/deals/:id/dispute/evidence", a.SubmitDisputeEvidence)
	protected.Post("/deals/:id/dispute/propose", a.ProposeDisputeResolution)
	protected.Post("/deals/:id/dispute/accept", a.AcceptDisputeProposal)

	admin := protected.Group("", middleware.AdminMiddleware(a.cfg))
	admin.Post("/deals/:id/dispute/resolve", a.AdminResolveDispute)
}
