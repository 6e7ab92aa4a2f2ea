package web

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/weftlabs/weft/pkg/persistence"
	"github.com/weftlabs/weft/pkg/queue"
)

type API struct {
	logger   *slog.Logger
	store    persistence.Persistence
	queue    *queue.Queue
	validate *validator.Validate
}

func NewAPI(logger *slog.Logger, store persistence.Persistence, q *queue.Queue) *API {
	return &API{
		logger:   logger,
		store:    store,
		queue:    q,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := NewAPIHandlers(a.store, a.queue, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Weft API")
	})

	app.All("/webhooks/:workflowId", handlers.TriggerWebhook)
	app.Post("/workflows/:id/run", handlers.RunWorkflow)
	app.Get("/executions/:id", handlers.GetExecution)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
