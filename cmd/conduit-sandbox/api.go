// Package main provides the conduit sandbox server, a local backend speaking
// the integration management API.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/conduit/pkg/eventbus"
	"github.com/dukex/conduit/pkg/persistence"
	"github.com/dukex/conduit/pkg/services"
	"github.com/dukex/conduit/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	catalog     *services.Catalog
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

// NewAPI wires the sandbox. eventBus may be nil, in which case no events are
// published and deployments stay Pending.
func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	catalog *services.Catalog,
	eventBus eventbus.EventBus,
) *API {
	if catalog == nil {
		catalog = services.NewCatalog(nil)
	}

	return &API{
		persistence: persistence,
		logger:      logger,
		catalog:     catalog,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) publisher() eventbus.EventPublisher {
	if a.eventBus == nil {
		return nil
	}

	return a.eventBus
}

func (a *API) App() *fiber.App {
	integrationService := services.NewIntegration(a.persistence, a.publisher(), a.logger)
	deploymentService := services.NewDeployment(a.persistence, a.publisher(), a.logger)
	activityService := services.NewActivity(a.persistence, a.publisher(), a.logger)
	supportService := services.NewSupport(a.persistence, a.logger)

	handlers := web.NewAPIHandlers(
		integrationService,
		deploymentService,
		activityService,
		supportService,
		a.catalog,
		a.validate,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Conduit Sandbox")
	})

	handlers.Register(app)

	return app
}

// StartReconciler subscribes the deployment reconciler to the event bus.
func (a *API) StartReconciler(ctx context.Context) error {
	if a.eventBus == nil {
		return nil
	}

	deploymentService := services.NewDeployment(a.persistence, a.eventBus, a.logger)
	if err := deploymentService.RegisterReconciler(a.eventBus); err != nil {
		return err
	}

	return a.eventBus.Subscribe(ctx)
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
