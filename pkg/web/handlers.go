package web

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/conduit/pkg/models"
	"github.com/dukex/conduit/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const contentTypeZip = "application/zip"

type APIHandlers struct {
	integrationService *services.Integration
	deploymentService  *services.Deployment
	activityService    *services.Activity
	supportService     *services.Support
	catalog            *services.Catalog
	validator          *validator.Validate
}

func NewAPIHandlers(
	integrationService *services.Integration,
	deploymentService *services.Deployment,
	activityService *services.Activity,
	supportService *services.Support,
	catalog *services.Catalog,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		integrationService: integrationService,
		deploymentService:  deploymentService,
		activityService:    activityService,
		supportService:     supportService,
		catalog:            catalog,
		validator:          validator,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	persistenceCheck, ok := h.integrationService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Conduit sandbox is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Conduit sandbox is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"persistence": persistenceCheck,
			"catalog":     strconv.Itoa(len(h.catalog.Connections())) + " connections",
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetIntegrations(c fiber.Ctx) error {
	integrations, err := h.integrationService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(integrations)
}

func (h *APIHandlers) GetIntegration(c fiber.Ctx) error {
	integration, err := h.integrationService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(integration)
}

func (h *APIHandlers) CreateIntegration(c fiber.Ctx) error {
	var integration models.Integration
	if err := c.Bind().JSON(&integration); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(integration); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.integrationService.Create(c.Context(), &integration)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateIntegration(c fiber.Ctx) error {
	var integration models.Integration
	if err := c.Bind().JSON(&integration); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(integration); err != nil {
		return badRequest(c, err.Error())
	}

	if _, err := h.integrationService.Update(c.Context(), c.Params("id"), &integration); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) PatchIntegration(c fiber.Ctx) error {
	attributes := map[string]any{}
	if err := c.Bind().JSON(&attributes); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if _, err := h.integrationService.Patch(c.Context(), c.Params("id"), attributes); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) DeleteIntegration(c fiber.Ctx) error {
	if err := h.integrationService.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) TagIntegration(c fiber.Ctx) error {
	var req TagsRequest
	if err := c.Bind().JSON(&req.Environments); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	environments, err := h.integrationService.Tag(c.Context(), c.Params("id"), req.Environments)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(environments)
}

func (h *APIHandlers) GetDeployments(c fiber.Ctx) error {
	deployments, err := h.deploymentService.List(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(deployments)
}

func (h *APIHandlers) DeployIntegration(c fiber.Ctx) error {
	deployment, err := h.deploymentService.Deploy(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(deployment)
}

func (h *APIHandlers) GetDeployment(c fiber.Ctx) error {
	params, err := h.deploymentParams(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	deployment, err := h.deploymentService.Get(c.Context(), params.ID, params.Version)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(deployment)
}

func (h *APIHandlers) SetTargetState(c fiber.Ctx) error {
	params, err := h.deploymentParams(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	var req models.TargetStateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	deployment, err := h.deploymentService.SetTargetState(c.Context(), params.ID, params.Version, req.TargetState)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(deployment)
}

func (h *APIHandlers) deploymentParams(c fiber.Ctx) (DeploymentParams, error) {
	version, err := strconv.Atoi(c.Params("version"))
	if err != nil {
		return DeploymentParams{}, err
	}

	params := DeploymentParams{ID: c.Params("id"), Version: version}

	return params, h.validator.Struct(params)
}

func (h *APIHandlers) ImportIntegration(c fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return badRequest(c, "Archive is required")
	}

	imported, err := h.supportService.Import(c.Context(), body)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ImportResponse{Integrations: imported})
}

func (h *APIHandlers) ExportIntegration(c fiber.Ctx) error {
	var req ExportRequest
	if err := c.Bind().Query(&req); err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	var archive bytes.Buffer
	if err := h.supportService.Export(c.Context(), &archive, req.ID); err != nil {
		return handleServiceError(c, err)
	}

	c.Set(fiber.HeaderContentType, contentTypeZip)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+req.ID+`-export.zip"`)

	return c.Send(archive.Bytes())
}

func (h *APIHandlers) GetConnections(c fiber.Ctx) error {
	return c.JSON(h.catalog.Connections())
}

func (h *APIHandlers) GetConnection(c fiber.Ctx) error {
	connection, err := h.catalog.Connection(c.Params("connectionId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(connection)
}

func (h *APIHandlers) GetActionDescriptor(c fiber.Ctx) error {
	params := ActionParams{
		ConnectionID: c.Params("connectionId"),
		ActionID:     c.Params("actionId"),
	}

	if err := h.validator.Struct(params); err != nil {
		return badRequest(c, err.Error())
	}

	props := map[string]any{}
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&props); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	descriptor, err := h.catalog.Descriptor(params.ConnectionID, params.ActionID, props)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(descriptor)
}

func (h *APIHandlers) GetActivity(c fiber.Ctx) error {
	activities, err := h.activityService.List(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(activities)
}

func (h *APIHandlers) RecordActivity(c fiber.Ctx) error {
	var activity models.Activity
	if err := c.Bind().JSON(&activity); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	recorded, err := h.activityService.Record(c.Context(), c.Params("id"), &activity)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(recorded)
}
