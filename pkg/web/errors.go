package web

import (
	"errors"

	"github.com/dukex/conduit/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, problemType, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case errors.Is(err, services.ErrIntegrationNotFound):
		return notFound(c, "integration_not_found", "integration not found")

	case errors.Is(err, services.ErrDeploymentNotFound):
		return notFound(c, "deployment_not_found", "deployment not found")

	case errors.Is(err, services.ErrConnectionNotFound):
		return notFound(c, "connection_not_found", "connection not found")

	case errors.Is(err, services.ErrActionNotFound):
		return notFound(c, "action_not_found", "action not found")

	default:
		return internalError(c, err)
	}
}
