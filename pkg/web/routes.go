package web

import "github.com/gofiber/fiber/v3"

// Register mounts every sandbox endpoint on router.
func (h *APIHandlers) Register(router fiber.Router) {
	i := router.Group("/integrations")
	i.Get("/", h.GetIntegrations)
	i.Post("/", h.CreateIntegration)
	i.Get("/:id", h.GetIntegration)
	i.Put("/:id", h.UpdateIntegration)
	i.Patch("/:id", h.PatchIntegration)
	i.Delete("/:id", h.DeleteIntegration)

	i.Get("/:id/deployments", h.GetDeployments)
	i.Put("/:id/deployments", h.DeployIntegration)
	i.Get("/:id/deployments/:version", h.GetDeployment)
	i.Post("/:id/deployments/:version/targetState", h.SetTargetState)

	router.Put("/public/integrations/:id/tags", h.TagIntegration)

	s := router.Group("/integration-support")
	s.Post("/import", h.ImportIntegration)
	s.Get("/export.zip", h.ExportIntegration)

	conn := router.Group("/connections")
	conn.Get("/", h.GetConnections)
	conn.Get("/:connectionId", h.GetConnection)
	conn.Post("/:connectionId/actions/:actionId", h.GetActionDescriptor)

	a := router.Group("/activity/integrations")
	a.Get("/:id", h.GetActivity)
	a.Post("/:id", h.RecordActivity)

	router.Get("/health", h.HealthCheck)
}
