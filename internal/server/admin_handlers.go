package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dikshakatiyar/alerting-system/internal/core"
	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

func (s *Server) handleAnalyticsSummary(c *fiber.Ctx) error {
	report, err := core.BuildAnalyticsReport(c.Context(), s.db, s.log, s.clock.Now().UTC())
	if err != nil {
		s.log.Error("failed to build analytics report", "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to build analytics report", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, report)
}

// handleTriggerReminderTick runs one reminder pass on demand. The pass is
// claim-based, so triggering it while the internal runner is live never
// duplicates a notification.
func (s *Server) handleTriggerReminderTick(c *fiber.Ctx) error {
	report, err := s.scheduler.RunTick(c.Context())
	if err != nil {
		s.log.Error("manual reminder pass failed", "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to run reminder pass", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, report)
}
