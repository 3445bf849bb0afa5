package server

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/dikshakatiyar/alerting-system/internal/core"
	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

func (s *Server) handleCreateAlert(c *fiber.Ctx) error {
	var req models.CreateAlertRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}
	if err := s.validate.Struct(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
	}

	alert, err := core.CreateAlert(c.Context(), s.db, s.dispatcher, s.log, &req, s.config.Reminders.DefaultInterval, s.clock.Now().UTC())
	if err != nil {
		if errors.Is(err, core.ErrInvalidAlertPayload) {
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		}
		s.log.Error("failed to create alert", "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to create alert", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusCreated, alert)
}

func (s *Server) handleListAlerts(c *fiber.Ctx) error {
	filter := models.AlertFilter{
		Severity:       models.AlertSeverity(c.Query("severity")),
		Status:         models.AlertStatus(c.Query("status")),
		VisibilityKind: models.VisibilityKind(c.Query("visibility")),
		Expr:           c.Query("q"),
	}

	alerts, err := core.ListAlerts(c.Context(), s.db, s.log, filter)
	if err != nil {
		if errors.Is(err, core.ErrInvalidFilter) {
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		}
		s.log.Error("failed to list alerts", "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list alerts", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, alerts)
}

func (s *Server) handleGetAlert(c *fiber.Ctx) error {
	alertID, err := s.parseAlertID(c)
	if err != nil {
		return err
	}

	alert, err := core.GetAlert(c.Context(), s.db, s.log, alertID)
	if err != nil {
		if errors.Is(err, core.ErrAlertNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to get alert", "alert_id", alertID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to retrieve alert", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, alert)
}

func (s *Server) handleUpdateAlert(c *fiber.Ctx) error {
	alertID, err := s.parseAlertID(c)
	if err != nil {
		return err
	}

	var req models.UpdateAlertRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	updated, err := core.UpdateAlert(c.Context(), s.db, s.log, alertID, &req, s.clock.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidAlertPayload):
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		case errors.Is(err, core.ErrAlertNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		case errors.Is(err, core.ErrAlertArchived):
			return SendErrorWithType(c, fiber.StatusConflict, "Alert is archived", models.InvalidStateErrorType)
		default:
			s.log.Error("failed to update alert", "alert_id", alertID, "error", err)
			return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to update alert", models.GeneralErrorType)
		}
	}
	return SendSuccess(c, fiber.StatusOK, updated)
}

func (s *Server) handleArchiveAlert(c *fiber.Ctx) error {
	alertID, err := s.parseAlertID(c)
	if err != nil {
		return err
	}

	archived, err := core.ArchiveAlert(c.Context(), s.db, s.log, alertID, s.clock.Now().UTC())
	if err != nil {
		if errors.Is(err, core.ErrAlertNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to archive alert", "alert_id", alertID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to archive alert", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, archived)
}

func (s *Server) parseAlertID(c *fiber.Ctx) (models.AlertID, error) {
	alertIDStr := c.Params("alertID")
	if alertIDStr == "" {
		return 0, SendErrorWithType(c, fiber.StatusBadRequest, "Alert ID is required", models.ValidationErrorType)
	}
	parsed, err := strconv.ParseInt(alertIDStr, 10, 64)
	if err != nil || parsed <= 0 {
		return 0, SendErrorWithType(c, fiber.StatusBadRequest, "Invalid alert ID", models.ValidationErrorType)
	}
	return models.AlertID(parsed), nil
}
