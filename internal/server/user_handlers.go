package server

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/dikshakatiyar/alerting-system/internal/core"
	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

func (s *Server) handleCreateUser(c *fiber.Ctx) error {
	var req models.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}
	if err := s.validate.Struct(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
	}

	user, err := core.CreateUser(c.Context(), s.db, s.log, &req, s.clock.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidUserPayload):
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		case errors.Is(err, core.ErrUserExists):
			return SendErrorWithType(c, fiber.StatusConflict, "User with this email already exists", models.InvalidStateErrorType)
		default:
			s.log.Error("failed to create user", "error", err)
			return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to create user", models.GeneralErrorType)
		}
	}
	return SendSuccess(c, fiber.StatusCreated, user)
}

func (s *Server) handleListUsers(c *fiber.Ctx) error {
	users, err := core.ListUsers(c.Context(), s.db)
	if err != nil {
		s.log.Error("failed to list users", "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list users", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, users)
}

func (s *Server) handleGetUser(c *fiber.Ctx) error {
	userID, err := s.parseUserID(c)
	if err != nil {
		return err
	}

	user, err := core.GetUser(c.Context(), s.db, userID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "User not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to get user", "user_id", userID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to retrieve user", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, user)
}

func (s *Server) handleListUserAlerts(c *fiber.Ctx) error {
	userID, err := s.parseUserID(c)
	if err != nil {
		return err
	}

	userAlerts, err := core.ListUserAlerts(c.Context(), s.db, s.log, userID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "User not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to list user alerts", "user_id", userID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list user alerts", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, userAlerts)
}

func (s *Server) handleMarkAlertRead(c *fiber.Ctx) error {
	userID, alertID, err := s.parseUserAlertIDs(c)
	if err != nil {
		return err
	}

	state, err := core.MarkAlertRead(c.Context(), s.db, s.log, userID, alertID, s.clock.Now().UTC())
	if err != nil {
		return s.sendStateError(c, "mark alert read", userID, alertID, err)
	}
	return SendSuccess(c, fiber.StatusOK, state)
}

func (s *Server) handleMarkAlertUnread(c *fiber.Ctx) error {
	userID, alertID, err := s.parseUserAlertIDs(c)
	if err != nil {
		return err
	}

	state, err := core.MarkAlertUnread(c.Context(), s.db, s.log, userID, alertID, s.clock.Now().UTC())
	if err != nil {
		return s.sendStateError(c, "mark alert unread", userID, alertID, err)
	}
	return SendSuccess(c, fiber.StatusOK, state)
}

func (s *Server) handleSnoozeAlert(c *fiber.Ctx) error {
	userID, alertID, err := s.parseUserAlertIDs(c)
	if err != nil {
		return err
	}

	state, err := core.SnoozeAlert(c.Context(), s.db, s.log, userID, alertID, s.clock.Now().UTC())
	if err != nil {
		return s.sendStateError(c, "snooze alert", userID, alertID, err)
	}
	return SendSuccess(c, fiber.StatusOK, state)
}

func (s *Server) handleListNotifications(c *fiber.Ctx) error {
	userID, err := s.parseUserID(c)
	if err != nil {
		return err
	}
	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid limit parameter", models.ValidationErrorType)
		}
		limit = parsed
	}

	notifications, err := core.ListUserNotifications(c.Context(), s.db, s.log, userID, limit)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "User not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to list notifications", "user_id", userID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list notifications", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, notifications)
}

// sendStateError maps the shared error kinds of the per-user state
// operations to HTTP responses.
func (s *Server) sendStateError(c *fiber.Ctx, op string, userID models.UserID, alertID models.AlertID, err error) error {
	switch {
	case errors.Is(err, core.ErrUserNotFound):
		return SendErrorWithType(c, fiber.StatusNotFound, "User not found", models.NotFoundErrorType)
	case errors.Is(err, core.ErrAlertNotFound):
		return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
	case errors.Is(err, core.ErrAlertInactive):
		return SendErrorWithType(c, fiber.StatusConflict, "Alert is archived or expired", models.InvalidStateErrorType)
	default:
		s.log.Error("failed to "+op, "user_id", userID, "alert_id", alertID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to "+op, models.GeneralErrorType)
	}
}

func (s *Server) parseUserID(c *fiber.Ctx) (models.UserID, error) {
	userIDStr := c.Params("userID")
	if userIDStr == "" {
		return 0, SendErrorWithType(c, fiber.StatusBadRequest, "User ID is required", models.ValidationErrorType)
	}
	parsed, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil || parsed <= 0 {
		return 0, SendErrorWithType(c, fiber.StatusBadRequest, "Invalid user ID", models.ValidationErrorType)
	}
	return models.UserID(parsed), nil
}

func (s *Server) parseUserAlertIDs(c *fiber.Ctx) (models.UserID, models.AlertID, error) {
	userID, err := s.parseUserID(c)
	if err != nil {
		return 0, 0, err
	}
	alertID, err := s.parseAlertID(c)
	if err != nil {
		return 0, 0, err
	}
	return userID, alertID, nil
}
