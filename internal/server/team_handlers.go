package server

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/dikshakatiyar/alerting-system/internal/core"
	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

func (s *Server) handleCreateTeam(c *fiber.Ctx) error {
	var req models.CreateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}
	if err := s.validate.Struct(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
	}

	team, err := core.CreateTeam(c.Context(), s.db, s.log, &req, s.clock.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidTeamPayload):
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		case errors.Is(err, core.ErrTeamExists):
			return SendErrorWithType(c, fiber.StatusConflict, "Team with this name already exists", models.InvalidStateErrorType)
		default:
			s.log.Error("failed to create team", "error", err)
			return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to create team", models.GeneralErrorType)
		}
	}
	return SendSuccess(c, fiber.StatusCreated, team)
}

func (s *Server) handleListTeams(c *fiber.Ctx) error {
	teams, err := core.ListTeams(c.Context(), s.db)
	if err != nil {
		s.log.Error("failed to list teams", "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list teams", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, teams)
}

func (s *Server) handleGetTeam(c *fiber.Ctx) error {
	teamID, err := s.parseTeamID(c)
	if err != nil {
		return err
	}

	team, err := core.GetTeam(c.Context(), s.db, teamID)
	if err != nil {
		if errors.Is(err, core.ErrTeamNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Team not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to get team", "team_id", teamID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to retrieve team", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, team)
}

func (s *Server) handleListTeamMembers(c *fiber.Ctx) error {
	teamID, err := s.parseTeamID(c)
	if err != nil {
		return err
	}

	members, err := core.ListTeamMembers(c.Context(), s.db, teamID)
	if err != nil {
		if errors.Is(err, core.ErrTeamNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Team not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to list team members", "team_id", teamID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list team members", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, members)
}

func (s *Server) handleAddTeamMember(c *fiber.Ctx) error {
	teamID, err := s.parseTeamID(c)
	if err != nil {
		return err
	}

	var req models.AddTeamMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}
	if err := s.validate.Struct(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
	}

	if err := core.AddTeamMember(c.Context(), s.db, s.log, teamID, req.UserID, s.clock.Now().UTC()); err != nil {
		switch {
		case errors.Is(err, core.ErrTeamNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "Team not found", models.NotFoundErrorType)
		case errors.Is(err, core.ErrUserNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "User not found", models.NotFoundErrorType)
		default:
			s.log.Error("failed to add team member", "team_id", teamID, "user_id", req.UserID, "error", err)
			return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to add team member", models.GeneralErrorType)
		}
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"message": "Member added"})
}

func (s *Server) handleRemoveTeamMember(c *fiber.Ctx) error {
	teamID, err := s.parseTeamID(c)
	if err != nil {
		return err
	}
	userID, err := s.parseUserID(c)
	if err != nil {
		return err
	}

	if err := core.RemoveTeamMember(c.Context(), s.db, s.log, teamID, userID); err != nil {
		switch {
		case errors.Is(err, core.ErrTeamNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "Team not found", models.NotFoundErrorType)
		case errors.Is(err, core.ErrTeamMemberNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "Team member not found", models.NotFoundErrorType)
		default:
			s.log.Error("failed to remove team member", "team_id", teamID, "user_id", userID, "error", err)
			return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to remove team member", models.GeneralErrorType)
		}
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"message": "Member removed"})
}

func (s *Server) parseTeamID(c *fiber.Ctx) (models.TeamID, error) {
	teamIDStr := c.Params("teamID")
	if teamIDStr == "" {
		return 0, SendErrorWithType(c, fiber.StatusBadRequest, "Team ID is required", models.ValidationErrorType)
	}
	parsed, err := strconv.ParseInt(teamIDStr, 10, 64)
	if err != nil || parsed <= 0 {
		return 0, SendErrorWithType(c, fiber.StatusBadRequest, "Invalid team ID", models.ValidationErrorType)
	}
	return models.TeamID(parsed), nil
}
