package httpapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/innovatopia-jp/sourcedesk/internal/db"
)

type createUserRequest struct {
	Name string `json:"name"`
}

type renameUserRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListUsers(c echo.Context) error {
	items, err := s.users.ListUsers(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list users failed")
		return internalError(c, "Failed to load users")
	}
	return success(c, map[string]any{"items": items})
}

func (s *Server) handleCreateUser(c echo.Context) error {
	var req createUserRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return failValidation(c, map[string]string{"name": "is required"})
	}

	user, err := s.users.CreateUser(c.Request().Context(), name)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return failConflict(c, "User name is already registered")
		}
		s.logger.Error().Err(err).Str("name", name).Msg("create user failed")
		return internalError(c, "Failed to create user")
	}

	return successWithStatus(c, http.StatusCreated, map[string]any{"user": user})
}

func (s *Server) handleRenameUser(c echo.Context) error {
	userID, err := parseID(c.Param("id"))
	if err != nil {
		return failValidation(c, map[string]string{"id": err.Error()})
	}

	var req renameUserRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return failValidation(c, map[string]string{"name": "is required"})
	}

	affected, err := s.users.RenameUser(c.Request().Context(), userID, name)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return failConflict(c, "User name is already registered")
		}
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("rename user failed")
		return internalError(c, "Failed to rename user")
	}
	if affected == 0 {
		return failNotFound(c, "User not found")
	}

	return success(c, map[string]any{"user": db.UserRecord{ID: userID, Name: name}})
}

func (s *Server) handleUserStateCounts(c echo.Context) error {
	userID, err := parseID(c.Param("id"))
	if err != nil {
		return failValidation(c, map[string]string{"id": err.Error()})
	}

	counts, err := s.manager.StateCountsByAuthor(c.Request().Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("user state counts failed")
		return internalError(c, "Failed to load state counts")
	}

	return success(c, map[string]any{
		"user_id": userID,
		"counts":  counts,
	})
}
