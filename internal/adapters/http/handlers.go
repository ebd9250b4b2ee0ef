package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/citc/clubhub/internal/domain/entities"
	"github.com/citc/clubhub/internal/infrastructure/logger"
	"github.com/citc/clubhub/internal/ports"
)

// Context keys set by the authentication middleware
const (
	ContextUserID    = "user"
	ContextUserRole  = "user_role"
	ContextUserEmail = "user_email"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService ports.AuthService
	userService ports.UserService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService ports.AuthService, userService ports.UserService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
		logger:      logger,
	}
}

// Register godoc
// @Summary Register a new account
// @Description The first account registered becomes an admin
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.RegisterRequest true "Account data"
// @Success 201 {object} ports.AuthResponse
// @Failure 400 {object} ports.ErrorResponse
// @Failure 409 {object} ports.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req ports.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	response, err := h.authService.Register(c.Request().Context(), req)
	if err != nil {
		h.logger.Warnw("Registration failed", "error", err, "email", req.Email)
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, response)
}

// Login godoc
// @Summary Log in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.LoginRequest true "Credentials"
// @Success 200 {object} ports.AuthResponse
// @Failure 401 {object} ports.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	response, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		h.logger.LogSecurityEvent("login_failed", "", c.RealIP(), map[string]interface{}{"email": req.Email})
		return mapError(err)
	}

	return c.JSON(http.StatusOK, response)
}

// GoogleLogin godoc
// @Summary Log in with a Google access token
// @Description Responds 201 when the account was created, 200 otherwise
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.GoogleLoginRequest true "Google access token"
// @Success 200 {object} ports.AuthResponse
// @Success 201 {object} ports.AuthResponse
// @Failure 401 {object} ports.ErrorResponse
// @Router /auth/google-login [post]
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	var req ports.GoogleLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.AccessToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "No token provided")
	}

	response, created, err := h.authService.GoogleLogin(c.Request().Context(), req)
	if err != nil {
		return mapError(err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, response)
}

// Me godoc
// @Summary Current account
// @Tags auth
// @Produce json
// @Success 200 {object} entities.PublicUser
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.userService.GetUser(c.Request().Context(), UserID(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateMe updates the current account's profile
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	var req ports.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userService.UpdateProfile(c.Request().Context(), UserID(c), req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UserHandler handles account administration
type UserHandler struct {
	userService ports.UserService
	logger      *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService ports.UserService, logger *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// ListUsers godoc
// @Summary List accounts
// @Tags users
// @Produce json
// @Success 200 {array} entities.PublicUser
// @Security BearerAuth
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.userService.ListUsers(c.Request().Context())
	if err != nil {
		h.logger.Errorw("List users failed", "error", err)
		return mapError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// SetRole godoc
// @Summary Change an account's role
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body ports.SetRoleRequest true "New role"
// @Success 200 {object} entities.PublicUser
// @Security BearerAuth
// @Router /users/{id}/role [put]
func (h *UserHandler) SetRole(c echo.Context) error {
	var req ports.SetRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userService.SetRole(c.Request().Context(), c.Param("id"), req.Role)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// Utility functions

// UserID returns the authenticated user's ID, or "" on public routes.
func UserID(c echo.Context) string {
	id, _ := c.Get(ContextUserID).(string)
	return id
}

// UserRole returns the authenticated user's role
func UserRole(c echo.Context) entities.UserRole {
	role, ok := c.Get(ContextUserRole).(entities.UserRole)
	if !ok {
		return entities.UserRoleGuest
	}
	return role
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// mapError translates domain errors into HTTP errors. Unknown errors become
// 500 with the raw message.
func mapError(err error) error {
	switch {
	case errors.Is(err, entities.ErrAlreadyRSVPed):
		return echo.NewHTTPError(http.StatusBadRequest, "Already RSVPed")
	case errors.Is(err, entities.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error()).SetInternal(err)
	case errors.Is(err, entities.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error()).SetInternal(err)
	case errors.Is(err, entities.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	case errors.Is(err, entities.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error()).SetInternal(err)
	case errors.Is(err, entities.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error()).SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
	}
}
