package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-api/internal/auth"
	"github.com/spec-kit/user-api/internal/domain"
	"github.com/spec-kit/user-api/internal/service"
	apperrors "github.com/spec-kit/user-api/pkg/util"
)

// AuthHandler exposes the login endpoint.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/login. username and password come from the query
// string or a form body; the response body is the bare token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	creds := domain.Credentials{
		Username: c.FormValue("username"),
		Password: c.FormValue("password"),
	}
	if creds.Username == "" || creds.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	token, _, err := h.auth.Login(c.UserContext(), creds)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return apperrors.NewUnauthorized("invalid credentials", err)
		}
		return apperrors.NewInternalError(err)
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.SendString(token)
}
