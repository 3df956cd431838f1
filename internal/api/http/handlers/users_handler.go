package handlers

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-api/internal/api/dto"
	"github.com/spec-kit/user-api/internal/auth"
	"github.com/spec-kit/user-api/internal/repository"
	"github.com/spec-kit/user-api/internal/service"
	apperrors "github.com/spec-kit/user-api/pkg/util"
)

// UsersHandler exposes user management under /api/users.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// List handles GET /api/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext())
	if err != nil {
		return mapUserError(err)
	}
	return c.JSON(dto.NewUserResponses(users))
}

// Get handles GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapUserError(err)
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.ValidateCreate(); err != nil {
		return validationError(err)
	}

	user, err := h.users.Create(c.UserContext(), toInput(req))
	if err != nil {
		return mapUserError(err)
	}
	return c.Status(http.StatusCreated).JSON(dto.NewUserResponse(user))
}

// Update handles PUT /api/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req dto.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.ValidateUpdate(); err != nil {
		return validationError(err)
	}

	user, err := h.users.Update(c.UserContext(), c.Params("id"), toInput(req))
	if err != nil {
		return mapUserError(err)
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Delete handles DELETE /api/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	if err := h.users.Delete(c.UserContext(), c.Params("id")); err != nil {
		return mapUserError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Me handles GET /api/me and echoes the authenticated principal.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required", auth.ErrAuthorizationDenied)
	}
	return c.JSON(principal)
}

func toInput(req dto.UserRequest) service.UserInput {
	return service.UserInput{
		Username: req.Username,
		Email:    req.Email,
		Role:     req.Role,
		Password: req.Password,
	}
}

func validationError(err error) error {
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError("invalid user", map[string]any{"fields": fieldErrs})
	}
	return apperrors.NewValidationError("invalid user", nil)
}

func mapUserError(err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return apperrors.NewNotFound("user")
	case errors.Is(err, repository.ErrUserConflict):
		return apperrors.NewConflict("username or email already exists", nil)
	default:
		return apperrors.NewInternalError(err)
	}
}
