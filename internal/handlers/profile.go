package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/rampwallet/internal/auth"
	"github.com/example/rampwallet/internal/middleware"
	"github.com/example/rampwallet/internal/store"
)

// ProfileHandler manages user profile endpoints.
type ProfileHandler struct {
	store    store.Store
	accounts *auth.Service
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(st store.Store, accounts *auth.Service) *ProfileHandler {
	return &ProfileHandler{store: st, accounts: accounts}
}

// GetProfile returns authenticated user profile.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return auth.ErrMissingCredential
	}

	user, err := h.store.FindUserByID(c.UserContext(), identity.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return auth.ErrUnknownSubject
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    user.Public(),
	})
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

// DeleteProfile removes the account and all of its data after re-checking
// the password.
func (h *ProfileHandler) DeleteProfile(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return auth.ErrMissingCredential
	}

	var req deleteAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "password is required")
	}

	if err := h.accounts.DeleteAccount(c.UserContext(), identity, req.Password); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "account deleted"})
}
