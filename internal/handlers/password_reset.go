package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/rampwallet/internal/auth"
)

// PasswordResetHandler manages forgot-password endpoints.
type PasswordResetHandler struct {
	accounts *auth.Service
}

// NewPasswordResetHandler constructs a PasswordResetHandler.
func NewPasswordResetHandler(accounts *auth.Service) *PasswordResetHandler {
	return &PasswordResetHandler{accounts: accounts}
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword emails a 6-digit reset code. The response is the same
// whether or not the address has an account.
func (h *PasswordResetHandler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}

	if err := h.accounts.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "if the account exists, a reset code has been sent",
	})
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// ResetPassword consumes the code and sets the new password.
func (h *PasswordResetHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Code == "" || req.NewPassword == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email, code and new_password are required")
	}

	if err := h.accounts.ResetPassword(c.UserContext(), req.Email, req.Code, req.NewPassword); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "password updated successfully",
	})
}
