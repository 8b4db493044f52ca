package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/rampwallet/internal/auth"
	"github.com/example/rampwallet/internal/middleware"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	accounts *auth.Service
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(accounts *auth.Service) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// deviceID prefers the X-Device-ID header and falls back to the body field.
func deviceID(c *fiber.Ctx, fromBody string) string {
	if id := strings.TrimSpace(c.Get(middleware.DeviceIDHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(fromBody)
}

func authResponse(res *auth.AuthResult) fiber.Map {
	resp := fiber.Map{
		"success":       true,
		"token":         res.Token,
		"expires_at":    res.ExpiresAt,
		"user":          res.User,
		"session_bound": res.SessionBound,
	}
	if res.SessionExpiry != nil {
		resp["session_expires_at"] = res.SessionExpiry
	}
	return resp
}

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	DeviceID  string `json:"device_id"`
}

// Register creates a new user account.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Password == "" || req.FirstName == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required fields")
	}

	res, err := h.accounts.Register(c.UserContext(), auth.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		DeviceID:  deviceID(c, req.DeviceID),
		IP:        c.IP(),
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(authResponse(res))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"device_id"`
}

// Login authenticates an existing user. Supplying a device id also binds a
// device session.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	res, err := h.accounts.Login(c.UserContext(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		DeviceID: deviceID(c, req.DeviceID),
		IP:       c.IP(),
	})
	if err != nil {
		return err
	}

	return c.JSON(authResponse(res))
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Verify handles email code validation.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email and code are required")
	}

	if err := h.accounts.VerifyEmail(c.UserContext(), req.Email, req.Code); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"verified": true,
	})
}

// ResendVerification sends a new verification code to the caller.
func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return auth.ErrMissingCredential
	}

	if err := h.accounts.ResendVerification(c.UserContext(), identity); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "verification code sent"})
}

type logoutRequest struct {
	DeviceID string `json:"device_id"`
}

// Logout revokes the device session, if any. It always succeeds for an
// authenticated caller.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return auth.ErrMissingCredential
	}

	var req logoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	if err := h.accounts.Logout(c.UserContext(), identity, deviceID(c, req.DeviceID)); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "logged out"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword rotates the caller's password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return auth.ErrMissingCredential
	}

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return fiber.NewError(fiber.StatusBadRequest, "current_password and new_password are required")
	}

	if err := h.accounts.ChangePassword(c.UserContext(), identity, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "password updated successfully"})
}
