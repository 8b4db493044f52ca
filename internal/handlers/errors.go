package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/rs/zerolog/log"

	"github.com/example/rampwallet/internal/auth"
	"github.com/example/rampwallet/internal/ratelimit"
	"github.com/example/rampwallet/internal/services"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings gives every rejection exactly one status and code.
var errorMappings = []errorMapping{
	{auth.ErrMissingCredential, fiber.StatusUnauthorized, "missing_credential"},
	{auth.ErrMalformedToken, fiber.StatusForbidden, "invalid_token"},
	{auth.ErrTokenExpired, fiber.StatusUnauthorized, "token_expired"},
	{auth.ErrUnknownSubject, fiber.StatusUnauthorized, "unknown_subject"},
	{auth.ErrInvalidCredentials, fiber.StatusUnauthorized, "invalid_credentials"},
	{auth.ErrDuplicateEmail, fiber.StatusConflict, "duplicate_email"},
	{auth.ErrIncorrectCurrentPassword, fiber.StatusUnauthorized, "incorrect_current_password"},
	{auth.ErrVerificationRequired, fiber.StatusForbidden, "verification_required"},
	{auth.ErrKYCRequired, fiber.StatusForbidden, "kyc_required"},
	{auth.ErrTOSRequired, fiber.StatusForbidden, "tos_required"},
	{auth.ErrProviderLinkRequired, fiber.StatusForbidden, "provider_link_required"},
	{auth.ErrSessionInvalid, fiber.StatusUnauthorized, "session_invalid"},
	{auth.ErrInvalidResetCode, fiber.StatusBadRequest, "invalid_reset_code"},
	{auth.ErrInvalidVerificationCode, fiber.StatusBadRequest, "invalid_verification_code"},
	{auth.ErrInvalidTransition, fiber.StatusConflict, "invalid_status_transition"},
	{auth.ErrInvalidStatus, fiber.StatusBadRequest, "invalid_status"},
	{auth.ErrWeakPassword, fiber.StatusBadRequest, "weak_password"},
	{auth.ErrInvalidInput, fiber.StatusBadRequest, "invalid_input"},
	{ratelimit.ErrRateLimited, fiber.StatusTooManyRequests, "rate_limited"},
}

// ErrorHandler is installed as fiber's error handler. Unmapped errors are
// logged and answered with an opaque 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return writeError(c, m.status, m.code, err.Error())
		}
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return writeError(c, fiberErr.Code, codeForStatus(fiberErr.Code), fiberErr.Message)
	}

	var bridgeErr *services.BridgeError
	if errors.As(err, &bridgeErr) {
		log.Warn().Int("provider_status", bridgeErr.Status).Str("path", c.Path()).Msg("provider rejected request")
		return writeError(c, fiber.StatusBadGateway, "provider_error", "payment provider rejected the request")
	}

	log.Error().
		Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
		Msg("unhandled error")
	return writeError(c, fiber.StatusInternalServerError, "internal_error", "internal server error")
}

func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   code,
		"message": message,
	})
}

func codeForStatus(status int) string {
	msg := utils.StatusMessage(status)
	if msg == "" {
		return "error"
	}
	return strings.ToLower(strings.ReplaceAll(msg, " ", "_"))
}
