package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// WebhookSignatureHeader carries the hex HMAC-SHA256 of the raw body.
const WebhookSignatureHeader = "X-Webhook-Signature"

// SignBody returns the hex HMAC-SHA256 of body under secret.
func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// WebhookSignature rejects webhook deliveries whose signature does not match
// the raw request body. With no secret configured every delivery is
// rejected.
func WebhookSignature(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			log.Error().Str("path", c.Path()).Msg("webhook secret not configured")
			return fiber.NewError(fiber.StatusServiceUnavailable, "webhooks are not configured")
		}

		got := strings.TrimPrefix(strings.TrimSpace(c.Get(WebhookSignatureHeader)), "sha256=")
		gotBytes, err := hex.DecodeString(got)
		if err != nil || got == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid webhook signature")
		}

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(c.Body())
		if !hmac.Equal(gotBytes, mac.Sum(nil)) {
			log.Warn().Str("path", c.Path()).Msg("webhook signature mismatch")
			return fiber.NewError(fiber.StatusUnauthorized, "invalid webhook signature")
		}

		return c.Next()
	}
}
