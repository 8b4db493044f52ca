package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/rampwallet/internal/auth"
	"github.com/example/rampwallet/internal/middleware"
	"github.com/example/rampwallet/internal/models"
	"github.com/example/rampwallet/internal/store"
)

// WalletHandler stores and returns the client-encrypted wallet backup.
type WalletHandler struct {
	store store.Store
}

// NewWalletHandler constructs WalletHandler.
func NewWalletHandler(st store.Store) *WalletHandler {
	return &WalletHandler{store: st}
}

type saveBackupRequest struct {
	WalletAddress     string `json:"wallet_address"`
	EncryptedMnemonic string `json:"encrypted_mnemonic"`
}

// SaveBackup replaces the caller's backup. The mnemonic arrives encrypted
// and is stored as an opaque blob.
func (h *WalletHandler) SaveBackup(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return auth.ErrMissingCredential
	}

	var req saveBackupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.EncryptedMnemonic) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "encrypted_mnemonic is required")
	}

	backup := &models.WalletBackup{
		UserID:            identity.UserID,
		WalletAddress:     strings.TrimSpace(req.WalletAddress),
		EncryptedMnemonic: req.EncryptedMnemonic,
	}
	if err := h.store.SaveWalletBackup(c.UserContext(), backup); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"wallet_address": backup.WalletAddress,
			"version":        backup.Version,
			"updated_at":     backup.UpdatedAt,
		},
	})
}

// GetBackup returns the caller's backup.
func (h *WalletHandler) GetBackup(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return auth.ErrMissingCredential
	}

	backup, err := h.store.FindWalletBackup(c.UserContext(), identity.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "no wallet backup")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": backup})
}
