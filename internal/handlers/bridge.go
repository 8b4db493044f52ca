package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/rampwallet/internal/auth"
	"github.com/example/rampwallet/internal/middleware"
	"github.com/example/rampwallet/internal/models"
	"github.com/example/rampwallet/internal/services"
	"github.com/example/rampwallet/internal/store"
	"github.com/example/rampwallet/internal/utils"
)

// RampProvider is the subset of the Bridge API the handlers call.
type RampProvider interface {
	CreateKYCLink(ctx context.Context, fullName, email string) (*services.KYCLink, error)
	GetKYCLink(ctx context.Context, linkID string) (*services.KYCLink, error)
	CreateTransfer(ctx context.Context, req services.TransferRequest) (*services.Transfer, error)
}

// BridgeHandler serves onboarding and transfer endpoints.
type BridgeHandler struct {
	store    store.Store
	provider RampProvider
	status   *auth.StatusUpdater
}

// NewBridgeHandler constructs BridgeHandler.
func NewBridgeHandler(st store.Store, provider RampProvider, status *auth.StatusUpdater) *BridgeHandler {
	return &BridgeHandler{store: st, provider: provider, status: status}
}

func statusChangeFromLink(link *services.KYCLink) auth.StatusChange {
	var change auth.StatusChange
	if link.KYCStatus != "" {
		kyc := services.MapKYCStatus(link.KYCStatus)
		change.KYC = &kyc
	}
	if link.TOSStatus != "" {
		tos := services.MapTOSStatus(link.TOSStatus)
		change.TOS = &tos
	}
	if link.CustomerID != "" {
		customerID := link.CustomerID
		change.ProviderCustomerID = &customerID
	}
	return change
}

// CreateKYCLink starts provider onboarding and records the returned state.
func (h *BridgeHandler) CreateKYCLink(c *fiber.Ctx) error {
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

	fullName := strings.TrimSpace(user.FirstName + " " + user.LastName)
	link, err := h.provider.CreateKYCLink(c.UserContext(), fullName, user.Email)
	if err != nil {
		return err
	}
	if link.ID != "" {
		linkID := link.ID
		if err := h.store.UpdateUserFields(c.UserContext(), user.ID, store.UserFields{KYCLinkID: &linkID}); err != nil {
			return err
		}
	}

	updated, err := h.status.Apply(c.UserContext(), user.ID, statusChangeFromLink(link), "kyc_link")
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"link_id":    link.ID,
			"kyc_link":   link.KYCLink,
			"tos_link":   link.TOSLink,
			"kyc_status": updated.KYCStatus,
			"tos_status": updated.TOSStatus,
		},
	})
}

// KYCStatus returns the caller's onboarding state. With ?link_id= it first
// refreshes that link from the provider. Only the link issued to the caller
// by CreateKYCLink is accepted.
func (h *BridgeHandler) KYCStatus(c *fiber.Ctx) error {
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

	if linkID := strings.TrimSpace(c.Query("link_id")); linkID != "" {
		if user.KYCLinkID == nil || *user.KYCLinkID != linkID {
			return fiber.NewError(fiber.StatusNotFound, "kyc link not found")
		}
		link, err := h.provider.GetKYCLink(c.UserContext(), linkID)
		if err != nil {
			return err
		}
		if link.Email != "" && !strings.EqualFold(link.Email, user.Email) {
			return fiber.NewError(fiber.StatusNotFound, "kyc link not found")
		}
		if user, err = h.status.Apply(c.UserContext(), user.ID, statusChangeFromLink(link), "kyc_status"); err != nil {
			return err
		}
	}
	public := user.Public()

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"is_verified":     public.IsVerified,
			"kyc_status":      public.KYCStatus,
			"tos_status":      public.TOSStatus,
			"provider_linked": public.ProviderLinked,
		},
	})
}

type transferRequest struct {
	Amount              string `json:"amount"`
	SourceCurrency      string `json:"source_currency"`
	SourceRail          string `json:"source_rail"`
	DestinationCurrency string `json:"destination_currency"`
	DestinationRail     string `json:"destination_rail"`
	DestinationAddress  string `json:"destination_address"`
}

func (r transferRequest) validate(direction models.TransferDirection) error {
	amount, err := strconv.ParseFloat(strings.TrimSpace(r.Amount), 64)
	if err != nil || amount <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "amount must be a positive decimal")
	}
	if r.SourceCurrency == "" || r.DestinationCurrency == "" || r.SourceRail == "" || r.DestinationRail == "" {
		return fiber.NewError(fiber.StatusBadRequest, "currencies and payment rails are required")
	}
	if direction == models.DirectionOnramp && strings.TrimSpace(r.DestinationAddress) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "destination_address is required for onramp")
	}
	return nil
}

// CreateOnramp converts fiat into crypto delivered to the wallet address.
func (h *BridgeHandler) CreateOnramp(c *fiber.Ctx) error {
	return h.createTransfer(c, models.DirectionOnramp)
}

// CreateOfframp converts crypto back into fiat.
func (h *BridgeHandler) CreateOfframp(c *fiber.Ctx) error {
	return h.createTransfer(c, models.DirectionOfframp)
}

func (h *BridgeHandler) createTransfer(c *fiber.Ctx, direction models.TransferDirection) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return auth.ErrMissingCredential
	}

	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(direction); err != nil {
		return err
	}

	amount := strings.TrimSpace(req.Amount)
	transfer, err := h.provider.CreateTransfer(c.UserContext(), services.TransferRequest{
		Amount:     amount,
		OnBehalfOf: identity.ProviderCustomerID,
		Source: services.TransferEndpoint{
			PaymentRail: req.SourceRail,
			Currency:    req.SourceCurrency,
		},
		Destination: services.TransferEndpoint{
			PaymentRail: req.DestinationRail,
			Currency:    req.DestinationCurrency,
			ToAddress:   strings.TrimSpace(req.DestinationAddress),
		},
	})
	if err != nil {
		return err
	}

	txn := &models.Transaction{
		UserID:              identity.UserID,
		BridgeTransferID:    transfer.ID,
		Direction:           direction,
		State:               transfer.State,
		Amount:              amount,
		SourceCurrency:      req.SourceCurrency,
		DestinationCurrency: req.DestinationCurrency,
		DestinationAddress:  strings.TrimSpace(req.DestinationAddress),
	}
	if err := h.store.InsertTransaction(c.UserContext(), txn); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": txn})
}

// ListTransfers returns the caller's transfers, newest first.
func (h *BridgeHandler) ListTransfers(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return auth.ErrMissingCredential
	}

	pg := utils.ParsePagination(c)
	items, total, err := h.store.ListTransactions(c.UserContext(), identity.UserID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    items,
		"pagination": pg.Meta(total),
	})
}
