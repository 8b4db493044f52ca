package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/example/rampwallet/internal/auth"
	"github.com/example/rampwallet/internal/models"
	"github.com/example/rampwallet/internal/services"
	"github.com/example/rampwallet/internal/store"
)

// WebhookHandler ingests provider status callbacks.
type WebhookHandler struct {
	store  store.Store
	status *auth.StatusUpdater
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(st store.Store, status *auth.StatusUpdater) *WebhookHandler {
	return &WebhookHandler{store: st, status: status}
}

// bridgeEvent holds only the status fields this service acts on.
type bridgeEvent struct {
	EventID       string `json:"event_id"`
	EventCategory string `json:"event_category"`
	EventObject   struct {
		ID               string `json:"id"`
		Email            string `json:"email"`
		Status           string `json:"status"`
		State            string `json:"state"`
		KYCStatus        string `json:"kyc_status"`
		TOSStatus        string `json:"tos_status"`
		CustomerID       string `json:"customer_id"`
		HasAcceptedTerms *bool  `json:"has_accepted_terms_of_service"`
	} `json:"event_object"`
}

// Bridge handles a signed Bridge webhook delivery. Events for unknown users,
// unknown transfers or unmapped statuses are acknowledged and dropped.
func (h *WebhookHandler) Bridge(c *fiber.Ctx) error {
	var event bridgeEvent
	if err := json.Unmarshal(c.Body(), &event); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid webhook payload")
	}

	logEvent := log.With().
		Str("event_id", event.EventID).
		Str("category", event.EventCategory).
		Logger()

	switch event.EventCategory {
	case "customer":
		obj := event.EventObject
		var change auth.StatusChange
		if obj.Status != "" {
			kyc := services.MapKYCStatus(obj.Status)
			change.KYC = &kyc
		}
		if obj.HasAcceptedTerms != nil && *obj.HasAcceptedTerms {
			tos := models.TOSApproved
			change.TOS = &tos
		}
		return h.applyToUser(c, obj.ID, "", change)

	case "kyc_link":
		obj := event.EventObject
		change := statusChangeFromLink(&services.KYCLink{
			KYCStatus:  obj.KYCStatus,
			TOSStatus:  obj.TOSStatus,
			CustomerID: obj.CustomerID,
		})
		return h.applyToUser(c, obj.CustomerID, obj.Email, change)

	case "transfer":
		obj := event.EventObject
		if obj.ID == "" || obj.State == "" {
			return fiber.NewError(fiber.StatusBadRequest, "transfer event without id or state")
		}
		if err := h.store.UpdateTransactionState(c.UserContext(), obj.ID, obj.State); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				logEvent.Warn().Str("transfer_id", obj.ID).Msg("webhook for unknown transfer")
				return ack(c, false)
			}
			return err
		}
		return ack(c, true)
	}

	logEvent.Debug().Msg("ignoring webhook category")
	return ack(c, false)
}

func (h *WebhookHandler) applyToUser(c *fiber.Ctx, customerID, email string, change auth.StatusChange) error {
	ctx := c.UserContext()

	// The provider may report states this service has no mapping for.
	// Retrying such a delivery can never succeed, so it is acked unapplied.
	if (change.KYC != nil && !change.KYC.Valid()) || (change.TOS != nil && !change.TOS.Valid()) {
		ev := log.Warn().Str("customer_id", customerID)
		if change.KYC != nil {
			ev = ev.Str("kyc_status", string(*change.KYC))
		}
		if change.TOS != nil {
			ev = ev.Str("tos_status", string(*change.TOS))
		}
		ev.Msg("webhook with unmapped provider status")
		return ack(c, false)
	}

	var (
		user *models.User
		err  = store.ErrNotFound
	)
	if customerID != "" {
		user, err = h.store.FindUserByProviderCustomerID(ctx, customerID)
	}
	if errors.Is(err, store.ErrNotFound) && email != "" {
		user, err = h.store.FindUserByEmail(ctx, email)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn().Str("customer_id", customerID).Msg("webhook for unknown customer")
			return ack(c, false)
		}
		return err
	}

	if _, err := h.status.Apply(ctx, user.ID, change, "webhook"); err != nil {
		return err
	}
	return ack(c, true)
}

func ack(c *fiber.Ctx, applied bool) error {
	return c.JSON(fiber.Map{"success": true, "applied": applied})
}
