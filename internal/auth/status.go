package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/example/rampwallet/internal/models"
	"github.com/example/rampwallet/internal/store"
)

// kycTransitions lists the KYC edges the provider is expected to produce.
var kycTransitions = map[models.KYCStatus][]models.KYCStatus{
	models.KYCPending:     {models.KYCUnderReview},
	models.KYCUnderReview: {models.KYCActive, models.KYCRejected},
	models.KYCRejected:    {models.KYCUnderReview},
}

var tosTransitions = map[models.TOSStatus][]models.TOSStatus{
	models.TOSUnset:   {models.TOSPending, models.TOSApproved},
	models.TOSPending: {models.TOSApproved},
}

func allowed[S comparable](table map[S][]S, from, to S) bool {
	if from == to {
		return true
	}
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusChange carries the account-state fields to overwrite. Nil fields are
// left as they are.
type StatusChange struct {
	KYC                *models.KYCStatus
	TOS                *models.TOSStatus
	ProviderCustomerID *string
}

// StatusUpdater is the only code path that writes KYC, ToS and provider-link
// state. Every applied change is written to the activity log.
type StatusUpdater struct {
	store  store.Store
	strict bool
}

// NewStatusUpdater returns an updater. With strict set, edges missing from
// the transition tables are rejected instead of logged.
func NewStatusUpdater(st store.Store, strict bool) *StatusUpdater {
	return &StatusUpdater{store: st, strict: strict}
}

// Apply validates and persists change for userID. source names the caller
// (handler, webhook) for the audit entry.
func (u *StatusUpdater) Apply(ctx context.Context, userID uuid.UUID, change StatusChange, source string) (*models.User, error) {
	user, err := u.store.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownSubject
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	var (
		fields store.UserFields
		notes  []string
	)

	if change.KYC != nil && *change.KYC != user.KYCStatus {
		if !change.KYC.Valid() {
			return nil, fmt.Errorf("%w: kyc %q", ErrInvalidStatus, *change.KYC)
		}
		if err := u.checkEdge(allowed(kycTransitions, user.KYCStatus, *change.KYC), userID, "kyc", string(user.KYCStatus), string(*change.KYC)); err != nil {
			return nil, err
		}
		fields.KYCStatus = change.KYC
		notes = append(notes, fmt.Sprintf("kyc:%s->%s", user.KYCStatus, *change.KYC))
		user.KYCStatus = *change.KYC
	}

	if change.TOS != nil && *change.TOS != user.TOSStatus {
		if !change.TOS.Valid() {
			return nil, fmt.Errorf("%w: tos %q", ErrInvalidStatus, *change.TOS)
		}
		if err := u.checkEdge(allowed(tosTransitions, user.TOSStatus, *change.TOS), userID, "tos", string(user.TOSStatus), string(*change.TOS)); err != nil {
			return nil, err
		}
		fields.TOSStatus = change.TOS
		notes = append(notes, fmt.Sprintf("tos:%s->%s", user.TOSStatus, *change.TOS))
		user.TOSStatus = *change.TOS
	}

	if change.ProviderCustomerID != nil && *change.ProviderCustomerID != "" {
		current := ""
		if user.ProviderCustomerID != nil {
			current = *user.ProviderCustomerID
		}
		if current != *change.ProviderCustomerID {
			// The link is set once; replacing it is treated like an illegal edge.
			if err := u.checkEdge(current == "", userID, "provider_customer_id", current, *change.ProviderCustomerID); err != nil {
				return nil, err
			}
			fields.ProviderCustomerID = change.ProviderCustomerID
			notes = append(notes, "provider_link:set")
			id := *change.ProviderCustomerID
			user.ProviderCustomerID = &id
		}
	}

	if len(notes) == 0 {
		return user, nil
	}

	if err := u.store.UpdateUserFields(ctx, userID, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownSubject
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	recordActivity(ctx, u.store, &models.ActivityLog{
		UserID: userID,
		Action: "status_change",
		Detail: strings.Join(notes, " ") + " source=" + source,
	})
	return user, nil
}

func (u *StatusUpdater) checkEdge(ok bool, userID uuid.UUID, field, from, to string) error {
	if ok {
		return nil
	}
	if u.strict {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, field, from, to)
	}
	log.Warn().
		Str("user_id", userID.String()).
		Str("field", field).
		Str("from", from).
		Str("to", to).
		Msg("applying status change outside the transition table")
	return nil
}

// recordActivity appends an audit entry. Failures are logged and do not fail
// the request that triggered them.
func recordActivity(ctx context.Context, st store.Store, entry *models.ActivityLog) {
	if err := st.InsertActivity(ctx, entry); err != nil {
		log.Warn().Err(err).
			Str("user_id", entry.UserID.String()).
			Str("action", entry.Action).
			Msg("failed to record activity")
	}
}
