package auth

import "github.com/example/rampwallet/internal/models"

// Gate is an authorization predicate over a resolved identity. Gates are
// independent of each other and may be composed in any order.
type Gate func(*Identity) error

func mustIdentity(id *Identity) {
	if id == nil {
		panic("auth: gate evaluated without a resolved identity")
	}
}

// RequireVerified rejects accounts that have not confirmed their email.
func RequireVerified(id *Identity) error {
	mustIdentity(id)
	if !id.IsVerified {
		return ErrVerificationRequired
	}
	return nil
}

// RequireKYC rejects accounts whose KYC is not active.
func RequireKYC(id *Identity) error {
	mustIdentity(id)
	if id.KYCStatus != models.KYCActive {
		return ErrKYCRequired
	}
	return nil
}

// RequireTOS rejects accounts that have not approved the provider's terms.
func RequireTOS(id *Identity) error {
	mustIdentity(id)
	if id.TOSStatus != models.TOSApproved {
		return ErrTOSRequired
	}
	return nil
}

// RequireProviderLink rejects accounts without a provider customer id.
func RequireProviderLink(id *Identity) error {
	mustIdentity(id)
	if id.ProviderCustomerID == "" {
		return ErrProviderLinkRequired
	}
	return nil
}

// Chain evaluates gates in order and returns the first rejection.
func Chain(id *Identity, gates ...Gate) error {
	for _, gate := range gates {
		if err := gate(id); err != nil {
			return err
		}
	}
	return nil
}
