package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/rampwallet/internal/models"
)

func TestGates(t *testing.T) {
	full := Identity{
		IsVerified:         true,
		KYCStatus:          models.KYCActive,
		TOSStatus:          models.TOSApproved,
		ProviderCustomerID: "cus_1",
	}

	tests := []struct {
		name   string
		mutate func(*Identity)
		gate   Gate
		want   error
	}{
		{"verified ok", func(*Identity) {}, RequireVerified, nil},
		{"unverified", func(i *Identity) { i.IsVerified = false }, RequireVerified, ErrVerificationRequired},
		{"kyc ok", func(*Identity) {}, RequireKYC, nil},
		{"kyc pending", func(i *Identity) { i.KYCStatus = models.KYCPending }, RequireKYC, ErrKYCRequired},
		{"kyc under review", func(i *Identity) { i.KYCStatus = models.KYCUnderReview }, RequireKYC, ErrKYCRequired},
		{"kyc rejected", func(i *Identity) { i.KYCStatus = models.KYCRejected }, RequireKYC, ErrKYCRequired},
		{"tos ok", func(*Identity) {}, RequireTOS, nil},
		{"tos unset", func(i *Identity) { i.TOSStatus = models.TOSUnset }, RequireTOS, ErrTOSRequired},
		{"tos pending", func(i *Identity) { i.TOSStatus = models.TOSPending }, RequireTOS, ErrTOSRequired},
		{"link ok", func(*Identity) {}, RequireProviderLink, nil},
		{"no link", func(i *Identity) { i.ProviderCustomerID = "" }, RequireProviderLink, ErrProviderLinkRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := full
			tt.mutate(&id)
			err := tt.gate(&id)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRequireKYC_IndependentOfOtherState(t *testing.T) {
	for _, verified := range []bool{true, false} {
		for _, tos := range []models.TOSStatus{models.TOSUnset, models.TOSPending, models.TOSApproved} {
			for _, link := range []string{"", "cus_1"} {
				id := &Identity{IsVerified: verified, KYCStatus: models.KYCPending, TOSStatus: tos, ProviderCustomerID: link}
				assert.ErrorIs(t, RequireKYC(id), ErrKYCRequired)
			}
		}
	}
}

func TestChain_StopsAtFirstRejection(t *testing.T) {
	id := &Identity{IsVerified: true, KYCStatus: models.KYCPending, TOSStatus: models.TOSUnset}

	assert.ErrorIs(t, Chain(id, RequireVerified, RequireKYC, RequireTOS), ErrKYCRequired)
	assert.ErrorIs(t, Chain(id, RequireTOS, RequireKYC), ErrTOSRequired)
	assert.NoError(t, Chain(id, RequireVerified))
	assert.NoError(t, Chain(id))
}

func TestGates_PanicWithoutIdentity(t *testing.T) {
	for _, gate := range []Gate{RequireVerified, RequireKYC, RequireTOS, RequireProviderLink} {
		assert.Panics(t, func() { _ = gate(nil) })
	}
}
