package models

import (
	"time"

	"github.com/google/uuid"
)

// KYCStatus is the Know-Your-Customer state reported by the ramp provider.
type KYCStatus string

const (
	KYCPending     KYCStatus = "pending"
	KYCUnderReview KYCStatus = "under_review"
	KYCActive      KYCStatus = "active"
	KYCRejected    KYCStatus = "rejected"
)

// Valid reports whether s is one of the known KYC states.
func (s KYCStatus) Valid() bool {
	switch s {
	case KYCPending, KYCUnderReview, KYCActive, KYCRejected:
		return true
	}
	return false
}

// TOSStatus tracks acceptance of the provider's terms of service.
type TOSStatus string

const (
	TOSUnset    TOSStatus = "unset"
	TOSPending  TOSStatus = "pending"
	TOSApproved TOSStatus = "approved"
)

// Valid reports whether s is one of the known ToS states.
func (s TOSStatus) Valid() bool {
	switch s {
	case TOSUnset, TOSPending, TOSApproved:
		return true
	}
	return false
}

// User represents a wallet account holder.
type User struct {
	BaseModel
	FirstName             string     `json:"first_name"`
	LastName              string     `json:"last_name"`
	Email                 string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash          string     `gorm:"not null" json:"-"`
	IsVerified            bool       `gorm:"not null;default:false" json:"is_verified"`
	KYCStatus             KYCStatus  `gorm:"type:varchar(32);not null;default:'pending'" json:"kyc_status"`
	TOSStatus             TOSStatus  `gorm:"type:varchar(32);not null;default:'unset'" json:"tos_status"`
	ProviderCustomerID    *string    `gorm:"index" json:"provider_customer_id"`
	KYCLinkID             *string    `gorm:"index" json:"-"`
	VerificationCodeHash  *string    `json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`
	ResetCodeHash         *string    `json:"-"`
	ResetCodeExpiresAt    *time.Time `json:"-"`
}

// PublicUser is the projection of User that is safe to return to clients.
type PublicUser struct {
	ID             uuid.UUID `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	IsVerified     bool      `json:"is_verified"`
	KYCStatus      KYCStatus `json:"kyc_status"`
	TOSStatus      TOSStatus `json:"tos_status"`
	ProviderLinked bool      `json:"provider_linked"`
	CreatedAt      time.Time `json:"created_at"`
}

// Public strips credentials and one-time codes from the record.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		IsVerified:     u.IsVerified,
		KYCStatus:      u.KYCStatus,
		TOSStatus:      u.TOSStatus,
		ProviderLinked: u.ProviderCustomerID != nil && *u.ProviderCustomerID != "",
		CreatedAt:      u.CreatedAt,
	}
}
