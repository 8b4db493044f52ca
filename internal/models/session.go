package models

import (
	"time"

	"github.com/google/uuid"
)

// Session binds an issued token to one (user, device) pair. Expired rows are
// not purged; they are treated as invalid at lookup time.
type Session struct {
	BaseModel
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_sessions_user_device" json:"user_id"`
	DeviceID       string    `gorm:"not null;uniqueIndex:idx_sessions_user_device" json:"device_id"`
	TokenHash      string    `gorm:"not null" json:"-"`
	ExpiresAt      time.Time `gorm:"index;not null" json:"expires_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// Valid reports whether the session has not yet expired at now.
func (s *Session) Valid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// ActivityLog is an append-only audit entry for account events.
type ActivityLog struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Action    string    `gorm:"type:varchar(64);not null" json:"action"`
	DeviceID  string    `json:"device_id,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}
