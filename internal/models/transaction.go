package models

import (
	"github.com/google/uuid"
)

// TransferDirection distinguishes fiat->crypto from crypto->fiat transfers.
type TransferDirection string

const (
	DirectionOnramp  TransferDirection = "onramp"
	DirectionOfframp TransferDirection = "offramp"
)

// Transaction stores a ramp transfer created through the provider.
type Transaction struct {
	BaseModel
	UserID              uuid.UUID         `gorm:"type:uuid;index;not null" json:"user_id"`
	BridgeTransferID    string            `gorm:"uniqueIndex;not null" json:"bridge_transfer_id"`
	Direction           TransferDirection `gorm:"type:varchar(16);not null" json:"direction"`
	State               string            `gorm:"type:varchar(64);not null" json:"state"`
	Amount              string            `gorm:"type:varchar(64);not null" json:"amount"`
	SourceCurrency      string            `json:"source_currency"`
	DestinationCurrency string            `json:"destination_currency"`
	DestinationAddress  string            `json:"destination_address,omitempty"`
}

// WalletBackup holds a client-encrypted mnemonic. The server never sees the
// plaintext or the key.
type WalletBackup struct {
	BaseModel
	UserID            uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	WalletAddress     string    `json:"wallet_address"`
	EncryptedMnemonic string    `gorm:"type:text;not null" json:"encrypted_mnemonic"`
	Version           int       `gorm:"not null;default:1" json:"version"`
}
