package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Key material sizes persisted with every wallet record.
const (
	SaltSize       = 16
	NonceSize      = 12
	PrivateKeySize = 32
)

// WalletRecord is the single custodial account held for a user.
// It is written once and never updated by the custody core.
type WalletRecord struct {
	UserID       string    `json:"user_id"`
	Address      string    `json:"address"`       // EIP-55 checksum address
	EncryptedKey []byte    `json:"-"`             // nonce || AES-256-GCM ciphertext+tag
	Salt         []byte    `json:"-"`             // KDF salt, unique per user
	CreatedAt    time.Time `json:"created_at"`
}

// WalletInfo is what callers get back: the public side of a wallet.
type WalletInfo struct {
	Address string          `json:"address"`
	Balance decimal.Decimal `json:"balance"` // ETH
}
