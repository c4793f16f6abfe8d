package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction names a custody event worth keeping after the logs rotate.
type AuditAction string

const (
	AuditActionWalletCreate     AuditAction = "WALLET_CREATE"
	AuditActionWithdraw         AuditAction = "WITHDRAW"
	AuditActionUnlockFailed     AuditAction = "UNLOCK_FAILED"
	AuditActionIntegrityFailure AuditAction = "INTEGRITY_FAILURE"
)

// AuditLog records a single audited custody event. Details never carry
// passwords or key material.
type AuditLog struct {
	ID        uuid.UUID   `json:"id"`
	UserID    string      `json:"user_id"`
	Action    AuditAction `json:"action"`
	Details   string      `json:"details,omitempty"` // JSON object
	CreatedAt time.Time   `json:"created_at"`
}

// NewAuditLog builds an entry, encoding details as a JSON object.
func NewAuditLog(userID string, action AuditAction, details map[string]string, at time.Time) *AuditLog {
	entry := &AuditLog{
		ID:        uuid.New(),
		UserID:    userID,
		Action:    action,
		CreatedAt: at.UTC(),
	}
	if len(details) > 0 {
		// A map of strings always encodes.
		b, _ := json.Marshal(details)
		entry.Details = string(b)
	}
	return entry
}
