package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction tells whether funds left or entered the custodial account.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// TransactionRecord is an append-only ledger entry for a completed transfer.
type TransactionRecord struct {
	ID        uuid.UUID       `json:"id"`
	UserID    string          `json:"user_id"`
	TxHash    string          `json:"tx_hash"`
	Direction Direction       `json:"direction"`
	Amount    decimal.Decimal `json:"amount"` // ETH, non-negative
	ToAddress string          `json:"to_address,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewOutboundRecord builds the ledger entry for an accepted withdrawal.
func NewOutboundRecord(userID, txHash, to string, amount decimal.Decimal, at time.Time) *TransactionRecord {
	return &TransactionRecord{
		ID:        uuid.New(),
		UserID:    userID,
		TxHash:    txHash,
		Direction: DirectionOut,
		Amount:    amount,
		ToAddress: to,
		CreatedAt: at.UTC(),
	}
}
