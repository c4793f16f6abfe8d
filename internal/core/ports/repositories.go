package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"errors"

	"wallet-custody/internal/core/domain"
)

// ErrRecordExists is returned by insert-only stores when the key is taken.
var ErrRecordExists = errors.New("record already exists")

// WalletStore is the durable user -> wallet mapping.
// It never exposes update or delete: records are insert-only.
type WalletStore interface {
	// Get returns nil, nil when the user has no wallet.
	Get(ctx context.Context, userID string) (*domain.WalletRecord, error)
	// Put fails with ErrRecordExists if the user already has a wallet.
	Put(ctx context.Context, record *domain.WalletRecord) error
}

// Ledger is the append-only sink for completed transfers.
type Ledger interface {
	// AppendTransaction fails with ErrRecordExists on a duplicate tx hash.
	AppendTransaction(ctx context.Context, record *domain.TransactionRecord) error
	// ListByUser returns the most recent records first.
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.TransactionRecord, error)
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}
