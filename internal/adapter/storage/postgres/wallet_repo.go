package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-custody/internal/core/domain"
	"wallet-custody/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletStore. It never updates or deletes.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Get fetches the wallet of a user. Returns nil, nil when there is none.
func (r *WalletRepo) Get(ctx context.Context, userID string) (*domain.WalletRecord, error) {
	query := `SELECT user_id, address, encrypted_key, salt, created_at
		FROM wallets WHERE user_id = $1`

	w := &domain.WalletRecord{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&w.UserID, &w.Address, &w.EncryptedKey, &w.Salt, &w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

// Put inserts a wallet. A second insert for the same user (or address)
// fails with ports.ErrRecordExists.
func (r *WalletRepo) Put(ctx context.Context, w *domain.WalletRecord) error {
	query := `INSERT INTO wallets (user_id, address, encrypted_key, salt, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		w.UserID, w.Address, w.EncryptedKey, w.Salt, w.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert wallet %s: %w", w.UserID, ports.ErrRecordExists)
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}
