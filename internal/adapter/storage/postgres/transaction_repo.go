package postgres

import (
	"context"
	"fmt"

	"wallet-custody/internal/core/domain"
	"wallet-custody/internal/core/ports"

	"github.com/shopspring/decimal"
)

// TransactionRepo implements ports.Ledger. Rows are only ever appended.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// AppendTransaction inserts a ledger entry. A duplicate tx_hash fails with
// ports.ErrRecordExists.
func (r *TransactionRepo) AppendTransaction(ctx context.Context, t *domain.TransactionRecord) error {
	if !t.Direction.Valid() {
		return fmt.Errorf("append transaction: invalid direction %q", t.Direction)
	}
	if t.Amount.IsNegative() {
		return fmt.Errorf("append transaction: negative amount %s", t.Amount)
	}

	query := `INSERT INTO transactions (id, user_id, tx_hash, direction, amount, to_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.UserID, t.TxHash, string(t.Direction),
		t.Amount.String(), t.ToAddress, t.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert transaction %s: %w", t.TxHash, ports.ErrRecordExists)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// ListByUser returns up to limit entries for a user, newest first.
func (r *TransactionRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.TransactionRecord, error) {
	query := `SELECT id, user_id, tx_hash, direction, amount::text, to_address, created_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.TransactionRecord
	for rows.Next() {
		var (
			t         domain.TransactionRecord
			direction string
			amount    string
		)
		err := rows.Scan(
			&t.ID, &t.UserID, &t.TxHash, &direction,
			&amount, &t.ToAddress, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		t.Direction = domain.Direction(direction)
		t.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}
