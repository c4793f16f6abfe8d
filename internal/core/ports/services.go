package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"math/big"
	"time"

	"wallet-custody/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// KeyDeriver turns a password and salt into a 32-byte symmetric key.
type KeyDeriver interface {
	DeriveKey(password, salt []byte) ([]byte, error)
}

// Cipher seals private keys with an AEAD. Seal output is nonce || ciphertext.
type Cipher interface {
	Seal(plaintext, key []byte) ([]byte, error)
	Open(blob, key []byte) ([]byte, error)
}

// ChainClient is the remote Ethereum node. All calls are blocking round trips.
type ChainClient interface {
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// UserLocker serialises work keyed by user.
type UserLocker interface {
	// Acquire blocks until the lock for key is held or ctx is done.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// TokenService validates caller identity tokens.
type TokenService interface {
	Generate(userID string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID string
}

// RateLimiter is a fixed-window request counter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// --- Service Ports (Business Logic) ---

// AuditService records custody events. Log never blocks the caller and
// never fails it; persistence errors are only logged.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// CustodyService is the caller-facing API of the custody core.
type CustodyService interface {
	CreateWallet(ctx context.Context, userID, password string) (*domain.WalletInfo, error)
	GetBalance(ctx context.Context, userID string) (*domain.WalletInfo, error)
	Withdraw(ctx context.Context, req WithdrawRequest) (*WithdrawResult, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]domain.TransactionRecord, error)
}

// WithdrawRequest holds input for a transfer out of the custodial account.
type WithdrawRequest struct {
	UserID    string
	ToAddress string
	Amount    decimal.Decimal // ETH
	Password  string
}

// WithdrawResult is returned once the node accepted the transaction.
type WithdrawResult struct {
	TxHash   string
	Nonce    uint64
	GasPrice *big.Int
}
