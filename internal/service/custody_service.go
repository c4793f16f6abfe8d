package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"

	"wallet-custody/internal/core/domain"
	"wallet-custody/internal/core/ports"
	"wallet-custody/pkg/apperror"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
)

const (
	// TransferGasLimit is the intrinsic gas of a plain value transfer.
	TransferGasLimit uint64 = 21000

	defaultLockWait    = 30 * time.Second
	ledgerWriteTimeout = 10 * time.Second
	lockKeyPrefix      = "withdraw:"
)

// CustodyConfig holds the tunables of the custody service.
type CustodyConfig struct {
	GasLimit uint64
	LockWait time.Duration
}

// CustodyServiceImpl implements ports.CustodyService.
type CustodyServiceImpl struct {
	store  ports.WalletStore
	ledger ports.Ledger
	chain  ports.ChainClient
	kdf    ports.KeyDeriver
	cipher ports.Cipher
	locker ports.UserLocker
	audit  ports.AuditService
	cfg    CustodyConfig
	log    zerolog.Logger

	rand io.Reader
	now  func() time.Time
}

// NewCustodyService creates a new CustodyServiceImpl. A nil audit only logs.
func NewCustodyService(
	store ports.WalletStore,
	ledger ports.Ledger,
	chain ports.ChainClient,
	kdf ports.KeyDeriver,
	cipher ports.Cipher,
	locker ports.UserLocker,
	audit ports.AuditService,
	cfg CustodyConfig,
	log zerolog.Logger,
) *CustodyServiceImpl {
	if cfg.GasLimit == 0 {
		cfg.GasLimit = TransferGasLimit
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = defaultLockWait
	}
	if audit == nil {
		audit = NewAuditService(nil, log)
	}
	return &CustodyServiceImpl{
		store:  store,
		ledger: ledger,
		chain:  chain,
		kdf:    kdf,
		cipher: cipher,
		locker: locker,
		audit:  audit,
		cfg:    cfg,
		log:    log,
		rand:   rand.Reader,
		now:    time.Now,
	}
}

// CreateWallet generates a keypair for a user that has none yet, seals the
// private key under the password and stores the record.
func (s *CustodyServiceImpl) CreateWallet(ctx context.Context, userID, password string) (*domain.WalletInfo, error) {
	if userID == "" {
		return nil, apperror.ErrInvalidRequest("User ID is required")
	}
	if password == "" {
		return nil, apperror.ErrInvalidRequest("Password is required")
	}

	existing, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrWalletExists()
	}

	record, err := s.sealNewWallet(userID, password)
	if err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, record); err != nil {
		if errors.Is(err, ports.ErrRecordExists) {
			return nil, apperror.ErrWalletExists()
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("put wallet: %w", err))
	}

	s.log.Info().
		Str("user_id", userID).
		Str("address", record.Address).
		Msg("wallet created")
	s.recordAudit(ctx, userID, domain.AuditActionWalletCreate, map[string]string{
		"address": record.Address,
	})

	return &domain.WalletInfo{Address: record.Address}, nil
}

// sealNewWallet returns a record whose key material is already encrypted.
// No plaintext secret outlives this call.
func (s *CustodyServiceImpl) sealNewWallet(userID, password string) (*domain.WalletRecord, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate key: %w", err))
	}
	defer zeroKey(key)

	priv := crypto.FromECDSA(key)
	defer zeroBytes(priv)

	salt := make([]byte, domain.SaltSize)
	if _, err := io.ReadFull(s.rand, salt); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate salt: %w", err))
	}

	pw := []byte(password)
	defer zeroBytes(pw)

	derived, err := s.kdf.DeriveKey(pw, salt)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("derive key: %w", err))
	}
	defer zeroBytes(derived)

	blob, err := s.cipher.Seal(priv, derived)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("seal key: %w", err))
	}

	return &domain.WalletRecord{
		UserID:       userID,
		Address:      crypto.PubkeyToAddress(key.PublicKey).Hex(),
		EncryptedKey: blob,
		Salt:         salt,
		CreatedAt:    s.now().UTC(),
	}, nil
}

// GetBalance returns the wallet address and its on-chain balance in ETH.
func (s *CustodyServiceImpl) GetBalance(ctx context.Context, userID string) (*domain.WalletInfo, error) {
	record, err := s.loadWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	wei, err := s.chain.BalanceAt(ctx, common.HexToAddress(record.Address))
	if err != nil {
		return nil, apperror.ErrNetwork(fmt.Errorf("balance of %s: %w", record.Address, err))
	}

	return &domain.WalletInfo{
		Address: record.Address,
		Balance: domain.WeiToEther(wei),
	}, nil
}

// Withdraw signs and broadcasts a plain ETH transfer out of the user's wallet.
// Nothing is retried; a BroadcastError or NetworkError is safe for the caller
// to retry because nothing was persisted.
func (s *CustodyServiceImpl) Withdraw(ctx context.Context, req ports.WithdrawRequest) (*ports.WithdrawResult, error) {
	record, err := s.loadWallet(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	signed, release, err := s.prepareTransfer(ctx, record, req)
	if err != nil {
		return nil, err
	}
	defer release()

	// The key is already wiped at this point.
	if err := s.chain.SendTransaction(ctx, signed); err != nil {
		s.log.Warn().Err(err).
			Str("user_id", req.UserID).
			Uint64("nonce", signed.Nonce()).
			Msg("broadcast rejected")
		return nil, apperror.ErrBroadcast(err)
	}

	txHash := signed.Hash().Hex()
	result := &ports.WithdrawResult{
		TxHash:   txHash,
		Nonce:    signed.Nonce(),
		GasPrice: signed.GasPrice(),
	}

	s.log.Info().
		Str("user_id", req.UserID).
		Str("tx_hash", txHash).
		Str("to", signed.To().Hex()).
		Str("amount", req.Amount.String()).
		Uint64("nonce", signed.Nonce()).
		Msg("withdrawal broadcast")

	// The transfer is irreversible now; a cancelled request must not stop the
	// ledger write.
	ledgerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerWriteTimeout)
	defer cancel()

	details := map[string]string{
		"tx_hash": txHash,
		"to":      signed.To().Hex(),
		"amount":  req.Amount.String(),
		"nonce":   strconv.FormatUint(signed.Nonce(), 10),
		"ledger":  "ok",
	}

	entry := domain.NewOutboundRecord(req.UserID, txHash, signed.To().Hex(), req.Amount, s.now())
	if err := s.ledger.AppendTransaction(ledgerCtx, entry); err != nil {
		s.log.Error().Err(err).
			Str("user_id", req.UserID).
			Str("tx_hash", txHash).
			Msg("withdrawal broadcast but ledger append failed")
		details["ledger"] = "failed"
		s.recordAudit(ctx, req.UserID, domain.AuditActionWithdraw, details)
		return result, apperror.ErrLedgerAppend(err)
	}

	s.recordAudit(ctx, req.UserID, domain.AuditActionWithdraw, details)
	return result, nil
}

// prepareTransfer takes the per-user lock and signs under it. The key is
// decrypted only once the lock is held, so it never sits in memory while
// waiting. On success the caller owns release.
func (s *CustodyServiceImpl) prepareTransfer(ctx context.Context, record *domain.WalletRecord, req ports.WithdrawRequest) (*types.Transaction, func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockWait)
	defer cancel()

	release, err := s.locker.Acquire(lockCtx, lockKeyPrefix+record.UserID)
	if err != nil {
		return nil, nil, apperror.ErrLockTimeout(err)
	}

	signed, err := s.unlockAndSign(ctx, record, req)
	if err != nil {
		release()
		return nil, nil, err
	}
	return signed, release, nil
}

// unlockAndSign decrypts the key, validates the request, fetches chain state
// and signs. The decrypted key is zeroed before it returns.
func (s *CustodyServiceImpl) unlockAndSign(ctx context.Context, record *domain.WalletRecord, req ports.WithdrawRequest) (*types.Transaction, error) {
	key, err := s.unlockKey(ctx, record, req.Password)
	if err != nil {
		return nil, err
	}
	defer zeroKey(key)

	wei, err := domain.EtherToWei(req.Amount)
	if err != nil {
		return nil, apperror.ErrInvalidAmount()
	}
	to, err := domain.ParseRecipient(req.ToAddress)
	if err != nil {
		return nil, apperror.ErrInvalidAddress()
	}

	return s.signTransfer(ctx, key, common.HexToAddress(record.Address), to, wei)
}

// unlockKey decrypts the stored private key and checks it still belongs to
// the stored address. The caller must zeroKey the result.
func (s *CustodyServiceImpl) unlockKey(ctx context.Context, record *domain.WalletRecord, password string) (*ecdsa.PrivateKey, error) {
	if password == "" {
		s.recordAudit(ctx, record.UserID, domain.AuditActionUnlockFailed, nil)
		return nil, apperror.ErrInvalidPassword()
	}

	pw := []byte(password)
	defer zeroBytes(pw)

	derived, err := s.kdf.DeriveKey(pw, record.Salt)
	if err != nil {
		// A stored salt of the wrong size means the record itself is bad.
		s.log.Error().Err(err).Str("user_id", record.UserID).Msg("stored salt rejected by key derivation")
		s.recordAudit(ctx, record.UserID, domain.AuditActionIntegrityFailure, map[string]string{
			"reason": "invalid salt",
		})
		return nil, apperror.ErrIntegrity(fmt.Errorf("derive key: %w", err))
	}
	defer zeroBytes(derived)

	priv, err := s.cipher.Open(record.EncryptedKey, derived)
	if err != nil {
		if errors.Is(err, ErrAuthenticationFailed) {
			s.recordAudit(ctx, record.UserID, domain.AuditActionUnlockFailed, nil)
			return nil, apperror.ErrInvalidPassword()
		}
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("open key: %w", err))
	}
	defer zeroBytes(priv)

	key, err := crypto.ToECDSA(priv)
	if err != nil {
		s.log.Error().Str("user_id", record.UserID).Msg("decrypted key is not a valid secp256k1 scalar")
		s.recordAudit(ctx, record.UserID, domain.AuditActionIntegrityFailure, map[string]string{
			"reason": "invalid private key",
		})
		return nil, apperror.ErrIntegrity(errors.New("decrypted key is not a valid private key"))
	}

	derivedAddr := crypto.PubkeyToAddress(key.PublicKey)
	if !strings.EqualFold(derivedAddr.Hex(), record.Address) {
		zeroKey(key)
		s.log.Error().
			Str("user_id", record.UserID).
			Str("stored_address", record.Address).
			Msg("wallet integrity check failed: decrypted key does not match stored address")
		s.recordAudit(ctx, record.UserID, domain.AuditActionIntegrityFailure, map[string]string{
			"reason":         "address mismatch",
			"stored_address": record.Address,
		})
		return nil, apperror.ErrIntegrity(fmt.Errorf("address mismatch for user %s", record.UserID))
	}

	return key, nil
}

// signTransfer fetches nonce, gas price and chain id fresh and signs a legacy
// EIP-155 transfer.
func (s *CustodyServiceImpl) signTransfer(ctx context.Context, key *ecdsa.PrivateKey, from, to common.Address, wei *big.Int) (*types.Transaction, error) {
	nonce, err := s.chain.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, apperror.ErrNetwork(fmt.Errorf("pending nonce: %w", err))
	}
	gasPrice, err := s.chain.SuggestGasPrice(ctx)
	if err != nil {
		return nil, apperror.ErrNetwork(fmt.Errorf("gas price: %w", err))
	}
	chainID, err := s.chain.ChainID(ctx)
	if err != nil {
		return nil, apperror.ErrNetwork(fmt.Errorf("chain id: %w", err))
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    wei,
		Gas:      s.cfg.GasLimit,
		GasPrice: gasPrice,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sign tx: %w", err))
	}
	return signed, nil
}

// ListTransactions returns the user's most recent ledger entries, newest first.
func (s *CustodyServiceImpl) ListTransactions(ctx context.Context, userID string, limit int) ([]domain.TransactionRecord, error) {
	if _, err := s.loadWallet(ctx, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, apperror.ErrInvalidRequest("Limit must be positive")
	}

	records, err := s.ledger.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list transactions: %w", err))
	}
	return records, nil
}

func (s *CustodyServiceImpl) loadWallet(ctx context.Context, userID string) (*domain.WalletRecord, error) {
	if userID == "" {
		return nil, apperror.ErrWalletNotFound()
	}
	record, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
	}
	if record == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	return record, nil
}

func (s *CustodyServiceImpl) recordAudit(ctx context.Context, userID string, action domain.AuditAction, details map[string]string) {
	s.audit.Log(ctx, domain.NewAuditLog(userID, action, details, s.now()))
}
