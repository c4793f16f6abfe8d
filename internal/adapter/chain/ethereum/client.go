package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"wallet-custody/config"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
)

const defaultRequestTimeout = 15 * time.Second

// ErrWrongChain is returned when the node serves a different network than
// the one configured.
var ErrWrongChain = errors.New("node is on an unexpected chain")

// backend is the part of *ethclient.Client the custody core needs.
type backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	BlockNumber(ctx context.Context) (uint64, error)
	Close()
}

// Client implements ports.ChainClient over JSON-RPC. Every call is a single
// round trip bounded by the configured timeout; nothing is cached or retried.
type Client struct {
	backend         backend
	timeout         time.Duration
	expectedChainID *big.Int
	log             zerolog.Logger
}

// Dial connects to the node and checks it serves the expected chain.
func Dial(ctx context.Context, cfg config.ChainConfig, log zerolog.Logger) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dialing ethereum node: %w", err)
	}
	c, err := newClient(ctx, ec, cfg, log)
	if err != nil {
		ec.Close()
		return nil, err
	}
	return c, nil
}

// NewFromRPC wraps an already connected RPC client.
func NewFromRPC(ctx context.Context, rc *rpc.Client, cfg config.ChainConfig, log zerolog.Logger) (*Client, error) {
	return newClient(ctx, ethclient.NewClient(rc), cfg, log)
}

func newClient(ctx context.Context, b backend, cfg config.ChainConfig, log zerolog.Logger) (*Client, error) {
	c := &Client{
		backend: b,
		timeout: cfg.RequestTimeout,
		log:     log,
	}
	if c.timeout <= 0 {
		c.timeout = defaultRequestTimeout
	}
	if cfg.ExpectedChainID > 0 {
		c.expectedChainID = big.NewInt(cfg.ExpectedChainID)
	}

	chainID, err := c.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("rpc", cfg.RPCURL).
		Str("chain_id", chainID.String()).
		Msg("Ethereum node connected")

	return c, nil
}

// BalanceAt returns the latest balance of account in wei.
func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	bal, err := c.backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_getBalance: %w", err)
	}
	return bal, nil
}

// PendingNonceAt returns the next nonce for account, counting pending
// transactions.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	nonce, err := c.backend.PendingNonceAt(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("eth_getTransactionCount: %w", err)
	}
	return nonce, nil
}

// SuggestGasPrice returns the node's current legacy gas price.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	price, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("eth_gasPrice: %w", err)
	}
	return price, nil
}

// ChainID returns the node's chain id, refusing a node on the wrong network.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	id, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("eth_chainId: %w", err)
	}
	if c.expectedChainID != nil && id.Cmp(c.expectedChainID) != 0 {
		c.log.Error().
			Str("expected", c.expectedChainID.String()).
			Str("got", id.String()).
			Msg("ethereum node chain id mismatch")
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrWrongChain, c.expectedChainID, id)
	}
	return id, nil
}

// SendTransaction submits a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.backend.SendTransaction(ctx, tx); err != nil {
		return fmt.Errorf("eth_sendRawTransaction: %w", err)
	}
	return nil
}

// Ping implements ports.HealthChecker.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.backend.BlockNumber(ctx)
	return err
}

// Name returns the dependency name.
func (c *Client) Name() string {
	return "ethereum"
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.backend.Close()
}
