package ethereum

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"wallet-custody/config"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEthAPI serves the eth_ methods the client calls.
type fakeEthAPI struct {
	mu       sync.Mutex
	chainID  int64
	balance  *big.Int
	nonce    uint64
	gasPrice *big.Int
	reject   error
	sent     []*types.Transaction
}

func (f *fakeEthAPI) ChainId() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(f.chainID))
}

func (f *fakeEthAPI) GetBalance(_ common.Address, _ string) *hexutil.Big {
	return (*hexutil.Big)(f.balance)
}

func (f *fakeEthAPI) GetTransactionCount(_ common.Address, block string) (hexutil.Uint64, error) {
	if block != "pending" {
		return 0, errors.New("expected pending block tag")
	}
	return hexutil.Uint64(f.nonce), nil
}

func (f *fakeEthAPI) GasPrice() *hexutil.Big {
	return (*hexutil.Big)(f.gasPrice)
}

func (f *fakeEthAPI) BlockNumber() hexutil.Uint64 {
	return 19_000_000
}

func (f *fakeEthAPI) SendRawTransaction(raw hexutil.Bytes) (common.Hash, error) {
	if f.reject != nil {
		return common.Hash{}, f.reject
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}
	f.mu.Lock()
	f.sent = append(f.sent, tx)
	f.mu.Unlock()
	return tx.Hash(), nil
}

func newFakeNode(t *testing.T, api *fakeEthAPI) *rpc.Client {
	t.Helper()
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", api))
	t.Cleanup(srv.Stop)
	return rpc.DialInProc(srv)
}

func defaultAPI() *fakeEthAPI {
	return &fakeEthAPI{
		chainID:  11155111,
		balance:  big.NewInt(1_500_000_000_000_000_000),
		nonce:    3,
		gasPrice: big.NewInt(20_000_000_000),
	}
}

func testChainConfig() config.ChainConfig {
	return config.ChainConfig{
		RPCURL:         "inproc://test",
		RequestTimeout: 2 * time.Second,
	}
}

func TestClient_ReadCalls(t *testing.T) {
	api := defaultAPI()
	ctx := context.Background()

	c, err := NewFromRPC(ctx, newFakeNode(t, api), testChainConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	addr := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	bal, err := c.BalanceAt(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", bal.String())

	nonce, err := c.PendingNonceAt(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), nonce)

	price, err := c.SuggestGasPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20_000_000_000), price.Int64())

	id, err := c.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(11155111), id.Int64())

	assert.NoError(t, c.Ping(ctx))
	assert.Equal(t, "ethereum", c.Name())
}

func TestClient_SendTransaction(t *testing.T) {
	api := defaultAPI()
	ctx := context.Background()

	c, err := NewFromRPC(ctx, newFakeNode(t, api), testChainConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	to := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    3,
		To:       &to,
		Value:    big.NewInt(1),
		Gas:      21000,
		GasPrice: big.NewInt(20_000_000_000),
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(11155111)), key)
	require.NoError(t, err)

	require.NoError(t, c.SendTransaction(ctx, signed))
	require.Len(t, api.sent, 1)
	assert.Equal(t, signed.Hash(), api.sent[0].Hash())
}

func TestClient_SendTransaction_Rejected(t *testing.T) {
	api := defaultAPI()
	api.reject = errors.New("insufficient funds for gas * price + value")
	ctx := context.Background()

	c, err := NewFromRPC(ctx, newFakeNode(t, api), testChainConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	to := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	signed, err := types.SignTx(
		types.NewTx(&types.LegacyTx{To: &to, Value: big.NewInt(1), Gas: 21000, GasPrice: big.NewInt(1)}),
		types.LatestSignerForChainID(big.NewInt(11155111)), key,
	)
	require.NoError(t, err)

	err = c.SendTransaction(ctx, signed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestClient_WrongChainRejectedOnConnect(t *testing.T) {
	api := defaultAPI()
	cfg := testChainConfig()
	cfg.ExpectedChainID = 1

	_, err := NewFromRPC(context.Background(), newFakeNode(t, api), cfg, zerolog.Nop())
	assert.ErrorIs(t, err, ErrWrongChain)
}

func TestClient_ExpectedChainAccepted(t *testing.T) {
	api := defaultAPI()
	cfg := testChainConfig()
	cfg.ExpectedChainID = 11155111

	c, err := NewFromRPC(context.Background(), newFakeNode(t, api), cfg, zerolog.Nop())
	require.NoError(t, err)
	c.Close()
}
