package dto

import (
	"time"

	"wallet-custody/internal/core/domain"
	"wallet-custody/internal/core/ports"
)

// CreateWalletRequest is the request body for wallet creation.
type CreateWalletRequest struct {
	Password string `json:"password" binding:"required,min=8,max=128" sanitize:"-"`
}

// WithdrawRequest is the request body for a withdrawal. Amount is a decimal
// ETH string so no precision is lost in JSON.
type WithdrawRequest struct {
	ToAddress string `json:"to_address" binding:"required,eth_recipient"`
	Amount    string `json:"amount" binding:"required,eth_amount"`
	Password  string `json:"password" binding:"required,max=128" sanitize:"-"`
}

// WalletResponse is the response body for wallet creation.
type WalletResponse struct {
	Address string `json:"address"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	Address  string `json:"address"`
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
}

// WithdrawResponse is the response body for an accepted withdrawal.
type WithdrawResponse struct {
	TxHash      string `json:"tx_hash"`
	Nonce       uint64 `json:"nonce"`
	GasPriceWei string `json:"gas_price_wei"`
}

// TransactionResponse is one ledger entry.
type TransactionResponse struct {
	ID        string `json:"id"`
	TxHash    string `json:"tx_hash"`
	Direction string `json:"direction"`
	Amount    string `json:"amount"`
	ToAddress string `json:"to_address,omitempty"`
	CreatedAt string `json:"created_at"`
}

// TransactionListResponse wraps the most recent ledger entries.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

// NewBalanceResponse renders a wallet balance in ETH.
func NewBalanceResponse(info *domain.WalletInfo) BalanceResponse {
	return BalanceResponse{
		Address:  info.Address,
		Balance:  info.Balance.String(),
		Currency: "ETH",
	}
}

// NewWithdrawResponse renders an accepted withdrawal.
func NewWithdrawResponse(res *ports.WithdrawResult) WithdrawResponse {
	out := WithdrawResponse{
		TxHash: res.TxHash,
		Nonce:  res.Nonce,
	}
	if res.GasPrice != nil {
		out.GasPriceWei = res.GasPrice.String()
	}
	return out
}

// NewTransactionListResponse renders ledger entries.
func NewTransactionListResponse(records []domain.TransactionRecord) TransactionListResponse {
	items := make([]TransactionResponse, 0, len(records))
	for _, r := range records {
		items = append(items, TransactionResponse{
			ID:        r.ID.String(),
			TxHash:    r.TxHash,
			Direction: string(r.Direction),
			Amount:    r.Amount.String(),
			ToAddress: r.ToAddress,
			CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return TransactionListResponse{Transactions: items}
}
