package dto

import (
	"math/big"
	"testing"
	"time"

	"wallet-custody/internal/core/domain"
	"wallet-custody/internal/core/ports"

	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := WithdrawRequest{
		ToAddress: "  0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb  ",
		Amount:    " 0.5 ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", req.ToAddress)
	assert.Equal(t, "0.5", req.Amount)
}

func TestSanitizeStruct_LeavesPasswordsAlone(t *testing.T) {
	req := WithdrawRequest{Password: "  <correct & horse>  "}
	SanitizeStruct(&req)
	assert.Equal(t, "  <correct & horse>  ", req.Password)

	create := CreateWalletRequest{Password: " p&ss<word> "}
	SanitizeStruct(&create)
	assert.Equal(t, " p&ss<word> ", create.Password)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := WithdrawRequest{Amount: "<script>alert('x')</script>"}
	SanitizeStruct(&req)

	assert.Contains(t, req.Amount, "&lt;script&gt;")
	assert.NotContains(t, req.Amount, "<script>")
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	type withPtr struct {
		Note *string
	}
	note := "  hello  "
	v := withPtr{Note: &note}
	SanitizeStruct(&v)
	assert.Equal(t, "hello", *v.Note)

	empty := withPtr{}
	SanitizeStruct(&empty)
	assert.Nil(t, empty.Note)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	req := WithdrawRequest{Amount: " 1 "}
	SanitizeStruct(req)
	assert.Equal(t, " 1 ", req.Amount)
}

// --- validator tests ---

func TestWithdrawRequest_Validation(t *testing.T) {
	valid := WithdrawRequest{
		ToAddress: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		Amount:    "0.5",
		Password:  "correct-horse",
	}
	assert.NoError(t, binding.Validator.ValidateStruct(&valid))

	tests := []struct {
		name   string
		mutate func(r *WithdrawRequest)
	}{
		{"bad checksum", func(r *WithdrawRequest) { r.ToAddress = "0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed" }},
		{"short address", func(r *WithdrawRequest) { r.ToAddress = "0x1234" }},
		{"zero address", func(r *WithdrawRequest) { r.ToAddress = "0x0000000000000000000000000000000000000000" }},
		{"zero amount", func(r *WithdrawRequest) { r.Amount = "0" }},
		{"negative amount", func(r *WithdrawRequest) { r.Amount = "-1" }},
		{"sub-wei amount", func(r *WithdrawRequest) { r.Amount = "0.0000000000000000001" }},
		{"non-numeric amount", func(r *WithdrawRequest) { r.Amount = "lots" }},
		{"missing password", func(r *WithdrawRequest) { r.Password = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			assert.Error(t, binding.Validator.ValidateStruct(&r))
		})
	}
}

func TestCreateWalletRequest_Validation(t *testing.T) {
	assert.NoError(t, binding.Validator.ValidateStruct(&CreateWalletRequest{Password: "correct-horse"}))
	assert.Error(t, binding.Validator.ValidateStruct(&CreateWalletRequest{Password: "short"}))
	assert.Error(t, binding.Validator.ValidateStruct(&CreateWalletRequest{}))
}

// --- response mapping ---

func TestResponseMapping(t *testing.T) {
	bal := NewBalanceResponse(&domain.WalletInfo{
		Address: "0xAA",
		Balance: decimal.RequireFromString("1.5"),
	})
	assert.Equal(t, "1.5", bal.Balance)
	assert.Equal(t, "ETH", bal.Currency)

	wd := NewWithdrawResponse(&ports.WithdrawResult{TxHash: "0x01", Nonce: 3, GasPrice: big.NewInt(20)})
	assert.Equal(t, "20", wd.GasPriceWei)
	assert.Equal(t, uint64(3), wd.Nonce)

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	list := NewTransactionListResponse([]domain.TransactionRecord{
		*domain.NewOutboundRecord("u", "0x01", "0xBB", decimal.RequireFromString("0.5"), at),
	})
	assert.Len(t, list.Transactions, 1)
	assert.Equal(t, "out", list.Transactions[0].Direction)
	assert.Equal(t, "0.5", list.Transactions[0].Amount)
	assert.Equal(t, "2025-03-01T12:00:00Z", list.Transactions[0].CreatedAt)

	empty := NewTransactionListResponse(nil)
	assert.NotNil(t, empty.Transactions)
}
