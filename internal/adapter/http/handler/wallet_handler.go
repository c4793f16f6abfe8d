package handler

import (
	"encoding/json"
	"strconv"

	"wallet-custody/internal/adapter/http/dto"
	"wallet-custody/internal/adapter/http/middleware"
	"wallet-custody/internal/core/ports"
	"wallet-custody/pkg/apperror"
	"wallet-custody/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
)

const (
	defaultHistoryLimit = 5
	maxHistoryLimit     = 50
)

// WalletHandler handles wallet-related endpoints.
type WalletHandler struct {
	custodySvc ports.CustodyService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(custodySvc ports.CustodyService) *WalletHandler {
	return &WalletHandler{custodySvc: custodySvc}
}

// Create handles POST /api/v1/wallets.
func (h *WalletHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	info, err := h.custodySvc.CreateWallet(c.Request.Context(), userID, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.WalletResponse{Address: info.Address})
}

// GetBalance handles GET /api/v1/wallets/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	info, err := h.custodySvc.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewBalanceResponse(info))
}

// Withdraw handles POST /api/v1/wallets/withdraw.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.WithdrawRequest
	if err := bindSanitizedJSON(c, &req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	result, err := h.custodySvc.Withdraw(c.Request.Context(), ports.WithdrawRequest{
		UserID:    userID,
		ToAddress: req.ToAddress,
		Amount:    amount,
		Password:  req.Password,
	})
	if err != nil {
		// The transfer may be on chain even though the ledger write failed.
		if result != nil {
			response.ErrorWithData(c, err, dto.NewWithdrawResponse(result))
			return
		}
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewWithdrawResponse(result))
}

// ListTransactions handles GET /api/v1/wallets/transactions?limit=N.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			response.Error(c, apperror.Validation("limit must be between 1 and 50"))
			return
		}
		limit = n
	}

	records, err := h.custodySvc.ListTransactions(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewTransactionListResponse(records))
}

// bindSanitizedJSON decodes the body, sanitizes it and only then runs the
// binding validators, so padded input is trimmed before it is checked.
func bindSanitizedJSON(c *gin.Context, obj any) error {
	if err := json.NewDecoder(c.Request.Body).Decode(obj); err != nil {
		return err
	}
	dto.SanitizeStruct(obj)
	return binding.Validator.ValidateStruct(obj)
}
