// Package ledgerdelivery manages delivery layer of deposits, withdrawals and transfers.
package ledgerdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Service provides ledger interface needed by ledger delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package ledgerdelivery
type Service interface {
	Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal) (domain.Transaction, error)
	Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal) (domain.Transaction, error)
	Transfer(ctx context.Context, senderNumber, recipientNumber string, amount decimal.Decimal) (domain.Transaction, error)
	GetHistory(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error)
}

// AccountResolver resolves the caller's accounts.
type AccountResolver interface {
	ResolveByUserID(ctx context.Context, userID uuid.UUID) (domain.Account, error)
	ResolveByAccountNumber(ctx context.Context, accountNumber string) (domain.Account, error)
}

// Success messages.
const (
	MsgDeposit  = "Deposit successful"
	MsgWithdraw = "Withdrawal successful"
	MsgTransfer = "Funds transferred successfully"
)

// Handler facilitates ledger delivery layer logic.
type Handler struct {
	service  Service
	accounts AccountResolver
}

// NewHandler returns ledger handler.
func NewHandler(ls Service, ar AccountResolver) *Handler {
	return &Handler{
		service:  ls,
		accounts: ar,
	}
}

type data struct {
	Transaction domain.Transaction `json:"transaction"`
	Message     string             `json:"message"`
}

type historyData struct {
	AccountNumber string               `json:"account_number"`
	Transactions  []domain.Transaction `json:"transactions"`
}

type amountRequest struct {
	AccountNumber string `json:"account_number" binding:"omitempty,accountnumber"`
	Amount        string `json:"amount" binding:"required,amount"`
}

type transferRequest struct {
	SenderAccountNumber    string `json:"sender_account_number" binding:"omitempty,accountnumber"`
	RecipientAccountNumber string `json:"recipient_account_number" binding:"required,accountnumber"`
	Amount                 string `json:"amount" binding:"required,amount"`
}

type historyRequest struct {
	AccountNumber string `form:"account_number" binding:"omitempty,accountnumber"`
}

// ownAccount resolves the caller's account, by number when given.
//
// It writes the error response itself and reports false on failure.
func (h *Handler) ownAccount(gctx *gin.Context, accountNumber string, notFound error) (domain.Account, bool) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)
	userID := middleware.Payload(gctx).UserID

	var (
		account domain.Account
		err     error
	)

	if accountNumber == "" {
		account, err = h.accounts.ResolveByUserID(ctx, userID)
	} else {
		account, err = h.accounts.ResolveByAccountNumber(ctx, accountNumber)
	}

	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) && notFound != nil {
			err = notFound
		}

		l.Info().Err(err).Send()
		gctx.JSON(web.StatusCode(err), web.Error(err))

		return domain.Account{}, false
	}

	if account.UserID != userID {
		l.Warn().Err(domain.ErrAccountOwnerMismatch).Str("account_number", accountNumber).Send()
		gctx.JSON(web.StatusCode(domain.ErrAccountOwnerMismatch), web.Error(domain.ErrAccountOwnerMismatch))

		return domain.Account{}, false
	}

	return account, true
}

func parseAmount(gctx *gin.Context, s string) (decimal.Decimal, bool) {
	amount, err := moneypkg.Parse(s)
	if err != nil {
		zerolog.Ctx(gctx.Request.Context()).Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Error(domain.ErrInvalidAmount))

		return decimal.Zero, false
	}

	return amount, true
}

type balanceChange func(ctx context.Context, accountNumber string, amount decimal.Decimal) (domain.Transaction, error)

func (h *Handler) changeBalance(gctx *gin.Context, change balanceChange, msg string) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req amountRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	amount, ok := parseAmount(gctx, req.Amount)
	if !ok {
		return
	}

	account, ok := h.ownAccount(gctx, req.AccountNumber, nil)
	if !ok {
		return
	}

	result, err := change(ctx, account.AccountNumber, amount)
	if err != nil {
		gctx.JSON(web.StatusCode(err), web.Error(err))
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: data{Transaction: result, Message: msg}})
}

// Deposit handles http request to deposit money into the caller's account.
func (h *Handler) Deposit(gctx *gin.Context) {
	h.changeBalance(gctx, h.service.Deposit, MsgDeposit)
}

// Withdraw handles http request to withdraw money from the caller's account.
func (h *Handler) Withdraw(gctx *gin.Context) {
	h.changeBalance(gctx, h.service.Withdraw, MsgWithdraw)
}

// Transfer handles http request to transfer money from the caller's account.
func (h *Handler) Transfer(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req transferRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	amount, ok := parseAmount(gctx, req.Amount)
	if !ok {
		return
	}

	sender, ok := h.ownAccount(gctx, req.SenderAccountNumber, domain.ErrSenderNotFound)
	if !ok {
		return
	}

	result, err := h.service.Transfer(ctx, sender.AccountNumber, req.RecipientAccountNumber, amount)
	if err != nil {
		gctx.JSON(web.StatusCode(err), web.Error(err))
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: data{Transaction: result, Message: MsgTransfer}})
}

// History handles http request to list the transactions of the caller's account.
func (h *Handler) History(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req historyRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	account, ok := h.ownAccount(gctx, req.AccountNumber, nil)
	if !ok {
		return
	}

	transactions, err := h.service.GetHistory(ctx, account.ID)
	if err != nil {
		gctx.JSON(web.StatusCode(err), web.Error(err))
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: historyData{
		AccountNumber: account.AccountNumber,
		Transactions:  transactions,
	}})
}
