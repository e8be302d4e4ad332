// Package accountdelivery manages delivery layer of accounts.
package accountdelivery

import (
	"context"
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

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	Open(ctx context.Context, arg domain.OpenAccountParams) (domain.Account, error)
	ResolveByUserID(ctx context.Context, userID uuid.UUID) (domain.Account, error)
	ResolveByAccountNumber(ctx context.Context, accountNumber string) (domain.Account, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns account handler.
func NewHandler(as Service) Handler {
	return Handler{service: as}
}

type data struct {
	Account domain.Account `json:"account"`
}

type createRequest struct {
	OwnerName      string `json:"owner_name" binding:"required,max=128"`
	InitialDeposit string `json:"initial_deposit" binding:"nonnegative_amount"`
}

// Create handles http request to open an account for the authenticated user.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	initialDeposit := decimal.Zero

	if req.InitialDeposit != "" {
		amount, err := moneypkg.Parse(req.InitialDeposit)
		if err != nil {
			l.Info().Err(err).Send()
			gctx.JSON(http.StatusBadRequest, web.Error(domain.ErrInvalidAmount))

			return
		}

		initialDeposit = amount
	}

	arg := domain.OpenAccountParams{
		UserID:         middleware.Payload(gctx).UserID,
		OwnerName:      req.OwnerName,
		InitialDeposit: initialDeposit,
	}

	account, err := h.service.Open(ctx, arg)
	if err != nil {
		gctx.JSON(web.StatusCode(err), web.Error(err))
		return
	}

	gctx.JSON(http.StatusCreated, web.Response{Data: data{account}})
}

// Me handles http request to get the account of the authenticated user.
func (h *Handler) Me(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	account, err := h.service.ResolveByUserID(ctx, middleware.Payload(gctx).UserID)
	if err != nil {
		gctx.JSON(web.StatusCode(err), web.Error(err))
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: data{account}})
}

type getRequest struct {
	AccountNumber string `uri:"number" binding:"required,accountnumber"`
}

// Get handles http request to get account by its number.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	account, err := h.service.ResolveByAccountNumber(ctx, req.AccountNumber)
	if err != nil {
		gctx.JSON(web.StatusCode(err), web.Error(err))
		return
	}

	if account.UserID != middleware.Payload(gctx).UserID {
		l.Warn().Err(domain.ErrAccountOwnerMismatch).Str("account_number", req.AccountNumber).Send()
		gctx.JSON(web.StatusCode(domain.ErrAccountOwnerMismatch), web.Error(domain.ErrAccountOwnerMismatch))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: data{account}})
}
