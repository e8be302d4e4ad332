// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/accnumpkg"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
)

// Repo provides data access layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Get(ctx context.Context, accountNumber string) (domain.Account, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (domain.Account, error)
}

// Ledger creates accounts together with their opening deposit.
type Ledger interface {
	OpenAccount(ctx context.Context, arg domain.CreateAccountParams, initialDeposit decimal.Decimal) (domain.Account, error)
}

// Service facilitates account service layer logic.
type Service struct {
	repo        Repo
	ledger      Ledger
	countryCode string
	generate    func(countryCode string) string
}

// New returns account service struct to manage account bussines logic.
func New(ar Repo, ledger Ledger, countryCode string) *Service {
	return &Service{
		repo:        ar,
		ledger:      ledger,
		countryCode: countryCode,
		generate:    accnumpkg.Generate,
	}
}

// ResolveByUserID returns the account of the given user.
func (s *Service) ResolveByUserID(ctx context.Context, userID uuid.UUID) (domain.Account, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// ResolveByAccountNumber returns the account with the given account number.
func (s *Service) ResolveByAccountNumber(ctx context.Context, accountNumber string) (domain.Account, error) {
	return s.repo.Get(ctx, accountNumber)
}

// Open creates an account with a freshly assigned account number.
//
// A colliding number is regenerated once. A positive initial deposit is
// booked together with the account so it shows up in the account history.
func (s *Service) Open(ctx context.Context, arg domain.OpenAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	if arg.InitialDeposit.IsNegative() || moneypkg.CheckRange(arg.InitialDeposit) != nil {
		l.Info().Err(domain.ErrInvalidAmount).Send()
		return domain.Account{}, domain.ErrInvalidAmount
	}

	params := domain.CreateAccountParams{
		AccountNumber: s.generate(s.countryCode),
		UserID:        arg.UserID,
		OwnerName:     arg.OwnerName,
	}

	account, err := s.ledger.OpenAccount(ctx, params, arg.InitialDeposit)
	if errors.Is(err, domain.ErrDuplicateAccountNumber) {
		l.Info().Str("account_number", params.AccountNumber).Msg("account number taken, regenerating")

		params.AccountNumber = s.generate(s.countryCode)
		account, err = s.ledger.OpenAccount(ctx, params, arg.InitialDeposit)
	}

	if err != nil {
		l.Error().Err(err).Send()
		return domain.Account{}, err
	}

	return account, nil
}
