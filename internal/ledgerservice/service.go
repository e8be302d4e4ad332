// Package ledgerservice manages business logic layer of balance changes.
//
// Every mutation follows the same path: validate the amount, resolve the
// accounts, take the per-account locks in canonical order, then re-read,
// check and write balances together with the transaction records inside one
// unit of work. A lost optimistic race is retried a bounded number of times.
package ledgerservice

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/accountlock"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
)

// Store runs a unit of work over accounts and transaction records.
//
//go:generate mockgen -source service.go -destination service_mock.go -package ledgerservice
type Store interface {
	ExecTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error
}

// AccountReader resolves accounts outside of a unit of work.
type AccountReader interface {
	Get(ctx context.Context, accountNumber string) (domain.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Account, error)
}

// TransactionReader queries committed transaction records.
type TransactionReader interface {
	ListByAccount(ctx context.Context, accountNumber string) ([]domain.Transaction, error)
}

const (
	defaultMaxRetries  = 3
	defaultLockTimeout = 2 * time.Second
	backoffStep        = 5 * time.Millisecond
)

// Service facilitates ledger operations.
type Service struct {
	store       Store
	accounts    AccountReader
	history     TransactionReader
	locks       *accountlock.Table
	clock       *clock
	maxRetries  int
	lockTimeout time.Duration
	backoff     func(attempt int) time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithMaxRetries sets how many times an operation is retried after a concurrency conflict.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithLockTimeout bounds the wait for account locks.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithClock replaces the time source used to stamp transactions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.clock = newClock(now)
	}
}

// WithBackoff replaces the delay between retries.
func WithBackoff(backoff func(attempt int) time.Duration) Option {
	return func(s *Service) {
		s.backoff = backoff
	}
}

// New returns ledger service struct to manage balance changes.
func New(store Store, accounts AccountReader, history TransactionReader, opts ...Option) *Service {
	s := &Service{
		store:       store,
		accounts:    accounts,
		history:     history,
		locks:       accountlock.New(),
		clock:       newClock(time.Now),
		maxRetries:  defaultMaxRetries,
		lockTimeout: defaultLockTimeout,
		backoff:     jitteredBackoff,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func jitteredBackoff(attempt int) time.Duration {
	d := time.Duration(attempt) * backoffStep

	return d + time.Duration(rand.Int63n(int64(backoffStep)))
}

func validAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || moneypkg.CheckRange(amount) != nil {
		return domain.ErrInvalidAmount
	}

	return nil
}

// OpenAccount creates an account and books a positive initial deposit in the
// same unit of work, so the account never exists without its opening deposit.
//
// A taken account number is reported as domain.ErrDuplicateAccountNumber with
// nothing written.
func (s *Service) OpenAccount(ctx context.Context, arg domain.CreateAccountParams, initialDeposit decimal.Decimal) (account domain.Account, err error) {
	defer func() { observe(opOpen, err) }()

	l := zerolog.Ctx(ctx)

	if initialDeposit.IsNegative() || moneypkg.CheckRange(initialDeposit) != nil {
		l.Info().Err(domain.ErrInvalidAmount).Send()
		return domain.Account{}, domain.ErrInvalidAmount
	}

	var deposit domain.Transaction

	// The new account is invisible to other units of work until commit, so no lock is taken.
	err = s.run(ctx, nil, func(tx domain.LedgerTx) error {
		created, err := tx.Create(ctx, arg)
		if err != nil {
			return err
		}

		account = created

		if !initialDeposit.IsPositive() {
			return nil
		}

		account, err = tx.UpdateBalance(ctx, created.ID, initialDeposit, created.Version)
		if err != nil {
			return err
		}

		deposit, err = tx.AppendTransaction(ctx, domain.Transaction{
			ID:               uuid.New(),
			Type:             domain.TransactionDeposit,
			Amount:           initialDeposit,
			AccountNumber:    created.AccountNumber,
			ResultingBalance: account.Balance,
			CreatedAt:        s.clock.Now(),
		})

		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrDuplicateAccountNumber) {
			s.logFailure(ctx, err)
		}

		return domain.Account{}, err
	}

	if initialDeposit.IsPositive() {
		logCommit(ctx, deposit)
	}

	return account, nil
}

// Deposit credits amount to the account and records a DEPOSIT transaction.
func (s *Service) Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal) (res domain.Transaction, err error) {
	defer func() { observe(opDeposit, err) }()

	l := zerolog.Ctx(ctx)

	if err := validAmount(amount); err != nil {
		l.Info().Err(err).Send()
		return domain.Transaction{}, err
	}

	acc, err := s.accounts.Get(ctx, accountNumber)
	if err != nil {
		l.Info().Err(err).Str("account_number", accountNumber).Send()
		return domain.Transaction{}, err
	}

	err = s.run(ctx, []uuid.UUID{acc.ID}, func(tx domain.LedgerTx) error {
		cur, err := tx.GetForUpdate(ctx, acc.ID)
		if err != nil {
			return err
		}

		updated, err := tx.UpdateBalance(ctx, cur.ID, cur.Balance.Add(amount), cur.Version)
		if err != nil {
			return err
		}

		res, err = tx.AppendTransaction(ctx, domain.Transaction{
			ID:               uuid.New(),
			Type:             domain.TransactionDeposit,
			Amount:           amount,
			AccountNumber:    cur.AccountNumber,
			ResultingBalance: updated.Balance,
			CreatedAt:        s.clock.Now(),
		})

		return err
	})
	if err != nil {
		s.logFailure(ctx, err)
		return domain.Transaction{}, err
	}

	logCommit(ctx, res)

	return res, nil
}

// Withdraw debits amount from the account and records a WITHDRAW transaction.
func (s *Service) Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal) (res domain.Transaction, err error) {
	defer func() { observe(opWithdraw, err) }()

	l := zerolog.Ctx(ctx)

	if err := validAmount(amount); err != nil {
		l.Info().Err(err).Send()
		return domain.Transaction{}, err
	}

	acc, err := s.accounts.Get(ctx, accountNumber)
	if err != nil {
		l.Info().Err(err).Str("account_number", accountNumber).Send()
		return domain.Transaction{}, err
	}

	err = s.run(ctx, []uuid.UUID{acc.ID}, func(tx domain.LedgerTx) error {
		cur, err := tx.GetForUpdate(ctx, acc.ID)
		if err != nil {
			return err
		}

		if cur.Balance.LessThan(amount) {
			return domain.ErrInsufficientFunds
		}

		updated, err := tx.UpdateBalance(ctx, cur.ID, cur.Balance.Sub(amount), cur.Version)
		if err != nil {
			return err
		}

		res, err = tx.AppendTransaction(ctx, domain.Transaction{
			ID:               uuid.New(),
			Type:             domain.TransactionWithdraw,
			Amount:           amount,
			AccountNumber:    cur.AccountNumber,
			ResultingBalance: updated.Balance,
			CreatedAt:        s.clock.Now(),
		})

		return err
	})
	if err != nil {
		s.logFailure(ctx, err)
		return domain.Transaction{}, err
	}

	logCommit(ctx, res)

	return res, nil
}

// Transfer moves amount from sender to recipient.
//
// Both balances and both transaction records are committed together. The
// returned record is the sender side; the recipient side is found in the
// recipient's history.
func (s *Service) Transfer(ctx context.Context, senderNumber, recipientNumber string, amount decimal.Decimal) (res domain.Transaction, err error) {
	defer func() { observe(opTransfer, err) }()

	l := zerolog.Ctx(ctx)

	if err := validAmount(amount); err != nil {
		l.Info().Err(err).Send()
		return domain.Transaction{}, err
	}

	if senderNumber == recipientNumber {
		l.Info().Err(domain.ErrSameAccount).Str("account_number", senderNumber).Send()
		return domain.Transaction{}, domain.ErrSameAccount
	}

	sender, err := s.resolveSide(ctx, senderNumber, domain.ErrSenderNotFound)
	if err != nil {
		return domain.Transaction{}, err
	}

	recipient, err := s.resolveSide(ctx, recipientNumber, domain.ErrRecipientNotFound)
	if err != nil {
		return domain.Transaction{}, err
	}

	ids := accountlock.Ordered(sender.ID, recipient.ID)

	err = s.run(ctx, ids, func(tx domain.LedgerTx) error {
		current := make(map[uuid.UUID]domain.Account, len(ids))

		// Row locks follow the same order as the lock table.
		for _, id := range ids {
			a, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}

			current[id] = a
		}

		from, to := current[sender.ID], current[recipient.ID]

		if from.Balance.LessThan(amount) {
			return domain.ErrInsufficientFunds
		}

		updatedFrom, err := tx.UpdateBalance(ctx, from.ID, from.Balance.Sub(amount), from.Version)
		if err != nil {
			return err
		}

		updatedTo, err := tx.UpdateBalance(ctx, to.ID, to.Balance.Add(amount), to.Version)
		if err != nil {
			return err
		}

		now := s.clock.Now()

		res, err = tx.AppendTransaction(ctx, domain.Transaction{
			ID:                        uuid.New(),
			Type:                      domain.TransactionTransferOut,
			Amount:                    amount,
			AccountNumber:             from.AccountNumber,
			CounterpartyAccountNumber: to.AccountNumber,
			ResultingBalance:          updatedFrom.Balance,
			CreatedAt:                 now,
		})
		if err != nil {
			return err
		}

		_, err = tx.AppendTransaction(ctx, domain.Transaction{
			ID:                        uuid.New(),
			Type:                      domain.TransactionTransferIn,
			Amount:                    amount,
			AccountNumber:             to.AccountNumber,
			CounterpartyAccountNumber: from.AccountNumber,
			ResultingBalance:          updatedTo.Balance,
			CreatedAt:                 now,
		})

		return err
	})
	if err != nil {
		s.logFailure(ctx, err)
		return domain.Transaction{}, err
	}

	logCommit(ctx, res)

	return res, nil
}

func (s *Service) resolveSide(ctx context.Context, accountNumber string, notFound error) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := s.accounts.Get(ctx, accountNumber)
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		l.Info().Err(notFound).Str("account_number", accountNumber).Send()
		return domain.Account{}, notFound
	case err != nil:
		l.Error().Err(err).Send()
		return domain.Account{}, err
	}

	return a, nil
}

// GetHistory returns all transactions of the account, newest first.
func (s *Service) GetHistory(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Stringer("account_id", accountID).Send()
		return nil, err
	}

	return s.list(ctx, acc.AccountNumber)
}

// GetHistoryByNumber is GetHistory keyed by account number.
func (s *Service) GetHistoryByNumber(ctx context.Context, accountNumber string) ([]domain.Transaction, error) {
	acc, err := s.accounts.Get(ctx, accountNumber)
	if err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Str("account_number", accountNumber).Send()
		return nil, err
	}

	return s.list(ctx, acc.AccountNumber)
}

func (s *Service) list(ctx context.Context, accountNumber string) ([]domain.Transaction, error) {
	txs, err := s.history.ListByAccount(ctx, accountNumber)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Send()
		return nil, err
	}

	return txs, nil
}

// Balance returns the last committed balance of the account.
func (s *Service) Balance(ctx context.Context, accountNumber string) (decimal.Decimal, error) {
	acc, err := s.accounts.Get(ctx, accountNumber)
	if err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Str("account_number", accountNumber).Send()
		return decimal.Zero, err
	}

	return acc.Balance, nil
}

// run executes fn under the account locks, retrying on concurrency conflicts.
func (s *Service) run(ctx context.Context, ids []uuid.UUID, fn func(tx domain.LedgerTx) error) error {
	l := zerolog.Ctx(ctx)

	for attempt := 1; ; attempt++ {
		err := s.attempt(ctx, ids, fn)
		if !errors.Is(err, domain.ErrConcurrencyConflict) || attempt > s.maxRetries {
			return err
		}

		conflictRetriesTotal.Inc()
		l.Debug().Int("attempt", attempt).Msg("retrying after concurrency conflict")

		select {
		case <-ctx.Done():
			return err
		case <-time.After(s.backoff(attempt)):
		}
	}
}

func (s *Service) attempt(ctx context.Context, ids []uuid.UUID, fn func(tx domain.LedgerTx) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	unlock, err := s.locks.Lock(lockCtx, ids...)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return domain.ErrConcurrencyConflict
	}
	defer unlock()

	return s.store.ExecTx(ctx, fn)
}

func (s *Service) logFailure(ctx context.Context, err error) {
	l := zerolog.Ctx(ctx)

	switch {
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrInvalidAmount):
		l.Info().Err(err).Send()
	case errors.Is(err, domain.ErrConcurrencyConflict):
		l.Warn().Err(err).Int("max_retries", s.maxRetries).Send()
	default:
		l.Error().Err(err).Send()
	}
}

func logCommit(ctx context.Context, t domain.Transaction) {
	zerolog.Ctx(ctx).Debug().
		Stringer("transaction_id", t.ID).
		Str("type", string(t.Type)).
		Str("account_number", t.AccountNumber).
		Str("resulting_balance", t.ResultingBalance.String()).
		Msg("ledger commit")
}
