package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

func seedAccount(t *testing.T, s *Store) domain.Account {
	t.Helper()

	arg := domain.CreateAccountParams{
		AccountNumber: randompkg.AccountNumber("LT"),
		UserID:        uuid.New(),
		OwnerName:     randompkg.Owner(),
	}

	a, err := s.Create(context.Background(), arg)
	require.NoError(t, err)

	return a
}

func TestCreateAndResolve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	a := seedAccount(t, s)

	require.True(t, a.Balance.IsZero())
	require.NotEqual(t, uuid.Nil, a.ID)

	got, err := s.Get(ctx, a.AccountNumber)
	require.NoError(t, err)
	require.Equal(t, a, got)

	got, err = s.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, a, got)

	got, err = s.GetByUserID(ctx, a.UserID)
	require.NoError(t, err)
	require.Equal(t, a, got)

	_, err = s.Get(ctx, "LT99999999999999")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = s.GetByUserID(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = s.Create(ctx, domain.CreateAccountParams{AccountNumber: a.AccountNumber, UserID: uuid.New()})
	require.ErrorIs(t, err, domain.ErrDuplicateAccountNumber)
}

func TestExecTxCommitsAtomically(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	a := seedAccount(t, s)

	amount := decimal.RequireFromString("10.50")

	err := s.ExecTx(ctx, func(tx domain.LedgerTx) error {
		cur, err := tx.GetForUpdate(ctx, a.ID)
		if err != nil {
			return err
		}

		updated, err := tx.UpdateBalance(ctx, a.ID, cur.Balance.Add(amount), cur.Version)
		if err != nil {
			return err
		}

		// Not visible outside of the unit of work before commit.
		outside, err := s.Get(ctx, a.AccountNumber)
		require.NoError(t, err)
		require.True(t, outside.Balance.IsZero())

		_, err = tx.AppendTransaction(ctx, domain.Transaction{
			ID:               uuid.New(),
			Type:             domain.TransactionDeposit,
			Amount:           amount,
			AccountNumber:    a.AccountNumber,
			ResultingBalance: updated.Balance,
			CreatedAt:        time.Now(),
		})

		return err
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, a.AccountNumber)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(amount))
	require.Equal(t, int64(1), got.Version)

	history, err := s.ListByAccount(ctx, a.AccountNumber)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestExecTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	a := seedAccount(t, s)

	errBoom := errors.New("boom")

	err := s.ExecTx(ctx, func(tx domain.LedgerTx) error {
		if _, err := tx.UpdateBalance(ctx, a.ID, decimal.NewFromInt(100), 0); err != nil {
			return err
		}

		if _, err := tx.AppendTransaction(ctx, domain.Transaction{
			ID:            uuid.New(),
			Type:          domain.TransactionDeposit,
			Amount:        decimal.NewFromInt(100),
			AccountNumber: a.AccountNumber,
		}); err != nil {
			return err
		}

		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	got, err := s.Get(ctx, a.AccountNumber)
	require.NoError(t, err)
	require.True(t, got.Balance.IsZero())

	history, err := s.ListByAccount(ctx, a.AccountNumber)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestExecTxDetectsConcurrentUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	a := seedAccount(t, s)

	err := s.ExecTx(ctx, func(tx domain.LedgerTx) error {
		cur, err := tx.GetForUpdate(ctx, a.ID)
		if err != nil {
			return err
		}

		// A competing unit of work commits first.
		require.NoError(t, s.ExecTx(ctx, func(other domain.LedgerTx) error {
			_, err := other.UpdateBalance(ctx, a.ID, decimal.NewFromInt(5), cur.Version)
			return err
		}))

		_, err = tx.UpdateBalance(ctx, a.ID, cur.Balance.Add(decimal.NewFromInt(1)), cur.Version)

		return err
	})
	require.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	got, err := s.Get(ctx, a.AccountNumber)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(decimal.NewFromInt(5)))
}

func TestUpdateBalanceRejectsNegative(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	a := seedAccount(t, s)

	err := s.ExecTx(ctx, func(tx domain.LedgerTx) error {
		_, err := tx.UpdateBalance(ctx, a.ID, decimal.NewFromInt(-1), 0)
		return err
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestAppendTransactionValidates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	err := s.ExecTx(ctx, func(tx domain.LedgerTx) error {
		_, err := tx.AppendTransaction(ctx, domain.Transaction{ID: uuid.New(), Type: "REFUND", Amount: decimal.NewFromInt(1)})
		return err
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransactionType)

	err = s.ExecTx(ctx, func(tx domain.LedgerTx) error {
		_, err := tx.AppendTransaction(ctx, domain.Transaction{ID: uuid.New(), Type: domain.TransactionDeposit})
		return err
	})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestListByAccountNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	a := seedAccount(t, s)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Second)

		err := s.ExecTx(ctx, func(tx domain.LedgerTx) error {
			_, err := tx.AppendTransaction(ctx, domain.Transaction{
				ID:            uuid.New(),
				Type:          domain.TransactionDeposit,
				Amount:        decimal.NewFromInt(1),
				AccountNumber: a.AccountNumber,
				CreatedAt:     at,
			})

			return err
		})
		require.NoError(t, err)
	}

	history, err := s.ListByAccount(ctx, a.AccountNumber)
	require.NoError(t, err)
	require.Len(t, history, 3)

	for i := 1; i < len(history); i++ {
		require.True(t, history[i-1].CreatedAt.After(history[i].CreatedAt))
	}
}

func TestExecTxCreatesAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	existing := seedAccount(t, s)

	arg := domain.CreateAccountParams{
		AccountNumber: randompkg.AccountNumber("LT"),
		UserID:        uuid.New(),
		OwnerName:     randompkg.Owner(),
	}

	var created domain.Account

	err := s.ExecTx(ctx, func(tx domain.LedgerTx) error {
		_, err := tx.Create(ctx, domain.CreateAccountParams{AccountNumber: existing.AccountNumber})
		require.ErrorIs(t, err, domain.ErrDuplicateAccountNumber)

		created, err = tx.Create(ctx, arg)
		require.NoError(t, err)

		_, err = tx.Create(ctx, arg)
		require.ErrorIs(t, err, domain.ErrDuplicateAccountNumber)

		_, err = s.Get(ctx, arg.AccountNumber)
		require.ErrorIs(t, err, domain.ErrAccountNotFound)

		got, err := tx.GetForUpdate(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, created, got)

		_, err = tx.UpdateBalance(ctx, created.ID, decimal.NewFromInt(7), created.Version)

		return err
	})
	require.NoError(t, err)

	got, err := s.GetByUserID(ctx, arg.UserID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.True(t, got.Balance.Equal(decimal.NewFromInt(7)))
	require.Equal(t, int64(1), got.Version)
}

func TestExecTxCreateRolledBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	errBoom := errors.New("boom")

	arg := domain.CreateAccountParams{AccountNumber: randompkg.AccountNumber("LT"), UserID: uuid.New()}

	err := s.ExecTx(ctx, func(tx domain.LedgerTx) error {
		if _, err := tx.Create(ctx, arg); err != nil {
			return err
		}

		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	_, err = s.Get(ctx, arg.AccountNumber)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestExecTxCreateLosesRace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	arg := domain.CreateAccountParams{AccountNumber: randompkg.AccountNumber("LT"), UserID: uuid.New()}

	err := s.ExecTx(ctx, func(tx domain.LedgerTx) error {
		if _, err := tx.Create(ctx, arg); err != nil {
			return err
		}

		_, err := s.Create(ctx, arg)

		return err
	})
	require.ErrorIs(t, err, domain.ErrDuplicateAccountNumber)
}
