// Package ledgerrepo runs ledger units of work inside a single database transaction.
package ledgerrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/accountrepo"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/transactionrepo"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

// RepoPGS facilitates ledger repository layer logic.
type RepoPGS struct {
	conn *sql.DB
}

// NewRepoPGS returns ledger RepoPGS with connection to start transactions.
func NewRepoPGS(conn *sql.DB) *RepoPGS {
	return &RepoPGS{conn: conn}
}

// txRepo exposes the account and transaction repos bound to one sql.Tx.
type txRepo struct {
	*accountrepo.RepoPGS
	transactions *transactionrepo.RepoPGS
}

func (r txRepo) AppendTransaction(ctx context.Context, t domain.Transaction) (domain.Transaction, error) {
	return r.transactions.Append(ctx, t)
}

// ExecTx runs fn within a database transaction.
//
// The transaction is committed when fn returns nil and rolled back otherwise.
// Serialization failures and deadlocks reported by the database surface as
// domain.ErrConcurrencyConflict.
func (r *RepoPGS) ExecTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	l := zerolog.Ctx(ctx)

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Send()
		}
	}()

	err = fn(txRepo{
		RepoPGS:      accountrepo.NewRepoPGS(tx),
		transactions: transactionrepo.NewRepoPGS(tx),
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()

		if dbpkg.IsRetryable(err) {
			return domain.ErrConcurrencyConflict
		}

		return errorspkg.ErrInternal
	}

	return nil
}
