// Package helpers seeds the database for integration tests.
package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

const seedAccountQuery = `
INSERT INTO
    accounts (id, account_number, user_id, owner_name, balance)
VALUES
    ($1, $2, $3, $4, $5)
RETURNING id, account_number, user_id, owner_name, balance, version, created_at
`

// SeedAccount inserts an account with the given balance for the user.
func SeedAccount(t *testing.T, db dbpkg.SQLInterface, userID uuid.UUID, balance string) domain.Account {
	t.Helper()

	row := db.QueryRowContext(context.Background(), seedAccountQuery,
		uuid.New(),
		randompkg.AccountNumber("LT"),
		userID,
		randompkg.Owner(),
		decimal.RequireFromString(balance),
	)

	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.AccountNumber,
		&a.UserID,
		&a.OwnerName,
		&a.Balance,
		&a.Version,
		&a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("SeedAccount(t, db, %v, %v) returned error: %v", userID, balance, err)
	}

	return a
}

// SeedAccountWith1000Balance inserts an account holding 1000 for a random user.
func SeedAccountWith1000Balance(t *testing.T, db dbpkg.SQLInterface) domain.Account {
	t.Helper()

	return SeedAccount(t, db, uuid.New(), "1000")
}

const seedTransactionQuery = `
INSERT INTO
    transactions (id, type, amount, account_number, resulting_balance, created_at)
VALUES
    ($1, $2, $3, $4, $5, $6)
RETURNING id, type, amount, account_number, resulting_balance, created_at
`

// SeedDeposits inserts n deposit records for the account one second apart.
//
// The records are returned newest first.
func SeedDeposits(t *testing.T, db dbpkg.SQLInterface, n int, account domain.Account) []domain.Transaction {
	t.Helper()

	start := time.Now().UTC().Truncate(time.Microsecond).Add(-time.Duration(n) * time.Second)
	balance := account.Balance
	items := make([]domain.Transaction, n)

	for i := 0; i < n; i++ {
		amount := randompkg.MoneyAmountBetween(1, 100)
		balance = balance.Add(amount)

		row := db.QueryRowContext(context.Background(), seedTransactionQuery,
			uuid.New(),
			string(domain.TransactionDeposit),
			amount,
			account.AccountNumber,
			balance,
			start.Add(time.Duration(i)*time.Second),
		)

		var tr domain.Transaction

		if err := row.Scan(&tr.ID, &tr.Type, &tr.Amount, &tr.AccountNumber, &tr.ResultingBalance, &tr.CreatedAt); err != nil {
			t.Fatalf("SeedDeposits(t, db, %v, %v) returned error: %v", n, account.AccountNumber, err)
		}

		items[n-1-i] = tr
	}

	return items
}
