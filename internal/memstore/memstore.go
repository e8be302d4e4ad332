// Package memstore provides an in-memory account store and transaction log.
//
// It backs the service when no database is configured and is what the ledger
// property tests run against. All methods are safe for concurrent use.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// Store keeps accounts and transaction records in maps guarded by an RWMutex.
type Store struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]domain.Account
	byNumber map[string]uuid.UUID
	byUser   map[uuid.UUID][]uuid.UUID
	// Per account number, in commit order.
	history map[string][]domain.Transaction
	txIDs   map[uuid.UUID]struct{}
	now     func() time.Time
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]domain.Account),
		byNumber: make(map[string]uuid.UUID),
		byUser:   make(map[uuid.UUID][]uuid.UUID),
		history:  make(map[string][]domain.Transaction),
		txIDs:    make(map[uuid.UUID]struct{}),
		now:      time.Now,
	}
}

// Create stores a new account with zero balance.
func (s *Store) Create(_ context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byNumber[arg.AccountNumber]; ok {
		return domain.Account{}, domain.ErrDuplicateAccountNumber
	}

	a := s.newAccount(arg)
	s.insert(a)

	return a, nil
}

func (s *Store) newAccount(arg domain.CreateAccountParams) domain.Account {
	return domain.Account{
		ID:            uuid.New(),
		AccountNumber: arg.AccountNumber,
		UserID:        arg.UserID,
		OwnerName:     arg.OwnerName,
		Balance:       decimal.Zero,
		CreatedAt:     s.now().UTC().Truncate(time.Microsecond),
	}
}

// insert requires s.mu held for writing.
func (s *Store) insert(a domain.Account) {
	s.accounts[a.ID] = a
	s.byNumber[a.AccountNumber] = a.ID
	s.byUser[a.UserID] = append(s.byUser[a.UserID], a.ID)
}

// Get returns the account with the given account number.
func (s *Store) Get(_ context.Context, accountNumber string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byNumber[accountNumber]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return s.accounts[id], nil
}

// GetByID returns the account with the given id.
func (s *Store) GetByID(_ context.Context, id uuid.UUID) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return a, nil
}

// GetByUserID returns the first account opened by the user.
func (s *Store) GetByUserID(_ context.Context, userID uuid.UUID) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUser[userID]
	if len(ids) == 0 {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return s.accounts[ids[0]], nil
}

// ListByAccount returns the account's transactions, newest first.
func (s *Store) ListByAccount(_ context.Context, accountNumber string) ([]domain.Transaction, error) {
	s.mu.RLock()
	records := s.history[accountNumber]
	out := make([]domain.Transaction, len(records))
	copy(out, records)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

// ExecTx runs fn in a unit of work.
//
// Writes are staged and applied together under the store lock once fn
// returns nil. If any updated account changed since it was read the whole
// unit of work is discarded with domain.ErrConcurrencyConflict.
func (s *Store) ExecTx(_ context.Context, fn func(domain.LedgerTx) error) error {
	tx := &memTx{
		store:   s,
		created: make(map[uuid.UUID]domain.Account),
		updates: make(map[uuid.UUID]stagedBalance),
	}

	if err := fn(tx); err != nil {
		return err
	}

	return s.commit(tx)
}

func (s *Store) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range tx.created {
		if _, ok := s.byNumber[a.AccountNumber]; ok {
			return domain.ErrDuplicateAccountNumber
		}
	}

	for id, u := range tx.updates {
		if s.accounts[id].Version != u.readVersion {
			return domain.ErrConcurrencyConflict
		}
	}

	for _, t := range tx.appended {
		if _, ok := s.txIDs[t.ID]; ok {
			return domain.ErrConcurrencyConflict
		}
	}

	for _, a := range tx.created {
		s.insert(a)
	}

	for id, u := range tx.updates {
		a := s.accounts[id]
		a.Balance = u.balance
		a.Version = u.readVersion + u.writes
		s.accounts[id] = a
	}

	for _, t := range tx.appended {
		s.txIDs[t.ID] = struct{}{}
		s.history[t.AccountNumber] = append(s.history[t.AccountNumber], t)
	}

	return nil
}

type stagedBalance struct {
	balance     decimal.Decimal
	readVersion int64
	writes      int64
}

type memTx struct {
	store    *Store
	created  map[uuid.UUID]domain.Account
	updates  map[uuid.UUID]stagedBalance
	appended []domain.Transaction
}

// Create stages a new account with zero balance.
func (t *memTx) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	if _, err := t.store.Get(ctx, arg.AccountNumber); err == nil {
		return domain.Account{}, domain.ErrDuplicateAccountNumber
	}

	for _, a := range t.created {
		if a.AccountNumber == arg.AccountNumber {
			return domain.Account{}, domain.ErrDuplicateAccountNumber
		}
	}

	a := t.store.newAccount(arg)
	t.created[a.ID] = a

	return a, nil
}

// GetForUpdate returns the account as seen by this unit of work.
func (t *memTx) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	a, ok := t.created[id]
	if !ok {
		var err error

		a, err = t.store.GetByID(ctx, id)
		if err != nil {
			return a, err
		}
	}

	if u, ok := t.updates[id]; ok {
		a.Balance = u.balance
		a.Version = u.readVersion + u.writes
	}

	return a, nil
}

// UpdateBalance stages a new balance if version matches what this unit of work has seen.
func (t *memTx) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, version int64) (domain.Account, error) {
	if balance.IsNegative() {
		return domain.Account{}, domain.ErrInsufficientFunds
	}

	a, err := t.GetForUpdate(ctx, id)
	if err != nil {
		return a, err
	}

	if a.Version != version {
		return domain.Account{}, domain.ErrConcurrencyConflict
	}

	u, ok := t.updates[id]
	if !ok {
		u = stagedBalance{readVersion: version}
	}

	u.balance = balance
	u.writes++
	t.updates[id] = u

	a.Balance = balance
	a.Version = u.readVersion + u.writes

	return a, nil
}

// AppendTransaction stages a transaction record.
func (t *memTx) AppendTransaction(_ context.Context, tr domain.Transaction) (domain.Transaction, error) {
	if !tr.Type.Valid() {
		return domain.Transaction{}, domain.ErrInvalidTransactionType
	}

	if !tr.Amount.IsPositive() {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}

	t.appended = append(t.appended, tr)

	return tr, nil
}
