package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nexcart/storefront/internal/app/domain/account"
	"github.com/nexcart/storefront/internal/app/domain/cart"
	"github.com/nexcart/storefront/internal/app/storage"
	apperrors "github.com/nexcart/storefront/internal/errors"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local
// development.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]account.Account
	carts    map[string][]cart.Line
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.CartStore = (*Store)(nil)
var _ storage.CheckoutStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts: make(map[string]account.Account),
		carts:    make(map[string][]cart.Line),
	}
}

// AccountStore implementation ------------------------------------------------

func (s *Store) CreateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(acct.Username)
	if _, exists := s.accounts[key]; exists {
		return account.Account{}, apperrors.Conflict("User already exists")
	}

	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	acct.Transactions = cloneRecords(acct.Transactions)

	s.accounts[key] = acct
	return cloneAccount(acct), nil
}

func (s *Store) GetAccount(_ context.Context, username string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[strings.ToLower(username)]
	if !ok {
		return account.Account{}, apperrors.NotFound("User not found")
	}
	return cloneAccount(acct), nil
}

func (s *Store) UpdateBalanceAndLog(_ context.Context, username string, newBalance int64, entry account.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateBalanceAndLogLocked(username, newBalance, entry)
}

func (s *Store) updateBalanceAndLogLocked(username string, newBalance int64, entry account.TransactionRecord) error {
	key := strings.ToLower(username)
	acct, ok := s.accounts[key]
	if !ok {
		return apperrors.NotFound("User not found")
	}

	acct.Balance = newBalance
	acct.Transactions = append(cloneRecords(acct.Transactions), entry)
	acct.UpdatedAt = time.Now().UTC()

	s.accounts[key] = acct
	return nil
}

// CartStore implementation ---------------------------------------------------

func (s *Store) GetLines(_ context.Context, username string) ([]cart.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]cart.Line(nil), s.carts[strings.ToLower(username)]...), nil
}

func (s *Store) AddLine(_ context.Context, line cart.Line) (cart.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if line.AddedAt.IsZero() {
		line.AddedAt = time.Now().UTC()
	}
	key := strings.ToLower(line.Username)
	s.carts[key] = append(s.carts[key], line)
	return line, nil
}

func (s *Store) RemoveLine(_ context.Context, username, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(username)
	lines := s.carts[key]
	kept := lines[:0]
	for _, line := range lines {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	s.carts[key] = kept
	return nil
}

func (s *Store) Clear(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, strings.ToLower(username))
	return nil
}

// CheckoutStore implementation -----------------------------------------------

// CommitPurchase applies the balance update, ledger append and cart clear
// while holding the store lock, so no reader observes a partial commit.
func (s *Store) CommitPurchase(_ context.Context, username string, newBalance int64, entry account.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.updateBalanceAndLogLocked(username, newBalance, entry); err != nil {
		return err
	}
	delete(s.carts, strings.ToLower(username))
	return nil
}

// Helpers --------------------------------------------------------------------

func cloneAccount(acct account.Account) account.Account {
	acct.Transactions = cloneRecords(acct.Transactions)
	return acct
}

func cloneRecords(records []account.TransactionRecord) []account.TransactionRecord {
	if records == nil {
		return nil
	}
	out := make([]account.TransactionRecord, len(records))
	for i, rec := range records {
		rec.Items = append([]cart.Line(nil), rec.Items...)
		out[i] = rec
	}
	return out
}
