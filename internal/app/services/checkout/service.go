package checkout

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexcart/storefront/internal/app/domain/account"
	"github.com/nexcart/storefront/internal/app/domain/cart"
	"github.com/nexcart/storefront/internal/app/metrics"
	"github.com/nexcart/storefront/internal/app/storage"
	apperrors "github.com/nexcart/storefront/internal/errors"
	"github.com/nexcart/storefront/pkg/logger"
)

// Store is the persistence contract checkout needs: account reads, cart
// reads, and the atomic purchase commit.
type Store interface {
	storage.AccountStore
	storage.CartStore
	storage.CheckoutStore
}

// Result is returned on a successful checkout.
type Result struct {
	NewBalance int64
	Total      int64
	Items      []cart.Line
}

// Service converts a user's cart into a committed purchase. Checkouts for
// the same username are totally ordered: the per-user lock covers the whole
// read-validate-write window, and the store commit is itself atomic, so no
// reader ever observes a debit without its ledger entry or a cleared cart
// without the debit.
type Service struct {
	store Store
	log   *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New constructs a checkout service.
func New(store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("checkout")
	}
	return &Service{
		store: store,
		log:   log,
		locks: make(map[string]*sync.Mutex),
	}
}

// Checkout debits the user's balance by the server-computed cart total,
// appends a purchase record to the ledger and clears the cart, as one unit.
// An empty cart succeeds as a zero-amount no-op purchase.
//
// Prices come exclusively from the cart store; nothing the caller supplies
// can influence the committed amount.
func (s *Service) Checkout(ctx context.Context, username string) (Result, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		metrics.CheckoutObserved("invalid_request")
		return Result{}, apperrors.InvalidRequest("Missing username")
	}

	lock := s.userLock(strings.ToLower(username))
	lock.Lock()
	defer lock.Unlock()

	acct, err := s.store.GetAccount(ctx, username)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			metrics.CheckoutObserved("not_found")
		} else {
			metrics.CheckoutObserved("error")
		}
		return Result{}, err
	}

	lines, err := s.store.GetLines(ctx, username)
	if err != nil {
		metrics.CheckoutObserved("error")
		return Result{}, err
	}
	total := cart.Total(lines)

	if acct.Balance < total {
		metrics.CheckoutObserved("insufficient_funds")
		return Result{}, apperrors.InsufficientFunds("Insufficient balance").
			WithDetails("required", total).
			WithDetails("available", acct.Balance)
	}

	newBalance := acct.Balance - total
	entry := account.TransactionRecord{
		ID:        uuid.NewString(),
		Type:      account.TxTypePurchase,
		Amount:    total,
		Timestamp: time.Now().UTC(),
		Items:     lines,
	}

	if err := s.store.CommitPurchase(ctx, username, newBalance, entry); err != nil {
		metrics.CheckoutObserved("error")
		return Result{}, apperrors.Internal("Internal server error", err)
	}

	metrics.CheckoutObserved("success")
	metrics.CheckoutAmount(total)
	s.log.WithField("username", acct.Username).
		WithField("amount", total).
		WithField("new_balance", newBalance).
		Info("checkout committed")

	return Result{NewBalance: newBalance, Total: total, Items: lines}, nil
}

// userLock returns the mutex serialising checkouts for one username.
func (s *Service) userLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}
