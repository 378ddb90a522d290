package storage

import (
	"context"

	"github.com/nexcart/storefront/internal/app/domain/account"
	"github.com/nexcart/storefront/internal/app/domain/cart"
)

// AccountStore persists account records and their transaction ledgers.
type AccountStore interface {
	// CreateAccount fails with errors.Conflict when the username is taken.
	CreateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	// GetAccount fails with errors.NotFound when the username is unknown.
	GetAccount(ctx context.Context, username string) (account.Account, error)
	// UpdateBalanceAndLog replaces the balance and appends a ledger entry.
	// Concurrent readers never observe the balance without the entry.
	UpdateBalanceAndLog(ctx context.Context, username string, newBalance int64, entry account.TransactionRecord) error
}

// CartStore persists pending cart lines keyed by username.
type CartStore interface {
	GetLines(ctx context.Context, username string) ([]cart.Line, error)
	AddLine(ctx context.Context, line cart.Line) (cart.Line, error)
	RemoveLine(ctx context.Context, username, productID string) error
	// Clear removes all lines for a username. Clearing an empty cart is not
	// an error.
	Clear(ctx context.Context, username string) error
}

// CheckoutStore commits a purchase as one unit: debit the balance, append
// the ledger entry and clear the cart, all-or-nothing. Implementations back
// this with a database transaction or an equivalent exclusion scope.
type CheckoutStore interface {
	CommitPurchase(ctx context.Context, username string, newBalance int64, entry account.TransactionRecord) error
}
