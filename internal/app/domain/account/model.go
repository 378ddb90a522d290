package account

import (
	"time"

	"github.com/nexcart/storefront/internal/app/domain/cart"
)

// Account represents a storefront user: identity, password credential and
// the balance ledger. Balance is held in the smallest currency unit and is
// never negative after a committed operation.
type Account struct {
	Username     string              `json:"username"`
	PasswordHash string              `json:"-"`
	Balance      int64               `json:"balance"`
	Transactions []TransactionRecord `json:"transactions"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// TransactionRecord is one append-only entry in an account's ledger.
type TransactionRecord struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Amount    int64       `json:"amount"`
	Timestamp time.Time   `json:"timestamp"`
	Items     []cart.Line `json:"items"`
}

// Transaction record types.
const (
	TxTypePurchase = "purchase"
)

// StartingBalance is granted to every account at signup.
const StartingBalance int64 = 100000
