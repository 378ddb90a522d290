package memory

import (
	"context"
	"testing"

	"github.com/nexcart/storefront/internal/app/domain/account"
	"github.com/nexcart/storefront/internal/app/domain/cart"
	apperrors "github.com/nexcart/storefront/internal/errors"
)

func TestAccountsCaseInsensitive(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreateAccount(ctx, account.Account{Username: "Alice", Balance: 100}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := store.CreateAccount(ctx, account.Account{Username: "alice"}); !apperrors.Is(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	acct, err := store.GetAccount(ctx, "ALICE")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acct.Username != "Alice" {
		t.Fatalf("original casing must be preserved, got %q", acct.Username)
	}
}

func TestReturnedAccountIsACopy(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreateAccount(ctx, account.Account{Username: "alice", Balance: 100}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.UpdateBalanceAndLog(ctx, "alice", 50, account.TransactionRecord{ID: "t1", Amount: 50}); err != nil {
		t.Fatalf("update: %v", err)
	}

	acct, _ := store.GetAccount(ctx, "alice")
	acct.Balance = 9999
	acct.Transactions[0].Amount = 9999

	again, _ := store.GetAccount(ctx, "alice")
	if again.Balance != 50 || again.Transactions[0].Amount != 50 {
		t.Fatalf("store state must not alias returned values: %+v", again)
	}
}

func TestCommitPurchaseClearsCart(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreateAccount(ctx, account.Account{Username: "alice", Balance: 1000}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.AddLine(ctx, cart.Line{Username: "alice", ProductID: "p1", Name: "item", Price: 400}); err != nil {
		t.Fatalf("add line: %v", err)
	}

	entry := account.TransactionRecord{ID: "t1", Type: account.TxTypePurchase, Amount: 400}
	if err := store.CommitPurchase(ctx, "alice", 600, entry); err != nil {
		t.Fatalf("commit: %v", err)
	}

	acct, _ := store.GetAccount(ctx, "alice")
	if acct.Balance != 600 || len(acct.Transactions) != 1 {
		t.Fatalf("unexpected account: %+v", acct)
	}
	lines, _ := store.GetLines(ctx, "alice")
	if len(lines) != 0 {
		t.Fatalf("cart not cleared: %+v", lines)
	}
}

func TestClearEmptyCart(t *testing.T) {
	store := New()
	ctx := context.Background()

	if err := store.Clear(ctx, "nobody"); err != nil {
		t.Fatalf("clearing an empty cart must not fail: %v", err)
	}

	if _, err := store.AddLine(ctx, cart.Line{Username: "alice", ProductID: "p1", Name: "item", Price: 100}); err != nil {
		t.Fatalf("add line: %v", err)
	}
	if err := store.Clear(ctx, "alice"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Clear(ctx, "alice"); err != nil {
		t.Fatalf("second clear must also succeed: %v", err)
	}

	lines, err := store.GetLines(ctx, "alice")
	if err != nil {
		t.Fatalf("get lines: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("cart not cleared: %+v", lines)
	}
}

func TestCommitPurchaseUnknownUser(t *testing.T) {
	store := New()
	err := store.CommitPurchase(context.Background(), "ghost", 0, account.TransactionRecord{ID: "t1"})
	if !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
