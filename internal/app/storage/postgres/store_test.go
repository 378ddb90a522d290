package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nexcart/storefront/internal/app/domain/account"
	"github.com/nexcart/storefront/internal/app/domain/cart"
	apperrors "github.com/nexcart/storefront/internal/errors"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestCreateAccountDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO store_accounts").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.CreateAccount(context.Background(), account.Account{Username: "alice"})
	if !apperrors.Is(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetAccountNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT username, password_hash, balance").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"username"}))

	_, err := store.GetAccount(context.Background(), "ghost")
	if !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetAccountDecodesLedger(t *testing.T) {
	store, mock := newMockStore(t)

	entries := []account.TransactionRecord{{ID: "t1", Type: account.TxTypePurchase, Amount: 500}}
	raw, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT username, password_hash, balance").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{
			"username", "password_hash", "balance", "transactions", "created_at", "updated_at",
		}).AddRow("alice", "hash", int64(99500), raw, now, now))

	acct, err := store.GetAccount(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if acct.Balance != 99500 || len(acct.Transactions) != 1 || acct.Transactions[0].Amount != 500 {
		t.Fatalf("unexpected account: %+v", acct)
	}
}

func TestUpdateBalanceAndLogUnknownUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE store_accounts").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateBalanceAndLog(context.Background(), "ghost", 0, account.TransactionRecord{ID: "t1"})
	if !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCommitPurchaseTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE store_accounts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM store_cart_lines").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	entry := account.TransactionRecord{ID: "t1", Type: account.TxTypePurchase, Amount: 500}
	if err := store.CommitPurchase(context.Background(), "alice", 99500, entry); err != nil {
		t.Fatalf("commit purchase: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCommitPurchaseRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE store_accounts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM store_cart_lines").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	entry := account.TransactionRecord{ID: "t1", Amount: 500}
	if err := store.CommitPurchase(context.Background(), "alice", 99500, entry); err == nil {
		t.Fatal("expected commit to fail")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestClearEmptyCart(t *testing.T) {
	store, mock := newMockStore(t)

	// zero rows deleted is not an error
	mock.ExpectExec("DELETE FROM store_cart_lines").
		WithArgs("alice").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Clear(context.Background(), "alice"); err != nil {
		t.Fatalf("clearing an empty cart must not fail: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := New(db)
	ctx := context.Background()
	username := "it_" + time.Now().UTC().Format("20060102150405")

	acct, err := store.CreateAccount(ctx, account.Account{
		Username:     username,
		PasswordHash: "hash",
		Balance:      account.StartingBalance,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	if _, err := store.AddLine(ctx, cart.Line{Username: username, ProductID: "p1", Name: "item", Price: 500}); err != nil {
		t.Fatalf("add line: %v", err)
	}

	entry := account.TransactionRecord{
		ID:        "it-entry",
		Type:      account.TxTypePurchase,
		Amount:    500,
		Timestamp: time.Now().UTC(),
	}
	if err := store.CommitPurchase(ctx, username, acct.Balance-500, entry); err != nil {
		t.Fatalf("commit purchase: %v", err)
	}

	got, err := store.GetAccount(ctx, username)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if got.Balance != acct.Balance-500 || len(got.Transactions) != 1 {
		t.Fatalf("unexpected account after purchase: %+v", got)
	}

	lines, err := store.GetLines(ctx, username)
	if err != nil {
		t.Fatalf("get lines: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("cart not cleared: %+v", lines)
	}
}
