package accounts

import (
	"context"
	"testing"

	"github.com/nexcart/storefront/internal/app/domain/account"
	"github.com/nexcart/storefront/internal/app/storage/memory"
	apperrors "github.com/nexcart/storefront/internal/errors"
)

func TestSignupAndAuthenticate(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	acct, err := svc.Signup(context.Background(), "alice", "hunter22")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if acct.Balance != account.StartingBalance {
		t.Fatalf("expected starting balance %d, got %d", account.StartingBalance, acct.Balance)
	}
	if acct.PasswordHash == "hunter22" || acct.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}
	if len(acct.Transactions) != 0 {
		t.Fatalf("new account should have an empty ledger, got %d entries", len(acct.Transactions))
	}

	got, err := svc.Authenticate(context.Background(), "alice", "hunter22")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.Username != "alice" {
		t.Fatalf("unexpected account: %+v", got)
	}
}

func TestSignupValidation(t *testing.T) {
	svc := New(memory.New(), nil)

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"missing username", "", "hunter22"},
		{"missing password", "alice", ""},
		{"short password", "alice", "abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), tc.username, tc.password)
			if !apperrors.Is(err, apperrors.CodeInvalidRequest) {
				t.Fatalf("expected invalid request, got %v", err)
			}
		})
	}
}

func TestSignupDuplicateUsername(t *testing.T) {
	svc := New(memory.New(), nil)

	if _, err := svc.Signup(context.Background(), "alice", "hunter22"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	_, err := svc.Signup(context.Background(), "Alice", "another6")
	if !apperrors.Is(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict for case-insensitive duplicate, got %v", err)
	}
}

func TestAuthenticateUniformFailure(t *testing.T) {
	svc := New(memory.New(), nil)

	if _, err := svc.Signup(context.Background(), "alice", "hunter22"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, unknownErr := svc.Authenticate(context.Background(), "nobody", "hunter22")
	_, wrongErr := svc.Authenticate(context.Background(), "alice", "wrong-pass")

	for _, err := range []error{unknownErr, wrongErr} {
		svcErr := apperrors.GetServiceError(err)
		if svcErr == nil || svcErr.Code != apperrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
		if svcErr.Message != "Invalid credentials" {
			t.Fatalf("login failures must be indistinguishable, got %q", svcErr.Message)
		}
	}
}

func TestGet(t *testing.T) {
	svc := New(memory.New(), nil)

	if _, err := svc.Signup(context.Background(), "alice", "hunter22"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	acct, err := svc.Get(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acct.Balance != account.StartingBalance {
		t.Fatalf("unexpected balance: %d", acct.Balance)
	}

	if _, err := svc.Get(context.Background(), "nobody"); !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
