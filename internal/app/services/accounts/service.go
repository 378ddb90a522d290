package accounts

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/nexcart/storefront/internal/app/domain/account"
	"github.com/nexcart/storefront/internal/app/storage"
	apperrors "github.com/nexcart/storefront/internal/errors"
	"github.com/nexcart/storefront/pkg/logger"
)

// MinPasswordLength is enforced at signup.
const MinPasswordLength = 6

// Service manages account creation and credential verification.
type Service struct {
	store storage.AccountStore
	log   *logger.Logger
}

// New constructs an accounts service.
func New(store storage.AccountStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	return &Service{store: store, log: log}
}

// Signup creates an account with the fixed starting balance. The password is
// stored only as a bcrypt hash.
func (s *Service) Signup(ctx context.Context, username, password string) (account.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return account.Account{}, apperrors.InvalidRequest("Username and password are required")
	}
	if len(password) < MinPasswordLength {
		return account.Account{}, apperrors.InvalidRequest("Password must be at least 6 characters long")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return account.Account{}, apperrors.Internal("Internal server error", err)
	}

	acct, err := s.store.CreateAccount(ctx, account.Account{
		Username:     username,
		PasswordHash: string(hash),
		Balance:      account.StartingBalance,
		Transactions: []account.TransactionRecord{},
	})
	if err != nil {
		return account.Account{}, err
	}

	s.log.WithField("username", acct.Username).Info("account created")
	return acct, nil
}

// Authenticate verifies a username/password pair. Unknown users and wrong
// passwords produce the same error so callers cannot probe for accounts.
func (s *Service) Authenticate(ctx context.Context, username, password string) (account.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return account.Account{}, apperrors.InvalidRequest("Username and password are required")
	}

	acct, err := s.store.GetAccount(ctx, username)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			return account.Account{}, apperrors.Unauthorized("Invalid credentials")
		}
		return account.Account{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return account.Account{}, apperrors.Unauthorized("Invalid credentials")
	}
	return acct, nil
}

// Get returns the account for a username.
func (s *Service) Get(ctx context.Context, username string) (account.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return account.Account{}, apperrors.InvalidRequest("Missing username")
	}
	return s.store.GetAccount(ctx, username)
}
