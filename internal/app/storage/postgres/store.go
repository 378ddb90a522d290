package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nexcart/storefront/internal/app/domain/account"
	"github.com/nexcart/storefront/internal/app/domain/cart"
	"github.com/nexcart/storefront/internal/app/storage"
	apperrors "github.com/nexcart/storefront/internal/errors"
)

// Store implements the storage interfaces backed by PostgreSQL. The ledger
// is kept as a JSONB array on the account row so the append and the balance
// update land in one statement.
type Store struct {
	db *sqlx.DB
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.CartStore = (*Store)(nil)
var _ storage.CheckoutStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type accountRow struct {
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Balance      int64     `db:"balance"`
	Transactions []byte    `db:"transactions"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type cartRow struct {
	Username  string    `db:"username"`
	ProductID string    `db:"product_id"`
	Name      string    `db:"name"`
	Price     int64     `db:"price"`
	AddedAt   time.Time `db:"added_at"`
}

// --- AccountStore -----------------------------------------------------------

func (s *Store) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	if acct.Transactions == nil {
		acct.Transactions = []account.TransactionRecord{}
	}

	txJSON, err := json.Marshal(acct.Transactions)
	if err != nil {
		return account.Account{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO store_accounts (username, password_hash, balance, transactions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, acct.Username, acct.PasswordHash, acct.Balance, txJSON, acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return account.Account{}, apperrors.Conflict("User already exists")
		}
		return account.Account{}, err
	}
	return acct, nil
}

func (s *Store) GetAccount(ctx context.Context, username string) (account.Account, error) {
	var row accountRow
	err := s.db.GetContext(ctx, &row, `
		SELECT username, password_hash, balance, transactions, created_at, updated_at
		FROM store_accounts
		WHERE lower(username) = lower($1)
	`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Account{}, apperrors.NotFound("User not found")
		}
		return account.Account{}, err
	}
	return rowToAccount(row)
}

func (s *Store) UpdateBalanceAndLog(ctx context.Context, username string, newBalance int64, entry account.TransactionRecord) error {
	return s.updateBalanceAndLog(ctx, s.db, username, newBalance, entry)
}

// updateBalanceAndLog appends the ledger entry and sets the new balance in a
// single UPDATE, so concurrent readers never see one without the other.
func (s *Store) updateBalanceAndLog(ctx context.Context, ex sqlx.ExtContext, username string, newBalance int64, entry account.TransactionRecord) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	result, err := ex.ExecContext(ctx, `
		UPDATE store_accounts
		SET balance = $2,
		    transactions = transactions || $3::jsonb,
		    updated_at = $4
		WHERE lower(username) = lower($1)
	`, username, newBalance, entryJSON, time.Now().UTC())
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.NotFound("User not found")
	}
	return nil
}

// --- CartStore --------------------------------------------------------------

func (s *Store) GetLines(ctx context.Context, username string) ([]cart.Line, error) {
	var rows []cartRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT username, product_id, name, price, added_at
		FROM store_cart_lines
		WHERE lower(username) = lower($1)
		ORDER BY added_at, id
	`, username)
	if err != nil {
		return nil, err
	}

	lines := make([]cart.Line, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, cart.Line{
			Username:  row.Username,
			ProductID: row.ProductID,
			Name:      row.Name,
			Price:     row.Price,
			AddedAt:   row.AddedAt.UTC(),
		})
	}
	return lines, nil
}

func (s *Store) AddLine(ctx context.Context, line cart.Line) (cart.Line, error) {
	if line.AddedAt.IsZero() {
		line.AddedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_cart_lines (username, product_id, name, price, added_at)
		VALUES ($1, $2, $3, $4, $5)
	`, line.Username, line.ProductID, line.Name, line.Price, line.AddedAt)
	if err != nil {
		return cart.Line{}, err
	}
	return line, nil
}

func (s *Store) RemoveLine(ctx context.Context, username, productID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM store_cart_lines
		WHERE lower(username) = lower($1) AND product_id = $2
	`, username, productID)
	return err
}

func (s *Store) Clear(ctx context.Context, username string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM store_cart_lines WHERE lower(username) = lower($1)
	`, username)
	return err
}

// --- CheckoutStore ----------------------------------------------------------

// CommitPurchase runs the balance debit, ledger append and cart clear inside
// one database transaction. Either both tables change or neither does.
func (s *Store) CommitPurchase(ctx context.Context, username string, newBalance int64, entry account.TransactionRecord) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.updateBalanceAndLog(ctx, tx, username, newBalance, entry); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM store_cart_lines WHERE lower(username) = lower($1)
	`, username); err != nil {
		return err
	}

	return tx.Commit()
}

// Helpers --------------------------------------------------------------------

func rowToAccount(row accountRow) (account.Account, error) {
	acct := account.Account{
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		Balance:      row.Balance,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if len(row.Transactions) > 0 {
		if err := json.Unmarshal(row.Transactions, &acct.Transactions); err != nil {
			return account.Account{}, err
		}
	}
	return acct, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
