package cart

import (
	"context"
	"strings"

	"github.com/nexcart/storefront/internal/app/domain/cart"
	"github.com/nexcart/storefront/internal/app/storage"
	apperrors "github.com/nexcart/storefront/internal/errors"
	"github.com/nexcart/storefront/pkg/logger"
)

// Service manages pending cart lines for authenticated users.
type Service struct {
	accounts storage.AccountStore
	store    storage.CartStore
	log      *logger.Logger
}

// New constructs a cart service.
func New(accounts storage.AccountStore, store storage.CartStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("cart")
	}
	return &Service{accounts: accounts, store: store, log: log}
}

// Add records a new line for the user. The price is captured here, server
// side, and is what checkout will charge.
func (s *Service) Add(ctx context.Context, username string, line cart.Line) (cart.Line, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return cart.Line{}, apperrors.InvalidRequest("Missing username")
	}
	if strings.TrimSpace(line.ProductID) == "" || strings.TrimSpace(line.Name) == "" {
		return cart.Line{}, apperrors.InvalidRequest("Missing data")
	}
	if line.Price < 0 {
		return cart.Line{}, apperrors.InvalidRequest("Price must be non-negative")
	}

	if _, err := s.accounts.GetAccount(ctx, username); err != nil {
		return cart.Line{}, err
	}

	line.Username = username
	added, err := s.store.AddLine(ctx, line)
	if err != nil {
		return cart.Line{}, err
	}

	s.log.WithField("username", username).
		WithField("product_id", added.ProductID).
		Debug("cart line added")
	return added, nil
}

// Lines returns the user's pending cart lines in insertion order.
func (s *Service) Lines(ctx context.Context, username string) ([]cart.Line, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperrors.InvalidRequest("Missing username")
	}
	return s.store.GetLines(ctx, username)
}

// Remove deletes all lines matching the product id from the user's cart.
func (s *Service) Remove(ctx context.Context, username, productID string) error {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(productID) == "" {
		return apperrors.InvalidRequest("Missing data")
	}
	return s.store.RemoveLine(ctx, username, productID)
}
