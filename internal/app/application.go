package app

import (
	"context"

	catalogdomain "github.com/nexcart/storefront/internal/app/domain/catalog"
	"github.com/nexcart/storefront/internal/app/services/accounts"
	cartsvc "github.com/nexcart/storefront/internal/app/services/cart"
	catalogsvc "github.com/nexcart/storefront/internal/app/services/catalog"
	checkoutsvc "github.com/nexcart/storefront/internal/app/services/checkout"
	"github.com/nexcart/storefront/internal/app/storage"
	"github.com/nexcart/storefront/internal/app/storage/memory"
	"github.com/nexcart/storefront/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Accounts storage.AccountStore
	Carts    storage.CartStore
	Checkout storage.CheckoutStore
}

// Options carries the non-store dependencies.
type Options struct {
	CatalogFetcher catalogsvc.Fetcher
	CatalogCache   catalogsvc.Cache
}

// Application ties the domain services together.
type Application struct {
	log *logger.Logger

	Accounts *accounts.Service
	Cart     *cartsvc.Service
	Checkout *checkoutsvc.Service
	Catalog  *catalogsvc.Service
}

// checkoutStore assembles the persistence surface checkout requires from the
// individually configured stores.
type checkoutStore struct {
	storage.AccountStore
	storage.CartStore
	storage.CheckoutStore
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) *Application {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Accounts == nil {
		stores.Accounts = mem
	}
	if stores.Carts == nil {
		stores.Carts = mem
	}
	if stores.Checkout == nil {
		stores.Checkout = mem
	}
	if opts.CatalogFetcher == nil {
		opts.CatalogFetcher = catalogsvc.FetcherFunc(func(ctx context.Context) ([]catalogdomain.Product, error) {
			return nil, nil
		})
	}

	return &Application{
		log:      log,
		Accounts: accounts.New(stores.Accounts, log),
		Cart:     cartsvc.New(stores.Accounts, stores.Carts, log),
		Checkout: checkoutsvc.New(checkoutStore{stores.Accounts, stores.Carts, stores.Checkout}, log),
		Catalog:  catalogsvc.New(opts.CatalogFetcher, opts.CatalogCache, log),
	}
}
