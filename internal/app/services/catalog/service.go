// Package catalog serves the product listing backed by the upstream
// analytics feed, with a short-lived cache in front of it.
package catalog

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/nexcart/storefront/internal/app/domain/catalog"
	"github.com/nexcart/storefront/internal/app/metrics"
	apperrors "github.com/nexcart/storefront/internal/errors"
	"github.com/nexcart/storefront/pkg/logger"
)

const cacheKey = "catalog:products"

// Cache stores the parsed product list between feed fetches. Implemented by
// RedisCache; a nil cache disables caching entirely.
type Cache interface {
	Get(ctx context.Context) ([]catalog.Product, bool)
	Set(ctx context.Context, products []catalog.Product)
}

// RedisCache keeps the product list in Redis so that multiple instances
// share one feed fetch per TTL window.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisCache wraps the given client. A zero ttl defaults to five minutes.
func NewRedisCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = logger.NewDefault("catalog-cache")
	}
	return &RedisCache{client: client, ttl: ttl, log: log}
}

func (c *RedisCache) Get(ctx context.Context) ([]catalog.Product, bool) {
	raw, err := c.client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Warn("cache read failed")
		}
		return nil, false
	}
	var products []catalog.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		c.log.WithError(err).Warn("cache entry corrupt, ignoring")
		return nil, false
	}
	return products, true
}

func (c *RedisCache) Set(ctx context.Context, products []catalog.Product) {
	raw, err := json.Marshal(products)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey, raw, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("cache write failed")
	}
}

// Service answers product queries from the feed, via the cache when warm.
type Service struct {
	fetcher Fetcher
	cache   Cache
	log     *logger.Logger

	mu   sync.Mutex
	last []catalog.Product // stale fallback when the upstream is down
}

// New constructs a catalog service. cache may be nil.
func New(fetcher Fetcher, cache Cache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{fetcher: fetcher, cache: cache, log: log}
}

// Search returns products whose name or type contains the query,
// case-insensitive. An empty query returns the full listing. Results are
// ordered by descending score so the most in-demand items surface first.
func (s *Service) Search(ctx context.Context, query string) ([]catalog.Product, error) {
	products, err := s.products(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	matched := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if query == "" ||
			strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strings.ToLower(p.Type), query) {
			matched = append(matched, p)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Score > matched[j].Score
	})
	return matched, nil
}

// Get returns the product with the given id.
func (s *Service) Get(ctx context.Context, id string) (catalog.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return catalog.Product{}, apperrors.InvalidRequest("product id is required")
	}

	products, err := s.products(ctx)
	if err != nil {
		return catalog.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return catalog.Product{}, apperrors.NotFound("Product not found")
}

// products returns the current listing: cache first, then the feed. When the
// feed is unreachable the last successful fetch is served instead; only a
// cold start with a dead upstream surfaces an error.
func (s *Service) products(ctx context.Context) ([]catalog.Product, error) {
	if s.cache != nil {
		if products, ok := s.cache.Get(ctx); ok {
			metrics.CatalogFetch("cache_hit")
			return products, nil
		}
	}

	products, err := s.fetcher.Fetch(ctx)
	if err != nil {
		metrics.CatalogFetch("error")
		s.mu.Lock()
		last := s.last
		s.mu.Unlock()
		if last != nil {
			s.log.WithError(err).Warn("feed unavailable, serving stale listing")
			return last, nil
		}
		s.log.WithError(err).Error("feed unavailable and no stale listing")
		return nil, apperrors.Upstream("Catalog temporarily unavailable", err)
	}
	metrics.CatalogFetch("success")

	s.mu.Lock()
	s.last = products
	s.mu.Unlock()
	if s.cache != nil {
		s.cache.Set(ctx, products)
	}
	return products, nil
}
