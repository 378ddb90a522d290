package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/nexcart/storefront/internal/app/domain/catalog"
	"github.com/nexcart/storefront/pkg/logger"
)

// Fetcher retrieves the current product list from the upstream feed.
type Fetcher interface {
	Fetch(ctx context.Context) ([]catalog.Product, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) ([]catalog.Product, error)

func (f FetcherFunc) Fetch(ctx context.Context) ([]catalog.Product, error) {
	if f == nil {
		return nil, nil
	}
	return f(ctx)
}

// HTTPFetcher pulls the analytics feed over HTTP. The feed payload is an
// evolving document, so records are picked out with gjson rather than bound
// to a rigid struct.
type HTTPFetcher struct {
	client *http.Client
	url    string
	token  string
	log    *logger.Logger
}

// NewHTTPFetcher validates the endpoint and returns a fetcher using the
// provided client. A nil client falls back to http.DefaultClient.
func NewHTTPFetcher(client *http.Client, rawURL, token string, log *logger.Logger) (*HTTPFetcher, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logger.NewDefault("catalog-fetcher")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid feed url scheme %q", parsed.Scheme)
	}
	return &HTTPFetcher{client: client, url: rawURL, token: token, log: log}, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context) ([]catalog.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}
	return parseFeed(body), nil
}

// parseFeed extracts product records from the feed document. Records missing
// an id or a name are skipped; prices are reported in the smallest currency
// unit and clamped at zero.
func parseFeed(body []byte) []catalog.Product {
	records := gjson.GetBytes(body, "analytics")
	if !records.Exists() {
		// some deployments serve the record array at the top level
		records = gjson.ParseBytes(body)
	}
	if !records.IsArray() {
		return nil
	}

	var products []catalog.Product
	records.ForEach(func(_, rec gjson.Result) bool {
		id := strings.TrimSpace(rec.Get("id").String())
		name := strings.TrimSpace(rec.Get("product_name").String())
		if name == "" {
			name = strings.TrimSpace(rec.Get("name").String())
		}
		if id == "" || name == "" {
			return true
		}

		price := rec.Get("our_price").Int()
		if price <= 0 {
			price = rec.Get("competitor_price").Int()
		}
		if price < 0 {
			price = 0
		}

		products = append(products, catalog.Product{
			ID:       id,
			Name:     name,
			Price:    price,
			ImageURL: rec.Get("img_url").String(),
			Type:     rec.Get("type").String(),
			Score:    rec.Get("demand_score").Float(),
		})
		return true
	})
	return products
}
