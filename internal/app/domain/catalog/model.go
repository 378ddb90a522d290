package catalog

// Product is one item from the upstream analytics feed. The feed is treated
// as opaque; only the fields the storefront renders are kept.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    int64   `json:"price"`
	ImageURL string  `json:"image_url,omitempty"`
	Type     string  `json:"type,omitempty"`
	Score    float64 `json:"score,omitempty"`
}
