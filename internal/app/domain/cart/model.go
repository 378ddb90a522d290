package cart

import "time"

// Line is one pending item in a user's cart. Price is captured server-side
// when the line is added and is the only price checkout will ever use.
type Line struct {
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Username  string    `json:"-"`
	AddedAt   time.Time `json:"added_at"`
}

// Total sums the prices of the given lines. An empty cart totals zero.
func Total(lines []Line) int64 {
	var total int64
	for _, line := range lines {
		total += line.Price
	}
	return total
}
