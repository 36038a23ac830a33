// internal/models/product.go
package models

// Product is a catalog entry. Cost and SellingRate are per piece, Coverage
// is pieces per square foot.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Cost        float64  `json:"cost"`
	SellingRate float64  `json:"selling_rate"`
	Coverage    float64  `json:"coverage,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}
