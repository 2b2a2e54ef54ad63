package pricing

import "context"

// MaxQuantityResolver resolves the maximum order quantity for a product.
// It stands in for the optional quantity-rules plugin: implementations may be
// absent entirely, and a failing or zero result means "no cap configured".
type MaxQuantityResolver interface {
	MaxOrderQuantity(ctx context.Context, productID int64) (int, error)
}
