package pricing

// Money represents a monetary value stored in minor units.
type Money = int64

// Item describes a cart line used for coupon evaluation.
type Item struct {
	ProductID string
	Category  string
	Qty       int
	UnitPrice Money
}

// Subtotal calculates the cart value as the sum of line totals.
// Lines with a non-positive quantity are ignored.
func Subtotal(items []Item) Money {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += Money(it.Qty) * it.UnitPrice
	}
	return subtotal
}

// ItemCount returns the total quantity across all lines.
func ItemCount(items []Item) int {
	var count int
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		count += it.Qty
	}
	return count
}

// Categories returns the distinct categories present in the cart.
func Categories(items []Item) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.Qty <= 0 || it.Category == "" {
			continue
		}
		if _, ok := seen[it.Category]; ok {
			continue
		}
		seen[it.Category] = struct{}{}
		out = append(out, it.Category)
	}
	return out
}
