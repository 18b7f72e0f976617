package coupon

import (
	"time"

	"github.com/fikri-aswan/coupon-api/internal/pricing"
)

// DiscountKind enumerates the supported discount formulas.
type DiscountKind string

const (
	// KindPercentage discounts a percentage (0-100) of the cart subtotal.
	KindPercentage DiscountKind = "PERCENTAGE"
	// KindFlat discounts a fixed amount in minor currency units.
	KindFlat DiscountKind = "FLAT"
)

// Valid reports whether the kind is one of the known variants.
func (k DiscountKind) Valid() bool {
	return k == KindPercentage || k == KindFlat
}

// Coupon is a stored discount offer. Once created it is immutable; the store
// hands out copies only.
type Coupon struct {
	ID          int64        `json:"id"`
	Code        string       `json:"code"`
	Description string       `json:"description,omitempty"`
	Kind        DiscountKind `json:"discountType"`

	// Value is a whole percent (0-100) for percentage coupons and a minor
	// currency amount for flat coupons.
	Value       pricing.Money  `json:"discountValue"`
	MaxDiscount *pricing.Money `json:"maxDiscountCap,omitempty"`

	MinCartValue pricing.Money `json:"minCartValue"`
	StartsAt     *time.Time    `json:"startDate,omitempty"`
	ExpiresAt    time.Time     `json:"expiryDate"`

	Segments           []string `json:"eligibleUserSegments,omitempty"`
	Countries          []string `json:"allowedCountries,omitempty"`
	Categories         []string `json:"applicableCategories,omitempty"`
	ExcludedCategories []string `json:"excludedCategories,omitempty"`

	MinItems         int            `json:"minItemsCount,omitempty"`
	PerUserLimit     *int32         `json:"usageLimitPerUser,omitempty"`
	FirstOrderOnly   bool           `json:"firstOrderOnly,omitempty"`
	MinOrdersPlaced  *int32         `json:"minOrdersPlaced,omitempty"`
	MinLifetimeSpend *pricing.Money `json:"minLifetimeSpend,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// User is the transient profile a selection call evaluates against.
type User struct {
	ID            string
	Segments      []string
	Country       string
	LifetimeSpend pricing.Money
	OrdersPlaced  int32
}

// Cart is the transient order content a selection call evaluates against.
type Cart struct {
	Items []pricing.Item
}
