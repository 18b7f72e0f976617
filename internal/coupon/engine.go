package coupon

import (
	"errors"
	"slices"
	"time"

	"github.com/fikri-aswan/coupon-api/internal/pricing"
)

var (
	// ErrNotStarted is returned when the coupon is evaluated before its start date.
	ErrNotStarted = errors.New("coupon not started")
	// ErrExpired is returned when the coupon is evaluated after its expiry date.
	ErrExpired = errors.New("coupon expired")
	// ErrMinCartValueUnmet indicates the cart subtotal did not meet the coupon threshold.
	ErrMinCartValueUnmet = errors.New("cart below minimum value")
	// ErrSegmentMismatch indicates the user belongs to none of the coupon's segments.
	ErrSegmentMismatch = errors.New("user segment not eligible")
	// ErrCountryNotAllowed indicates the user's country is outside the allowed set.
	ErrCountryNotAllowed = errors.New("country not eligible")
	// ErrMinItemsUnmet indicates the cart holds fewer items than required.
	ErrMinItemsUnmet = errors.New("cart below minimum item count")
	// ErrCategoryMismatch indicates no cart item falls in an applicable category.
	ErrCategoryMismatch = errors.New("no applicable category in cart")
	// ErrCategoryExcluded indicates a cart item falls in an excluded category.
	ErrCategoryExcluded = errors.New("excluded category in cart")
	// ErrFirstOrderOnly indicates the coupon is reserved for a user's first order.
	ErrFirstOrderOnly = errors.New("coupon restricted to first order")
	// ErrMinOrdersUnmet indicates the user has placed too few orders.
	ErrMinOrdersUnmet = errors.New("order history requirement not met")
	// ErrMinLifetimeSpendUnmet indicates the user's lifetime spend is too low.
	ErrMinLifetimeSpendUnmet = errors.New("lifetime spend requirement not met")
	// ErrUsageLimitReached indicates the user exhausted the per-user allowance.
	ErrUsageLimitReached = errors.New("per-user usage limit reached")
)

// Context carries every input a rule may inspect. The evaluation instant is
// supplied by the caller so evaluation stays deterministic under test.
type Context struct {
	Now        time.Time
	User       User
	Subtotal   pricing.Money
	ItemCount  int
	Categories []string

	// Usage maps coupon id to the number of times User has already redeemed
	// it. A missing entry means zero.
	Usage map[int64]int32

	// PerUserLimitDefault applies to coupons that carry no explicit per-user
	// limit. Zero means unlimited.
	PerUserLimitDefault int32
}

// Policy captures discount arithmetic choices left to deployment.
type Policy struct {
	// CapAppliesToFlat extends MaxDiscount capping to flat coupons. Percentage
	// coupons are always capped.
	CapAppliesToFlat bool
}

// rule is a named eligibility predicate. New restrictions are added here
// without touching the selection algorithm.
type rule struct {
	name  string
	check func(Coupon, Context) error
}

var rules = []rule{
	{name: "window", check: checkWindow},
	{name: "min_cart_value", check: checkMinCartValue},
	{name: "segments", check: checkSegments},
	{name: "countries", check: checkCountry},
	{name: "min_items", check: checkMinItems},
	{name: "categories", check: checkCategories},
	{name: "order_history", check: checkOrderHistory},
	{name: "usage", check: checkUsage},
}

// Eligible walks the rule set in order and returns the first violation, or
// nil when the coupon may be applied to the given user and cart.
func Eligible(c Coupon, ctx Context) error {
	for _, r := range rules {
		if err := r.check(c, ctx); err != nil {
			return err
		}
	}
	return nil
}

// IsEligible is the boolean form of Eligible.
func IsEligible(c Coupon, ctx Context) bool {
	return Eligible(c, ctx) == nil
}

// day truncates an instant to its UTC calendar date. Validity windows have
// day granularity: a coupon expiring today is usable for the whole day.
func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func checkWindow(c Coupon, ctx Context) error {
	today := day(ctx.Now)
	if c.StartsAt != nil && today.Before(day(*c.StartsAt)) {
		return ErrNotStarted
	}
	if !c.ExpiresAt.IsZero() && today.After(day(c.ExpiresAt)) {
		return ErrExpired
	}
	return nil
}

func checkMinCartValue(c Coupon, ctx Context) error {
	if ctx.Subtotal < c.MinCartValue {
		return ErrMinCartValueUnmet
	}
	return nil
}

// An empty segment set on the coupon is a wildcard, not a failure.
func checkSegments(c Coupon, ctx Context) error {
	if len(c.Segments) == 0 {
		return nil
	}
	for _, s := range ctx.User.Segments {
		if slices.Contains(c.Segments, s) {
			return nil
		}
	}
	return ErrSegmentMismatch
}

func checkCountry(c Coupon, ctx Context) error {
	if len(c.Countries) == 0 {
		return nil
	}
	if slices.Contains(c.Countries, ctx.User.Country) {
		return nil
	}
	return ErrCountryNotAllowed
}

func checkMinItems(c Coupon, ctx Context) error {
	if c.MinItems > 0 && ctx.ItemCount < c.MinItems {
		return ErrMinItemsUnmet
	}
	return nil
}

func checkCategories(c Coupon, ctx Context) error {
	for _, cat := range ctx.Categories {
		if slices.Contains(c.ExcludedCategories, cat) {
			return ErrCategoryExcluded
		}
	}
	if len(c.Categories) == 0 {
		return nil
	}
	for _, cat := range ctx.Categories {
		if slices.Contains(c.Categories, cat) {
			return nil
		}
	}
	return ErrCategoryMismatch
}

func checkOrderHistory(c Coupon, ctx Context) error {
	if c.FirstOrderOnly && ctx.User.OrdersPlaced > 0 {
		return ErrFirstOrderOnly
	}
	if c.MinOrdersPlaced != nil && ctx.User.OrdersPlaced < *c.MinOrdersPlaced {
		return ErrMinOrdersUnmet
	}
	if c.MinLifetimeSpend != nil && ctx.User.LifetimeSpend < *c.MinLifetimeSpend {
		return ErrMinLifetimeSpendUnmet
	}
	return nil
}

func checkUsage(c Coupon, ctx Context) error {
	limit := effectivePerUserLimit(c, ctx.PerUserLimitDefault)
	if limit <= 0 {
		return nil
	}
	if ctx.Usage[c.ID] >= limit {
		return ErrUsageLimitReached
	}
	return nil
}

func effectivePerUserLimit(c Coupon, fallback int32) int32 {
	if c.PerUserLimit != nil && *c.PerUserLimit > 0 {
		return *c.PerUserLimit
	}
	return fallback
}

// Compute determines the effective discount the coupon would grant on the
// given subtotal. The result is capped by MaxDiscount where the policy says
// so and clamped to the subtotal, so the payable amount never goes negative.
func Compute(c Coupon, subtotal pricing.Money, p Policy) pricing.Money {
	var discount pricing.Money
	switch c.Kind {
	case KindPercentage:
		discount = subtotal * c.Value / 100
		if c.MaxDiscount != nil && discount > *c.MaxDiscount {
			discount = *c.MaxDiscount
		}
	case KindFlat:
		discount = c.Value
		if p.CapAppliesToFlat && c.MaxDiscount != nil && discount > *c.MaxDiscount {
			discount = *c.MaxDiscount
		}
	default:
		return 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		return 0
	}
	return discount
}

// Selection pairs a winning coupon with its effective discount.
type Selection struct {
	Coupon   Coupon
	Discount pricing.Money
}

// SelectBest evaluates every candidate and returns the one granting the
// highest effective discount. Ties go to the coupon with the later expiry
// date, then to the smaller id, which makes the outcome independent of input
// order. The second return value is false when no candidate is eligible.
// The input slice is never mutated.
func SelectBest(ctx Context, coupons []Coupon, p Policy) (Selection, bool) {
	var best Selection
	found := false
	for _, c := range coupons {
		if !IsEligible(c, ctx) {
			continue
		}
		cand := Selection{Coupon: c, Discount: Compute(c, ctx.Subtotal, p)}
		if !found || beats(cand, best) {
			best = cand
			found = true
		}
	}
	return best, found
}

// Expiry is compared at day granularity, matching the validity window rules:
// two coupons expiring on the same calendar day tie on expiry regardless of
// clock time, so the smaller id decides.
func beats(a, b Selection) bool {
	if a.Discount != b.Discount {
		return a.Discount > b.Discount
	}
	aDay, bDay := day(a.Coupon.ExpiresAt), day(b.Coupon.ExpiresAt)
	if !aDay.Equal(bDay) {
		return aDay.After(bDay)
	}
	return a.Coupon.ID < b.Coupon.ID
}
