package coupon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fikri-aswan/coupon-api/internal/pricing"
)

// ErrNotFound indicates the requested coupon does not exist.
var ErrNotFound = errors.New("coupon not found")

// ErrInvalidDefinition is returned when a coupon fails its creation
// invariants. Selection assumes stored coupons already satisfy them.
var ErrInvalidDefinition = errors.New("invalid coupon definition")

// Service wires the evaluation engine to the store and owns the clock and
// deployment policy. Selection itself stays a pure function of its inputs.
type Service struct {
	Store               *Store
	Now                 func() time.Time
	Policy              Policy
	DefaultPerUserLimit int32
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create validates the definition, normalises the code and stores the coupon.
func (s *Service) Create(c Coupon) (Coupon, error) {
	if s == nil || s.Store == nil {
		return Coupon{}, errors.New("coupon service not configured")
	}
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	if err := validateDefinition(c); err != nil {
		return Coupon{}, err
	}
	c.CreatedAt = s.now()
	return s.Store.Add(c), nil
}

func validateDefinition(c Coupon) error {
	if c.Code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidDefinition)
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: unknown discount type %q", ErrInvalidDefinition, c.Kind)
	}
	if c.Value < 0 {
		return fmt.Errorf("%w: discount value must not be negative", ErrInvalidDefinition)
	}
	if c.Kind == KindPercentage && c.Value > 100 {
		return fmt.Errorf("%w: percentage must be between 0 and 100", ErrInvalidDefinition)
	}
	if c.MinCartValue < 0 {
		return fmt.Errorf("%w: minimum cart value must not be negative", ErrInvalidDefinition)
	}
	if c.MaxDiscount != nil && *c.MaxDiscount < 0 {
		return fmt.Errorf("%w: discount cap must not be negative", ErrInvalidDefinition)
	}
	if c.ExpiresAt.IsZero() {
		return fmt.Errorf("%w: expiry date is required", ErrInvalidDefinition)
	}
	if c.StartsAt != nil && c.ExpiresAt.Before(*c.StartsAt) {
		return fmt.Errorf("%w: expiry date precedes start date", ErrInvalidDefinition)
	}
	if c.MinItems < 0 {
		return fmt.Errorf("%w: minimum item count must not be negative", ErrInvalidDefinition)
	}
	if c.PerUserLimit != nil && *c.PerUserLimit < 1 {
		return fmt.Errorf("%w: per-user limit must be positive", ErrInvalidDefinition)
	}
	return nil
}

// List returns all stored coupons ordered by creation.
func (s *Service) List() []Coupon {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.List()
}

// Get returns a single coupon by id.
func (s *Service) Get(id int64) (Coupon, error) {
	if s == nil || s.Store == nil {
		return Coupon{}, errors.New("coupon service not configured")
	}
	c, ok := s.Store.Get(id)
	if !ok {
		return Coupon{}, ErrNotFound
	}
	return c, nil
}

// Result is the outcome of a best-coupon evaluation. A nil Coupon is the
// normal "none applicable" branch, not a failure.
type Result struct {
	Coupon   *Coupon
	Discount pricing.Money
}

// BestFor evaluates every stored coupon against the user and cart and
// returns the winner with its effective discount. When the winner carries a
// per-user limit (its own or the deployment default) its usage counter is
// advanced so the allowance runs out per user.
func (s *Service) BestFor(user User, cart Cart) (Result, error) {
	if s == nil || s.Store == nil {
		return Result{}, errors.New("coupon service not configured")
	}
	ctx := Context{
		Now:                 s.now(),
		User:                user,
		Subtotal:            pricing.Subtotal(cart.Items),
		ItemCount:           pricing.ItemCount(cart.Items),
		Categories:          pricing.Categories(cart.Items),
		Usage:               s.Store.UsageByUser(user.ID),
		PerUserLimitDefault: s.DefaultPerUserLimit,
	}
	sel, ok := SelectBest(ctx, s.Store.List(), s.Policy)
	if !ok {
		return Result{}, nil
	}
	if effectivePerUserLimit(sel.Coupon, s.DefaultPerUserLimit) > 0 {
		s.Store.IncrementUsage(user.ID, sel.Coupon.ID)
	}
	winner := sel.Coupon
	return Result{Coupon: &winner, Discount: sel.Discount}, nil
}
