package coupon

import (
	"errors"
	"testing"
	"time"

	"github.com/fikri-aswan/coupon-api/internal/pricing"
)

func fixedClock() time.Time { return evalDate }

func newTestService() *Service {
	return &Service{Store: NewStore(), Now: fixedClock}
}

func TestCreateNormalisesCode(t *testing.T) {
	svc := newTestService()
	created, err := svc.Create(Coupon{Code: "  welcome10 ", Kind: KindPercentage, Value: 10, ExpiresAt: date(2030, 1, 1)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Code != "WELCOME10" {
		t.Fatalf("expected upper-cased code, got %q", created.Code)
	}
	if created.ID != 1 {
		t.Fatalf("expected id 1, got %d", created.ID)
	}
	if !created.CreatedAt.Equal(evalDate) {
		t.Fatalf("expected creation stamp from injected clock, got %v", created.CreatedAt)
	}
}

func TestCreateAllowsDuplicateCodes(t *testing.T) {
	svc := newTestService()
	if _, err := svc.Create(Coupon{Code: "SALE", Kind: KindFlat, Value: 5, ExpiresAt: date(2030, 1, 1)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := svc.Create(Coupon{Code: "SALE", Kind: KindFlat, Value: 10, ExpiresAt: date(2030, 1, 1)})
	if err != nil {
		t.Fatalf("expected duplicate code accepted, got %v", err)
	}
	if second.ID != 2 {
		t.Fatalf("expected second id, got %d", second.ID)
	}
}

func TestCreateRejectsInvalidDefinitions(t *testing.T) {
	svc := newTestService()
	cases := []Coupon{
		{Code: "", Kind: KindFlat, Value: 5, ExpiresAt: date(2030, 1, 1)},
		{Code: "X", Kind: "half-price", Value: 5, ExpiresAt: date(2030, 1, 1)},
		{Code: "X", Kind: KindFlat, Value: -1, ExpiresAt: date(2030, 1, 1)},
		{Code: "X", Kind: KindPercentage, Value: 101, ExpiresAt: date(2030, 1, 1)},
		{Code: "X", Kind: KindFlat, Value: 5, MinCartValue: -1, ExpiresAt: date(2030, 1, 1)},
		{Code: "X", Kind: KindFlat, Value: 5, MaxDiscount: money(-1), ExpiresAt: date(2030, 1, 1)},
		{Code: "X", Kind: KindFlat, Value: 5},
	}
	for i, c := range cases {
		if _, err := svc.Create(c); !errors.Is(err, ErrInvalidDefinition) {
			t.Fatalf("case %d: expected ErrInvalidDefinition, got %v", i, err)
		}
	}
}

func TestCreateRejectsExpiryBeforeStart(t *testing.T) {
	svc := newTestService()
	start := date(2030, 6, 1)
	_, err := svc.Create(Coupon{Code: "X", Kind: KindFlat, Value: 5, StartsAt: &start, ExpiresAt: date(2030, 1, 1)})
	if !errors.Is(err, ErrInvalidDefinition) {
		t.Fatalf("expected ErrInvalidDefinition, got %v", err)
	}
}

func TestGetReturnsNotFound(t *testing.T) {
	svc := newTestService()
	if _, err := svc.Get(5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBestForPicksWinner(t *testing.T) {
	svc := newTestService()
	mustCreate(t, svc, Coupon{Code: "TEN", Kind: KindPercentage, Value: 10, ExpiresAt: date(2030, 1, 1)})
	mustCreate(t, svc, Coupon{Code: "BIG", Kind: KindFlat, Value: 50, MinCartValue: 500, ExpiresAt: date(2030, 1, 1)})

	cart := Cart{Items: []pricing.Item{{ProductID: "p1", Qty: 2, UnitPrice: 100}}}
	result, err := svc.BestFor(User{ID: "u1"}, cart)
	if err != nil {
		t.Fatalf("best: %v", err)
	}
	if result.Coupon == nil || result.Coupon.Code != "TEN" {
		t.Fatalf("expected TEN to win, got %+v", result.Coupon)
	}
	if result.Discount != 20 {
		t.Fatalf("expected discount 20, got %d", result.Discount)
	}
}

func TestBestForNoneApplicable(t *testing.T) {
	svc := newTestService()
	mustCreate(t, svc, Coupon{Code: "BIG", Kind: KindFlat, Value: 50, MinCartValue: 500, ExpiresAt: date(2030, 1, 1)})

	result, err := svc.BestFor(User{ID: "u1"}, Cart{Items: []pricing.Item{{Qty: 1, UnitPrice: 80}}})
	if err != nil {
		t.Fatalf("best: %v", err)
	}
	if result.Coupon != nil {
		t.Fatalf("expected no coupon, got %+v", result.Coupon)
	}
	if result.Discount != 0 {
		t.Fatalf("expected zero discount, got %d", result.Discount)
	}
}

func TestBestForConsumesPerUserAllowance(t *testing.T) {
	svc := newTestService()
	limit := int32(1)
	mustCreate(t, svc, Coupon{Code: "ONCE", Kind: KindFlat, Value: 30, PerUserLimit: &limit, ExpiresAt: date(2030, 1, 1)})

	cart := Cart{Items: []pricing.Item{{Qty: 1, UnitPrice: 100}}}
	first, err := svc.BestFor(User{ID: "u1"}, cart)
	if err != nil {
		t.Fatalf("best: %v", err)
	}
	if first.Coupon == nil || first.Coupon.Code != "ONCE" {
		t.Fatalf("expected ONCE selected, got %+v", first.Coupon)
	}

	second, err := svc.BestFor(User{ID: "u1"}, cart)
	if err != nil {
		t.Fatalf("best: %v", err)
	}
	if second.Coupon != nil {
		t.Fatalf("expected allowance exhausted for u1, got %+v", second.Coupon)
	}

	other, err := svc.BestFor(User{ID: "u2"}, cart)
	if err != nil {
		t.Fatalf("best: %v", err)
	}
	if other.Coupon == nil {
		t.Fatal("expected allowance tracked per user")
	}
}

func TestBestForCountsUsageOnlyUnderLimit(t *testing.T) {
	svc := newTestService()
	unlimited := mustCreate(t, svc, Coupon{Code: "OPEN", Kind: KindFlat, Value: 30, ExpiresAt: date(2030, 1, 1)})

	cart := Cart{Items: []pricing.Item{{Qty: 1, UnitPrice: 100}}}
	if _, err := svc.BestFor(User{ID: "u1"}, cart); err != nil {
		t.Fatalf("best: %v", err)
	}
	if got := svc.Store.UsageCount("u1", unlimited.ID); got != 0 {
		t.Fatalf("expected no usage recorded without a limit, got %d", got)
	}

	svc.DefaultPerUserLimit = 5
	if _, err := svc.BestFor(User{ID: "u1"}, cart); err != nil {
		t.Fatalf("best: %v", err)
	}
	if got := svc.Store.UsageCount("u1", unlimited.ID); got != 1 {
		t.Fatalf("expected usage recorded under the default limit, got %d", got)
	}
}

func mustCreate(t *testing.T, svc *Service, c Coupon) Coupon {
	t.Helper()
	created, err := svc.Create(c)
	if err != nil {
		t.Fatalf("create %s: %v", c.Code, err)
	}
	return created
}
