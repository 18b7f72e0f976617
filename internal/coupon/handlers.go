package coupon

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/fikri-aswan/coupon-api/internal/common"
	"github.com/fikri-aswan/coupon-api/internal/obs"
	"github.com/fikri-aswan/coupon-api/internal/pricing"
)

// Handler exposes coupon management and selection endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type couponPayload struct {
	Code                 string         `json:"code" validate:"required"`
	Description          string         `json:"description"`
	DiscountType         string         `json:"discountType" validate:"required"`
	DiscountValue        pricing.Money  `json:"discountValue" validate:"gte=0"`
	MaxDiscountCap       *pricing.Money `json:"maxDiscountCap" validate:"omitempty,gte=0"`
	MinCartValue         pricing.Money  `json:"minCartValue" validate:"gte=0"`
	StartDate            *time.Time     `json:"startDate"`
	ExpiryDate           time.Time      `json:"expiryDate" validate:"required"`
	EligibleUserSegments []string       `json:"eligibleUserSegments"`
	AllowedCountries     []string       `json:"allowedCountries"`
	ApplicableCategories []string       `json:"applicableCategories"`
	ExcludedCategories   []string       `json:"excludedCategories"`
	MinItemsCount        int            `json:"minItemsCount" validate:"gte=0"`
	UsageLimitPerUser    *int32         `json:"usageLimitPerUser" validate:"omitempty,gte=1"`
	FirstOrderOnly       bool           `json:"firstOrderOnly"`
	MinOrdersPlaced      *int32         `json:"minOrdersPlaced" validate:"omitempty,gte=0"`
	MinLifetimeSpend     *pricing.Money `json:"minLifetimeSpend" validate:"omitempty,gte=0"`
}

type bestCouponRequest struct {
	User userPayload `json:"user" validate:"required"`
	Cart cartPayload `json:"cart" validate:"required"`
}

type userPayload struct {
	ID            string        `json:"id" validate:"required"`
	Segments      []string      `json:"segments"`
	Country       string        `json:"country"`
	LifetimeSpend pricing.Money `json:"lifetimeSpend" validate:"gte=0"`
	OrdersPlaced  int32         `json:"ordersPlaced" validate:"gte=0"`
}

type cartPayload struct {
	Items []cartItemPayload `json:"items" validate:"dive"`
}

type cartItemPayload struct {
	ProductID string        `json:"productId"`
	Category  string        `json:"category"`
	UnitPrice pricing.Money `json:"unitPrice" validate:"gte=0"`
	Quantity  int           `json:"quantity" validate:"gte=0"`
}

type bestCouponResponse struct {
	Coupon   *Coupon       `json:"coupon"`
	Discount pricing.Money `json:"discount"`
}

// Create stores a new coupon definition.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	var payload couponPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", common.ValidationDetails(err))
		return
	}
	created, err := h.Svc.Create(toModel(payload))
	if err != nil {
		if errors.Is(err, ErrInvalidDefinition) {
			if obs.CouponCreateTotal != nil {
				obs.CouponCreateTotal.WithLabelValues("invalid").Inc()
			}
			common.JSONError(w, http.StatusBadRequest, "INVALID_COUPON", err.Error(), nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create coupon", nil)
		return
	}
	if obs.CouponCreateTotal != nil {
		obs.CouponCreateTotal.WithLabelValues("created").Inc()
	}
	if obs.CouponsStored != nil && h.Svc.Store != nil {
		obs.CouponsStored.Set(float64(h.Svc.Store.Len()))
	}
	common.Data(w, http.StatusCreated, created)
}

// List returns every stored coupon in creation order.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	coupons := h.Svc.List()
	if coupons == nil {
		coupons = []Coupon{}
	}
	common.Data(w, http.StatusOK, coupons)
}

// Get returns a single coupon by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid coupon id", nil)
		return
	}
	c, err := h.Svc.Get(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load coupon", nil)
		return
	}
	common.Data(w, http.StatusOK, c)
}

// Best evaluates all stored coupons against the posted user and cart and
// returns the winner, or a null coupon when none applies.
func (h *Handler) Best(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	var req bestCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", common.ValidationDetails(err))
		return
	}
	result, err := h.Svc.BestFor(toUser(req.User), toCart(req.Cart))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to evaluate coupons", nil)
		return
	}
	recordSelection(result)
	common.Data(w, http.StatusOK, bestCouponResponse{
		Coupon:   result.Coupon,
		Discount: result.Discount,
	})
}

func (h *Handler) validate(v any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(v)
}

func recordSelection(result Result) {
	if obs.CouponSelectionTotal == nil {
		return
	}
	if result.Coupon == nil {
		obs.CouponSelectionTotal.WithLabelValues("none").Inc()
		return
	}
	obs.CouponSelectionTotal.WithLabelValues("selected").Inc()
	if obs.SelectionDiscount != nil {
		obs.SelectionDiscount.Observe(float64(result.Discount))
	}
}

func toModel(p couponPayload) Coupon {
	return Coupon{
		Code:               p.Code,
		Description:        p.Description,
		Kind:               DiscountKind(strings.ToUpper(strings.TrimSpace(p.DiscountType))),
		Value:              p.DiscountValue,
		MaxDiscount:        p.MaxDiscountCap,
		MinCartValue:       p.MinCartValue,
		StartsAt:           p.StartDate,
		ExpiresAt:          p.ExpiryDate,
		Segments:           p.EligibleUserSegments,
		Countries:          p.AllowedCountries,
		Categories:         p.ApplicableCategories,
		ExcludedCategories: p.ExcludedCategories,
		MinItems:           p.MinItemsCount,
		PerUserLimit:       p.UsageLimitPerUser,
		FirstOrderOnly:     p.FirstOrderOnly,
		MinOrdersPlaced:    p.MinOrdersPlaced,
		MinLifetimeSpend:   p.MinLifetimeSpend,
	}
}

func toUser(p userPayload) User {
	return User{
		ID:            strings.TrimSpace(p.ID),
		Segments:      p.Segments,
		Country:       p.Country,
		LifetimeSpend: p.LifetimeSpend,
		OrdersPlaced:  p.OrdersPlaced,
	}
}

func toCart(p cartPayload) Cart {
	items := make([]pricing.Item, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, pricing.Item{
			ProductID: it.ProductID,
			Category:  it.Category,
			Qty:       it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return Cart{Items: items}
}
