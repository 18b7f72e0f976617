package coupon

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Store keeps coupons and per-user usage counters in memory for the process
// lifetime. IDs are assigned monotonically, so a smaller id always means an
// earlier creation. A coupon handed out by the store is a copy: callers can
// never mutate what the engine later evaluates.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]Coupon
	usage  map[usageKey]int32
}

type usageKey struct {
	userID   string
	couponID int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		byID:  make(map[int64]Coupon),
		usage: make(map[usageKey]int32),
	}
}

// Add assigns the next id and stores the coupon, returning the stored copy.
func (s *Store) Add(c Coupon) Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c.ID = s.nextID
	s.byID[c.ID] = c
	return c
}

// Get returns the coupon with the given id.
func (s *Store) Get(id int64) (Coupon, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	return c, ok
}

// List returns a copy of all coupons ordered by id.
func (s *Store) List() []Coupon {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Coupon, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len reports the number of stored coupons.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// IncrementUsage records one redemption of the coupon by the user.
func (s *Store) IncrementUsage(userID string, couponID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[usageKey{userID: userID, couponID: couponID}]++
}

// UsageCount returns how often the user has redeemed the coupon.
func (s *Store) UsageCount(userID string, couponID int64) int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage[usageKey{userID: userID, couponID: couponID}]
}

// UsageByUser returns the user's redemption counts keyed by coupon id.
func (s *Store) UsageByUser(userID string) map[int64]int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]int32)
	for key, count := range s.usage {
		if key.userID == userID {
			out[key.couponID] = count
		}
	}
	return out
}

// Ping lets the store serve as a readiness probe target.
func (s *Store) Ping(_ context.Context) error {
	if s == nil {
		return errors.New("coupon store not initialised")
	}
	return nil
}
