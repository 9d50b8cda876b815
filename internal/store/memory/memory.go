// Package memory provides in-process store implementations for standalone
// mode and tests, mirroring the Postgres-backed stores in store/pg.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/shopchat/internal/store"
)

// NewStores builds a full in-memory store set.
func NewStores() *store.Stores {
	return &store.Stores{
		Business: NewBusinessStore(),
		Orders:   NewOrderStore(),
		Usage:    NewUsageStore(),
		Events:   NewEventStore(),
	}
}

// BusinessStore maps channel refs to seeded business contexts.
type BusinessStore struct {
	mu   sync.RWMutex
	refs map[string]*store.BusinessContext // "{channel}|{ref}" → context
}

func NewBusinessStore() *BusinessStore {
	return &BusinessStore{refs: make(map[string]*store.BusinessContext)}
}

// Seed registers a business context under a channel endpoint ref.
func (s *BusinessStore) Seed(channel, ref string, bc *store.BusinessContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[channel+"|"+ref] = bc
}

func (s *BusinessStore) LookupByChannelRef(_ context.Context, channel, ref string) (*store.BusinessContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if bc, ok := s.refs[channel+"|"+ref]; ok {
		return bc, nil
	}
	return nil, fmt.Errorf("no business for %s endpoint %q", channel, ref)
}

// OrderStore keeps pending orders in a map keyed by business+customer.
type OrderStore struct {
	mu     sync.Mutex
	orders map[string]*store.Order
	closed []*store.Order // confirmed/cancelled, retained for inspection
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]*store.Order)}
}

func orderKey(businessID, customerID string) string {
	return businessID + "|" + customerID
}

func (s *OrderStore) GetActive(_ context.Context, businessID, customerID string) (*store.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderKey(businessID, customerID)]
	if !ok {
		return nil, store.ErrNoOrder
	}
	cp := *o
	cp.Items = append([]store.OrderItem{}, o.Items...)
	return &cp, nil
}

func (s *OrderStore) AddItem(_ context.Context, businessID, customerID string, item store.OrderItem) error {
	if item.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", item.Quantity)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.getOrCreateLocked(businessID, customerID)
	o.Items = append(o.Items, item)
	o.UpdatedAt = time.Now()
	return nil
}

func (s *OrderStore) UpdateCustomerInfo(_ context.Context, businessID, customerID string, info store.CustomerInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.getOrCreateLocked(businessID, customerID)
	if info.Name != "" {
		o.Customer.Name = info.Name
	}
	if info.Phone != "" {
		o.Customer.Phone = info.Phone
	}
	if info.Address != "" {
		o.Customer.Address = info.Address
	}
	o.UpdatedAt = time.Now()
	return nil
}

func (s *OrderStore) Confirm(_ context.Context, businessID, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := orderKey(businessID, customerID)
	o, ok := s.orders[key]
	if !ok {
		return store.ErrNoOrder
	}
	if len(o.Items) == 0 {
		return store.ErrEmptyOrder
	}
	o.FlowStage = store.OrderConfirmed
	o.UpdatedAt = time.Now()
	s.closed = append(s.closed, o)
	delete(s.orders, key)
	return nil
}

func (s *OrderStore) Cancel(_ context.Context, businessID, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := orderKey(businessID, customerID)
	o, ok := s.orders[key]
	if !ok {
		return store.ErrNoOrder
	}
	o.FlowStage = store.OrderCancelled
	o.UpdatedAt = time.Now()
	s.closed = append(s.closed, o)
	delete(s.orders, key)
	return nil
}

// Closed returns confirmed and cancelled orders, oldest first.
func (s *OrderStore) Closed() []*store.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*store.Order{}, s.closed...)
}

func (s *OrderStore) getOrCreateLocked(businessID, customerID string) *store.Order {
	key := orderKey(businessID, customerID)
	if o, ok := s.orders[key]; ok {
		return o
	}
	now := time.Now()
	o := &store.Order{
		ID:         uuid.NewString(),
		BusinessID: businessID,
		CustomerID: customerID,
		FlowStage:  store.OrderPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.orders[key] = o
	return o
}

// UsageStore counts per-business consumption for the current month.
type UsageStore struct {
	mu     sync.Mutex
	counts map[string]int64 // "{businessID}|{kind}|{YYYY-MM}" → amount
}

func NewUsageStore() *UsageStore {
	return &UsageStore{counts: make(map[string]int64)}
}

func usageKey(businessID, kind string, t time.Time) string {
	return fmt.Sprintf("%s|%s|%s", businessID, kind, t.Format("2006-01"))
}

func (s *UsageStore) Track(_ context.Context, businessID, kind string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[usageKey(businessID, kind, time.Now())] += amount
	return nil
}

func (s *UsageStore) MonthUsage(_ context.Context, businessID, kind string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[usageKey(businessID, kind, time.Now())], nil
}

func (s *UsageStore) ResetMonth(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := time.Now().Format("2006-01")
	for k := range s.counts {
		if len(k) < len(current) || k[len(k)-len(current):] != current {
			delete(s.counts, k)
		}
	}
	return nil
}

// EventStore retains recent pipeline events in a ring.
type EventStore struct {
	mu     sync.Mutex
	events []store.Event
	cap    int
}

func NewEventStore() *EventStore {
	return &EventStore{cap: 1000}
}

func (s *EventStore) Record(_ context.Context, ev store.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	s.events = append(s.events, ev)
	if len(s.events) > s.cap {
		s.events = s.events[len(s.events)-s.cap:]
	}
	return nil
}

// Events returns a copy of the retained events, oldest first.
func (s *EventStore) Events() []store.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Event{}, s.events...)
}
