package store

import (
	"context"
	"errors"
	"time"
)

// Order flow stages.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderCancelled = "cancelled"
)

// ErrNoOrder is returned when a sender has no active order.
var ErrNoOrder = errors.New("no active order")

// ErrEmptyOrder is returned when confirming an order with no items.
var ErrEmptyOrder = errors.New("order has no items")

// OrderItem is one catalog variant added to an order.
// Invariant: (ProductID, VariantID) existed in the catalog snapshot at
// insertion time and Quantity > 0.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	VariantID string  `json:"variant_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// CustomerInfo is delivery/contact data collected during the conversation.
type CustomerInfo struct {
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// Order is a per-customer shopping order under construction.
type Order struct {
	ID         string       `json:"id"`
	BusinessID string       `json:"business_id"`
	CustomerID string       `json:"customer_id"`
	Items      []OrderItem  `json:"items"`
	Customer   CustomerInfo `json:"customer"`
	FlowStage  string       `json:"flow_stage"` // OrderPending / OrderConfirmed / OrderCancelled
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// OrderStore owns persisted order state. The engine only decides which
// mutation to request.
type OrderStore interface {
	// GetActive returns the customer's pending order, or ErrNoOrder.
	GetActive(ctx context.Context, businessID, customerID string) (*Order, error)
	// AddItem appends an item to the customer's pending order, creating
	// the order if none exists.
	AddItem(ctx context.Context, businessID, customerID string, item OrderItem) error
	// UpdateCustomerInfo merges non-empty fields into the pending order's
	// customer info, creating the order if none exists.
	UpdateCustomerInfo(ctx context.Context, businessID, customerID string, info CustomerInfo) error
	// Confirm moves the pending order to OrderConfirmed. Returns
	// ErrEmptyOrder when the order has no items, ErrNoOrder when absent.
	Confirm(ctx context.Context, businessID, customerID string) error
	// Cancel moves the pending order to OrderCancelled. Returns ErrNoOrder
	// when absent.
	Cancel(ctx context.Context, businessID, customerID string) error
}
