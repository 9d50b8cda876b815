package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/shopchat/internal/store"
)

// PGOrderStore persists orders in Postgres. Items and customer info are
// JSONB columns; one pending order per (business, customer) is enforced by
// a partial unique index.
type PGOrderStore struct {
	db *sql.DB
}

func NewPGOrderStore(db *sql.DB) *PGOrderStore {
	return &PGOrderStore{db: db}
}

func (s *PGOrderStore) GetActive(ctx context.Context, businessID, customerID string) (*store.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, items, customer, created_at, updated_at
		 FROM orders
		 WHERE business_id = $1 AND customer_id = $2 AND flow_stage = $3`,
		businessID, customerID, store.OrderPending,
	)

	o := store.Order{
		BusinessID: businessID,
		CustomerID: customerID,
		FlowStage:  store.OrderPending,
	}
	var itemsRaw, customerRaw []byte
	err := row.Scan(&o.ID, &itemsRaw, &customerRaw, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNoOrder
	}
	if err != nil {
		return nil, fmt.Errorf("get active order: %w", err)
	}
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &o.Items); err != nil {
			return nil, fmt.Errorf("decode order items: %w", err)
		}
	}
	if len(customerRaw) > 0 {
		if err := json.Unmarshal(customerRaw, &o.Customer); err != nil {
			return nil, fmt.Errorf("decode customer info: %w", err)
		}
	}
	return &o, nil
}

func (s *PGOrderStore) AddItem(ctx context.Context, businessID, customerID string, item store.OrderItem) error {
	if item.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", item.Quantity)
	}
	o, err := s.getOrCreate(ctx, businessID, customerID)
	if err != nil {
		return err
	}
	o.Items = append(o.Items, item)
	return s.saveItems(ctx, o)
}

func (s *PGOrderStore) UpdateCustomerInfo(ctx context.Context, businessID, customerID string, info store.CustomerInfo) error {
	o, err := s.getOrCreate(ctx, businessID, customerID)
	if err != nil {
		return err
	}
	if info.Name != "" {
		o.Customer.Name = info.Name
	}
	if info.Phone != "" {
		o.Customer.Phone = info.Phone
	}
	if info.Address != "" {
		o.Customer.Address = info.Address
	}
	customerJSON, _ := json.Marshal(o.Customer)
	_, err = s.db.ExecContext(ctx,
		`UPDATE orders SET customer = $1, updated_at = $2 WHERE id = $3`,
		customerJSON, time.Now(), o.ID,
	)
	if err != nil {
		return fmt.Errorf("update customer info: %w", err)
	}
	return nil
}

func (s *PGOrderStore) Confirm(ctx context.Context, businessID, customerID string) error {
	o, err := s.GetActive(ctx, businessID, customerID)
	if err != nil {
		return err
	}
	if len(o.Items) == 0 {
		return store.ErrEmptyOrder
	}
	return s.close(ctx, o.ID, store.OrderConfirmed)
}

func (s *PGOrderStore) Cancel(ctx context.Context, businessID, customerID string) error {
	o, err := s.GetActive(ctx, businessID, customerID)
	if err != nil {
		return err
	}
	return s.close(ctx, o.ID, store.OrderCancelled)
}

func (s *PGOrderStore) close(ctx context.Context, orderID, stage string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE orders SET flow_stage = $1, updated_at = $2 WHERE id = $3`,
		stage, time.Now(), orderID,
	)
	if err != nil {
		return fmt.Errorf("close order: %w", err)
	}
	return nil
}

func (s *PGOrderStore) getOrCreate(ctx context.Context, businessID, customerID string) (*store.Order, error) {
	o, err := s.GetActive(ctx, businessID, customerID)
	if err == nil {
		return o, nil
	}
	if err != store.ErrNoOrder {
		return nil, err
	}

	now := time.Now()
	o = &store.Order{
		ID:         uuid.Must(uuid.NewV7()).String(),
		BusinessID: businessID,
		CustomerID: customerID,
		FlowStage:  store.OrderPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	itemsJSON, _ := json.Marshal([]store.OrderItem{})
	customerJSON, _ := json.Marshal(store.CustomerInfo{})
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO orders (id, business_id, customer_id, items, customer, flow_stage, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (business_id, customer_id) WHERE flow_stage = 'pending' DO NOTHING`,
		o.ID, businessID, customerID, itemsJSON, customerJSON, store.OrderPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	// Re-read in case a concurrent insert won the conflict.
	return s.GetActive(ctx, businessID, customerID)
}

func (s *PGOrderStore) saveItems(ctx context.Context, o *store.Order) error {
	itemsJSON, _ := json.Marshal(o.Items)
	_, err := s.db.ExecContext(ctx,
		`UPDATE orders SET items = $1, updated_at = $2 WHERE id = $3`,
		itemsJSON, time.Now(), o.ID,
	)
	if err != nil {
		return fmt.Errorf("save order items: %w", err)
	}
	return nil
}
