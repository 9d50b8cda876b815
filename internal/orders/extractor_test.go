package orders

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nextlevelbuilder/shopchat/internal/providers"
	"github.com/nextlevelbuilder/shopchat/internal/store"
	"github.com/nextlevelbuilder/shopchat/internal/store/memory"
)

type stubAnalyzer struct {
	raw json.RawMessage
	err error
}

func (s *stubAnalyzer) Complete(context.Context, providers.CompletionRequest) (string, error) {
	return "", errors.New("not implemented")
}

func (s *stubAnalyzer) AnalyzeIntent(context.Context, string) (json.RawMessage, error) {
	return s.raw, s.err
}

func (s *stubAnalyzer) Name() string { return "stub" }

func extractorBusiness() *store.BusinessContext {
	return &store.BusinessContext{
		Business: store.Business{ID: "biz1", CountryCode: "961"},
		Catalog:  testSnapshot(),
	}
}

func TestApply_ActionBlockAccumulatesItems(t *testing.T) {
	orders := memory.NewOrderStore()
	e := NewExtractor(orders, nil, nil)
	bc := extractorBusiness()

	e.Apply(context.Background(), bc, "cust1", "two shirts please", `[ACTIONS]
ADD_PRODUCT: p1, v1, 1
ADD_PRODUCT: p1, v2, 2
[/ACTIONS]`)

	o, err := orders.GetActive(context.Background(), "biz1", "cust1")
	if err != nil {
		t.Fatal(err)
	}
	if len(o.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(o.Items))
	}
	if o.Items[0].VariantID != "v1" || o.Items[1].VariantID != "v2" || o.Items[1].Quantity != 2 {
		t.Errorf("items = %+v", o.Items)
	}
}

func TestApply_ProductIDAsVariantIDInfersFromMessage(t *testing.T) {
	orders := memory.NewOrderStore()
	e := NewExtractor(orders, nil, nil)

	e.Apply(context.Background(), extractorBusiness(), "cust1", "the large blue one", `[ACTIONS]
ADD_PRODUCT: p1, p1
[/ACTIONS]`)

	o, err := orders.GetActive(context.Background(), "biz1", "cust1")
	if err != nil {
		t.Fatal(err)
	}
	if len(o.Items) != 1 || o.Items[0].VariantID != "v2" {
		t.Errorf("items = %+v, want inferred v2", o.Items)
	}
}

func TestApply_ForeignVariantIDInferredFromMessage(t *testing.T) {
	orders := memory.NewOrderStore()
	e := NewExtractor(orders, nil, nil)

	// v9 belongs to p2, not p1; the red keyword in the message picks v1.
	e.Apply(context.Background(), extractorBusiness(), "cust1", "the red one please", `[ACTIONS]
ADD_PRODUCT: p1, v9, 1
[/ACTIONS]`)

	o, err := orders.GetActive(context.Background(), "biz1", "cust1")
	if err != nil {
		t.Fatal(err)
	}
	if len(o.Items) != 1 || o.Items[0].VariantID != "v1" {
		t.Errorf("items = %+v, want inferred v1", o.Items)
	}
}

func TestApply_UnknownProductFallsBackToTitleMatch(t *testing.T) {
	orders := memory.NewOrderStore()
	e := NewExtractor(orders, nil, nil)

	e.Apply(context.Background(), extractorBusiness(), "cust1", "I want the denim jacket", `[ACTIONS]
ADD_PRODUCT: made-up-id
[/ACTIONS]`)

	o, err := orders.GetActive(context.Background(), "biz1", "cust1")
	if err != nil {
		t.Fatal(err)
	}
	if len(o.Items) != 1 || o.Items[0].ProductID != "p2" {
		t.Errorf("items = %+v, want p2 via title match", o.Items)
	}
}

func TestApply_UpdateInfoNormalizesPhone(t *testing.T) {
	orders := memory.NewOrderStore()
	e := NewExtractor(orders, nil, nil)

	e.Apply(context.Background(), extractorBusiness(), "cust1", "", `[ACTIONS]
UPDATE_INFO: name=Sara, phone=070123456, address=Beirut
[/ACTIONS]`)

	o, err := orders.GetActive(context.Background(), "biz1", "cust1")
	if err != nil {
		t.Fatal(err)
	}
	if o.Customer.Phone != "+96170123456" {
		t.Errorf("phone = %q", o.Customer.Phone)
	}
	if o.Customer.Name != "Sara" || o.Customer.Address != "Beirut" {
		t.Errorf("customer = %+v", o.Customer)
	}
}

func TestApply_ConfirmEmptyOrderRejected(t *testing.T) {
	orders := memory.NewOrderStore()
	e := NewExtractor(orders, nil, nil)

	e.Apply(context.Background(), extractorBusiness(), "cust1", "confirm it", `[ACTIONS]
CONFIRM_ORDER: true
[/ACTIONS]`)

	if closed := orders.Closed(); len(closed) != 0 {
		t.Errorf("confirm without items must not close an order, got %+v", closed)
	}

	// An order holding only customer info is still empty.
	e.Apply(context.Background(), extractorBusiness(), "cust1", "", `[ACTIONS]
UPDATE_INFO: name=Sara
CONFIRM_ORDER: true
[/ACTIONS]`)

	if closed := orders.Closed(); len(closed) != 0 {
		t.Errorf("confirm with only customer info must not close an order, got %+v", closed)
	}
	if _, err := orders.GetActive(context.Background(), "biz1", "cust1"); err != nil {
		t.Errorf("pending order should survive the rejected confirm, err = %v", err)
	}
}

func TestApply_ConfirmFlow(t *testing.T) {
	orders := memory.NewOrderStore()
	e := NewExtractor(orders, nil, nil)
	bc := extractorBusiness()

	e.Apply(context.Background(), bc, "cust1", "", "[ACTIONS]\nADD_PRODUCT: p1, v1\n[/ACTIONS]")
	e.Apply(context.Background(), bc, "cust1", "yes confirm", "[ACTIONS]\nCONFIRM_ORDER: true\n[/ACTIONS]")

	if _, err := orders.GetActive(context.Background(), "biz1", "cust1"); !errors.Is(err, store.ErrNoOrder) {
		t.Errorf("pending order should be gone after confirm, err = %v", err)
	}
	closed := orders.Closed()
	if len(closed) != 1 || closed[0].FlowStage != store.OrderConfirmed {
		t.Errorf("closed = %+v", closed)
	}
}

func TestApply_CancelFlow(t *testing.T) {
	orders := memory.NewOrderStore()
	e := NewExtractor(orders, nil, nil)
	bc := extractorBusiness()

	e.Apply(context.Background(), bc, "cust1", "", "[ACTIONS]\nADD_PRODUCT: p2\n[/ACTIONS]")
	e.Apply(context.Background(), bc, "cust1", "", "[ACTIONS]\nCANCEL_ORDER: true\n[/ACTIONS]")

	closed := orders.Closed()
	if len(closed) != 1 || closed[0].FlowStage != store.OrderCancelled {
		t.Errorf("closed = %+v", closed)
	}
}

func TestApply_AnalysisPath(t *testing.T) {
	orders := memory.NewOrderStore()
	ai := &stubAnalyzer{raw: json.RawMessage(`{
		"products": [{"productId": "p1", "variantId": "v1", "quantity": 2}],
		"customerInfo": {"name": "Omar", "phone": "", "address": ""},
		"orderAction": ""
	}`)}
	e := NewExtractor(orders, ai, nil)

	e.Apply(context.Background(), extractorBusiness(), "cust1", "I'd like two of the red shirts", "Sure, noted!")

	o, err := orders.GetActive(context.Background(), "biz1", "cust1")
	if err != nil {
		t.Fatal(err)
	}
	if len(o.Items) != 1 || o.Items[0].Quantity != 2 || o.Customer.Name != "Omar" {
		t.Errorf("order = %+v", o)
	}
}

func TestApply_AnalysisFailureFallsThroughToFreeText(t *testing.T) {
	orders := memory.NewOrderStore()
	ai := &stubAnalyzer{err: errors.New("backend down")}
	e := NewExtractor(orders, ai, nil)

	e.Apply(context.Background(), extractorBusiness(), "cust1", "I want the denim jacket", "Sounds good!")

	o, err := orders.GetActive(context.Background(), "biz1", "cust1")
	if err != nil {
		t.Fatal(err)
	}
	if len(o.Items) != 1 || o.Items[0].ProductID != "p2" {
		t.Errorf("items = %+v, want free-text denim jacket match", o.Items)
	}
}

func TestApply_NoIntentNoMutation(t *testing.T) {
	orders := memory.NewOrderStore()
	e := NewExtractor(orders, nil, nil)

	e.Apply(context.Background(), extractorBusiness(), "cust1", "what are your opening hours?", "We open at 9am.")

	if _, err := orders.GetActive(context.Background(), "biz1", "cust1"); !errors.Is(err, store.ErrNoOrder) {
		t.Errorf("err = %v, want ErrNoOrder", err)
	}
}
