// Package orders turns model output and user messages into cart
// mutations. All catalog lookups run against the snapshot supplied per
// call; a failed extraction never blocks the reply that triggered it.
package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/shopchat/internal/catalog"
	"github.com/nextlevelbuilder/shopchat/internal/providers"
	"github.com/nextlevelbuilder/shopchat/internal/store"
)

// Extractor applies order intent found in a resolved turn to the
// customer's pending order.
type Extractor struct {
	orders store.OrderStore
	ai     providers.Backend
	logger *slog.Logger
}

// NewExtractor creates an Extractor. ai may be nil, which disables the
// unstructured analysis path.
func NewExtractor(orders store.OrderStore, ai providers.Backend, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{orders: orders, ai: ai, logger: logger}
}

// Apply extracts order intent from modelOutput (structured action block
// first, then AI analysis, then free-text keywords) and mutates the
// customer's pending order. Individual command failures are logged and
// skipped so one bad line does not discard the rest.
func (e *Extractor) Apply(ctx context.Context, bc *store.BusinessContext, customerID, userMessage, modelOutput string) {
	businessID := bc.Business.ID
	log := e.logger.With("business", businessID, "customer", customerID)

	cmds, errs, found := ParseActions(modelOutput)
	for _, err := range errs {
		log.Warn("order action skipped", "error", err)
	}
	if found {
		e.applyCommands(ctx, log, bc, customerID, userMessage, cmds)
		return
	}

	if e.ai != nil {
		if cmds, ok := e.analyzeIntent(ctx, log, bc, userMessage); ok {
			e.applyCommands(ctx, log, bc, customerID, userMessage, cmds)
			return
		}
	}

	for _, item := range FreeTextMatch(userMessage, bc.Catalog) {
		if err := e.orders.AddItem(ctx, businessID, customerID, item); err != nil {
			log.Warn("free-text add failed", "product", item.ProductID, "error", err)
		}
	}
}

func (e *Extractor) applyCommands(ctx context.Context, log *slog.Logger, bc *store.BusinessContext, customerID, userMessage string, cmds []Command) {
	businessID := bc.Business.ID
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case AddProduct:
			item, err := resolveItem(bc.Catalog, c, userMessage)
			if err != nil {
				log.Warn("add product skipped", "product", c.ProductID, "variant", c.VariantID, "error", err)
				continue
			}
			if err := e.orders.AddItem(ctx, businessID, customerID, item); err != nil {
				log.Warn("add item failed", "product", item.ProductID, "error", err)
			}
		case UpdateInfo:
			info := store.CustomerInfo{
				Name:    c.Name,
				Phone:   NormalizePhone(c.Phone, bc.Business.CountryCode),
				Address: c.Address,
			}
			if err := e.orders.UpdateCustomerInfo(ctx, businessID, customerID, info); err != nil {
				log.Warn("update info failed", "error", err)
			}
		case ConfirmOrder:
			if err := e.orders.Confirm(ctx, businessID, customerID); err != nil {
				log.Warn("confirm rejected", "error", err)
			}
		case CancelOrder:
			if err := e.orders.Cancel(ctx, businessID, customerID); err != nil {
				log.Warn("cancel rejected", "error", err)
			}
		}
	}
}

// resolveItem validates an AddProduct against the snapshot. Product id
// doubling as variant id (a common model slip) resolves to the first
// in-stock variant; an unknown variant id is inferred from size/color
// keywords in the user message.
func resolveItem(snap catalog.Snapshot, c AddProduct, userMessage string) (store.OrderItem, error) {
	p, ok := snap.Find(c.ProductID)
	if !ok {
		p, ok = matchProductByTitle(userMessage, snap)
		if !ok {
			return store.OrderItem{}, fmt.Errorf("product %q not in catalog", c.ProductID)
		}
	}

	var v catalog.Variant
	switch {
	case c.VariantID == "" || c.VariantID == c.ProductID:
		v, ok = InferVariant(p, userMessage)
	default:
		v, ok = p.FindVariant(c.VariantID)
		if !ok {
			v, ok = InferVariant(p, userMessage)
		}
	}
	if !ok {
		return store.OrderItem{}, fmt.Errorf("product %q has no in-stock variant", p.ID)
	}

	qty := c.Quantity
	if qty < 1 {
		qty = 1
	}
	return store.OrderItem{
		ProductID: p.ID,
		VariantID: v.ID,
		Quantity:  qty,
		UnitPrice: v.Price,
	}, nil
}

type intentResult struct {
	Products []struct {
		ProductID string `json:"productId"`
		VariantID string `json:"variantId"`
		Quantity  int    `json:"quantity"`
	} `json:"products"`
	CustomerInfo struct {
		Name    string `json:"name"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	} `json:"customerInfo"`
	OrderAction string `json:"orderAction"`
}

// analyzeIntent asks the backend for a structured read of the user
// message and converts the result into commands. A parse failure simply
// disables this path for the turn.
func (e *Extractor) analyzeIntent(ctx context.Context, log *slog.Logger, bc *store.BusinessContext, userMessage string) ([]Command, bool) {
	prompt := fmt.Sprintf(`Given this product catalog:
%s
And this customer message:
%q
Return JSON with keys "products" (array of {productId, variantId, quantity}),
"customerInfo" ({name, phone, address}) and "orderAction" ("confirm", "cancel" or "").
Only include products the customer clearly wants to buy.`, bc.Catalog.RenderText(), userMessage)

	raw, err := e.ai.AnalyzeIntent(ctx, prompt)
	if err != nil {
		log.Warn("intent analysis failed", "error", err)
		return nil, false
	}
	var res intentResult
	if err := json.Unmarshal(raw, &res); err != nil {
		log.Warn("intent analysis unparsable", "error", err)
		return nil, false
	}

	var cmds []Command
	for _, p := range res.Products {
		if p.ProductID == "" {
			continue
		}
		cmds = append(cmds, AddProduct{ProductID: p.ProductID, VariantID: p.VariantID, Quantity: p.Quantity})
	}
	if res.CustomerInfo.Name != "" || res.CustomerInfo.Phone != "" || res.CustomerInfo.Address != "" {
		cmds = append(cmds, UpdateInfo{
			Name:    res.CustomerInfo.Name,
			Phone:   res.CustomerInfo.Phone,
			Address: res.CustomerInfo.Address,
		})
	}
	switch strings.ToLower(strings.TrimSpace(res.OrderAction)) {
	case "confirm":
		cmds = append(cmds, ConfirmOrder{})
	case "cancel":
		cmds = append(cmds, CancelOrder{})
	}

	if len(cmds) == 0 {
		return nil, false
	}
	return cmds, true
}
