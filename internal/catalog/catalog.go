// Package catalog holds the read-only product snapshot supplied to a
// single resolution call. The engine never owns or mutates catalog data.
package catalog

import (
	"fmt"
	"strings"
)

// Variant is one purchasable variation of a product.
type Variant struct {
	ID      string            `json:"id"`
	Options map[string]string `json:"options,omitempty"` // e.g. size: "M", color: "red"
	Price   float64           `json:"price"`
	InStock bool              `json:"in_stock"`
	SKU     string            `json:"sku,omitempty"`
}

// Product is a catalog entry with its variants.
type Product struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Variants []Variant `json:"variants"`
}

// Snapshot is the catalog state at the moment a message is resolved.
type Snapshot []Product

// Find returns the product with the given id.
func (s Snapshot) Find(productID string) (Product, bool) {
	for _, p := range s {
		if p.ID == productID {
			return p, true
		}
	}
	return Product{}, false
}

// FindVariant returns the variant with the given id on p.
func (p Product) FindVariant(variantID string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == variantID {
			return v, true
		}
	}
	return Variant{}, false
}

// FirstInStock returns the first in-stock variant of p.
func (p Product) FirstInStock() (Variant, bool) {
	for _, v := range p.Variants {
		if v.InStock {
			return v, true
		}
	}
	return Variant{}, false
}

// RenderText flattens the snapshot into prompt text for the AI backend.
func (s Snapshot) RenderText() string {
	if len(s) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Products:\n")
	for _, p := range s {
		fmt.Fprintf(&b, "- %s (id %s)\n", p.Title, p.ID)
		for _, v := range p.Variants {
			stock := "in stock"
			if !v.InStock {
				stock = "out of stock"
			}
			fmt.Fprintf(&b, "  - variant %s: %s, %.2f, %s\n", v.ID, renderOptions(v.Options), v.Price, stock)
		}
	}
	return b.String()
}

func renderOptions(opts map[string]string) string {
	if len(opts) == 0 {
		return "default"
	}
	parts := make([]string, 0, len(opts))
	for _, k := range []string{"size", "color"} {
		if v, ok := opts[k]; ok {
			parts = append(parts, k+"="+v)
		}
	}
	for k, v := range opts {
		if k != "size" && k != "color" {
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, " ")
}
