package orders

import (
	"strings"

	"github.com/nextlevelbuilder/shopchat/internal/catalog"
	"github.com/nextlevelbuilder/shopchat/internal/store"
)

// Buying-intent markers across the three supported languages. A free-text
// match only fires when the message carries one of these, so mentioning a
// product name in passing does not mutate the cart.
var buyKeywords = []string{
	"buy", "order", "want", "need", "take", "get me", "purchase",
	"بدي", "اريد", "أريد", "اشتري", "أشتري", "اطلب", "أطلب", "عايز", "عايزة", "ابغى",
	"baddi", "badi", "bade", "biddi", "bddi", "3ayez", "3ayza", "areed", "ureed", "abgha", "talab",
}

// HasBuyingIntent reports whether the message contains a purchase marker.
func HasBuyingIntent(message string) bool {
	m := strings.ToLower(message)
	for _, kw := range buyKeywords {
		if strings.Contains(m, kw) {
			return true
		}
	}
	return false
}

// FreeTextMatch scans a user message for catalog product titles and
// returns order items (quantity 1) for each hit. It returns nothing when
// the message lacks buying intent.
func FreeTextMatch(message string, snap catalog.Snapshot) []store.OrderItem {
	if !HasBuyingIntent(message) {
		return nil
	}
	m := strings.ToLower(message)

	var items []store.OrderItem
	for _, p := range snap {
		title := strings.ToLower(strings.TrimSpace(p.Title))
		if title == "" || !strings.Contains(m, title) {
			continue
		}
		v, ok := InferVariant(p, message)
		if !ok {
			continue
		}
		items = append(items, store.OrderItem{
			ProductID: p.ID,
			VariantID: v.ID,
			Quantity:  1,
			UnitPrice: v.Price,
		})
	}
	return items
}

func matchProductByTitle(message string, snap catalog.Snapshot) (catalog.Product, bool) {
	m := strings.ToLower(message)
	for _, p := range snap {
		title := strings.ToLower(strings.TrimSpace(p.Title))
		if title != "" && strings.Contains(m, title) {
			return p, true
		}
	}
	return catalog.Product{}, false
}

// Size and color vocabulary used to pick a variant when the model named
// an invalid one. Keys are tokens the customer may type; values are the
// canonical option value to match against.
var sizeKeywords = map[string]string{
	"small": "small", "s": "small", "صغير": "small", "sghir": "small", "zghir": "small",
	"medium": "medium", "m": "medium", "وسط": "medium", "متوسط": "medium", "wasat": "medium",
	"large": "large", "l": "large", "كبير": "large", "kbir": "large",
	"xl": "xl", "xlarge": "xl",
}

var colorKeywords = map[string]string{
	"red": "red", "احمر": "red", "أحمر": "red", "ahmar": "red",
	"blue": "blue", "ازرق": "blue", "أزرق": "blue", "azra2": "blue", "azraq": "blue",
	"black": "black", "اسود": "black", "أسود": "black", "aswad": "black",
	"white": "white", "ابيض": "white", "أبيض": "white", "abyad": "white",
	"green": "green", "اخضر": "green", "أخضر": "green", "akhdar": "green",
	"yellow": "yellow", "اصفر": "yellow", "أصفر": "yellow",
	"pink": "pink", "زهري": "pink", "وردي": "pink",
}

// InferVariant picks an in-stock variant for the product, preferring one
// whose size/color options match keywords in the user message. Falls back
// to the first in-stock variant, and fails only when nothing is in stock.
func InferVariant(p catalog.Product, message string) (catalog.Variant, bool) {
	first, ok := p.FirstInStock()
	if !ok {
		return catalog.Variant{}, false
	}

	wantSize, wantColor := "", ""
	for _, tok := range strings.Fields(strings.ToLower(message)) {
		tok = strings.Trim(tok, ".,!?؟")
		if s, ok := sizeKeywords[tok]; ok && wantSize == "" {
			wantSize = s
		}
		if c, ok := colorKeywords[tok]; ok && wantColor == "" {
			wantColor = c
		}
	}
	if wantSize == "" && wantColor == "" {
		return first, true
	}

	best, bestScore := first, 0
	for _, v := range p.Variants {
		if !v.InStock {
			continue
		}
		score := 0
		if wantSize != "" && optionMatches(v.Options, "size", wantSize) {
			score++
		}
		if wantColor != "" && optionMatches(v.Options, "color", wantColor) {
			score++
		}
		if score > bestScore {
			best, bestScore = v, score
		}
	}
	return best, true
}

func optionMatches(opts map[string]string, key, want string) bool {
	for k, v := range opts {
		if strings.EqualFold(k, key) && strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}
