package catalog

import (
	"strings"
	"testing"
)

func snap() Snapshot {
	return Snapshot{
		{
			ID:    "p1",
			Title: "Cotton T-Shirt",
			Variants: []Variant{
				{ID: "v1", Options: map[string]string{"size": "medium", "color": "red"}, Price: 15.50, InStock: true},
				{ID: "v2", Options: map[string]string{"size": "large"}, Price: 16, InStock: false},
			},
		},
	}
}

func TestFind(t *testing.T) {
	s := snap()
	if p, ok := s.Find("p1"); !ok || p.Title != "Cotton T-Shirt" {
		t.Errorf("Find(p1) = %+v, %v", p, ok)
	}
	if _, ok := s.Find("nope"); ok {
		t.Error("unknown id should not be found")
	}
}

func TestFirstInStock(t *testing.T) {
	p, _ := snap().Find("p1")
	v, ok := p.FirstInStock()
	if !ok || v.ID != "v1" {
		t.Errorf("FirstInStock = %+v, %v", v, ok)
	}

	p.Variants[0].InStock = false
	if _, ok := p.FirstInStock(); ok {
		t.Error("nothing in stock should report false")
	}
}

func TestRenderText(t *testing.T) {
	got := snap().RenderText()
	for _, want := range []string{"Cotton T-Shirt", "id p1", "size=medium color=red", "15.50", "out of stock"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderText missing %q in:\n%s", want, got)
		}
	}

	if got := (Snapshot{}).RenderText(); got != "" {
		t.Errorf("empty snapshot should render empty, got %q", got)
	}
}
