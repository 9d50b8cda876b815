package orders

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		country string
		want    string
	}{
		{"already international", "+961 70 123 456", "961", "+96170123456"},
		{"double zero prefix", "0096170123456", "961", "+96170123456"},
		{"national zero prefix", "070123456", "961", "+96170123456"},
		{"bare with country code", "96170123456", "961", "+96170123456"},
		{"country code with plus", "070123456", "+961", "+96170123456"},
		{"separators stripped", "03-123-456", "961", "+9613123456"},
		{"no country code known", "70123456", "", "+70123456"},
		{"empty", "", "961", ""},
		{"no digits", "call me", "961", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePhone(tt.raw, tt.country); got != tt.want {
				t.Errorf("NormalizePhone(%q, %q) = %q, want %q", tt.raw, tt.country, got, tt.want)
			}
		})
	}
}
