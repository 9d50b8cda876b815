package orders

import "strings"

// NormalizePhone rewrites a raw phone string into +<country><number>
// form. Leading 00 becomes +, a bare national 0 prefix is replaced with
// the business country code, and separators are stripped. Numbers that
// already carry a + keep their own country code.
func NormalizePhone(raw, countryCode string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	plus := strings.HasPrefix(raw, "+")
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if d == "" {
		return ""
	}

	cc := strings.TrimPrefix(countryCode, "+")
	switch {
	case plus:
		return "+" + d
	case strings.HasPrefix(d, "00"):
		return "+" + d[2:]
	case strings.HasPrefix(d, "0") && cc != "":
		return "+" + cc + d[1:]
	case cc != "" && strings.HasPrefix(d, cc):
		return "+" + d
	default:
		return "+" + d
	}
}
