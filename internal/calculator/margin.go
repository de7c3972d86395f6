package calculator

import "strings"

// ValidMargin reports whether raw is a usable percentage: after stripping
// '%' and '.', everything left must be a digit and at least one digit must
// remain. "12.5%" and "100%" pass; "N/A", "abc%" and a bare "%" do not.
func ValidMargin(raw string) bool {
	stripped := strings.NewReplacer("%", "", ".", "").Replace(raw)
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FirstValidMargin returns the first value that validates as a margin,
// preserving document order.
func FirstValidMargin(values []string) (string, bool) {
	for _, v := range values {
		if ValidMargin(v) {
			return v, true
		}
	}
	return "", false
}
