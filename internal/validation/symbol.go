package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// symbolPattern matches exchange symbols: letters and digits plus dots
// (BRK.A), hyphens (BTC-USD), carets for indices (^GSPC) and '=' for
// currency pairs (EURUSD=X). Quotes and whitespace can never match, which
// keeps symbols safe to embed in Flux queries.
var symbolPattern = regexp.MustCompile(`^\^?[A-Z0-9][A-Z0-9.\-=]{0,15}$`)

// ValidateSymbol reports whether symbol is a well-formed upper-case symbol.
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %q", symbol)
	}
	return nil
}

// SanitizeSymbol upper-cases and trims symbol, then validates it.
func SanitizeSymbol(symbol string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if err := ValidateSymbol(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// SanitizeSymbols sanitizes every symbol and drops duplicates, keeping the
// first occurrence. All invalid symbols are reported together.
func SanitizeSymbols(symbols []string) ([]string, error) {
	var invalid []string
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		clean, err := SanitizeSymbol(s)
		if err != nil {
			invalid = append(invalid, s)
			continue
		}
		if seen[clean] {
			continue
		}
		seen[clean] = true
		out = append(out, clean)
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid symbols: %q", invalid)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no symbols given")
	}
	return out, nil
}
