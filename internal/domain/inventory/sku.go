package inventory

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeSKU recorta espacios, elimina tildes y pasa a mayúsculas ("café-01 " -> "CAFE-01").
func NormalizeSKU(sku string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.TrimSpace(sku))
	if err != nil {
		out = strings.TrimSpace(sku)
	}
	return strings.ToUpper(out)
}
