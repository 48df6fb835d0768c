package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// postalCityPattern matches a French postal code followed by an uppercase
// city name, optionally suffixed by CEDEX.
var postalCityPattern = regexp.MustCompile(`(\d{5})\s+([A-Z\s]+)(?: CEDEX)?`)

const cedexSuffix = " CEDEX"

// ExtractPostalCodeAndCity finds the postal code and city in a free-text
// address fragment. The text is uppercased before matching and a trailing
// CEDEX token is stripped from the city. Without a match both values are
// empty and ok is false.
func ExtractPostalCodeAndCity(text string) (postalCode, city string, ok bool) {
	match := postalCityPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(text)))
	if match == nil {
		return "", "", false
	}

	city = strings.TrimSpace(match[2])
	if strings.HasSuffix(city, cedexSuffix) {
		city = strings.TrimSpace(strings.TrimSuffix(city, cedexSuffix))
	}
	return match[1], city, true
}

// LocatorForLabel returns an XPath selecting the span that immediately
// follows any span whose text contains label.
func LocatorForLabel(label string) string {
	return fmt.Sprintf("//span[contains(text(), '%s')]/following-sibling::span[1]", label)
}

// ValueAfterColon returns the trimmed text after the first colon, or "" when
// the text has no colon. Used for "RPPS : 10001234567" style labels.
func ValueAfterColon(text string) string {
	_, value, found := strings.Cut(text, ":")
	if !found {
		return ""
	}
	return strings.TrimSpace(value)
}
