package appstore

import "strings"

// storefrontCodes maps the country names that appear in imported report rows
// to two-letter storefront codes.
var storefrontCodes = map[string]string{
	"united states":  "US",
	"united kingdom": "GB",
	"canada":         "CA",
	"australia":      "AU",
	"japan":          "JP",
	"germany":        "DE",
	"france":         "FR",
	"spain":          "ES",
	"italy":          "IT",
}

// StorefrontCode converts a country name to its storefront code. Two-letter
// inputs pass through uppercased; unknown names fall back to US.
func StorefrontCode(country string) string {
	s := strings.TrimSpace(country)
	if len(s) == 2 {
		return strings.ToUpper(s)
	}
	if code, ok := storefrontCodes[strings.ToLower(s)]; ok {
		return code
	}
	return "US"
}
