package utils

import (
	"strings"
	"unicode"
)

// DefaultRemoteCountry is sent when no country is stored at all.
const DefaultRemoteCountry = "UnitedStates"

// remoteCountries maps stored country names to the remote API's country
// codes where dropping the spaces is not enough.
var remoteCountries = map[string]string{
	"São Tomé and Príncipe":            "SaoTomeandPrincipe",
	"Vatican City (Holy See)":          "VaticanCity",
	"Myanmar (Burma)":                  "Burma",
	"Ivory Coast (Côte d'Ivoire)":      "CotedIvoire",
	"Czech Republic (Czechia)":         "CzechRepublic",
	"Democratic Republic of the Congo": "DemocraticRepublicOfTheCongo",
	"Guinea-Bissau":                    "GuineaBissau",
	"Congo (Republic of the Congo)":    "RepublicOfTheCongo",
	"East Timor (Timor-Leste)":         "TimorLeste",
	"Ashmore and Cartier Islands":      "AshmoreandCartierlslands",
	"Bassas da India":                  "Bassasdalndia",
	"Bouvet Island":                    "Bouvetisland",
	"North Macedonia":                  "Macedonia",
	"Korea (North Korea)":              "NorthKorea",
	"Korea (South Korea)":              "SouthKorea",
	"Réunion":                          "Reunion",
	"Serbia":                           "SerbiaandMontenegro",
	"Eswatini":                         "Swaziland",
	"Palestine":                        "WestBank",
}

// RemoteCountry converts a stored country name to the remote API's code,
// e.g. "United States" to "UnitedStates". Blank input gives
// DefaultRemoteCountry; names without a special case lose their whitespace.
func RemoteCountry(country string) string {
	country = FirstNonEmpty(country)
	if country == "" {
		return DefaultRemoteCountry
	}
	if code, ok := remoteCountries[country]; ok {
		return code
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, country)
}
