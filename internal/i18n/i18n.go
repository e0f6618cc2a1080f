// Package i18n resolves localization keys to user facing strings.
package i18n

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	KeyAtLeastTwoDifferentWaypoints = "iou.error.atLeastTwoDifferentWaypoints"
	KeyGenericDistanceError         = "iou.error.genericDistanceError"
	KeyTooManyWaypoints             = "iou.error.tooManyWaypoints"
	KeyRouteLoading                 = "iou.routePending"
)

var messages = map[language.Tag]map[string]string{
	language.English: {
		KeyAtLeastTwoDifferentWaypoints: "Please enter at least two different addresses.",
		KeyGenericDistanceError:         "Unexpected error getting the route. Please try again later.",
		KeyTooManyWaypoints:             "You can add up to 25 stops.",
		KeyRouteLoading:                 "Route pending...",
	},
	language.Spanish: {
		KeyAtLeastTwoDifferentWaypoints: "Por favor, introduce al menos dos direcciones diferentes.",
		KeyGenericDistanceError:         "Error inesperado al obtener la ruta. Por favor, inténtalo más tarde.",
		KeyTooManyWaypoints:             "Puedes añadir hasta 25 paradas.",
		KeyRouteLoading:                 "Ruta pendiente...",
	},
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
	"CAD": "CA$",
	"AUD": "A$",
}

// Catalog holds the compiled message catalog for every supported locale.
type Catalog struct {
	builder   *catalog.Builder
	supported []language.Tag
	matcher   language.Matcher
}

func NewCatalog() *Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	supported := []language.Tag{language.English, language.Spanish}
	for _, tag := range supported {
		for key, msg := range messages[tag] {
			// Keys and messages are static; SetString only fails on malformed tags.
			_ = b.SetString(tag, key, msg)
		}
	}

	return &Catalog{
		builder:   b,
		supported: supported,
		matcher:   language.NewMatcher(supported),
	}
}

// Translator returns a translator for the closest supported match of locale.
func (c *Catalog) Translator(locale string) *Translator {
	_, idx, _ := c.matcher.Match(language.Make(locale))
	tag := c.supported[idx]
	return &Translator{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(c.builder)),
	}
}

type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

func (t *Translator) Locale() string { return t.tag.String() }

// Translate returns the message for key; unknown keys come back verbatim.
func (t *Translator) Translate(key string) string {
	return t.printer.Sprintf(key)
}

// CurrencySymbol returns the display symbol for an ISO 4217 code.
func CurrencySymbol(code string) string {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return code
	}
	if s, ok := currencySymbols[unit.String()]; ok {
		return s
	}
	return unit.String() + " "
}
