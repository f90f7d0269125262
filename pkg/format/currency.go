// Package format renders commission amounts for display. Rounding to cents
// happens here and never in the calculation engine.
package format

import (
	"fmt"
	"strings"

	"github.com/iwvelando/commission-calculator/pkg/constants"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DisplayContext carries presentation choices for one request or run.
type DisplayContext struct {
	Currency string
}

// NewDisplayContext validates an ISO 4217 code. An empty code selects the
// default currency.
func NewDisplayContext(code string) (DisplayContext, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = constants.DefaultCurrency
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return DisplayContext{}, fmt.Errorf("unsupported currency %q: %w", code, err)
	}
	return DisplayContext{Currency: unit.String()}, nil
}

// Symbol returns the English symbol for the context's currency, e.g. "$" or
// "£". Currencies without a symbol use their ISO code followed by a space.
func (d DisplayContext) Symbol() string {
	unit, err := currency.ParseISO(d.Currency)
	if err != nil {
		unit = currency.MustParseISO(constants.DefaultCurrency)
	}
	symbol := message.NewPrinter(language.English).Sprint(currency.Symbol(unit))
	if symbol == unit.String() {
		return symbol + " "
	}
	return symbol
}

// Cents rounds an amount half away from zero to two decimals.
func Cents(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount).Round(constants.CurrencyDecimalPlaces)
}

// Money returns a currency string with a symbol and thousands separators (e.g., "-$1,234.56").
func Money(ctx DisplayContext, amount float64) string {
	rounded := Cents(amount)
	formatted := formatPositiveCurrency(rounded.Abs())
	if rounded.IsNegative() {
		return "-" + ctx.Symbol() + formatted
	}
	return ctx.Symbol() + formatted
}

// Percent renders a percentage with up to two decimals (e.g., "33.33%", "15%").
func Percent(value float64) string {
	return decimal.NewFromFloat(value).Round(constants.CurrencyDecimalPlaces).String() + "%"
}

func formatPositiveCurrency(value decimal.Decimal) string {
	amount, _ := value.Float64()
	return message.NewPrinter(language.English).Sprintf("%.2f", amount)
}
