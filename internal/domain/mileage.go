package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type DistanceUnit string

const (
	UnitMiles      DistanceUnit = "mi"
	UnitKilometers DistanceUnit = "km"
)

var metersPerUnit = map[DistanceUnit]decimal.Decimal{
	UnitMiles:      decimal.RequireFromString("1609.344"),
	UnitKilometers: decimal.NewFromInt(1000),
}

// MileageRate prices a distance: amount = distance in Unit x Rate, in Currency.
type MileageRate struct {
	Rate     decimal.Decimal
	Unit     DistanceUnit
	Currency string
}

// Distance converts meters to the rate unit, rounded to two decimals.
func (r MileageRate) Distance(meters int) decimal.Decimal {
	return r.distance(meters).Round(2)
}

func (r MileageRate) distance(meters int) decimal.Decimal {
	per, ok := metersPerUnit[r.Unit]
	if !ok {
		per = metersPerUnit[UnitMiles]
	}
	return decimal.NewFromInt(int64(meters)).Div(per)
}

// Amount is the reimbursable value of a route, rounded to minor units.
func (r MileageRate) Amount(meters int) decimal.Decimal {
	return r.distance(meters).Mul(r.Rate).Round(2)
}

// Merchant renders the human readable "12.34 mi @ $0.655 / mi" label.
func (r MileageRate) Merchant(meters int, currencySymbol string) string {
	return fmt.Sprintf(
		"%s %s @ %s%s / %s",
		r.Distance(meters).StringFixed(2), r.Unit, currencySymbol, r.Rate.String(), r.Unit,
	)
}

// Pricing is what a computed route is worth on the transaction.
type Pricing struct {
	Amount   decimal.Decimal
	Currency string
	Merchant string
}

func (r MileageRate) Price(meters int, currencySymbol string) Pricing {
	return Pricing{
		Amount:   r.Amount(meters),
		Currency: r.Currency,
		Merchant: r.Merchant(meters, currencySymbol),
	}
}
