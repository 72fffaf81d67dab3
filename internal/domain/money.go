package domain

import "github.com/shopspring/decimal"

// TaxRate is applied to the order subtotal. It is not configurable per item.
var TaxRate = decimal.RequireFromString("0.10")

// MoneyPlaces is the number of decimal places every stored amount carries.
const MoneyPlaces = 2

// LineItem is the calculator's view of an order line.
type LineItem struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals holds the computed money fields of an order
type Totals struct {
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// RoundMoney rounds half away from zero to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// LineTotal returns round(unitPrice * quantity, 2).
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return RoundMoney(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// CalculateTotals computes subtotal, tax and total for already validated,
// non-negative input. Each line is rounded before it is summed.
func CalculateTotals(items []LineItem, deliveryFee decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(LineTotal(item.UnitPrice, item.Quantity))
	}

	fee := RoundMoney(deliveryFee)
	tax := RoundMoney(subtotal.Mul(TaxRate))

	return Totals{
		Subtotal:    subtotal,
		TaxAmount:   tax,
		DeliveryFee: fee,
		Total:       subtotal.Add(tax).Add(fee),
	}
}

// FormatMoney renders an amount as a fixed two-place string.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}
