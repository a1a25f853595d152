package interest

import (
	"github.com/shopspring/decimal"
)

var (
	one      = decimal.NewFromInt(1)
	percent  = decimal.NewFromInt(100)
	yearDays = decimal.NewFromInt(365)
)

// CalculateDailyInterest returns one day of simple interest on the
// principal: principal * annualRate / 100 / 365. The engine applies it once
// per calendar day; because the credited interest carries into the next
// day's principal, repeated application compounds daily.
func CalculateDailyInterest(principal, annualRate decimal.Decimal) decimal.Decimal {
	return principal.Mul(annualRate).Div(percent.Mul(yearDays))
}

// CalculateProjectedEarnings projects a balance forward with daily
// compounding: principal * (1 + dailyRate)^days. Display-only; the accrual
// run itself never uses this formula.
func CalculateProjectedEarnings(principal, annualRate decimal.Decimal, days int) (total, interest decimal.Decimal) {
	dailyRate := annualRate.Div(percent.Mul(yearDays))
	growth := one.Add(dailyRate).Pow(decimal.NewFromInt(int64(days)))

	total = principal.Mul(growth)
	interest = total.Sub(principal)
	return total, interest
}
