package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Money is a fixed-scale decimal value, always carried at 2 fractional
// digits in persisted state. Arithmetic lives in internal/money; this type
// only carries the value.
type Money = decimal.Decimal

// Rate is a fixed-scale decimal fraction in [0, 1], carried at 4 fractional
// digits (e.g. a 2%/month interest rate is 0.0200).
type Rate = decimal.Decimal

// ZeroMoney is the additive identity.
var ZeroMoney = decimal.Zero

func mustDecimalOne() decimal.Decimal {
	return decimal.NewFromInt(1)
}

// MonthYear is an integer YYYYMM, YYYY in [2000, 2100], MM in [1, 12].
type MonthYear int32

// NewMonthYear builds a MonthYear from a calendar year and month.
func NewMonthYear(year, month int) MonthYear {
	return MonthYear(year*100 + month)
}

// Year returns the four-digit year component.
func (m MonthYear) Year() int {
	return int(m) / 100
}

// Month returns the 1-12 month component.
func (m MonthYear) Month() int {
	return int(m) % 100
}

// Validate checks the YYYY in [2000,2100] / MM in [1,12] invariant.
func (m MonthYear) Validate() error {
	y, mo := m.Year(), m.Month()
	if y < 2000 || y > 2100 {
		return NewValidationError("monthYear", "year must be in [2000, 2100]")
	}
	if mo < 1 || mo > 12 {
		return NewValidationError("monthYear", "month must be in [1, 12]")
	}
	return nil
}

// Next returns the MonthYear that follows m.
func (m MonthYear) Next() MonthYear {
	y, mo := m.Year(), m.Month()
	mo++
	if mo > 12 {
		mo = 1
		y++
	}
	return NewMonthYear(y, mo)
}

// String renders as "YYYY-MM".
func (m MonthYear) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year(), m.Month())
}

// LastDay returns the last calendar day of the month in UTC.
func (m MonthYear) LastDay() time.Time {
	firstOfNext := time.Date(m.Year(), time.Month(m.Month()), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}

// DayOfMonth returns the date for day `day` within the month, clamped to the
// last valid day (handles day=31 in a 30-day month etc).
func (m MonthYear) DayOfMonth(day int) time.Time {
	last := m.LastDay()
	if day > last.Day() {
		day = last.Day()
	}
	if day < 1 {
		day = 1
	}
	return time.Date(m.Year(), time.Month(m.Month()), day, 0, 0, 0, 0, time.UTC)
}
