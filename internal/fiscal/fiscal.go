// Package fiscal turns a (month, year) selection into the ordered April..March
// window of the fiscal year it belongs to.
package fiscal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"optometry_report/internal/common"
)

// Month is a calendar month in fiscal order: April is 0, March is 11.
type Month int

const (
	April Month = iota
	May
	June
	July
	August
	September
	October
	November
	December
	January
	February
	March
)

// MonthsPerYear is the length of a full fiscal window.
const MonthsPerYear = 12

var monthNames = [MonthsPerYear]string{
	"April", "May", "June", "July", "August", "September",
	"October", "November", "December", "January", "February", "March",
}

// aliases maps lowercase spellings accepted on input to the month.
var aliases = map[string]Month{
	"apr": April, "april": April,
	"may": May,
	"jun": June, "june": June,
	"jul": July, "july": July,
	"aug": August, "august": August,
	"sep": September, "sept": September, "september": September,
	"oct": October, "october": October,
	"nov": November, "november": November,
	"dec": December, "december": December,
	"jan": January, "january": January,
	"feb": February, "february": February,
	"mar": March, "march": March,
}

// String returns the full English name, the only form written to storage.
func (m Month) String() string {
	if m < April || m > March {
		return fmt.Sprintf("Month(%d)", int(m))
	}
	return monthNames[m]
}

// Valid reports whether m is one of the twelve months.
func (m Month) Valid() bool {
	return m >= April && m <= March
}

// rollsOver is true for January..March, which belong to the second calendar
// year of a fiscal year.
func (m Month) rollsOver() bool {
	return m >= January
}

// MonthOf converts a calendar month to its fiscal position.
func MonthOf(m time.Month) Month {
	return Month((int(m) + 8) % MonthsPerYear)
}

// ParseMonth accepts full names and common abbreviations in any case.
func ParseMonth(s string) (Month, error) {
	m, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, invalid("unrecognized month %q", s)
	}
	return m, nil
}

// ParseYear accepts exactly four digits.
func ParseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) != 4 {
		return 0, invalid("year must have four digits, got %q", s)
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < 1000 {
		return 0, invalid("year must have four digits, got %q", s)
	}
	return y, nil
}

// Period is one (month, year) reporting slot.
type Period struct {
	Month Month
	Year  int
}

// ParsePeriod parses the month and year strings used at every interface.
func ParsePeriod(month, year string) (Period, error) {
	m, err := ParseMonth(month)
	if err != nil {
		return Period{}, err
	}
	y, err := ParseYear(year)
	if err != nil {
		return Period{}, err
	}
	return Period{Month: m, Year: y}, nil
}

// YearString is the 4-digit year as stored and transmitted.
func (p Period) YearString() string {
	return strconv.Itoa(p.Year)
}

func (p Period) String() string {
	return fmt.Sprintf("%s %d", p.Month, p.Year)
}

// Key is a stable map key for the period, e.g. "2025-April".
func (p Period) Key() string {
	return fmt.Sprintf("%d-%s", p.Year, p.Month)
}

// StartYear is the calendar year in which the fiscal year containing p began.
func (p Period) StartYear() int {
	if p.Month.rollsOver() {
		return p.Year - 1
	}
	return p.Year
}

// Label renders the fiscal year as "2025-26".
func Label(startYear int) string {
	return fmt.Sprintf("%d-%02d", startYear, (startYear+1)%100)
}

// Window returns the periods from April of the fiscal start year through the
// target inclusive, in fiscal order.
func Window(to Period) ([]Period, error) {
	if !to.Month.Valid() {
		return nil, invalid("unrecognized month %d", int(to.Month))
	}
	if to.Year < 1000 || to.Year > 9999 {
		return nil, invalid("year must have four digits, got %d", to.Year)
	}
	start := to.StartYear()
	out := make([]Period, 0, int(to.Month)+1)
	for m := April; m <= to.Month; m++ {
		y := start
		if m.rollsOver() {
			y = start + 1
		}
		out = append(out, Period{Month: m, Year: y})
	}
	return out, nil
}

// WindowOf is Window for the string form used by callers.
func WindowOf(toMonth, toYear string) ([]Period, error) {
	p, err := ParsePeriod(toMonth, toYear)
	if err != nil {
		return nil, err
	}
	return Window(p)
}

// FullYear returns all twelve periods of the fiscal year starting in startYear.
func FullYear(startYear int) []Period {
	w, _ := Window(Period{Month: March, Year: startYear + 1})
	return w
}

// Contains reports whether p is one of the periods in w.
func Contains(w []Period, p Period) bool {
	for _, q := range w {
		if q == p {
			return true
		}
	}
	return false
}

func invalid(format string, args ...any) error {
	return common.WithDetails(common.ErrInvalidPeriod, fmt.Sprintf(format, args...))
}
