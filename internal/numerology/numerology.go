// Package numerology reduces calendar dates into numerology features.
package numerology

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ppiankov/decode/internal/model"
)

// ErrInvalidDate is returned for dates that do not exist on the calendar
var ErrInvalidDate = errors.New("invalid calendar date")

// MasterNumbers stop reduction early
var MasterNumbers = []int{11, 22, 33}

// Date is a civil calendar date with no time or zone
type Date struct {
	Year  int
	Month int
	Day   int
}

// NewDate validates and returns a date. Years are limited to 1..9999 so
// YYYYMMDD is always eight digits.
func NewDate(year, month, day int) (Date, error) {
	if year < 1 || year > 9999 {
		return Date{}, fmt.Errorf("%w: year %d out of range", ErrInvalidDate, year)
	}
	if month < 1 || month > 12 {
		return Date{}, fmt.Errorf("%w: month %d", ErrInvalidDate, month)
	}
	if day < 1 || day > daysIn(year, month) {
		return Date{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// FromTime takes the calendar date of t in t's own location
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: int(m), Day: d}
}

// ParseDate parses YYYY-MM-DD without normalizing impossible dates
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return FromTime(t), nil
}

// Validate reports whether d is a real calendar date
func (d Date) Validate() error {
	_, err := NewDate(d.Year, d.Month, d.Day)
	return err
}

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Compact formats the date as YYYYMMDD
func (d Date) Compact() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
}

func daysIn(year, month int) int {
	// Day 0 of the next month is the last day of this one
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DigitSum sums the base-10 digits of |n|
func DigitSum(n int) int {
	if n < 0 {
		n = -n
	}
	sum := 0
	for n > 0 {
		sum += n % 10
		n /= 10
	}
	return sum
}

// IsMaster reports whether n is a master number
func IsMaster(n int) bool {
	for _, m := range MasterNumbers {
		if n == m {
			return true
		}
	}
	return false
}

// ReduceToRoot applies DigitSum until the value is at most 9 or a master number.
// 29 stops at 11; 28 goes 10 then 1.
func ReduceToRoot(n int) int {
	if n < 0 {
		n = -n
	}
	for n > 9 && !IsMaster(n) {
		n = DigitSum(n)
	}
	return n
}

// IsMasterDay is true only for the 11th and 22nd; there is no 33rd.
func IsMasterDay(day int) bool {
	return day == 11 || day == 22
}

// IsPalindrome reports whether YYYYMMDD reads the same reversed
func IsPalindrome(d Date) bool {
	s := d.Compact()
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		if s[i] != s[j] {
			return false
		}
	}
	return true
}

// Compute derives all numerology features of a valid date
func Compute(d Date) (model.Numerology, error) {
	if err := d.Validate(); err != nil {
		return model.Numerology{}, err
	}

	ys, ms, ds := DigitSum(d.Year), DigitSum(d.Month), DigitSum(d.Day)
	full, _ := strconv.Atoi(d.Compact())

	return model.Numerology{
		YearSum:    ys,
		MonthSum:   ms,
		DaySum:     ds,
		DateSum:    DigitSum(full),
		LifePath:   ReduceToRoot(ys + ms + ds),
		MasterDay:  IsMasterDay(d.Day),
		Palindrome: IsPalindrome(d),
	}, nil
}
