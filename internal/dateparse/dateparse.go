// Package dateparse normalizes the date strings found on Thai clinical
// documents. Lab sheets and notes mix Buddhist Era and Gregorian years,
// 2-digit years, and optional times; everything downstream wants one
// canonical "YYYY-MM-DD HH:mm" form.
package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// beOffset converts a Buddhist Era year to Gregorian.
const beOffset = 543

// beThreshold: any year above this is taken as Buddhist Era. Gregorian years
// on modern medical records never reach it, BE years always do.
const beThreshold = 2400

// datePattern matches day/month[/year] with "/" or "-" separators and an
// optional HH:mm time, e.g. "14/6/2567 08:30" or "01-01-2024".
var datePattern = regexp.MustCompile(`(\d{1,4})[/-](\d{1,2})(?:[/-](\d{1,4}))?(?:[\sT]+(\d{1,2})[:.](\d{2}))?`)

// Normalize extracts the first date pattern in raw and returns it as
// "YYYY-MM-DD HH:mm". referenceYear fills in dates written without a year
// (column headers like "14/6"). The second return is false when raw contains
// no recognizable date; the caller then drops the record or substitutes its
// own fallback instant.
//
// Year interpretation: above 2400 the whole date is Buddhist Era and 543 is
// subtracted; 0-99 means 2000+year (modern records, never 1900s); anything
// else is a literal Gregorian year. A leading 4-digit or >31 first component
// flips the field order to year-month-day, so already-normalized output
// passes through unchanged.
func Normalize(raw string, referenceYear int) (string, bool) {
	m := datePattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}

	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])

	var day, month, year int
	if len(m[1]) == 4 || first > 31 {
		// year-month-day order
		year = first
		month = second
		if m[3] == "" {
			return "", false
		}
		day, _ = strconv.Atoi(m[3])
	} else {
		day = first
		month = second
		if m[3] == "" {
			year = referenceYear
		} else {
			year, _ = strconv.Atoi(m[3])
		}
	}

	year = gregorianYear(year)

	hour, minute := 0, 0
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		minute, _ = strconv.Atoi(m[5])
	}

	if !validInstant(year, month, day, hour, minute) {
		return "", false
	}

	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d", year, month, day, hour, minute), true
}

// NormalizeOr returns the normalized form of raw, or fallback when raw has no
// recognizable date. Use-cases pass "now" so a record with an unreadable date
// still lands somewhere visible.
func NormalizeOr(raw string, referenceYear int, fallback string) string {
	if s, ok := Normalize(raw, referenceYear); ok {
		return s
	}
	return fallback
}

// Now formats t in the canonical form.
func Now(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}

func gregorianYear(y int) int {
	switch {
	case y > beThreshold:
		return y - beOffset
	case y >= 0 && y <= 99:
		return 2000 + y
	default:
		return y
	}
}

// validInstant checks that the components name a real calendar instant by
// letting time.Date normalize them and comparing the round trip.
func validInstant(year, month, day, hour, minute int) bool {
	if year < 1900 || year > 2200 {
		return false
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day &&
		t.Hour() == hour && t.Minute() == minute
}
