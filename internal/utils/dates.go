package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"rentaldesk-bff/internal/domain"
)

const DateLayout = "2006-01-02"

// Date represents a calendar date
type Date struct {
	Year  int
	Month int
	Day   int
}

// Time returns the date at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// ParseDate converts a yyyy-mm-dd formatted string into a Date struct.
// A trailing time component ("2024-01-10T00:00:00") is ignored.
func ParseDate(dateStr string) (Date, error) {
	if i := strings.IndexByte(dateStr, 'T'); i >= 0 {
		dateStr = dateStr[:i]
	}
	parts := strings.Split(dateStr, "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("invalid date format, expected yyyy-mm-dd")
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Date{}, fmt.Errorf("invalid year: %v", err)
	}

	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return Date{}, fmt.Errorf("invalid month: %v", err)
	}

	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return Date{}, fmt.Errorf("invalid day: %v", err)
	}

	if month < 1 || month > 12 {
		return Date{}, fmt.Errorf("month must be between 1 and 12")
	}

	if day < 1 || day > DaysInMonth(year, month) {
		return Date{}, fmt.Errorf("day must be between 1 and %d", DaysInMonth(year, month))
	}

	return Date{Year: year, Month: month, Day: day}, nil
}

// DaysInMonth returns the number of days in a given month
func DaysInMonth(year, month int) int {
	if month == 2 {
		if (year%4 == 0 && year%100 != 0) || (year%400 == 0) {
			return 29
		}
		return 28
	}

	if month == 4 || month == 6 || month == 9 || month == 11 {
		return 30
	}

	return 31
}

// DaysBetween returns end - start in whole calendar days. The result is
// negative when end is before start.
func DaysBetween(startStr, endStr string) (int, error) {
	start, err := ParseDate(startStr)
	if err != nil {
		return 0, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := ParseDate(endStr)
	if err != nil {
		return 0, fmt.Errorf("invalid end date: %w", err)
	}
	return int(end.Time().Sub(start.Time()).Hours() / 24), nil
}

// RentalPeriodDays returns the chargeable period of a line. The backend's
// rental_period wins; otherwise the period is derived from the line dates,
// with a one day minimum.
func RentalPeriodDays(line domain.RentalLineItem) int {
	if line.RentalPeriod > 0 {
		return line.RentalPeriod
	}
	days, err := DaysBetween(line.RentalStartDate, line.RentalEndDate)
	if err != nil || days < 1 {
		return 1
	}
	return days
}

// Today returns the current UTC date in yyyy-mm-dd form.
func Today() string {
	return time.Now().UTC().Format(DateLayout)
}
