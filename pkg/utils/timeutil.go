package utils

import (
	"fmt"
	"time"
)

// ET is the US Eastern time zone EDGAR publishes its indexes in.
var ET *time.Location

func init() {
	var err error
	ET, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback: fixed EST if tz database is not available
		ET = time.FixedZone("EST", -5*60*60)
	}
}

// NowET returns the current time in US Eastern time.
func NowET() time.Time {
	return time.Now().In(ET)
}

// Today returns midnight of the current EDGAR business date.
func Today() time.Time {
	return TruncateDay(NowET())
}

// TruncateDay drops the clock part of t, keeping its calendar date.
func TruncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Quarter returns the EDGAR archive quarter directory for t, e.g. "QTR1".
func Quarter(t time.Time) string {
	return fmt.Sprintf("QTR%d", (int(t.Month())-1)/3+1)
}

// FormatDate formats t as YYYY-MM-DD, the partition key of the audit ledger.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatMonth formats t as YYYY-MM.
func FormatMonth(t time.Time) string {
	return t.Format("2006-01")
}

// FormatCompact formats t as YYYYMMDD, the form used in index file names.
func FormatCompact(t time.Time) string {
	return t.Format("20060102")
}

// DateInt encodes t as the integer YYYYMMDD carried in queue messages.
func DateInt(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// FromDateInt decodes a YYYYMMDD integer.
func FromDateInt(d int) (time.Time, error) {
	t, err := time.Parse("20060102", fmt.Sprintf("%08d", d))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %d: %w", d, err)
	}
	return t, nil
}

// ParseDate accepts YYYY-MM-DD, YYYYMMDD or an RFC3339 timestamp (the date
// part of a scheduler event).
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "20060102"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return TruncateDay(t), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// IsWeekend reports whether EDGAR publishes no daily index for t.
func IsWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

// PrevBusinessDay returns the closest weekday strictly before t.
func PrevBusinessDay(t time.Time) time.Time {
	prev := t.AddDate(0, 0, -1)
	for IsWeekend(prev) {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}
