package legal

import (
	"fmt"
	"time"
)

// isoDate is the canonical wire form for simple dates.
const isoDate = "2006-01-02"

// ParseISODate validates a canonical YYYY-MM-DD date. The empty string is
// accepted and means "unbounded".
func ParseISODate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(isoDate, s)
	if err != nil {
		return time.Time{}, Invalidf("date", "date %q is not in YYYY-MM-DD form", s)
	}
	return t, nil
}

// DateDotted translates an ISO date to the DD.MM.YYYY form used by the
// UYAP-family backends. Empty input stays empty.
func DateDotted(s string) (string, error) {
	t, err := ParseISODate(s)
	if err != nil {
		return "", err
	}
	if t.IsZero() {
		return "", nil
	}
	return t.Format("02.01.2006"), nil
}

// DateSlashed translates an ISO date to DD/MM/YYYY. Empty input stays empty.
func DateSlashed(s string) (string, error) {
	t, err := ParseISODate(s)
	if err != nil {
		return "", err
	}
	if t.IsZero() {
		return "", nil
	}
	return t.Format("02/01/2006"), nil
}

// DateRangeISO promotes simple start and end dates to ISO-8601 instants for
// backends that require sub-day precision: start-of-day for the range start
// and end-of-day for the range end, both in UTC.
func DateRangeISO(start, end string) (string, string, error) {
	var lo, hi string
	if start != "" {
		t, err := ParseISODate(start)
		if err != nil {
			return "", "", err
		}
		lo = t.UTC().Format("2006-01-02") + "T00:00:00.000Z"
	}
	if end != "" {
		t, err := ParseISODate(end)
		if err != nil {
			return "", "", err
		}
		hi = t.UTC().Format("2006-01-02") + "T23:59:59.999Z"
	}
	return lo, hi, nil
}

// ValidateDateRange checks both bounds parse and start does not exceed end.
func ValidateDateRange(start, end string) error {
	lo, err := ParseISODate(start)
	if err != nil {
		return Invalidf("date_start", "%s", err.(*Fault).Message)
	}
	hi, err := ParseISODate(end)
	if err != nil {
		return Invalidf("date_end", "%s", err.(*Fault).Message)
	}
	if !lo.IsZero() && !hi.IsZero() && lo.After(hi) {
		return Invalidf("date_start", "date range start %s is after end %s", start, end)
	}
	return nil
}

// NormalizeBackendDate converts the date forms seen in backend responses
// (DD.MM.YYYY, DD/MM/YYYY, ISO instants) back to canonical YYYY-MM-DD.
// Unrecognized input is returned unchanged for display.
func NormalizeBackendDate(s string) string {
	for _, layout := range []string{isoDate, "02.01.2006", "02/01/2006", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDate)
		}
	}
	return s
}

// CaseNumber renders a (year, sequence) tuple in the YYYY/N form shared by
// the high-court backends. A zero tuple renders empty.
func CaseNumber(year, seq int) string {
	if year == 0 && seq == 0 {
		return ""
	}
	return fmt.Sprintf("%d/%d", year, seq)
}
