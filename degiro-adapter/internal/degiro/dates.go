package degiro

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	reportDateLayout = "02/01/2006"
	isoDateLayout    = "2006-01-02"
)

// ReportDate is a calendar date sent as dd/mm/yyyy. Order history uses it.
type ReportDate struct {
	t time.Time
}

// NewReportDate truncates t to its calendar date.
func NewReportDate(t time.Time) ReportDate {
	return ReportDate{t: dateOnly(t)}
}

// ParseReportDate parses dd/mm/yyyy.
func ParseReportDate(s string) (ReportDate, error) {
	t, err := time.Parse(reportDateLayout, strings.TrimSpace(s))
	if err != nil {
		return ReportDate{}, fmt.Errorf("%w: report date %q must be dd/mm/yyyy", ErrInvalidRequest, s)
	}
	return ReportDate{t: t}, nil
}

func (d ReportDate) String() string  { return d.t.Format(reportDateLayout) }
func (d ReportDate) Time() time.Time { return d.t }
func (d ReportDate) IsZero() bool    { return d.t.IsZero() }

// ISODate is a calendar date sent as yyyy-mm-dd. Transactions and the account
// overview use it.
type ISODate struct {
	t time.Time
}

func NewISODate(t time.Time) ISODate {
	return ISODate{t: dateOnly(t)}
}

// ParseISODate parses yyyy-mm-dd.
func ParseISODate(s string) (ISODate, error) {
	t, err := time.Parse(isoDateLayout, strings.TrimSpace(s))
	if err != nil {
		return ISODate{}, fmt.Errorf("%w: iso date %q must be yyyy-mm-dd", ErrInvalidRequest, s)
	}
	return ISODate{t: t}, nil
}

func (d ISODate) String() string  { return d.t.Format(isoDateLayout) }
func (d ISODate) Time() time.Time { return d.t }
func (d ISODate) IsZero() bool    { return d.t.IsZero() }

type calendarDate interface {
	Time() time.Time
	IsZero() bool
	String() string
}

// checkRange rejects unset bounds and from after to.
func checkRange[D calendarDate](from, to D) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: date range needs both bounds", ErrInvalidRequest)
	}
	if from.Time().After(to.Time()) {
		return fmt.Errorf("%w: fromDate %s is after toDate %s", ErrInvalidRequest, from, to)
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	isoDateLayout,
}

// Timestamp decodes the broker's report timestamps, which come with or
// without a zone offset. Zone-less values are taken as UTC.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unsupported format %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}
