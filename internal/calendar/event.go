package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Impact levels. Anything else coerces to LOW.
const (
	ImpactLow    = "LOW"
	ImpactMedium = "MEDIUM"
	ImpactHigh   = "HIGH"
)

// Event is a normalized economic calendar entry.
type Event struct {
	Name          string
	Date          time.Time
	Currency      string
	Impact        string
	Forecast      string
	Previous      string
	Actual        string
	Source        string
	Description   string
	AffectedPairs []string
}

// rawEvent tolerates the field aliases seen in upstream feeds.
type rawEvent struct {
	EventName     string          `json:"event_name"`
	Name          string          `json:"name"`
	EventDate     json.RawMessage `json:"event_date"`
	Date          json.RawMessage `json:"date"`
	Time          json.RawMessage `json:"time"`
	Currency      string          `json:"currency"`
	Impact        string          `json:"impact"`
	Forecast      any             `json:"forecast"`
	Previous      any             `json:"previous"`
	Actual        any             `json:"actual"`
	Source        string          `json:"source"`
	Description   string          `json:"description"`
	AffectedPairs any             `json:"affected_pairs"`
}

var dateFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate tries the known upstream date formats, always in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, fmtStr := range dateFormats {
		if t, err := time.ParseInLocation(fmtStr, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// NormalizeImpact coerces impact to LOW/MEDIUM/HIGH, defaulting LOW.
func NormalizeImpact(impact string) string {
	switch strings.ToUpper(strings.TrimSpace(impact)) {
	case ImpactMedium:
		return ImpactMedium
	case ImpactHigh:
		return ImpactHigh
	default:
		return ImpactLow
	}
}

// NormalizePairs accepts either a list or a comma-separated string and
// strips slashes ("EUR/USD" -> "EURUSD").
func NormalizePairs(v any) []string {
	var parts []string
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		for _, p := range val {
			if s, ok := p.(string); ok {
				parts = append(parts, s)
			}
		}
	case []string:
		parts = val
	case string:
		parts = strings.Split(val, ",")
	default:
		return nil
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ReplaceAll(strings.TrimSpace(p), "/", "")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ErrMalformedJSON marks lines that are not JSON at all, as opposed to
// well-formed records failing validation.
var ErrMalformedJSON = errors.New("malformed json")

// ParseLine parses and normalizes one JSONL record.
func ParseLine(line []byte) (*Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	name := raw.EventName
	if name == "" {
		name = raw.Name
	}
	if name == "" {
		return nil, errors.New("event without name")
	}

	dateStr := firstString(raw.EventDate, raw.Date, raw.Time)
	if dateStr == "" {
		return nil, fmt.Errorf("event %q without date", name)
	}
	date, err := ParseDate(dateStr)
	if err != nil {
		return nil, err
	}

	source := raw.Source
	if source == "" {
		source = "API"
	}

	return &Event{
		Name:          name,
		Date:          date,
		Currency:      raw.Currency,
		Impact:        NormalizeImpact(raw.Impact),
		Forecast:      stringify(raw.Forecast),
		Previous:      stringify(raw.Previous),
		Actual:        stringify(raw.Actual),
		Source:        source,
		Description:   raw.Description,
		AffectedPairs: NormalizePairs(raw.AffectedPairs),
	}, nil
}

// firstString returns the first non-empty raw value rendered as a
// string. Numeric values render to digits so the date parser can
// reject them with the actual value in the error.
func firstString(candidates ...json.RawMessage) string {
	for _, c := range candidates {
		if len(c) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(c, &s); err == nil {
			if s != "" {
				return s
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(c, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%v", val), ".0")
	default:
		return fmt.Sprintf("%v", val)
	}
}
