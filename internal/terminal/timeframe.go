package terminal

import (
	"fmt"
	"strings"
	"time"
)

// Timeframe is a bar aggregation granularity, carrying the terminal's
// wire code for the copy_rates calls.
type Timeframe struct {
	Name string
	Code int
	Step time.Duration
}

// Timeframe wire codes as defined by the terminal.
var timeframes = map[string]Timeframe{
	"M1":  {"M1", 1, time.Minute},
	"M5":  {"M5", 5, 5 * time.Minute},
	"M15": {"M15", 15, 15 * time.Minute},
	"M30": {"M30", 30, 30 * time.Minute},
	"H1":  {"H1", 16385, time.Hour},
	"H4":  {"H4", 16388, 4 * time.Hour},
	"D1":  {"D1", 16408, 24 * time.Hour},
	"W1":  {"W1", 32769, 7 * 24 * time.Hour},
	"MN1": {"MN1", 49153, 30 * 24 * time.Hour},
}

// ParseTimeframe resolves a timeframe name like "M15" or "h1".
func ParseTimeframe(name string) (Timeframe, error) {
	tf, ok := timeframes[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Timeframe{}, fmt.Errorf("unknown timeframe %q", name)
	}
	return tf, nil
}

// Intraday reports whether the timeframe is below one hour. Hourly and
// coarser requests are the ones prone to vendor-side range errors.
func (t Timeframe) Intraday() bool {
	return t.Step < time.Hour
}
