package gateway

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"mt5-bridge/internal/terminal"
)

// HistoryRequest selects bars either by count back from the most recent
// bar (optionally anchored at EndTime) or by an explicit time range.
type HistoryRequest struct {
	SessionID string
	Symbol    string
	Timeframe string
	Count     int
	StartTime int64 // epoch seconds
	EndTime   int64 // epoch seconds
}

const defaultBarCount = 200

// countLadder is the fallback sequence of progressively smaller
// requests used when the terminal rejects the parameters. Metals and
// hourly-or-coarser timeframes reject long lookbacks routinely.
var countLadder = []int{100, 50, 10}

// rangeLadder is the sequence of shrinking lookback windows tried when
// a caller-supplied range is rejected.
var rangeLadder = []time.Duration{7 * 24 * time.Hour, 2 * 24 * time.Hour, 24 * time.Hour}

// History fetches normalized candles, working down the fallback ladder
// until the terminal yields data or every variant is exhausted.
func (g *Gateway) History(ctx context.Context, req HistoryRequest) *Result {
	if rej := g.requireSession(CmdHistory, req.SessionID); rej != nil {
		return rej
	}

	tf, err := terminal.ParseTimeframe(req.Timeframe)
	if err != nil {
		return Failf("Invalid timeframe: %s", req.Timeframe)
	}

	if err := g.term.SymbolSelect(ctx, req.Symbol, true); err != nil {
		if errors.Is(err, terminal.ErrNotFound) {
			return Failf("Symbol %s not available", req.Symbol)
		}
		return Failf("Failed to select symbol %s: %v", req.Symbol, err)
	}

	var bars []terminal.Bar
	if req.StartTime > 0 && req.EndTime > 0 {
		bars, err = g.fetchRange(ctx, req.Symbol, tf, time.Unix(req.StartTime, 0), time.Unix(req.EndTime, 0))
	} else {
		count := req.Count
		if count <= 0 {
			count = defaultBarCount
		}
		bars, err = g.fetchCount(ctx, req.Symbol, tf, count, req.EndTime)
	}
	if err != nil {
		return Failf("Failed to get history: %v", err)
	}

	out := make([]BarData, len(bars))
	for i, b := range bars {
		out[i] = BarData{
			Time:       b.Time,
			Open:       b.Open,
			High:       b.High,
			Low:        b.Low,
			Close:      b.Close,
			TickVolume: b.TickVolume,
			Spread:     b.Spread,
			RealVolume: b.RealVolume,
		}
	}
	return OK(&HistoryData{
		Symbol:    req.Symbol,
		Timeframe: tf.Name,
		Count:     len(out),
		Bars:      out,
	})
}

// fetchCount asks for count bars back from the latest (or from endTime
// when set), stepping down the count ladder on rejection and finally
// crossing over to short range windows.
func (g *Gateway) fetchCount(ctx context.Context, symbol string, tf terminal.Timeframe, count int, endTime int64) ([]terminal.Bar, error) {
	counts := ladderFrom(count)

	var lastErr error
	for _, c := range counts {
		var bars []terminal.Bar
		var err error
		if endTime > 0 {
			// end-anchored count fetch expressed as a range
			end := time.Unix(endTime, 0)
			bars, err = g.term.CopyRatesRange(ctx, symbol, tf, end.Add(-time.Duration(c)*tf.Step), end)
		} else {
			bars, err = g.term.CopyRatesFromPos(ctx, symbol, tf, 0, c)
		}
		if err == nil && len(bars) > 0 {
			return bars, nil
		}
		if err != nil {
			lastErr = err
			g.log.Debug("history count fetch failed",
				zap.String("symbol", symbol), zap.String("timeframe", tf.Name),
				zap.Int("count", c), zap.Error(err))
		}
	}

	// cross over: short lookback windows ending now
	end := time.Now()
	if endTime > 0 {
		end = time.Unix(endTime, 0)
	}
	for _, window := range rangeLadder {
		bars, err := g.term.CopyRatesRange(ctx, symbol, tf, end.Add(-window), end)
		if err == nil && len(bars) > 0 {
			return bars, nil
		}
		if err != nil {
			lastErr = err
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no data returned")
	}
	return nil, lastErr
}

// fetchRange asks for an explicit range, shrinking the window toward
// its end on rejection and finally crossing over to count fetches.
func (g *Gateway) fetchRange(ctx context.Context, symbol string, tf terminal.Timeframe, from, to time.Time) ([]terminal.Bar, error) {
	if !to.After(from) {
		return nil, errors.New("start_time must precede end_time")
	}

	windows := []time.Duration{to.Sub(from)}
	for _, w := range rangeLadder {
		if w < windows[0] {
			windows = append(windows, w)
		}
	}

	var lastErr error
	for _, window := range windows {
		bars, err := g.term.CopyRatesRange(ctx, symbol, tf, to.Add(-window), to)
		if err == nil && len(bars) > 0 {
			return bars, nil
		}
		if err != nil {
			lastErr = err
			g.log.Debug("history range fetch failed",
				zap.String("symbol", symbol), zap.String("timeframe", tf.Name),
				zap.Duration("window", window), zap.Error(err))
		}
	}

	// cross over: count fetches from the most recent bar
	for _, c := range ladderFrom(defaultBarCount) {
		bars, err := g.term.CopyRatesFromPos(ctx, symbol, tf, 0, c)
		if err == nil && len(bars) > 0 {
			return bars, nil
		}
		if err != nil {
			lastErr = err
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no data returned")
	}
	return nil, lastErr
}

// ladderFrom prefixes the fallback counts with the requested count,
// dropping rungs that are not actually smaller.
func ladderFrom(count int) []int {
	counts := []int{count}
	for _, c := range countLadder {
		if c < count {
			counts = append(counts, c)
		}
	}
	return counts
}
