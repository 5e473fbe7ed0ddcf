package calendar

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Summary tallies one ingest run.
type Summary struct {
	Processed int
	Inserted  int
	Errors    int
}

// Ingestor reads newline-delimited JSON events and inserts each
// normalized record. Per-line failures are logged and counted; the
// stream always runs to completion.
type Ingestor struct {
	Store Store
	Log   *zap.Logger
}

// Run consumes r until EOF and returns the tally.
func (in *Ingestor) Run(ctx context.Context, r io.Reader) (Summary, error) {
	log := in.Log
	if log == nil {
		log = zap.NewNop()
	}

	var sum Summary
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ev, err := ParseLine([]byte(line))
		if err != nil {
			sum.Errors++
			// malformed lines never count as processed records
			if !errors.Is(err, ErrMalformedJSON) {
				sum.Processed++
			}
			log.Warn("skipping event", zap.Int("line", lineNum), zap.Error(err))
			continue
		}
		sum.Processed++

		if err := in.Store.InsertEvent(ctx, ev); err != nil {
			sum.Errors++
			log.Warn("insert failed", zap.Int("line", lineNum), zap.String("event", ev.Name), zap.Error(err))
			continue
		}

		sum.Inserted++
		log.Info("inserted event", zap.String("event", ev.Name), zap.String("impact", ev.Impact))
	}
	if err := scanner.Err(); err != nil {
		return sum, err
	}
	return sum, nil
}
