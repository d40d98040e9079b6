package ws

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/traderlab/optionscan/internal/metrics"
	"github.com/traderlab/optionscan/internal/screener"
)

// Streamer periodically runs a scan for every mode with at least one
// subscriber and broadcasts the report as JSON. Modes with no
// subscribers cost nothing.
type Streamer struct {
	hub      *Hub
	scanner  *screener.Scanner
	criteria screener.Criteria
	interval time.Duration
	logger   *zap.Logger
}

// NewStreamer creates a Streamer. The criteria (including the symbol
// universe) are fixed for the life of the streamer; clients wanting
// custom thresholds use the scan endpoint instead.
func NewStreamer(hub *Hub, scanner *screener.Scanner, criteria screener.Criteria, interval time.Duration, logger *zap.Logger) *Streamer {
	return &Streamer{
		hub:      hub,
		scanner:  scanner,
		criteria: criteria,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the streaming loop. Call in a goroutine.
// Returns when context is cancelled.
func (s *Streamer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scan streamer started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scan streamer stopping")
			return

		case <-ticker.C:
			s.broadcastScans(ctx)
		}
	}
}

// broadcastScans runs one scan per subscribed mode and fans the report
// out to that mode's group.
func (s *Streamer) broadcastScans(ctx context.Context) {
	groups := s.hub.GetActiveGroups()
	if len(groups) == 0 {
		return
	}

	for _, group := range groups {
		mode, err := screener.ParseMode(group)
		if err != nil {
			continue
		}

		criteria := s.criteria
		start := time.Now()
		report, err := s.scanner.Scan(ctx, mode, &criteria)
		if err != nil {
			metrics.RecordScan(group, false, err, time.Since(start), 0)
			s.logger.Warn("streamed scan failed",
				zap.String("mode", group),
				zap.Error(err),
			)
			continue
		}
		metrics.RecordScan(group, report.Synthetic, nil, report.Duration, len(report.Skipped))

		payload, err := json.Marshal(report)
		if err != nil {
			s.logger.Error("failed to marshal report", zap.Error(err))
			continue
		}

		s.hub.Broadcast(group, payload)

		s.logger.Debug("broadcast scan report",
			zap.String("mode", group),
			zap.String("scanId", report.ScanID),
			zap.Int("results", len(report.Results)),
			zap.Bool("synthetic", report.Synthetic),
		)
	}
}
