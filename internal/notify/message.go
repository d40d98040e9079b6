package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/traderlab/optionscan/internal/screener"
)

// FormatDegradedMessage creates a degraded-scan notification body.
func FormatDegradedMessage(report *screener.Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Scan: %s\n", report.ScanID))
	sb.WriteString(fmt.Sprintf("Universe: %d symbols\n", report.Universe))
	sb.WriteString(fmt.Sprintf("Skipped: %d\n", len(report.Skipped)))
	sb.WriteString(fmt.Sprintf("Duration: %s\n", report.Duration.Round(time.Millisecond)))
	sb.WriteString("All symbols failed; synthetic sample returned.")

	// Include the first few skipped symbols for quick triage
	if len(report.Skipped) > 0 {
		limit := 5
		if len(report.Skipped) < limit {
			limit = len(report.Skipped)
		}
		sb.WriteString(fmt.Sprintf("\n\nSkipped: %s", strings.Join(report.Skipped[:limit], ", ")))
		if len(report.Skipped) > limit {
			sb.WriteString(fmt.Sprintf(" ... and %d more", len(report.Skipped)-limit))
		}
	}

	return sb.String()
}
