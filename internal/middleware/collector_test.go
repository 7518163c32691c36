package middleware

import (
	"time"

	"github.com/hitoshi/gameforum/internal/metrics"
)

// recordingCollector はHTTPメトリクスの呼び出しを記録するテスト用Collector。
type recordingCollector struct {
	metrics.Nop
	statuses  []int
	latencies int
}

func (c *recordingCollector) RecordHTTPStatus(statusCode int) {
	c.statuses = append(c.statuses, statusCode)
}

func (c *recordingCollector) RecordRequestLatency(time.Duration) {
	c.latencies++
}
