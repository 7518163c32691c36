// Package cleanup は期限切れセッションの定期削除ジョブを提供する。
// 期限切れのセッションは読み取り時に無視されるため、このジョブは
// ストレージの肥大化を防ぐためだけに動作する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/gameforum/internal/metrics"
)

// DefaultInterval はクリーンアップジョブの既定の実行間隔。
const DefaultInterval = time.Hour

// Purger は期限切れセッションの一括削除インターフェース。
type Purger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CleanupJob は期限切れセッションを削除するジョブ。
// 削除対象がない場合もエラーにならない。
type CleanupJob struct {
	purger  Purger
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewCleanupJob は新しいCleanupJobを生成する。collectorがnilの場合はメトリクスを記録しない。
func NewCleanupJob(purger Purger, logger *slog.Logger, collector metrics.MetricsCollector) *CleanupJob {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &CleanupJob{
		purger:  purger,
		logger:  logger,
		metrics: collector,
	}
}

// Run は期限切れセッションを1回削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.purger.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	j.metrics.RecordSessionsPurged(deleted)
	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// Start は指定間隔でRunを繰り返す。起動直後に1回実行し、
// コンテキストがキャンセルされるまで継続する。個々の失敗では停止しない。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("セッションクリーンアップを開始しました",
		slog.Duration("interval", interval),
	)

	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("セッションクリーンアップを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
