// Package cleanup は期限切れセッションの削除ジョブを提供する。
// 期限切れセッションは認証時に無効として扱われるため、削除は容量回収のみを目的とする。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionPurger は期限切れセッションを一括削除するインターフェース。
// repository.SessionRepositoryが実装する。
type SessionPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// PurgeRecorder は削除件数を記録するインターフェース。metrics.Collectorが実装する。
type PurgeRecorder interface {
	RecordSessionsPurged(count int64)
}

// CleanupJob は期限切れセッションの削除ジョブ。
// 冪等で、削除対象がない場合もエラーにならない。
type CleanupJob struct {
	sessions SessionPurger
	recorder PurgeRecorder
	logger   *slog.Logger
}

// NewCleanupJob は新しいCleanupJobを生成する。recorderはnilでもよい。
func NewCleanupJob(sessions SessionPurger, recorder PurgeRecorder, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sessions: sessions,
		recorder: recorder,
		logger:   logger,
	}
}

// Run は期限切れセッションを削除し、削除件数を返す。
func (j *CleanupJob) Run(ctx context.Context) (int64, error) {
	start := time.Now()

	deletedCount, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	if j.recorder != nil {
		j.recorder.RecordSessionsPurged(deletedCount)
	}

	duration := time.Since(start)
	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return deletedCount, nil
}
