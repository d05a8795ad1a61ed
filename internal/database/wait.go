package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Pinger はDBの疎通確認インターフェース。*sqlx.DBが実装する。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// WaitConfig は起動時の接続待ちの設定。
type WaitConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultWaitConfig は初回500ms、2倍ずつ増加、最大8秒で6回まで試行する設定を返す。
func DefaultWaitConfig() WaitConfig {
	return WaitConfig{
		MaxAttempts:    6,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
	}
}

// backoff は失敗回数に基づいて指数バックオフ遅延を計算する。
func (c WaitConfig) backoff(failures int) time.Duration {
	delay := c.InitialBackoff
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay > c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	return delay
}

// WaitForConnection はDBが応答するまで指数バックオフでPingを繰り返す。
// コンテナ起動直後のDB未準備に備えるためのもので、リクエスト処理中のリトライには使わない。
func WaitForConnection(ctx context.Context, db Pinger, cfg WaitConfig) error {
	attempts := max(cfg.MaxAttempts, 1)

	var lastErr error
	for i := 0; i < attempts; i++ {
		if lastErr = db.PingContext(ctx); lastErr == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		delay := cfg.backoff(i)
		slog.Warn("database not ready, retrying",
			slog.Int("attempt", i+1),
			slog.Duration("retry_in", delay),
			slog.String("error", lastErr.Error()),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("waiting for database: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("database unreachable after %d attempts: %w", attempts, lastErr)
}
