package database

import (
	"context"
	"errors"
	"testing"
	"time"
)

type flakyPinger struct {
	failures int
	calls    int
}

func (p *flakyPinger) PingContext(ctx context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

func fastWaitConfig(attempts int) WaitConfig {
	return WaitConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}
}

func TestWaitForConnection_SucceedsAfterRetries(t *testing.T) {
	p := &flakyPinger{failures: 2}

	if err := WaitForConnection(context.Background(), p, fastWaitConfig(5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.calls != 3 {
		t.Errorf("calls = %d, want 3", p.calls)
	}
}

func TestWaitForConnection_GivesUpAfterMaxAttempts(t *testing.T) {
	p := &flakyPinger{failures: 100}

	err := WaitForConnection(context.Background(), p, fastWaitConfig(3))
	if err == nil {
		t.Fatal("expected error")
	}
	if p.calls != 3 {
		t.Errorf("calls = %d, want 3", p.calls)
	}
}

func TestWaitForConnection_StopsOnContextCancel(t *testing.T) {
	p := &flakyPinger{failures: 100}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := WaitConfig{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}
	if err := WaitForConnection(ctx, p, cfg); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestWaitConfig_Backoff(t *testing.T) {
	cfg := DefaultWaitConfig()

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, time.Second},
		{2, 2 * time.Second},
		{4, 8 * time.Second},
		{10, 8 * time.Second},
	}
	for _, tt := range tests {
		if got := cfg.backoff(tt.failures); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}
