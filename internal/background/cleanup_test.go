package background

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOnce_ContinuesPastFailures(t *testing.T) {
	cm := NewCleanupManager(discardLogger(), time.Hour,
		Task{Name: "refresh_tokens", Sweep: func(ctx context.Context) (int64, error) { return 3, nil }},
		Task{Name: "revoked_tokens", Sweep: func(ctx context.Context) (int64, error) { return 0, errors.New("db down") }},
		Task{Name: "trusted_devices", Sweep: func(ctx context.Context) (int64, error) { return 1, nil }},
	)

	deleted := cm.RunOnce(context.Background())

	assert.Equal(t, map[string]int64{"refresh_tokens": 3, "trusted_devices": 1}, deleted)
}

func TestRunOnce_AppliesTimeout(t *testing.T) {
	cm := NewCleanupManager(discardLogger(), time.Hour, Task{
		Name: "slow",
		Sweep: func(ctx context.Context) (int64, error) {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return 0, nil
		},
	})

	cm.RunOnce(context.Background())
}

func TestStart_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	var runs atomic.Int32
	cm := NewCleanupManager(discardLogger(), 10*time.Millisecond, Task{
		Name: "count",
		Sweep: func(ctx context.Context) (int64, error) {
			runs.Add(1)
			return 0, nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cm.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not stop after cancel")
	}
}

func TestStop_IsIdempotent(t *testing.T) {
	cm := NewCleanupManager(discardLogger(), time.Hour)

	done := make(chan struct{})
	go func() {
		cm.Start(context.Background())
		close(done)
	}()

	cm.Stop()
	cm.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not stop")
	}
}

type fakeSweeper struct{ rows int64 }

func (f fakeSweeper) Sweep(ctx context.Context) (int64, error) { return f.rows, nil }

type fakeRevoked struct{}

func (fakeRevoked) CleanupExpiredTokens(ctx context.Context) (int64, error) { return 7, nil }

type fakeVerification struct{ retention time.Duration }

func (f *fakeVerification) Sweep(ctx context.Context, retention time.Duration) (int64, error) {
	f.retention = retention
	return 2, nil
}

func TestSecurityTasks(t *testing.T) {
	verification := &fakeVerification{}
	tasks := SecurityTasks(fakeSweeper{rows: 4}, fakeRevoked{}, fakeSweeper{rows: 1}, verification, 48*time.Hour)

	deleted := NewCleanupManager(discardLogger(), time.Hour, tasks...).RunOnce(context.Background())

	assert.Equal(t, map[string]int64{
		"refresh_tokens":            4,
		"revoked_tokens":            7,
		"trusted_devices":           1,
		"email_verification_tokens": 2,
	}, deleted)
	assert.Equal(t, 48*time.Hour, verification.retention)
}
