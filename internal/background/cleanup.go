package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SweepFunc deletes stale rows and reports how many went.
type SweepFunc func(ctx context.Context) (int64, error)

// Task is one named sweep run on every tick.
type Task struct {
	Name  string
	Sweep SweepFunc
}

// CleanupManager periodically prunes expired and revoked security records:
// refresh tokens, revoked JTIs, trusted devices and verification tokens.
type CleanupManager struct {
	tasks      []Task
	logger     *slog.Logger
	interval   time.Duration
	runTimeout time.Duration
	stopCh     chan struct{}
	stopOnce   sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(logger *slog.Logger, interval time.Duration, tasks ...Task) *CleanupManager {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupManager{
		tasks:      tasks,
		logger:     logger,
		interval:   interval,
		runTimeout: 30 * time.Second,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the periodic cleanup task. It blocks until Stop is called or
// ctx is cancelled.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce runs every task under a shared timeout. A failing task is logged and
// does not stop the others.
func (cm *CleanupManager) RunOnce(ctx context.Context) map[string]int64 {
	cleanupCtx, cancel := context.WithTimeout(ctx, cm.runTimeout)
	defer cancel()

	deleted := make(map[string]int64, len(cm.tasks))
	for _, task := range cm.tasks {
		rows, err := task.Sweep(cleanupCtx)
		if err != nil {
			cm.logger.Error("cleanup task failed", slog.String("task", task.Name), slog.Any("error", err))
			continue
		}
		deleted[task.Name] = rows
		if rows > 0 {
			cm.logger.Info("cleanup task completed", slog.String("task", task.Name), slog.Int64("rows_deleted", rows))
		}
	}
	return deleted
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}

// Sweeper is satisfied by the session and trusted-device services.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// RevokedTokenCleaner drops revoked JTIs whose tokens have expired anyway.
type RevokedTokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// VerificationSweeper removes used or expired email verification tokens.
type VerificationSweeper interface {
	Sweep(ctx context.Context, retention time.Duration) (int64, error)
}

// SecurityTasks is the standard sweep set shared by the server and the CLI.
func SecurityTasks(sessions Sweeper, revoked RevokedTokenCleaner, devices Sweeper, verification VerificationSweeper, retention time.Duration) []Task {
	return []Task{
		{Name: "refresh_tokens", Sweep: sessions.Sweep},
		{Name: "revoked_tokens", Sweep: revoked.CleanupExpiredTokens},
		{Name: "trusted_devices", Sweep: devices.Sweep},
		{Name: "email_verification_tokens", Sweep: func(ctx context.Context) (int64, error) {
			return verification.Sweep(ctx, retention)
		}},
	}
}
