package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/bluele/gcache"
)

// SyncPath is where sibling services accept profile pushes.
const SyncPath = "/users/internal/sync_user"

// SyncConfig configures the profile syncer
type SyncConfig struct {
	Targets        []string
	Timeout        time.Duration
	FailureLogSize int
	APIKey         string
}

// SyncStats are cumulative counters since start.
type SyncStats struct {
	Dispatched int64 `json:"dispatched"`
	Succeeded  int64 `json:"succeeded"`
	Failed     int64 `json:"failed"`
}

// ProfileSyncer pushes new profiles to sibling services. Delivery is best
// effort: one attempt per target, no retry. Failures are logged and kept in a
// bounded LRU so operators can see them.
type ProfileSyncer struct {
	client   *http.Client
	targets  []string
	apiKey   string
	timeout  time.Duration
	failures gcache.Cache
	logger   *slog.Logger

	seq        atomic.Uint64
	dispatched atomic.Int64
	succeeded  atomic.Int64
	failed     atomic.Int64
	wg         sync.WaitGroup
}

// NewProfileSyncer builds a syncer. A nil client gets a default one.
func NewProfileSyncer(cfg SyncConfig, client *http.Client, logger *slog.Logger) *ProfileSyncer {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureLogSize <= 0 {
		cfg.FailureLogSize = 100
	}

	targets := make([]string, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		if t = strings.TrimRight(strings.TrimSpace(t), "/"); t != "" {
			targets = append(targets, t)
		}
	}

	return &ProfileSyncer{
		client:   client,
		targets:  targets,
		apiKey:   cfg.APIKey,
		timeout:  cfg.Timeout,
		failures: gcache.New(cfg.FailureLogSize).LRU().Build(),
		logger:   logger,
	}
}

// Dispatch starts one background delivery per target and returns at once.
// It must only be called after the user row has been committed.
func (p *ProfileSyncer) Dispatch(profile models.SyncProfile) {
	body, err := json.Marshal(profile)
	if err != nil {
		p.logger.Error("failed to encode sync profile", slog.Any("error", err))
		return
	}

	for _, target := range p.targets {
		p.dispatched.Add(1)
		p.wg.Add(1)
		go func(target string) {
			defer p.wg.Done()
			// Detached from the request: the caller may already have responded.
			ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
			defer cancel()

			status, err := p.send(ctx, target, body)
			if err != nil {
				p.recordFailure(target, profile.Email, status, err)
				return
			}
			p.succeeded.Add(1)
			p.logger.Debug("profile synced", slog.String("target", target))
		}(target)
	}
}

func (p *ProfileSyncer) send(ctx context.Context, target string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target+SyncPath, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("%w: unexpected status %d", models.ErrSyncFailed, resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func (p *ProfileSyncer) recordFailure(target, email string, status int, err error) {
	p.failed.Add(1)

	entry := models.SyncFailure{
		ID:         p.seq.Add(1),
		Target:     target,
		Email:      pkglogger.SanitizedEmail(email),
		StatusCode: status,
		Error:      err.Error(),
		OccurredAt: time.Now().UTC(),
	}
	if setErr := p.failures.Set(entry.ID, entry); setErr != nil {
		p.logger.Error("failed to record sync failure", slog.Any("error", setErr))
	}

	p.logger.Warn("profile sync failed",
		slog.String("target", target),
		slog.String("email", entry.Email),
		slog.Int("status_code", status),
		slog.Any("error", err))
}

// Failures returns the retained failures, newest first.
func (p *ProfileSyncer) Failures() []models.SyncFailure {
	all := p.failures.GetALL(false)

	out := make([]models.SyncFailure, 0, len(all))
	for _, v := range all {
		if f, ok := v.(models.SyncFailure); ok {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (p *ProfileSyncer) Stats() SyncStats {
	return SyncStats{
		Dispatched: p.dispatched.Load(),
		Succeeded:  p.succeeded.Load(),
		Failed:     p.failed.Load(),
	}
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (p *ProfileSyncer) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
