package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// PrunerConfig contains retention configuration for audit records.
type PrunerConfig struct {
	// RetentionPeriod is how long records are kept. Records older than
	// now-RetentionPeriod are deleted on each pruning cycle.
	// Default: 30 days
	RetentionPeriod time.Duration

	// Schedule is a standard cron expression controlling when pruning
	// runs (e.g. "0 3 * * *" for daily at 3 AM). Empty disables the
	// scheduler; Prune can still be invoked manually.
	Schedule string
}

// DefaultPrunerConfig returns the default retention configuration.
func DefaultPrunerConfig() *PrunerConfig {
	return &PrunerConfig{
		RetentionPeriod: 30 * 24 * time.Hour,
		Schedule:        "0 3 * * *",
	}
}

// Pruner deletes expired audit records, optionally on a cron schedule.
type Pruner struct {
	storage Storage
	config  *PrunerConfig
	cron    *cron.Cron
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewPruner creates a pruner over the given storage backend.
func NewPruner(storage Storage, config *PrunerConfig) *Pruner {
	if config == nil {
		config = DefaultPrunerConfig()
	}
	return &Pruner{
		storage: storage,
		config:  config,
		cron:    cron.New(),
		logger:  slog.Default().With("component", "authz.audit.pruner"),
	}
}

// Prune deletes records older than the retention period and returns the
// number deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-p.config.RetentionPeriod)
	deleted, err := p.storage.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit pruning failed: %w", err)
	}
	return deleted, nil
}

// Start begins scheduled pruning. If no schedule is configured it does
// nothing. The scheduler stops when ctx is cancelled or Stop is called.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config.Schedule == "" {
		p.logger.Info("audit prune schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(p.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", p.config.Schedule, err)
	}

	if _, err := p.cron.AddFunc(p.config.Schedule, func() {
		p.runPruning(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule audit pruning: %w", err)
	}

	p.cron.Start()
	p.running = true

	p.logger.Info("audit retention scheduler started",
		"schedule", p.config.Schedule,
		"retention", p.config.RetentionPeriod.String(),
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// runPruning executes one pruning cycle.
func (p *Pruner) runPruning(ctx context.Context) {
	deleted, err := p.Prune(ctx)
	if err != nil {
		p.logger.Error("scheduled audit pruning failed", "error", err)
		return
	}

	if deleted > 0 {
		p.logger.Info("scheduled audit pruning completed", "deleted_count", deleted)
	} else {
		p.logger.Debug("scheduled audit pruning completed, no records deleted")
	}
}

// Stop stops the scheduler and waits for any running job to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron != nil && p.running {
		ctx := p.cron.Stop()
		<-ctx.Done()
		p.running = false
		p.logger.Info("audit retention scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (p *Pruner) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
