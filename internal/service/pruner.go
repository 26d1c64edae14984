package service

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/robfig/cron/v3"

	"github.com/dtroode/authlib-server/internal/logger"
	"github.com/dtroode/authlib-server/internal/metrics"
	"github.com/dtroode/authlib-server/internal/model"
)

const archivePrefix = "revocations/"

// Pruner periodically removes revocation records past their original expiry
// and hands them to an optional archive.
type Pruner struct {
	store   model.RevocationStore
	archive model.RecordArchive
	cron    *cron.Cron
	timeout time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *logger.Logger

	mu sync.Mutex
}

// NewPruner creates a pruner. archive may be nil.
func NewPruner(store model.RevocationStore, archive model.RecordArchive, timeout time.Duration, m *metrics.Metrics, logger *logger.Logger) *Pruner {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Pruner{
		store:   store,
		archive: archive,
		cron:    cron.New(),
		timeout: timeout,
		now:     time.Now,
		metrics: m,
		logger:  logger,
	}
}

// Start schedules RunOnce on schedule (cron syntax or "@every 1h").
func (p *Pruner) Start(schedule string) error {
	_, err := p.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		if _, err := p.RunOnce(ctx); err != nil {
			p.logger.Error("Pruner: scheduled prune failed",
				"error", err.Error())
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule prune job: %w", err)
	}

	p.cron.Start()
	p.logger.Info("Pruner: started",
		"schedule", schedule)

	return nil
}

// Stop waits for a running prune to finish or ctx to expire.
func (p *Pruner) Stop(ctx context.Context) error {
	done := p.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce deletes expired records and archives them. It returns the number removed.
func (p *Pruner) RunOnce(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now().UTC()
	records, err := p.store.Prune(ctx, now)
	if err != nil {
		return 0, model.NewStorageError(err)
	}

	p.metrics.LedgerPrunedTotal.Add(float64(len(records)))
	p.logger.Info("Pruner: expired revocations removed",
		"count", len(records))

	if p.archive == nil || len(records) == 0 {
		return len(records), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return len(records), fmt.Errorf("failed to encode revocation record: %w", err)
		}
	}

	name := archivePrefix + now.Format("20060102T150405Z") + ".jsonl"
	if err := p.archive.Archive(ctx, name, &buf); err != nil {
		p.logger.Error("Pruner: failed to archive pruned records",
			"object", name,
			"count", len(records),
			"error", err.Error())
		return len(records), fmt.Errorf("failed to archive pruned records: %w", err)
	}

	p.logger.Debug("Pruner: pruned records archived",
		"object", name)

	return len(records), nil
}
