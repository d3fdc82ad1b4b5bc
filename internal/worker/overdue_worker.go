package worker

import (
	"context"
	"time"

	"taskboard/internal/logger"
	"taskboard/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultInterval = 5 * time.Minute
const defaultBatchSize = 100

// OverdueWorker periodically scans for incomplete tasks whose due date has
// passed and logs a per-owner digest. Overdue is derived state here, never
// written back to the rows.
type OverdueWorker struct {
	repo      repository.TaskRepository
	interval  time.Duration
	batchSize int
}

func NewOverdueWorker(repo repository.TaskRepository, interval time.Duration, batchSize int) *OverdueWorker {
	if interval <= 0 {
		interval = defaultInterval
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &OverdueWorker{
		repo:      repo,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (w *OverdueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-ctx.Done():
			logger.Info("overdue worker stopping")
			return
		}
	}
}

func (w *OverdueWorker) Check(ctx context.Context) {
	start := time.Now()

	tasks, err := w.repo.QueryDueBefore(ctx, start, w.batchSize)
	if err != nil {
		logger.Warn("overdue scan failed", zap.Error(err))
		return
	}

	byOwner := make(map[uuid.UUID]int)
	for i := range tasks {
		byOwner[tasks[i].OwnerID]++
	}

	for owner, count := range byOwner {
		logger.Info("overdue digest",
			zap.String("owner_id", owner.String()),
			zap.Int("overdue", count))
	}

	logger.Debug("overdue scan finished",
		zap.Int("checked", len(tasks)),
		zap.Int("owners", len(byOwner)),
		zap.Duration("elapsed", time.Since(start)))
}
