package badger

import (
	"context"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Maintenance runs the queue's periodic chores on a cron schedule: stall
// reclamation, the retention sweep and Badger value-log GC.
type Maintenance struct {
	queue  *JobQueue
	logger arbor.ILogger
	cron   *cron.Cron
}

// NewMaintenance wires the maintenance jobs. Schedules use the
// seconds-enabled cron format.
func NewMaintenance(queue *JobQueue, logger arbor.ILogger) *Maintenance {
	return &Maintenance{
		queue:  queue,
		logger: logger,
		cron:   cron.New(cron.WithSeconds()),
	}
}

// Start registers and starts the schedules: stall reclamation every 30
// seconds, retention sweep every 5 minutes.
func (m *Maintenance) Start() error {
	if _, err := m.cron.AddFunc("*/30 * * * * *", func() {
		if _, err := m.queue.ReclaimStalled(context.Background()); err != nil {
			m.logger.Warn().Err(err).Msg("Stall reclamation failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule stall reclamation: %w", err)
	}

	if _, err := m.cron.AddFunc("0 */5 * * * *", func() {
		if _, err := m.queue.Sweep(context.Background()); err != nil {
			m.logger.Warn().Err(err).Msg("Retention sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}

	if _, err := m.cron.AddFunc("30 */10 * * * *", m.runValueLogGC); err != nil {
		return fmt.Errorf("failed to schedule value-log GC: %w", err)
	}

	m.cron.Start()
	m.logger.Debug().Msg("Queue maintenance scheduled")
	return nil
}

// runValueLogGC reclaims value-log space. Badger rewrites at most one file
// per call, so loop until it reports nothing left to rewrite.
func (m *Maintenance) runValueLogGC() {
	for {
		err := m.queue.db.Store().Badger().RunValueLogGC(0.5)
		if err == nil {
			continue
		}
		if !errors.Is(err, badgerdb.ErrNoRewrite) {
			m.logger.Warn().Err(err).Msg("Value-log GC failed")
		}
		return
	}
}

// Stop halts the schedules and waits for running chores to finish.
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
}
