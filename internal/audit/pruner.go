package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/revittco/mcpgate/internal/store"
)

// DefaultPruneInterval is how often expired audit records are deleted.
const DefaultPruneInterval = time.Hour

// Pruner deletes audit records older than the retention period on a
// fixed schedule.
type Pruner struct {
	store     store.AuditStore
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

func NewPruner(auditStore store.AuditStore, retention time.Duration, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{store: auditStore, retention: retention, logger: logger, now: time.Now}
}

// PruneOnce deletes records older than now minus the retention period.
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	return p.store.PruneAuditRecords(ctx, p.now().Add(-p.retention))
}

// Start prunes once, then every interval until Stop. A non-positive
// retention keeps records forever and schedules nothing.
func (p *Pruner) Start(interval time.Duration) {
	if p.retention <= 0 {
		return
	}
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cron != nil {
		return
	}

	job := cron.FuncJob(func() {
		n, err := p.PruneOnce(context.Background())
		if err != nil {
			p.logger.Error("audit prune failed", "error", err)
			return
		}
		if n > 0 {
			p.logger.Info("audit records pruned", "deleted", n, "retention", p.retention)
		}
	})
	job()

	p.cron = cron.New()
	p.cron.Schedule(cron.Every(interval), job)
	p.cron.Start()
}

// Stop halts the schedule and waits for a running prune to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
