package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/renehagen/ha-mcp-file-server/internal/logger"
	"github.com/robfig/cron/v3"
)

// cronParser is configured for standard 5-field cron (minute hour day month weekday)
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// DefaultPruneSchedule runs pruning nightly at 03:00.
const DefaultPruneSchedule = "0 3 * * *"

// DefaultRetention keeps audit entries for 90 days.
const DefaultRetention = 90 * 24 * time.Hour

// Pruner removes expired audit entries on a cron schedule.
type Pruner struct {
	store     *Store
	schedule  cron.Schedule
	retention time.Duration
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewPruner creates a pruner for the given store. An empty schedule or zero
// retention falls back to the defaults.
func NewPruner(store *Store, schedule string, retention time.Duration) (*Pruner, error) {
	if schedule == "" {
		schedule = DefaultPruneSchedule
	}
	if retention <= 0 {
		retention = DefaultRetention
	}

	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}

	return &Pruner{
		store:     store,
		schedule:  sched,
		retention: retention,
	}, nil
}

// Start begins the pruning loop.
func (p *Pruner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		for {
			next := p.schedule.Next(time.Now())
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				p.runPrune()
			}
		}
	}()

	logger.Printf("Audit pruning started (retention=%v)", p.retention)
}

// Stop halts the pruning loop.
func (p *Pruner) Stop() {
	if p.cancel != nil {
		p.cancel()
		p.wg.Wait()
		logger.Println("Audit pruning stopped")
	}
}

func (p *Pruner) runPrune() {
	removed, err := p.store.Prune(p.retention)
	if err != nil {
		logger.Error("Audit prune failed: %v", err)
		return
	}
	if removed > 0 {
		logger.Printf("Pruned %d expired audit entries", removed)
	}
}
