package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/edutrack/core"
)

const autoBackupTimeout = 2 * time.Hour

// Scheduler takes automatic backups on a cron schedule, then prunes the expired ones.
type Scheduler struct {
	cron   *cron.Cron
	mgr    *Manager
	logger core.Logger
}

func NewScheduler(mgr *Manager, schedule string, logger core.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		mgr:    mgr,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, errors.Wrapf(err, "scheduling automatic backups %q", schedule)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info(fmt.Sprintf("automatic backups scheduled, next run at %s", s.next().Format(time.RFC3339)))
}

// Stop stops the scheduler; the returned context is done once the running job completes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), autoBackupTimeout)
	defer cancel()
	if _, _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error(fmt.Sprintf("automatic backup: %v", err), err)
	}
}

// RunOnce takes one automatic backup and prunes the expired automatic backups.
func (s *Scheduler) RunOnce(ctx context.Context) (Backup, []Backup, error) {
	b, err := s.mgr.Create(ctx, NewBackup{Description: "Automatic backup", Type: TypeAuto})
	if err != nil {
		return Backup{}, nil, errors.Wrap(err, "creating automatic backup")
	}
	pruned, err := s.mgr.Prune(ctx)
	if err != nil {
		return b, pruned, errors.Wrap(err, "pruning automatic backups")
	}
	for _, p := range pruned {
		s.logger.Info(fmt.Sprintf("expired backup %s pruned", p.Filename))
	}
	return b, pruned, nil
}
