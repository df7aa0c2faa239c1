// Package scheduler runs the digest job on a cron schedule.
package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"aidigest/internal/logger"
)

type Scheduler struct {
	cron *cron.Cron
	spec string
}

// New registers job under the standard 5-field cron spec. The job is not
// started until Start is called.
func New(spec string, job func()) (*Scheduler, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, job); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return &Scheduler{cron: c, spec: spec}, nil
}

func (s *Scheduler) Start() {
	logger.Info("scheduler started", "spec", s.spec)
	s.cron.Start()
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("scheduler stopped")
}
