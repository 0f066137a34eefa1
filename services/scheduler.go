package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Scheduler runs the periodic catalogue refresh and idle session sweep.
type Scheduler struct {
	cron      *cron.Cron
	catalogue *Catalogue
	sessions  *SessionStore
	timeout   time.Duration
}

// NewScheduler registers the jobs. refreshSpec is a cron spec ("@every 5m");
// the sweep runs every sweepEvery.
func NewScheduler(catalogue *Catalogue, sessions *SessionStore, refreshSpec string, sweepEvery time.Duration) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		catalogue: catalogue,
		sessions:  sessions,
		timeout:   30 * time.Second,
	}

	if _, err := s.cron.AddFunc(refreshSpec, s.RefreshCatalogue); err != nil {
		return nil, fmt.Errorf("invalid catalogue refresh spec %q: %w", refreshSpec, err)
	}
	s.cron.Schedule(cron.Every(sweepEvery), cron.FuncJob(s.SweepSessions))
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.WithField("jobs", len(s.cron.Entries())).Info("Scheduler started")
}

// Stop halts the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info("Scheduler stopped")
}

func (s *Scheduler) RefreshCatalogue() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	// Fetch logs its own failures.
	_ = s.catalogue.Fetch(ctx)
}

func (s *Scheduler) SweepSessions() {
	if n := s.sessions.Sweep(); n > 0 {
		log.WithFields(log.Fields{"expired": n, "active": s.sessions.Len()}).Info("Expired idle sessions")
	}
}
