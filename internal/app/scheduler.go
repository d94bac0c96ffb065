/**
 * @description
 * Optional cron schedule mode: wraps the single-run orchestrator in an
 * in-process scheduler for deployments without an external cron. Runs stay
 * strictly sequential; a tick that fires while a run is still in flight is
 * skipped, preserving the single-writer assumption on the ledger file.
 */

package app

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the periodic watcher runs.
type Scheduler struct {
	cron     *cron.Cron
	service  *Service
	schedule string
}

// NewScheduler creates a scheduler that fires Run on the given cron
// expression.
func NewScheduler(service *Service, schedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(log.Default())
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	return &Scheduler{
		cron:     c,
		service:  service,
		schedule: schedule,
	}
}

// Start registers the watcher job and starts the cron scheduler.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		summary, err := s.service.Run(context.Background())
		if err != nil {
			log.Printf("level=error component=scheduler msg=\"scheduled run failed\" err=%v", err)
			return
		}
		log.Printf("level=info component=scheduler msg=\"scheduled run complete\" fetched=%d issued=%d unmatched=%d mismatched=%d failed=%d",
			summary.Fetched, summary.Issued, summary.Unmatched, summary.AmountMismatch, summary.IssuanceFailed)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("level=info component=scheduler msg=\"watcher scheduled\" schedule=%q", s.schedule)
	return nil
}

// Stop gracefully stops the cron scheduler. The returned context is done
// once any in-flight run has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
