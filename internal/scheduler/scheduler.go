// Package scheduler registers the periodic digest jobs. Digest delivery is
// not implemented yet; the jobs and their time windows are in place so the
// sending logic can slot in later.
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"tg_calendar_bot/internal/logging"
)

// Cron expressions for the digest jobs, evaluated in UTC.
const (
	morningSpec = "0 6 * * *"
	eveningSpec = "0 17 * * *"
	weeklySpec  = "0 6 * * 1"
)

// Scheduler owns the cron runner for the digest jobs.
type Scheduler struct {
	cron   *cron.Cron
	zone   *time.Location
	logger *logrus.Entry
}

// New constructs a Scheduler with the three digest jobs registered. digestTZ
// names the timezone the digest windows are computed in.
func New(digestTZ string, logger *logrus.Entry) (*Scheduler, error) {
	if logger == nil {
		logger = logging.Logger()
	}

	zone, err := time.LoadLocation(digestTZ)
	if err != nil {
		return nil, fmt.Errorf("load digest timezone: %w", err)
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		zone:   zone,
		logger: logger,
	}

	jobs := []struct {
		name string
		spec string
		run  func()
	}{
		{name: "morning_digest", spec: morningSpec, run: s.morningDigest},
		{name: "evening_digest", spec: eveningSpec, run: s.eveningDigest},
		{name: "weekly_digest", spec: weeklySpec, run: s.weeklyDigest},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, job.run); err != nil {
			return nil, fmt.Errorf("register %s: %w", job.name, err)
		}
	}

	return s, nil
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() error {
	if s == nil || s.cron == nil {
		return errors.New("scheduler is not initialized")
	}

	s.cron.Start()
	s.logger.WithField("event", "scheduler_start").Info("digest scheduler started")

	return nil
}

// Stop halts the cron runner and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	if s == nil || s.cron == nil {
		return
	}

	<-s.cron.Stop().Done()
	s.logger.WithField("event", "scheduler_stop").Info("digest scheduler stopped")
}

// TODO: wire the digest jobs to event listing and outbound delivery once the
// digest content format is settled.

func (s *Scheduler) morningDigest() {
	from, to := MorningWindow(time.Now(), s.zone)
	s.logger.WithFields(logging.Fields{
		"event": "morning_digest",
		"from":  from,
		"to":    to,
	}).Debug("morning digest tick")
}

func (s *Scheduler) eveningDigest() {
	from, to := EveningWindow(time.Now(), s.zone)
	s.logger.WithFields(logging.Fields{
		"event": "evening_digest",
		"from":  from,
		"to":    to,
	}).Debug("evening digest tick")
}

func (s *Scheduler) weeklyDigest() {
	from, to := WeeklyWindow(time.Now(), s.zone)
	s.logger.WithFields(logging.Fields{
		"event": "weekly_digest",
		"from":  from,
		"to":    to,
	}).Debug("weekly digest tick")
}
