package scheduler

import (
	"github.com/peerfund/lending-service/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// reminderWindowDays is how far ahead of the repayment deadline borrowers
// are reminded.
const reminderWindowDays = 7

// Scheduler runs the periodic maintenance jobs: defaulting overdue loans and
// reminding borrowers of upcoming deadlines.
type Scheduler struct {
	svc  *service.Service
	log  *logrus.Logger
	cron *cron.Cron
}

// NewScheduler initializes the cron jobs without starting them
func NewScheduler(svc *service.Service, log *logrus.Logger) (*Scheduler, error) {
	s := &Scheduler{
		svc:  svc,
		log:  log,
		cron: cron.New(),
	}
	if _, err := s.cron.AddFunc("@hourly", s.sweepOverdue); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc("@daily", s.sendReminders); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins running the jobs in their own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started")
}

// Stop halts the jobs, waiting for any in flight to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Scheduler stopped")
}

func (s *Scheduler) sweepOverdue() {
	defaulted, err := s.svc.SweepOverdue()
	if err != nil {
		s.log.Errorf("Overdue sweep failed: %v", err)
		return
	}
	if defaulted > 0 {
		s.log.Infof("Overdue sweep defaulted %d agreements", defaulted)
	}
}

func (s *Scheduler) sendReminders() {
	sent, err := s.svc.SendPaymentReminders(reminderWindowDays)
	if err != nil {
		s.log.Errorf("Reminder job failed: %v", err)
		return
	}
	if sent > 0 {
		s.log.Infof("Sent %d payment reminders", sent)
	}
}
