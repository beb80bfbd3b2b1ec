package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kcc-loanhub/internal/core/ledger"
	"kcc-loanhub/internal/pkg/logger"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// AuditReport is the outcome of one invariant sweep over the ledger
type AuditReport struct {
	RanAt      time.Time `json:"ran_at"`
	LoansSeen  int       `json:"loans_seen"`
	Violations []string  `json:"violations"`
}

// Healthy reports whether the sweep found no violation
func (r *AuditReport) Healthy() bool {
	return len(r.Violations) == 0
}

// AuditService periodically re-checks the accounting invariants of every loan.
// It only reads the ledger.
type AuditService struct {
	ledger LedgerReader
	log    *logrus.Entry

	mu   sync.Mutex
	cron *cron.Cron
	last *AuditReport
}

// NewAuditService creates a new audit service
func NewAuditService(ledger LedgerReader) *AuditService {
	return &AuditService{
		ledger: ledger,
		log:    logger.Component("audit"),
	}
}

// RunOnce sweeps the ledger and stores the report
func (s *AuditService) RunOnce(ctx context.Context) (*AuditReport, error) {
	loans, err := s.ledger.AllLoans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load loans: %w", err)
	}

	report := &AuditReport{
		RanAt:      time.Now().UTC(),
		LoansSeen:  len(loans),
		Violations: []string{},
	}
	for _, l := range loans {
		if err := ledger.CheckInvariants(l); err != nil {
			report.Violations = append(report.Violations, err.Error())
			s.log.WithField("loan_id", l.ID).WithError(err).Error("ledger invariant violated")
		}
	}
	s.log.WithFields(logrus.Fields{
		"loans":      report.LoansSeen,
		"violations": len(report.Violations),
	}).Info("ledger audit completed")

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
	return report, nil
}

// LastReport returns the most recent report, nil before the first run
func (s *AuditService) LastReport() *AuditReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Start schedules RunOnce on a cron spec. An empty spec disables the job.
func (s *AuditService) Start(spec string) error {
	if spec == "" {
		s.log.Info("ledger audit schedule disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("audit already started")
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.log.WithError(err).Error("ledger audit failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid audit schedule %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	s.log.WithField("schedule", spec).Info("🚀 Ledger audit started")
	return nil
}

// Stop waits for a running sweep to finish and stops the schedule
func (s *AuditService) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.log.Info("🛑 Ledger audit stopped")
}
