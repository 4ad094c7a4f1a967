// internal/services/overdue_monitor.go
package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// OverdueMonitor periodically sweeps active loans past their deadline into
// the persisted overdue state. It runs until its context is cancelled. The
// sweep is idempotent and every transition happens under a row lock, so the
// monitor is safe to run alongside live finish/mark-lost traffic.
type OverdueMonitor struct {
	loans    *LoanService
	interval time.Duration
}

func NewOverdueMonitor(loans *LoanService, interval time.Duration) *OverdueMonitor {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	return &OverdueMonitor{
		loans:    loans,
		interval: interval,
	}
}

func (m *OverdueMonitor) Run(ctx context.Context) {
	t := time.NewTicker(m.interval)
	defer t.Stop()

	// Run once immediately
	m.sweepOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.sweepOnce(ctx)
		}
	}
}

func (m *OverdueMonitor) sweepOnce(ctx context.Context) {
	start := time.Now()

	flipped, err := m.loans.SweepOverdue(time.Now().UTC())

	fields := logrus.Fields{
		"op":         "overdue_sweep",
		"flipped":    len(flipped),
		"latency_ms": time.Since(start).Milliseconds(),
	}

	if err != nil {
		logrus.WithError(err).WithFields(fields).Error("Overdue sweep failed")
		return
	}

	if len(flipped) > 0 {
		logrus.WithFields(fields).Info("Overdue sweep marked loans")
	}
}
