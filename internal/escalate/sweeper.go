package escalate

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ishan121028/RadiologyAI/internal/metrics"
	"github.com/ishan121028/RadiologyAI/internal/models"
)

// AlertSource lists alerts still awaiting acknowledgement.
type AlertSource interface {
	ListUnacknowledged(ctx context.Context) ([]*models.Alert, error)
}

// EscalationNotifier receives alerts that have crossed their escalation
// deadline.
type EscalationNotifier interface {
	Escalate(ctx context.Context, alert *models.Alert) error
}

// Sweeper periodically scans for overdue unacknowledged RED/ORANGE alerts
// and hands them to the notifier. Escalation-due is a computed state: the
// sweeper stores nothing on the alert, it only remembers which IDs it has
// already paged so an overdue alert is escalated once, not every sweep.
type Sweeper struct {
	source   AlertSource
	notifier EscalationNotifier
	interval time.Duration

	mu       sync.Mutex
	notified map[string]struct{}

	now func() time.Time
}

// NewSweeper creates a sweeper. An interval of zero selects 30 seconds.
func NewSweeper(source AlertSource, notifier EscalationNotifier, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{
		source:   source,
		notifier: notifier,
		interval: interval,
		notified: make(map[string]struct{}),
		now:      time.Now,
	}
}

// Run sweeps on the configured interval until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx, s.now()); err != nil {
				log.Printf("escalation sweep: %v", err)
			}
		}
	}
}

// Sweep escalates every overdue unacknowledged alert not yet paged.
// Returns the number of alerts escalated in this pass.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	alerts, err := s.source.ListUnacknowledged(ctx)
	if err != nil {
		return 0, err
	}

	escalated := 0
	for _, alert := range alerts {
		if !alert.NeedsEscalation(now) {
			continue
		}
		if s.alreadyNotified(alert.ID) {
			continue
		}

		if s.notifier != nil {
			if err := s.notifier.Escalate(ctx, alert); err != nil {
				// Leave the ID unmarked so the next sweep retries.
				log.Printf("escalate %s to %s: %v", alert.ID, alert.EscalationTarget, err)
				continue
			}
		}

		s.markNotified(alert.ID)
		metrics.AlertEscalationsTotal.WithLabelValues(string(alert.Level)).Inc()
		log.Printf("alert %s (%s) unacknowledged past deadline, escalated to %s",
			alert.ID, alert.Level, alert.EscalationTarget)
		escalated++
	}
	return escalated, nil
}

func (s *Sweeper) alreadyNotified(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.notified[id]
	return ok
}

func (s *Sweeper) markNotified(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notified[id] = struct{}{}
}
