// Package notifier provides notification dispatching for clinical alerts.
package notifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/ishan121028/RadiologyAI/internal/models"
)

// Notice is one notification event: a new critical alert or an escalation
// of an alert whose acknowledgement deadline passed.
type Notice struct {
	Alert     *models.Alert
	Escalated bool
}

// Notifier is the interface for all notification channels.
type Notifier interface {
	// Name returns the notifier name (e.g., "email", "slack").
	Name() string
	// Send delivers one notice.
	Send(ctx context.Context, notice *Notice) error
	// Close releases any resources.
	Close() error
}

// Dispatcher manages multiple notifiers and fans notices out to them.
type Dispatcher struct {
	mu          sync.RWMutex
	notifiers   map[string]Notifier
	rateLimiter *RateLimiter
}

// NewDispatcher creates a dispatcher with default rate limiting.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		notifiers:   make(map[string]Notifier),
		rateLimiter: NewRateLimiter(DefaultRateLimitConfig()),
	}
}

// NewDispatcherWithRateLimit creates a dispatcher with custom rate limit
// configuration.
func NewDispatcherWithRateLimit(config RateLimitConfig) *Dispatcher {
	return &Dispatcher{
		notifiers:   make(map[string]Notifier),
		rateLimiter: NewRateLimiter(config),
	}
}

// Register adds a notifier to the dispatcher.
func (d *Dispatcher) Register(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers[n.Name()] = n
}

// Unregister removes a notifier from the dispatcher.
func (d *Dispatcher) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.notifiers, name)
}

// Get returns a notifier by name.
func (d *Dispatcher) Get(name string) (Notifier, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.notifiers[name]
	return n, ok
}

// ErrRateLimited is returned when a notification is dropped due to rate
// limiting. Escalations are never rate limited.
var ErrRateLimited = fmt.Errorf("notification rate limited")

// DispatchAll sends a notice to every registered notifier. New-alert
// notices count against the rate limit; escalations always go through.
func (d *Dispatcher) DispatchAll(ctx context.Context, notice *Notice) error {
	limited := !notice.Escalated && d.rateLimiter != nil
	if limited && !d.rateLimiter.Allow() {
		return ErrRateLimited
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var errs []error
	delivered := 0
	for name, n := range d.notifiers {
		if err := n.Send(ctx, notice); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		} else {
			delivered++
		}
	}

	if len(errs) > 0 {
		// A notice no channel delivered should not burn rate budget.
		if limited && delivered == 0 {
			d.rateLimiter.Release()
		}
		return fmt.Errorf("notification errors: %v", errs)
	}
	return nil
}

// Escalate delivers an overdue alert to all channels. It satisfies the
// escalation sweeper's notifier contract.
func (d *Dispatcher) Escalate(ctx context.Context, alert *models.Alert) error {
	return d.DispatchAll(ctx, &Notice{Alert: alert, Escalated: true})
}

// RateLimitStats returns the rate limiter statistics.
func (d *Dispatcher) RateLimitStats() RateLimitStats {
	if d.rateLimiter == nil {
		return RateLimitStats{}
	}
	return d.rateLimiter.Stats()
}

// Close closes all registered notifiers.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for name, n := range d.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	d.notifiers = make(map[string]Notifier)

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
