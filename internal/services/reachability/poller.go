package reachability

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Checker reports whether the backend answers
type Checker interface {
	Health(ctx context.Context) error
}

// Poller polls a Checker on a cron schedule and feeds the result into a Monitor
type Poller struct {
	checker  Checker
	monitor  *Monitor
	schedule string
	timeout  time.Duration
	log      *zap.SugaredLogger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewPoller creates a poller. schedule accepts 5 or 6 field cron
// expressions and descriptors such as "@every 15s".
func NewPoller(checker Checker, monitor *Monitor, schedule string, timeout time.Duration) *Poller {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Poller{
		checker:  checker,
		monitor:  monitor,
		schedule: schedule,
		timeout:  timeout,
		log:      zap.S().Named("poller"),
	}
}

// Check runs one health check and updates the monitor
func (p *Poller) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.checker.Health(ctx)
	if err != nil {
		p.log.Debugw("health check failed", "error", err)
	}
	online := err == nil
	p.monitor.Set(online)
	return online
}

// Start checks once and then on every scheduled tick until ctx is done or Stop is called
func (p *Poller) Start(ctx context.Context) error {
	spec, err := normalizeSchedule(p.schedule)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cron != nil {
		return fmt.Errorf("poller already started")
	}

	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() {
		if ctx.Err() == nil {
			p.Check(ctx)
		}
	}); err != nil {
		return fmt.Errorf("invalid poll schedule %q: %w", p.schedule, err)
	}

	p.Check(ctx)
	c.Start()
	p.cron = c
	p.log.Infow("poller started", "schedule", spec)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()
	return nil
}

// Stop waits for a running check and stops the schedule
func (p *Poller) Stop() {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
		p.log.Info("poller stopped")
	}
}

// normalizeSchedule converts 5-field cron to 6-field format by prepending seconds.
// Descriptors (@every, @hourly, ...) are passed through.
func normalizeSchedule(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", fmt.Errorf("empty poll schedule")
	}

	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if strings.HasPrefix(expr, "@") {
		if _, err := parser.Parse(expr); err != nil {
			return "", fmt.Errorf("invalid poll schedule: %w", err)
		}
		return expr, nil
	}

	fields := strings.Fields(expr)
	switch len(fields) {
	case 6:
		if _, err := parser.Parse(expr); err != nil {
			return "", fmt.Errorf("invalid 6-field cron expression: %w", err)
		}
		return expr, nil
	case 5:
		if _, err := cron.ParseStandard(expr); err != nil {
			return "", fmt.Errorf("invalid 5-field cron expression: %w", err)
		}
		return "0 " + expr, nil
	}
	return "", fmt.Errorf("invalid cron expression: expected 5 or 6 fields, got %d", len(fields))
}
