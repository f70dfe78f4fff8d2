package resync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"
)

// Reloader rebuilds state from the row store
type Reloader interface {
	Reload(ctx context.Context) error
}

// Scheduler reloads the roster on every occurrence of a recurrence rule
type Scheduler struct {
	rule     *rrule.RRule
	reloader Reloader
	logger   *zap.Logger
	now      func() time.Time
}

// New parses an RRULE such as "FREQ=HOURLY;INTERVAL=6". Rules without a
// DTSTART are anchored at start.
func New(ruleText string, start time.Time, reloader Reloader, logger *zap.Logger) (*Scheduler, error) {
	rule, err := rrule.StrToRRule(ruleText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse resync rule: %w", err)
	}

	if !strings.Contains(strings.ToUpper(ruleText), "DTSTART") {
		rule.DTStart(start)
	}

	return &Scheduler{
		rule:     rule,
		reloader: reloader,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Next returns the first occurrence strictly after t, or the zero time when
// the rule has no further occurrences
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.rule.After(t, false)
}

// Run reloads on each occurrence until ctx is cancelled. A failed reload is
// logged and the schedule continues.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next := s.Next(s.now())
		if next.IsZero() {
			s.logger.Info("Resync schedule has no further occurrences")
			return nil
		}

		s.logger.Debug("Next resync scheduled", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := s.reloader.Reload(ctx); err != nil {
			s.logger.Error("Scheduled resync failed", zap.Error(err))
			continue
		}
		s.logger.Info("Scheduled resync completed")
	}
}
