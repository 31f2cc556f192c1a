package cron

import (
	"context"
	"fmt"
	"log/slog"
)

// CounterResetter is the subset of the config store needed by the daily
// reset job. Defined here to avoid importing the store package.
type CounterResetter interface {
	ResetDailyCounters(ctx context.Context) (int, error)
}

// DailyResetJob zeroes every project's responses-today counter at midnight
// so daily rate-limit caps start fresh.
type DailyResetJob struct {
	Configs      CounterResetter
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "0 0 * * *"
}

// Compile-time interface check.
var _ Job = (*DailyResetJob)(nil)

// Name implements Job.
func (j *DailyResetJob) Name() string { return "daily_counter_reset" }

// Schedule implements Job.
func (j *DailyResetJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 0 * * *"
}

// Run resets all daily response counters.
func (j *DailyResetJob) Run(ctx context.Context) error {
	n, err := j.Configs.ResetDailyCounters(ctx)
	if err != nil {
		return fmt.Errorf("cron: reset daily counters: %w", err)
	}
	if n > 0 {
		j.Logger.Info("cron: daily response counters reset", "configs", n)
	}
	return nil
}
