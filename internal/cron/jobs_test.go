package cron

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/ronitrai27/looma-agent/internal/store"
)

func TestDailyResetJobDefaults(t *testing.T) {
	t.Parallel()

	j := &DailyResetJob{}
	if got := j.Name(); got != "daily_counter_reset" {
		t.Errorf("name = %q", got)
	}
	if got := j.Schedule(); got != "0 0 * * *" {
		t.Errorf("schedule = %q, want midnight", got)
	}

	j.ScheduleExpr = "30 2 * * *"
	if got := j.Schedule(); got != "30 2 * * *" {
		t.Errorf("schedule override = %q", got)
	}
}

func TestDailyResetJobRun(t *testing.T) {
	t.Parallel()

	configs := store.NewMemConfigStore()
	ctx := context.Background()

	for _, projectID := range []string{"proj_1", "proj_2"} {
		if _, err := configs.Toggle(ctx, projectID, true); err != nil {
			t.Fatalf("toggle: %v", err)
		}
		if err := configs.BumpAfterResponse(ctx, projectID); err != nil {
			t.Fatalf("bump: %v", err)
		}
	}

	j := &DailyResetJob{Configs: configs, Logger: slog.Default()}
	if err := j.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, projectID := range []string{"proj_1", "proj_2"} {
		cfg, _ := configs.Get(ctx, projectID)
		if cfg.ResponsesToday != 0 {
			t.Errorf("%s responses today = %d, want 0", projectID, cfg.ResponsesToday)
		}
	}
}

type failingResetter struct{}

func (failingResetter) ResetDailyCounters(context.Context) (int, error) {
	return 0, errors.New("db gone")
}

func TestDailyResetJobError(t *testing.T) {
	t.Parallel()

	j := &DailyResetJob{Configs: failingResetter{}, Logger: slog.Default()}
	if err := j.Run(context.Background()); err == nil {
		t.Fatal("expected error from failing store")
	}
}
