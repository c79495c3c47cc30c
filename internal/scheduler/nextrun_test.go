package scheduler

import (
	"testing"
	"time"

	"github.com/shaiso/Metronome/internal/domain"
)

// --- NextRun Tests ---

func TestNextRun_Interval(t *testing.T) {
	from := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	sched := &domain.ReportSchedule{IntervalHours: 6, Timezone: "UTC"}

	next, err := NextRun(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2025, 3, 10, 20, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
	if !next.After(from) {
		t.Error("next run must be strictly after from")
	}
}

func TestNextRun_IntervalDaily(t *testing.T) {
	from := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	sched := &domain.ReportSchedule{IntervalHours: 24, Timezone: "UTC"}

	next, err := NextRun(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2025, 3, 11, 14, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestNextRun_Cron(t *testing.T) {
	// Каждый день в 09:00
	from := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	sched := &domain.ReportSchedule{CronExpr: "0 9 * * *", Timezone: "UTC"}

	next, err := NextRun(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestNextRun_CronWithTimezone(t *testing.T) {
	// 09:00 по Москве (UTC+3, без переходов)
	from := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	sched := &domain.ReportSchedule{CronExpr: "0 9 * * *", Timezone: "Europe/Moscow"}

	next, err := NextRun(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 14:30 UTC = 17:30 MSK, следующие 09:00 MSK = 06:00 UTC завтра
	want := time.Date(2025, 3, 11, 6, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestNextRun_CronTakesPrecedenceOverInterval(t *testing.T) {
	from := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	sched := &domain.ReportSchedule{CronExpr: "0 9 * * *", IntervalHours: 6, Timezone: "UTC"}

	next, err := NextRun(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("cron should win over interval: expected %v, got %v", want, next)
	}
}

func TestNextRun_InvalidTimezoneFallsBackToUTC(t *testing.T) {
	from := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	sched := &domain.ReportSchedule{IntervalHours: 6, Timezone: "Mars/Olympus"}

	next, err := NextRun(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2025, 3, 10, 20, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected UTC fallback result %v, got %v", want, next)
	}
}

func TestNextRun_InvalidCron(t *testing.T) {
	sched := &domain.ReportSchedule{CronExpr: "not a cron", Timezone: "UTC"}

	_, err := NextRun(sched, time.Now())
	if err == nil {
		t.Error("expected error for invalid cron expression")
	}
}

func TestNextRun_EmptySchedule(t *testing.T) {
	sched := &domain.ReportSchedule{Timezone: "UTC"}

	_, err := NextRun(sched, time.Now())
	if err == nil {
		t.Error("expected error for schedule without cron or interval")
	}
}

func TestValidateCronExpr(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"0 9 * * *", false},
		{"*/15 * * * *", false},
		{"0 0 1 * *", false},
		{"", true},
		{"not a cron", true},
		{"99 99 * * *", true},
	}

	for _, tt := range tests {
		err := ValidateCronExpr(tt.expr)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateCronExpr(%q): got err=%v, wantErr=%v", tt.expr, err, tt.wantErr)
		}
	}
}

func TestInitialNextRun(t *testing.T) {
	sched := &domain.ReportSchedule{IntervalHours: 1, Timezone: "UTC"}

	next, err := InitialNextRun(sched)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.After(time.Now()) {
		t.Error("initial next run should be in the future")
	}
}
