package scheduler

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("SCHEDULER_ENABLED", "")
	t.Setenv("SCHEDULER_POLL_INTERVAL_MIN", "")
	t.Setenv("SCHEDULER_LOCK_FAIL_OPEN", "")

	cfg := FromEnv()

	if !cfg.Enabled {
		t.Error("scheduler should be enabled by default")
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Errorf("expected default poll interval %v, got %v", DefaultPollInterval, cfg.PollInterval)
	}
	if !cfg.LockFailOpen {
		t.Error("fail-open should be the default")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("SCHEDULER_POLL_INTERVAL_MIN", "1")
	t.Setenv("SCHEDULER_LOCK_FAIL_OPEN", "false")

	cfg := FromEnv()

	if cfg.Enabled {
		t.Error("scheduler should be disabled")
	}
	if cfg.PollInterval != time.Minute {
		t.Errorf("expected 1m poll interval, got %v", cfg.PollInterval)
	}
	if cfg.LockFailOpen {
		t.Error("fail-open should be off")
	}
}

func TestFromEnv_GarbageValuesFallBack(t *testing.T) {
	t.Setenv("SCHEDULER_ENABLED", "banana")
	t.Setenv("SCHEDULER_POLL_INTERVAL_MIN", "-3")
	t.Setenv("SCHEDULER_LOCK_FAIL_OPEN", "maybe")

	cfg := FromEnv()

	if !cfg.Enabled || cfg.PollInterval != DefaultPollInterval || !cfg.LockFailOpen {
		t.Error("unparseable values should fall back to defaults")
	}
}
