package scheduler

import (
	"os"
	"strconv"
	"time"
)

// EnvConfig — настройки планировщика из переменных окружения.
type EnvConfig struct {
	// Enabled — включено ли планирование (SCHEDULER_ENABLED, default: true).
	Enabled bool

	// PollInterval — интервал тиков (SCHEDULER_POLL_INTERVAL_MIN, default: 5m).
	PollInterval time.Duration

	// LockFailOpen — считать захват lease успешным при недоступном
	// хранилище замка (SCHEDULER_LOCK_FAIL_OPEN, default: true).
	LockFailOpen bool
}

// FromEnv читает настройки планировщика из окружения.
// Нераспознанные значения заменяются значениями по умолчанию.
func FromEnv() EnvConfig {
	cfg := EnvConfig{
		Enabled:      true,
		PollInterval: DefaultPollInterval,
		LockFailOpen: true,
	}

	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Enabled = b
		}
	}

	if v := os.Getenv("SCHEDULER_POLL_INTERVAL_MIN"); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m > 0 {
			cfg.PollInterval = time.Duration(m) * time.Minute
		}
	}

	if v := os.Getenv("SCHEDULER_LOCK_FAIL_OPEN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LockFailOpen = b
		}
	}

	return cfg
}
