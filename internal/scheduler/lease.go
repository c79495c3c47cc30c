package scheduler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Metronome/internal/domain"
	"github.com/shaiso/Metronome/internal/repo"
	"github.com/shaiso/Metronome/internal/telemetry"
)

// LeaseDuration — срок жизни lease. Больше интервала тиков (5 минут),
// поэтому здоровый лидер успевает продлить lease до истечения.
const LeaseDuration = 360 * time.Second

// LeaseLock — межпроцессный замок планирования поверх общей таблицы.
//
// Единственный примитив синхронизации между экземплярами сервиса.
// Все операции best-effort: ошибки хранилища логируются и не
// пробрасываются. Отдельный случай — захват при недоступном хранилище:
// при включённом failOpen он считается успешным (fail-open), чтобы
// отказ хранилища замка не останавливал планирование. Цена — на время
// отказа взаимное исключение не гарантируется.
type LeaseLock struct {
	store      LockStore
	logger     *slog.Logger
	key        string
	instanceID string
	duration   time.Duration
	failOpen   bool

	mu   sync.Mutex
	held bool
}

// LeaseLockConfig — конфигурация LeaseLock.
type LeaseLockConfig struct {
	Store  LockStore
	Logger *slog.Logger

	// Key — имя lease (default: domain.LeaseKeyScheduler).
	Key string

	// Duration — срок жизни lease (default: LeaseDuration).
	Duration time.Duration

	// FailOpen — считать захват успешным при недоступном хранилище.
	FailOpen bool
}

// NewLeaseLock создаёт LeaseLock с уникальным идентификатором экземпляра.
func NewLeaseLock(cfg LeaseLockConfig) (*LeaseLock, error) {
	if cfg.Store == nil {
		return nil, errors.New("lock store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	key := cfg.Key
	if key == "" {
		key = domain.LeaseKeyScheduler
	}

	duration := cfg.Duration
	if duration <= 0 {
		duration = LeaseDuration
	}

	return &LeaseLock{
		store:      cfg.Store,
		logger:     logger,
		key:        key,
		instanceID: newInstanceID(),
		duration:   duration,
		failOpen:   cfg.FailOpen,
	}, nil
}

// newInstanceID генерирует идентификатор экземпляра: время старта
// процесса плюс случайный суффикс. Уникален в пределах жизни процесса,
// не переживает рестарт.
func newInstanceID() string {
	raw := make([]byte, 4)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Sprintf("%d-%d", time.Now().Unix(), time.Now().UnixNano()%100000)
	}
	return fmt.Sprintf("%d-%s", time.Now().Unix(), hex.EncodeToString(raw))
}

// InstanceID возвращает идентификатор этого экземпляра.
func (l *LeaseLock) InstanceID() string {
	return l.instanceID
}

// Acquire пытается захватить lease.
//
// Возвращает true, если экземпляр владеет lease (включая повторный
// захват до истечения) либо сработал fail-open. Повторный захват
// владельцем срок не продлевает — для этого есть Renew.
func (l *LeaseLock) Acquire(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UTC()

	rec, err := l.store.Get(ctx, l.key)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		// Хранилище замка недоступно. Fail-open: планирование важнее
		// строгого взаимного исключения — дубликат job безвреден,
		// пропущенное окно нет.
		if l.failOpen {
			l.logger.Warn("lock store unreachable, failing open",
				"key", l.key,
				"error", err,
			)
			telemetry.RecordLeaseOperation("acquire", "fail_open")
			return true
		}
		l.logger.Warn("lock store unreachable, failing closed",
			"key", l.key,
			"error", err,
		)
		telemetry.RecordLeaseOperation("acquire", "error")
		return false
	}

	if rec != nil && !rec.IsExpired(now) {
		if rec.Holder == l.instanceID {
			// Уже владеем — идемпотентный повторный захват
			l.setHeld(true)
			telemetry.RecordLeaseOperation("acquire", "held")
			return true
		}
		l.setHeld(false)
		l.logger.Debug("lease held by another instance",
			"key", l.key,
			"holder", rec.Holder,
			"expires_at", rec.ExpiresAt,
		)
		telemetry.RecordLeaseOperation("acquire", "busy")
		return false
	}

	// Записи нет или она истекла — пытаемся захватить.
	// Условная запись: из нескольких конкурентов выигрывает один.
	acquired, err := l.store.TryAcquire(ctx, l.key, l.instanceID, now, now.Add(l.duration))
	if err != nil {
		l.logger.Warn("lease acquisition write failed",
			"key", l.key,
			"error", err,
		)
		telemetry.RecordLeaseOperation("acquire", "error")
		l.setHeld(false)
		return false
	}
	if !acquired {
		// Проиграли гонку за истёкшую lease
		l.logger.Debug("lost lease acquisition race", "key", l.key)
		telemetry.RecordLeaseOperation("acquire", "busy")
		l.setHeld(false)
		return false
	}

	l.logger.Info("lease acquired",
		"key", l.key,
		"instance_id", l.instanceID,
		"expires_at", now.Add(l.duration),
	)
	telemetry.RecordLeaseOperation("acquire", "ok")
	l.setHeld(true)
	return true
}

// Renew продлевает lease, если экземпляр считает себя владельцем.
//
// Если владелец сменился или запись исчезла (проиграли гонку после
// истечения) — локальное состояние сбрасывается, запись не
// пересоздаётся. Ошибки хранилища логируются и не пробрасываются.
func (l *LeaseLock) Renew(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return
	}

	now := time.Now().UTC()

	rec, err := l.store.Get(ctx, l.key)
	if errors.Is(err, repo.ErrNotFound) {
		l.logger.Warn("lease record missing on renew, leadership lost", "key", l.key)
		telemetry.RecordLeaseOperation("renew", "lost")
		l.setHeld(false)
		return
	}
	if err != nil {
		l.logger.Warn("lease renew read failed", "key", l.key, "error", err)
		telemetry.RecordLeaseOperation("renew", "error")
		return
	}

	if rec.Holder != l.instanceID {
		l.logger.Warn("lease taken over by another instance",
			"key", l.key,
			"holder", rec.Holder,
		)
		telemetry.RecordLeaseOperation("renew", "lost")
		l.setHeld(false)
		return
	}

	renewed, err := l.store.Renew(ctx, l.key, l.instanceID, now.Add(l.duration))
	if err != nil {
		l.logger.Warn("lease renew write failed", "key", l.key, "error", err)
		telemetry.RecordLeaseOperation("renew", "error")
		return
	}
	if !renewed {
		// Владелец сменился между чтением и записью
		telemetry.RecordLeaseOperation("renew", "lost")
		l.setHeld(false)
		return
	}

	telemetry.RecordLeaseOperation("renew", "ok")
}

// Release освобождает lease, если экземпляр считает себя владельцем.
// Чужую lease не трогает. Повторный вызов — no-op.
func (l *LeaseLock) Release(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return
	}
	l.setHeld(false)

	released, err := l.store.Release(ctx, l.key, l.instanceID)
	if err != nil {
		l.logger.Warn("lease release failed", "key", l.key, "error", err)
		telemetry.RecordLeaseOperation("release", "error")
		return
	}
	if !released {
		// Другой экземпляр уже перехватил lease — оставляем как есть
		telemetry.RecordLeaseOperation("release", "lost")
		return
	}

	l.logger.Info("lease released", "key", l.key, "instance_id", l.instanceID)
	telemetry.RecordLeaseOperation("release", "ok")
}

// LeaseStatus — диагностика состояния lease.
type LeaseStatus struct {
	// Exists — есть ли запись в хранилище.
	Exists bool `json:"exists"`

	// Holder — текущий владелец.
	Holder string `json:"holder,omitempty"`

	// ExpiresAt — момент истечения.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// ExpiresInSec — секунд до истечения (ноль — истекает прямо
	// сейчас, отрицательное — истекла).
	ExpiresInSec int64 `json:"expires_in_sec"`

	// IsHolder — владеет ли lease опрашивающий экземпляр.
	IsHolder bool `json:"is_holder"`

	// Error — ошибка чтения хранилища, если была.
	Error string `json:"error,omitempty"`
}

// Status возвращает диагностику lease. Только чтение.
func (l *LeaseLock) Status(ctx context.Context) LeaseStatus {
	rec, err := l.store.Get(ctx, l.key)
	if errors.Is(err, repo.ErrNotFound) {
		return LeaseStatus{}
	}
	if err != nil {
		return LeaseStatus{Error: err.Error()}
	}

	now := time.Now().UTC()
	return LeaseStatus{
		Exists:       true,
		Holder:       rec.Holder,
		ExpiresAt:    &rec.ExpiresAt,
		ExpiresInSec: int64(rec.ExpiresAt.Sub(now).Seconds()),
		IsHolder:     rec.IsHeldBy(l.instanceID, now),
	}
}

// setHeld обновляет локальный флаг владения и метрику.
// Вызывается под l.mu.
func (l *LeaseLock) setHeld(held bool) {
	l.held = held
	telemetry.SetLeaseHeld(held)
}
