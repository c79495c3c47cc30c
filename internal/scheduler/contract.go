package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Metronome/internal/domain"
	"github.com/shaiso/Metronome/internal/mq"
)

// LockStore — хранилище lease-записей.
// Реализуется repo.LeaseRepo; в тестах подменяется in-memory фейком.
//
// Все мутации условные: запись проходит, только если состояние строки
// не изменилось с точки зрения владельца. Проигравший гонку получает
// false, а не тихую перезапись чужой lease.
type LockStore interface {
	Get(ctx context.Context, key string) (*domain.Lease, error)
	TryAcquire(ctx context.Context, key, holder string, now, expiresAt time.Time) (bool, error)
	Renew(ctx context.Context, key, holder string, expiresAt time.Time) (bool, error)
	Release(ctx context.Context, key, holder string) (bool, error)
}

// WorkStore — доступ к reports со стороны планировщика.
// Реализуется repo.ReportRepo.
type WorkStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Report, error)
	GetByOwner(ctx context.Context, id uuid.UUID, ownerID string) (*domain.Report, error)
	MarkDispatched(ctx context.Context, id uuid.UUID, ownerID string, nextRun, dispatchedAt time.Time) error
}

// Dispatcher — отправка jobs на генерацию в очередь.
// Реализуется mq.Publisher.
type Dispatcher interface {
	EnqueueReportJob(ctx context.Context, job mq.ReportJobPayload) (string, error)
	EnqueueReportJobs(ctx context.Context, jobs []mq.ReportJobPayload) ([]string, error)
	Close() error
}
