package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Metronome/internal/domain"
)

// LeaseRepo — хранилище lease-записей планировщика.
//
// Все записи выполняются с условием на текущее состояние строки,
// поэтому захват и продление выигрывает ровно один экземпляр —
// проигравший получает rows affected = 0, а не тихую перезапись.
type LeaseRepo struct {
	pool *pgxpool.Pool
}

// NewLeaseRepo создаёт новый LeaseRepo.
func NewLeaseRepo(pool *pgxpool.Pool) *LeaseRepo {
	return &LeaseRepo{pool: pool}
}

// Get возвращает lease по ключу.
func (r *LeaseRepo) Get(ctx context.Context, key string) (*domain.Lease, error) {
	var l domain.Lease
	err := r.pool.QueryRow(ctx, `
		SELECT key, holder, expires_at, last_renewed_at, created_at
		FROM leases
		WHERE key = $1
	`, key).Scan(&l.Key, &l.Holder, &l.ExpiresAt, &l.LastRenewedAt, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lease: %w", err)
	}
	return &l, nil
}

// TryAcquire пытается захватить lease до expiresAt.
//
// Запись проходит, только если строки нет, существующая lease истекла
// к моменту now, либо holder уже владеет ею (повторный захват).
// Возвращает false, если неистёкшей lease владеет другой экземпляр.
func (r *LeaseRepo) TryAcquire(ctx context.Context, key, holder string, now, expiresAt time.Time) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		INSERT INTO leases (key, holder, expires_at, last_renewed_at, created_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (key) DO UPDATE
		SET holder = EXCLUDED.holder,
		    expires_at = EXCLUDED.expires_at,
		    last_renewed_at = EXCLUDED.last_renewed_at,
		    created_at = EXCLUDED.created_at
		WHERE leases.expires_at <= $4
		   OR leases.holder = EXCLUDED.holder
	`, key, holder, expiresAt, now)
	if err != nil {
		return false, fmt.Errorf("acquire lease: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Renew продлевает lease до expiresAt, если holder всё ещё владеет ею.
// Возвращает false, если запись исчезла или владелец сменился.
func (r *LeaseRepo) Renew(ctx context.Context, key, holder string, expiresAt time.Time) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE leases
		SET expires_at = $3, last_renewed_at = NOW()
		WHERE key = $1 AND holder = $2
	`, key, holder, expiresAt)
	if err != nil {
		return false, fmt.Errorf("renew lease: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Release удаляет lease, если holder всё ещё владеет ею.
// Чужую lease не трогает.
func (r *LeaseRepo) Release(ctx context.Context, key, holder string) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM leases WHERE key = $1 AND holder = $2
	`, key, holder)
	if err != nil {
		return false, fmt.Errorf("release lease: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
