package domain

import "time"

// LeaseKeyScheduler — ключ единственной lease планировщика.
// Таблица leases хранит одну запись на ключ; запись планировщика —
// синглтон для всего кластера.
const LeaseKeyScheduler = "scheduler-leader"

// Lease — временное владение правом планирования.
//
// Lease хранится в общей таблице и является единственной точкой
// синхронизации между экземплярами сервиса. Истёкшая lease считается
// свободной независимо от того, кто записан в Holder.
type Lease struct {
	// Key — имя lease (синглтон на ключ).
	Key string `json:"key"`

	// Holder — идентификатор экземпляра-владельца.
	// Уникален в пределах жизни процесса, не переживает рестарт.
	Holder string `json:"holder"`

	// ExpiresAt — момент истечения. Авторитетное поле:
	// lease с ExpiresAt <= now свободна.
	ExpiresAt time.Time `json:"expires_at"`

	// LastRenewedAt — время последнего продления. Только для наблюдения.
	LastRenewedAt time.Time `json:"last_renewed_at"`

	// CreatedAt — время первого захвата. Только для наблюдения.
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired проверяет, истекла ли lease.
func (l *Lease) IsExpired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// IsHeldBy проверяет, владеет ли holder неистёкшей lease.
func (l *Lease) IsHeldBy(holder string, now time.Time) bool {
	return !l.IsExpired(now) && l.Holder == holder
}
