package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/Metronome/internal/domain"
	"github.com/shaiso/Metronome/internal/repo"
)

// --- Fakes ---

var errStoreDown = errors.New("lock store down")

// fakeLockStore — in-memory реализация LockStore с условными записями,
// повторяющими семантику SQL в repo.LeaseRepo.
type fakeLockStore struct {
	mu          sync.Mutex
	leases      map[string]domain.Lease
	unreachable bool
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{leases: make(map[string]domain.Lease)}
}

func (s *fakeLockStore) Get(ctx context.Context, key string) (*domain.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unreachable {
		return nil, errStoreDown
	}
	rec, ok := s.leases[key]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &rec, nil
}

func (s *fakeLockStore) TryAcquire(ctx context.Context, key, holder string, now, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unreachable {
		return false, errStoreDown
	}
	if rec, ok := s.leases[key]; ok {
		if rec.ExpiresAt.After(now) && rec.Holder != holder {
			return false, nil
		}
	}
	s.leases[key] = domain.Lease{
		Key:           key,
		Holder:        holder,
		ExpiresAt:     expiresAt,
		LastRenewedAt: now,
		CreatedAt:     now,
	}
	return true, nil
}

func (s *fakeLockStore) Renew(ctx context.Context, key, holder string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unreachable {
		return false, errStoreDown
	}
	rec, ok := s.leases[key]
	if !ok || rec.Holder != holder {
		return false, nil
	}
	rec.ExpiresAt = expiresAt
	rec.LastRenewedAt = time.Now().UTC()
	s.leases[key] = rec
	return true, nil
}

func (s *fakeLockStore) Release(ctx context.Context, key, holder string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unreachable {
		return false, errStoreDown
	}
	rec, ok := s.leases[key]
	if !ok || rec.Holder != holder {
		return false, nil
	}
	delete(s.leases, key)
	return true, nil
}

func (s *fakeLockStore) holder(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.leases[key]
	if !ok {
		return ""
	}
	return rec.Holder
}

func (s *fakeLockStore) expiresAt(key string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leases[key].ExpiresAt
}

func (s *fakeLockStore) exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.leases[key]
	return ok
}

func (s *fakeLockStore) put(rec domain.Lease) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leases[rec.Key] = rec
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLock(t *testing.T, store LockStore, failOpen bool) *LeaseLock {
	t.Helper()
	lock, err := NewLeaseLock(LeaseLockConfig{
		Store:    store,
		Logger:   testLogger(),
		FailOpen: failOpen,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return lock
}

// --- LeaseLock Tests ---

func TestNewLeaseLock_RequiresStore(t *testing.T) {
	_, err := NewLeaseLock(LeaseLockConfig{})
	if err == nil {
		t.Error("expected error without store")
	}
}

func TestNewLeaseLock_Defaults(t *testing.T) {
	lock := newTestLock(t, newFakeLockStore(), false)

	if lock.key != domain.LeaseKeyScheduler {
		t.Errorf("expected default key %q, got %q", domain.LeaseKeyScheduler, lock.key)
	}
	if lock.duration != LeaseDuration {
		t.Errorf("expected default duration %v, got %v", LeaseDuration, lock.duration)
	}
	if lock.InstanceID() == "" {
		t.Error("instance id should be generated")
	}
}

func TestLeaseLock_AcquireWhenAbsent(t *testing.T) {
	store := newFakeLockStore()
	lock := newTestLock(t, store, false)

	if !lock.Acquire(context.Background()) {
		t.Fatal("acquire should succeed when no record exists")
	}

	if store.holder(domain.LeaseKeyScheduler) != lock.InstanceID() {
		t.Error("record should name this instance as holder")
	}

	remaining := time.Until(store.expiresAt(domain.LeaseKeyScheduler))
	if remaining < LeaseDuration-10*time.Second || remaining > LeaseDuration {
		t.Errorf("expiry should be ~%v from now, got %v", LeaseDuration, remaining)
	}
}

func TestLeaseLock_ReacquireIsIdempotent(t *testing.T) {
	store := newFakeLockStore()
	lock := newTestLock(t, store, false)

	if !lock.Acquire(context.Background()) {
		t.Fatal("first acquire should succeed")
	}
	firstExpiry := store.expiresAt(domain.LeaseKeyScheduler)

	if !lock.Acquire(context.Background()) {
		t.Fatal("re-acquire by holder should succeed")
	}

	// Повторный захват владельцем не продлевает срок
	if !store.expiresAt(domain.LeaseKeyScheduler).Equal(firstExpiry) {
		t.Error("re-acquire should not extend expiry")
	}
}

func TestLeaseLock_AcquireHeldByOther(t *testing.T) {
	store := newFakeLockStore()
	now := time.Now().UTC()
	store.put(domain.Lease{
		Key:       domain.LeaseKeyScheduler,
		Holder:    "other-instance",
		ExpiresAt: now.Add(5 * time.Minute),
	})

	lock := newTestLock(t, store, false)

	if lock.Acquire(context.Background()) {
		t.Error("acquire should fail while another holder is unexpired")
	}
	if store.holder(domain.LeaseKeyScheduler) != "other-instance" {
		t.Error("record should not be overwritten")
	}
}

func TestLeaseLock_AcquireExpired(t *testing.T) {
	store := newFakeLockStore()
	now := time.Now().UTC()
	store.put(domain.Lease{
		Key:       domain.LeaseKeyScheduler,
		Holder:    "dead-instance",
		ExpiresAt: now.Add(-time.Minute),
	})

	lock := newTestLock(t, store, false)

	if !lock.Acquire(context.Background()) {
		t.Fatal("acquire should take over an expired lease")
	}
	if store.holder(domain.LeaseKeyScheduler) != lock.InstanceID() {
		t.Error("holder should be replaced")
	}
}

func TestLeaseLock_AcquireExactExpiryBoundary(t *testing.T) {
	now := time.Now().UTC()
	// Запись с истечением ровно сейчас считается истекшей
	rec := domain.Lease{
		Key:       domain.LeaseKeyScheduler,
		Holder:    "dead-instance",
		ExpiresAt: now,
	}
	if !rec.IsExpired(now) {
		t.Fatal("lease expiring exactly now should count as expired")
	}
}

func TestLeaseLock_AcquireFailOpen(t *testing.T) {
	store := newFakeLockStore()
	store.unreachable = true

	lock := newTestLock(t, store, true)

	if !lock.Acquire(context.Background()) {
		t.Error("fail-open acquire should succeed when store is down")
	}

	// Fail-open не оставляет записи и не считает себя владельцем
	store.unreachable = false
	if store.exists(domain.LeaseKeyScheduler) {
		t.Error("fail-open should not create a record")
	}
	lock.mu.Lock()
	held := lock.held
	lock.mu.Unlock()
	if held {
		t.Error("fail-open should not mark the lease as held")
	}
}

func TestLeaseLock_AcquireFailClosed(t *testing.T) {
	store := newFakeLockStore()
	store.unreachable = true

	lock := newTestLock(t, store, false)

	if lock.Acquire(context.Background()) {
		t.Error("acquire should fail when store is down and fail-open is off")
	}
}

func TestLeaseLock_RenewExtendsExpiry(t *testing.T) {
	store := newFakeLockStore()
	lock := newTestLock(t, store, false)

	if !lock.Acquire(context.Background()) {
		t.Fatal("acquire should succeed")
	}
	firstExpiry := store.expiresAt(domain.LeaseKeyScheduler)

	time.Sleep(10 * time.Millisecond)
	lock.Renew(context.Background())

	if !store.expiresAt(domain.LeaseKeyScheduler).After(firstExpiry) {
		t.Error("renew should push expiry forward")
	}
	if store.holder(domain.LeaseKeyScheduler) != lock.InstanceID() {
		t.Error("renew should not change holder")
	}
}

func TestLeaseLock_RenewWithoutHoldIsNoop(t *testing.T) {
	store := newFakeLockStore()
	lock := newTestLock(t, store, false)

	lock.Renew(context.Background())

	if store.exists(domain.LeaseKeyScheduler) {
		t.Error("renew without hold should not create a record")
	}
}

func TestLeaseLock_RenewAfterTakeover(t *testing.T) {
	store := newFakeLockStore()
	lock := newTestLock(t, store, false)

	if !lock.Acquire(context.Background()) {
		t.Fatal("acquire should succeed")
	}

	// Другой экземпляр перехватил lease
	now := time.Now().UTC()
	store.put(domain.Lease{
		Key:       domain.LeaseKeyScheduler,
		Holder:    "usurper",
		ExpiresAt: now.Add(5 * time.Minute),
	})
	takenExpiry := store.expiresAt(domain.LeaseKeyScheduler)

	lock.Renew(context.Background())

	// Чужая запись нетронута, локальное состояние сброшено
	if store.holder(domain.LeaseKeyScheduler) != "usurper" {
		t.Error("renew must not steal the lease back")
	}
	if !store.expiresAt(domain.LeaseKeyScheduler).Equal(takenExpiry) {
		t.Error("renew must not touch a foreign record")
	}
	lock.mu.Lock()
	held := lock.held
	lock.mu.Unlock()
	if held {
		t.Error("local hold should be dropped after takeover")
	}
}

func TestLeaseLock_RenewAfterRecordVanished(t *testing.T) {
	store := newFakeLockStore()
	lock := newTestLock(t, store, false)

	if !lock.Acquire(context.Background()) {
		t.Fatal("acquire should succeed")
	}
	store.mu.Lock()
	delete(store.leases, domain.LeaseKeyScheduler)
	store.mu.Unlock()

	lock.Renew(context.Background())

	// Исчезнувшая запись не пересоздаётся
	if store.exists(domain.LeaseKeyScheduler) {
		t.Error("renew must not resurrect a vanished lease")
	}
}

func TestLeaseLock_ReleaseRemovesRecord(t *testing.T) {
	store := newFakeLockStore()
	lock := newTestLock(t, store, false)

	if !lock.Acquire(context.Background()) {
		t.Fatal("acquire should succeed")
	}

	lock.Release(context.Background())

	if store.exists(domain.LeaseKeyScheduler) {
		t.Error("release should remove the record")
	}
}

func TestLeaseLock_DoubleReleaseIsSafe(t *testing.T) {
	store := newFakeLockStore()
	lock := newTestLock(t, store, false)

	if !lock.Acquire(context.Background()) {
		t.Fatal("acquire should succeed")
	}

	lock.Release(context.Background())
	lock.Release(context.Background()) // no-op

	if store.exists(domain.LeaseKeyScheduler) {
		t.Error("record should stay removed")
	}
}

func TestLeaseLock_ReleaseAfterTakeover(t *testing.T) {
	store := newFakeLockStore()
	lock := newTestLock(t, store, false)

	if !lock.Acquire(context.Background()) {
		t.Fatal("acquire should succeed")
	}

	now := time.Now().UTC()
	store.put(domain.Lease{
		Key:       domain.LeaseKeyScheduler,
		Holder:    "usurper",
		ExpiresAt: now.Add(5 * time.Minute),
	})

	lock.Release(context.Background())

	if store.holder(domain.LeaseKeyScheduler) != "usurper" {
		t.Error("release must not delete a foreign record")
	}
}

func TestLeaseLock_AcquireRenewReleaseRoundTrip(t *testing.T) {
	store := newFakeLockStore()
	lock := newTestLock(t, store, false)
	ctx := context.Background()

	if !lock.Acquire(ctx) {
		t.Fatal("acquire should succeed")
	}
	lock.Renew(ctx)
	lock.Release(ctx)

	if store.exists(domain.LeaseKeyScheduler) {
		t.Error("round trip should leave no record behind")
	}
}

func TestLeaseLock_SingleWinner(t *testing.T) {
	store := newFakeLockStore()
	lockA := newTestLock(t, store, false)
	lockB := newTestLock(t, store, false)
	ctx := context.Background()

	okA := lockA.Acquire(ctx)
	okB := lockB.Acquire(ctx)

	if okA == okB {
		t.Fatalf("exactly one instance should win, got A=%v B=%v", okA, okB)
	}
}

func TestLeaseLock_Status(t *testing.T) {
	store := newFakeLockStore()
	lock := newTestLock(t, store, false)
	ctx := context.Background()

	status := lock.Status(ctx)
	if status.Exists {
		t.Error("status should report no record initially")
	}

	if !lock.Acquire(ctx) {
		t.Fatal("acquire should succeed")
	}

	status = lock.Status(ctx)
	if !status.Exists {
		t.Error("status should report an existing record")
	}
	if !status.IsHolder {
		t.Error("status should report this instance as holder")
	}
	if status.Holder != lock.InstanceID() {
		t.Errorf("expected holder %s, got %s", lock.InstanceID(), status.Holder)
	}
	if status.ExpiresInSec <= 0 {
		t.Errorf("expected positive expires_in_sec, got %d", status.ExpiresInSec)
	}
}

func TestLeaseLock_StatusExpiryBoundaryInJSON(t *testing.T) {
	store := newFakeLockStore()
	lock := newTestLock(t, store, false)

	// Запись истекает ровно сейчас: expires_in_sec равен нулю и
	// обязан присутствовать в сериализованном статусе
	store.put(domain.Lease{
		Key:       domain.LeaseKeyScheduler,
		Holder:    "other-instance",
		ExpiresAt: time.Now().UTC(),
	})

	status := lock.Status(context.Background())
	if !status.Exists {
		t.Fatal("status should report an existing record")
	}

	body, err := json.Marshal(status)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(body), `"expires_in_sec":`) {
		t.Errorf("expected expires_in_sec field in status JSON, got %s", body)
	}
}

func TestLeaseLock_StatusStoreError(t *testing.T) {
	store := newFakeLockStore()
	store.unreachable = true
	lock := newTestLock(t, store, false)

	status := lock.Status(context.Background())
	if status.Error == "" {
		t.Error("status should surface store errors")
	}
}
