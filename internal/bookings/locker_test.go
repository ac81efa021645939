package bookings

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeLockStore struct {
	mu      sync.Mutex
	values  map[string]string
	setErr  error
	deleted []string
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{values: map[string]string{}}
}

func (f *fakeLockStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return false, f.setErr
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeLockStore) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values[key] != value {
		return false, nil
	}
	delete(f.values, key)
	f.deleted = append(f.deleted, key)
	return true, nil
}

func (f *fakeLockStore) LockKey(scope, id string) string {
	return "lock:" + scope + ":" + id
}

func TestKeyedMutexSerializesPerBooking(t *testing.T) {
	locker := NewKeyedMutex()
	id := uuid.New()
	var inside int32
	var maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), id)
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()
	if maxInside != 1 {
		t.Fatalf("expected exclusive access, saw %d concurrent holders", maxInside)
	}
	locker.mu.Lock()
	defer locker.mu.Unlock()
	if len(locker.entries) != 0 {
		t.Fatalf("expected entries to be released, got %d", len(locker.entries))
	}
}

func TestKeyedMutexIndependentBookings(t *testing.T) {
	locker := NewKeyedMutex()
	unlockA, err := locker.Lock(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("lock a: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := locker.Lock(ctx, uuid.New())
	if err != nil {
		t.Fatalf("other booking should not block: %v", err)
	}
	unlockB()
}

func TestKeyedMutexHonorsContext(t *testing.T) {
	locker := NewKeyedMutex()
	id := uuid.New()
	unlock, _ := locker.Lock(context.Background(), id)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, id); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRedisLockerAcquireAndRelease(t *testing.T) {
	store := newFakeLockStore()
	locker, err := NewRedisLocker(store, time.Second)
	if err != nil {
		t.Fatalf("NewRedisLocker: %v", err)
	}
	id := uuid.New()

	unlock, err := locker.Lock(context.Background(), id)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	key := store.LockKey(lockScope, id.String())
	if _, held := store.values[key]; !held {
		t.Fatal("expected redis key to be set")
	}
	unlock()
	if len(store.deleted) != 1 || store.deleted[0] != key {
		t.Fatalf("expected key released, got %+v", store.deleted)
	}
}

func TestRedisLockerWaitsForForeignHolder(t *testing.T) {
	store := newFakeLockStore()
	locker, _ := NewRedisLocker(store, time.Second)
	locker.retry = 5 * time.Millisecond
	id := uuid.New()
	key := store.LockKey(lockScope, id.String())
	store.values[key] = "other-instance"

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, id); err == nil {
		t.Fatal("expected lock timeout while another instance holds the lease")
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		store.mu.Lock()
		delete(store.values, key)
		store.mu.Unlock()
	}()
	unlock, err := locker.Lock(context.Background(), id)
	if err != nil {
		t.Fatalf("expected lock after release: %v", err)
	}
	unlock()
}

func TestRedisLockerStoreError(t *testing.T) {
	store := newFakeLockStore()
	store.setErr = errors.New("redis down")
	locker, _ := NewRedisLocker(store, time.Second)
	if _, err := locker.Lock(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected store error")
	}
	if _, err := NewRedisLocker(nil, time.Second); err == nil {
		t.Fatal("expected nil store to fail")
	}
}
