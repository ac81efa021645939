package bookings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/redis"
)

const lockScope = "booking"

// Locker linearizes mutations of a single booking. The returned func
// releases the lock.
type Locker interface {
	Lock(ctx context.Context, bookingID uuid.UUID) (func(), error)
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex serializes callers per booking within one process. Entries are
// dropped once nobody holds or waits on them.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*keyedEntry
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[uuid.UUID]*keyedEntry)}
}

func (m *KeyedMutex) Lock(ctx context.Context, bookingID uuid.UUID) (func(), error) {
	m.mu.Lock()
	entry, ok := m.entries[bookingID]
	if !ok {
		entry = &keyedEntry{ch: make(chan struct{}, 1)}
		m.entries[bookingID] = entry
	}
	entry.refs++
	m.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(bookingID, entry, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { m.release(bookingID, entry, true) })
	}, nil
}

func (m *KeyedMutex) release(bookingID uuid.UUID, entry *keyedEntry, held bool) {
	if held {
		<-entry.ch
	}
	m.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(m.entries, bookingID)
	}
	m.mu.Unlock()
}

// RedisLocker extends the in-process mutex with a SETNX lease so API and
// worker instances do not interleave on one booking.
type RedisLocker struct {
	store redis.LockStore
	local *KeyedMutex
	ttl   time.Duration
	retry time.Duration
}

func NewRedisLocker(store redis.LockStore, ttl time.Duration) (*RedisLocker, error) {
	if store == nil {
		return nil, fmt.Errorf("redis lock store required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		store: store,
		local: NewKeyedMutex(),
		ttl:   ttl,
		retry: 50 * time.Millisecond,
	}, nil
}

func (l *RedisLocker) Lock(ctx context.Context, bookingID uuid.UUID) (func(), error) {
	unlockLocal, err := l.local.Lock(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	key := l.store.LockKey(lockScope, bookingID.String())
	owner := uuid.NewString()
	for {
		ok, err := l.store.SetNX(ctx, key, owner, l.ttl)
		if err != nil {
			unlockLocal()
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire booking lock")
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			unlockLocal()
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, ctx.Err(), "booking is locked by another worker")
		case <-time.After(l.retry):
		}
	}

	return func() {
		// A cancelled request must still free the lease.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = l.store.CompareAndDelete(releaseCtx, key, owner)
		unlockLocal()
	}, nil
}
