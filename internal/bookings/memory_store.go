package bookings

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/pkg/db/models"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/outbox"
)

// MemoryStore keeps deep copies of bookings in process. It backs tests and
// single-node development.
type MemoryStore struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]*models.Booking
	ledger   []models.LedgerEvent
	events   []outbox.DomainEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bookings: make(map[uuid.UUID]*models.Booking)}
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, notFound(id)
	}
	return b.Clone(), nil
}

func (s *MemoryStore) Create(_ context.Context, b *models.Booking, uow *UnitOfWork) error {
	if err := checkDerived(b); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bookings[b.ID]; exists {
		return pkgerrors.New(pkgerrors.CodeConflict, "booking already exists")
	}
	s.bookings[b.ID] = b.Clone()
	s.append(uow)
	return nil
}

func (s *MemoryStore) Commit(_ context.Context, b *models.Booking, expectedVersion int64, uow *UnitOfWork) error {
	if err := checkDerived(b); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.bookings[b.ID]
	if !ok {
		return notFound(b.ID)
	}
	if current.Version != expectedVersion {
		return staleVersion(b.ID, expectedVersion)
	}
	b.Version = expectedVersion + 1
	s.bookings[b.ID] = b.Clone()
	s.append(uow)
	return nil
}

func (s *MemoryStore) ListPayoutCandidates(_ context.Context, limit, maxAttempts int) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []*models.Booking
	for _, b := range s.bookings {
		if payoutCandidate(b, maxAttempts) {
			matches = append(matches, b)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].UpdatedAt.Before(matches[j].UpdatedAt) })
	ids := make([]uuid.UUID, 0, len(matches))
	for _, b := range matches {
		if limit > 0 && len(ids) == limit {
			break
		}
		ids = append(ids, b.ID)
	}
	return ids, nil
}

// Ledger returns all ledger entries committed so far.
func (s *MemoryStore) Ledger() []models.LedgerEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.LedgerEvent(nil), s.ledger...)
}

// Events returns all outbox events committed so far.
func (s *MemoryStore) Events() []outbox.DomainEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]outbox.DomainEvent(nil), s.events...)
}

func (s *MemoryStore) append(uow *UnitOfWork) {
	s.ledger = append(s.ledger, uow.Ledger()...)
	s.events = append(s.events, uow.Events()...)
}
