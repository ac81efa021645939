package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fireguard/booking-payments/internal/ledger"
	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/outbox"
)

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// GormStore persists bookings with optimistic versioning. Children are
// upserted and the unit of work is written in the same transaction.
type GormStore struct {
	db     *gorm.DB
	ledger ledger.Repository
	outbox outboxEmitter
}

func NewGormStore(conn *gorm.DB, ledgerRepo ledger.Repository, emitter outboxEmitter) *GormStore {
	return &GormStore{db: conn, ledger: ledgerRepo, outbox: emitter}
}

func (s *GormStore) Get(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	err := s.db.WithContext(ctx).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("attempt ASC") }).
		Preload("Payout").
		Preload("Deliverables", func(db *gorm.DB) *gorm.DB { return db.Order("submitted_at ASC") }).
		Preload("RefundRequests", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&b, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	return &b, nil
}

func (s *GormStore) Create(ctx context.Context, b *models.Booking, uow *UnitOfWork) error {
	if err := checkDerived(b); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(b).Error; err != nil {
			return err
		}
		if err := s.saveChildren(tx, b); err != nil {
			return err
		}
		return s.writeUnitOfWork(ctx, tx, uow)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create booking")
	}
	return nil
}

func (s *GormStore) Commit(ctx context.Context, b *models.Booking, expectedVersion int64, uow *UnitOfWork) error {
	if err := checkDerived(b); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND version = ?", b.ID, expectedVersion).
			Updates(map[string]any{
				"status":             b.Status,
				"termination":        b.Termination,
				"termination_reason": b.TerminationReason,
				"version":            expectedVersion + 1,
				"updated_at":         time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return staleVersion(b.ID, expectedVersion)
		}
		if err := s.saveChildren(tx, b); err != nil {
			return err
		}
		return s.writeUnitOfWork(ctx, tx, uow)
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit booking")
	}
	b.Version = expectedVersion + 1
	return nil
}

func (s *GormStore) ListPayoutCandidates(ctx context.Context, limit, maxAttempts int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&models.Booking{}).
		Select("bookings.id").
		Joins("LEFT JOIN payouts ON payouts.booking_id = bookings.id").
		Where("bookings.status = ? AND bookings.termination = ?", enums.BookingStatusCompleted, enums.TerminationNone).
		Where(
			s.db.Where("payouts.id IS NULL AND EXISTS (SELECT 1 FROM payments WHERE payments.booking_id = bookings.id AND payments.status IN ? AND payments.amount_cents - payments.commission_cents - payments.refunded_cents > 0)",
				[]enums.PaymentStatus{enums.PaymentStatusSucceeded, enums.PaymentStatusPartiallyRefunded}).
				Or("payouts.status IN ? AND payouts.attempts < ?", []enums.PayoutStatus{enums.PayoutStatusScheduled, enums.PayoutStatusFailed}, maxAttempts),
		).
		Order("bookings.updated_at ASC").
		Limit(limit).
		Pluck("bookings.id", &ids).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payout candidates")
	}
	return ids, nil
}

func (s *GormStore) saveChildren(tx *gorm.DB, b *models.Booking) error {
	upsert := clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}
	for i := range b.Payments {
		b.Payments[i].BookingID = b.ID
		if err := tx.Omit(clause.Associations).Clauses(upsert).Create(&b.Payments[i]).Error; err != nil {
			return err
		}
	}
	if b.Payout != nil {
		b.Payout.BookingID = b.ID
		if err := tx.Omit(clause.Associations).Clauses(upsert).Create(b.Payout).Error; err != nil {
			return err
		}
	}
	for i := range b.Deliverables {
		b.Deliverables[i].BookingID = b.ID
		if err := tx.Omit(clause.Associations).Clauses(upsert).Create(&b.Deliverables[i]).Error; err != nil {
			return err
		}
	}
	for i := range b.RefundRequests {
		b.RefundRequests[i].BookingID = b.ID
		if err := tx.Omit(clause.Associations).Clauses(upsert).Create(&b.RefundRequests[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *GormStore) writeUnitOfWork(ctx context.Context, tx *gorm.DB, uow *UnitOfWork) error {
	if s.ledger != nil {
		repo := s.ledger.WithTx(tx)
		for _, entry := range uow.Ledger() {
			row := entry
			if err := repo.Create(ctx, &row); err != nil {
				return err
			}
		}
	}
	if s.outbox != nil {
		for _, event := range uow.Events() {
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
		}
	}
	return nil
}
