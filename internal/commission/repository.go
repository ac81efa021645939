package commission

import (
	"context"
	"errors"
	"sort"
	"sync"

	"gorm.io/gorm"

	"github.com/fireguard/booking-payments/internal/ledger"
	"github.com/fireguard/booking-payments/pkg/db"
	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/outbox"
)

const versionConstraint = "ux_commission_configs_version"

// AppendRecord is one new config version plus its audit trail, persisted
// atomically.
type AppendRecord struct {
	Config models.CommissionConfig
	Audit  *models.LedgerEvent
	Event  *outbox.DomainEvent
}

// Repository stores append-only commission versions. Append fails with
// CodeConflict when the version already exists.
type Repository interface {
	Latest(ctx context.Context, serviceType enums.ServiceType) (*models.CommissionConfig, error)
	History(ctx context.Context, serviceType enums.ServiceType) ([]models.CommissionConfig, error)
	Append(ctx context.Context, record AppendRecord) error
}

type GormRepository struct {
	db     *gorm.DB
	ledger ledger.Repository
	outbox *outbox.Service
}

func NewGormRepository(conn *gorm.DB, ledgerRepo ledger.Repository, outboxSvc *outbox.Service) *GormRepository {
	return &GormRepository{db: conn, ledger: ledgerRepo, outbox: outboxSvc}
}

func (r *GormRepository) Latest(ctx context.Context, serviceType enums.ServiceType) (*models.CommissionConfig, error) {
	var cfg models.CommissionConfig
	err := r.db.WithContext(ctx).
		Where("service_type = ?", serviceType).
		Order("version DESC").
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (r *GormRepository) History(ctx context.Context, serviceType enums.ServiceType) ([]models.CommissionConfig, error) {
	var rows []models.CommissionConfig
	err := r.db.WithContext(ctx).
		Where("service_type = ?", serviceType).
		Order("version ASC").
		Find(&rows).Error
	return rows, err
}

func (r *GormRepository) Append(ctx context.Context, record AppendRecord) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg := record.Config
		if err := tx.Create(&cfg).Error; err != nil {
			return err
		}
		if record.Audit != nil && r.ledger != nil {
			audit := *record.Audit
			if err := r.ledger.WithTx(tx).Create(ctx, &audit); err != nil {
				return err
			}
		}
		if record.Event != nil && r.outbox != nil {
			if err := r.outbox.Emit(ctx, tx, *record.Event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, versionConstraint) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "commission version already exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append commission config")
	}
	return nil
}

// MemoryRepository keeps versions in process. Readers get copies of the
// slice so a concurrent Append never changes what they observed.
type MemoryRepository struct {
	mu       sync.RWMutex
	versions map[enums.ServiceType][]models.CommissionConfig
	audits   []models.LedgerEvent
	events   []outbox.DomainEvent
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{versions: make(map[enums.ServiceType][]models.CommissionConfig)}
}

func (r *MemoryRepository) Latest(_ context.Context, serviceType enums.ServiceType) (*models.CommissionConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := r.versions[serviceType]
	if len(rows) == 0 {
		return nil, nil
	}
	latest := rows[len(rows)-1]
	return &latest, nil
}

func (r *MemoryRepository) History(_ context.Context, serviceType enums.ServiceType) ([]models.CommissionConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := r.versions[serviceType]
	out := make([]models.CommissionConfig, len(rows))
	copy(out, rows)
	return out, nil
}

func (r *MemoryRepository) Append(_ context.Context, record AppendRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg := record.Config
	rows := r.versions[cfg.ServiceType]
	for _, existing := range rows {
		if existing.Version == cfg.Version {
			return pkgerrors.New(pkgerrors.CodeConflict, "commission version already exists")
		}
	}
	next := make([]models.CommissionConfig, 0, len(rows)+1)
	next = append(next, rows...)
	next = append(next, cfg)
	sort.Slice(next, func(i, j int) bool { return next[i].Version < next[j].Version })
	r.versions[cfg.ServiceType] = next
	if record.Audit != nil {
		r.audits = append(r.audits, *record.Audit)
	}
	if record.Event != nil {
		r.events = append(r.events, *record.Event)
	}
	return nil
}

// Audits returns the recorded ledger entries.
func (r *MemoryRepository) Audits() []models.LedgerEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.LedgerEvent, len(r.audits))
	copy(out, r.audits)
	return out
}
