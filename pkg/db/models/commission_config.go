package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fireguard/booking-payments/pkg/enums"
)

// CommissionConfig is one immutable version of a service type's platform
// commission rate. New rates append a new version.
type CommissionConfig struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ServiceType enums.ServiceType `gorm:"column:service_type;type:text;not null;uniqueIndex:ux_commission_configs_version"`
	Version     int               `gorm:"column:version;not null;uniqueIndex:ux_commission_configs_version"`
	Rate        decimal.Decimal   `gorm:"column:rate;type:numeric(6,4);not null"`
	ModifiedBy  uuid.UUID         `gorm:"column:modified_by;type:uuid;not null"`
	Reason      *string           `gorm:"column:reason"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}
