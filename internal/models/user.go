package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User carries only what the engine consumes: identity and a two-place
// currency balance. Profile concerns live elsewhere.
type User struct {
	ID          string          `gorm:"primaryKey;type:varchar(64)"`
	DisplayName string          `gorm:"type:text;not null"`
	Balance     decimal.Decimal `gorm:"type:numeric(20,2);not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
