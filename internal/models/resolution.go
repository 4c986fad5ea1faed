package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Resolution sources.
const (
	ResolutionSourceCriticScore = "critic_score"
	ResolutionSourceBoxOffice   = "box_office"
	ResolutionSourceManual      = "manual"
)

// ResolvedBySystem tags resolutions created by the auto-resolution scanner.
const ResolvedBySystem = "system"

// Resolution is one-to-one with a resolved market. It is created once
// by the orchestrator and deleted only by explicit cancellation.
type Resolution struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	MarketID  string `gorm:"type:varchar(64);not null;uniqueIndex"`
	OutcomeID string `gorm:"type:varchar(64);not null"`

	ActualValue *decimal.Decimal `gorm:"type:numeric(20,4)"`

	ResolvedBy    string         `gorm:"type:varchar(64);not null"`
	DataSource    string         `gorm:"type:varchar(20);not null"`
	SourcePayload datatypes.JSON `gorm:"type:jsonb"`
	Note          string         `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Resolution) TableName() string {
	return "resolutions"
}
