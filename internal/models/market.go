package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market lifecycle statuses. Resolution is only legal from locked/open;
// cancellation of a resolution reverts the market to locked.
const (
	MarketStatusPending   = "pending"
	MarketStatusBlind     = "blind"
	MarketStatusOpen      = "open"
	MarketStatusLocked    = "locked"
	MarketStatusResolving = "resolving"
	MarketStatusResolved  = "resolved"
	MarketStatusCancelled = "cancelled"
)

const (
	MarketKindBinary = "binary"
	MarketKindRange  = "range"
)

// Metric types drive auto-resolution eligibility: critic-score markets
// wait 14 days after release, box-office markets 3 days.
const (
	MetricCriticScore = "critic_score"
	MetricBoxOffice   = "box_office"
)

type Market struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	Title     string `gorm:"type:text;not null"`
	FilmID    string `gorm:"type:varchar(100);index;not null"`
	FilmTitle string `gorm:"type:text;not null"`

	Kind       string           `gorm:"type:varchar(20);not null"`
	MetricType string           `gorm:"type:varchar(20);not null;index"`
	Threshold  *decimal.Decimal `gorm:"type:numeric(20,4)"`

	Status string `gorm:"type:varchar(20);not null;index"`

	ReleaseAt  time.Time  `gorm:"type:timestamptz;not null;index"`
	BlindUntil *time.Time `gorm:"type:timestamptz"`
	LocksAt    *time.Time `gorm:"type:timestamptz"`
	ResolvedAt *time.Time `gorm:"type:timestamptz"`

	ResolvedOutcomeID *string          `gorm:"type:varchar(64)"`
	ResolvedValue     *decimal.Decimal `gorm:"type:numeric(20,4)"`

	// Set by the auto-resolution scanner when external data cannot
	// decide the market (unavailable or below the confidence floor).
	ManualResolutionRequired bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Market) TableName() string {
	return "markets"
}
