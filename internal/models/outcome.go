package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome belongs to exactly one market. Binary markets carry two
// outcomes distinguished by OverThreshold; range markets carry one
// outcome per bracket [BracketMin, BracketMax). A nil bracket bound is
// open-ended. Outcomes are immutable once bets exist against them.
type Outcome struct {
	ID       string `gorm:"primaryKey;type:varchar(64)"`
	MarketID string `gorm:"type:varchar(64);index;not null"`
	Label    string `gorm:"type:text;not null"`
	SortOrd  int    `gorm:"not null;default:0"`

	OverThreshold *bool            `gorm:"default:null"`
	BracketMin    *decimal.Decimal `gorm:"type:numeric(20,4)"`
	BracketMax    *decimal.Decimal `gorm:"type:numeric(20,4)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Outcome) TableName() string {
	return "outcomes"
}
