package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TasteMatch is a symmetric pairwise similarity record. UserAID is
// always the lexicographically smaller id so each pair is stored once.
// Rows are recomputed after every resolution and deleted when the pair
// no longer qualifies (score <= 0.6 or fewer than 3 markets in common).
type TasteMatch struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	UserAID string `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_taste_pair"`
	UserBID string `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_taste_pair"`

	Score           decimal.Decimal `gorm:"type:numeric(8,4);not null"`
	MarketsInCommon int             `gorm:"not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (TasteMatch) TableName() string {
	return "taste_matches"
}
