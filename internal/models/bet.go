package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bet is one user's single position in a market. PopularityRatio,
// IsContrarian and DynamicMultiplier are snapshotted at placement and
// never recomputed, even if the pool composition changes later.
// FinalPayout stays nil until the market resolves and is cleared again
// if the resolution is cancelled.
type Bet struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	UserID    string `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_bets_user_market"`
	MarketID  string `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_bets_user_market"`
	OutcomeID string `gorm:"type:varchar(64);not null;index"`

	Stake decimal.Decimal `gorm:"type:numeric(20,2);not null"`

	IsBlind           bool            `gorm:"not null;default:false"`
	PopularityRatio   decimal.Decimal `gorm:"type:numeric(8,4);not null"`
	IsContrarian      bool            `gorm:"not null;default:false"`
	DynamicMultiplier decimal.Decimal `gorm:"type:numeric(8,4);not null"`

	Won         bool             `gorm:"not null;default:false"`
	FinalPayout *decimal.Decimal `gorm:"type:numeric(20,2)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Bet) TableName() string {
	return "bets"
}
