package models

import "time"

// Trendsetter event kinds and their point values. Placement-time awards
// can stack (+3 max); resolution-time awards only apply to winning bets
// and stack to +7, so a single bet tops out at +10 across its lifetime.
const (
	TrendsetterBlindBet          = "blind_bet"
	TrendsetterContrarianBet     = "contrarian_bet"
	TrendsetterBlindCorrect      = "blind_correct"
	TrendsetterContrarianCorrect = "contrarian_correct"
)

const (
	PointsBlindBet          = 1
	PointsContrarianBet     = 2
	PointsBlindCorrect      = 2
	PointsContrarianCorrect = 5
)

// TrendsetterEvent is an append-only ledger row. A user's score is the
// sum over their rows; there is no mutable counter, and cancellation of
// a resolution never deletes rows.
type TrendsetterEvent struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	UserID   string `gorm:"type:varchar(64);not null;index"`
	BetID    string `gorm:"type:varchar(64);not null;index"`
	MarketID string `gorm:"type:varchar(64);not null;index"`

	EventType string `gorm:"type:varchar(30);not null"`
	Points    int    `gorm:"not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (TrendsetterEvent) TableName() string {
	return "trendsetter_events"
}
