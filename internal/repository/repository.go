package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"reelmarket/internal/models"
)

// Repository is the persistence boundary of the resolution engine.
// Methods suffixed Tx take part in a caller-owned transaction opened
// via InTx; a nil tx falls back to the base connection.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Users
	CreateUser(ctx context.Context, item *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	AdjustUserBalanceTx(ctx context.Context, tx *gorm.DB, userID string, delta decimal.Decimal) error
	ListUserIDsWithBets(ctx context.Context) ([]string, error)

	// Markets
	CreateMarketTx(ctx context.Context, tx *gorm.DB, item *models.Market) error
	GetMarketByID(ctx context.Context, id string) (*models.Market, error)
	ListMarkets(ctx context.Context, params ListMarketsParams) ([]models.Market, error)
	ListMarketsByIDs(ctx context.Context, ids []string) ([]models.Market, error)
	// TransitionMarketStatus performs a conditional status update and
	// reports whether a row moved. This is the engine's serialization
	// point: a second resolver loses the race and sees zero rows.
	TransitionMarketStatus(ctx context.Context, id string, from []string, to string) (bool, error)
	TransitionMarketStatusTx(ctx context.Context, tx *gorm.DB, id string, from []string, to string) (bool, error)
	MarkMarketResolvedTx(ctx context.Context, tx *gorm.DB, id string, from []string, outcomeID string, actual *decimal.Decimal, at time.Time) (bool, error)
	ClearMarketResolutionTx(ctx context.Context, tx *gorm.DB, id string) (bool, error)
	SetManualResolutionRequired(ctx context.Context, id string, required bool) error
	ListAutoResolveCandidates(ctx context.Context, limit int) ([]models.Market, error)
	ListBlindMarketsDue(ctx context.Context, now time.Time, limit int) ([]models.Market, error)
	ListOpenMarketsDue(ctx context.Context, now time.Time, limit int) ([]models.Market, error)

	// Outcomes
	CreateOutcomesTx(ctx context.Context, tx *gorm.DB, items []models.Outcome) error
	GetOutcomeByID(ctx context.Context, id string) (*models.Outcome, error)
	ListOutcomesByMarketID(ctx context.Context, marketID string) ([]models.Outcome, error)

	// Bets
	CreateBetTx(ctx context.Context, tx *gorm.DB, item *models.Bet) error
	GetBetByUserAndMarket(ctx context.Context, userID, marketID string) (*models.Bet, error)
	ListBetsByMarketID(ctx context.Context, marketID string) ([]models.Bet, error)
	ListBetsByUserID(ctx context.Context, userID string) ([]models.Bet, error)
	UpdateBetPayoutTx(ctx context.Context, tx *gorm.DB, betID string, won bool, finalPayout decimal.Decimal) error
	ClearBetPayoutsTx(ctx context.Context, tx *gorm.DB, marketID string) error

	// Resolutions
	CreateResolutionTx(ctx context.Context, tx *gorm.DB, item *models.Resolution) error
	GetResolutionByMarketID(ctx context.Context, marketID string) (*models.Resolution, error)
	DeleteResolutionTx(ctx context.Context, tx *gorm.DB, marketID string) error

	// Trendsetter ledger (append-only)
	InsertTrendsetterEvent(ctx context.Context, item *models.TrendsetterEvent) error
	ListTrendsetterEventsByUser(ctx context.Context, userID string, limit int) ([]models.TrendsetterEvent, error)
	SumTrendsetterPoints(ctx context.Context, userID string) (int64, error)
	TopTrendsetterScores(ctx context.Context, limit int) ([]TrendsetterScoreRow, error)

	// Taste matches
	UpsertTasteMatch(ctx context.Context, item *models.TasteMatch) error
	DeleteTasteMatch(ctx context.Context, userAID, userBID string) error
	ListTasteMatchesByUser(ctx context.Context, userID string, limit int) ([]models.TasteMatch, error)
}

type TrendsetterScoreRow struct {
	UserID string
	Points int64
}

type ListMarketsParams struct {
	Limit      int
	Offset     int
	Status     *string
	MetricType *string
	FilmID     *string
	OrderBy    string
	Asc        *bool
}
