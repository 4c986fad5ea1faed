package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reelmarket/internal/models"
	"reelmarket/internal/repository"
)

type Store struct {
	db *gorm.DB
}

var _ repository.Repository = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// conn picks the caller's transaction when one is supplied.
func (s *Store) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}

// --- Users -------------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, item *models.User) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) AdjustUserBalanceTx(ctx context.Context, tx *gorm.DB, userID string, delta decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	res := s.conn(ctx, tx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (s *Store) ListUserIDsWithBets(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Bet{}).
		Distinct("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// --- Markets -----------------------------------------------------------------

func (s *Store) CreateMarketTx(ctx context.Context, tx *gorm.DB, item *models.Market) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) GetMarketByID(ctx context.Context, id string) (*models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Market
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Market{})
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.MetricType != nil && strings.TrimSpace(*params.MetricType) != "" {
		query = query.Where("metric_type = ?", strings.TrimSpace(*params.MetricType))
	}
	if params.FilmID != nil && strings.TrimSpace(*params.FilmID) != "" {
		query = query.Where("film_id = ?", strings.TrimSpace(*params.FilmID))
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Market
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListMarketsByIDs(ctx context.Context, ids []string) ([]models.Market, error) {
	if s == nil || s.db == nil || len(ids) == 0 {
		return nil, nil
	}
	var items []models.Market
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) TransitionMarketStatus(ctx context.Context, id string, from []string, to string) (bool, error) {
	return s.TransitionMarketStatusTx(ctx, nil, id, from, to)
}

func (s *Store) TransitionMarketStatusTx(ctx context.Context, tx *gorm.DB, id string, from []string, to string) (bool, error) {
	if s == nil || s.db == nil || len(from) == 0 {
		return false, nil
	}
	res := s.conn(ctx, tx).Model(&models.Market{}).
		Where("id = ?", id).
		Where("status IN ?", from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (s *Store) MarkMarketResolvedTx(ctx context.Context, tx *gorm.DB, id string, from []string, outcomeID string, actual *decimal.Decimal, at time.Time) (bool, error) {
	if s == nil || s.db == nil || len(from) == 0 {
		return false, nil
	}
	res := s.conn(ctx, tx).Model(&models.Market{}).
		Where("id = ?", id).
		Where("status IN ?", from).
		Updates(map[string]any{
			"status":              models.MarketStatusResolved,
			"resolved_outcome_id": outcomeID,
			"resolved_value":      actual,
			"resolved_at":         at,
		})
	return res.RowsAffected > 0, res.Error
}

func (s *Store) ClearMarketResolutionTx(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.conn(ctx, tx).Model(&models.Market{}).
		Where("id = ?", id).
		Where("status = ?", models.MarketStatusResolved).
		Updates(map[string]any{
			"status":              models.MarketStatusLocked,
			"resolved_outcome_id": nil,
			"resolved_value":      nil,
			"resolved_at":         nil,
		})
	return res.RowsAffected > 0, res.Error
}

func (s *Store) SetManualResolutionRequired(ctx context.Context, id string, required bool) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Market{}).
		Where("id = ?", id).
		Update("manual_resolution_required", required).Error
}

func (s *Store) ListAutoResolveCandidates(ctx context.Context, limit int) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 100)
	var items []models.Market
	err := s.db.WithContext(ctx).Model(&models.Market{}).
		Where("status IN ?", []string{models.MarketStatusLocked, models.MarketStatusResolving}).
		Where("resolved_outcome_id IS NULL").
		Where("manual_resolution_required = ?", false).
		Order("release_at asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListBlindMarketsDue(ctx context.Context, now time.Time, limit int) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 100)
	var items []models.Market
	err := s.db.WithContext(ctx).Model(&models.Market{}).
		Where("status = ?", models.MarketStatusBlind).
		Where("blind_until IS NOT NULL").
		Where("blind_until <= ?", now).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListOpenMarketsDue(ctx context.Context, now time.Time, limit int) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 100)
	var items []models.Market
	err := s.db.WithContext(ctx).Model(&models.Market{}).
		Where("status = ?", models.MarketStatusOpen).
		Where("locks_at IS NOT NULL").
		Where("locks_at <= ?", now).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Outcomes ----------------------------------------------------------------

func (s *Store) CreateOutcomesTx(ctx context.Context, tx *gorm.DB, items []models.Outcome) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.conn(ctx, tx).Create(&items).Error
}

func (s *Store) GetOutcomeByID(ctx context.Context, id string) (*models.Outcome, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Outcome
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListOutcomesByMarketID(ctx context.Context, marketID string) ([]models.Outcome, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Outcome
	err := s.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("sort_ord asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Bets --------------------------------------------------------------------

func (s *Store) CreateBetTx(ctx context.Context, tx *gorm.DB, item *models.Bet) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) GetBetByUserAndMarket(ctx context.Context, userID, marketID string) (*models.Bet, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Bet
	err := s.db.WithContext(ctx).
		First(&item, "user_id = ? AND market_id = ?", userID, marketID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListBetsByMarketID(ctx context.Context, marketID string) ([]models.Bet, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Bet
	err := s.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("created_at asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListBetsByUserID(ctx context.Context, userID string) ([]models.Bet, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Bet
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateBetPayoutTx(ctx context.Context, tx *gorm.DB, betID string, won bool, finalPayout decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.conn(ctx, tx).Model(&models.Bet{}).
		Where("id = ?", betID).
		Updates(map[string]any{
			"won":          won,
			"final_payout": finalPayout,
		}).Error
}

func (s *Store) ClearBetPayoutsTx(ctx context.Context, tx *gorm.DB, marketID string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.conn(ctx, tx).Model(&models.Bet{}).
		Where("market_id = ?", marketID).
		Updates(map[string]any{
			"won":          false,
			"final_payout": nil,
		}).Error
}

// --- Resolutions -------------------------------------------------------------

func (s *Store) CreateResolutionTx(ctx context.Context, tx *gorm.DB, item *models.Resolution) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) GetResolutionByMarketID(ctx context.Context, marketID string) (*models.Resolution, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Resolution
	err := s.db.WithContext(ctx).First(&item, "market_id = ?", marketID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) DeleteResolutionTx(ctx context.Context, tx *gorm.DB, marketID string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.conn(ctx, tx).
		Where("market_id = ?", marketID).
		Delete(&models.Resolution{}).Error
}

// --- Trendsetter ledger ------------------------------------------------------

func (s *Store) InsertTrendsetterEvent(ctx context.Context, item *models.TrendsetterEvent) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListTrendsetterEventsByUser(ctx context.Context, userID string, limit int) ([]models.TrendsetterEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 200)
	var items []models.TrendsetterEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SumTrendsetterPoints(ctx context.Context, userID string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total *int64
	err := s.db.WithContext(ctx).Model(&models.TrendsetterEvent{}).
		Where("user_id = ?", userID).
		Select("SUM(points)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (s *Store) TopTrendsetterScores(ctx context.Context, limit int) ([]repository.TrendsetterScoreRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 50)
	var rows []repository.TrendsetterScoreRow
	err := s.db.WithContext(ctx).Model(&models.TrendsetterEvent{}).
		Select("user_id, SUM(points) AS points").
		Group("user_id").
		Order("points desc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// --- Taste matches -----------------------------------------------------------

func (s *Store) UpsertTasteMatch(ctx context.Context, item *models.TasteMatch) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_a_id"}, {Name: "user_b_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"score",
			"markets_in_common",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) DeleteTasteMatch(ctx context.Context, userAID, userBID string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("user_a_id = ? AND user_b_id = ?", userAID, userBID).
		Delete(&models.TasteMatch{}).Error
}

func (s *Store) ListTasteMatchesByUser(ctx context.Context, userID string, limit int) ([]models.TasteMatch, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 100)
	var items []models.TasteMatch
	err := s.db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("score desc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers -----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	col := strings.TrimSpace(orderBy)
	if col == "" {
		col = fallback
	}
	dir := "desc"
	if asc != nil && *asc {
		dir = "asc"
	}
	return query.Order(col + " " + dir)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 || limit > 1000 {
		return fallback
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
