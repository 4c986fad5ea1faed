// Package memory is an in-memory repository.Repository used by the
// engine tests. Conditional status updates behave like the SQL
// implementation so serialization-point semantics can be exercised
// without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"reelmarket/internal/models"
	"reelmarket/internal/repository"
)

type Store struct {
	mu sync.Mutex

	Users       map[string]*models.User
	Markets     map[string]*models.Market
	Outcomes    map[string]*models.Outcome
	Bets        map[string]*models.Bet
	Resolutions map[string]*models.Resolution // keyed by market id
	Events      []models.TrendsetterEvent
	Matches     map[[2]string]*models.TasteMatch

	nextEventID uint64
}

var _ repository.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		Users:       map[string]*models.User{},
		Markets:     map[string]*models.Market{},
		Outcomes:    map[string]*models.Outcome{},
		Bets:        map[string]*models.Bet{},
		Resolutions: map[string]*models.Resolution{},
		Matches:     map[[2]string]*models.TasteMatch{},
	}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// --- Users -------------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, item *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.Users[item.ID] = &cp
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *Store) AdjustUserBalanceTx(ctx context.Context, tx *gorm.DB, userID string, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	u.Balance = u.Balance.Add(delta)
	return nil
}

func (s *Store) ListUserIDsWithBets(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	var ids []string
	for _, b := range s.Bets {
		if _, ok := seen[b.UserID]; ok {
			continue
		}
		seen[b.UserID] = struct{}{}
		ids = append(ids, b.UserID)
	}
	sort.Strings(ids)
	return ids, nil
}

// --- Markets -----------------------------------------------------------------

func (s *Store) CreateMarketTx(ctx context.Context, tx *gorm.DB, item *models.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.Markets[item.ID] = &cp
	return nil
}

func (s *Store) GetMarketByID(ctx context.Context, id string) (*models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.Markets[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *Store) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.Market
	for _, m := range s.Markets {
		if params.Status != nil && m.Status != *params.Status {
			continue
		}
		if params.MetricType != nil && m.MetricType != *params.MetricType {
			continue
		}
		if params.FilmID != nil && m.FilmID != *params.FilmID {
			continue
		}
		items = append(items, *m)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *Store) ListMarketsByIDs(ctx context.Context, ids []string) ([]models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.Market
	for _, id := range ids {
		if m, ok := s.Markets[id]; ok {
			items = append(items, *m)
		}
	}
	return items, nil
}

func (s *Store) TransitionMarketStatus(ctx context.Context, id string, from []string, to string) (bool, error) {
	return s.TransitionMarketStatusTx(ctx, nil, id, from, to)
}

func (s *Store) TransitionMarketStatusTx(ctx context.Context, tx *gorm.DB, id string, from []string, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.Markets[id]
	if !ok || !contains(from, m.Status) {
		return false, nil
	}
	m.Status = to
	return true, nil
}

func (s *Store) MarkMarketResolvedTx(ctx context.Context, tx *gorm.DB, id string, from []string, outcomeID string, actual *decimal.Decimal, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.Markets[id]
	if !ok || !contains(from, m.Status) {
		return false, nil
	}
	m.Status = models.MarketStatusResolved
	m.ResolvedOutcomeID = &outcomeID
	m.ResolvedValue = actual
	resolvedAt := at
	m.ResolvedAt = &resolvedAt
	return true, nil
}

func (s *Store) ClearMarketResolutionTx(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.Markets[id]
	if !ok || m.Status != models.MarketStatusResolved {
		return false, nil
	}
	m.Status = models.MarketStatusLocked
	m.ResolvedOutcomeID = nil
	m.ResolvedValue = nil
	m.ResolvedAt = nil
	return true, nil
}

func (s *Store) SetManualResolutionRequired(ctx context.Context, id string, required bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.Markets[id]; ok {
		m.ManualResolutionRequired = required
	}
	return nil
}

func (s *Store) ListAutoResolveCandidates(ctx context.Context, limit int) ([]models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.Market
	for _, m := range s.Markets {
		if m.Status != models.MarketStatusLocked && m.Status != models.MarketStatusResolving {
			continue
		}
		if m.ResolvedOutcomeID != nil || m.ManualResolutionRequired {
			continue
		}
		items = append(items, *m)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ReleaseAt.Before(items[j].ReleaseAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) ListBlindMarketsDue(ctx context.Context, now time.Time, limit int) ([]models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.Market
	for _, m := range s.Markets {
		if m.Status == models.MarketStatusBlind && m.BlindUntil != nil && !m.BlindUntil.After(now) {
			items = append(items, *m)
		}
	}
	return items, nil
}

func (s *Store) ListOpenMarketsDue(ctx context.Context, now time.Time, limit int) ([]models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.Market
	for _, m := range s.Markets {
		if m.Status == models.MarketStatusOpen && m.LocksAt != nil && !m.LocksAt.After(now) {
			items = append(items, *m)
		}
	}
	return items, nil
}

// --- Outcomes ----------------------------------------------------------------

func (s *Store) CreateOutcomesTx(ctx context.Context, tx *gorm.DB, items []models.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range items {
		cp := o
		s.Outcomes[o.ID] = &cp
	}
	return nil
}

func (s *Store) GetOutcomeByID(ctx context.Context, id string) (*models.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.Outcomes[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (s *Store) ListOutcomesByMarketID(ctx context.Context, marketID string) ([]models.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.Outcome
	for _, o := range s.Outcomes {
		if o.MarketID == marketID {
			items = append(items, *o)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].SortOrd < items[j].SortOrd })
	return items, nil
}

// --- Bets --------------------------------------------------------------------

func (s *Store) CreateBetTx(ctx context.Context, tx *gorm.DB, item *models.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.Bets {
		if b.UserID == item.UserID && b.MarketID == item.MarketID {
			return models.ErrDuplicateBet
		}
	}
	cp := *item
	s.Bets[item.ID] = &cp
	return nil
}

func (s *Store) GetBetByUserAndMarket(ctx context.Context, userID, marketID string) (*models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.Bets {
		if b.UserID == userID && b.MarketID == marketID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ListBetsByMarketID(ctx context.Context, marketID string) ([]models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.Bet
	for _, b := range s.Bets {
		if b.MarketID == marketID {
			items = append(items, *b)
		}
	}
	sortBets(items)
	return items, nil
}

func (s *Store) ListBetsByUserID(ctx context.Context, userID string) ([]models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.Bet
	for _, b := range s.Bets {
		if b.UserID == userID {
			items = append(items, *b)
		}
	}
	sortBets(items)
	return items, nil
}

func (s *Store) UpdateBetPayoutTx(ctx context.Context, tx *gorm.DB, betID string, won bool, finalPayout decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.Bets[betID]
	if !ok {
		return models.ErrBetNotFound
	}
	b.Won = won
	fp := finalPayout
	b.FinalPayout = &fp
	return nil
}

func (s *Store) ClearBetPayoutsTx(ctx context.Context, tx *gorm.DB, marketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.Bets {
		if b.MarketID == marketID {
			b.Won = false
			b.FinalPayout = nil
		}
	}
	return nil
}

// --- Resolutions -------------------------------------------------------------

func (s *Store) CreateResolutionTx(ctx context.Context, tx *gorm.DB, item *models.Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.Resolutions[item.MarketID] = &cp
	return nil
}

func (s *Store) GetResolutionByMarketID(ctx context.Context, marketID string) (*models.Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.Resolutions[marketID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *Store) DeleteResolutionTx(ctx context.Context, tx *gorm.DB, marketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Resolutions, marketID)
	return nil
}

// --- Trendsetter ledger ------------------------------------------------------

func (s *Store) InsertTrendsetterEvent(ctx context.Context, item *models.TrendsetterEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEventID++
	cp := *item
	cp.ID = s.nextEventID
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.Events = append(s.Events, cp)
	return nil
}

func (s *Store) ListTrendsetterEventsByUser(ctx context.Context, userID string, limit int) ([]models.TrendsetterEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.TrendsetterEvent
	for _, ev := range s.Events {
		if ev.UserID == userID {
			items = append(items, ev)
		}
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) SumTrendsetterPoints(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, ev := range s.Events {
		if ev.UserID == userID {
			total += int64(ev.Points)
		}
	}
	return total, nil
}

func (s *Store) TopTrendsetterScores(ctx context.Context, limit int) ([]repository.TrendsetterScoreRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byUser := map[string]int64{}
	for _, ev := range s.Events {
		byUser[ev.UserID] += int64(ev.Points)
	}
	rows := make([]repository.TrendsetterScoreRow, 0, len(byUser))
	for id, pts := range byUser {
		rows = append(rows, repository.TrendsetterScoreRow{UserID: id, Points: pts})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].UserID < rows[j].UserID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// --- Taste matches -----------------------------------------------------------

func (s *Store) UpsertTasteMatch(ctx context.Context, item *models.TasteMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{item.UserAID, item.UserBID}
	cp := *item
	cp.UpdatedAt = time.Now().UTC()
	s.Matches[key] = &cp
	return nil
}

func (s *Store) DeleteTasteMatch(ctx context.Context, userAID, userBID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Matches, [2]string{userAID, userBID})
	return nil
}

func (s *Store) ListTasteMatchesByUser(ctx context.Context, userID string, limit int) ([]models.TasteMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.TasteMatch
	for _, m := range s.Matches {
		if m.UserAID == userID || m.UserBID == userID {
			items = append(items, *m)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Score.GreaterThan(items[j].Score) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func sortBets(items []models.Bet) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
