// Package tastematch computes pairwise similarity between users from
// their agreement across commonly-bet resolved markets.
package tastematch

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"reelmarket/internal/models"
	"reelmarket/internal/repository"
)

const ScorePlaces = 4

type Engine struct {
	Repo   repository.Repository
	Logger *zap.Logger

	// Storage thresholds: a pair is kept iff Score > MinScore and
	// MarketsInCommon >= MinMarketsShared.
	MinScore         decimal.Decimal
	MinMarketsShared int
}

// PairScore is the outcome of scoring one user pair.
type PairScore struct {
	Points decimal.Decimal
	Common int
	Score  decimal.Decimal
}

// ScorePair scores two users' bet histories over the markets in
// resolved where both participated: +1 same outcome, +2 same outcome
// with both contrarian, -1 different outcomes. Agreement with only one
// side contrarian counts as plain agreement.
func ScorePair(betsA, betsB []models.Bet, resolved map[string]bool) PairScore {
	byMarketA := make(map[string]models.Bet, len(betsA))
	for _, b := range betsA {
		byMarketA[b.MarketID] = b
	}
	points := decimal.Zero
	common := 0
	for _, bb := range betsB {
		if !resolved[bb.MarketID] {
			continue
		}
		ba, ok := byMarketA[bb.MarketID]
		if !ok {
			continue
		}
		common++
		switch {
		case ba.OutcomeID == bb.OutcomeID && ba.IsContrarian && bb.IsContrarian:
			points = points.Add(decimal.NewFromInt(2))
		case ba.OutcomeID == bb.OutcomeID:
			points = points.Add(decimal.NewFromInt(1))
		default:
			points = points.Sub(decimal.NewFromInt(1))
		}
	}
	ps := PairScore{Points: points, Common: common}
	if common > 0 {
		ps.Score = points.Div(decimal.NewFromInt(int64(common))).Round(ScorePlaces)
	}
	return ps
}

// RecomputeForMarket refreshes taste matches for every participant of a
// freshly resolved market against every user who has ever placed a bet.
func (e *Engine) RecomputeForMarket(ctx context.Context, marketID string) error {
	if e == nil || e.Repo == nil {
		return nil
	}
	bets, err := e.Repo.ListBetsByMarketID(ctx, marketID)
	if err != nil {
		return fmt.Errorf("list market bets: %w", err)
	}
	seen := map[string]struct{}{}
	for _, b := range bets {
		if _, ok := seen[b.UserID]; ok {
			continue
		}
		seen[b.UserID] = struct{}{}
		if err := e.RecomputeForUser(ctx, b.UserID); err != nil {
			return fmt.Errorf("recompute user %s: %w", b.UserID, err)
		}
	}
	return nil
}

// RecomputeForUser runs the full pairwise recomputation for one user.
func (e *Engine) RecomputeForUser(ctx context.Context, userID string) error {
	if e == nil || e.Repo == nil {
		return nil
	}
	betsA, err := e.Repo.ListBetsByUserID(ctx, userID)
	if err != nil {
		return err
	}
	resolved, err := e.resolvedMarkets(ctx, betsA)
	if err != nil {
		return err
	}
	others, err := e.Repo.ListUserIDsWithBets(ctx)
	if err != nil {
		return err
	}
	for _, other := range others {
		if other == userID {
			continue
		}
		betsB, err := e.Repo.ListBetsByUserID(ctx, other)
		if err != nil {
			return err
		}
		ps := ScorePair(betsA, betsB, resolved)
		a, b := orderPair(userID, other)
		if ps.Common >= e.minShared() && ps.Score.GreaterThan(e.minScore()) {
			err = e.Repo.UpsertTasteMatch(ctx, &models.TasteMatch{
				UserAID:         a,
				UserBID:         b,
				Score:           ps.Score,
				MarketsInCommon: ps.Common,
			})
		} else {
			err = e.Repo.DeleteTasteMatch(ctx, a, b)
		}
		if err != nil {
			if e.Logger != nil {
				e.Logger.Warn("taste match store failed",
					zap.String("user_a", a),
					zap.String("user_b", b),
					zap.Error(err))
			}
			return err
		}
	}
	return nil
}

func (e *Engine) MatchesForUser(ctx context.Context, userID string, limit int) ([]models.TasteMatch, error) {
	if e == nil || e.Repo == nil {
		return nil, nil
	}
	return e.Repo.ListTasteMatchesByUser(ctx, userID, limit)
}

// resolvedMarkets builds the resolved-status set for the markets a user
// has bet in; only those markets can contribute to pair scores.
func (e *Engine) resolvedMarkets(ctx context.Context, bets []models.Bet) (map[string]bool, error) {
	ids := make([]string, 0, len(bets))
	seen := map[string]struct{}{}
	for _, b := range bets {
		if _, ok := seen[b.MarketID]; ok {
			continue
		}
		seen[b.MarketID] = struct{}{}
		ids = append(ids, b.MarketID)
	}
	markets, err := e.Repo.ListMarketsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	resolved := make(map[string]bool, len(markets))
	for _, m := range markets {
		resolved[m.ID] = m.Status == models.MarketStatusResolved
	}
	return resolved, nil
}

func (e *Engine) minShared() int {
	if e.MinMarketsShared > 0 {
		return e.MinMarketsShared
	}
	return 3
}

func (e *Engine) minScore() decimal.Decimal {
	if e.MinScore.IsPositive() {
		return e.MinScore
	}
	return decimal.RequireFromString("0.6")
}

func orderPair(x, y string) (string, string) {
	if x < y {
		return x, y
	}
	return y, x
}
