// Package trendsetter maintains the reputation point ledger. Points are
// append-only events; a user's score is always derived by summing the
// ledger, never cached in a mutable counter, which is what keeps the
// "cancellation does not claw back points" behavior correct.
package trendsetter

import (
	"context"

	"go.uber.org/zap"

	"reelmarket/internal/models"
	"reelmarket/internal/repository"
)

type Engine struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// AwardPlacement writes the placement-time events for a new bet:
// +1 for betting during the blind window, +2 for a contrarian position.
func (e *Engine) AwardPlacement(ctx context.Context, bet *models.Bet) error {
	if e == nil || e.Repo == nil || bet == nil {
		return nil
	}
	if bet.IsBlind {
		if err := e.insert(ctx, bet, models.TrendsetterBlindBet, models.PointsBlindBet); err != nil {
			return err
		}
	}
	if bet.IsContrarian {
		if err := e.insert(ctx, bet, models.TrendsetterContrarianBet, models.PointsContrarianBet); err != nil {
			return err
		}
	}
	return nil
}

// AwardResolution writes the resolution-time events for a winning bet:
// +2 if it was a blind-window bet, +5 if it was contrarian. Callers
// must only pass bets that actually won.
func (e *Engine) AwardResolution(ctx context.Context, bet *models.Bet) error {
	if e == nil || e.Repo == nil || bet == nil {
		return nil
	}
	if bet.IsBlind {
		if err := e.insert(ctx, bet, models.TrendsetterBlindCorrect, models.PointsBlindCorrect); err != nil {
			return err
		}
	}
	if bet.IsContrarian {
		if err := e.insert(ctx, bet, models.TrendsetterContrarianCorrect, models.PointsContrarianCorrect); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) insert(ctx context.Context, bet *models.Bet, eventType string, points int) error {
	err := e.Repo.InsertTrendsetterEvent(ctx, &models.TrendsetterEvent{
		UserID:    bet.UserID,
		BetID:     bet.ID,
		MarketID:  bet.MarketID,
		EventType: eventType,
		Points:    points,
	})
	if err != nil && e.Logger != nil {
		e.Logger.Warn("trendsetter event insert failed",
			zap.String("bet_id", bet.ID),
			zap.String("event_type", eventType),
			zap.Error(err))
	}
	return err
}

// UserScore sums the ledger for one user.
func (e *Engine) UserScore(ctx context.Context, userID string) (int64, error) {
	if e == nil || e.Repo == nil {
		return 0, nil
	}
	return e.Repo.SumTrendsetterPoints(ctx, userID)
}

func (e *Engine) Events(ctx context.Context, userID string, limit int) ([]models.TrendsetterEvent, error) {
	if e == nil || e.Repo == nil {
		return nil, nil
	}
	return e.Repo.ListTrendsetterEventsByUser(ctx, userID, limit)
}

func (e *Engine) Leaderboard(ctx context.Context, limit int) ([]repository.TrendsetterScoreRow, error) {
	if e == nil || e.Repo == nil {
		return nil, nil
	}
	return e.Repo.TopTrendsetterScores(ctx, limit)
}
