package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"reelmarket/internal/models"
	"reelmarket/internal/odds"
	"reelmarket/internal/repository"
	"reelmarket/internal/trendsetter"
)

// BetService places bets. Placement freezes the bet's popularity ratio,
// contrarian flag and dynamic multiplier against the pool as it stands
// at that moment, with the incoming stake included.
type BetService struct {
	Repo        repository.Repository
	Trendsetter *trendsetter.Engine
	Logger      *zap.Logger
}

type PlaceBetInput struct {
	UserID    string
	MarketID  string
	OutcomeID string
	Stake     decimal.Decimal
}

func (s *BetService) Place(ctx context.Context, in PlaceBetInput) (*models.Bet, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("bet service not wired")
	}
	if in.UserID == "" || in.MarketID == "" || in.OutcomeID == "" {
		return nil, fmt.Errorf("user, market and outcome are required: %w", models.ErrInvalidInput)
	}
	if !in.Stake.IsPositive() {
		return nil, fmt.Errorf("stake must be positive: %w", models.ErrInvalidInput)
	}

	market, err := s.Repo.GetMarketByID(ctx, in.MarketID)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, fmt.Errorf("market %s: %w", in.MarketID, models.ErrMarketNotFound)
	}
	if market.Status != models.MarketStatusBlind && market.Status != models.MarketStatusOpen {
		return nil, fmt.Errorf("market %s in status %s: %w", in.MarketID, market.Status, models.ErrInvalidState)
	}

	outcome, err := s.Repo.GetOutcomeByID(ctx, in.OutcomeID)
	if err != nil {
		return nil, err
	}
	if outcome == nil || outcome.MarketID != in.MarketID {
		return nil, fmt.Errorf("outcome %s for market %s: %w", in.OutcomeID, in.MarketID, models.ErrOutcomeNotFound)
	}

	user, err := s.Repo.GetUserByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", in.UserID, models.ErrUserNotFound)
	}
	if user.Balance.LessThan(in.Stake) {
		return nil, fmt.Errorf("balance %s, stake %s: %w", user.Balance, in.Stake, models.ErrInsufficientFunds)
	}

	existing, err := s.Repo.GetBetByUserAndMarket(ctx, in.UserID, in.MarketID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("user %s already bet on market %s: %w", in.UserID, in.MarketID, models.ErrDuplicateBet)
	}

	bets, err := s.Repo.ListBetsByMarketID(ctx, in.MarketID)
	if err != nil {
		return nil, err
	}
	ratio := popularityRatio(bets, in.OutcomeID, in.Stake)
	multiplier, err := odds.Multiplier(ratio)
	if err != nil {
		return nil, err
	}

	bet := &models.Bet{
		ID:                uuid.NewString(),
		UserID:            in.UserID,
		MarketID:          in.MarketID,
		OutcomeID:         in.OutcomeID,
		Stake:             in.Stake.Round(2),
		IsBlind:           market.Status == models.MarketStatusBlind,
		PopularityRatio:   ratio,
		IsContrarian:      odds.IsContrarian(ratio),
		DynamicMultiplier: multiplier,
	}

	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.Repo.CreateBetTx(ctx, tx, bet); err != nil {
			return err
		}
		return s.Repo.AdjustUserBalanceTx(ctx, tx, in.UserID, bet.Stake.Neg())
	})
	if err != nil {
		return nil, err
	}

	// Placement points are ledger writes outside the financial tx; a
	// failure here leaves a valid bet, so it is logged and swallowed.
	if s.Trendsetter != nil {
		if err := s.Trendsetter.AwardPlacement(ctx, bet); err != nil && s.Logger != nil {
			s.Logger.Error("trendsetter placement award failed",
				zap.String("bet_id", bet.ID),
				zap.Error(err))
		}
	}

	if s.Logger != nil {
		s.Logger.Info("bet placed",
			zap.String("bet_id", bet.ID),
			zap.String("market_id", in.MarketID),
			zap.String("user_id", in.UserID),
			zap.String("stake", bet.Stake.String()),
			zap.String("multiplier", bet.DynamicMultiplier.String()),
			zap.Bool("blind", bet.IsBlind),
			zap.Bool("contrarian", bet.IsContrarian))
	}
	return bet, nil
}

func (s *BetService) ListByUser(ctx context.Context, userID string) ([]models.Bet, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("bet service not wired")
	}
	return s.Repo.ListBetsByUserID(ctx, userID)
}

func (s *BetService) ListByMarket(ctx context.Context, marketID string) ([]models.Bet, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("bet service not wired")
	}
	return s.Repo.ListBetsByMarketID(ctx, marketID)
}

// popularityRatio is the share of the pool on the chosen outcome with
// the incoming stake counted on both sides of the division.
func popularityRatio(bets []models.Bet, outcomeID string, stake decimal.Decimal) decimal.Decimal {
	total := stake
	onOutcome := stake
	for _, b := range bets {
		total = total.Add(b.Stake)
		if b.OutcomeID == outcomeID {
			onOutcome = onOutcome.Add(b.Stake)
		}
	}
	if total.IsZero() {
		return decimal.NewFromInt(1)
	}
	return onOutcome.Div(total).Round(odds.RatioPlaces)
}
