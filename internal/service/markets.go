package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"reelmarket/internal/models"
	"reelmarket/internal/repository"
)

// MarketService owns market creation and the pre-resolution lifecycle:
// pending -> blind -> open -> locked. Resolution and beyond belong to
// the resolution orchestrator.
type MarketService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

type CreateMarketInput struct {
	Title      string
	FilmID     string
	FilmTitle  string
	Kind       string
	MetricType string
	Threshold  *decimal.Decimal
	ReleaseAt  time.Time
	BlindUntil *time.Time
	LocksAt    *time.Time
	Outcomes   []CreateOutcomeInput
}

type CreateOutcomeInput struct {
	Label         string
	OverThreshold *bool
	BracketMin    *decimal.Decimal
	BracketMax    *decimal.Decimal
}

// Create persists a market with its outcomes in pending status.
func (s *MarketService) Create(ctx context.Context, in CreateMarketInput) (*models.Market, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("market service not wired")
	}
	if err := validateMarketInput(in); err != nil {
		return nil, err
	}

	market := &models.Market{
		ID:         uuid.NewString(),
		Title:      in.Title,
		FilmID:     in.FilmID,
		FilmTitle:  in.FilmTitle,
		Kind:       in.Kind,
		MetricType: in.MetricType,
		Threshold:  in.Threshold,
		Status:     models.MarketStatusPending,
		ReleaseAt:  in.ReleaseAt.UTC(),
		BlindUntil: in.BlindUntil,
		LocksAt:    in.LocksAt,
	}
	outcomes := make([]models.Outcome, 0, len(in.Outcomes))
	for i, o := range in.Outcomes {
		outcomes = append(outcomes, models.Outcome{
			ID:            uuid.NewString(),
			MarketID:      market.ID,
			Label:         o.Label,
			SortOrd:       i,
			OverThreshold: o.OverThreshold,
			BracketMin:    o.BracketMin,
			BracketMax:    o.BracketMax,
		})
	}

	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.Repo.CreateMarketTx(ctx, tx, market); err != nil {
			return err
		}
		return s.Repo.CreateOutcomesTx(ctx, tx, outcomes)
	})
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("market created",
			zap.String("market_id", market.ID),
			zap.String("film_id", market.FilmID),
			zap.String("kind", market.Kind),
			zap.String("metric_type", market.MetricType))
	}
	return market, nil
}

// Publish takes a pending market live: into blind when a blind window
// is configured and still ahead, straight to open otherwise.
func (s *MarketService) Publish(ctx context.Context, id string) (*models.Market, error) {
	target := models.MarketStatusOpen
	market, err := s.getMarket(ctx, id)
	if err != nil {
		return nil, err
	}
	if market.BlindUntil != nil && market.BlindUntil.After(time.Now().UTC()) {
		target = models.MarketStatusBlind
	}
	return s.transition(ctx, id, []string{models.MarketStatusPending}, target)
}

// Open ends the blind phase early.
func (s *MarketService) Open(ctx context.Context, id string) (*models.Market, error) {
	return s.transition(ctx, id, []string{models.MarketStatusBlind}, models.MarketStatusOpen)
}

// Lock closes betting.
func (s *MarketService) Lock(ctx context.Context, id string) (*models.Market, error) {
	return s.transition(ctx, id, []string{models.MarketStatusBlind, models.MarketStatusOpen}, models.MarketStatusLocked)
}

// CancelMarket scraps a market before resolution and refunds all stakes.
func (s *MarketService) CancelMarket(ctx context.Context, id string) (*models.Market, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("market service not wired")
	}
	if _, err := s.getMarket(ctx, id); err != nil {
		return nil, err
	}
	bets, err := s.Repo.ListBetsByMarketID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := []string{
		models.MarketStatusPending,
		models.MarketStatusBlind,
		models.MarketStatusOpen,
		models.MarketStatusLocked,
	}
	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.Repo.TransitionMarketStatusTx(ctx, tx, id, from, models.MarketStatusCancelled)
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("market %s: %w", id, models.ErrInvalidState)
		}
		for _, b := range bets {
			if err := s.Repo.AdjustUserBalanceTx(ctx, tx, b.UserID, b.Stake); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("market cancelled",
			zap.String("market_id", id),
			zap.Int("refunded_bets", len(bets)))
	}
	return s.getMarket(ctx, id)
}

func (s *MarketService) Get(ctx context.Context, id string) (*models.Market, error) {
	return s.getMarket(ctx, id)
}

func (s *MarketService) Outcomes(ctx context.Context, marketID string) ([]models.Outcome, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("market service not wired")
	}
	return s.Repo.ListOutcomesByMarketID(ctx, marketID)
}

func (s *MarketService) List(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("market service not wired")
	}
	return s.Repo.ListMarkets(ctx, params)
}

// SweepResult reports one lifecycle sweep.
type SweepResult struct {
	Opened int `json:"opened"`
	Locked int `json:"locked"`
}

// LifecycleSweep advances time-driven transitions: blind markets whose
// window ended become open, open markets past their lock time become
// locked. Conditional updates make concurrent sweeps harmless.
func (s *MarketService) LifecycleSweep(ctx context.Context) (*SweepResult, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("market service not wired")
	}
	now := time.Now().UTC()
	out := &SweepResult{}

	due, err := s.Repo.ListBlindMarketsDue(ctx, now, 0)
	if err != nil {
		return nil, err
	}
	for _, m := range due {
		moved, err := s.Repo.TransitionMarketStatus(ctx, m.ID, []string{models.MarketStatusBlind}, models.MarketStatusOpen)
		if err != nil {
			return out, err
		}
		if moved {
			out.Opened++
		}
	}

	due, err = s.Repo.ListOpenMarketsDue(ctx, now, 0)
	if err != nil {
		return out, err
	}
	for _, m := range due {
		moved, err := s.Repo.TransitionMarketStatus(ctx, m.ID, []string{models.MarketStatusOpen}, models.MarketStatusLocked)
		if err != nil {
			return out, err
		}
		if moved {
			out.Locked++
		}
	}

	if s.Logger != nil && (out.Opened > 0 || out.Locked > 0) {
		s.Logger.Info("lifecycle sweep",
			zap.Int("opened", out.Opened),
			zap.Int("locked", out.Locked))
	}
	return out, nil
}

func (s *MarketService) getMarket(ctx context.Context, id string) (*models.Market, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("market service not wired")
	}
	market, err := s.Repo.GetMarketByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, fmt.Errorf("market %s: %w", id, models.ErrMarketNotFound)
	}
	return market, nil
}

func (s *MarketService) transition(ctx context.Context, id string, from []string, to string) (*models.Market, error) {
	market, err := s.getMarket(ctx, id)
	if err != nil {
		return nil, err
	}
	moved, err := s.Repo.TransitionMarketStatus(ctx, id, from, to)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, fmt.Errorf("market %s in status %s: %w", id, market.Status, models.ErrInvalidState)
	}
	return s.getMarket(ctx, id)
}

func validateMarketInput(in CreateMarketInput) error {
	if in.Title == "" || in.FilmID == "" || in.FilmTitle == "" {
		return fmt.Errorf("title, film id and film title are required: %w", models.ErrInvalidInput)
	}
	if in.MetricType != models.MetricCriticScore && in.MetricType != models.MetricBoxOffice {
		return fmt.Errorf("metric type %q: %w", in.MetricType, models.ErrInvalidInput)
	}
	if in.ReleaseAt.IsZero() {
		return fmt.Errorf("release date is required: %w", models.ErrInvalidInput)
	}
	switch in.Kind {
	case models.MarketKindBinary:
		if in.Threshold == nil {
			return fmt.Errorf("binary market needs a threshold: %w", models.ErrInvalidInput)
		}
		if len(in.Outcomes) != 2 {
			return fmt.Errorf("binary market needs exactly two outcomes: %w", models.ErrInvalidInput)
		}
		overs := 0
		for _, o := range in.Outcomes {
			if o.OverThreshold == nil {
				return fmt.Errorf("binary outcomes need an over/under side: %w", models.ErrInvalidInput)
			}
			if *o.OverThreshold {
				overs++
			}
		}
		if overs != 1 {
			return fmt.Errorf("binary market needs one over and one under outcome: %w", models.ErrInvalidInput)
		}
	case models.MarketKindRange:
		if len(in.Outcomes) < 2 {
			return fmt.Errorf("range market needs at least two brackets: %w", models.ErrInvalidInput)
		}
		for _, o := range in.Outcomes {
			if o.BracketMin == nil && o.BracketMax == nil {
				return fmt.Errorf("range outcomes need at least one bracket bound: %w", models.ErrInvalidInput)
			}
		}
	default:
		return fmt.Errorf("market kind %q: %w", in.Kind, models.ErrInvalidInput)
	}
	for _, o := range in.Outcomes {
		if o.Label == "" {
			return fmt.Errorf("outcome labels are required: %w", models.ErrInvalidInput)
		}
	}
	return nil
}
