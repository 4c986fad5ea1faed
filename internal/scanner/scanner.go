// Package scanner sweeps resolvable markets and settles them from
// external data: critic scores for review markets, opening-weekend
// gross for box-office markets. Markets whose data is missing or not
// trustworthy are flagged for manual resolution instead of guessed at.
package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"reelmarket/internal/client/boxoffice"
	"reelmarket/internal/client/reviews"
	"reelmarket/internal/models"
	"reelmarket/internal/repository"
	"reelmarket/internal/resolution"
)

// ReviewsClient is the slice of the critic-score provider the scanner needs.
type ReviewsClient interface {
	FilmScore(ctx context.Context, filmID string) (*reviews.Score, error)
}

// BoxOfficeClient is the slice of the box-office provider the scanner needs.
type BoxOfficeClient interface {
	OpeningWeekend(ctx context.Context, title string, releaseDate time.Time) (*boxoffice.Opening, error)
}

type Config struct {
	// Settlement delays after film release. Critic scores need time to
	// accumulate reviews; box-office numbers firm up after the opening
	// weekend actuals land.
	CriticScoreDelay time.Duration
	BoxOfficeDelay   time.Duration
	// Critic scores backed by fewer reviews than this are not trusted.
	MinReviewCount int
	BatchSize      int
}

type Scanner struct {
	Repo         repository.Repository
	Orchestrator *resolution.Orchestrator
	Reviews      ReviewsClient
	BoxOffice    BoxOfficeClient
	Config       Config
	Logger       *zap.Logger

	// Now is overridable for tests; nil means time.Now.
	Now func() time.Time
}

// MarketResult is one market's fate within a sweep.
type MarketResult struct {
	MarketID string `json:"market_id"`
	// One of resolved, failed, manual_required.
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type ScanResult struct {
	Processed      int            `json:"processed"`
	Successful     int            `json:"successful"`
	Failed         int            `json:"failed"`
	ManualRequired int            `json:"manual_required"`
	Results        []MarketResult `json:"results"`
}

const (
	statusResolved       = "resolved"
	statusFailed         = "failed"
	statusManualRequired = "manual_required"
)

// RunScan sweeps one batch of candidate markets. Each market is handled
// independently: one failure never aborts the sweep.
func (s *Scanner) RunScan(ctx context.Context) (*ScanResult, error) {
	if s == nil || s.Repo == nil || s.Orchestrator == nil {
		return nil, fmt.Errorf("scanner not wired")
	}
	markets, err := s.Repo.ListAutoResolveCandidates(ctx, s.Config.BatchSize)
	if err != nil {
		return nil, err
	}
	out := &ScanResult{}
	for _, m := range markets {
		out.Processed++
		r := s.processMarket(ctx, m)
		out.Results = append(out.Results, r)
		switch r.Status {
		case statusResolved:
			out.Successful++
		case statusManualRequired:
			out.ManualRequired++
		default:
			out.Failed++
		}
	}
	if s.Logger != nil {
		s.Logger.Info("auto-resolve sweep finished",
			zap.Int("processed", out.Processed),
			zap.Int("successful", out.Successful),
			zap.Int("failed", out.Failed),
			zap.Int("manual_required", out.ManualRequired))
	}
	return out, nil
}

func (s *Scanner) processMarket(ctx context.Context, m models.Market) MarketResult {
	r := MarketResult{MarketID: m.ID}

	eligibleAt := m.ReleaseAt.Add(s.delayFor(m.MetricType))
	if s.now().Before(eligibleAt) {
		// Too early for trustworthy data. Reported for the operator's
		// attention but not persisted: the market becomes eligible on a
		// later sweep without anyone clearing a flag.
		r.Status = statusManualRequired
		r.Reason = fmt.Sprintf("not eligible until %s", eligibleAt.Format(time.RFC3339))
		return r
	}

	value, payload, source, err := s.fetchValue(ctx, m)
	if err != nil {
		if errors.Is(err, models.ErrDataUnavailable) || errors.Is(err, models.ErrInsufficientConfidence) {
			if ferr := s.Repo.SetManualResolutionRequired(ctx, m.ID, true); ferr != nil {
				r.Status = statusFailed
				r.Reason = ferr.Error()
				return r
			}
			r.Status = statusManualRequired
			r.Reason = err.Error()
			return r
		}
		r.Status = statusFailed
		r.Reason = err.Error()
		return r
	}

	outcomeID, err := s.pickOutcome(ctx, m, value)
	if err != nil {
		if errors.Is(err, models.ErrOutcomeNotFound) {
			if ferr := s.Repo.SetManualResolutionRequired(ctx, m.ID, true); ferr != nil {
				r.Status = statusFailed
				r.Reason = ferr.Error()
				return r
			}
			r.Status = statusManualRequired
			r.Reason = err.Error()
			return r
		}
		r.Status = statusFailed
		r.Reason = err.Error()
		return r
	}

	// Claim the market before settling. A market already in resolving is
	// a previous attempt's leftover; resolve picks it up as-is.
	if m.Status == models.MarketStatusLocked {
		moved, err := s.Repo.TransitionMarketStatus(ctx, m.ID, []string{models.MarketStatusLocked}, models.MarketStatusResolving)
		if err != nil {
			r.Status = statusFailed
			r.Reason = err.Error()
			return r
		}
		if !moved {
			r.Status = statusFailed
			r.Reason = "lost claim race"
			return r
		}
	}

	_, err = s.Orchestrator.Resolve(ctx, resolution.ResolveInput{
		MarketID:         m.ID,
		WinningOutcomeID: outcomeID,
		ActualValue:      &value,
		ResolvedBy:       models.ResolvedBySystem,
		DataSource:       source,
		SourcePayload:    payload,
	})
	if err != nil {
		if s.Logger != nil {
			s.Logger.Error("auto-resolve failed",
				zap.String("market_id", m.ID),
				zap.Error(err))
		}
		r.Status = statusFailed
		r.Reason = err.Error()
		return r
	}
	r.Status = statusResolved
	return r
}

// fetchValue pulls the metric value for a market from the matching
// provider, returning the raw provider payload for the audit trail.
func (s *Scanner) fetchValue(ctx context.Context, m models.Market) (decimal.Decimal, []byte, string, error) {
	switch m.MetricType {
	case models.MetricCriticScore:
		if s.Reviews == nil {
			return decimal.Zero, nil, "", fmt.Errorf("reviews client not configured")
		}
		score, err := s.Reviews.FilmScore(ctx, m.FilmID)
		if err != nil {
			return decimal.Zero, nil, "", err
		}
		if score.ReviewCount < s.minReviews() {
			return decimal.Zero, nil, "", fmt.Errorf("%d reviews, need %d: %w",
				score.ReviewCount, s.minReviews(), models.ErrInsufficientConfidence)
		}
		payload, _ := json.Marshal(score)
		return score.Value, payload, models.ResolutionSourceCriticScore, nil
	case models.MetricBoxOffice:
		if s.BoxOffice == nil {
			return decimal.Zero, nil, "", fmt.Errorf("boxoffice client not configured")
		}
		opening, err := s.BoxOffice.OpeningWeekend(ctx, m.FilmTitle, m.ReleaseAt)
		if err != nil {
			return decimal.Zero, nil, "", err
		}
		if opening.Rank == 0 {
			return decimal.Zero, nil, "", fmt.Errorf("opening numbers not finalized: %w", models.ErrDataUnavailable)
		}
		payload, _ := json.Marshal(opening)
		return opening.Gross, payload, models.ResolutionSourceBoxOffice, nil
	default:
		return decimal.Zero, nil, "", fmt.Errorf("metric type %q: %w", m.MetricType, models.ErrInvalidInput)
	}
}

// pickOutcome maps the measured value onto one of the market's
// outcomes. Binary markets split on the threshold (the threshold value
// itself counts as over); range markets use [min, max) brackets with
// nil bounds open-ended.
func (s *Scanner) pickOutcome(ctx context.Context, m models.Market, value decimal.Decimal) (string, error) {
	outcomes, err := s.Repo.ListOutcomesByMarketID(ctx, m.ID)
	if err != nil {
		return "", err
	}
	switch m.Kind {
	case models.MarketKindBinary:
		if m.Threshold == nil {
			return "", fmt.Errorf("binary market %s has no threshold: %w", m.ID, models.ErrInvalidInput)
		}
		over := value.GreaterThanOrEqual(*m.Threshold)
		for _, o := range outcomes {
			if o.OverThreshold != nil && *o.OverThreshold == over {
				return o.ID, nil
			}
		}
	case models.MarketKindRange:
		for _, o := range outcomes {
			if o.BracketMin != nil && value.LessThan(*o.BracketMin) {
				continue
			}
			if o.BracketMax != nil && value.GreaterThanOrEqual(*o.BracketMax) {
				continue
			}
			return o.ID, nil
		}
	default:
		return "", fmt.Errorf("market kind %q: %w", m.Kind, models.ErrInvalidInput)
	}
	return "", fmt.Errorf("no outcome covers value %s on market %s: %w",
		value.String(), m.ID, models.ErrOutcomeNotFound)
}

func (s *Scanner) delayFor(metricType string) time.Duration {
	switch metricType {
	case models.MetricBoxOffice:
		if s.Config.BoxOfficeDelay > 0 {
			return s.Config.BoxOfficeDelay
		}
		return 3 * 24 * time.Hour
	default:
		if s.Config.CriticScoreDelay > 0 {
			return s.Config.CriticScoreDelay
		}
		return 14 * 24 * time.Hour
	}
}

func (s *Scanner) minReviews() int {
	if s.Config.MinReviewCount > 0 {
		return s.Config.MinReviewCount
	}
	return 20
}

func (s *Scanner) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
