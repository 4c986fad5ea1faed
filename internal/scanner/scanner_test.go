package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"reelmarket/internal/client/boxoffice"
	"reelmarket/internal/client/reviews"
	"reelmarket/internal/models"
	"reelmarket/internal/repository/memory"
	"reelmarket/internal/resolution"
	"reelmarket/internal/tastematch"
	"reelmarket/internal/trendsetter"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func boolPtr(b bool) *bool { return &b }

type fakeReviews struct {
	score *reviews.Score
	err   error
}

func (f *fakeReviews) FilmScore(ctx context.Context, filmID string) (*reviews.Score, error) {
	return f.score, f.err
}

type fakeBoxOffice struct {
	opening *boxoffice.Opening
	err     error
}

func (f *fakeBoxOffice) OpeningWeekend(ctx context.Context, title string, releaseDate time.Time) (*boxoffice.Opening, error) {
	return f.opening, f.err
}

func newScanner(store *memory.Store, now time.Time) *Scanner {
	return &Scanner{
		Repo: store,
		Orchestrator: &resolution.Orchestrator{
			Repo:        store,
			Trendsetter: &trendsetter.Engine{Repo: store},
			TasteMatch:  &tastematch.Engine{Repo: store},
		},
		Now: func() time.Time { return now },
	}
}

// seedCriticMarket builds a locked binary critic-score market (threshold
// 80) released daysAgo days before now, with one bet on each side.
func seedCriticMarket(t *testing.T, store *memory.Store, now time.Time, daysAgo int) {
	t.Helper()
	ctx := context.Background()
	threshold := dec("80")
	_ = store.CreateUser(ctx, &models.User{ID: "u1", Balance: dec("100")})
	_ = store.CreateUser(ctx, &models.User{ID: "u2", Balance: dec("100")})
	_ = store.CreateMarketTx(ctx, nil, &models.Market{
		ID:         "m1",
		Title:      "Critic score over 80?",
		FilmID:     "f1",
		FilmTitle:  "The Film",
		Kind:       models.MarketKindBinary,
		MetricType: models.MetricCriticScore,
		Threshold:  &threshold,
		Status:     models.MarketStatusLocked,
		ReleaseAt:  now.Add(-time.Duration(daysAgo) * 24 * time.Hour),
	})
	_ = store.CreateOutcomesTx(ctx, nil, []models.Outcome{
		{ID: "o-over", MarketID: "m1", Label: "Over", OverThreshold: boolPtr(true)},
		{ID: "o-under", MarketID: "m1", Label: "Under", OverThreshold: boolPtr(false)},
	})
	_ = store.CreateBetTx(ctx, nil, &models.Bet{
		ID: "b1", UserID: "u1", MarketID: "m1", OutcomeID: "o-over",
		Stake: dec("60"), PopularityRatio: dec("0.6"), DynamicMultiplier: dec("0.97"),
	})
	_ = store.CreateBetTx(ctx, nil, &models.Bet{
		ID: "b2", UserID: "u2", MarketID: "m1", OutcomeID: "o-under",
		Stake: dec("40"), PopularityRatio: dec("0.4"), DynamicMultiplier: dec("1.03"),
	})
}

func TestRunScan_ResolvesCriticMarket(t *testing.T) {
	now := time.Now().UTC()
	store := memory.New()
	seedCriticMarket(t, store, now, 15)
	s := newScanner(store, now)
	s.Reviews = &fakeReviews{score: &reviews.Score{Value: dec("85"), ReviewCount: 42}}

	res, err := s.RunScan(context.Background())
	if err != nil {
		t.Fatalf("scan err=%v", err)
	}
	if res.Processed != 1 || res.Successful != 1 {
		t.Fatalf("result=%+v want 1 processed, 1 successful", res)
	}

	ctx := context.Background()
	m, _ := store.GetMarketByID(ctx, "m1")
	if m.Status != models.MarketStatusResolved {
		t.Fatalf("status=%s want resolved", m.Status)
	}
	if m.ResolvedOutcomeID == nil || *m.ResolvedOutcomeID != "o-over" {
		t.Fatalf("resolved outcome=%v want o-over", m.ResolvedOutcomeID)
	}
	r, _ := store.GetResolutionByMarketID(ctx, "m1")
	if r == nil || r.ResolvedBy != models.ResolvedBySystem || r.DataSource != models.ResolutionSourceCriticScore {
		t.Fatalf("resolution=%+v want system/critic_score", r)
	}
	if r.ActualValue == nil || r.ActualValue.Cmp(dec("85")) != 0 {
		t.Fatalf("actual value=%v want 85", r.ActualValue)
	}
}

func TestRunScan_TooEarlyCountsManualWithoutFlagging(t *testing.T) {
	now := time.Now().UTC()
	store := memory.New()
	seedCriticMarket(t, store, now, 10) // inside the 14-day critic window
	s := newScanner(store, now)
	s.Reviews = &fakeReviews{score: &reviews.Score{Value: dec("85"), ReviewCount: 42}}

	res, err := s.RunScan(context.Background())
	if err != nil {
		t.Fatalf("scan err=%v", err)
	}
	if res.ManualRequired != 1 || res.Successful != 0 {
		t.Fatalf("result=%+v want 1 manual_required", res)
	}

	ctx := context.Background()
	m, _ := store.GetMarketByID(ctx, "m1")
	if m.Status != models.MarketStatusLocked {
		t.Fatalf("status=%s want locked", m.Status)
	}
	// Not-yet-eligible is transient: the persisted flag stays clear so
	// the market re-enters the candidate set once the window passes.
	if m.ManualResolutionRequired {
		t.Fatalf("flag persisted for a market that is merely early")
	}
	if r, _ := store.GetResolutionByMarketID(ctx, "m1"); r != nil {
		t.Fatalf("resolution row created for an ineligible market")
	}
}

func TestRunScan_LowReviewCountFlagsManual(t *testing.T) {
	now := time.Now().UTC()
	store := memory.New()
	seedCriticMarket(t, store, now, 15)
	s := newScanner(store, now)
	s.Reviews = &fakeReviews{score: &reviews.Score{Value: dec("85"), ReviewCount: 7}}

	res, err := s.RunScan(context.Background())
	if err != nil {
		t.Fatalf("scan err=%v", err)
	}
	if res.ManualRequired != 1 {
		t.Fatalf("result=%+v want 1 manual_required", res)
	}
	m, _ := store.GetMarketByID(context.Background(), "m1")
	if !m.ManualResolutionRequired {
		t.Fatalf("low-confidence market not flagged for manual resolution")
	}
	if m.Status != models.MarketStatusLocked {
		t.Fatalf("status=%s want locked", m.Status)
	}
}

func TestRunScan_DataUnavailableFlagsManual(t *testing.T) {
	now := time.Now().UTC()
	store := memory.New()
	seedCriticMarket(t, store, now, 15)
	s := newScanner(store, now)
	s.Reviews = &fakeReviews{err: models.ErrDataUnavailable}

	res, err := s.RunScan(context.Background())
	if err != nil {
		t.Fatalf("scan err=%v", err)
	}
	if res.ManualRequired != 1 {
		t.Fatalf("result=%+v want 1 manual_required", res)
	}
	m, _ := store.GetMarketByID(context.Background(), "m1")
	if !m.ManualResolutionRequired {
		t.Fatalf("market with missing data not flagged")
	}
}

func TestRunScan_ProviderErrorCountsFailed(t *testing.T) {
	now := time.Now().UTC()
	store := memory.New()
	seedCriticMarket(t, store, now, 15)
	s := newScanner(store, now)
	s.Reviews = &fakeReviews{err: &reviews.APIError{Status: 503, Body: "upstream down"}}

	res, err := s.RunScan(context.Background())
	if err != nil {
		t.Fatalf("scan err=%v", err)
	}
	if res.Failed != 1 || res.ManualRequired != 0 {
		t.Fatalf("result=%+v want 1 failed", res)
	}
	m, _ := store.GetMarketByID(context.Background(), "m1")
	if m.ManualResolutionRequired {
		t.Fatalf("transient provider error must not flag manual resolution")
	}
	if m.Status != models.MarketStatusLocked {
		t.Fatalf("status=%s want locked (retryable)", m.Status)
	}
}

func TestRunScan_BoxOfficeRangeMarket(t *testing.T) {
	now := time.Now().UTC()
	store := memory.New()
	ctx := context.Background()
	_ = store.CreateUser(ctx, &models.User{ID: "u1", Balance: dec("100")})
	_ = store.CreateMarketTx(ctx, nil, &models.Market{
		ID:         "m2",
		Title:      "Opening weekend bracket",
		FilmID:     "f2",
		FilmTitle:  "Another Film",
		Kind:       models.MarketKindRange,
		MetricType: models.MetricBoxOffice,
		Status:     models.MarketStatusLocked,
		ReleaseAt:  now.Add(-4 * 24 * time.Hour),
	})
	lo, mid, hi := dec("0"), dec("50000000"), dec("100000000")
	_ = store.CreateOutcomesTx(ctx, nil, []models.Outcome{
		{ID: "o-low", MarketID: "m2", Label: "<50M", BracketMin: &lo, BracketMax: &mid},
		{ID: "o-mid", MarketID: "m2", Label: "50-100M", BracketMin: &mid, BracketMax: &hi},
		{ID: "o-high", MarketID: "m2", Label: ">=100M", BracketMin: &hi},
	})
	_ = store.CreateBetTx(ctx, nil, &models.Bet{
		ID: "b1", UserID: "u1", MarketID: "m2", OutcomeID: "o-mid",
		Stake: dec("50"), PopularityRatio: dec("1"), DynamicMultiplier: dec("0.85"),
	})

	s := newScanner(store, now)
	s.BoxOffice = &fakeBoxOffice{opening: &boxoffice.Opening{Gross: dec("73000000"), Rank: 1}}

	res, err := s.RunScan(ctx)
	if err != nil {
		t.Fatalf("scan err=%v", err)
	}
	if res.Successful != 1 {
		t.Fatalf("result=%+v want 1 successful", res)
	}
	m, _ := store.GetMarketByID(ctx, "m2")
	if m.ResolvedOutcomeID == nil || *m.ResolvedOutcomeID != "o-mid" {
		t.Fatalf("resolved outcome=%v want o-mid", m.ResolvedOutcomeID)
	}
	r, _ := store.GetResolutionByMarketID(ctx, "m2")
	if r.DataSource != models.ResolutionSourceBoxOffice {
		t.Fatalf("data source=%s want box_office", r.DataSource)
	}
}

func TestRunScan_FailuresAreIndependent(t *testing.T) {
	now := time.Now().UTC()
	store := memory.New()
	ctx := context.Background()
	seedCriticMarket(t, store, now, 15)

	// Second market has no outcome covering the measured value.
	threshold := dec("80")
	_ = store.CreateMarketTx(ctx, nil, &models.Market{
		ID:         "m-broken",
		Title:      "Broken market",
		FilmID:     "f3",
		FilmTitle:  "Third Film",
		Kind:       models.MarketKindBinary,
		MetricType: models.MetricCriticScore,
		Threshold:  &threshold,
		Status:     models.MarketStatusLocked,
		ReleaseAt:  now.Add(-15 * 24 * time.Hour),
	})
	_ = store.CreateOutcomesTx(ctx, nil, []models.Outcome{
		{ID: "o-only-under", MarketID: "m-broken", Label: "Under", OverThreshold: boolPtr(false)},
	})

	s := newScanner(store, now)
	s.Reviews = &fakeReviews{score: &reviews.Score{Value: dec("85"), ReviewCount: 42}}

	res, err := s.RunScan(ctx)
	if err != nil {
		t.Fatalf("scan err=%v", err)
	}
	if res.Processed != 2 || res.Successful != 1 || res.ManualRequired != 1 {
		t.Fatalf("result=%+v want 2 processed, 1 successful, 1 manual_required", res)
	}
	m, _ := store.GetMarketByID(ctx, "m1")
	if m.Status != models.MarketStatusResolved {
		t.Fatalf("healthy market not resolved despite sibling failure")
	}
	broken, _ := store.GetMarketByID(ctx, "m-broken")
	if !broken.ManualResolutionRequired {
		t.Fatalf("undecidable market not flagged for manual resolution")
	}
}
