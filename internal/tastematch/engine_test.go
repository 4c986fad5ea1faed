package tastematch

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"reelmarket/internal/models"
	"reelmarket/internal/repository/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestScorePair_AgreementVariants(t *testing.T) {
	resolved := map[string]bool{"m1": true, "m2": true, "m3": true, "m4": false}
	betsA := []models.Bet{
		{MarketID: "m1", OutcomeID: "o1"},
		{MarketID: "m2", OutcomeID: "o2", IsContrarian: true},
		{MarketID: "m3", OutcomeID: "o3"},
		{MarketID: "m4", OutcomeID: "o4"}, // unresolved, ignored
	}
	betsB := []models.Bet{
		{MarketID: "m1", OutcomeID: "o1"},                     // +1 agree
		{MarketID: "m2", OutcomeID: "o2", IsContrarian: true}, // +2 both contrarian
		{MarketID: "m3", OutcomeID: "oX"},                     // -1 disagree
		{MarketID: "m4", OutcomeID: "o4"},
	}
	ps := ScorePair(betsA, betsB, resolved)
	if ps.Common != 3 {
		t.Fatalf("common=%d want 3", ps.Common)
	}
	if ps.Points.Cmp(dec("2")) != 0 {
		t.Fatalf("points=%s want 2", ps.Points.String())
	}
	if ps.Score.Cmp(dec("0.6667")) != 0 {
		t.Fatalf("score=%s want 0.6667", ps.Score.String())
	}
}

func TestScorePair_MixedContrarianCountsAsPlainAgreement(t *testing.T) {
	resolved := map[string]bool{"m1": true}
	ps := ScorePair(
		[]models.Bet{{MarketID: "m1", OutcomeID: "o1", IsContrarian: true}},
		[]models.Bet{{MarketID: "m1", OutcomeID: "o1"}},
		resolved,
	)
	if ps.Points.Cmp(dec("1")) != 0 {
		t.Fatalf("points=%s want 1", ps.Points.String())
	}
}

// seedAgreement creates n resolved markets on which both users bet the
// same outcome (non-contrarian).
func seedAgreement(t *testing.T, store *memory.Store, n int) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	for i := 0; i < n; i++ {
		mid := string(rune('a'+i)) + "-market"
		oid := mid + "-o1"
		_ = store.CreateMarketTx(ctx, nil, &models.Market{
			ID: mid, Status: models.MarketStatusResolved, ReleaseAt: now,
		})
		_ = store.CreateOutcomesTx(ctx, nil, []models.Outcome{{ID: oid, MarketID: mid}})
		_ = store.CreateBetTx(ctx, nil, &models.Bet{
			ID: mid + "-b1", UserID: "u1", MarketID: mid, OutcomeID: oid, Stake: dec("10"),
		})
		_ = store.CreateBetTx(ctx, nil, &models.Bet{
			ID: mid + "-b2", UserID: "u2", MarketID: mid, OutcomeID: oid, Stake: dec("10"),
		})
	}
}

func TestRecompute_StoresQualifyingPair(t *testing.T) {
	store := memory.New()
	seedAgreement(t, store, 3)
	e := &Engine{Repo: store}
	ctx := context.Background()

	if err := e.RecomputeForUser(ctx, "u1"); err != nil {
		t.Fatalf("err=%v", err)
	}
	matches, _ := e.MatchesForUser(ctx, "u1", 10)
	if len(matches) != 1 {
		t.Fatalf("matches=%d want 1", len(matches))
	}
	m := matches[0]
	if m.Score.Cmp(dec("1")) != 0 || m.MarketsInCommon != 3 {
		t.Fatalf("match=%+v want score 1 over 3 markets", m)
	}
	if m.UserAID != "u1" || m.UserBID != "u2" {
		t.Fatalf("pair not normalized: %s/%s", m.UserAID, m.UserBID)
	}
}

func TestRecompute_TwoMarketsNeverStored(t *testing.T) {
	store := memory.New()
	seedAgreement(t, store, 2)
	e := &Engine{Repo: store}
	ctx := context.Background()

	if err := e.RecomputeForUser(ctx, "u1"); err != nil {
		t.Fatalf("err=%v", err)
	}
	matches, _ := e.MatchesForUser(ctx, "u1", 10)
	if len(matches) != 0 {
		t.Fatalf("matches=%d want 0 (below shared-market floor)", len(matches))
	}
}

func TestRecompute_DeletesPairThatStopsQualifying(t *testing.T) {
	store := memory.New()
	seedAgreement(t, store, 3)
	e := &Engine{Repo: store}
	ctx := context.Background()

	if err := e.RecomputeForUser(ctx, "u1"); err != nil {
		t.Fatalf("err=%v", err)
	}
	if matches, _ := e.MatchesForUser(ctx, "u1", 10); len(matches) != 1 {
		t.Fatalf("precondition: expected stored match")
	}

	// Three disagreements drop the score to 0 and the pair must go.
	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		mid := string(rune('x'+i)) + "-market"
		_ = store.CreateMarketTx(ctx, nil, &models.Market{
			ID: mid, Status: models.MarketStatusResolved, ReleaseAt: now,
		})
		_ = store.CreateOutcomesTx(ctx, nil, []models.Outcome{
			{ID: mid + "-o1", MarketID: mid},
			{ID: mid + "-o2", MarketID: mid},
		})
		_ = store.CreateBetTx(ctx, nil, &models.Bet{
			ID: mid + "-b1", UserID: "u1", MarketID: mid, OutcomeID: mid + "-o1", Stake: dec("10"),
		})
		_ = store.CreateBetTx(ctx, nil, &models.Bet{
			ID: mid + "-b2", UserID: "u2", MarketID: mid, OutcomeID: mid + "-o2", Stake: dec("10"),
		})
	}
	if err := e.RecomputeForUser(ctx, "u1"); err != nil {
		t.Fatalf("err=%v", err)
	}
	if matches, _ := e.MatchesForUser(ctx, "u1", 10); len(matches) != 0 {
		t.Fatalf("pair should have been deleted, got %d", len(matches))
	}
}

func TestRecomputeForMarket_CoversAllParticipants(t *testing.T) {
	store := memory.New()
	seedAgreement(t, store, 3)
	e := &Engine{Repo: store}
	ctx := context.Background()

	if err := e.RecomputeForMarket(ctx, "a-market"); err != nil {
		t.Fatalf("err=%v", err)
	}
	for _, uid := range []string{"u1", "u2"} {
		matches, _ := e.MatchesForUser(ctx, uid, 10)
		if len(matches) != 1 {
			t.Fatalf("user %s matches=%d want 1", uid, len(matches))
		}
	}
}
