package payout

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"reelmarket/internal/models"
)

func bet(id, outcomeID, stake, multiplier string, contrarian bool) models.Bet {
	return models.Bet{
		ID:                id,
		OutcomeID:         outcomeID,
		Stake:             decimal.RequireFromString(stake),
		DynamicMultiplier: decimal.RequireFromString(multiplier),
		IsContrarian:      contrarian,
	}
}

func TestCalculate_PariMutuelShare(t *testing.T) {
	// Pool 100: one winner staked 80 at 80% popularity (frozen 0.91),
	// one loser staked 20.
	bets := []models.Bet{
		bet("b1", "win", "80", "0.91", false),
		bet("b2", "lose", "20", "1.09", true),
	}
	res, err := Calculate(bets, "win")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if res.TotalPool.String() != "100" {
		t.Fatalf("pool=%s want 100", res.TotalPool.String())
	}
	if res.Refunded {
		t.Fatalf("unexpected refund")
	}
	winner := res.Bets[0]
	if !winner.Won {
		t.Fatalf("winner not flagged won")
	}
	if winner.BasePayout.Cmp(decimal.NewFromInt(100)) != 0 {
		t.Fatalf("base=%s want 100", winner.BasePayout.String())
	}
	if winner.FinalPayout.Cmp(decimal.NewFromInt(91)) != 0 {
		t.Fatalf("final=%s want 91", winner.FinalPayout.String())
	}
	loser := res.Bets[1]
	if loser.Won || !loser.FinalPayout.IsZero() {
		t.Fatalf("loser won=%v final=%s want lost/0", loser.Won, loser.FinalPayout.String())
	}
}

func TestCalculate_ContrarianBonus(t *testing.T) {
	bets := []models.Bet{
		bet("b1", "win", "20", "1.09", true),
		bet("b2", "lose", "80", "0.91", false),
	}
	res, err := Calculate(bets, "win")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	// base = (20/20)*100 = 100; final = 100 * 1.09 * 1.25 = 136.25
	winner := res.Bets[0]
	if winner.FinalPayout.Cmp(decimal.RequireFromString("136.25")) != 0 {
		t.Fatalf("final=%s want 136.25", winner.FinalPayout.String())
	}
	if winner.ContrarianBonus.Cmp(decimal.RequireFromString("1.25")) != 0 {
		t.Fatalf("bonus=%s want 1.25", winner.ContrarianBonus.String())
	}
}

func TestCalculate_NoWinners_FullRefund(t *testing.T) {
	bets := []models.Bet{
		bet("b1", "a", "30", "1.0", false),
		bet("b2", "b", "70", "1.0", false),
	}
	res, err := Calculate(bets, "c")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !res.Refunded {
		t.Fatalf("expected refund fallback")
	}
	for i, br := range res.Bets {
		if br.Won {
			t.Fatalf("bet %d flagged won in refund", i)
		}
		if br.FinalPayout.Cmp(br.Bet.Stake) != 0 {
			t.Fatalf("bet %d final=%s want stake %s", i, br.FinalPayout.String(), br.Bet.Stake.String())
		}
	}
}

func TestCalculate_MultipleWinnersProportional(t *testing.T) {
	bets := []models.Bet{
		bet("b1", "win", "60", "1.0", false),
		bet("b2", "win", "20", "1.0", false),
		bet("b3", "lose", "20", "1.0", false),
	}
	res, err := Calculate(bets, "win")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	// Shares of the 100 pool: 60/80 and 20/80.
	if res.Bets[0].BasePayout.Cmp(decimal.NewFromInt(75)) != 0 {
		t.Fatalf("b1 base=%s want 75", res.Bets[0].BasePayout.String())
	}
	if res.Bets[1].BasePayout.Cmp(decimal.NewFromInt(25)) != 0 {
		t.Fatalf("b2 base=%s want 25", res.Bets[1].BasePayout.String())
	}
}

func TestCalculate_DriftIsBounded(t *testing.T) {
	// Multiplier and bonus are not zero-sum, so the payout sum may
	// deviate from the pool, but only within multiplier*bonus bounds.
	bets := []models.Bet{
		bet("b1", "win", "10", "1.09", true),
		bet("b2", "win", "15", "1.05", false),
		bet("b3", "lose", "75", "0.9", false),
	}
	res, err := Calculate(bets, "win")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	sum := decimal.Zero
	for _, br := range res.Bets {
		sum = sum.Add(br.FinalPayout)
	}
	lower := res.TotalPool.Mul(decimal.RequireFromString("0.7"))
	upper := res.TotalPool.Mul(decimal.RequireFromString("1.625")) // 1.3 * 1.25
	if sum.LessThan(lower) || sum.GreaterThan(upper) {
		t.Fatalf("payout sum %s outside bounded drift [%s,%s]", sum.String(), lower.String(), upper.String())
	}
}

func TestCalculate_EmptyWinningOutcome(t *testing.T) {
	_, err := Calculate(nil, "")
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("err=%v want ErrInvalidInput", err)
	}
}

func TestSummarize(t *testing.T) {
	bets := []models.Bet{
		bet("b1", "win", "60", "1.0", false),
		bet("b2", "win", "20", "1.0", false),
		bet("b3", "lose", "20", "1.0", false),
	}
	res, err := Calculate(bets, "win")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	s := Summarize(res)
	if s.Winners != 2 || s.Losers != 1 {
		t.Fatalf("winners=%d losers=%d want 2/1", s.Winners, s.Losers)
	}
	if s.AveragePayout.Cmp(decimal.NewFromInt(50)) != 0 {
		t.Fatalf("avg=%s want 50", s.AveragePayout.String())
	}
}
