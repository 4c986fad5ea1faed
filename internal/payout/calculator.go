// Package payout computes per-bet settlement amounts for a resolved
// market: a pari-mutuel pool split scaled by the multiplier and
// contrarian bonus frozen on each bet at placement time.
package payout

import (
	"fmt"

	"github.com/shopspring/decimal"

	"reelmarket/internal/models"
)

// ContrarianBonus multiplies a winning bet that was contrarian when
// placed. Together with the dynamic multiplier it makes the payout sum
// deviate from the pool total; that drift is intended, not a bug.
var ContrarianBonus = decimal.RequireFromString("1.25")

const CurrencyPlaces = 2

type BetResult struct {
	Bet               models.Bet
	Won               bool
	BasePayout        decimal.Decimal
	DynamicMultiplier decimal.Decimal
	ContrarianBonus   decimal.Decimal
	FinalPayout       decimal.Decimal
}

type Result struct {
	TotalPool          decimal.Decimal
	TotalWinningStakes decimal.Decimal
	// Refunded is set when no bet selected the winning outcome; every
	// stake is returned unchanged and nothing is flagged won.
	Refunded bool
	Bets     []BetResult
}

// Calculate settles every bet in a market against the declared winning
// outcome. Winners split the whole pool proportionally to stake, then
// their frozen multiplier and contrarian bonus apply on top.
func Calculate(bets []models.Bet, winningOutcomeID string) (Result, error) {
	if winningOutcomeID == "" {
		return Result{}, fmt.Errorf("winning outcome id is empty: %w", models.ErrInvalidInput)
	}

	totalPool := decimal.Zero
	totalWinning := decimal.Zero
	for _, b := range bets {
		if b.Stake.IsNegative() {
			return Result{}, fmt.Errorf("bet %s has negative stake: %w", b.ID, models.ErrInvalidInput)
		}
		totalPool = totalPool.Add(b.Stake)
		if b.OutcomeID == winningOutcomeID {
			totalWinning = totalWinning.Add(b.Stake)
		}
	}

	res := Result{
		TotalPool:          totalPool,
		TotalWinningStakes: totalWinning,
		Bets:               make([]BetResult, 0, len(bets)),
	}

	if totalWinning.IsZero() {
		// Full-refund fallback: stakes come back, nobody wins.
		res.Refunded = true
		for _, b := range bets {
			res.Bets = append(res.Bets, BetResult{
				Bet:               b,
				Won:               false,
				BasePayout:        b.Stake,
				DynamicMultiplier: decimal.NewFromInt(1),
				ContrarianBonus:   decimal.NewFromInt(1),
				FinalPayout:       b.Stake,
			})
		}
		return res, nil
	}

	for _, b := range bets {
		if b.OutcomeID != winningOutcomeID {
			res.Bets = append(res.Bets, BetResult{
				Bet:               b,
				Won:               false,
				BasePayout:        decimal.Zero,
				DynamicMultiplier: b.DynamicMultiplier,
				ContrarianBonus:   decimal.NewFromInt(1),
				FinalPayout:       decimal.Zero,
			})
			continue
		}
		base := b.Stake.Div(totalWinning).Mul(totalPool)
		bonus := decimal.NewFromInt(1)
		if b.IsContrarian {
			bonus = ContrarianBonus
		}
		final := base.Mul(b.DynamicMultiplier).Mul(bonus).Round(CurrencyPlaces)
		res.Bets = append(res.Bets, BetResult{
			Bet:               b,
			Won:               true,
			BasePayout:        base.Round(CurrencyPlaces),
			DynamicMultiplier: b.DynamicMultiplier,
			ContrarianBonus:   bonus,
			FinalPayout:       final,
		})
	}
	return res, nil
}

// Summary condenses a Result for the admin preview endpoint.
type Summary struct {
	TotalPool     decimal.Decimal
	Winners       int
	Losers        int
	Refunded      bool
	AveragePayout decimal.Decimal
}

func Summarize(res Result) Summary {
	s := Summary{
		TotalPool: res.TotalPool,
		Refunded:  res.Refunded,
	}
	payoutSum := decimal.Zero
	for _, br := range res.Bets {
		if br.Won {
			s.Winners++
			payoutSum = payoutSum.Add(br.FinalPayout)
		} else if !res.Refunded {
			s.Losers++
		}
	}
	if s.Winners > 0 {
		s.AveragePayout = payoutSum.Div(decimal.NewFromInt(int64(s.Winners))).Round(CurrencyPlaces)
	}
	return s
}
