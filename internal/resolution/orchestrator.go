// Package resolution drives the market settlement state machine: it
// gates on market status, runs the payout calculator, commits the
// financial writes in one transaction, and fans out to the trendsetter
// ledger and taste-match index afterwards.
package resolution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"reelmarket/internal/models"
	"reelmarket/internal/payout"
	"reelmarket/internal/repository"
	"reelmarket/internal/tastematch"
	"reelmarket/internal/trendsetter"
)

// resolvableFrom lists the statuses a resolution may start from.
// "resolving" is included so a sweep can retry a market whose previous
// attempt claimed it and then died before committing.
var resolvableFrom = []string{
	models.MarketStatusLocked,
	models.MarketStatusOpen,
	models.MarketStatusResolving,
}

type Orchestrator struct {
	Repo        repository.Repository
	Trendsetter *trendsetter.Engine
	TasteMatch  *tastematch.Engine
	Logger      *zap.Logger
}

type ResolveInput struct {
	MarketID         string
	WinningOutcomeID string
	ActualValue      *decimal.Decimal
	ResolvedBy       string
	DataSource       string
	SourcePayload    []byte
	Note             string
}

type ResolveResult struct {
	Market  models.Market
	Payouts payout.Result
	// Steps completed, in order. On partial failure the accompanying
	// PartialError carries the same list.
	Completed []string
}

// PartialError reports a fan-out that failed after the financial core
// committed. The caller decides whether to retry the derived ledgers or
// hand off to manual cleanup; nothing is compensated automatically.
type PartialError struct {
	Completed []string
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("resolution fan-out incomplete (completed: %s): %v",
		strings.Join(e.Completed, ", "), e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Resolve settles a market against the winning outcome. Validation
// failures happen before any write; the conditional status update
// inside the transaction is the serialization point that makes a
// second concurrent attempt fail with ErrAlreadyResolved.
func (o *Orchestrator) Resolve(ctx context.Context, in ResolveInput) (*ResolveResult, error) {
	if o == nil || o.Repo == nil {
		return nil, fmt.Errorf("orchestrator not wired")
	}
	market, err := o.Repo.GetMarketByID(ctx, in.MarketID)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, fmt.Errorf("market %s: %w", in.MarketID, models.ErrMarketNotFound)
	}
	if market.Status == models.MarketStatusResolved {
		return nil, fmt.Errorf("market %s: %w", in.MarketID, models.ErrAlreadyResolved)
	}
	if !statusIn(market.Status, resolvableFrom) {
		return nil, fmt.Errorf("market %s in status %s: %w", in.MarketID, market.Status, models.ErrInvalidState)
	}
	if err := o.checkOutcome(ctx, in.MarketID, in.WinningOutcomeID); err != nil {
		return nil, err
	}

	bets, err := o.Repo.ListBetsByMarketID(ctx, in.MarketID)
	if err != nil {
		return nil, err
	}
	payouts, err := payout.Calculate(bets, in.WinningOutcomeID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res := &ResolveResult{Payouts: payouts}

	err = o.Repo.InTx(ctx, func(tx *gorm.DB) error {
		moved, err := o.Repo.MarkMarketResolvedTx(ctx, tx, in.MarketID, resolvableFrom, in.WinningOutcomeID, in.ActualValue, now)
		if err != nil {
			return err
		}
		if !moved {
			// Lost the race or the status changed under us.
			current, err := o.Repo.GetMarketByID(ctx, in.MarketID)
			if err == nil && current != nil && current.Status == models.MarketStatusResolved {
				return fmt.Errorf("market %s: %w", in.MarketID, models.ErrAlreadyResolved)
			}
			return fmt.Errorf("market %s: %w", in.MarketID, models.ErrInvalidState)
		}
		resolution := &models.Resolution{
			ID:          uuid.NewString(),
			MarketID:    in.MarketID,
			OutcomeID:   in.WinningOutcomeID,
			ActualValue: in.ActualValue,
			ResolvedBy:  in.ResolvedBy,
			DataSource:  in.DataSource,
			Note:        in.Note,
		}
		if len(in.SourcePayload) > 0 {
			resolution.SourcePayload = datatypes.JSON(in.SourcePayload)
		}
		if err := o.Repo.CreateResolutionTx(ctx, tx, resolution); err != nil {
			return err
		}
		for _, br := range payouts.Bets {
			if err := o.Repo.UpdateBetPayoutTx(ctx, tx, br.Bet.ID, br.Won, br.FinalPayout); err != nil {
				return err
			}
			if br.FinalPayout.IsPositive() {
				if err := o.Repo.AdjustUserBalanceTx(ctx, tx, br.Bet.UserID, br.FinalPayout); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Completed = append(res.Completed, "market", "resolution", "bet_payouts", "balances")

	updated, err := o.Repo.GetMarketByID(ctx, in.MarketID)
	if err == nil && updated != nil {
		res.Market = *updated
	}

	// Derived ledgers run after the financial commit; a failure here is
	// surfaced with the completed steps, never rolled back.
	for _, br := range payouts.Bets {
		if !br.Won {
			continue
		}
		bet := br.Bet
		if err := o.Trendsetter.AwardResolution(ctx, &bet); err != nil {
			return res, &PartialError{Completed: res.Completed, Err: fmt.Errorf("trendsetter award for bet %s: %w", bet.ID, err)}
		}
	}
	res.Completed = append(res.Completed, "trendsetter")

	if err := o.TasteMatch.RecomputeForMarket(ctx, in.MarketID); err != nil {
		return res, &PartialError{Completed: res.Completed, Err: fmt.Errorf("taste match recompute: %w", err)}
	}
	res.Completed = append(res.Completed, "taste_match")

	if o.Logger != nil {
		o.Logger.Info("market resolved",
			zap.String("market_id", in.MarketID),
			zap.String("outcome_id", in.WinningOutcomeID),
			zap.String("resolved_by", in.ResolvedBy),
			zap.Int("bets", len(payouts.Bets)),
			zap.Bool("refunded", payouts.Refunded))
	}
	return res, nil
}

// Cancel reverses a resolution: balances are debited by exactly the
// payouts that were credited, payout fields clear, the resolution row
// is deleted and the market returns to locked. Trendsetter and
// taste-match state stay as they are.
func (o *Orchestrator) Cancel(ctx context.Context, marketID string) error {
	if o == nil || o.Repo == nil {
		return fmt.Errorf("orchestrator not wired")
	}
	market, err := o.Repo.GetMarketByID(ctx, marketID)
	if err != nil {
		return err
	}
	if market == nil {
		return fmt.Errorf("market %s: %w", marketID, models.ErrMarketNotFound)
	}
	if market.Status != models.MarketStatusResolved {
		return fmt.Errorf("market %s in status %s: %w", marketID, market.Status, models.ErrInvalidState)
	}
	bets, err := o.Repo.ListBetsByMarketID(ctx, marketID)
	if err != nil {
		return err
	}

	err = o.Repo.InTx(ctx, func(tx *gorm.DB) error {
		moved, err := o.Repo.ClearMarketResolutionTx(ctx, tx, marketID)
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("market %s: %w", marketID, models.ErrInvalidState)
		}
		for _, b := range bets {
			if b.FinalPayout != nil && b.FinalPayout.IsPositive() {
				if err := o.Repo.AdjustUserBalanceTx(ctx, tx, b.UserID, b.FinalPayout.Neg()); err != nil {
					return err
				}
			}
		}
		if err := o.Repo.ClearBetPayoutsTx(ctx, tx, marketID); err != nil {
			return err
		}
		return o.Repo.DeleteResolutionTx(ctx, tx, marketID)
	})
	if err != nil {
		return err
	}
	if o.Logger != nil {
		o.Logger.Info("resolution cancelled", zap.String("market_id", marketID))
	}
	return nil
}

// Preview runs the payout calculator without mutating anything.
func (o *Orchestrator) Preview(ctx context.Context, marketID, winningOutcomeID string) (*payout.Summary, error) {
	if o == nil || o.Repo == nil {
		return nil, fmt.Errorf("orchestrator not wired")
	}
	market, err := o.Repo.GetMarketByID(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, fmt.Errorf("market %s: %w", marketID, models.ErrMarketNotFound)
	}
	if err := o.checkOutcome(ctx, marketID, winningOutcomeID); err != nil {
		return nil, err
	}
	bets, err := o.Repo.ListBetsByMarketID(ctx, marketID)
	if err != nil {
		return nil, err
	}
	res, err := payout.Calculate(bets, winningOutcomeID)
	if err != nil {
		return nil, err
	}
	summary := payout.Summarize(res)
	return &summary, nil
}

func (o *Orchestrator) checkOutcome(ctx context.Context, marketID, outcomeID string) error {
	outcome, err := o.Repo.GetOutcomeByID(ctx, outcomeID)
	if err != nil {
		return err
	}
	if outcome == nil || outcome.MarketID != marketID {
		return fmt.Errorf("outcome %s for market %s: %w", outcomeID, marketID, models.ErrOutcomeNotFound)
	}
	return nil
}

func statusIn(status string, list []string) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}
