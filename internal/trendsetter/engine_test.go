package trendsetter

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"reelmarket/internal/models"
	"reelmarket/internal/repository/memory"
)

func TestAwardPlacement_BlindAndContrarianStack(t *testing.T) {
	store := memory.New()
	e := &Engine{Repo: store}
	ctx := context.Background()

	bet := &models.Bet{ID: "b1", UserID: "u1", MarketID: "m1", IsBlind: true, IsContrarian: true}
	if err := e.AwardPlacement(ctx, bet); err != nil {
		t.Fatalf("err=%v", err)
	}
	score, err := e.UserScore(ctx, "u1")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if score != 3 {
		t.Fatalf("score=%d want 3 (+1 blind, +2 contrarian)", score)
	}
}

func TestAwardPlacement_PlainBetScoresNothing(t *testing.T) {
	store := memory.New()
	e := &Engine{Repo: store}
	ctx := context.Background()

	if err := e.AwardPlacement(ctx, &models.Bet{ID: "b1", UserID: "u1", MarketID: "m1"}); err != nil {
		t.Fatalf("err=%v", err)
	}
	score, _ := e.UserScore(ctx, "u1")
	if score != 0 {
		t.Fatalf("score=%d want 0", score)
	}
}

func TestMaxLifetimeAward_BlindContrarianCorrect(t *testing.T) {
	store := memory.New()
	e := &Engine{Repo: store}
	ctx := context.Background()

	bet := &models.Bet{
		ID: "b1", UserID: "u1", MarketID: "m1",
		IsBlind: true, IsContrarian: true,
		Stake: decimal.NewFromInt(10),
	}
	if err := e.AwardPlacement(ctx, bet); err != nil {
		t.Fatalf("placement err=%v", err)
	}
	if err := e.AwardResolution(ctx, bet); err != nil {
		t.Fatalf("resolution err=%v", err)
	}
	score, _ := e.UserScore(ctx, "u1")
	if score != 10 {
		t.Fatalf("score=%d want 10 (1+2 placement, 2+5 resolution)", score)
	}
	events, _ := e.Events(ctx, "u1", 0)
	if len(events) != 4 {
		t.Fatalf("events=%d want 4 ledger rows", len(events))
	}
}

func TestLeaderboard_OrdersBySum(t *testing.T) {
	store := memory.New()
	e := &Engine{Repo: store}
	ctx := context.Background()

	_ = e.AwardPlacement(ctx, &models.Bet{ID: "b1", UserID: "u1", MarketID: "m1", IsBlind: true})
	_ = e.AwardPlacement(ctx, &models.Bet{ID: "b2", UserID: "u2", MarketID: "m1", IsBlind: true, IsContrarian: true})

	rows, err := e.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%d want 2", len(rows))
	}
	if rows[0].UserID != "u2" || rows[0].Points != 3 {
		t.Fatalf("top row=%+v want u2/3", rows[0])
	}
}
