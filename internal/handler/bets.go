package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"reelmarket/internal/service"
)

type BetHandler struct {
	Service *service.BetService
}

func (h *BetHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/bets")
	group.POST("", h.place)
	group.GET("", h.list)
}

type placeBetRequest struct {
	UserID    string `json:"user_id"`
	MarketID  string `json:"market_id"`
	OutcomeID string `json:"outcome_id"`
	Stake     string `json:"stake"`
}

func (h *BetHandler) place(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req placeBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	stake, err := decimal.NewFromString(strings.TrimSpace(req.Stake))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid stake", nil)
		return
	}
	bet, err := h.Service.Place(c.Request.Context(), service.PlaceBetInput{
		UserID:    strings.TrimSpace(req.UserID),
		MarketID:  strings.TrimSpace(req.MarketID),
		OutcomeID: strings.TrimSpace(req.OutcomeID),
		Stake:     stake,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, bet, nil)
}

func (h *BetHandler) list(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	marketID := strings.TrimSpace(c.Query("market_id"))
	userID := strings.TrimSpace(c.Query("user_id"))
	switch {
	case marketID != "":
		items, err := h.Service.ListByMarket(c.Request.Context(), marketID)
		if err != nil {
			respondError(c, err)
			return
		}
		Ok(c, items, map[string]any{"count": len(items)})
	case userID != "":
		items, err := h.Service.ListByUser(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		Ok(c, items, map[string]any{"count": len(items)})
	default:
		Error(c, http.StatusBadRequest, "market_id or user_id required", nil)
	}
}
