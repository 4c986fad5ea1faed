package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reelmarket/internal/tastematch"
	"reelmarket/internal/trendsetter"
)

// ScoreHandler exposes the trendsetter point ledger and the taste-match
// index. Both are read paths; writes happen inside bet placement and
// resolution.
type ScoreHandler struct {
	Trendsetter *trendsetter.Engine
	TasteMatch  *tastematch.Engine
}

func (h *ScoreHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/users/:id/trendsetter", h.userScore)
	r.GET("/api/v1/users/:id/taste-matches", h.tasteMatches)
	r.GET("/api/v1/trendsetter/leaderboard", h.leaderboard)
}

func (h *ScoreHandler) userScore(c *gin.Context) {
	if h.Trendsetter == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	userID := c.Param("id")
	score, err := h.Trendsetter.UserScore(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	events, err := h.Trendsetter.Events(c.Request.Context(), userID, parseIntDefault(c.Query("limit"), 50))
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, gin.H{
		"user_id": userID,
		"score":   score,
		"events":  events,
	}, nil)
}

func (h *ScoreHandler) leaderboard(c *gin.Context) {
	if h.Trendsetter == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	rows, err := h.Trendsetter.Leaderboard(c.Request.Context(), parseIntDefault(c.Query("limit"), 20))
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, rows, map[string]any{"count": len(rows)})
}

func (h *ScoreHandler) tasteMatches(c *gin.Context) {
	if h.TasteMatch == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	matches, err := h.TasteMatch.MatchesForUser(c.Request.Context(), c.Param("id"), parseIntDefault(c.Query("limit"), 20))
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, matches, map[string]any{"count": len(matches)})
}
