package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"reelmarket/internal/models"
	"reelmarket/internal/repository"
	"reelmarket/internal/resolution"
)

type ResolutionHandler struct {
	Repo         repository.Repository
	Orchestrator *resolution.Orchestrator
}

func (h *ResolutionHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/markets/:id/resolution")
	group.POST("", h.resolve)
	group.GET("", h.get)
	group.GET("/preview", h.preview)
	group.DELETE("", h.cancel)
}

type resolveRequest struct {
	WinningOutcomeID string          `json:"winning_outcome_id"`
	ActualValue      *string         `json:"actual_value"`
	ResolvedBy       string          `json:"resolved_by"`
	Note             string          `json:"note"`
	SourcePayload    json.RawMessage `json:"source_payload"`
}

func (h *ResolutionHandler) resolve(c *gin.Context) {
	if h.Orchestrator == nil {
		Error(c, http.StatusInternalServerError, "orchestrator unavailable", nil)
		return
	}
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	req.WinningOutcomeID = strings.TrimSpace(req.WinningOutcomeID)
	req.ResolvedBy = strings.TrimSpace(req.ResolvedBy)
	if req.WinningOutcomeID == "" || req.ResolvedBy == "" {
		Error(c, http.StatusBadRequest, "winning_outcome_id and resolved_by required", nil)
		return
	}
	var actual *decimal.Decimal
	if req.ActualValue != nil && strings.TrimSpace(*req.ActualValue) != "" {
		v, err := decimal.NewFromString(strings.TrimSpace(*req.ActualValue))
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid actual_value", nil)
			return
		}
		actual = &v
	}
	res, err := h.Orchestrator.Resolve(c.Request.Context(), resolution.ResolveInput{
		MarketID:         c.Param("id"),
		WinningOutcomeID: req.WinningOutcomeID,
		ActualValue:      actual,
		ResolvedBy:       req.ResolvedBy,
		DataSource:       models.ResolutionSourceManual,
		SourcePayload:    req.SourcePayload,
		Note:             strings.TrimSpace(req.Note),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, gin.H{
		"market":  res.Market,
		"payouts": res.Payouts,
	}, map[string]any{"completed_steps": res.Completed})
}

func (h *ResolutionHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item, err := h.Repo.GetResolutionByMarketID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "market not resolved", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *ResolutionHandler) preview(c *gin.Context) {
	if h.Orchestrator == nil {
		Error(c, http.StatusInternalServerError, "orchestrator unavailable", nil)
		return
	}
	outcomeID := strings.TrimSpace(c.Query("outcome_id"))
	if outcomeID == "" {
		Error(c, http.StatusBadRequest, "outcome_id required", nil)
		return
	}
	summary, err := h.Orchestrator.Preview(c.Request.Context(), c.Param("id"), outcomeID)
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, summary, nil)
}

func (h *ResolutionHandler) cancel(c *gin.Context) {
	if h.Orchestrator == nil {
		Error(c, http.StatusInternalServerError, "orchestrator unavailable", nil)
		return
	}
	if err := h.Orchestrator.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	Ok(c, gin.H{"cancelled": true}, nil)
}
