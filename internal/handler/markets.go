package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"reelmarket/internal/models"
	"reelmarket/internal/repository"
	"reelmarket/internal/service"
)

type MarketHandler struct {
	Service *service.MarketService
}

func (h *MarketHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/markets")
	group.POST("", h.create)
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.POST("/:id/publish", h.publish)
	group.POST("/:id/open", h.open)
	group.POST("/:id/lock", h.lock)
	group.POST("/:id/cancel", h.cancel)
}

type createOutcomeRequest struct {
	Label         string  `json:"label"`
	OverThreshold *bool   `json:"over_threshold"`
	BracketMin    *string `json:"bracket_min"`
	BracketMax    *string `json:"bracket_max"`
}

type createMarketRequest struct {
	Title      string                 `json:"title"`
	FilmID     string                 `json:"film_id"`
	FilmTitle  string                 `json:"film_title"`
	Kind       string                 `json:"kind"`        // binary|range
	MetricType string                 `json:"metric_type"` // critic_score|box_office
	Threshold  *string                `json:"threshold"`
	ReleaseAt  string                 `json:"release_at"` // RFC3339
	BlindUntil *string                `json:"blind_until"`
	LocksAt    *string                `json:"locks_at"`
	Outcomes   []createOutcomeRequest `json:"outcomes"`
}

func (h *MarketHandler) create(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req createMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	releaseAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ReleaseAt))
	if err != nil {
		Error(c, http.StatusBadRequest, "release_at must be RFC3339", nil)
		return
	}
	in := service.CreateMarketInput{
		Title:      strings.TrimSpace(req.Title),
		FilmID:     strings.TrimSpace(req.FilmID),
		FilmTitle:  strings.TrimSpace(req.FilmTitle),
		Kind:       strings.TrimSpace(req.Kind),
		MetricType: strings.TrimSpace(req.MetricType),
		ReleaseAt:  releaseAt,
	}
	if in.Threshold, err = parseDecimalPtr(req.Threshold); err != nil {
		Error(c, http.StatusBadRequest, "invalid threshold", nil)
		return
	}
	if in.BlindUntil, err = parseTimePtr(req.BlindUntil); err != nil {
		Error(c, http.StatusBadRequest, "blind_until must be RFC3339", nil)
		return
	}
	if in.LocksAt, err = parseTimePtr(req.LocksAt); err != nil {
		Error(c, http.StatusBadRequest, "locks_at must be RFC3339", nil)
		return
	}
	for _, o := range req.Outcomes {
		oc := service.CreateOutcomeInput{
			Label:         strings.TrimSpace(o.Label),
			OverThreshold: o.OverThreshold,
		}
		if oc.BracketMin, err = parseDecimalPtr(o.BracketMin); err != nil {
			Error(c, http.StatusBadRequest, "invalid bracket_min", nil)
			return
		}
		if oc.BracketMax, err = parseDecimalPtr(o.BracketMax); err != nil {
			Error(c, http.StatusBadRequest, "invalid bracket_max", nil)
			return
		}
		in.Outcomes = append(in.Outcomes, oc)
	}

	market, err := h.Service.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, market, nil)
}

func (h *MarketHandler) list(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	params := repository.ListMarketsParams{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		params.Status = &v
	}
	if v := strings.TrimSpace(c.Query("metric_type")); v != "" {
		params.MetricType = &v
	}
	if v := strings.TrimSpace(c.Query("film_id")); v != "" {
		params.FilmID = &v
	}
	items, err := h.Service.List(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func (h *MarketHandler) get(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := c.Param("id")
	market, err := h.Service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	outcomes, err := h.Service.Outcomes(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, gin.H{"market": market, "outcomes": outcomes}, nil)
}

func (h *MarketHandler) publish(c *gin.Context) { h.transition(c, h.Service.Publish) }
func (h *MarketHandler) open(c *gin.Context)    { h.transition(c, h.Service.Open) }
func (h *MarketHandler) lock(c *gin.Context)    { h.transition(c, h.Service.Lock) }
func (h *MarketHandler) cancel(c *gin.Context)  { h.transition(c, h.Service.CancelMarket) }

func (h *MarketHandler) transition(c *gin.Context, fn func(ctx context.Context, id string) (*models.Market, error)) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	market, err := fn(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, market, nil)
}

func parseDecimalPtr(s *string) (*decimal.Decimal, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(strings.TrimSpace(*s))
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseTimePtr(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*s))
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func parseIntDefault(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}
