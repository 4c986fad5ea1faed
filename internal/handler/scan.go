package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reelmarket/internal/scanner"
	"reelmarket/internal/service"
)

// AdminHandler triggers background jobs on demand, ahead of their cron
// schedule.
type AdminHandler struct {
	Scanner *scanner.Scanner
	Markets *service.MarketService
}

func (h *AdminHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/admin")
	group.POST("/auto-resolve", h.autoResolve)
	group.POST("/lifecycle-sweep", h.lifecycleSweep)
}

func (h *AdminHandler) autoResolve(c *gin.Context) {
	if h.Scanner == nil {
		Error(c, http.StatusInternalServerError, "scanner unavailable", nil)
		return
	}
	res, err := h.Scanner.RunScan(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, res, nil)
}

func (h *AdminHandler) lifecycleSweep(c *gin.Context) {
	if h.Markets == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	res, err := h.Markets.LifecycleSweep(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, res, nil)
}
