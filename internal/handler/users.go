package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"reelmarket/internal/models"
	"reelmarket/internal/repository"
)

type UserHandler struct {
	Repo repository.Repository
}

func (h *UserHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/users")
	group.POST("", h.create)
	group.GET("/:id", h.get)
}

type createUserRequest struct {
	DisplayName    string `json:"display_name"`
	InitialBalance string `json:"initial_balance"`
}

func (h *UserHandler) create(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.DisplayName == "" {
		Error(c, http.StatusBadRequest, "display_name required", nil)
		return
	}
	balance := decimal.Zero
	if strings.TrimSpace(req.InitialBalance) != "" {
		v, err := decimal.NewFromString(strings.TrimSpace(req.InitialBalance))
		if err != nil || v.IsNegative() {
			Error(c, http.StatusBadRequest, "invalid initial_balance", nil)
			return
		}
		balance = v
	}
	user := &models.User{
		ID:          uuid.NewString(),
		DisplayName: req.DisplayName,
		Balance:     balance.Round(2),
	}
	if err := h.Repo.CreateUser(c.Request.Context(), user); err != nil {
		respondError(c, err)
		return
	}
	Ok(c, user, nil)
}

func (h *UserHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	user, err := h.Repo.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if user == nil {
		Error(c, http.StatusNotFound, "user not found", nil)
		return
	}
	Ok(c, user, nil)
}
