package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/launchpad/internal/http/middleware"
	"github.com/smallbiznis/launchpad/internal/service"
)

// BillingHandler starts subscription payment flows.
type BillingHandler struct {
	Billing *service.BillingService
}

// NewBillingHandler creates the handler.
func NewBillingHandler(billing *service.BillingService) *BillingHandler {
	return &BillingHandler{Billing: billing}
}

// Subscribe requests a payment process for the chosen plan.
func (h *BillingHandler) Subscribe(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Missing subject claim."})
		return
	}

	var req struct {
		Plan string `json:"plan"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Plan) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Plan is required."})
		return
	}

	processID, err := h.Billing.StartSubscription(c.Request.Context(), userID, req.Plan)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"process_id": processID})
}
