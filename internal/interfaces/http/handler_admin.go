package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"wecom-relay/internal/usecases"
)

// SetMembershipLevel assigns a sender's tier and expiration. Validation
// failures are rejected explicitly; only store failures surface as 500.
func (h *Handler) SetMembershipLevel(c *gin.Context) {
	var req struct {
		UserID          string `json:"userId" binding:"required"`
		MembershipLevel string `json:"membershipLevel"`
		ExpirationType  string `json:"expirationType"`
		Duration        int    `json:"duration"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.membership.SetLevel(c.Request.Context(), req.UserID, req.MembershipLevel, req.ExpirationType, req.Duration)
	if errors.Is(err, usecases.ErrInvalidExpirationType) || errors.Is(err, usecases.ErrInvalidTier) {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.Printf("set membership level for %s: %v", req.UserID, err)
		c.String(http.StatusInternalServerError, "Error setting membership level")
		return
	}
	c.String(http.StatusOK, "Membership level and expiration set successfully")
}
