package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// MeHandler returns the caller's account summary.
type MeHandler struct {
	nowFn func() time.Time
}

// NewMeHandler constructs a MeHandler.
func NewMeHandler() *MeHandler {
	return &MeHandler{nowFn: time.Now}
}

// Get returns plan, expiry and coin balance.
func (h *MeHandler) Get(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":              user.ID,
		"username":        user.Username,
		"email":           user.Email,
		"plan":            user.Plan,
		"plan_billing":    user.PlanBilling,
		"plan_expires_at": user.PlanExpiresAt,
		"plan_active":     user.HasActivePlan(h.nowFn()),
		"coins":           user.Coins,
		"created_at":      user.CreatedAt,
	})
}
