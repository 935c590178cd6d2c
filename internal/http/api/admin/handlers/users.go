package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	dbutil "github.com/router-for-me/SnippetFactory/internal/db"
	"github.com/router-for-me/SnippetFactory/internal/models"
	"github.com/router-for-me/SnippetFactory/internal/payment"
	"gorm.io/gorm"
)

var errInsufficientBalance = errors.New("coin balance cannot go negative")

// UserHandler manages user accounts on behalf of operators.
type UserHandler struct {
	db      *gorm.DB
	catalog payment.Catalog
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB, catalog payment.Catalog) *UserHandler {
	return &UserHandler{db: db, catalog: catalog}
}

// List returns users with optional filters.
func (h *UserHandler) List(c *gin.Context) {
	var (
		usernameQ = strings.TrimSpace(c.Query("username"))
		idQ       = strings.TrimSpace(c.Query("id"))
		emailQ    = strings.TrimSpace(c.Query("email"))
		planQ     = strings.TrimSpace(c.Query("plan"))
		searchQ   = strings.TrimSpace(c.Query("search"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if usernameQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+usernameQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "username"), pattern)
	}
	if idQ != "" {
		if id, errParse := strconv.ParseUint(idQ, 10, 64); errParse == nil {
			q = q.Where("id = ?", id)
		}
	}
	if emailQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+emailQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "email"), pattern)
	}
	if planQ != "" {
		q = q.Where("plan = ?", strings.ToLower(planQ))
	}
	if searchQ != "" {
		searchPattern := "%" + searchQ + "%"
		ciPattern := dbutil.NormalizeLikePattern(h.db, searchPattern)
		q = q.Where(
			dbutil.CaseInsensitiveLikeExpr(h.db, "username")+" OR "+
				dbutil.CaseInsensitiveLikeExpr(h.db, "email")+" OR auth_id LIKE ?",
			ciPattern,
			ciPattern,
			searchPattern,
		)
	}

	var rows []models.User
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, formatUser(&row))
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

// Get returns a user by ID.
func (h *UserHandler) Get(c *gin.Context) {
	user, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, formatUser(user))
}

// updatePlanRequest grants or revokes a plan without a payment.
type updatePlanRequest struct {
	Plan      string     `json:"plan"`
	Billing   string     `json:"billing"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// UpdatePlan sets the user's plan. The free plan clears billing and expiry.
// Without expires_at the expiry is one billing period from now.
func (h *UserHandler) UpdatePlan(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}
	var body updatePlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	plan := models.Plan(strings.ToLower(strings.TrimSpace(body.Plan)))
	now := time.Now().UTC()
	updates := map[string]any{"plan": plan, "updated_at": now}
	switch {
	case plan == models.PlanFree:
		updates["plan_billing"] = ""
		updates["plan_expires_at"] = nil
	case h.catalog.KnownPlan(plan):
		billing := payment.NormalizeBilling(body.Billing)
		expiresAt := payment.AddBillingPeriod(now, billing)
		if body.ExpiresAt != nil {
			expiresAt = body.ExpiresAt.UTC()
		}
		updates["plan_billing"] = billing
		updates["plan_expires_at"] = &expiresAt
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	user, okLoad := h.load(c)
	if !okLoad {
		return
	}
	c.JSON(http.StatusOK, formatUser(user))
}

// AdjustCoins adds delta coins to the balance. Negative deltas may not
// overdraw the balance.
func (h *UserHandler) AdjustCoins(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}
	var body struct {
		Delta int64 `json:"delta"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.Delta == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "non-zero delta is required"})
		return
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.User{}).Where("id = ?", id)
		if body.Delta < 0 {
			q = q.Where("coins >= ?", -body.Delta)
		}
		res := q.UpdateColumn("coins", gorm.Expr("coins + ?", body.Delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if errCount := tx.Model(&models.User{}).Where("id = ?", id).Count(&count).Error; errCount != nil {
				return errCount
			}
			if count == 0 {
				return gorm.ErrRecordNotFound
			}
			return errInsufficientBalance
		}
		return nil
	})
	if errTx != nil {
		switch {
		case errors.Is(errTx, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(errTx, errInsufficientBalance):
			c.JSON(http.StatusConflict, gin.H{"error": errInsufficientBalance.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		}
		return
	}
	user, okLoad := h.load(c)
	if !okLoad {
		return
	}
	c.JSON(http.StatusOK, formatUser(user))
}

func (h *UserHandler) load(c *gin.Context) (*models.User, bool) {
	id, ok := parseUserID(c)
	if !ok {
		return nil, false
	}
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}
	return &user, true
}

func parseUserID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func formatUser(user *models.User) gin.H {
	return gin.H{
		"id":              user.ID,
		"auth_id":         user.AuthID,
		"username":        user.Username,
		"email":           user.Email,
		"plan":            user.Plan,
		"plan_billing":    user.PlanBilling,
		"plan_expires_at": user.PlanExpiresAt,
		"coins":           user.Coins,
		"created_at":      user.CreatedAt,
		"updated_at":      user.UpdatedAt,
	}
}
