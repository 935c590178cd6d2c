package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/SnippetFactory/internal/models"
	"gorm.io/gorm"
)

// APIKeyHandler lets operators inspect and revoke user API keys.
type APIKeyHandler struct {
	db *gorm.DB
}

// NewAPIKeyHandler constructs an APIKeyHandler.
func NewAPIKeyHandler(db *gorm.DB) *APIKeyHandler {
	return &APIKeyHandler{db: db}
}

// ListByUser returns every key of a user, including revoked ones.
func (h *APIKeyHandler) ListByUser(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	var rows []models.APIKey
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list api keys failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":           row.ID,
			"user_id":      row.UserID,
			"name":         row.Name,
			"prefix":       row.Prefix,
			"active":       row.Active,
			"last_used_at": row.LastUsedAt,
			"created_at":   row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"api_keys": out})
}

// Revoke deactivates a key by ID.
func (h *APIKeyHandler) Revoke(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Model(&models.APIKey{}).
		Where("id = ?", id).
		Updates(map[string]any{"active": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "revoke failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
