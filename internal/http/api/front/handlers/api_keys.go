package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/SnippetFactory/internal/models"
	"github.com/router-for-me/SnippetFactory/internal/security"
	"gorm.io/gorm"
)

const maxAPIKeysPerUser = 20

// APIKeyHandler manages the caller's API keys.
type APIKeyHandler struct {
	db *gorm.DB
}

// NewAPIKeyHandler constructs an APIKeyHandler.
func NewAPIKeyHandler(db *gorm.DB) *APIKeyHandler {
	return &APIKeyHandler{db: db}
}

// Create issues a new API key. The plaintext is returned only once.
func (h *APIKeyHandler) Create(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if errBindJSON := c.ShouldBindJSON(&body); errBindJSON != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}

	var count int64
	if errCount := h.db.WithContext(c.Request.Context()).Model(&models.APIKey{}).
		Where("user_id = ? AND active = ?", userID, true).
		Count(&count).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count api keys failed"})
		return
	}
	if count >= maxAPIKeysPerUser {
		c.JSON(http.StatusConflict, gin.H{"error": "api key limit reached"})
		return
	}

	token, errGenerate := security.GenerateAPIKey()
	if errGenerate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate api key failed"})
		return
	}
	row := models.APIKey{
		UserID:  userID,
		Name:    name,
		Prefix:  security.APIKeyDisplayPrefix(token),
		KeyHash: security.HashAPIKey(token),
		Active:  true,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&row).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create api key failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":     row.ID,
		"name":   row.Name,
		"prefix": row.Prefix,
		"token":  token,
	})
}

// List returns the caller's active API keys without secrets.
func (h *APIKeyHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var rows []models.APIKey
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ? AND active = ?", userID, true).
		Order("created_at DESC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list api keys failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":           row.ID,
			"name":         row.Name,
			"prefix":       row.Prefix,
			"last_used_at": row.LastUsedAt,
			"created_at":   row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"api_keys": out})
}

// Delete revokes one of the caller's API keys.
func (h *APIKeyHandler) Delete(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid api key id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Model(&models.APIKey{}).
		Where("id = ? AND user_id = ? AND active = ?", id, userID, true).
		Updates(map[string]any{"active": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "revoke api key failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
