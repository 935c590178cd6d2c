package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/SnippetFactory/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$`)

// CommunityHandler serves community endpoints.
type CommunityHandler struct {
	db *gorm.DB
}

// NewCommunityHandler constructs a CommunityHandler.
func NewCommunityHandler(db *gorm.DB) *CommunityHandler {
	return &CommunityHandler{db: db}
}

// createCommunityRequest defines the request body for creating communities.
type createCommunityRequest struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create registers a community owned by the caller.
func (h *CommunityHandler) Create(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body createCommunityRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	slug := strings.ToLower(strings.TrimSpace(body.Slug))
	if !slugPattern.MatchString(slug) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slug"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		name = slug
	}

	row := models.Community{
		OwnerID:     userID,
		Slug:        slug,
		Name:        name,
		Description: strings.TrimSpace(body.Description),
	}
	res := h.db.WithContext(c.Request.Context()).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create community failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "slug already taken"})
		return
	}
	c.JSON(http.StatusCreated, formatCommunity(&row))
}

// List returns communities ordered by name.
func (h *CommunityHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	var rows []models.Community
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("name ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list communities failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, formatCommunity(&row))
	}
	c.JSON(http.StatusOK, gin.H{"communities": out})
}

// Get returns a community by slug.
func (h *CommunityHandler) Get(c *gin.Context) {
	row, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, formatCommunity(row))
}

// Delete removes a community owned by the caller and detaches its snippets.
func (h *CommunityHandler) Delete(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	row, ok := h.load(c)
	if !ok {
		return
	}
	if row.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the community owner"})
		return
	}
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errDetach := tx.Model(&models.Snippet{}).
			Where("community_id = ?", row.ID).
			Update("community_id", nil).Error; errDetach != nil {
			return errDetach
		}
		return tx.Delete(&models.Community{}, row.ID).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete community failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CommunityHandler) load(c *gin.Context) (*models.Community, bool) {
	slug := strings.ToLower(strings.TrimSpace(c.Param("slug")))
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slug"})
		return nil, false
	}
	var row models.Community
	if errFind := h.db.WithContext(c.Request.Context()).Where("slug = ?", slug).First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query community failed"})
		return nil, false
	}
	return &row, true
}

func formatCommunity(row *models.Community) gin.H {
	return gin.H{
		"id":          row.ID,
		"owner_id":    row.OwnerID,
		"slug":        row.Slug,
		"name":        row.Name,
		"description": row.Description,
		"created_at":  row.CreatedAt,
	}
}
