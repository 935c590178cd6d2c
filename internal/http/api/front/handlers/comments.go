package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/SnippetFactory/internal/models"
	"gorm.io/gorm"
)

const maxCommentLength = 10000

// CommentHandler serves snippet comment endpoints.
type CommentHandler struct {
	db       *gorm.DB
	snippets *SnippetHandler
}

// NewCommentHandler constructs a CommentHandler.
func NewCommentHandler(db *gorm.DB, snippets *SnippetHandler) *CommentHandler {
	return &CommentHandler{db: db, snippets: snippets}
}

// Create adds a comment to a readable snippet.
func (h *CommentHandler) Create(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	snippet, ok := h.snippets.loadReadable(c)
	if !ok {
		return
	}
	var body struct {
		Body string `json:"body"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	text := strings.TrimSpace(body.Body)
	if text == "" || len(text) > maxCommentLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment body"})
		return
	}
	row := models.Comment{SnippetID: snippet.ID, UserID: userID, Body: text}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&row).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create comment failed"})
		return
	}
	c.JSON(http.StatusCreated, formatComment(&row))
}

// List returns comments of a readable snippet, oldest first.
func (h *CommentHandler) List(c *gin.Context) {
	snippet, ok := h.snippets.loadReadable(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)
	var rows []models.Comment
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("snippet_id = ?", snippet.ID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list comments failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, formatComment(&row))
	}
	c.JSON(http.StatusOK, gin.H{"comments": out})
}

// Delete removes a comment written by the caller.
func (h *CommentHandler) Delete(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment id"})
		return
	}
	var row models.Comment
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query comment failed"})
		return
	}
	if row.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the comment author"})
		return
	}
	if errDelete := h.db.WithContext(c.Request.Context()).Delete(&models.Comment{}, row.ID).Error; errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete comment failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func formatComment(row *models.Comment) gin.H {
	return gin.H{
		"id":         row.ID,
		"snippet_id": row.SnippetID,
		"user_id":    row.UserID,
		"body":       row.Body,
		"created_at": row.CreatedAt,
	}
}
