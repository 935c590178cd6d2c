package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/SnippetFactory/internal/db"
	"github.com/router-for-me/SnippetFactory/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	maxTitleLength = 255
	maxTags        = 10
)

// SnippetHandler serves snippet CRUD endpoints.
type SnippetHandler struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewSnippetHandler constructs a SnippetHandler.
func NewSnippetHandler(db *gorm.DB) *SnippetHandler {
	return &SnippetHandler{db: db, nowFn: time.Now}
}

// snippetRequest is the body accepted by Create and Update.
type snippetRequest struct {
	Title       *string   `json:"title"`
	Language    *string   `json:"language"`
	Code        *string   `json:"code"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
	Visibility  *string   `json:"visibility"`
	CommunityID *uint64   `json:"community_id"`
}

var (
	errPrivateRequiresPlan = errors.New("private snippets require an active plan")
	errInvalidVisibility   = errors.New("invalid visibility")
)

// Create stores a new snippet owned by the caller.
func (h *SnippetHandler) Create(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body snippetRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	title := strings.TrimSpace(deref(body.Title))
	code := deref(body.Code)
	if title == "" || strings.TrimSpace(code) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and code are required"})
		return
	}
	if len(title) > maxTitleLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title too long"})
		return
	}
	visibility, errVisibility := h.resolveVisibility(user, body.Visibility, models.VisibilityPublic)
	if errVisibility != nil {
		status := http.StatusBadRequest
		if errors.Is(errVisibility, errPrivateRequiresPlan) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": errVisibility.Error()})
		return
	}
	tags, errTags := encodeTags(body.Tags)
	if errTags != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errTags.Error()})
		return
	}
	if body.CommunityID != nil {
		var count int64
		if errCount := h.db.WithContext(c.Request.Context()).Model(&models.Community{}).
			Where("id = ?", *body.CommunityID).Count(&count).Error; errCount != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query community failed"})
			return
		}
		if count == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "community not found"})
			return
		}
	}

	row := models.Snippet{
		UserID:      user.ID,
		CommunityID: body.CommunityID,
		Title:       title,
		Language:    strings.ToLower(strings.TrimSpace(deref(body.Language))),
		Code:        code,
		Description: strings.TrimSpace(deref(body.Description)),
		Tags:        tags,
		Visibility:  visibility,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&row).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create snippet failed"})
		return
	}
	c.JSON(http.StatusCreated, formatSnippet(&row))
}

// List returns public snippets plus the caller's own.
func (h *SnippetHandler) List(c *gin.Context) {
	userID := getUserID(c)
	limit, offset := pagination(c)

	q := h.db.WithContext(c.Request.Context()).
		Model(&models.Snippet{}).
		Where("visibility = ? OR user_id = ?", models.VisibilityPublic, userID)

	if language := strings.ToLower(strings.TrimSpace(c.Query("language"))); language != "" {
		q = q.Where("language = ?", language)
	}
	if communityQ := strings.TrimSpace(c.Query("community_id")); communityQ != "" {
		if id, errParse := strconv.ParseUint(communityQ, 10, 64); errParse == nil {
			q = q.Where("community_id = ?", id)
		}
	}
	if tag := strings.TrimSpace(c.Query("tag")); tag != "" {
		q = q.Where(db.JSONArrayContainsExpr(h.db, "tags"), db.JSONArrayContainsValue(h.db, tag))
	}
	if search := strings.TrimSpace(c.Query("q")); search != "" {
		pattern := db.NormalizeLikePattern(h.db, "%"+search+"%")
		q = q.Where(db.CaseInsensitiveLikeExpr(h.db, "title")+" OR "+db.CaseInsensitiveLikeExpr(h.db, "description"), pattern, pattern)
	}

	var rows []models.Snippet
	if errFind := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list snippets failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, formatSnippet(&row))
	}
	c.JSON(http.StatusOK, gin.H{"snippets": out})
}

// Get returns a snippet the caller may read.
func (h *SnippetHandler) Get(c *gin.Context) {
	row, ok := h.loadReadable(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, formatSnippet(row))
}

// Update edits a snippet owned by the caller.
func (h *SnippetHandler) Update(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	row, ok := h.loadOwned(c, user.ID)
	if !ok {
		return
	}
	var body snippetRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{}
	if body.Title != nil {
		title := strings.TrimSpace(*body.Title)
		if title == "" || len(title) > maxTitleLength {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid title"})
			return
		}
		updates["title"] = title
	}
	if body.Code != nil {
		if strings.TrimSpace(*body.Code) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
			return
		}
		updates["code"] = *body.Code
	}
	if body.Language != nil {
		updates["language"] = strings.ToLower(strings.TrimSpace(*body.Language))
	}
	if body.Description != nil {
		updates["description"] = strings.TrimSpace(*body.Description)
	}
	if body.Tags != nil {
		tags, errTags := encodeTags(body.Tags)
		if errTags != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errTags.Error()})
			return
		}
		updates["tags"] = tags
	}
	if body.Visibility != nil {
		visibility, errVisibility := h.resolveVisibility(user, body.Visibility, row.Visibility)
		if errVisibility != nil {
			status := http.StatusBadRequest
			if errors.Is(errVisibility, errPrivateRequiresPlan) {
				status = http.StatusForbidden
			}
			c.JSON(status, gin.H{"error": errVisibility.Error()})
			return
		}
		updates["visibility"] = visibility
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, formatSnippet(row))
		return
	}
	updates["updated_at"] = h.nowFn().UTC()

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(row).Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update snippet failed"})
		return
	}
	if errReload := h.db.WithContext(c.Request.Context()).First(row, row.ID).Error; errReload != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reload snippet failed"})
		return
	}
	c.JSON(http.StatusOK, formatSnippet(row))
}

// Delete removes a snippet owned by the caller with its comments and votes.
func (h *SnippetHandler) Delete(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	row, ok := h.loadOwned(c, userID)
	if !ok {
		return
	}
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errComments := tx.Where("snippet_id = ?", row.ID).Delete(&models.Comment{}).Error; errComments != nil {
			return errComments
		}
		if errVotes := tx.Where("snippet_id = ?", row.ID).Delete(&models.Vote{}).Error; errVotes != nil {
			return errVotes
		}
		return tx.Delete(&models.Snippet{}, row.ID).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete snippet failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// loadReadable loads :id and writes the error response when it is not visible.
func (h *SnippetHandler) loadReadable(c *gin.Context) (*models.Snippet, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid snippet id"})
		return nil, false
	}
	var row models.Snippet
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query snippet failed"})
		return nil, false
	}
	if row.Visibility == models.VisibilityPrivate && row.UserID != getUserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	return &row, true
}

func (h *SnippetHandler) loadOwned(c *gin.Context, userID uint64) (*models.Snippet, bool) {
	row, ok := h.loadReadable(c)
	if !ok {
		return nil, false
	}
	if row.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the snippet owner"})
		return nil, false
	}
	return row, true
}

func (h *SnippetHandler) resolveVisibility(user *models.User, raw *string, fallback models.Visibility) (models.Visibility, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return fallback, nil
	}
	visibility := models.Visibility(strings.ToLower(strings.TrimSpace(*raw)))
	switch visibility {
	case models.VisibilityPublic, models.VisibilityUnlisted:
		return visibility, nil
	case models.VisibilityPrivate:
		if !user.HasActivePlan(h.nowFn()) {
			return "", errPrivateRequiresPlan
		}
		return visibility, nil
	default:
		return "", errInvalidVisibility
	}
}

func encodeTags(tags *[]string) (datatypes.JSON, error) {
	if tags == nil {
		return datatypes.JSON(`[]`), nil
	}
	seen := make(map[string]struct{}, len(*tags))
	cleaned := make([]string, 0, len(*tags))
	for _, tag := range *tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		cleaned = append(cleaned, tag)
	}
	if len(cleaned) > maxTags {
		return nil, errors.New("too many tags")
	}
	raw, errMarshal := json.Marshal(cleaned)
	if errMarshal != nil {
		return nil, errMarshal
	}
	return datatypes.JSON(raw), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// formatSnippet converts a snippet model to a response payload.
func formatSnippet(row *models.Snippet) gin.H {
	return gin.H{
		"id":           row.ID,
		"user_id":      row.UserID,
		"community_id": row.CommunityID,
		"title":        row.Title,
		"language":     row.Language,
		"code":         row.Code,
		"description":  row.Description,
		"tags":         row.Tags,
		"visibility":   row.Visibility,
		"score":        row.Score,
		"created_at":   row.CreatedAt,
		"updated_at":   row.UpdatedAt,
	}
}
