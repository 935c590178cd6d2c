package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/SnippetFactory/internal/http/middleware"
	"github.com/router-for-me/SnippetFactory/internal/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// currentUser returns the authenticated user or nil.
func currentUser(c *gin.Context) *models.User {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return nil
	}
	return user
}

// getUserID returns the authenticated user ID or 0.
func getUserID(c *gin.Context) uint64 {
	if user := currentUser(c); user != nil {
		return user.ID
	}
	return 0
}

func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = defaultPageSize
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if raw := strings.TrimSpace(c.Query("offset")); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed > 0 {
			offset = parsed
		}
	}
	return limit, offset
}
