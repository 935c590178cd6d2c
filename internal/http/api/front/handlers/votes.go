package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/SnippetFactory/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteHandler records snippet votes.
type VoteHandler struct {
	db       *gorm.DB
	snippets *SnippetHandler
}

// NewVoteHandler constructs a VoteHandler.
func NewVoteHandler(db *gorm.DB, snippets *SnippetHandler) *VoteHandler {
	return &VoteHandler{db: db, snippets: snippets}
}

// Vote sets the caller's vote to +1 or -1, or clears it with 0, and
// recomputes the cached score in the same transaction.
func (h *VoteHandler) Vote(c *gin.Context) {
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
		Value *int `json:"value"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.Value == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value is required"})
		return
	}
	value := *body.Value
	if value != 1 && value != -1 && value != 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value must be 1, -1 or 0"})
		return
	}

	var score int64
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if value == 0 {
			if errDelete := tx.Where("snippet_id = ? AND user_id = ?", snippet.ID, userID).
				Delete(&models.Vote{}).Error; errDelete != nil {
				return errDelete
			}
		} else {
			vote := models.Vote{SnippetID: snippet.ID, UserID: userID, Value: value}
			if errUpsert := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "snippet_id"}, {Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&vote).Error; errUpsert != nil {
				return errUpsert
			}
		}
		if errSum := tx.Model(&models.Vote{}).
			Where("snippet_id = ?", snippet.ID).
			Select("COALESCE(SUM(value), 0)").
			Scan(&score).Error; errSum != nil {
			return errSum
		}
		return tx.Model(&models.Snippet{}).
			Where("id = ?", snippet.ID).
			UpdateColumn("score", score).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record vote failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snippet_id": snippet.ID, "value": value, "score": score})
}
