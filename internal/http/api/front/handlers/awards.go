package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/SnippetFactory/internal/models"
	"gorm.io/gorm"
)

// AwardCosts maps award kinds to their coin price.
var AwardCosts = map[string]int64{
	"silver":   10,
	"gold":     50,
	"platinum": 100,
}

var (
	errInsufficientCoins = errors.New("insufficient coins")
	errSelfAward         = errors.New("cannot award your own snippet")
)

// AwardHandler moves coins from a giver to a snippet author.
type AwardHandler struct {
	db       *gorm.DB
	snippets *SnippetHandler
}

// NewAwardHandler constructs an AwardHandler.
func NewAwardHandler(db *gorm.DB, snippets *SnippetHandler) *AwardHandler {
	return &AwardHandler{db: db, snippets: snippets}
}

// Kinds lists the available awards.
func (h *AwardHandler) Kinds(c *gin.Context) {
	kinds := make([]string, 0, len(AwardCosts))
	for kind := range AwardCosts {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return AwardCosts[kinds[i]] < AwardCosts[kinds[j]] })
	out := make([]gin.H, 0, len(kinds))
	for _, kind := range kinds {
		out = append(out, gin.H{"kind": kind, "cost": AwardCosts[kind]})
	}
	c.JSON(http.StatusOK, gin.H{"awards": out})
}

// Create debits the caller, credits the author and records the award atomically.
func (h *AwardHandler) Create(c *gin.Context) {
	giverID := getUserID(c)
	if giverID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	snippet, ok := h.snippets.loadReadable(c)
	if !ok {
		return
	}
	var body struct {
		Kind string `json:"kind"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	kind := strings.ToLower(strings.TrimSpace(body.Kind))
	cost, known := AwardCosts[kind]
	if !known {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown award kind"})
		return
	}

	var created models.Award
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if snippet.UserID == giverID {
			return errSelfAward
		}
		debit := tx.Model(&models.User{}).
			Where("id = ? AND coins >= ?", giverID, cost).
			UpdateColumn("coins", gorm.Expr("coins - ?", cost))
		if debit.Error != nil {
			return debit.Error
		}
		if debit.RowsAffected == 0 {
			return errInsufficientCoins
		}
		if errCredit := tx.Model(&models.User{}).
			Where("id = ?", snippet.UserID).
			UpdateColumn("coins", gorm.Expr("coins + ?", cost)).Error; errCredit != nil {
			return errCredit
		}
		award := models.Award{
			SnippetID:  snippet.ID,
			GiverID:    giverID,
			ReceiverID: snippet.UserID,
			Kind:       kind,
			Cost:       cost,
		}
		if errCreate := tx.Create(&award).Error; errCreate != nil {
			return errCreate
		}
		created = award
		return nil
	})
	if errTx != nil {
		switch {
		case errors.Is(errTx, errInsufficientCoins):
			c.JSON(http.StatusConflict, gin.H{"error": errInsufficientCoins.Error()})
		case errors.Is(errTx, errSelfAward):
			c.JSON(http.StatusBadRequest, gin.H{"error": errSelfAward.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create award failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":          created.ID,
		"snippet_id":  created.SnippetID,
		"giver_id":    created.GiverID,
		"receiver_id": created.ReceiverID,
		"kind":        created.Kind,
		"cost":        created.Cost,
		"created_at":  created.CreatedAt,
	})
}
