package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/SnippetFactory/internal/payment"
)

// PlanFrontHandler serves the purchasable catalog.
type PlanFrontHandler struct {
	catalog payment.Catalog
}

// NewPlanFrontHandler constructs a PlanFrontHandler.
func NewPlanFrontHandler(catalog payment.Catalog) *PlanFrontHandler {
	return &PlanFrontHandler{catalog: catalog}
}

// List returns plan prices and coin packs in major and minor units.
func (h *PlanFrontHandler) List(c *gin.Context) {
	plans := make([]gin.H, 0, len(h.catalog.Plans))
	for _, price := range h.catalog.Plans {
		plans = append(plans, gin.H{
			"plan":         price.Plan,
			"billing":      price.Billing,
			"amount":       price.AmountMinor,
			"amount_major": payment.MinorToMajor(price.AmountMinor).StringFixed(2),
		})
	}
	packs := make([]gin.H, 0, len(h.catalog.CoinPacks))
	for _, pack := range h.catalog.CoinPacks {
		packs = append(packs, gin.H{
			"id":           pack.ID,
			"coins":        pack.Coins,
			"amount":       pack.AmountMinor,
			"amount_major": payment.MinorToMajor(pack.AmountMinor).StringFixed(2),
		})
	}
	currency := h.catalog.Currency
	if currency == "" {
		currency = payment.DefaultCurrency
	}
	c.JSON(http.StatusOK, gin.H{
		"currency":   currency,
		"plans":      plans,
		"coin_packs": packs,
	})
}
