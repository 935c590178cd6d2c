package payment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/router-for-me/SnippetFactory/internal/models"
)

// DefaultCurrency is used when the gateway omits a currency.
const DefaultCurrency = "INR"

// PlanPrice is the price of one plan and billing cycle in minor units.
type PlanPrice struct {
	Plan        models.Plan    `json:"plan"`
	Billing     models.Billing `json:"billing"`
	AmountMinor int64          `json:"amount"`
}

// CoinPack is a purchasable bundle of coins.
type CoinPack struct {
	ID          string `json:"id"`
	Coins       int64  `json:"coins"`
	AmountMinor int64  `json:"amount"`
}

// Catalog lists what can be bought.
type Catalog struct {
	Currency  string      `json:"currency"`
	Plans     []PlanPrice `json:"plans"`
	CoinPacks []CoinPack  `json:"coin_packs"`
}

// DefaultCatalog returns the built-in price list.
func DefaultCatalog() Catalog {
	return Catalog{
		Currency: DefaultCurrency,
		Plans: []PlanPrice{
			{Plan: models.PlanPro, Billing: models.BillingMonthly, AmountMinor: 49900},
			{Plan: models.PlanPro, Billing: models.BillingYearly, AmountMinor: 499900},
			{Plan: models.PlanTeam, Billing: models.BillingMonthly, AmountMinor: 179900},
			{Plan: models.PlanTeam, Billing: models.BillingYearly, AmountMinor: 1799900},
		},
		CoinPacks: []CoinPack{
			{ID: "coins_100", Coins: 100, AmountMinor: 9900},
			{ID: "coins_550", Coins: 550, AmountMinor: 49900},
			{ID: "coins_1200", Coins: 1200, AmountMinor: 99900},
		},
	}
}

// KnownPlan reports whether plan is sold in any billing cycle.
func (c Catalog) KnownPlan(plan models.Plan) bool {
	for _, price := range c.Plans {
		if price.Plan == plan {
			return true
		}
	}
	return false
}

// PlanPrice returns the price for plan and billing.
func (c Catalog) PlanPrice(plan models.Plan, billing models.Billing) (PlanPrice, bool) {
	for _, price := range c.Plans {
		if price.Plan == plan && price.Billing == billing {
			return price, true
		}
	}
	return PlanPrice{}, false
}

// CoinPack looks up a coin pack by ID.
func (c Catalog) CoinPack(id string) (CoinPack, bool) {
	id = strings.TrimSpace(id)
	for _, pack := range c.CoinPacks {
		if pack.ID == id {
			return pack, true
		}
	}
	return CoinPack{}, false
}

// CoinsForAmount resolves the coin count of a pack paid with amountMinor.
func (c Catalog) CoinsForAmount(amountMinor int64) (int64, bool) {
	for _, pack := range c.CoinPacks {
		if pack.AmountMinor == amountMinor {
			return pack.Coins, true
		}
	}
	return 0, false
}

// SubscriptionOrder builds the gateway order for a plan purchase.
func (c Catalog) SubscriptionOrder(userID uint64, plan models.Plan, billing models.Billing) (OrderRequest, error) {
	price, ok := c.PlanPrice(plan, billing)
	if !ok {
		return OrderRequest{}, fmt.Errorf("%w: %s/%s", ErrUnknownPlan, plan, billing)
	}
	return OrderRequest{
		Amount:   price.AmountMinor,
		Currency: c.currency(),
		Notes: map[string]string{
			"user_id":       strconv.FormatUint(userID, 10),
			"type":          NoteKindSubscription,
			"plan_type":     string(price.Plan),
			"duration_type": string(price.Billing),
		},
	}, nil
}

// CoinOrder builds the gateway order for a coin pack purchase.
func (c Catalog) CoinOrder(userID uint64, packID string) (OrderRequest, error) {
	pack, ok := c.CoinPack(packID)
	if !ok {
		return OrderRequest{}, fmt.Errorf("%w: %s", ErrUnknownCoinPack, packID)
	}
	return OrderRequest{
		Amount:   pack.AmountMinor,
		Currency: c.currency(),
		Notes: map[string]string{
			"user_id": strconv.FormatUint(userID, 10),
			"type":    NoteKindCoins,
			"coins":   strconv.FormatInt(pack.Coins, 10),
			"pack":    pack.ID,
		},
	}, nil
}

func (c Catalog) currency() string {
	if currency := strings.TrimSpace(c.Currency); currency != "" {
		return currency
	}
	return DefaultCurrency
}
