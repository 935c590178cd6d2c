package payment

import (
	"strings"
	"time"

	"github.com/router-for-me/SnippetFactory/internal/models"
	"github.com/shopspring/decimal"
)

// minorUnitsPerMajor is the paise-per-rupee factor.
const minorUnitsPerMajor = 100

// MinorToMajor converts an amount in the smallest currency unit to major units.
func MinorToMajor(amount int64) decimal.Decimal {
	return decimal.New(amount, 0).Div(decimal.New(minorUnitsPerMajor, 0))
}

// MajorToMinor converts a major-unit amount to the smallest currency unit.
func MajorToMinor(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.New(minorUnitsPerMajor, 0)).Round(0).IntPart()
}

// NormalizeBilling maps a billing note to a known cycle, defaulting to monthly.
func NormalizeBilling(raw string) models.Billing {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yearly", "annual", "annually", "year":
		return models.BillingYearly
	default:
		return models.BillingMonthly
	}
}

// AddBillingPeriod returns from advanced by one billing cycle.
func AddBillingPeriod(from time.Time, billing models.Billing) time.Time {
	if billing == models.BillingYearly {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}
