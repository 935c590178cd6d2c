package models

import "time"

// Plan names a subscription tier.
type Plan string

// Plan constants define subscription tiers.
const (
	// PlanFree is the default tier for new users.
	PlanFree Plan = "free"
	// PlanPro unlocks private snippets and higher limits.
	PlanPro Plan = "pro"
	// PlanTeam adds shared communities.
	PlanTeam Plan = "team"
)

// Billing names a subscription billing cycle.
type Billing string

// Billing constants define billing cycles.
const (
	// BillingMonthly renews every calendar month.
	BillingMonthly Billing = "monthly"
	// BillingYearly renews every calendar year.
	BillingYearly Billing = "yearly"
)

// User represents an end-user account mirrored from the hosted auth provider.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	AuthID   string `gorm:"type:varchar(255);not null;uniqueIndex"` // Subject issued by the auth provider.
	Username string `gorm:"type:varchar(255)"`                      // Display handle.
	Email    string `gorm:"type:varchar(255);index"`                // Email address.

	Plan          Plan       `gorm:"type:varchar(32);not null;default:'free'"` // Active plan.
	PlanBilling   Billing    `gorm:"type:varchar(32)"`                         // Billing cycle of the active plan.
	PlanExpiresAt *time.Time `gorm:"index"`                                    // Plan expiry, nil for free users.

	Coins int64 `gorm:"not null;default:0"` // Virtual currency balance.

	APIKeys []APIKey `gorm:"foreignKey:UserID"` // Related API keys.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// HasActivePlan reports whether the user holds a paid plan that has not expired.
func (u *User) HasActivePlan(now time.Time) bool {
	if u == nil || u.Plan == "" || u.Plan == PlanFree || u.PlanExpiresAt == nil {
		return false
	}
	return u.PlanExpiresAt.After(now)
}
