package models

import "time"

// EmailSubscriptionKind names a recurring mailing a user can subscribe to.
type EmailSubscriptionKind string

const (
	EmailSubscriptionWeeklyDeals EmailSubscriptionKind = "weekly_deals"
	EmailSubscriptionDailyDeals  EmailSubscriptionKind = "daily_deals"
)

// EmailSubscription is a recurring-mailing subscription attached to a user.
type EmailSubscription struct {
	UserID    string
	Kind      EmailSubscriptionKind
	Active    bool
	CreatedAt time.Time
}

// MerchantSubscription subscribes a user to a single merchant's offers.
type MerchantSubscription struct {
	UserID     string
	MerchantID int64
	Active     bool
	CreatedAt  time.Time
}
