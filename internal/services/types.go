package services

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusUnpaid   = "unpaid"
	SubscriptionStatusExpired  = "expired"
)

const (
	IntervalMonth = "month"
	IntervalYear  = "year"
)
