package models

import "time"

// PaymentStatus статус платежа.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment оплата плана через платежный шлюз.
type Payment struct {
	ID             string
	UserUID        string
	OrderID        string
	PaymentID      string
	AmountPaid     int
	PlanType       Tier
	PlanDuration   string
	PlanStartDate  time.Time
	PlanExpiryDate time.Time
	Status         PaymentStatus
	RefundUsed     bool
	RefundAmount   int
	RefundPercent  int
	RefundStatus   string
	CreatedAt      time.Time
}

// GiftCode одноразовый подарочный код на подписку gold.
type GiftCode struct {
	Code      string
	Duration  string
	IsUsed    bool
	UsedBy    string
	UsedAt    *time.Time
	CreatedAt time.Time
}

// GiftCodeRedemption результат применения подарочного кода.
type GiftCodeRedemption struct {
	Code      string
	Duration  string
	Email     string
	ExpiresAt time.Time
}
