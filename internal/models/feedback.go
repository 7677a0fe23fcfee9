package models

import "time"

// FeedbackType вид обращения.
type FeedbackType string

const (
	FeedbackRefund FeedbackType = "refund"
	FeedbackQuery  FeedbackType = "query"
)

// RefundStatus состояние заявки на возврат.
type RefundStatus string

const (
	RefundIncomplete RefundStatus = "incomplete"
	RefundComplete   RefundStatus = "complete"
)

// Feedback обращение пользователя. Для заявки на возврат RefundStatus
// начинается с RefundIncomplete, у вопросов он пустой.
type Feedback struct {
	ID             string       `json:"id"`
	UserUID        string       `json:"userId"`
	Email          string       `json:"email"`
	PhoneEncrypted string       `json:"-"`
	Type           FeedbackType `json:"feedbackType"`
	Message        string       `json:"message,omitempty"`
	Rating         int          `json:"rating,omitempty"` // 0 без оценки
	RefundStatus   RefundStatus `json:"refundStatus,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// RefundRequested событие о новой заявке на возврат.
type RefundRequested struct {
	FeedbackID string    `json:"feedbackId"`
	UserUID    string    `json:"userUid"`
	Email      string    `json:"email"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}
