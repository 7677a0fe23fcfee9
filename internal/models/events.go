package models

import "time"

// GiftCodeRedeemed событие применения подарочного кода.
type GiftCodeRedeemed struct {
	UserUID   string    `json:"userUid"`
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	Tier      Tier      `json:"tier"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MockTestSubmitted событие сдачи пробного теста.
type MockTestSubmitted struct {
	UserUID       string `json:"userUid"`
	Email         string `json:"email"`
	MockTestID    string `json:"mockTestId"`
	MockTestName  string `json:"mockTestName"`
	Score         int    `json:"score"`
	Correct       int    `json:"correct"`
	Wrong         int    `json:"wrong"`
	Unanswered    int    `json:"unanswered"`
	SubmittedLate bool   `json:"submittedLate"`
}

// SubjectStats статистика по предмету.
type SubjectStats struct {
	Subject        string  `json:"subject"`
	TotalAttempted int     `json:"totalAttempted"`
	Correct        int     `json:"correct"`
	Wrong          int     `json:"wrong"`
	Accuracy       float64 `json:"accuracy"`
	AvgTime        float64 `json:"avgTime"`
	TotalTime      int     `json:"-"`
}

// SubscriptionExpiring напоминание об окончании платной подписки.
type SubscriptionExpiring struct {
	UserUID   string    `json:"userUid"`
	Email     string    `json:"email"`
	Tier      Tier      `json:"tier"`
	ExpiresAt time.Time `json:"expiresAt"`
}
