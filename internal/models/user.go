// Package models содержит доменные типы платформы подготовки к экзаменам:
// пользователя с дневными счетчиками, вопросы, пробные тесты, платежи и подарочные коды.
package models

import "time"

// Tier уровень подписки пользователя.
type Tier string

const (
	TierFree   Tier = "free"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// Valid сообщает, известен ли уровень.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierSilver, TierGold:
		return true
	}
	return false
}

// Counter один из дневных счетчиков использования.
type Counter string

const (
	CounterQuestions    Counter = "questions"
	CounterChapterTests Counter = "chapter_tests"
	CounterMockTests    Counter = "mock_tests"
)

// DailyUsage дневные счетчики, привязанные к календарному дню IST.
type DailyUsage struct {
	Date                  time.Time `json:"date"`
	QuestionsAttempted    int       `json:"questionsAttempted"`
	ChapterTestsGenerated int       `json:"chapterTestsGenerated"`
	MockTestsAttempted    int       `json:"mockTestsAttempted"`
}

// Get возвращает значение счетчика.
func (d DailyUsage) Get(c Counter) int {
	switch c {
	case CounterQuestions:
		return d.QuestionsAttempted
	case CounterChapterTests:
		return d.ChapterTestsGenerated
	case CounterMockTests:
		return d.MockTestsAttempted
	}
	return 0
}

// OngoingMockTest блокировка текущего пробного теста.
type OngoingMockTest struct {
	MockTestID string    `json:"mockTestId"`
	StartedAt  time.Time `json:"startedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// User пользователь платформы.
type User struct {
	UID                      string           // Уникальный идентификатор пользователя
	Email                    string           // Почта, допускается до трех аккаунтов на адрес
	PhoneEncrypted           string           // Телефон, зашифрованный и закодированный в base64
	PasswordHash             string           // Хэш пароля
	SelectedExam             string           // JEE или NEET
	Tier                     Tier             // Уровень подписки
	SubscriptionExpiry       *time.Time       // Дата окончания платной подписки
	PlanDuration             string           // Код срока плана: 1M, 6M, 1Y
	PlanAmountPaid           int              // Оплаченная сумма в рупиях
	PlanStartDate            *time.Time       // Дата начала плана
	GiftCodeUsed             bool             // Подписка получена по подарочному коду
	GiftCode                 string           // Примененный подарочный код
	GiftCodeUsedAt           *time.Time       // Когда код был применен
	DailyUsage               DailyUsage       // Дневные счетчики
	DailySessionLimitReached bool             // Флаг исчерпания дневной сессии
	OngoingMockTest          *OngoingMockTest // Текущий пробный тест или nil
	Details                  UserDetails      // Анкета, заполняется после регистрации
	CreatedAt                time.Time
}

// Профессии в анкете.
const (
	ProfessionStudent = "student"
	ProfessionTeacher = "teacher"
)

// GradeOther класс для всех, кроме учеников.
const GradeOther = "other"

// MaxLifeAmbition предел длины поля LifeAmbition в символах.
const MaxLifeAmbition = 50

// UserDetails анкета пользователя.
type UserDetails struct {
	Name         string `json:"name"`
	Profession   string `json:"profession"`
	Grade        string `json:"grade"`
	PreparingFor string `json:"preparingFor"`
	CollegeName  string `json:"collegeName,omitempty"`
	SchoolName   string `json:"schoolName,omitempty"`
	State        string `json:"state"`
	LifeAmbition string `json:"lifeAmbition,omitempty"`
	Completed    bool   `json:"userDetailsCompleted"`
}

// IsSubscriptionActive сообщает, действует ли подписка в момент now.
// Бесплатный уровень активен всегда, платный строго до даты окончания.
func (u *User) IsSubscriptionActive(now time.Time) bool {
	if u.Tier == TierFree || u.Tier == "" {
		return true
	}
	if u.SubscriptionExpiry == nil {
		return false
	}
	return now.Before(*u.SubscriptionExpiry)
}

// EffectiveTier уровень, по которому считаются лимиты.
// Истекшая платная подписка дает лимиты бесплатного уровня.
func (u *User) EffectiveTier(now time.Time) Tier {
	if !u.Tier.Valid() || !u.IsSubscriptionActive(now) {
		return TierFree
	}
	return u.Tier
}
