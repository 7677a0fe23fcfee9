package models

import "time"

// Статусы пробного теста для пользователя.
const (
	MockTestAttempted   = "attempted"
	MockTestUnattempted = "unattempted"
)

// Статусы ответа в результате пробного теста.
const (
	AnswerCorrect    = "correct"
	AnswerWrong      = "wrong"
	AnswerUnanswered = "unanswered"
)

// MockTestQuestion позиция вопроса в шаблоне теста.
type MockTestQuestion struct {
	SerialNumber int       `json:"serialNumber"`
	QuestionID   string    `json:"questionId"`
	Subject      string    `json:"subject"`
	Question     *Question `json:"question,omitempty"`
}

// MockTest шаблон пробного теста.
type MockTest struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Exam              string             `json:"exam"`
	Duration          int                `json:"duration"` // минуты
	IsActive          bool               `json:"isActive"`
	ExplanationPDFURL string             `json:"explanationPdfUrl,omitempty"`
	Questions         []MockTestQuestion `json:"questions,omitempty"`
}

// Public возвращает копию шаблона без правильных ответов.
func (m MockTest) Public() MockTest {
	qs := make([]MockTestQuestion, len(m.Questions))
	for i, q := range m.Questions {
		if q.Question != nil {
			pub := q.Question.Public()
			q.Question = &pub
		}
		qs[i] = q
	}
	m.Questions = qs
	return m
}

// MockTestSummary элемент списка тестов со статусом для пользователя.
type MockTestSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Exam          string `json:"exam"`
	Duration      int    `json:"duration"`
	QuestionCount int    `json:"questionCount"`
	Status        string `json:"status"`
}

// AnswerKeyEntry правильный ответ на позицию теста.
type AnswerKeyEntry struct {
	SerialNumber  int          `json:"serialNumber"`
	QuestionID    string       `json:"questionId"`
	Subject       string       `json:"subject"`
	Type          QuestionType `json:"questionType"`
	CorrectAnswer string       `json:"correctAnswer"`
}

// SubmittedAnswer ответ пользователя на позицию теста.
type SubmittedAnswer struct {
	SerialNumber int    `json:"questionNumber" validate:"required,min=1"`
	Answer       string `json:"selectedAnswer"`
}

// QuestionResult оценка одного ответа.
type QuestionResult struct {
	SerialNumber   int    `json:"serialNumber"`
	QuestionID     string `json:"questionId"`
	Subject        string `json:"subject"`
	SelectedAnswer string `json:"selectedAnswer,omitempty"`
	CorrectAnswer  string `json:"correctAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
	Status         string `json:"status"`
}

// MockTestRecord запись о сданном тесте.
type MockTestRecord struct {
	ID            string           `json:"id"`
	UserUID       string           `json:"-"`
	MockTestID    string           `json:"mockTestId"`
	Status        string           `json:"status"`
	Answers       []QuestionResult `json:"answers"`
	Score         int              `json:"score"`
	Correct       int              `json:"correct"`
	Wrong         int              `json:"wrong"`
	Unanswered    int              `json:"unanswered"`
	TimeTaken     int              `json:"timeTaken"` // секунды
	StartedAt     *time.Time       `json:"startedAt,omitempty"`
	SubmittedAt   time.Time        `json:"submittedAt"`
	SubmittedLate bool             `json:"submittedLate"`
}

// ReviewItem вопрос теста вместе с ответом пользователя.
type ReviewItem struct {
	SerialNumber   int          `json:"serialNumber"`
	QuestionID     string       `json:"questionId"`
	Subject        string       `json:"subject"`
	Type           QuestionType `json:"questionType"`
	Text           string       `json:"questionText"`
	ImageURL       string       `json:"questionImage,omitempty"`
	Options        []Option     `json:"options,omitempty"`
	CorrectAnswer  string       `json:"correctAnswer"`
	SelectedAnswer string       `json:"selectedAnswer,omitempty"`
	IsCorrect      bool         `json:"isCorrect"`
	Status         string       `json:"status"`
}

// MockTestReview разбор сданного теста.
type MockTestReview struct {
	MockTestID        string       `json:"mockTestId"`
	Name              string       `json:"name"`
	ExplanationPDFURL string       `json:"explanationPdfUrl,omitempty"`
	Score             int          `json:"score"`
	Correct           int          `json:"correct"`
	Wrong             int          `json:"wrong"`
	Unanswered        int          `json:"unanswered"`
	TimeTaken         int          `json:"timeTaken"`
	SubmittedAt       time.Time    `json:"submittedAt"`
	SubmittedLate     bool         `json:"submittedLate"`
	Items             []ReviewItem `json:"questions"`
}
