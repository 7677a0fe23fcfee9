package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// QuestionType тип вопроса.
type QuestionType string

const (
	QuestionMCQ       QuestionType = "MCQ"
	QuestionNumerical QuestionType = "NUMERICAL"
)

// AllFilter значение фильтра, означающее отсутствие ограничения.
const AllFilter = "all"

// Option вариант ответа MCQ.
type Option struct {
	Label    string `json:"label"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Question вопрос из банка.
type Question struct {
	ID            string       `json:"id"`
	Exam          string       `json:"exam"`
	Subject       string       `json:"subject"`
	Chapter       string       `json:"chapter"`
	Topic         string       `json:"topic"`
	Type          QuestionType `json:"questionType"`
	Text          string       `json:"questionText"`
	ImageURL      string       `json:"questionImage,omitempty"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
	IsActive      bool         `json:"-"`
}

// Public возвращает копию вопроса без правильного ответа.
func (q Question) Public() Question {
	q.CorrectAnswer = ""
	return q
}

// PublicQuestions убирает правильные ответы у всех вопросов.
func PublicQuestions(qs []Question) []Question {
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = q.Public()
	}
	return out
}

// CheckAnswer сравнивает ответ пользователя с правильным.
// MCQ сравнивается без учета регистра, числовые ответы после приведения
// к каноническому виду, так что "4.50" и "4.5" совпадают.
// Пустой или нечисловой ответ на числовой вопрос неверен.
func CheckAnswer(t QuestionType, correct, given string) bool {
	given = strings.TrimSpace(given)
	if given == "" {
		return false
	}
	if t == QuestionNumerical {
		g, ok := canonicalNumber(given)
		if !ok {
			return false
		}
		c, ok := canonicalNumber(correct)
		return ok && g == c
	}
	return strings.EqualFold(given, strings.TrimSpace(correct))
}

func canonicalNumber(s string) (string, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	if f == 0 {
		// -0 и 0 один ответ
		f = 0
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}

// PracticeFilter фильтр выборки вопросов для практики.
type PracticeFilter struct {
	Exam          string   `json:"exam" validate:"required"`
	Subject       string   `json:"subject" validate:"required"`
	Chapters      []string `json:"chapters,omitempty"`
	Topics        []string `json:"topics,omitempty"`
	QuestionTypes []string `json:"questionTypes,omitempty"`
}

// Normalize убирает пустые значения и сбрасывает списки, содержащие "all".
func (f PracticeFilter) Normalize() PracticeFilter {
	f.Chapters = normalizeList(f.Chapters)
	f.Topics = normalizeList(f.Topics)
	f.QuestionTypes = normalizeList(f.QuestionTypes)
	return f
}

func normalizeList(in []string) []string {
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.EqualFold(v, AllFilter) {
			return nil
		}
		out = append(out, v)
	}
	return out
}

// AttemptedQuestion запись о решенном вопросе.
type AttemptedQuestion struct {
	QuestionID  string    `json:"questionId"`
	Subject     string    `json:"subject"`
	Chapter     string    `json:"chapter"`
	Topic       string    `json:"topic"`
	IsCorrect   bool      `json:"isCorrect"`
	AttemptedAt time.Time `json:"attemptedAt"`
	TimeTaken   int       `json:"timeTaken"`
}

// QuestionFilters доступные значения фильтров.
type QuestionFilters struct {
	Subjects []string `json:"subjects,omitempty"`
	Chapters []string `json:"chapters,omitempty"`
	Topics   []string `json:"topics,omitempty"`
}
