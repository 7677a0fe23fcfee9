// Package analytics собирает статистику решенных вопросов и пробных тестов.
package analytics

import (
	"context"
	"fmt"
	"math"

	"github.com/magabrotheeeer/examprep/internal/models"
)

// Repository источник статистики.
type Repository interface {
	// SubjectTotals возвращает по предметам число попыток, верных ответов
	// и суммарное время. Accuracy и AvgTime не заполняются.
	SubjectTotals(ctx context.Context, userUID string) ([]models.SubjectStats, error)
	CountAttemptedMockTests(ctx context.Context, userUID string) (int, error)
	AttemptedQuestions(ctx context.Context, userUID string) ([]models.AttemptedQuestion, error)
}

// Service сервис аналитики.
type Service struct {
	repo Repository
}

// New создает Service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Overview сводка по предметам.
type Overview struct {
	Subjects                []models.SubjectStats `json:"analytics"`
	TotalQuestionsAttempted int                   `json:"totalQuestionsAttempted"`
	MockTestsAttempted      int                   `json:"mockTestsAttempted"`
}

// Totals итоги по журналу попыток.
type Totals struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
}

// Attempted журнал решенных вопросов с итогами.
type Attempted struct {
	Questions []models.AttemptedQuestion `json:"attemptedQuestions"`
	Stats     Totals                     `json:"stats"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Overview считает точность и среднее время по каждому предмету.
func (s *Service) Overview(ctx context.Context, userUID string) (*Overview, error) {
	const op = "analytics.Overview"
	subjects, err := s.repo.SubjectTotals(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	mocks, err := s.repo.CountAttemptedMockTests(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := &Overview{Subjects: make([]models.SubjectStats, 0, len(subjects)), MockTestsAttempted: mocks}
	for _, st := range subjects {
		if st.TotalAttempted > 0 {
			st.Wrong = st.TotalAttempted - st.Correct
			st.Accuracy = round2(float64(st.Correct) / float64(st.TotalAttempted) * 100)
			st.AvgTime = round2(float64(st.TotalTime) / float64(st.TotalAttempted))
		}
		out.TotalQuestionsAttempted += st.TotalAttempted
		out.Subjects = append(out.Subjects, st)
	}
	return out, nil
}

// AttemptedQuestions возвращает журнал попыток.
func (s *Service) AttemptedQuestions(ctx context.Context, userUID string) (*Attempted, error) {
	const op = "analytics.AttemptedQuestions"
	qs, err := s.repo.AttemptedQuestions(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	res := &Attempted{Questions: qs, Stats: Totals{Total: len(qs)}}
	for _, q := range qs {
		if q.IsCorrect {
			res.Stats.Correct++
		} else {
			res.Stats.Wrong++
		}
	}
	if res.Questions == nil {
		res.Questions = []models.AttemptedQuestion{}
	}
	return res, nil
}
