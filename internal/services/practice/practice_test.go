package practice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) PracticeQuestions(ctx context.Context, userUID string, f models.PracticeFilter, offset, limit int) ([]models.Question, error) {
	args := m.Called(ctx, userUID, f, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Question), args.Error(1)
}

func (m *RepoMock) GetQuestion(ctx context.Context, questionID string) (*models.Question, error) {
	args := m.Called(ctx, questionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *RepoMock) RecordAttempt(ctx context.Context, userUID string, limit int, a models.AttemptedQuestion) (bool, error) {
	args := m.Called(ctx, userUID, limit, a)
	return args.Bool(0), args.Error(1)
}

func (m *RepoMock) RandomQuestions(ctx context.Context, userUID string, f models.PracticeFilter, t models.QuestionType, n int) ([]models.Question, error) {
	args := m.Called(ctx, userUID, f, t, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Question), args.Error(1)
}

func (m *RepoMock) IncrementUsage(ctx context.Context, userUID string, c models.Counter, limit int) (bool, error) {
	args := m.Called(ctx, userUID, c, limit)
	return args.Bool(0), args.Error(1)
}

func (m *RepoMock) QuestionFilters(ctx context.Context, exam, subject, chapter string) (*models.QuestionFilters, error) {
	args := m.Called(ctx, exam, subject, chapter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuestionFilters), args.Error(1)
}

type LoaderMock struct{ mock.Mock }

func (m *LoaderMock) Load(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

var fixedNow = time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC)

func newTestService(repo *RepoMock, users *LoaderMock) *Service {
	s := New(repo, users, newNoopLogger())
	s.now = func() time.Time { return fixedNow }
	s.shuffle = func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
	return s
}

func freeUser(questions int) *models.User {
	return &models.User{
		UID:        "uid-1",
		Tier:       models.TierFree,
		DailyUsage: models.DailyUsage{Date: fixedNow, QuestionsAttempted: questions},
	}
}

func goldUser() *models.User {
	exp := fixedNow.AddDate(0, 1, 0)
	return &models.User{
		UID:                "uid-1",
		Tier:               models.TierGold,
		SubscriptionExpiry: &exp,
		DailyUsage:         models.DailyUsage{Date: fixedNow},
	}
}

func TestFetchPracticeBatch(t *testing.T) {
	repo := new(RepoMock)
	users := new(LoaderMock)
	s := newTestService(repo, users)

	filter := models.PracticeFilter{
		Exam:          "JEE",
		Subject:       "Physics",
		Chapters:      []string{"Optics", ""},
		Topics:        []string{"all"},
		QuestionTypes: []string{"MCQ"},
	}
	normalized := models.PracticeFilter{
		Exam:          "JEE",
		Subject:       "Physics",
		Chapters:      []string{"Optics"},
		QuestionTypes: []string{"MCQ"},
	}

	users.On("Load", mock.Anything, "uid-1").Return(freeUser(50), nil)
	repo.On("PracticeQuestions", mock.Anything, "uid-1", normalized, 30, BatchSize).
		Return([]models.Question{{ID: "q1", CorrectAnswer: "A"}, {ID: "q2", CorrectAnswer: "4.5"}}, nil)

	qs, err := s.FetchPracticeBatch(context.Background(), "uid-1", filter, 30)

	require.NoError(t, err)
	require.Len(t, qs, 2)
	for _, q := range qs {
		assert.Empty(t, q.CorrectAnswer)
	}
	repo.AssertExpectations(t)
}

func TestFetchPracticeBatch_Validation(t *testing.T) {
	s := newTestService(new(RepoMock), new(LoaderMock))

	_, err := s.FetchPracticeBatch(context.Background(), "uid-1", models.PracticeFilter{Exam: "JEE"}, 0)

	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestVerifyAnswer(t *testing.T) {
	tests := []struct {
		name     string
		question models.Question
		answer   string
		want     bool
	}{
		{
			name:     "MCQ без учета регистра",
			question: models.Question{ID: "q1", Type: models.QuestionMCQ, CorrectAnswer: "B", Subject: "Physics"},
			answer:   "b",
			want:     true,
		},
		{
			name:     "MCQ неверно",
			question: models.Question{ID: "q1", Type: models.QuestionMCQ, CorrectAnswer: "B"},
			answer:   "C",
			want:     false,
		},
		{
			name:     "числовой 4.50 и 4.5",
			question: models.Question{ID: "q2", Type: models.QuestionNumerical, CorrectAnswer: "4.5"},
			answer:   "4.50",
			want:     true,
		},
		{
			name:     "числовой нечисловой ответ",
			question: models.Question{ID: "q2", Type: models.QuestionNumerical, CorrectAnswer: "4.5"},
			answer:   "abc",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			users := new(LoaderMock)
			s := newTestService(repo, users)

			q := tt.question
			users.On("Load", mock.Anything, "uid-1").Return(freeUser(10), nil)
			repo.On("GetQuestion", mock.Anything, q.ID).Return(&q, nil)
			repo.On("RecordAttempt", mock.Anything, "uid-1", 50, mock.MatchedBy(func(a models.AttemptedQuestion) bool {
				return a.QuestionID == q.ID && a.IsCorrect == tt.want && a.AttemptedAt.Equal(fixedNow) && a.TimeTaken == 12
			})).Return(true, nil)

			res, err := s.VerifyAnswer(context.Background(), "uid-1", q.ID, tt.answer, 12)

			require.NoError(t, err)
			assert.Equal(t, tt.want, res.IsCorrect)
			assert.Equal(t, q.CorrectAnswer, res.CorrectAnswer)
			repo.AssertExpectations(t)
		})
	}
}

func TestVerifyAnswer_AtLimit(t *testing.T) {
	repo := new(RepoMock)
	users := new(LoaderMock)
	s := newTestService(repo, users)

	users.On("Load", mock.Anything, "uid-1").Return(freeUser(50), nil)

	_, err := s.VerifyAnswer(context.Background(), "uid-1", "q1", "A", 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrQuotaExceeded)
	assert.Contains(t, models.Message(err), "50 questions")
	assert.Contains(t, models.Message(err), "free")
	repo.AssertNotCalled(t, "GetQuestion", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "RecordAttempt", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyAnswer_LostRace(t *testing.T) {
	repo := new(RepoMock)
	users := new(LoaderMock)
	s := newTestService(repo, users)

	q := models.Question{ID: "q1", Type: models.QuestionMCQ, CorrectAnswer: "A"}
	users.On("Load", mock.Anything, "uid-1").Return(freeUser(49), nil)
	repo.On("GetQuestion", mock.Anything, "q1").Return(&q, nil)
	repo.On("RecordAttempt", mock.Anything, "uid-1", 50, mock.Anything).Return(false, nil)

	_, err := s.VerifyAnswer(context.Background(), "uid-1", "q1", "A", 5)

	assert.ErrorIs(t, err, models.ErrQuotaExceeded)
}

func TestVerifyAnswer_QuestionNotFound(t *testing.T) {
	repo := new(RepoMock)
	users := new(LoaderMock)
	s := newTestService(repo, users)

	users.On("Load", mock.Anything, "uid-1").Return(freeUser(0), nil)
	repo.On("GetQuestion", mock.Anything, "missing").Return(nil, models.NewError(models.KindNotFound, "question not found"))

	_, err := s.VerifyAnswer(context.Background(), "uid-1", "missing", "A", 5)

	assert.ErrorIs(t, err, models.ErrNotFound)
	repo.AssertNotCalled(t, "RecordAttempt", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func questionsOf(t models.QuestionType, n int) []models.Question {
	out := make([]models.Question, n)
	for i := range out {
		out[i] = models.Question{ID: fmt.Sprintf("%s-%d", t, i), Type: t, CorrectAnswer: "A"}
	}
	return out
}

func TestTrackAttempt(t *testing.T) {
	tests := []struct {
		name      string
		used      int
		recorded  bool
		timeTaken int
		wantErr   error
		wantUsed  int
	}{
		{name: "попытка записана", used: 10, recorded: true, timeTaken: 40, wantUsed: 11},
		{name: "отрицательное время обнуляется", used: 0, recorded: true, timeTaken: -3, wantUsed: 1},
		{name: "лимит исчерпан", used: 50, wantErr: models.ErrQuotaExceeded},
		{name: "лимит занят параллельным запросом", used: 49, recorded: false, wantErr: models.ErrQuotaExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			users := new(LoaderMock)
			s := newTestService(repo, users)

			q := models.Question{ID: "q1", Type: models.QuestionMCQ, Subject: "Physics", Chapter: "Optics", Topic: "Lenses"}
			users.On("Load", mock.Anything, "uid-1").Return(freeUser(tt.used), nil)
			repo.On("GetQuestion", mock.Anything, "q1").Return(&q, nil)
			wantTime := tt.timeTaken
			if wantTime < 0 {
				wantTime = 0
			}
			repo.On("RecordAttempt", mock.Anything, "uid-1", 50, mock.MatchedBy(func(a models.AttemptedQuestion) bool {
				return a.QuestionID == "q1" && a.Subject == "Physics" && a.Chapter == "Optics" && a.Topic == "Lenses" &&
					a.IsCorrect && a.TimeTaken == wantTime && a.AttemptedAt.Equal(fixedNow)
			})).Return(tt.recorded, nil)

			res, err := s.TrackAttempt(context.Background(), "uid-1", "q1", true, tt.timeTaken)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, &TrackResult{QuestionsAttempted: tt.wantUsed, Limit: 50}, res)
		})
	}
}

func TestTrackAttempt_Validation(t *testing.T) {
	repo := new(RepoMock)
	users := new(LoaderMock)
	s := newTestService(repo, users)

	_, err := s.TrackAttempt(context.Background(), "uid-1", "", false, 1)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	users.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)

	users.On("Load", mock.Anything, "uid-1").Return(freeUser(0), nil)
	repo.On("GetQuestion", mock.Anything, "missing").Return(nil, models.ErrNotFound)

	_, err = s.TrackAttempt(context.Background(), "uid-1", "missing", false, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
	repo.AssertNotCalled(t, "RecordAttempt", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateChapterTest(t *testing.T) {
	repo := new(RepoMock)
	users := new(LoaderMock)
	s := newTestService(repo, users)

	filter := models.PracticeFilter{Exam: "NEET", Subject: "Biology", Chapters: []string{"Cell"}}

	users.On("Load", mock.Anything, "uid-1").Return(goldUser(), nil)
	repo.On("RandomQuestions", mock.Anything, "uid-1", filter, models.QuestionMCQ, 8).Return(questionsOf(models.QuestionMCQ, 8), nil)
	repo.On("RandomQuestions", mock.Anything, "uid-1", filter, models.QuestionNumerical, 2).Return(questionsOf(models.QuestionNumerical, 2), nil)
	repo.On("IncrementUsage", mock.Anything, "uid-1", models.CounterChapterTests, 50).Return(true, nil)

	qs, err := s.GenerateChapterTest(context.Background(), "uid-1", filter)

	require.NoError(t, err)
	require.Len(t, qs, 10)
	assert.Equal(t, models.QuestionNumerical, qs[0].Type)
	for _, q := range qs {
		assert.Empty(t, q.CorrectAnswer)
	}
	repo.AssertNotCalled(t, "RecordAttempt", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestGenerateChapterTest_Insufficient(t *testing.T) {
	repo := new(RepoMock)
	users := new(LoaderMock)
	s := newTestService(repo, users)

	filter := models.PracticeFilter{Exam: "NEET", Subject: "Biology"}

	users.On("Load", mock.Anything, "uid-1").Return(goldUser(), nil)
	repo.On("RandomQuestions", mock.Anything, "uid-1", filter, models.QuestionMCQ, 8).Return(questionsOf(models.QuestionMCQ, 8), nil)
	repo.On("RandomQuestions", mock.Anything, "uid-1", filter, models.QuestionNumerical, 2).Return(questionsOf(models.QuestionNumerical, 1), nil)

	_, err := s.GenerateChapterTest(context.Background(), "uid-1", filter)

	assert.ErrorIs(t, err, models.ErrInsufficientQuestions)
	repo.AssertNotCalled(t, "IncrementUsage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateChapterTest_FreeTier(t *testing.T) {
	repo := new(RepoMock)
	users := new(LoaderMock)
	s := newTestService(repo, users)

	users.On("Load", mock.Anything, "uid-1").Return(freeUser(0), nil)

	_, err := s.GenerateChapterTest(context.Background(), "uid-1", models.PracticeFilter{Exam: "JEE", Subject: "Maths"})

	assert.ErrorIs(t, err, models.ErrQuotaExceeded)
	assert.Contains(t, models.Message(err), "Upgrade to Silver or Gold")
}

func TestFilters(t *testing.T) {
	repo := new(RepoMock)
	s := newTestService(repo, new(LoaderMock))

	repo.On("QuestionFilters", mock.Anything, "JEE", "Physics", "").
		Return(&models.QuestionFilters{Subjects: []string{"Physics"}, Chapters: []string{"Optics", "Waves"}}, nil)

	f, err := s.Filters(context.Background(), "JEE", "Physics", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Optics", "Waves"}, f.Chapters)

	_, err = s.Filters(context.Background(), "", "", "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = s.Filters(context.Background(), "JEE", "", "Optics")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	repo.On("QuestionFilters", mock.Anything, "NEET", "", "").Return(nil, errors.New("db down"))
	_, err = s.Filters(context.Background(), "NEET", "", "")
	assert.Error(t, err)
}
