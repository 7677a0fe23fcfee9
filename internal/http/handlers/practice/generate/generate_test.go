package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) GenerateChapterTest(ctx context.Context, userUID string, f models.PracticeFilter) ([]models.Question, error) {
	args := m.Called(ctx, userUID, f)
	res, _ := args.Get(0).([]models.Question)
	return res, args.Error(1)
}

func TestGenerateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	filter := models.PracticeFilter{Exam: "JEE", Subject: "Physics", Chapters: []string{"Optics"}}

	tests := []struct {
		name           string
		body           models.PracticeFilter
		mockResp       []models.Question
		mockErr        error
		callService    bool
		wantStatusCode int
		wantContains   string
	}{
		{
			name:           "тест сгенерирован",
			body:           filter,
			mockResp:       []models.Question{{ID: "q1", Type: models.QuestionMCQ}},
			callService:    true,
			wantStatusCode: http.StatusOK,
			wantContains:   `"id":"q1"`,
		},
		{
			name:           "мало вопросов",
			body:           filter,
			mockErr:        models.ErrInsufficientQuestions,
			callService:    true,
			wantStatusCode: http.StatusNotFound,
			wantContains:   "not enough questions available",
		},
		{
			name:           "тариф без тестов по главам",
			body:           filter,
			mockErr:        models.NewError(models.KindQuotaExceeded, "Chapter tests are not available on Free tier"),
			callService:    true,
			wantStatusCode: http.StatusForbidden,
			wantContains:   "Free tier",
		},
		{
			name:           "нет предмета",
			body:           models.PracticeFilter{Exam: "JEE"},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantContains:   "field Subject is a required field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.callService {
				svc.On("GenerateChapterTest", mock.Anything, "uid-1", tt.body).Return(tt.mockResp, tt.mockErr)
			}
			body, err := json.Marshal(tt.body)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/questions/generate-test", bytes.NewReader(body))
			req = req.WithContext(middlewarectx.WithUser(req.Context(), "uid-1"))
			rr := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatusCode, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantContains)
			assert.NotContains(t, rr.Body.String(), "correctAnswer")
			svc.AssertExpectations(t)
		})
	}
}
