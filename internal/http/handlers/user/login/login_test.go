package login

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/magabrotheeeer/examprep/internal/services/user"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Login(ctx context.Context, email, password string) (*user.Registered, error) {
	args := m.Called(ctx, email, password)
	res, _ := args.Get(0).(*user.Registered)
	return res, args.Error(1)
}

func TestLoginHandler_ServeHTTP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		req            Request
		mockResp       *user.Registered
		mockErr        error
		callService    bool
		wantStatusCode int
		wantContains   string
	}{
		{
			name:           "valid login",
			req:            Request{Email: "a@example.com", Password: "secret1"},
			mockResp:       &user.Registered{UserUID: "uid-1", Token: "tok"},
			callService:    true,
			wantStatusCode: http.StatusOK,
			wantContains:   `"userId":"uid-1"`,
		},
		{
			name:           "invalid credentials",
			req:            Request{Email: "a@example.com", Password: "wrong"},
			mockErr:        fmt.Errorf("user.Login: %w", models.NewError(models.KindInvalidInput, "invalid credentials")),
			callService:    true,
			wantStatusCode: http.StatusUnauthorized,
			wantContains:   "invalid credentials",
		},
		{
			name:           "validation error",
			req:            Request{Email: "not-an-email", Password: "x"},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantContains:   "field Email must be a valid email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.callService {
				svc.On("Login", mock.Anything, tt.req.Email, tt.req.Password).Return(tt.mockResp, tt.mockErr)
			}
			body, err := json.Marshal(tt.req)
			require.NoError(t, err)

			rr := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/users/login", bytes.NewReader(body)))

			assert.Equal(t, tt.wantStatusCode, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantContains)
			svc.AssertExpectations(t)
		})
	}
}
