package giftcode

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/magabrotheeeer/examprep/internal/services/subscription"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) ApplyGiftCode(ctx context.Context, userUID, code string) (*subscription.GiftCodeResult, error) {
	args := m.Called(ctx, userUID, code)
	res, _ := args.Get(0).(*subscription.GiftCodeResult)
	return res, args.Error(1)
}

func TestGiftCodeHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	expiry := time.Date(2025, 9, 6, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		wantStatusCode int
		wantContains   string
	}{
		{
			name: "код применен",
			body: `{"giftCode":"abcd1234efgh"}`,
			setupMock: func(m *MockService) {
				m.On("ApplyGiftCode", mock.Anything, "uid-1", "abcd1234efgh").
					Return(&subscription.GiftCodeResult{Type: models.TierGold, ExpiryDate: expiry, Duration: "6M"}, nil)
			},
			wantStatusCode: http.StatusOK,
			wantContains:   `"type":"gold"`,
		},
		{
			name: "код уже использован",
			body: `{"giftCode":"ABCD1234EFGH"}`,
			setupMock: func(m *MockService) {
				m.On("ApplyGiftCode", mock.Anything, "uid-1", "ABCD1234EFGH").
					Return(nil, models.NewError(models.KindInvalidInput, "invalid or already used gift code"))
			},
			wantStatusCode: http.StatusBadRequest,
			wantContains:   "invalid or already used gift code",
		},
		{
			name:           "пустой код",
			body:           `{}`,
			wantStatusCode: http.StatusUnprocessableEntity,
			wantContains:   "field Code is a required field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.setupMock != nil {
				tt.setupMock(svc)
			}
			req := httptest.NewRequest(http.MethodPost, "/subscription/apply-giftcode", strings.NewReader(tt.body))
			req = req.WithContext(middlewarectx.WithUser(req.Context(), "uid-1"))
			rr := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatusCode, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantContains)
			svc.AssertExpectations(t)
		})
	}
}
