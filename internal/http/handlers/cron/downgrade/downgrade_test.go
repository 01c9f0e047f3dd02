package downgrade

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) SweepExpirations(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func TestDowngradeHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "sweep reports downgraded count",
			setupMock: func(m *MockService) {
				m.On("SweepExpirations", mock.Anything, mock.Anything).Return(3, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"downgraded":3`,
		},
		{
			name: "sweep failure returns 500",
			setupMock: func(m *MockService) {
				m.On("SweepExpirations", mock.Anything, mock.Anything).
					Return(0, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `failed to sweep expired subscriptions`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, "/api/cron/downgrade_users", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
