package paymentcallback

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) HandleCallback(ctx context.Context, refNo, status string) error {
	return m.Called(ctx, refNo, status).Error(0)
}

func TestCallbackHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		form           url.Values
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "paid callback processed",
			form: url.Values{
				"refno":  {"MYK-99-1700000000"},
				"status": {"1"},
			},
			setupMock: func(m *MockService) {
				m.On("HandleCallback", mock.Anything, "MYK-99-1700000000", "1").Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"OK"`,
		},
		{
			name: "order_id fallback accepted",
			form: url.Values{
				"order_id": {"MYK-99-1700000000"},
				"status":   {"1"},
			},
			setupMock: func(m *MockService) {
				m.On("HandleCallback", mock.Anything, "MYK-99-1700000000", "1").Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"OK"`,
		},
		{
			name: "missing reference acknowledged without dispatch",
			form: url.Values{
				"status": {"1"},
			},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"OK"`,
		},
		{
			name: "service failure returns 500 so the gateway retries",
			form: url.Values{
				"refno":  {"MYK-99-1700000000"},
				"status": {"1"},
			},
			setupMock: func(m *MockService) {
				m.On("HandleCallback", mock.Anything, "MYK-99-1700000000", "1").
					Return(errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `failed to process callback`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/webhook/toyyibpay",
				strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
