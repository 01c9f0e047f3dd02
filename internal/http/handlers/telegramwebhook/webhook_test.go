package telegramwebhook

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/telegram"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) HandleUpdate(ctx context.Context, upd *telegram.Update) {
	m.Called(ctx, upd)
}

func TestWebhookHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
	}{
		{
			name: "valid update dispatched",
			body: `{"update_id":1,"message":{"message_id":2,"from":{"id":500,"first_name":"Aina"},"chat":{"id":500},"text":"/baki"}}`,
			setupMock: func(m *MockService) {
				m.On("HandleUpdate", mock.Anything, mock.MatchedBy(func(upd *telegram.Update) bool {
					return upd.Message != nil && upd.Message.Text == "/baki"
				})).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "malformed body rejected",
			body:           `not json`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "update without message still acknowledged",
			body: `{"update_id":3}`,
			setupMock: func(m *MockService) {
				m.On("HandleUpdate", mock.Anything, mock.Anything).Once()
			},
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/telegram", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}
