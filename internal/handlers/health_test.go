package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/temcen/dishrec/internal/services"
)

type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) CheckHealth(ctx context.Context) *services.HealthStatus {
	args := m.Called(ctx)
	return args.Get(0).(*services.HealthStatus)
}

func TestHealthHandler_Check(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	tests := []struct {
		status         string
		expectedStatus int
	}{
		{status: "healthy", expectedStatus: http.StatusOK},
		{status: "degraded", expectedStatus: http.StatusOK},
		{status: "unhealthy", expectedStatus: http.StatusServiceUnavailable},
		{status: "unknown", expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			checker := new(MockHealthChecker)
			checker.On("CheckHealth", mock.Anything).Return(&services.HealthStatus{
				Status:    tt.status,
				Timestamp: time.Now(),
				Services:  map[string]string{"postgres": "healthy"},
			})

			router := gin.New()
			router.GET("/health", NewHealthHandler(logger, checker).Check)

			req, _ := http.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), `"status":"`+tt.status+`"`)
			checker.AssertExpectations(t)
		})
	}
}
