// internal/handlers/loan_test.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/campuswell/wellness-loans/internal/lifecycle"
)

func TestRespondLoanError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"item unavailable", lifecycle.ErrItemUnavailable, http.StatusConflict},
		{"blocked borrower", lifecycle.ErrBorrowerBlocked, http.StatusForbidden},
		{"not requested", lifecycle.ErrNotRequested, http.StatusConflict},
		{"not active", lifecycle.ErrNotActive, http.StatusConflict},
		{"not active or overdue", lifecycle.ErrNotActiveOrOverdue, http.StatusConflict},
		{"outstanding loans block retirement", lifecycle.ErrOutstandingLoans, http.StatusConflict},
		{"reason too short", lifecycle.ErrReasonTooShort, http.StatusBadRequest},
		{"missing start time", lifecycle.ErrMissingStartTime, http.StatusBadRequest},
		{"wrapped sentinel", fmt.Errorf("approve loan: %w", lifecycle.ErrNotRequested), http.StatusConflict},
		{"missing row", errors.New("loan not found"), http.StatusNotFound},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", "/", nil)

			respondLoanError(c, tt.err)

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}
