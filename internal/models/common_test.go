// internal/models/common_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoanStatusTerminal(t *testing.T) {
	for _, s := range []LoanStatus{LoanStatusReturned, LoanStatusLost, LoanStatusRejected} {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
	}
	for _, s := range []LoanStatus{LoanStatusRequested, LoanStatusActive, LoanStatusOverdue} {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
}

func TestLoanStatusOutstanding(t *testing.T) {
	for _, s := range []LoanStatus{LoanStatusActive, LoanStatusOverdue} {
		assert.True(t, s.Outstanding(), "%s should hold a unit", s)
	}
	for _, s := range []LoanStatus{LoanStatusRequested, LoanStatusReturned, LoanStatusLost, LoanStatusRejected} {
		assert.False(t, s.Outstanding(), "%s should not hold a unit", s)
	}
}

func TestJSONBRoundTrip(t *testing.T) {
	original := JSONB{"method": "PUT", "path": "/v1/loans/abc/finish"}

	value, err := original.Value()
	require.NoError(t, err)

	var scanned JSONB
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, "PUT", scanned["method"])
	assert.Equal(t, "/v1/loans/abc/finish", scanned["path"])
}

func TestJSONBNil(t *testing.T) {
	var j JSONB
	value, err := j.Value()
	require.NoError(t, err)
	assert.Nil(t, value)

	var scanned JSONB
	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)
}
