// internal/lifecycle/engine_test.go
package lifecycle

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuswell/wellness-loans/internal/models"
)

var (
	adminID = uuid.New()
	baseDay = time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC)
)

func newEngine() *Engine {
	return New(DefaultPolicy())
}

func newBorrower() *models.User {
	return &models.User{
		BaseModel: models.BaseModel{ID: uuid.New()},
		Username:  "student1",
		Status:    models.UserStatusActive,
	}
}

func newItem(total, available int) *models.EquipmentItem {
	return &models.EquipmentItem{
		BaseModel:      models.BaseModel{ID: uuid.New()},
		Name:           "Table Tennis Paddle",
		TotalUnits:     total,
		AvailableUnits: available,
		Active:         true,
	}
}

func activeLoan(t *testing.T, e *Engine, borrower *models.User, item *models.EquipmentItem, start time.Time) *models.Loan {
	t.Helper()
	loan, err := e.RegisterDirect(borrower, item, adminID, &start, start)
	require.NoError(t, err)
	return loan
}

func TestRequestLoan(t *testing.T) {
	e := newEngine()

	t.Run("creates requested loan with no times set", func(t *testing.T) {
		borrower := newBorrower()
		item := newItem(2, 2)

		loan, err := e.Request(borrower, item, nil, baseDay)
		require.NoError(t, err)

		assert.Equal(t, models.LoanStatusRequested, loan.Status)
		assert.Equal(t, borrower.ID, loan.BorrowerID)
		assert.Equal(t, item.ID, loan.ItemID)
		assert.Equal(t, baseDay, loan.RequestedAt)
		assert.Nil(t, loan.StartTime)
		assert.Nil(t, loan.EstimatedEndTime)
		assert.Nil(t, loan.ActualEndTime)
		// No unit is taken until approval.
		assert.Equal(t, 2, item.AvailableUnits)
	})

	t.Run("blocked borrower", func(t *testing.T) {
		borrower := newBorrower()
		borrower.Status = models.UserStatusBlocked

		_, err := e.Request(borrower, newItem(1, 1), nil, baseDay)
		assert.ErrorIs(t, err, ErrBorrowerBlocked)
	})

	t.Run("nothing available", func(t *testing.T) {
		_, err := e.Request(newBorrower(), newItem(1, 0), nil, baseDay)
		assert.ErrorIs(t, err, ErrItemUnavailable)
	})

	t.Run("inactive item", func(t *testing.T) {
		item := newItem(1, 1)
		item.Active = false

		_, err := e.Request(newBorrower(), item, nil, baseDay)
		assert.ErrorIs(t, err, ErrItemUnavailable)
	})
}

func TestApprove(t *testing.T) {
	e := newEngine()

	t.Run("stamps window and takes a unit", func(t *testing.T) {
		borrower := newBorrower()
		item := newItem(1, 1)
		loan, err := e.Request(borrower, item, nil, baseDay)
		require.NoError(t, err)

		require.NoError(t, e.Approve(loan, item, borrower, adminID, nil, baseDay))

		assert.Equal(t, models.LoanStatusActive, loan.Status)
		require.NotNil(t, loan.StartTime)
		assert.Equal(t, baseDay, *loan.StartTime)
		require.NotNil(t, loan.EstimatedEndTime)
		assert.Equal(t, baseDay.Add(3*time.Hour), *loan.EstimatedEndTime)
		require.NotNil(t, loan.ApprovedBy)
		assert.Equal(t, adminID, *loan.ApprovedBy)
		assert.Equal(t, 0, item.AvailableUnits)
	})

	t.Run("admin specified start wins", func(t *testing.T) {
		borrower := newBorrower()
		item := newItem(1, 1)
		loan, err := e.Request(borrower, item, nil, baseDay)
		require.NoError(t, err)

		start := baseDay.Add(30 * time.Minute)
		require.NoError(t, e.Approve(loan, item, borrower, adminID, &start, baseDay))
		assert.Equal(t, start, *loan.StartTime)
		assert.Equal(t, start.Add(3*time.Hour), *loan.EstimatedEndTime)
	})

	t.Run("future requested start is used by default", func(t *testing.T) {
		borrower := newBorrower()
		item := newItem(1, 1)
		wanted := baseDay.Add(2 * time.Hour)
		loan, err := e.Request(borrower, item, &wanted, baseDay)
		require.NoError(t, err)

		require.NoError(t, e.Approve(loan, item, borrower, adminID, nil, baseDay))
		assert.Equal(t, wanted, *loan.StartTime)
	})

	t.Run("no units left", func(t *testing.T) {
		borrower := newBorrower()
		item := newItem(1, 1)
		loan, err := e.Request(borrower, item, nil, baseDay)
		require.NoError(t, err)
		item.AvailableUnits = 0

		err = e.Approve(loan, item, borrower, adminID, nil, baseDay)
		assert.ErrorIs(t, err, ErrItemUnavailable)
		assert.Equal(t, models.LoanStatusRequested, loan.Status)
	})

	t.Run("borrower blocked since requesting", func(t *testing.T) {
		borrower := newBorrower()
		item := newItem(1, 1)
		loan, err := e.Request(borrower, item, nil, baseDay)
		require.NoError(t, err)
		borrower.Status = models.UserStatusBlocked

		err = e.Approve(loan, item, borrower, adminID, nil, baseDay)
		assert.ErrorIs(t, err, ErrBorrowerBlocked)
		assert.Equal(t, 1, item.AvailableUnits)
	})

	t.Run("double approval fails", func(t *testing.T) {
		borrower := newBorrower()
		item := newItem(2, 2)
		loan, err := e.Request(borrower, item, nil, baseDay)
		require.NoError(t, err)

		require.NoError(t, e.Approve(loan, item, borrower, adminID, nil, baseDay))
		err = e.Approve(loan, item, borrower, adminID, nil, baseDay)
		assert.ErrorIs(t, err, ErrNotRequested)
		assert.Equal(t, 1, item.AvailableUnits)
	})
}

func TestReject(t *testing.T) {
	e := newEngine()

	t.Run("reason too short", func(t *testing.T) {
		borrower := newBorrower()
		item := newItem(1, 1)
		loan, err := e.Request(borrower, item, nil, baseDay)
		require.NoError(t, err)

		err = e.Reject(loan, "no", baseDay)
		assert.ErrorIs(t, err, ErrReasonTooShort)
		assert.Equal(t, models.LoanStatusRequested, loan.Status)
	})

	t.Run("whitespace does not pad the reason", func(t *testing.T) {
		borrower := newBorrower()
		item := newItem(1, 1)
		loan, err := e.Request(borrower, item, nil, baseDay)
		require.NoError(t, err)

		err = e.Reject(loan, "   no   ", baseDay)
		assert.ErrorIs(t, err, ErrReasonTooShort)
	})

	t.Run("valid reason rejects without touching availability", func(t *testing.T) {
		borrower := newBorrower()
		item := newItem(1, 1)
		loan, err := e.Request(borrower, item, nil, baseDay)
		require.NoError(t, err)

		require.NoError(t, e.Reject(loan, "no stock", baseDay))
		assert.Equal(t, models.LoanStatusRejected, loan.Status)
		assert.Equal(t, "no stock", loan.RejectionReason)
		require.NotNil(t, loan.RejectedAt)
		assert.Equal(t, 1, item.AvailableUnits)
		assert.Nil(t, loan.StartTime)
	})

	t.Run("cannot reject an active loan", func(t *testing.T) {
		borrower := newBorrower()
		item := newItem(1, 1)
		loan := activeLoan(t, e, borrower, item, baseDay)

		assert.ErrorIs(t, e.Reject(loan, "long enough reason", baseDay), ErrNotRequested)
	})
}

func TestRegisterDirect(t *testing.T) {
	e := newEngine()

	t.Run("last unit then unavailable", func(t *testing.T) {
		item := newItem(1, 1)

		loan, err := e.RegisterDirect(newBorrower(), item, adminID, nil, baseDay)
		require.NoError(t, err)
		assert.Equal(t, models.LoanStatusActive, loan.Status)
		assert.Equal(t, 0, item.AvailableUnits)
		require.NotNil(t, loan.EstimatedEndTime)

		_, err = e.RegisterDirect(newBorrower(), item, adminID, nil, baseDay)
		assert.ErrorIs(t, err, ErrItemUnavailable)
		assert.Equal(t, 0, item.AvailableUnits)
	})

	t.Run("blocked borrower", func(t *testing.T) {
		borrower := newBorrower()
		borrower.Status = models.UserStatusBlocked

		_, err := e.RegisterDirect(borrower, newItem(1, 1), adminID, nil, baseDay)
		assert.ErrorIs(t, err, ErrBorrowerBlocked)
	})
}

func TestFinish(t *testing.T) {
	e := newEngine()

	t.Run("accumulates elapsed hours and frees the unit", func(t *testing.T) {
		borrower := newBorrower()
		item := newItem(1, 1)
		start := time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC)
		loan := activeLoan(t, e, borrower, item, start)

		finish := start.Add(45 * time.Minute)
		require.NoError(t, e.Finish(loan, item, borrower, finish))

		assert.Equal(t, models.LoanStatusReturned, loan.Status)
		require.NotNil(t, loan.ActualEndTime)
		assert.Equal(t, finish, *loan.ActualEndTime)
		assert.Equal(t, 1, item.AvailableUnits)
		assert.InDelta(t, 0.75, borrower.TotalLoanHours, 1e-9)
	})

	t.Run("late return of a swept overdue loan completes", func(t *testing.T) {
		borrower := newBorrower()
		item := newItem(1, 1)
		loan := activeLoan(t, e, borrower, item, baseDay)

		swept := e.SweepOverdue([]*models.Loan{loan}, baseDay.Add(4*time.Hour))
		require.Len(t, swept, 1)

		require.NoError(t, e.Finish(loan, item, borrower, baseDay.Add(5*time.Hour)))
		assert.Equal(t, models.LoanStatusReturned, loan.Status)
		assert.Equal(t, 1, item.AvailableUnits)
	})

	t.Run("requested loan cannot be finished", func(t *testing.T) {
		borrower := newBorrower()
		item := newItem(1, 1)
		loan, err := e.Request(borrower, item, nil, baseDay)
		require.NoError(t, err)

		assert.ErrorIs(t, e.Finish(loan, item, borrower, baseDay), ErrNotActive)
	})
}

func TestMarkLost(t *testing.T) {
	e := newEngine()

	t.Run("frees the unit with no hour accumulation", func(t *testing.T) {
		borrower := newBorrower()
		item := newItem(1, 1)
		loan := activeLoan(t, e, borrower, item, baseDay)

		require.NoError(t, e.MarkLost(loan, item, baseDay.Add(time.Hour)))
		assert.Equal(t, models.LoanStatusLost, loan.Status)
		require.NotNil(t, loan.ActualEndTime)
		assert.Equal(t, 1, item.AvailableUnits)
		assert.Zero(t, borrower.TotalLoanHours)
	})

	t.Run("overdue loan can be marked lost", func(t *testing.T) {
		borrower := newBorrower()
		item := newItem(1, 1)
		loan := activeLoan(t, e, borrower, item, baseDay)
		e.SweepOverdue([]*models.Loan{loan}, baseDay.Add(4*time.Hour))

		require.NoError(t, e.MarkLost(loan, item, baseDay.Add(5*time.Hour)))
		assert.Equal(t, models.LoanStatusLost, loan.Status)
	})

	t.Run("returned loan cannot be marked lost", func(t *testing.T) {
		borrower := newBorrower()
		item := newItem(1, 1)
		loan := activeLoan(t, e, borrower, item, baseDay)
		require.NoError(t, e.Finish(loan, item, borrower, baseDay.Add(time.Hour)))

		assert.ErrorIs(t, e.MarkLost(loan, item, baseDay.Add(2*time.Hour)), ErrNotActiveOrOverdue)
		assert.Equal(t, 1, item.AvailableUnits)
	})
}

func TestTerminalStatesAreClosed(t *testing.T) {
	e := newEngine()
	borrower := newBorrower()
	item := newItem(3, 3)

	returned := activeLoan(t, e, borrower, item, baseDay)
	require.NoError(t, e.Finish(returned, item, borrower, baseDay.Add(time.Hour)))

	lost := activeLoan(t, e, borrower, item, baseDay)
	require.NoError(t, e.MarkLost(lost, item, baseDay.Add(time.Hour)))

	rejected, err := e.Request(borrower, item, nil, baseDay)
	require.NoError(t, err)
	require.NoError(t, e.Reject(rejected, "item reserved for an event", baseDay))

	for name, loan := range map[string]*models.Loan{
		"returned": returned,
		"lost":     lost,
		"rejected": rejected,
	} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, loan.Status.Terminal())
			assert.Error(t, e.Approve(loan, item, borrower, adminID, nil, baseDay))
			assert.Error(t, e.Reject(loan, "another long reason", baseDay))
			assert.Error(t, e.Finish(loan, item, borrower, baseDay))
			assert.Error(t, e.MarkLost(loan, item, baseDay))
			assert.Empty(t, e.SweepOverdue([]*models.Loan{loan}, baseDay.Add(48*time.Hour)))
		})
	}

	// The two completed loans gave their units back, the rejected one never
	// took one.
	assert.Equal(t, 3, item.AvailableUnits)
}

func TestAvailabilityRoundTrip(t *testing.T) {
	e := newEngine()
	borrower := newBorrower()
	item := newItem(4, 4)

	loan, err := e.Request(borrower, item, nil, baseDay)
	require.NoError(t, err)
	assert.Equal(t, 4, item.AvailableUnits)

	require.NoError(t, e.Approve(loan, item, borrower, adminID, nil, baseDay))
	assert.Equal(t, 3, item.AvailableUnits)

	require.NoError(t, e.Finish(loan, item, borrower, baseDay.Add(time.Hour)))
	assert.Equal(t, 4, item.AvailableUnits)
}

func TestClassify(t *testing.T) {
	e := newEngine()
	borrower := newBorrower()
	item := newItem(1, 1)

	// Approved at 10:00 with a 3 hour window: estimated end 13:00.
	start := time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC)
	loan := activeLoan(t, e, borrower, item, start)
	require.Equal(t, time.Date(2026, time.March, 9, 13, 0, 0, 0, time.UTC), *loan.EstimatedEndTime)

	cases := []struct {
		name string
		now  time.Time
		want models.TimeStatus
	}{
		{"well inside the window", start.Add(time.Hour), models.TimeStatusOnTime},
		{"just before the warning window", start.Add(2*time.Hour + 44*time.Minute), models.TimeStatusOnTime},
		{"at 12:50 with 15m threshold", time.Date(2026, time.March, 9, 12, 50, 0, 0, time.UTC), models.TimeStatusNearExpiry},
		{"exactly at the deadline", start.Add(3 * time.Hour), models.TimeStatusOverdue},
		{"at 13:01", time.Date(2026, time.March, 9, 13, 1, 0, 0, time.UTC), models.TimeStatusOverdue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, e.Classify(loan, tc.now))
		})
	}

	t.Run("classification does not mutate the loan", func(t *testing.T) {
		e.Classify(loan, start.Add(5*time.Hour))
		assert.Equal(t, models.LoanStatusActive, loan.Status)
	})

	t.Run("persisted overdue classifies as overdue regardless of clock", func(t *testing.T) {
		swept := e.SweepOverdue([]*models.Loan{loan}, start.Add(4*time.Hour))
		require.Len(t, swept, 1)
		assert.Equal(t, models.TimeStatusOverdue, e.Classify(loan, start))
	})
}

func TestRemaining(t *testing.T) {
	e := newEngine()
	loan := activeLoan(t, e, newBorrower(), newItem(1, 1), baseDay)

	assert.Equal(t, 3*time.Hour, e.Remaining(loan, baseDay))
	assert.Equal(t, -time.Minute, e.Remaining(loan, baseDay.Add(3*time.Hour+time.Minute)))

	requested := &models.Loan{Status: models.LoanStatusRequested}
	assert.Zero(t, e.Remaining(requested, baseDay))
}

func TestSweepOverdue(t *testing.T) {
	e := newEngine()
	borrower := newBorrower()
	item := newItem(3, 3)

	early := activeLoan(t, e, borrower, item, baseDay)
	late := activeLoan(t, e, borrower, item, baseDay.Add(2*time.Hour))
	requested, err := e.Request(borrower, item, nil, baseDay)
	require.NoError(t, err)

	now := baseDay.Add(3*time.Hour + time.Minute)
	changed := e.SweepOverdue([]*models.Loan{early, late, requested}, now)

	require.Len(t, changed, 1)
	assert.Equal(t, early.ID, changed[0].ID)
	assert.Equal(t, models.LoanStatusOverdue, early.Status)
	assert.Equal(t, models.LoanStatusActive, late.Status)
	assert.Equal(t, models.LoanStatusRequested, requested.Status)

	t.Run("idempotent under the same clock", func(t *testing.T) {
		again := e.SweepOverdue([]*models.Loan{early, late, requested}, now)
		assert.Empty(t, again)
		assert.Equal(t, models.LoanStatusOverdue, early.Status)
	})

	// A candidate finished between the caller's scan and its re-check must
	// report no change, so the caller neither saves nor notifies it.
	t.Run("loan finished since the scan is untouched", func(t *testing.T) {
		finished := activeLoan(t, e, borrower, item, baseDay)
		require.NoError(t, e.Finish(finished, item, borrower, now))

		again := e.SweepOverdue([]*models.Loan{finished}, now)
		assert.Empty(t, again)
		assert.Equal(t, models.LoanStatusReturned, finished.Status)
	})
}

func TestDeactivate(t *testing.T) {
	e := newEngine()

	t.Run("refused while loans are outstanding", func(t *testing.T) {
		item := newItem(2, 1)
		assert.ErrorIs(t, e.Deactivate(item, 1), ErrOutstandingLoans)
		assert.True(t, item.Active)
	})

	t.Run("retires a quiet item", func(t *testing.T) {
		item := newItem(2, 2)
		require.NoError(t, e.Deactivate(item, 0))
		assert.False(t, item.Active)
	})
}

func TestEndOnStartDate(t *testing.T) {
	start := time.Date(2026, time.March, 9, 22, 30, 0, 0, time.UTC)

	t.Run("same day", func(t *testing.T) {
		end, err := EndOnStartDate(start, "23:45:00")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, time.March, 9, 23, 45, 0, 0, time.UTC), end)
	})

	t.Run("wraps past midnight onto the next day", func(t *testing.T) {
		end, err := EndOnStartDate(start, "01:30:00")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, time.March, 10, 1, 30, 0, 0, time.UTC), end)
		assert.True(t, end.After(start))
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		_, err := EndOnStartDate(start, "25:99")
		assert.Error(t, err)
	})
}

func TestPolicyDefaults(t *testing.T) {
	e := New(Policy{})
	assert.Equal(t, 3*time.Hour, e.Policy().MaxLoanDuration)
	assert.Equal(t, 15*time.Minute, e.Policy().NearExpiryWindow)
	assert.Equal(t, 5, e.Policy().MinRejectReason)
}
