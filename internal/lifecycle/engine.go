// Package lifecycle owns the loan state machine, the time-bound expiration
// policy, and the equipment availability bookkeeping. It is pure decision
// logic: every operation takes the records it needs plus the current time,
// mutates them in place on success, and returns a sentinel error on an
// illegal transition. Callers are expected to load the records under a row
// lock and commit the mutation atomically; the engine itself performs no I/O.
package lifecycle

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campuswell/wellness-loans/internal/models"
)

var (
	ErrItemUnavailable    = errors.New("no units of this item are available")
	ErrBorrowerBlocked    = errors.New("borrower is blocked from new loans")
	ErrNotRequested       = errors.New("loan is not in requested state")
	ErrNotActive          = errors.New("loan is not active")
	ErrNotActiveOrOverdue = errors.New("loan is not active or overdue")
	ErrReasonTooShort     = errors.New("rejection reason is too short")
	ErrOutstandingLoans   = errors.New("item still has outstanding loans")
	ErrMissingStartTime   = errors.New("loan has no start time")
)

// Policy holds the configurable time-window rules.
type Policy struct {
	MaxLoanDuration  time.Duration
	NearExpiryWindow time.Duration
	MinRejectReason  int
}

func DefaultPolicy() Policy {
	return Policy{
		MaxLoanDuration:  3 * time.Hour,
		NearExpiryWindow: 15 * time.Minute,
		MinRejectReason:  5,
	}
}

type Engine struct {
	policy Policy
}

func New(policy Policy) *Engine {
	def := DefaultPolicy()
	if policy.MaxLoanDuration <= 0 {
		policy.MaxLoanDuration = def.MaxLoanDuration
	}
	if policy.NearExpiryWindow <= 0 {
		policy.NearExpiryWindow = def.NearExpiryWindow
	}
	if policy.MinRejectReason <= 0 {
		policy.MinRejectReason = def.MinRejectReason
	}
	return &Engine{policy: policy}
}

func (e *Engine) Policy() Policy {
	return e.policy
}

// Request files a self-service loan in requested state. No unit is taken
// until approval, but an item with nothing available (or marked inactive)
// rejects the request up front.
func (e *Engine) Request(borrower *models.User, item *models.EquipmentItem, requestedStart *time.Time, now time.Time) (*models.Loan, error) {
	if borrower.Status == models.UserStatusBlocked {
		return nil, ErrBorrowerBlocked
	}
	if !item.Active || item.AvailableUnits < 1 {
		return nil, ErrItemUnavailable
	}

	return &models.Loan{
		BaseModel:          models.BaseModel{ID: uuid.New()},
		BorrowerID:         borrower.ID,
		ItemID:             item.ID,
		Status:             models.LoanStatusRequested,
		RequestedAt:        now,
		RequestedStartTime: requestedStart,
	}, nil
}

// Approve moves a requested loan to active, stamping the loan window and
// taking one unit of the item. The state change and the availability
// decrement form one atomic unit; the caller must commit both or neither.
func (e *Engine) Approve(loan *models.Loan, item *models.EquipmentItem, borrower *models.User, approverID uuid.UUID, start *time.Time, now time.Time) error {
	if loan.Status != models.LoanStatusRequested {
		return ErrNotRequested
	}
	if borrower.Status == models.UserStatusBlocked {
		return ErrBorrowerBlocked
	}
	if err := e.takeUnit(item); err != nil {
		return err
	}

	startAt := now
	if start != nil {
		startAt = *start
	} else if loan.RequestedStartTime != nil && loan.RequestedStartTime.After(now) {
		startAt = *loan.RequestedStartTime
	}
	endAt := startAt.Add(e.policy.MaxLoanDuration)

	loan.Status = models.LoanStatusActive
	loan.StartTime = &startAt
	loan.EstimatedEndTime = &endAt
	loan.ApprovedAt = &now
	loan.ApprovedBy = &approverID
	return nil
}

// Reject closes a requested loan with a mandatory reason. Availability is
// untouched since no unit was ever taken.
func (e *Engine) Reject(loan *models.Loan, reason string, now time.Time) error {
	if loan.Status != models.LoanStatusRequested {
		return ErrNotRequested
	}
	if len(strings.TrimSpace(reason)) < e.policy.MinRejectReason {
		return ErrReasonTooShort
	}

	loan.Status = models.LoanStatusRejected
	loan.RejectionReason = reason
	loan.RejectedAt = &now
	return nil
}

// RegisterDirect creates a walk-in loan directly in active state, bypassing
// the request step. Preconditions and effects match Approve.
func (e *Engine) RegisterDirect(borrower *models.User, item *models.EquipmentItem, registrarID uuid.UUID, start *time.Time, now time.Time) (*models.Loan, error) {
	if borrower.Status == models.UserStatusBlocked {
		return nil, ErrBorrowerBlocked
	}
	if err := e.takeUnit(item); err != nil {
		return nil, err
	}

	startAt := now
	if start != nil {
		startAt = *start
	}
	endAt := startAt.Add(e.policy.MaxLoanDuration)

	return &models.Loan{
		BaseModel:        models.BaseModel{ID: uuid.New()},
		BorrowerID:       borrower.ID,
		ItemID:           item.ID,
		Status:           models.LoanStatusActive,
		RequestedAt:      now,
		StartTime:        &startAt,
		EstimatedEndTime: &endAt,
		ApprovedAt:       &now,
		ApprovedBy:       &registrarID,
	}, nil
}

// Finish completes an outstanding loan: the unit returns to the pool and the
// elapsed hours accumulate onto the borrower's running total. A loan already
// swept to overdue can still be finished; the late return completes normally.
func (e *Engine) Finish(loan *models.Loan, item *models.EquipmentItem, borrower *models.User, now time.Time) error {
	if !loan.Status.Outstanding() {
		return ErrNotActive
	}
	if loan.StartTime == nil {
		return ErrMissingStartTime
	}

	loan.Status = models.LoanStatusReturned
	loan.ActualEndTime = &now
	e.releaseUnit(item)
	borrower.TotalLoanHours += now.Sub(*loan.StartTime).Hours()
	return nil
}

// MarkLost writes off an outstanding loan. The unit is freed immediately
// even though it was never physically returned, matching the established
// office policy of treating lost items as replaced. No hours accumulate.
func (e *Engine) MarkLost(loan *models.Loan, item *models.EquipmentItem, now time.Time) error {
	if !loan.Status.Outstanding() {
		return ErrNotActiveOrOverdue
	}

	loan.Status = models.LoanStatusLost
	loan.ActualEndTime = &now
	e.releaseUnit(item)
	return nil
}

// Classify labels a loan against its time window without mutating anything.
// A loan already persisted as overdue always classifies as overdue.
func (e *Engine) Classify(loan *models.Loan, now time.Time) models.TimeStatus {
	if loan.Status == models.LoanStatusOverdue {
		return models.TimeStatusOverdue
	}
	if loan.EstimatedEndTime == nil {
		return models.TimeStatusOnTime
	}

	remaining := loan.EstimatedEndTime.Sub(now)
	switch {
	case remaining <= 0:
		return models.TimeStatusOverdue
	case remaining <= e.policy.NearExpiryWindow:
		return models.TimeStatusNearExpiry
	default:
		return models.TimeStatusOnTime
	}
}

// Remaining returns the time left before the estimated end, truncated to the
// second. Negative once the deadline has passed.
func (e *Engine) Remaining(loan *models.Loan, now time.Time) time.Duration {
	if loan.EstimatedEndTime == nil {
		return 0
	}
	return loan.EstimatedEndTime.Sub(now).Truncate(time.Second)
}

// SweepOverdue flips active loans whose deadline has passed to the persisted
// overdue state and returns the ones that changed. Loans already overdue are
// left untouched, so re-running the sweep with the same clock is a no-op.
func (e *Engine) SweepOverdue(loans []*models.Loan, now time.Time) []*models.Loan {
	var changed []*models.Loan
	for _, loan := range loans {
		if loan.Status != models.LoanStatusActive {
			continue
		}
		if loan.EstimatedEndTime == nil || loan.EstimatedEndTime.After(now) {
			continue
		}
		loan.Status = models.LoanStatusOverdue
		changed = append(changed, loan)
	}
	return changed
}

// Deactivate soft-retires an item. Retirement is refused while outstanding
// loans still reference the item.
func (e *Engine) Deactivate(item *models.EquipmentItem, outstanding int64) error {
	if outstanding > 0 {
		return ErrOutstandingLoans
	}
	item.Active = false
	return nil
}

// EndOnStartDate rebuilds a full timestamp from a bare HH:MM:SS end time
// using the loan's start date. When the time-of-day precedes the start's,
// the window wrapped past midnight and the end lands on the next day.
func EndOnStartDate(start time.Time, hhmmss string) (time.Time, error) {
	tod, err := time.Parse("15:04:05", hhmmss)
	if err != nil {
		return time.Time{}, err
	}

	end := time.Date(start.Year(), start.Month(), start.Day(),
		tod.Hour(), tod.Minute(), tod.Second(), 0, start.Location())
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}
	return end, nil
}

func (e *Engine) takeUnit(item *models.EquipmentItem) error {
	if !item.Active || item.AvailableUnits < 1 {
		return ErrItemUnavailable
	}
	item.AvailableUnits--
	return nil
}

func (e *Engine) releaseUnit(item *models.EquipmentItem) {
	if item.AvailableUnits < item.TotalUnits {
		item.AvailableUnits++
	}
}
