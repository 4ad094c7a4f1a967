// internal/services/loan_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campuswell/wellness-loans/internal/database"
	"github.com/campuswell/wellness-loans/internal/lifecycle"
	"github.com/campuswell/wellness-loans/internal/models"
	"github.com/campuswell/wellness-loans/internal/utils"
)

// LoanService is the persistence collaborator around the lifecycle engine.
// Every transition runs inside a transaction that locks the affected loan,
// item, and borrower rows, so the engine's decision and its availability
// bookkeeping commit together or not at all.
type LoanService struct {
	db                  *gorm.DB
	engine              *lifecycle.Engine
	notificationService *NotificationService
}

type RequestLoanRequest struct {
	ItemID             uuid.UUID  `json:"item_id" validate:"required"`
	RequestedStartTime *time.Time `json:"requested_start_time,omitempty"`
}

type RegisterLoanRequest struct {
	BorrowerID uuid.UUID  `json:"borrower_id" validate:"required"`
	ItemID     uuid.UUID  `json:"item_id" validate:"required"`
	StartTime  *time.Time `json:"start_time,omitempty"`
}

type ApproveLoanRequest struct {
	StartTime *time.Time `json:"start_time,omitempty"`
}

type RejectLoanRequest struct {
	Reason string `json:"reason" validate:"required,min=5"`
}

type LoanSearchParams struct {
	utils.PaginationParams
	Status     *models.LoanStatus `json:"status,omitempty"`
	BorrowerID *uuid.UUID         `json:"borrower_id,omitempty"`
	ItemID     *uuid.UUID         `json:"item_id,omitempty"`
}

// LoanView decorates a loan row with its read-time classification.
type LoanView struct {
	models.Loan
	TimeStatus       models.TimeStatus `json:"time_status,omitempty"`
	RemainingSeconds *int64            `json:"remaining_seconds,omitempty"`
}

func NewLoanService(db *gorm.DB, engine *lifecycle.Engine, notificationService *NotificationService) *LoanService {
	return &LoanService{
		db:                  db,
		engine:              engine,
		notificationService: notificationService,
	}
}

func (s *LoanService) RequestLoan(borrowerID uuid.UUID, req *RequestLoanRequest) (*models.Loan, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	var loan *models.Loan
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		borrower, err := findUser(tx, borrowerID)
		if err != nil {
			return err
		}

		item, err := lockItem(tx, req.ItemID)
		if err != nil {
			return err
		}

		loan, err = s.engine.Request(borrower, item, req.RequestedStartTime, now)
		if err != nil {
			return err
		}

		return tx.Create(loan).Error
	})
	if err != nil {
		return nil, err
	}

	go s.notifyStateChange(loan, "", &borrowerID)
	return loan, nil
}

func (s *LoanService) Approve(loanID, approverID uuid.UUID, req *ApproveLoanRequest) (*models.Loan, error) {
	var loan models.Loan
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := lockLoan(tx, loanID, &loan); err != nil {
			return err
		}

		item, err := lockItem(tx, loan.ItemID)
		if err != nil {
			return err
		}

		borrower, err := findUser(tx, loan.BorrowerID)
		if err != nil {
			return err
		}

		if err := s.engine.Approve(&loan, item, borrower, approverID, req.StartTime, time.Now().UTC()); err != nil {
			return err
		}

		if err := tx.Save(&loan).Error; err != nil {
			return fmt.Errorf("failed to update loan: %w", err)
		}
		return tx.Save(item).Error
	})
	if err != nil {
		return nil, err
	}

	go s.notifyStateChange(&loan, models.LoanStatusRequested, &approverID)
	return s.loadLoan(loan.ID)
}

func (s *LoanService) Reject(loanID, rejecterID uuid.UUID, req *RejectLoanRequest) (*models.Loan, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var loan models.Loan
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := lockLoan(tx, loanID, &loan); err != nil {
			return err
		}

		if err := s.engine.Reject(&loan, req.Reason, time.Now().UTC()); err != nil {
			return err
		}

		return tx.Save(&loan).Error
	})
	if err != nil {
		return nil, err
	}

	go s.notifyStateChange(&loan, models.LoanStatusRequested, &rejecterID)
	return s.loadLoan(loan.ID)
}

func (s *LoanService) RegisterDirect(registrarID uuid.UUID, req *RegisterLoanRequest) (*models.Loan, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var loan *models.Loan
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		borrower, err := findUser(tx, req.BorrowerID)
		if err != nil {
			return err
		}

		item, err := lockItem(tx, req.ItemID)
		if err != nil {
			return err
		}

		loan, err = s.engine.RegisterDirect(borrower, item, registrarID, req.StartTime, time.Now().UTC())
		if err != nil {
			return err
		}

		if err := tx.Create(loan).Error; err != nil {
			return fmt.Errorf("failed to create loan: %w", err)
		}
		return tx.Save(item).Error
	})
	if err != nil {
		return nil, err
	}

	go s.notifyStateChange(loan, "", &registrarID)
	return s.loadLoan(loan.ID)
}

func (s *LoanService) Finish(loanID, actorID uuid.UUID) (*models.Loan, error) {
	var loan models.Loan
	var from models.LoanStatus
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := lockLoan(tx, loanID, &loan); err != nil {
			return err
		}
		from = loan.Status

		item, err := lockItem(tx, loan.ItemID)
		if err != nil {
			return err
		}

		var borrower models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&borrower, "id = ?", loan.BorrowerID).Error; err != nil {
			return fmt.Errorf("borrower not found: %w", err)
		}

		if err := s.engine.Finish(&loan, item, &borrower, time.Now().UTC()); err != nil {
			return err
		}

		if err := tx.Save(&loan).Error; err != nil {
			return fmt.Errorf("failed to update loan: %w", err)
		}
		if err := tx.Save(item).Error; err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}
		return tx.Save(&borrower).Error
	})
	if err != nil {
		return nil, err
	}

	go s.notifyStateChange(&loan, from, &actorID)
	return s.loadLoan(loan.ID)
}

func (s *LoanService) MarkLost(loanID, actorID uuid.UUID) (*models.Loan, error) {
	var loan models.Loan
	var from models.LoanStatus
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := lockLoan(tx, loanID, &loan); err != nil {
			return err
		}
		from = loan.Status

		item, err := lockItem(tx, loan.ItemID)
		if err != nil {
			return err
		}

		if err := s.engine.MarkLost(&loan, item, time.Now().UTC()); err != nil {
			return err
		}

		if err := tx.Save(&loan).Error; err != nil {
			return fmt.Errorf("failed to update loan: %w", err)
		}
		return tx.Save(item).Error
	})
	if err != nil {
		return nil, err
	}

	go s.notifyStateChange(&loan, from, &actorID)
	return s.loadLoan(loan.ID)
}

func (s *LoanService) GetLoan(id uuid.UUID) (*LoanView, error) {
	loan, err := s.loadLoan(id)
	if err != nil {
		return nil, err
	}

	view := s.decorate(loan, time.Now().UTC())
	return &view, nil
}

func (s *LoanService) SearchLoans(params LoanSearchParams) ([]LoanView, int64, error) {
	query := s.db.Model(&models.Loan{}).
		Preload("Borrower").Preload("Item").Preload("Approver")

	// Apply filters
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	if params.BorrowerID != nil {
		query = query.Where("borrower_id = ?", *params.BorrowerID)
	}

	if params.ItemID != nil {
		query = query.Where("item_id = ?", *params.ItemID)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count loans: %w", err)
	}

	// Apply sorting
	allowedSortFields := []string{"created_at", "requested_at", "start_time", "estimated_end_time", "status"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)

	// Apply pagination
	query = utils.ApplyPagination(query, params.PaginationParams)

	// Execute query
	var loans []models.Loan
	if err := query.Find(&loans).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch loans: %w", err)
	}

	now := time.Now().UTC()
	views := make([]LoanView, 0, len(loans))
	for i := range loans {
		views = append(views, s.decorate(&loans[i], now))
	}

	return views, total, nil
}

func (s *LoanService) GetUserLoans(borrowerID uuid.UUID, params utils.PaginationParams) ([]LoanView, int64, error) {
	return s.SearchLoans(LoanSearchParams{
		PaginationParams: params,
		BorrowerID:       &borrowerID,
	})
}

// SweepOverdue flips active loans whose deadline has passed to the persisted
// overdue state. Candidates are collected in one scan, then each loan is
// re-checked under a row lock so a concurrent finish or mark-lost wins the
// race cleanly. A candidate that fails is logged and skipped rather than
// aborting the batch; whatever is still overdue surfaces on the next tick.
// Only transitions this sweep actually applied are returned and notified.
func (s *LoanService) SweepOverdue(now time.Time) ([]models.Loan, error) {
	var candidateIDs []uuid.UUID
	if err := s.db.Model(&models.Loan{}).
		Where("status = ? AND estimated_end_time <= ?", models.LoanStatusActive, now).
		Pluck("id", &candidateIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to scan for overdue loans: %w", err)
	}

	var flipped []models.Loan
	for _, id := range candidateIDs {
		var loan models.Loan
		changed := false
		err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
			if err := lockLoan(tx, id, &loan); err != nil {
				return err
			}

			if len(s.engine.SweepOverdue([]*models.Loan{&loan}, now)) == 0 {
				// Finished or already swept since the scan
				return nil
			}

			changed = true
			return tx.Save(&loan).Error
		})
		if err != nil {
			logrus.WithError(err).WithField("loan_id", id).Warn("Overdue sweep skipped loan")
			continue
		}

		if changed {
			flipped = append(flipped, loan)
			go s.notifyStateChange(&loan, models.LoanStatusActive, nil)
		}
	}

	return flipped, nil
}

// Classify exposes the engine's read-time label for a single loan.
func (s *LoanService) Classify(loan *models.Loan, now time.Time) models.TimeStatus {
	return s.engine.Classify(loan, now)
}

func (s *LoanService) loadLoan(id uuid.UUID) (*models.Loan, error) {
	var loan models.Loan
	if err := s.db.Preload("Borrower").Preload("Item").Preload("Approver").
		First(&loan, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("loan not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &loan, nil
}

func (s *LoanService) decorate(loan *models.Loan, now time.Time) LoanView {
	view := LoanView{Loan: *loan}
	if loan.Status.Outstanding() {
		view.TimeStatus = s.engine.Classify(loan, now)
		remaining := int64(s.engine.Remaining(loan, now).Seconds())
		view.RemainingSeconds = &remaining
	}
	return view
}

func (s *LoanService) notifyStateChange(loan *models.Loan, from models.LoanStatus, actorID *uuid.UUID) {
	if s.notificationService == nil {
		return
	}
	s.notificationService.LoanStateChanged(context.Background(), loan, from, actorID)
}

// Row-lock helpers shared by the loan and equipment services.

func lockLoan(tx *gorm.DB, id uuid.UUID, loan *models.Loan) error {
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(loan, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("loan not found")
		}
		return fmt.Errorf("database error: %w", err)
	}
	return nil
}

func lockItem(tx *gorm.DB, id uuid.UUID) (*models.EquipmentItem, error) {
	var item models.EquipmentItem
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("equipment item not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &item, nil
}

func findUser(tx *gorm.DB, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := tx.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("user not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}
