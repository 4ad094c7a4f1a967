// internal/handlers/loan.go
package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campuswell/wellness-loans/internal/lifecycle"
	"github.com/campuswell/wellness-loans/internal/models"
	"github.com/campuswell/wellness-loans/internal/services"
	"github.com/campuswell/wellness-loans/internal/utils"
)

type LoanHandler struct {
	loanService *services.LoanService
}

func NewLoanHandler(loanService *services.LoanService) *LoanHandler {
	return &LoanHandler{
		loanService: loanService,
	}
}

// POST /loans/request
func (h *LoanHandler) RequestLoan(c *gin.Context) {
	borrowerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.RequestLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	loan, err := h.loanService.RequestLoan(borrowerID, &req)
	if err != nil {
		respondLoanError(c, err)
		return
	}

	utils.CreatedResponse(c, loan)
}

// GET /loans
func (h *LoanHandler) SearchLoans(c *gin.Context) {
	params := services.LoanSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
	}

	if status := c.Query("status"); status != "" {
		s := models.LoanStatus(status)
		params.Status = &s
	}
	if borrower := c.Query("borrower_id"); borrower != "" {
		id, err := uuid.Parse(borrower)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid borrower ID", nil)
			return
		}
		params.BorrowerID = &id
	}
	if item := c.Query("item_id"); item != "" {
		id, err := uuid.Parse(item)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid item ID", nil)
			return
		}
		params.ItemID = &id
	}

	loans, total, err := h.loanService.SearchLoans(params)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to search loans")
		return
	}

	result := utils.CreatePaginationResult(loans, total, params.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// GET /loans/mine
func (h *LoanHandler) GetMyLoans(c *gin.Context) {
	borrowerID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	loans, total, err := h.loanService.GetUserLoans(borrowerID, params)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to get loans")
		return
	}

	result := utils.CreatePaginationResult(loans, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /loans/:id
func (h *LoanHandler) GetLoan(c *gin.Context) {
	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid loan ID", nil)
		return
	}

	loan, err := h.loanService.GetLoan(loanID)
	if err != nil {
		utils.NotFoundResponse(c, "Loan")
		return
	}

	// Students may only read their own loans.
	if userType, _ := utils.GetUserTypeFromContext(c); userType != string(models.UserTypeAdmin) {
		userIDStr, _ := utils.GetUserIDFromContext(c)
		if loan.BorrowerID.String() != userIDStr {
			utils.ForbiddenResponse(c, "")
			return
		}
	}

	utils.SuccessResponse(c, loan)
}

// PUT /loans/:id/approve
func (h *LoanHandler) ApproveLoan(c *gin.Context) {
	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid loan ID", nil)
		return
	}

	approverID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.ApproveLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	loan, err := h.loanService.Approve(loanID, approverID, &req)
	if err != nil {
		respondLoanError(c, err)
		return
	}

	utils.SuccessResponse(c, loan)
}

// PUT /loans/:id/reject
func (h *LoanHandler) RejectLoan(c *gin.Context) {
	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid loan ID", nil)
		return
	}

	rejecterID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.RejectLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	loan, err := h.loanService.Reject(loanID, rejecterID, &req)
	if err != nil {
		respondLoanError(c, err)
		return
	}

	utils.SuccessResponse(c, loan)
}

// POST /loans
func (h *LoanHandler) RegisterLoan(c *gin.Context) {
	registrarID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.RegisterLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	loan, err := h.loanService.RegisterDirect(registrarID, &req)
	if err != nil {
		respondLoanError(c, err)
		return
	}

	utils.CreatedResponse(c, loan)
}

// PUT /loans/:id/finish
func (h *LoanHandler) FinishLoan(c *gin.Context) {
	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid loan ID", nil)
		return
	}

	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	loan, err := h.loanService.Finish(loanID, actorID)
	if err != nil {
		respondLoanError(c, err)
		return
	}

	utils.SuccessResponse(c, loan)
}

// PUT /loans/:id/lost
func (h *LoanHandler) MarkLoanLost(c *gin.Context) {
	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid loan ID", nil)
		return
	}

	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	loan, err := h.loanService.MarkLost(loanID, actorID)
	if err != nil {
		respondLoanError(c, err)
		return
	}

	utils.SuccessResponse(c, loan)
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return uuid.Nil, false
	}

	return userID, true
}

// respondLoanError maps lifecycle errors onto HTTP responses.
func respondLoanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrItemUnavailable):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, lifecycle.ErrBorrowerBlocked):
		utils.ForbiddenResponse(c, err.Error())
	case errors.Is(err, lifecycle.ErrNotRequested),
		errors.Is(err, lifecycle.ErrNotActive),
		errors.Is(err, lifecycle.ErrNotActiveOrOverdue),
		errors.Is(err, lifecycle.ErrOutstandingLoans):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, lifecycle.ErrReasonTooShort),
		errors.Is(err, lifecycle.ErrMissingStartTime):
		utils.BadRequestResponse(c, err.Error(), nil)
	case strings.Contains(err.Error(), "not found"):
		utils.NotFoundResponse(c, "Resource")
	default:
		utils.InternalErrorResponse(c, err.Error())
	}
}
