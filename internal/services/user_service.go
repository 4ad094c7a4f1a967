// internal/services/user_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campuswell/wellness-loans/internal/models"
	"github.com/campuswell/wellness-loans/internal/utils"
)

type UserService struct {
	db *gorm.DB
}

type UserSearchParams struct {
	utils.PaginationParams
	UserType  *models.UserType   `json:"user_type,omitempty"`
	Status    *models.UserStatus `json:"status,omitempty"`
	ProgramID *uuid.UUID         `json:"program_id,omitempty"`
}

type UpdateUserStatusRequest struct {
	Status models.UserStatus `json:"status" validate:"required,oneof=active blocked"`
}

type ProgramRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	Code string `json:"code" validate:"required,max=20"`
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) GetUser(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.Preload("Program").First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("user not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

func (s *UserService) SearchUsers(params UserSearchParams) ([]models.User, int64, error) {
	query := s.db.Model(&models.User{}).Preload("Program")

	if params.UserType != nil {
		query = query.Where("user_type = ?", *params.UserType)
	}

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	if params.ProgramID != nil {
		query = query.Where("program_id = ?", *params.ProgramID)
	}

	if params.Search != "" {
		query = query.Where("username ILIKE ? OR email ILIKE ?",
			"%"+params.Search+"%", "%"+params.Search+"%")
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	// Apply sorting and pagination
	allowedSortFields := []string{"created_at", "username", "email", "total_loan_hours", "last_login_at"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	return users, total, nil
}

// UpdateStatus blocks or unblocks a borrower. A blocked borrower keeps any
// outstanding loans but cannot open new ones.
func (s *UserService) UpdateStatus(id uuid.UUID, req *UpdateUserStatusRequest) (*models.User, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}

	if user.UserType == models.UserTypeAdmin && req.Status == models.UserStatusBlocked {
		return nil, errors.New("cannot block an admin account")
	}

	user.Status = req.Status
	if err := s.db.Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}

	return user, nil
}

// Program records

func (s *UserService) CreateProgram(req *ProgramRequest) (*models.Program, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	program := &models.Program{
		Name:   req.Name,
		Code:   req.Code,
		Active: true,
	}

	if err := s.db.Create(program).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, errors.New("program with this code already exists")
		}
		return nil, fmt.Errorf("failed to create program: %w", err)
	}

	return program, nil
}

func (s *UserService) UpdateProgram(id uuid.UUID, req *ProgramRequest) (*models.Program, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var program models.Program
	if err := s.db.First(&program, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("program not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	program.Name = req.Name
	program.Code = req.Code
	if err := s.db.Save(&program).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, errors.New("program with this code already exists")
		}
		return nil, fmt.Errorf("failed to update program: %w", err)
	}

	return &program, nil
}

// DeleteProgram soft-deletes a program once no students reference it.
func (s *UserService) DeleteProgram(id uuid.UUID) error {
	var studentCount int64
	if err := s.db.Model(&models.User{}).Where("program_id = ?", id).Count(&studentCount).Error; err != nil {
		return fmt.Errorf("failed to count program students: %w", err)
	}

	if studentCount > 0 {
		return errors.New("cannot delete a program with enrolled students")
	}

	result := s.db.Delete(&models.Program{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete program: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("program not found")
	}
	return nil
}

func (s *UserService) ListPrograms(params utils.PaginationParams) ([]models.Program, int64, error) {
	query := s.db.Model(&models.Program{})

	if params.Search != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ?",
			"%"+params.Search+"%", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count programs: %w", err)
	}

	allowedSortFields := []string{"created_at", "name", "code"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var programs []models.Program
	if err := query.Find(&programs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch programs: %w", err)
	}

	return programs, total, nil
}
