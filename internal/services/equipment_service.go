// internal/services/equipment_service.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/campuswell/wellness-loans/internal/database"
	"github.com/campuswell/wellness-loans/internal/lifecycle"
	"github.com/campuswell/wellness-loans/internal/models"
	"github.com/campuswell/wellness-loans/internal/utils"
)

type EquipmentService struct {
	db     *gorm.DB
	engine *lifecycle.Engine
}

type CreateEquipmentRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Category   string `json:"category" validate:"max=50"`
	TotalUnits int    `json:"total_units" validate:"required,min=1"`
}

type UpdateEquipmentRequest struct {
	Name       *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Category   *string `json:"category,omitempty" validate:"omitempty,max=50"`
	TotalUnits *int    `json:"total_units,omitempty" validate:"omitempty,min=0"`
}

type EquipmentSearchParams struct {
	utils.PaginationParams
	Category        *string `json:"category,omitempty"`
	IncludeInactive bool    `json:"include_inactive,omitempty"`
}

func NewEquipmentService(db *gorm.DB, engine *lifecycle.Engine) *EquipmentService {
	return &EquipmentService{
		db:     db,
		engine: engine,
	}
}

func (s *EquipmentService) Create(req *CreateEquipmentRequest) (*models.EquipmentItem, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	item := &models.EquipmentItem{
		Name:           req.Name,
		Category:       req.Category,
		TotalUnits:     req.TotalUnits,
		AvailableUnits: req.TotalUnits,
		Active:         true,
	}

	if err := s.db.Create(item).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, errors.New("equipment with this name already exists")
		}
		return nil, fmt.Errorf("failed to create equipment item: %w", err)
	}

	return item, nil
}

// Update edits item attributes. A change to TotalUnits recomputes
// AvailableUnits against the outstanding loan count under a row lock, so the
// availability invariant survives resizing the pool.
func (s *EquipmentService) Update(id uuid.UUID, req *UpdateEquipmentRequest) (*models.EquipmentItem, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var item *models.EquipmentItem
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var err error
		item, err = lockItem(tx, id)
		if err != nil {
			return err
		}

		if req.Name != nil {
			item.Name = *req.Name
		}
		if req.Category != nil {
			item.Category = *req.Category
		}
		if req.TotalUnits != nil && *req.TotalUnits != item.TotalUnits {
			outstanding, err := s.outstandingCount(tx, id)
			if err != nil {
				return err
			}
			if int64(*req.TotalUnits) < outstanding {
				return fmt.Errorf("cannot reduce total units below %d outstanding loans", outstanding)
			}
			item.TotalUnits = *req.TotalUnits
			item.AvailableUnits = *req.TotalUnits - int(outstanding)
		}

		if err := tx.Save(item).Error; err != nil {
			if isUniqueViolation(err) {
				return errors.New("equipment with this name already exists")
			}
			return fmt.Errorf("failed to update equipment item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// Deactivate soft-retires an item. The engine refuses while outstanding
// loans still reference it, so inventory referenced by live loans can never
// disappear.
func (s *EquipmentService) Deactivate(id uuid.UUID) (*models.EquipmentItem, error) {
	var item *models.EquipmentItem
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var err error
		item, err = lockItem(tx, id)
		if err != nil {
			return err
		}

		outstanding, err := s.outstandingCount(tx, id)
		if err != nil {
			return err
		}

		if err := s.engine.Deactivate(item, outstanding); err != nil {
			return err
		}

		return tx.Save(item).Error
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

func (s *EquipmentService) Reactivate(id uuid.UUID) (*models.EquipmentItem, error) {
	var item *models.EquipmentItem
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var err error
		item, err = lockItem(tx, id)
		if err != nil {
			return err
		}

		item.Active = true
		return tx.Save(item).Error
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

func (s *EquipmentService) Get(id uuid.UUID) (*models.EquipmentItem, error) {
	var item models.EquipmentItem
	if err := s.db.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("equipment item not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &item, nil
}

func (s *EquipmentService) Search(params EquipmentSearchParams) ([]models.EquipmentItem, int64, error) {
	query := s.db.Model(&models.EquipmentItem{})

	if !params.IncludeInactive {
		query = query.Where("active = ?", true)
	}

	if params.Category != nil {
		query = query.Where("category = ?", *params.Category)
	}

	if params.Search != "" {
		query = query.Where("name ILIKE ?", "%"+params.Search+"%")
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count equipment items: %w", err)
	}

	// Apply sorting and pagination
	allowedSortFields := []string{"created_at", "name", "category", "available_units"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var items []models.EquipmentItem
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch equipment items: %w", err)
	}

	return items, total, nil
}

func (s *EquipmentService) SetPhotoURL(id uuid.UUID, url string) (*models.EquipmentItem, error) {
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	item.PhotoURL = url
	if err := s.db.Save(item).Error; err != nil {
		return nil, fmt.Errorf("failed to update equipment item: %w", err)
	}
	return item, nil
}

func (s *EquipmentService) outstandingCount(tx *gorm.DB, itemID uuid.UUID) (int64, error) {
	var count int64
	err := tx.Model(&models.Loan{}).
		Where("item_id = ? AND status IN (?, ?)", itemID, models.LoanStatusActive, models.LoanStatusOverdue).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count outstanding loans: %w", err)
	}
	return count, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "duplicate key")
}
