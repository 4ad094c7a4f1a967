// internal/handlers/equipment.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campuswell/wellness-loans/internal/services"
	"github.com/campuswell/wellness-loans/internal/utils"
)

type EquipmentHandler struct {
	equipmentService *services.EquipmentService
	storageService   *services.StorageService
}

func NewEquipmentHandler(equipmentService *services.EquipmentService, storageService *services.StorageService) *EquipmentHandler {
	return &EquipmentHandler{
		equipmentService: equipmentService,
		storageService:   storageService,
	}
}

// GET /equipment
func (h *EquipmentHandler) SearchEquipment(c *gin.Context) {
	params := services.EquipmentSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
	}

	if category := c.Query("category"); category != "" {
		params.Category = &category
	}
	if c.Query("include_inactive") == "true" {
		// Only admins see deactivated catalog entries.
		if userType, _ := utils.GetUserTypeFromContext(c); userType == "admin" {
			params.IncludeInactive = true
		}
	}

	items, total, err := h.equipmentService.Search(params)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to search equipment")
		return
	}

	result := utils.CreatePaginationResult(items, total, params.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// GET /equipment/:id
func (h *EquipmentHandler) GetEquipment(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid equipment ID", nil)
		return
	}

	item, err := h.equipmentService.Get(itemID)
	if err != nil {
		utils.NotFoundResponse(c, "Equipment")
		return
	}

	utils.SuccessResponse(c, item)
}

// POST /equipment
func (h *EquipmentHandler) CreateEquipment(c *gin.Context) {
	var req services.CreateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	item, err := h.equipmentService.Create(&req)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			utils.ConflictResponse(c, err.Error())
			return
		}
		utils.InternalErrorResponse(c, "Failed to create equipment")
		return
	}

	utils.CreatedResponse(c, item)
}

// PUT /equipment/:id
func (h *EquipmentHandler) UpdateEquipment(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid equipment ID", nil)
		return
	}

	var req services.UpdateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	item, err := h.equipmentService.Update(itemID, &req)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "not found"):
			utils.NotFoundResponse(c, "Equipment")
		case strings.Contains(err.Error(), "outstanding"), strings.Contains(err.Error(), "already exists"):
			utils.ConflictResponse(c, err.Error())
		default:
			utils.InternalErrorResponse(c, "Failed to update equipment")
		}
		return
	}

	utils.SuccessResponse(c, item)
}

// DELETE /equipment/:id
func (h *EquipmentHandler) DeactivateEquipment(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid equipment ID", nil)
		return
	}

	item, err := h.equipmentService.Deactivate(itemID)
	if err != nil {
		respondLoanError(c, err)
		return
	}

	utils.SuccessResponse(c, item)
}

// POST /equipment/:id/reactivate
func (h *EquipmentHandler) ReactivateEquipment(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid equipment ID", nil)
		return
	}

	item, err := h.equipmentService.Reactivate(itemID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Equipment")
			return
		}
		utils.InternalErrorResponse(c, "Failed to reactivate equipment")
		return
	}

	utils.SuccessResponse(c, item)
}

// POST /equipment/:id/photo
func (h *EquipmentHandler) UploadPhoto(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid equipment ID", nil)
		return
	}

	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		utils.BadRequestResponse(c, "Photo file is required", nil)
		return
	}
	defer file.Close()

	result, err := h.storageService.UploadFile(file, header, services.UploadOptions{
		Folder:       "equipment",
		MaxSize:      5 * 1024 * 1024, // 5MB
		AllowedTypes: []string{".jpg", ".jpeg", ".png", ".webp"},
	})
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	item, err := h.equipmentService.SetPhotoURL(itemID, result.URL)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Equipment")
			return
		}
		utils.InternalErrorResponse(c, "Failed to save photo URL")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"item":   item,
		"upload": result,
	})
}
