// internal/handlers/admin.go
package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campuswell/wellness-loans/internal/models"
	"github.com/campuswell/wellness-loans/internal/services"
	"github.com/campuswell/wellness-loans/internal/utils"
)

type AdminHandler struct {
	adminService        *services.AdminService
	userService         *services.UserService
	notificationService *services.NotificationService
}

func NewAdminHandler(adminService *services.AdminService, userService *services.UserService, notificationService *services.NotificationService) *AdminHandler {
	return &AdminHandler{
		adminService:        adminService,
		userService:         userService,
		notificationService: notificationService,
	}
}

// GET /admin/dashboard/stats
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats()
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load dashboard stats")
		return
	}

	utils.SuccessResponse(c, stats)
}

// GET /admin/users
func (h *AdminHandler) SearchUsers(c *gin.Context) {
	params := services.UserSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
	}

	if userType := c.Query("user_type"); userType != "" {
		t := models.UserType(userType)
		params.UserType = &t
	}
	if status := c.Query("status"); status != "" {
		s := models.UserStatus(status)
		params.Status = &s
	}
	if program := c.Query("program_id"); program != "" {
		id, err := uuid.Parse(program)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid program ID", nil)
			return
		}
		params.ProgramID = &id
	}

	users, total, err := h.userService.SearchUsers(params)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to search users")
		return
	}

	result := utils.CreatePaginationResult(users, total, params.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// GET /admin/users/:id
func (h *AdminHandler) GetUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return
	}

	user, err := h.userService.GetUser(userID)
	if err != nil {
		utils.NotFoundResponse(c, "User")
		return
	}

	utils.SuccessResponse(c, user)
}

// PUT /admin/users/:id/status
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return
	}

	var req services.UpdateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	user, err := h.userService.UpdateStatus(userID, &req)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "not found"):
			utils.NotFoundResponse(c, "User")
		case strings.Contains(err.Error(), "admin"):
			utils.ConflictResponse(c, err.Error())
		default:
			utils.InternalErrorResponse(c, "Failed to update user status")
		}
		return
	}

	utils.SuccessResponse(c, user)
}

// GET /admin/events
func (h *AdminHandler) GetRecentEvents(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	events, err := h.notificationService.RecentEvents(limit)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load events")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"events": events,
	})
}

// GET /programs
func (h *AdminHandler) ListPrograms(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	programs, total, err := h.userService.ListPrograms(params)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to list programs")
		return
	}

	result := utils.CreatePaginationResult(programs, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /programs
func (h *AdminHandler) CreateProgram(c *gin.Context) {
	var req services.ProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	program, err := h.userService.CreateProgram(&req)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			utils.ConflictResponse(c, err.Error())
			return
		}
		utils.InternalErrorResponse(c, "Failed to create program")
		return
	}

	utils.CreatedResponse(c, program)
}

// PUT /programs/:id
func (h *AdminHandler) UpdateProgram(c *gin.Context) {
	programID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid program ID", nil)
		return
	}

	var req services.ProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	program, err := h.userService.UpdateProgram(programID, &req)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "not found"):
			utils.NotFoundResponse(c, "Program")
		case strings.Contains(err.Error(), "already exists"):
			utils.ConflictResponse(c, err.Error())
		default:
			utils.InternalErrorResponse(c, "Failed to update program")
		}
		return
	}

	utils.SuccessResponse(c, program)
}

// DELETE /programs/:id
func (h *AdminHandler) DeleteProgram(c *gin.Context) {
	programID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid program ID", nil)
		return
	}

	if err := h.userService.DeleteProgram(programID); err != nil {
		switch {
		case strings.Contains(err.Error(), "not found"):
			utils.NotFoundResponse(c, "Program")
		case strings.Contains(err.Error(), "enrolled"):
			utils.ConflictResponse(c, err.Error())
		default:
			utils.InternalErrorResponse(c, "Failed to delete program")
		}
		return
	}

	utils.SuccessResponse(c, gin.H{
		"deleted": true,
	})
}
