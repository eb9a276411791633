package handler

import (
	"net/http"

	"minimart/internal/logging"
	"minimart/internal/middleware"
	"minimart/internal/model"
	"minimart/internal/service"

	"github.com/gin-gonic/gin"
)

// VoucherHandler serves voucher tasks and attempt review.
type VoucherHandler struct {
	service service.VoucherService
	log     logging.Logger
}

// NewVoucherHandler creates a new VoucherHandler
func NewVoucherHandler(s service.VoucherService, log logging.Logger) *VoucherHandler {
	return &VoucherHandler{service: s, log: log}
}

func (h *VoucherHandler) listTasks(activeOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tasks, err := h.service.ListTasks(c.Request.Context(), activeOnly)
		if err != nil {
			respondError(c, h.log, err, "Failed to retrieve voucher tasks")
			return
		}
		c.JSON(http.StatusOK, tasks)
	}
}

func (h *VoucherHandler) SubmitAttempt(c *gin.Context) {
	taskID, ok := parseID(c, "task")
	if !ok {
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request: "+err.Error())
			return
		}
	}

	attempt, err := h.service.SubmitAttempt(c.Request.Context(), middleware.AuthEmail(c), taskID, req.Note)
	if err != nil {
		respondError(c, h.log, err, "Failed to submit attempt")
		return
	}
	c.JSON(http.StatusCreated, attempt)
}

func (h *VoucherHandler) MyAttempts(c *gin.Context) {
	attempts, err := h.service.ListMyAttempts(c.Request.Context(), middleware.AuthEmail(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve attempts")
		return
	}
	c.JSON(http.StatusOK, attempts)
}

func (h *VoucherHandler) UploadProof(c *gin.Context) {
	attemptID, ok := parseID(c, "attempt")
	if !ok {
		return
	}
	file, err := c.FormFile("proof")
	if err != nil {
		badRequest(c, "Proof file is required: "+err.Error())
		return
	}

	attempt, err := h.service.UploadProof(c.Request.Context(), attemptID, middleware.AuthEmail(c), file)
	if err != nil {
		respondError(c, h.log, err, "Failed to upload proof")
		return
	}
	c.JSON(http.StatusOK, attempt)
}

func (h *VoucherHandler) GetProof(c *gin.Context) {
	attemptID, ok := parseID(c, "attempt")
	if !ok {
		return
	}

	filePath, fileName, err := h.service.ProofFile(c.Request.Context(), attemptID, middleware.AuthEmail(c), middleware.AuthRole(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to get proof")
		return
	}
	c.FileAttachment(filePath, fileName)
}

func (h *VoucherHandler) CreateTask(c *gin.Context) {
	var req model.CreateVoucherTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	task, err := h.service.CreateTask(c.Request.Context(), middleware.AuthEmail(c), req)
	if err != nil {
		respondError(c, h.log, err, "Failed to create voucher task")
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *VoucherHandler) UpdateTask(c *gin.Context) {
	id, ok := parseID(c, "task")
	if !ok {
		return
	}
	var req model.UpdateVoucherTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	task, err := h.service.UpdateTask(c.Request.Context(), middleware.AuthEmail(c), id, req)
	if err != nil {
		respondError(c, h.log, err, "Failed to update voucher task")
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *VoucherHandler) DeactivateTask(c *gin.Context) {
	id, ok := parseID(c, "task")
	if !ok {
		return
	}
	task, err := h.service.DeactivateTask(c.Request.Context(), middleware.AuthEmail(c), id)
	if err != nil {
		respondError(c, h.log, err, "Failed to deactivate voucher task")
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *VoucherHandler) ListAttempts(c *gin.Context) {
	var filters model.AttemptFilters
	if statusParam := c.Query("status"); statusParam != "" {
		filters.Status = &statusParam
	}
	if emailParam := c.Query("user_email"); emailParam != "" {
		email := service.NormalizeEmail(emailParam)
		filters.UserEmail = &email
	}

	attempts, err := h.service.ListAttempts(c.Request.Context(), filters)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve attempts")
		return
	}
	c.JSON(http.StatusOK, attempts)
}

func (h *VoucherHandler) review(approve bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "attempt")
		if !ok {
			return
		}
		var req struct {
			Note   *string `json:"note"`
			Reason *string `json:"reason"`
		}
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, "Invalid request: "+err.Error())
				return
			}
		}

		var (
			attempt *model.TaskAttempt
			err     error
		)
		if approve {
			attempt, err = h.service.ApproveAttempt(c.Request.Context(), middleware.AuthEmail(c), id, req.Note)
		} else {
			reason := req.Reason
			if reason == nil {
				reason = req.Note
			}
			attempt, err = h.service.RejectAttempt(c.Request.Context(), middleware.AuthEmail(c), id, reason)
		}
		if err != nil {
			respondError(c, h.log, err, "Failed to review attempt")
			return
		}
		c.JSON(http.StatusOK, attempt)
	}
}

// RegisterVoucherRoutes registers resident routes on resident and review
// routes on admin. authed carries the proof download shared by both roles.
func (h *VoucherHandler) RegisterVoucherRoutes(authed, resident, admin *gin.RouterGroup) {
	resident.GET("/voucher-tasks", h.listTasks(true))
	resident.POST("/voucher-tasks/:id/attempts", h.SubmitAttempt)
	resident.GET("/attempts/mine", h.MyAttempts)
	resident.POST("/attempts/:id/proof", h.UploadProof)
	authed.GET("/attempts/:id/proof", h.GetProof)

	tasks := admin.Group("/voucher-tasks")
	{
		tasks.GET("", h.listTasks(false))
		tasks.POST("", h.CreateTask)
		tasks.PUT("/:id", h.UpdateTask)
		tasks.DELETE("/:id", h.DeactivateTask)
	}
	attempts := admin.Group("/attempts")
	{
		attempts.GET("", h.ListAttempts)
		attempts.POST("/:id/approve", h.review(true))
		attempts.POST("/:id/reject", h.review(false))
	}
}
