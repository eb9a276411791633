package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"minimart/internal/logging"
	"minimart/internal/middleware"
	"minimart/internal/model"
	"minimart/internal/service"

	"github.com/gin-gonic/gin"
)

// MaxImportSize caps bulk upload spreadsheets.
const MaxImportSize = 10 * 1024 * 1024

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// UserHandler serves the admin user management console.
type UserHandler struct {
	users      service.UserService
	imports    service.ImportService
	uploadsDir string
	log        logging.Logger
}

// NewUserHandler creates a new UserHandler. Bulk uploads are staged in
// uploadsDir and removed after import.
func NewUserHandler(users service.UserService, imports service.ImportService, uploadsDir string, log logging.Logger) *UserHandler {
	return &UserHandler{users: users, imports: imports, uploadsDir: uploadsDir, log: log}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	var filters model.UserFilters
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filters.Search = &search
	}
	if role := c.Query("role"); role != "" {
		filters.Role = &role
	}
	if suspendedParam := c.Query("suspended"); suspendedParam != "" {
		suspended, err := strconv.ParseBool(suspendedParam)
		if err != nil {
			badRequest(c, "Invalid value for 'suspended', use true or false")
			return
		}
		filters.Suspended = &suspended
	}

	users, err := h.users.ListUsers(c.Request.Context(), filters)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve users")
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), c.Param("email"))
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve user")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	user, sent, err := h.users.CreateUser(c.Request.Context(), middleware.AuthEmail(c), req)
	if err != nil {
		respondError(c, h.log, err, "Failed to create user")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user, "invitationSent": sent})
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req model.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	if req.Empty() {
		badRequest(c, "Nothing to update")
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), middleware.AuthEmail(c), c.Param("email"), req)
	if err != nil {
		respondError(c, h.log, err, "Failed to update user")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) suspension(suspended bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.users.SetSuspended(c.Request.Context(), middleware.AuthEmail(c), c.Param("email"), suspended)
		if err != nil {
			respondError(c, h.log, err, "Failed to update suspension")
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req struct {
		NewPassword     string `json:"newPassword" binding:"required"`
		ConfirmPassword string `json:"confirmPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	err := h.users.ForcePasswordReset(c.Request.Context(), middleware.AuthEmail(c), c.Param("email"), req.NewPassword, req.ConfirmPassword)
	if err != nil {
		respondError(c, h.log, err, "Failed to reset password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

func (h *UserHandler) ResendInvitation(c *gin.Context) {
	sent, err := h.users.ResendInvitation(c.Request.Context(), middleware.AuthEmail(c), c.Param("email"))
	if err != nil {
		respondError(c, h.log, err, "Failed to resend invitation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invitation sent", "invitationSent": sent})
}

// BulkUpload imports users from a multipart "file" (.xlsx or .csv).
func (h *UserHandler) BulkUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "Spreadsheet file is required: "+err.Error())
		return
	}
	if fileHeader.Size > MaxImportSize {
		badRequest(c, "File size exceeds limit")
		return
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != ".xlsx" && ext != ".csv" {
		badRequest(c, "Invalid file format. only .xlsx and .csv are allowed")
		return
	}

	path, err := h.stage(fileHeader, ext)
	if err != nil {
		respondError(c, h.log, err, "Failed to store uploaded file")
		return
	}
	defer os.Remove(path)

	result, err := h.imports.ImportFile(c.Request.Context(), middleware.AuthEmail(c), path)
	if err != nil {
		respondError(c, h.log, err, "Failed to import users")
		return
	}
	c.JSON(http.StatusOK, result)
}

// stage copies the upload into a temp file under uploadsDir and returns its
// path. The caller removes it.
func (h *UserHandler) stage(fileHeader *multipart.FileHeader, ext string) (string, error) {
	if err := os.MkdirAll(h.uploadsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(h.uploadsDir, "import-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to save uploaded file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to save uploaded file: %w", err)
	}
	return dst.Name(), nil
}

func (h *UserHandler) Template(c *gin.Context) {
	buf, err := h.imports.Template()
	if err != nil {
		respondError(c, h.log, err, "Failed to build template")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="users_template.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// RegisterUserRoutes registers admin user routes on an already guarded group.
func (h *UserHandler) RegisterUserRoutes(admin *gin.RouterGroup) {
	users := admin.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.POST("", h.CreateUser)
		users.POST("/bulk-upload", h.BulkUpload)
		users.GET("/bulk-upload/template", h.Template)
		users.GET("/:email", h.GetUser)
		users.PATCH("/:email", h.UpdateUser)
		users.POST("/:email/suspend", h.suspension(true))
		users.POST("/:email/unsuspend", h.suspension(false))
		users.PUT("/:email/password", h.ResetPassword)
		users.POST("/:email/resend-invitation", h.ResendInvitation)
	}
}
