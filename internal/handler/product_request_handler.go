package handler

import (
	"net/http"

	"minimart/internal/logging"
	"minimart/internal/middleware"
	"minimart/internal/model"
	"minimart/internal/service"

	"github.com/gin-gonic/gin"
)

// ProductRequestHandler serves residents' stock requests.
type ProductRequestHandler struct {
	service service.ProductRequestService
	log     logging.Logger
}

// NewProductRequestHandler creates a new ProductRequestHandler
func NewProductRequestHandler(s service.ProductRequestService, log logging.Logger) *ProductRequestHandler {
	return &ProductRequestHandler{service: s, log: log}
}

func (h *ProductRequestHandler) Create(c *gin.Context) {
	var req model.CreateProductRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	pr, err := h.service.Create(c.Request.Context(), middleware.AuthEmail(c), req)
	if err != nil {
		respondError(c, h.log, err, "Failed to create product request")
		return
	}
	c.JSON(http.StatusCreated, pr)
}

func (h *ProductRequestHandler) ListMine(c *gin.Context) {
	requests, err := h.service.ListMine(c.Request.Context(), middleware.AuthEmail(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve product requests")
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *ProductRequestHandler) ListAll(c *gin.Context) {
	var status *string
	if statusParam := c.Query("status"); statusParam != "" {
		status = &statusParam
	}

	requests, err := h.service.ListAll(c.Request.Context(), status)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve product requests")
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *ProductRequestHandler) SetStatus(c *gin.Context) {
	id, ok := parseID(c, "product request")
	if !ok {
		return
	}
	var req model.UpdateProductRequestStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	pr, err := h.service.SetStatus(c.Request.Context(), middleware.AuthEmail(c), id, req.Status)
	if err != nil {
		respondError(c, h.log, err, "Failed to update product request")
		return
	}
	c.JSON(http.StatusOK, pr)
}

// RegisterProductRequestRoutes registers resident and admin request routes.
func (h *ProductRequestHandler) RegisterProductRequestRoutes(resident, admin *gin.RouterGroup) {
	resident.POST("/product-requests", h.Create)
	resident.GET("/product-requests/mine", h.ListMine)

	admin.GET("/product-requests", h.ListAll)
	admin.PATCH("/product-requests/:id", h.SetStatus)
}
