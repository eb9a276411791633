package handler

import (
	"net/http"

	"minimart/internal/logging"
	"minimart/internal/middleware"
	"minimart/internal/model"
	"minimart/internal/service"

	"github.com/gin-gonic/gin"
)

// ProductHandler serves the catalog.
type ProductHandler struct {
	service service.ProductService
	log     logging.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(s service.ProductService, log logging.Logger) *ProductHandler {
	return &ProductHandler{service: s, log: log}
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	var filters model.ProductFilters
	if categoryParam := c.Query("category"); categoryParam != "" {
		filters.Category = &categoryParam
	}
	if searchParam := c.Query("search"); searchParam != "" {
		filters.Search = &searchParam
	}

	products, err := h.service.ListProducts(c.Request.Context(), filters)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve products")
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "product")
	if !ok {
		return
	}
	product, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve product")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req model.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	product, err := h.service.CreateProduct(c.Request.Context(), middleware.AuthEmail(c), req)
	if err != nil {
		respondError(c, h.log, err, "Failed to create product")
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "product")
	if !ok {
		return
	}
	var req model.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	product, err := h.service.UpdateProduct(c.Request.Context(), middleware.AuthEmail(c), id, req)
	if err != nil {
		respondError(c, h.log, err, "Failed to update product")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "product")
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(c.Request.Context(), middleware.AuthEmail(c), id); err != nil {
		respondError(c, h.log, err, "Failed to delete product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// RegisterProductRoutes registers catalog reads on authed and writes on admin.
func (h *ProductHandler) RegisterProductRoutes(authed, admin *gin.RouterGroup) {
	authed.GET("/products", h.ListProducts)
	authed.GET("/products/:id", h.GetProduct)

	products := admin.Group("/products")
	{
		products.POST("", h.CreateProduct)
		products.PUT("/:id", h.UpdateProduct)
		products.DELETE("/:id", h.DeleteProduct)
	}
}
