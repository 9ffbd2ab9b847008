package http

import (
	"net/http"

	"livecart/internal/core/domain"
	"livecart/internal/core/ports"
	"livecart/pkg/errors"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalogService ports.CatalogService
}

func NewCatalogHandler(catalogService ports.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func (h *CatalogHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/products", h.ListProducts)
		api.GET("/products/:id", h.GetProduct)
	}
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	products, err := h.catalogService.ListProducts(c.Request.Context())
	if err != nil {
		c.Error(errors.NewInternalError("failed to list products"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	productID := domain.ProductID(c.Param("id"))

	product, err := h.catalogService.GetProduct(c.Request.Context(), productID)
	if err != nil {
		if err == domain.ErrProductNotFound {
			c.Error(errors.NewNotFoundError("product"))
			return
		}
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}
