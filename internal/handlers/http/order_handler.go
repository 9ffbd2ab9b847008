package http

import (
	"net/http"

	"livecart/internal/core/domain"
	"livecart/internal/core/ports"
	"livecart/internal/core/services"
	"livecart/internal/infrastructure/middleware"
	"livecart/pkg/errors"

	"github.com/gin-gonic/gin"
)

// OrderMetrics counts placed orders. Implemented by the monitoring collector.
type OrderMetrics interface {
	RecordOrderPlaced()
}

type OrderHandler struct {
	orderService ports.OrderService
	authService  services.AuthService
	metrics      OrderMetrics
}

func NewOrderHandler(orderService ports.OrderService, authService services.AuthService, metrics OrderMetrics) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		authService:  authService,
		metrics:      metrics,
	}
}

func (h *OrderHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1", middleware.AuthMiddleware(h.authService))
	{
		api.POST("/orders", h.PlaceOrder)
		api.GET("/orders", h.ListOrders)
	}
}

type PlaceOrderRequest struct {
	ProductID domain.ProductID `json:"product_id" binding:"required"`
	RoomID    domain.RoomID    `json:"room_id,omitempty"`
	Quantity  int              `json:"quantity" binding:"required,min=1,max=99"`
}

func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError("authentication required"))
		return
	}

	order, err := h.orderService.PlaceOrder(c.Request.Context(), userID, req.ProductID, req.RoomID, req.Quantity)
	if err != nil {
		if err == domain.ErrProductNotFound {
			c.Error(errors.NewNotFoundError("product"))
			return
		}
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	if h.metrics != nil {
		h.metrics.RecordOrderPlaced()
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError("authentication required"))
		return
	}

	orders, err := h.orderService.ListOrders(c.Request.Context(), userID)
	if err != nil {
		c.Error(errors.NewInternalError("failed to list orders"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
