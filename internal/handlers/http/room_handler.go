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

// RoomMetrics receives room lifecycle counts. Implemented by the monitoring
// collector; nil disables it.
type RoomMetrics interface {
	RecordRoomCreated(roomID domain.RoomID)
	RecordRoomEnded(roomID domain.RoomID)
}

type RoomHandler struct {
	roomService ports.RoomService
	authService services.AuthService
	metrics     RoomMetrics
}

func NewRoomHandler(roomService ports.RoomService, authService services.AuthService, metrics RoomMetrics) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
		authService: authService,
		metrics:     metrics,
	}
}

func (h *RoomHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/rooms", h.ListRooms)
		api.GET("/rooms/:id", h.GetRoom)

		api.POST("/rooms", middleware.AuthMiddleware(h.authService), h.CreateRoom)
		// Viewers may join anonymously; a guest id is assigned for them.
		api.POST("/rooms/:id/join", middleware.OptionalAuthMiddleware(h.authService), h.JoinRoom)
		api.POST("/rooms/:id/leave", middleware.OptionalAuthMiddleware(h.authService), h.LeaveRoom)
	}
}

type CreateRoomRequest struct {
	Title string `json:"title" binding:"required,min=1,max=120"`
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError("authentication required"))
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), req.Title, userID)
	if err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	if h.metrics != nil {
		h.metrics.RecordRoomCreated(room.ID)
	}
	c.JSON(http.StatusCreated, gin.H{"room": room})
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))

	room, err := h.roomService.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		if err == domain.ErrRoomNotFound {
			// The error middleware maps domain sentinels.
			c.Error(err)
			return
		}
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.roomService.ListRooms(c.Request.Context())
	if err != nil {
		c.Error(errors.NewInternalError("failed to list rooms"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

type JoinRoomRequest struct {
	Role domain.Role `json:"role" binding:"required"`
}

// JoinRoom is the admission gate every participant passes before opening the
// signaling channel. The response carries the identity to join the channel
// with: the authenticated user id, or a fresh guest id for anonymous viewers.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	roomID := domain.RoomID(c.Param("id"))

	userID, authed := currentUser(c)
	if !authed {
		if req.Role == domain.RoleSeller {
			c.Error(errors.NewUnauthorizedError("sellers must authenticate"))
			return
		}
		userID = domain.GuestID()
	}

	room, err := h.roomService.Join(c.Request.Context(), roomID, userID, req.Role)
	if err != nil {
		switch err {
		case domain.ErrRoomNotFound:
			c.Error(errors.NewNotFoundError("room"))
		case domain.ErrRoomEnded:
			c.Error(errors.NewRoomEndedError(string(roomID)))
		default:
			c.Error(errors.NewForbiddenError(err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room":    room,
		"user_id": userID,
		"role":    req.Role,
	})
}

type LeaveRoomRequest struct {
	UserID domain.UserID `json:"user_id" binding:"required"`
}

func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	var req LeaveRoomRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	roomID := domain.RoomID(c.Param("id"))
	userID := req.UserID
	if authedID, ok := currentUser(c); ok {
		userID = authedID
	}

	if err := h.roomService.Leave(c.Request.Context(), roomID, userID); err != nil {
		if err == domain.ErrRoomNotFound {
			c.Error(err)
			return
		}
		c.Error(errors.NewInternalError(err.Error()))
		return
	}

	if h.metrics != nil {
		room, err := h.roomService.GetRoom(c.Request.Context(), roomID)
		if err == nil && !room.Active() {
			h.metrics.RecordRoomEnded(roomID)
		}
	}
	c.JSON(http.StatusOK, gin.H{"left": true})
}

// currentUser pulls the authenticated id set by the auth middleware.
func currentUser(c *gin.Context) (domain.UserID, bool) {
	val, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := val.(domain.UserID)
	return id, ok
}
