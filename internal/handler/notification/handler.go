package notification

import (
	"github.com/gin-gonic/gin"

	"github.com/servease/booking-api/internal/handler"
	notificationService "github.com/servease/booking-api/internal/service/notification"
	"github.com/servease/booking-api/pkg/errors"
	"github.com/servease/booking-api/pkg/httputil"
)

type Handler struct {
	service *notificationService.Service
}

func NewHandler(service *notificationService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/notifications", h.ListNotifications)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	actorID, ok := handler.ActorID(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	notifications, err := h.service.ListForUser(c.Request.Context(), actorID)
	if err != nil {
		httputil.RespondWithError(c, errors.Internal(err))
		return
	}

	httputil.RespondWithSuccess(c, notifications)
}
