package admin

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/servease/booking-api/internal/model"
	adminService "github.com/servease/booking-api/internal/service/admin"
	"github.com/servease/booking-api/pkg/errors"
	"github.com/servease/booking-api/pkg/httputil"
)

type Handler struct {
	service *adminService.Service
}

func NewHandler(service *adminService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/bookings/:id/assign", h.AssignProvider)
}

func (h *Handler) AssignProvider(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid booking ID", err))
		return
	}

	var req model.ManualAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation(err.Error(), err))
		return
	}

	if err := h.service.AssignProvider(c.Request.Context(), bookingID, req.ProviderID); err != nil {
		httputil.RespondWithError(c, mapError(err))
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"assigned": true})
}

func mapError(err error) error {
	switch {
	case stderrors.Is(err, adminService.ErrBookingNotFound):
		return errors.NotFound("booking", err)
	case stderrors.Is(err, adminService.ErrProviderNotFound):
		return errors.NotFound("provider", err)
	case stderrors.Is(err, adminService.ErrNotApproved),
		stderrors.Is(err, adminService.ErrAlreadyAssigned):
		return errors.Conflict(err.Error(), err)
	default:
		return errors.Internal(err)
	}
}
