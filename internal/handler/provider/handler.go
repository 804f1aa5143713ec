package provider

import (
	stderrors "errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/servease/booking-api/internal/handler"
	"github.com/servease/booking-api/internal/model"
	providerService "github.com/servease/booking-api/internal/service/provider"
	slotService "github.com/servease/booking-api/internal/service/slot"
	"github.com/servease/booking-api/pkg/errors"
	"github.com/servease/booking-api/pkg/httputil"
)

type Handler struct {
	providers *providerService.Service
	slots     *slotService.Service
}

func NewHandler(providers *providerService.Service, slots *slotService.Service) *Handler {
	return &Handler{providers: providers, slots: slots}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	providers := r.Group("/providers")
	{
		providers.POST("/availability-window", h.PublishAvailabilityWindow)
		providers.POST("/availability/toggle", h.ToggleOnline)
		providers.GET("/nearby", h.Nearby)
	}
}

func (h *Handler) PublishAvailabilityWindow(c *gin.Context) {
	actorID, ok := handler.ActorID(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	var req model.AvailabilityWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation(err.Error(), err))
		return
	}

	// Formats are already enforced by binding tags.
	fromDate, _ := time.Parse("2006-01-02", req.FromDate)
	toDate, _ := time.Parse("2006-01-02", req.ToDate)

	if err := h.slots.PublishWindow(c.Request.Context(), actorID, fromDate, toDate, req.StartTime, req.EndTime); err != nil {
		httputil.RespondWithError(c, mapError(err))
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"published": true})
}

func (h *Handler) ToggleOnline(c *gin.Context) {
	actorID, ok := handler.ActorID(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	var req model.ToggleOnlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation(err.Error(), err))
		return
	}

	if err := h.providers.ToggleOnline(c.Request.Context(), actorID, req.Online); err != nil {
		httputil.RespondWithError(c, mapError(err))
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"online": req.Online})
}

func (h *Handler) Nearby(c *gin.Context) {
	actorID, ok := handler.ActorID(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	var serviceID *uuid.UUID
	if raw := c.Query("service_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.RespondWithError(c, errors.Validation("invalid service ID", err))
			return
		}
		serviceID = &id
	}

	providers, err := h.providers.Nearby(c.Request.Context(), actorID, serviceID)
	if err != nil {
		httputil.RespondWithError(c, mapError(err))
		return
	}

	httputil.RespondWithSuccess(c, providers)
}

func mapError(err error) error {
	switch {
	case stderrors.Is(err, providerService.ErrUserNotFound),
		stderrors.Is(err, providerService.ErrNotFound):
		return errors.NotFound("provider", err)
	case stderrors.Is(err, slotService.ErrProviderNotFound):
		return errors.NotFound("provider", err)
	case stderrors.Is(err, providerService.ErrCityNotSet),
		stderrors.Is(err, slotService.ErrInvalidRange):
		return errors.Validation(err.Error(), err)
	case stderrors.Is(err, slotService.ErrNotEligible):
		return errors.Conflict(err.Error(), err)
	default:
		return errors.Internal(err)
	}
}
