package booking

import (
	stderrors "errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/servease/booking-api/internal/handler"
	"github.com/servease/booking-api/internal/model"
	bookingService "github.com/servease/booking-api/internal/service/booking"
	"github.com/servease/booking-api/internal/service/otp"
	slotService "github.com/servease/booking-api/internal/service/slot"
	"github.com/servease/booking-api/pkg/errors"
	"github.com/servease/booking-api/pkg/httputil"
)

type Handler struct {
	service *bookingService.Service
	slots   *slotService.Service
}

func NewHandler(service *bookingService.Service, slots *slotService.Service) *Handler {
	return &Handler{service: service, slots: slots}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	bookings := r.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.POST("/slot", h.BookSlot)
		bookings.GET("/slots", h.QuerySlots)
		bookings.GET("/customer", h.ListCustomerBookings)
		bookings.GET("/provider", h.ListProviderBookings)
		bookings.GET("/history", h.ListHistory)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/:id/cancel", h.CancelBooking)
		bookings.POST("/:id/otp/resend", h.ResendStartOTP)
		bookings.POST("/:id/otp/verify", h.VerifyStartOTP)
		bookings.POST("/:id/status", h.UpdateJobStatus)
	}
}

func (h *Handler) CreateBooking(c *gin.Context) {
	actorID, ok := handler.ActorID(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	var req model.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation(err.Error(), err))
		return
	}

	booking, err := h.service.Create(c.Request.Context(), actorID, &req)
	if err != nil {
		httputil.RespondWithError(c, mapError(err))
		return
	}

	httputil.RespondWithCreated(c, booking)
}

func (h *Handler) BookSlot(c *gin.Context) {
	actorID, ok := handler.ActorID(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	var req model.SlotBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation(err.Error(), err))
		return
	}

	booking, err := h.service.BookSlot(c.Request.Context(), actorID, &req)
	if err != nil {
		httputil.RespondWithError(c, mapError(err))
		return
	}

	httputil.RespondWithCreated(c, booking)
}

func (h *Handler) QuerySlots(c *gin.Context) {
	serviceID, err := uuid.Parse(c.Query("service_id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid service ID", err))
		return
	}

	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid date", err))
		return
	}

	buckets, err := h.slots.QueryAvailable(c.Request.Context(), serviceID, date, c.Query("city"))
	if err != nil {
		httputil.RespondWithError(c, mapError(err))
		return
	}

	httputil.RespondWithSuccess(c, buckets)
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid booking ID", err))
		return
	}

	booking, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, mapError(err))
		return
	}

	httputil.RespondWithSuccess(c, booking)
}

func (h *Handler) ListCustomerBookings(c *gin.Context) {
	actorID, ok := handler.ActorID(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	bookings, err := h.service.ListForCustomer(c.Request.Context(), actorID)
	if err != nil {
		httputil.RespondWithError(c, mapError(err))
		return
	}

	httputil.RespondWithSuccess(c, bookings)
}

func (h *Handler) ListProviderBookings(c *gin.Context) {
	actorID, ok := handler.ActorID(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	bookings, err := h.service.ListForProvider(c.Request.Context(), actorID)
	if err != nil {
		httputil.RespondWithError(c, mapError(err))
		return
	}

	httputil.RespondWithSuccess(c, bookings)
}

func (h *Handler) ListHistory(c *gin.Context) {
	actorID, ok := handler.ActorID(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	bookings, err := h.service.History(c.Request.Context(), actorID)
	if err != nil {
		httputil.RespondWithError(c, mapError(err))
		return
	}

	httputil.RespondWithSuccess(c, bookings)
}

func (h *Handler) CancelBooking(c *gin.Context) {
	actorID, ok := handler.ActorID(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid booking ID", err))
		return
	}

	if err := h.service.Cancel(c.Request.Context(), id, actorID); err != nil {
		httputil.RespondWithError(c, mapError(err))
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"cancelled": true})
}

func (h *Handler) ResendStartOTP(c *gin.Context) {
	actorID, ok := handler.ActorID(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid booking ID", err))
		return
	}

	if err := h.service.ResendStartOTP(c.Request.Context(), id, actorID); err != nil {
		httputil.RespondWithError(c, mapError(err))
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"resent": true})
}

func (h *Handler) VerifyStartOTP(c *gin.Context) {
	actorID, ok := handler.ActorID(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid booking ID", err))
		return
	}

	var req model.VerifyStartOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation(err.Error(), err))
		return
	}

	if err := h.service.VerifyStartOTP(c.Request.Context(), id, actorID, req.Code); err != nil {
		httputil.RespondWithError(c, mapError(err))
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"started": true})
}

func (h *Handler) UpdateJobStatus(c *gin.Context) {
	actorID, ok := handler.ActorID(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid booking ID", err))
		return
	}

	var req model.UpdateJobStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation(err.Error(), err))
		return
	}

	if err := h.service.UpdateJobStatus(c.Request.Context(), actorID, id, req.Status); err != nil {
		httputil.RespondWithError(c, mapError(err))
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"status": req.Status})
}

// mapError translates service sentinel errors into typed API errors.
func mapError(err error) error {
	switch {
	case stderrors.Is(err, bookingService.ErrBookingNotFound):
		return errors.NotFound("booking", err)
	case stderrors.Is(err, bookingService.ErrServiceNotFound):
		return errors.NotFound("service", err)
	case stderrors.Is(err, bookingService.ErrUserNotFound):
		return errors.NotFound("user", err)
	case stderrors.Is(err, bookingService.ErrPastDateTime),
		stderrors.Is(err, bookingService.ErrCityNotSet),
		stderrors.Is(err, slotService.ErrCityRequired):
		return errors.Validation(err.Error(), err)
	case stderrors.Is(err, bookingService.ErrUnauthorized):
		return errors.Forbidden(err.Error(), err)
	case stderrors.Is(err, bookingService.ErrSlotUnavailable),
		stderrors.Is(err, bookingService.ErrNoProviderAvailable),
		stderrors.Is(err, bookingService.ErrProviderDoubleBooked),
		stderrors.Is(err, bookingService.ErrProviderCityMismatch),
		stderrors.Is(err, bookingService.ErrAlreadyCompleted),
		stderrors.Is(err, bookingService.ErrInvalidStatus),
		stderrors.Is(err, otp.ErrNotIssued),
		stderrors.Is(err, otp.ErrAlreadyVerified),
		stderrors.Is(err, otp.ErrInvalidCode),
		stderrors.Is(err, otp.ErrInvalidState),
		stderrors.Is(err, otp.ErrExpired):
		return errors.Conflict(err.Error(), err)
	default:
		return errors.Internal(err)
	}
}
