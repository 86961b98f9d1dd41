package api

import (
	"net/http"
	"strconv"
	"time"

	"travel-booking-service/internal/models"
	"travel-booking-service/internal/service"
	"travel-booking-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	bookings *service.BookingService
	payments *service.PaymentService
	flights  *service.InventoryService
	hotels   *service.InventoryService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	bookings *service.BookingService,
	payments *service.PaymentService,
	flights *service.InventoryService,
	hotels *service.InventoryService,
) *Handler {
	return &Handler{
		bookings: bookings,
		payments: payments,
		flights:  flights,
		hotels:   hotels,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/bookings", h.createBooking)
		v1.GET("/bookings", h.listBookings)
		v1.GET("/bookings/:id", h.getBooking)
		v1.GET("/bookings/user/:userId", h.listBookingsByUser)
		v1.PUT("/bookings/:id/status", h.updateBookingStatus)
		v1.DELETE("/bookings/:id", h.cancelBooking)

		v1.POST("/payments", h.processPayment)
		v1.GET("/payments/:id", h.getPayment)
		v1.GET("/payments/booking/:bookingId", h.getPaymentByBooking)
		v1.GET("/payments/user/:userId", h.listPaymentsByUser)

		v1.GET("/flights", h.inventoryList(h.flights))
		v1.GET("/flights/:id", h.inventoryGet(h.flights))
		v1.GET("/flights/:id/availability", h.inventoryAvailability(h.flights))
		v1.POST("/flights/:id/reserve", h.inventoryReserve(h.flights))
		v1.POST("/flights/:id/release", h.inventoryRelease(h.flights))

		v1.GET("/hotels", h.inventoryList(h.hotels))
		v1.GET("/hotels/:id", h.inventoryGet(h.hotels))
		v1.GET("/hotels/:id/availability", h.inventoryAvailability(h.hotels))
		v1.POST("/hotels/:id/reserve", h.inventoryReserve(h.hotels))
		v1.POST("/hotels/:id/release", h.inventoryRelease(h.hotels))
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createBookingRequest is the wire form of a booking request. The travel
// date accepts a plain date or a full RFC 3339 timestamp.
type createBookingRequest struct {
	UserID         int64  `json:"user_id" binding:"required"`
	FlightID       int64  `json:"flight_id" binding:"required"`
	HotelID        int64  `json:"hotel_id" binding:"required"`
	TravelDate     string `json:"travel_date" binding:"required"`
	IdempotencyKey string `json:"idempotency_key"`
}

func parseTravelDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// createBooking handles booking creation
func (h *Handler) createBooking(c *gin.Context) {
	var req createBookingRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	travelDate, err := parseTravelDate(req.TravelDate)
	if err != nil {
		respond(c, http.StatusBadRequest, "invalid travel_date, expected YYYY-MM-DD or RFC 3339", nil)
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	booking, err := h.bookings.CreateBooking(c.Request.Context(), &service.CreateBookingRequest{
		UserID:         req.UserID,
		FlightID:       req.FlightID,
		HotelID:        req.HotelID,
		TravelDate:     travelDate,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "booking created", booking)
}

// getBooking handles get booking by ID
func (h *Handler) getBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	booking, err := h.bookings.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "booking retrieved", booking)
}

// listBookings handles listing all bookings
func (h *Handler) listBookings(c *gin.Context) {
	bookings, err := h.bookings.ListBookings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "bookings retrieved", bookings)
}

// listBookingsByUser handles listing a user's bookings
func (h *Handler) listBookingsByUser(c *gin.Context) {
	userID, ok := paramID(c, "userId")
	if !ok {
		return
	}

	bookings, err := h.bookings.ListBookingsByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "bookings retrieved", bookings)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// updateBookingStatus handles explicit status transitions
func (h *Handler) updateBookingStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	status, err := models.ParseBookingStatus(req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	booking, err := h.bookings.UpdateStatus(c.Request.Context(), id, status, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "booking status updated", booking)
}

// cancelBooking handles booking cancellation
func (h *Handler) cancelBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	booking, err := h.bookings.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "booking cancelled", booking)
}

// processPayment handles a client-initiated payment attempt
func (h *Handler) processPayment(c *gin.Context) {
	var req service.ProcessPaymentRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	payment, err := h.payments.Process(c.Request.Context(), &req)
	if err != nil {
		// A declined payment still returns its record so the client can
		// see the transaction id and retry.
		if payment != nil {
			respond(c, http.StatusPaymentRequired, "payment declined", payment)
			return
		}
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "payment processed", payment)
}

// getPayment handles get payment by ID
func (h *Handler) getPayment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	payment, err := h.payments.GetPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "payment retrieved", payment)
}

// getPaymentByBooking handles get latest payment for a booking
func (h *Handler) getPaymentByBooking(c *gin.Context) {
	bookingID, ok := paramID(c, "bookingId")
	if !ok {
		return
	}

	payment, err := h.payments.GetPaymentByBooking(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "payment retrieved", payment)
}

// listPaymentsByUser handles listing a user's payments
func (h *Handler) listPaymentsByUser(c *gin.Context) {
	userID, ok := paramID(c, "userId")
	if !ok {
		return
	}

	payments, err := h.payments.ListPaymentsByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "payments retrieved", payments)
}

// inventoryList lists all items of one inventory kind
func (h *Handler) inventoryList(inv *service.InventoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := inv.List(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, "inventory retrieved", items)
	}
}

// inventoryGet retrieves one item with its price and unit counts
func (h *Handler) inventoryGet(inv *service.InventoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		item, err := inv.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, "item retrieved", item)
	}
}

// inventoryAvailability reports whether at least one unit is left
func (h *Handler) inventoryAvailability(inv *service.InventoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		available, err := inv.CheckAvailable(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, "availability retrieved", gin.H{
			"id":        id,
			"available": available,
		})
	}
}

// inventoryReserve takes one unit, for operator use
func (h *Handler) inventoryReserve(inv *service.InventoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		if err := inv.ReserveOne(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, "unit reserved", gin.H{"id": id})
	}
}

// inventoryRelease returns one unit, for operator use
func (h *Handler) inventoryRelease(inv *service.InventoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		if err := inv.ReleaseOne(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, "unit released", gin.H{"id": id})
	}
}

// paramID parses a positive int64 path parameter, writing the error
// response itself when the value is malformed.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respond(c, http.StatusBadRequest, "invalid "+name+" parameter", nil)
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
