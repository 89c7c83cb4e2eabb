package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"hotel-booking-service/internal/models"
	"hotel-booking-service/internal/service"
	"hotel-booking-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	bookings  *service.BookingLifecycle
	payments  *service.PaymentService
	loyalty   *service.LoyaltyLedger
	inventory *service.RoomInventory
	jwtSecret string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	bookings *service.BookingLifecycle,
	payments *service.PaymentService,
	loyalty *service.LoyaltyLedger,
	inventory *service.RoomInventory,
	jwtSecret string,
) *Handler {
	return &Handler{
		bookings:  bookings,
		payments:  payments,
		loyalty:   loyalty,
		inventory: inventory,
		jwtSecret: jwtSecret,
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
	v1.Use(identityMiddleware(h.jwtSecret))
	{
		v1.GET("/hotels", h.listHotels)

		v1.POST("/bookings", h.createBooking)
		v1.GET("/bookings/:id", h.getBooking)
		v1.GET("/bookings", requireUser(), h.listBookings)
		v1.POST("/bookings/:id/payments", h.processPayment)
		v1.GET("/bookings/:id/payments", h.listPayments)
		v1.POST("/bookings/:id/cancel", h.cancelBooking)

		v1.GET("/loyalty/account", requireUser(), h.getLoyaltyAccount)
		v1.GET("/loyalty/transactions", requireUser(), h.listLoyaltyTransactions)
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

// listHotels handles hotel listing
func (h *Handler) listHotels(c *gin.Context) {
	hotels, err := h.inventory.Hotels(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hotels": hotels})
}

// createBooking handles booking creation
func (h *Handler) createBooking(c *gin.Context) {
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"kind":    "validation_error",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	userID, _ := callerIdentity(c)
	resp, err := h.bookings.Create(c.Request.Context(), &req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// getBooking handles get booking by ID
func (h *Handler) getBooking(c *gin.Context) {
	bookingID, ok := pathID(c)
	if !ok {
		return
	}

	userID, role := callerIdentity(c)
	resp, err := h.bookings.GetBooking(c.Request.Context(), bookingID, userID, role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// listBookings handles listing the caller's bookings
func (h *Handler) listBookings(c *gin.Context) {
	userID, _ := callerIdentity(c)

	bookings, err := h.bookings.ListBookings(c.Request.Context(), *userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// processPayment handles payment for a booking
func (h *Handler) processPayment(c *gin.Context) {
	bookingID, ok := pathID(c)
	if !ok {
		return
	}

	var req service.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"kind":    "validation_error",
			"details": err.Error(),
		})
		return
	}

	userID, role := callerIdentity(c)
	resp, err := h.bookings.ProcessPayment(c.Request.Context(), bookingID, &req, userID, role)
	if err != nil {
		if errors.Is(err, models.ErrPaymentDeclined) && resp != nil {
			// The attempt was recorded; report the declined payment alongside
			// the error kind.
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":   err.Error(),
				"kind":    models.ErrorKind(err),
				"payment": resp,
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// listPayments handles listing payment attempts for a booking
func (h *Handler) listPayments(c *gin.Context) {
	bookingID, ok := pathID(c)
	if !ok {
		return
	}

	userID, role := callerIdentity(c)
	if _, err := h.bookings.GetBooking(c.Request.Context(), bookingID, userID, role); err != nil {
		respondError(c, err)
		return
	}

	payments, err := h.payments.Payments(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// cancelBooking handles booking cancellation
func (h *Handler) cancelBooking(c *gin.Context) {
	bookingID, ok := pathID(c)
	if !ok {
		return
	}

	userID, role := callerIdentity(c)
	resp, err := h.bookings.Cancel(c.Request.Context(), bookingID, userID, role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": models.BookingStatusCancelled,
		"refund": resp,
	})
}

// getLoyaltyAccount handles loyalty account lookup
func (h *Handler) getLoyaltyAccount(c *gin.Context) {
	userID, _ := callerIdentity(c)

	account, err := h.loyalty.Account(c.Request.Context(), *userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// listLoyaltyTransactions handles listing a page of ledger entries
func (h *Handler) listLoyaltyTransactions(c *gin.Context) {
	userID, _ := callerIdentity(c)

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	transactions, err := h.loyalty.Transactions(c.Request.Context(), *userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid booking ID",
			"kind":  "validation_error",
		})
		return 0, false
	}
	return id, true
}

// respondError maps domain errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	kind := models.ErrorKind(err)

	status := http.StatusInternalServerError
	switch kind {
	case "validation_error", "invalid_amount":
		status = http.StatusBadRequest
	case "unauthorized":
		status = http.StatusUnauthorized
	case "forbidden":
		status = http.StatusForbidden
	case "not_found":
		status = http.StatusNotFound
	case "booking_conflict", "capacity_exceeded", "already_paid", "booking_cancelled":
		status = http.StatusConflict
	case "insufficient_points":
		status = http.StatusUnprocessableEntity
	case "payment_declined":
		status = http.StatusPaymentRequired
	case "refund_failed":
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{
		"error": err.Error(),
		"kind":  kind,
	})
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
