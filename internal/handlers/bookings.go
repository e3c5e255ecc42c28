package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/models"
)

// ReserveSeats - POST /api/bookings/reserve
func (h *Handlers) ReserveSeats(c *gin.Context) {
	var req models.ReserveSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.services.Bookings.ReserveSeats(c.Request.Context(), &req)
	if err != nil {
		slog.Error("Failed to reserve seats", "error", err, "user_id", req.UserID)
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.BookingID == 0 {
		// Nothing claimed: no booking row exists.
		status = http.StatusConflict
	}
	c.JSON(status, result)
}

// SettlePayment - POST /api/bookings/settle
func (h *Handlers) SettlePayment(c *gin.Context) {
	var req models.SettlePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.services.Bookings.SettlePayment(c.Request.Context(), &req)
	if err != nil {
		slog.Error("Failed to settle payment", "error", err, "booking_id", req.BookingID)
		status := statusFor(err)
		if result != nil {
			c.JSON(status, gin.H{"error": err.Error(), "payment_id": result.PaymentID, "status": result.Status})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// RefundPayment - POST /api/payments/refund
func (h *Handlers) RefundPayment(c *gin.Context) {
	var req models.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.services.Bookings.RefundAndRelease(c.Request.Context(), &req)
	if err != nil {
		slog.Error("Failed to refund payment", "error", err, "payment_id", req.PaymentID)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// BookingHistory - GET /api/bookings/history?user_id=N
func (h *Handlers) BookingHistory(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	items, err := h.services.Bookings.UserBookingHistory(c.Request.Context(), userID)
	if err != nil {
		slog.Error("Failed to load booking history", "error", err, "user_id", userID)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// BookingInvoice - GET /api/bookings/:id/invoice
func (h *Handlers) BookingInvoice(c *gin.Context) {
	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || bookingID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	invoice, err := h.services.Bookings.Invoice(c.Request.Context(), bookingID)
	if err != nil {
		slog.Error("Failed to build invoice", "error", err, "booking_id", bookingID)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}
