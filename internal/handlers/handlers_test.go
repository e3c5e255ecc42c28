package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/external"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/models"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/repository"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/service"
)

// stubGateway approves every charge and refund.
type stubGateway struct {
	declineCharges bool
}

func (g *stubGateway) Charge(ctx context.Context, amount decimal.Decimal, token, orderID string) (*external.ChargeResult, error) {
	if g.declineCharges {
		return &external.ChargeResult{Status: "declined"}, nil
	}
	return &external.ChargeResult{Status: "success", TransactionID: "txn-" + orderID}, nil
}

func (g *stubGateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) error {
	return nil
}

type fixture struct {
	router  *gin.Engine
	store   *repository.MemoryStore
	gateway *stubGateway
	matchID int64
	seatIDs []int64
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	gateway := &stubGateway{}
	services := service.NewServices(store, gateway, nil, nil, service.Config{
		DiscountCodes: map[string]int64{"SAVE10": 10},
	})
	h := NewHandlers(services)

	r := gin.New()
	api := r.Group("/api")
	{
		bookings := api.Group("/bookings")
		{
			bookings.POST("/reserve", h.ReserveSeats)
			bookings.POST("/settle", h.SettlePayment)
			bookings.GET("/history", h.BookingHistory)
			bookings.GET("/:id/invoice", h.BookingInvoice)
		}

		payments := api.Group("/payments")
		{
			payments.POST("/refund", h.RefundPayment)
		}

		matches := api.Group("/matches")
		{
			matches.GET("/summary", h.MatchSummaries)
			matches.GET("/:id/availability", h.MatchAvailability)
		}
	}

	ctx := context.Background()
	match := &models.Match{
		HomeTeam:   "Manchester City",
		AwayTeam:   "Tottenham",
		Venue:      "Etihad Stadium",
		MatchDate:  time.Now().AddDate(0, 0, 21),
		TotalSeats: 3,
	}
	require.NoError(t, store.CreateMatch(ctx, match))

	var seatIDs []int64
	for i := 1; i <= 3; i++ {
		seat := &models.Seat{
			MatchID:     match.ID,
			Section:     "Premium",
			SeatNumber:  fmt.Sprintf("P%03d", i),
			Price:       decimal.NewFromInt(100),
			IsAvailable: true,
		}
		require.NoError(t, store.CreateSeat(ctx, seat))
		seatIDs = append(seatIDs, seat.ID)
	}

	return &fixture{router: r, store: store, gateway: gateway, matchID: match.ID, seatIDs: seatIDs}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) reserve(t *testing.T, seatIDs []int64) models.ReserveSeatsResult {
	t.Helper()

	w := f.do(t, http.MethodPost, "/api/bookings/reserve", models.ReserveSeatsRequest{
		UserID:  1,
		SeatIDs: seatIDs,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result models.ReserveSeatsResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func TestReserveSeatsEndpoint(t *testing.T) {
	f := setup(t)

	w := f.do(t, http.MethodPost, "/api/bookings/reserve", models.ReserveSeatsRequest{
		UserID:       1,
		SeatIDs:      f.seatIDs[:2],
		DiscountCode: "SAVE10",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var result models.ReserveSeatsResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.NotZero(t, result.BookingID)
	assert.Equal(t, f.seatIDs[:2], result.ClaimedIDs)
	assert.True(t, decimal.NewFromInt(207).Equal(result.TotalAmount), "got %s", result.TotalAmount)
}

func TestReserveSeatsEndpointConflict(t *testing.T) {
	f := setup(t)

	f.reserve(t, f.seatIDs[:1])

	w := f.do(t, http.MethodPost, "/api/bookings/reserve", models.ReserveSeatsRequest{
		UserID:  2,
		SeatIDs: f.seatIDs[:1],
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	var result models.ReserveSeatsResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Zero(t, result.BookingID)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, models.SeatAlreadyTaken, result.Failed[0].Reason)
}

func TestReserveSeatsEndpointBadRequest(t *testing.T) {
	f := setup(t)

	w := f.do(t, http.MethodPost, "/api/bookings/reserve", gin.H{"user_id": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettlePaymentEndpoint(t *testing.T) {
	f := setup(t)

	booking := f.reserve(t, f.seatIDs[:1])

	w := f.do(t, http.MethodPost, "/api/bookings/settle", models.SettlePaymentRequest{
		BookingID:    booking.BookingID,
		PaymentToken: "tok-1",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var result models.SettlePaymentResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, models.PaymentStatusSuccess, result.Status)
	assert.NotNil(t, result.TransactionID)
}

func TestSettlePaymentEndpointAlreadyPaid(t *testing.T) {
	f := setup(t)

	booking := f.reserve(t, f.seatIDs[:1])
	settle := models.SettlePaymentRequest{BookingID: booking.BookingID, PaymentToken: "tok-1"}

	w := f.do(t, http.MethodPost, "/api/bookings/settle", settle)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/bookings/settle", settle)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSettlePaymentEndpointGatewayDecline(t *testing.T) {
	f := setup(t)
	f.gateway.declineCharges = true

	booking := f.reserve(t, f.seatIDs[:1])

	w := f.do(t, http.MethodPost, "/api/bookings/settle", models.SettlePaymentRequest{
		BookingID:    booking.BookingID,
		PaymentToken: "tok-1",
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "payment_id")
	assert.Equal(t, string(models.PaymentStatusFailed), body["status"])
}

func TestSettlePaymentEndpointUnknownBooking(t *testing.T) {
	f := setup(t)

	w := f.do(t, http.MethodPost, "/api/bookings/settle", models.SettlePaymentRequest{
		BookingID:    42,
		PaymentToken: "tok-1",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefundPaymentEndpoint(t *testing.T) {
	f := setup(t)

	booking := f.reserve(t, f.seatIDs[:2])
	w := f.do(t, http.MethodPost, "/api/bookings/settle", models.SettlePaymentRequest{
		BookingID:    booking.BookingID,
		PaymentToken: "tok-1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var settled models.SettlePaymentResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settled))

	w = f.do(t, http.MethodPost, "/api/payments/refund", models.RefundRequest{PaymentID: settled.PaymentID})
	assert.Equal(t, http.StatusOK, w.Code)

	var result models.RefundResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, booking.BookingID, result.BookingID)
	assert.Equal(t, 2, result.SeatsReleased)
}

func TestRefundPaymentEndpointNotRefundable(t *testing.T) {
	f := setup(t)

	w := f.do(t, http.MethodPost, "/api/payments/refund", models.RefundRequest{PaymentID: 99})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingHistoryEndpoint(t *testing.T) {
	f := setup(t)

	f.reserve(t, f.seatIDs[:2])

	w := f.do(t, http.MethodGet, "/api/bookings/history?user_id=1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var items []models.BookingHistoryItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	assert.Len(t, items, 2)

	w = f.do(t, http.MethodGet, "/api/bookings/history", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingInvoiceEndpoint(t *testing.T) {
	f := setup(t)

	booking := f.reserve(t, f.seatIDs[:1])

	w := f.do(t, http.MethodGet, fmt.Sprintf("/api/bookings/%d/invoice", booking.BookingID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var invoice models.Invoice
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &invoice))
	assert.Equal(t, booking.BookingID, invoice.BookingID)
	assert.Len(t, invoice.Seats, 1)

	w = f.do(t, http.MethodGet, "/api/bookings/999/invoice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMatchAvailabilityEndpoint(t *testing.T) {
	f := setup(t)

	f.reserve(t, f.seatIDs[:1])

	path := fmt.Sprintf("/api/matches/%d/availability?seats=P001,P002,X999", f.matchID)
	w := f.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var result models.CheckAvailabilityResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, []string{"P002"}, result.Available)

	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/matches/%d/availability", f.matchID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "seats parameter is required")

	w = f.do(t, http.MethodGet, "/api/matches/999/availability?seats=P001", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMatchSummariesEndpoint(t *testing.T) {
	f := setup(t)

	w := f.do(t, http.MethodGet, "/api/matches/summary", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var summaries []models.MatchSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, 3, summaries[0].AvailableSeats)
}
