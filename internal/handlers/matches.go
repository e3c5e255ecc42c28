package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// MatchAvailability - GET /api/matches/:id/availability?seats=A-1,A-2
// Returns the subset of the requested seat numbers currently free. With no
// seats parameter the full free list is checked.
func (h *Handlers) MatchAvailability(c *gin.Context) {
	matchID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || matchID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match id"})
		return
	}

	var seatNumbers []string
	if raw := c.Query("seats"); raw != "" {
		for _, n := range strings.Split(raw, ",") {
			if n = strings.TrimSpace(n); n != "" {
				seatNumbers = append(seatNumbers, n)
			}
		}
	}

	if len(seatNumbers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seats parameter is required"})
		return
	}

	result, err := h.services.Bookings.CheckAvailability(c.Request.Context(), matchID, seatNumbers)
	if err != nil {
		slog.Error("Failed to check availability", "error", err, "match_id", matchID)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// MatchSummaries - GET /api/matches/summary
func (h *Handlers) MatchSummaries(c *gin.Context) {
	summaries, err := h.services.Bookings.MatchSummaries(c.Request.Context())
	if err != nil {
		slog.Error("Failed to load match summaries", "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summaries)
}
