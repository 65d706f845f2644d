package server

import (
	"errors"
	"net/http"

	"coursecheckout/internal/domain"

	"github.com/gin-gonic/gin"
)

// paymentStatus is the post-redirect fallback: it re-reconciles against the
// provider through the same ledger path as webhooks, so a delayed webhook
// shows "processing" until the poll resolves true state.
func (s *Server) paymentStatus(c *gin.Context) {
	s.reconcileSession(c, false)
}

// forceReconcile is the operator escape hatch for stuck webhook delivery.
// Same idempotent ledger path, never a separate direct-enrollment route.
func (s *Server) forceReconcile(c *gin.Context) {
	s.reconcileSession(c, true)
}

func (s *Server) reconcileSession(c *gin.Context, forced bool) {
	sessionID := c.Param("sessionID")

	if forced {
		s.log.Info().Str("session_id", sessionID).Msg("forced reconciliation requested")
	}

	order, err := s.checkout.ReconcileSession(c.Request.Context(), sessionID)
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	case err != nil:
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("status reconciliation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status lookup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":    order.ID,
		"session_id":  sessionID,
		"status":      order.Status,
		"total_cents": order.TotalCents,
		"paid_at":     order.PaidAt,
	})
}
