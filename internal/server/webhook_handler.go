package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"coursecheckout/internal/domain"

	"github.com/gin-gonic/gin"
)

type webhookEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	SessionID   string    `json:"session_id"`
	Status      string    `json:"status"`
	AmountCents int64     `json:"amount_cents"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// handleWebhook is the asynchronous entry point for provider callbacks.
// The raw body is read before any JSON decoding because the signature is
// computed over the exact bytes on the wire. Everything past signature
// verification is acknowledged with 200 so the provider stops redelivering
// payloads this system has durably recorded as rejected-or-applied; only an
// unexpected internal failure returns 500 to request redelivery.
func (s *Server) handleWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if !VerifySignature(s.webhookSecret, body, c.GetHeader(SignatureHeader)) {
		s.metrics.WebhookEvents.WithLabelValues("invalid_signature").Inc()
		s.log.Warn().Msg("webhook rejected: invalid signature")
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidSignature.Error()})
		return
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		s.metrics.WebhookEvents.WithLabelValues("malformed").Inc()
		s.log.Warn().Err(err).Msg("webhook payload is not valid JSON, acknowledging")
		c.JSON(http.StatusOK, gin.H{"received": true, "outcome": "malformed"})
		return
	}

	status := domain.SessionStatus(ev.Status)
	if ev.SessionID == "" || !status.Valid() {
		s.metrics.WebhookEvents.WithLabelValues("malformed").Inc()
		s.log.Warn().
			Str("event_id", ev.ID).
			Str("session_id", ev.SessionID).
			Str("status", ev.Status).
			Msg("webhook payload missing session id or carrying unknown status, acknowledging")
		c.JSON(http.StatusOK, gin.H{"received": true, "outcome": "malformed"})
		return
	}

	outcome, err := s.ledger.ApplyEvent(c.Request.Context(), domain.ProviderEvent{
		EventID:     ev.ID,
		SessionID:   ev.SessionID,
		Status:      status,
		AmountCents: ev.AmountCents,
		OccurredAt:  ev.OccurredAt,
	})
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		// Redelivery cannot create the missing local state, so acknowledge.
		s.metrics.WebhookEvents.WithLabelValues("unknown_session").Inc()
		s.log.Warn().
			Str("event_id", ev.ID).
			Str("session_id", ev.SessionID).
			Msg("webhook for unknown provider session, acknowledging")
		c.JSON(http.StatusOK, gin.H{"received": true, "outcome": "unknown_session"})
		return
	case err != nil:
		s.metrics.WebhookEvents.WithLabelValues("error").Inc()
		s.log.Error().Err(err).
			Str("event_id", ev.ID).
			Str("session_id", ev.SessionID).
			Msg("webhook reconciliation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
		return
	}

	s.metrics.WebhookEvents.WithLabelValues(string(outcome)).Inc()
	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": outcome})
}
