package server

import (
	"errors"
	"net/http"

	"coursecheckout/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type checkoutRequest struct {
	SuccessURL string `json:"success_url" binding:"required,url"`
	CancelURL  string `json:"cancel_url" binding:"required,url"`
}

// createCheckout is the checkout trigger: it freezes the cart, opens a
// provider session, and hands back the redirect URL. The buyer's identity
// comes from the upstream auth layer via the X-User-ID header.
func (s *Server) createCheckout(c *gin.Context) {
	userID, err := uuid.Parse(c.GetHeader("X-User-ID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-User-ID header"})
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := s.checkout.CreateSession(c.Request.Context(), userID, req.SuccessURL, req.CancelURL)
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "cart is empty"})
		return
	case errors.Is(err, domain.ErrPaymentInitiation):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
		return
	case err != nil:
		s.log.Error().Err(err).Str("user_id", userID.String()).Msg("checkout failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "checkout failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":    sess.OrderID,
		"session_id":  sess.SessionID,
		"session_url": sess.SessionURL,
	})
}
