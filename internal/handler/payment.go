package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-booking-engine/internal/service"
)

// SignatureVerifier checks provider signatures on payment notifications.
type SignatureVerifier interface {
	VerifySignature(paymentRef, signature string) error
}

// PaymentHandler receives the provider's payment-succeeded notification.
type PaymentHandler struct {
	confirmer *service.Confirmer
	verifier  SignatureVerifier
}

func NewPaymentHandler(confirmer *service.Confirmer, verifier SignatureVerifier) *PaymentHandler {
	return &PaymentHandler{confirmer: confirmer, verifier: verifier}
}

type confirmPaymentRequest struct {
	PaymentRef        string `json:"payment_ref"`
	ProviderSignature string `json:"provider_signature"`
}

// Confirm handles POST /v1/payments/confirm.  The signature is checked
// before anything is read or written; it may come in the body or in the
// X-Provider-Signature header.
func (h *PaymentHandler) Confirm(c echo.Context) error {
	var body confirmPaymentRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ref := strings.TrimSpace(body.PaymentRef)
	if ref == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_ref is required"})
	}
	sig := body.ProviderSignature
	if sig == "" {
		sig = c.Request().Header.Get("X-Provider-Signature")
	}
	if err := h.verifier.VerifySignature(ref, sig); err != nil {
		return respondError(c, err)
	}

	res, err := h.confirmer.Confirm(c.Request().Context(), ref)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id": res.Booking.ID,
		"status":     res.Booking.Status,
		"replayed":   res.Replayed,
	})
}
