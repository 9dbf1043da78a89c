package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/tarjuman/order-service/internal/notify"
)

const webhookSecretHeader = "X-Webhook-Secret"

type UserSignupWebhookRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name"`
}

// WebhookHandler receives signup notifications from the auth provider and
// sends the welcome email. Requests are authenticated with a shared secret
// header; when no secret is configured the endpoint rejects everything.
type WebhookHandler struct {
	secret   string
	notifier notify.Notifier
	validate *validator.Validate
}

func NewWebhookHandler(secret string, notifier notify.Notifier) *WebhookHandler {
	return &WebhookHandler{
		secret:   secret,
		notifier: notifier,
		validate: validator.New(),
	}
}

func (h *WebhookHandler) HandleUserSignup(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(r.Header.Get(webhookSecretHeader)), []byte(h.secret)) != 1 {
		respondWithError(w, http.StatusUnauthorized, "Invalid webhook secret")
		return
	}

	var requestPayload UserSignupWebhookRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	email := notify.WelcomeEmail(requestPayload.FullName)
	if err := h.notifier.Send(r.Context(), requestPayload.Email, requestPayload.FullName, email.Subject, email.HTML); err != nil {
		log.Error().Err(err).Str("to", requestPayload.Email).Msg("Failed to send welcome email")
		respondWithError(w, http.StatusBadGateway, "Failed to send welcome email")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
