package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tarjuman/order-service/internal/notify"
	"github.com/tarjuman/order-service/internal/order"
)

type AdminUpdateOrderRequest struct {
	Status            *string `json:"status" validate:"omitempty,oneof=payment_pending processing review completed"`
	PageCountVerified *int    `json:"page_count_verified" validate:"omitempty,gt=0"`
	FinalPrice        *int64  `json:"final_price" validate:"omitempty,gte=0"`
}

type UploadDraftRequest struct {
	FilePath  string `json:"file_path" validate:"required"`
	PageCount int    `json:"page_count" validate:"required,gt=0"`
}

type FinalizeRequest struct {
	FilePath string `json:"file_path" validate:"required"`
}

type TestEmailRequest struct {
	To string `json:"to" validate:"required,email"`
}

// AdminHandler covers the back-office order corrections and the draft and
// final document delivery steps.
type AdminHandler struct {
	service  order.Service
	notifier notify.Notifier
	validate *validator.Validate
}

func NewAdminHandler(service order.Service, notifier notify.Notifier) *AdminHandler {
	return &AdminHandler{
		service:  service,
		notifier: notifier,
		validate: validator.New(),
	}
}

func (h *AdminHandler) HandleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	var requestPayload AdminUpdateOrderRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	update := order.AdminUpdate{
		PageCountVerified: requestPayload.PageCountVerified,
		FinalPrice:        requestPayload.FinalPrice,
	}
	if requestPayload.Status != nil {
		status := order.Status(*requestPayload.Status)
		update.Status = &status
	}

	if err := h.service.AdminUpdate(r.Context(), orderID, update); err != nil {
		if !errors.Is(err, order.ErrOrderNotFound) {
			log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to apply admin update")
		}
		respondWithError(w, mapErrorToStatusCode(err), "Failed to update order")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *AdminHandler) HandleUploadDraft(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	var requestPayload UploadDraftRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	if err := h.service.UploadDraft(r.Context(), orderID, requestPayload.FilePath, requestPayload.PageCount); err != nil {
		if mapErrorToStatusCode(err) == http.StatusInternalServerError {
			log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to upload draft")
		}
		respondWithError(w, mapErrorToStatusCode(err), "Failed to upload draft")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "draft_uploaded"})
}

func (h *AdminHandler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	var requestPayload FinalizeRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	if err := h.service.Finalize(r.Context(), orderID, requestPayload.FilePath); err != nil {
		if mapErrorToStatusCode(err) == http.StatusInternalServerError {
			log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to finalize order")
		}
		respondWithError(w, mapErrorToStatusCode(err), "Failed to finalize order")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "finalized"})
}

func (h *AdminHandler) HandleTestEmail(w http.ResponseWriter, r *http.Request) {
	var requestPayload TestEmailRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	email := notify.WelcomeEmail("Test User")
	if err := h.notifier.Send(r.Context(), requestPayload.To, "Test User", email.Subject, email.HTML); err != nil {
		log.Error().Err(err).Str("to", requestPayload.To).Msg("Failed to send test email")
		respondWithError(w, http.StatusBadGateway, "Failed to send test email")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
