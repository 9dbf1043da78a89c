package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tarjuman/order-service/internal/order"
)

type OrderFileRequest struct {
	Path      string `json:"path" validate:"required"`
	PageCount int    `json:"page_count" validate:"required,gt=0"`
}

// CreateOrderRequest carries no price fields: totals are always recomputed
// server-side from pages, urgency and promo code.
type CreateOrderRequest struct {
	Files           []OrderFileRequest `json:"files" validate:"required,min=1,dive"`
	UrgencyDays     int                `json:"urgency_days" validate:"required,gt=0"`
	HardCopy        bool               `json:"hard_copy"`
	HardCopyAddress string             `json:"hard_copy_address" validate:"required_if=HardCopy true"`
	PromoCode       string             `json:"promo_code"`
}

type PayOrderRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
	PhoneNumber   string `json:"phone_number"`
}

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *OrderHandler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateOrderRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	p := ProfileFromContext(r.Context())

	input := order.CreateInput{
		UserID:          p.ID,
		UrgencyDays:     requestPayload.UrgencyDays,
		HardCopy:        requestPayload.HardCopy,
		HardCopyAddress: requestPayload.HardCopyAddress,
		PromoCode:       requestPayload.PromoCode,
	}
	for _, f := range requestPayload.Files {
		input.Files = append(input.Files, order.FileInput{Path: f.Path, PageCount: f.PageCount})
	}

	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		var promoErr *order.PromoRejectedError
		if errors.As(err, &promoErr) {
			respondWithJSON(w, http.StatusBadRequest, map[string]string{
				"error":  "Promo code rejected",
				"code":   promoErr.Code,
				"reason": string(promoErr.Reason),
			})
			return
		}

		log.Error().Err(err).Stringer("user_id", p.ID).Msg("Failed to create order")
		respondWithError(w, mapErrorToStatusCode(err), "Failed to create order")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *OrderHandler) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	p := ProfileFromContext(r.Context())

	o, err := h.service.Get(r.Context(), orderID, p.ID, p.IsAdmin())
	if err != nil {
		if !errors.Is(err, order.ErrOrderNotFound) && !errors.Is(err, order.ErrNotOwner) {
			log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to get order")
		}
		respondWithError(w, mapErrorToStatusCode(err), "Failed to get order")
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	p := ProfileFromContext(r.Context())

	orders, err := h.service.ListByUser(r.Context(), p.ID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", p.ID).Msg("Failed to list orders")
		respondWithError(w, http.StatusInternalServerError, "Failed to list orders")
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) HandlePayOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	var requestPayload PayOrderRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	p := ProfileFromContext(r.Context())

	session, err := h.service.InitiatePayment(r.Context(), order.PaymentInput{
		OrderID:       orderID,
		UserID:        p.ID,
		PaymentMethod: requestPayload.PaymentMethod,
		Email:         p.Email,
		CustomerName:  p.FullName,
		PhoneNumber:   requestPayload.PhoneNumber,
	})
	if err != nil {
		statusCode := mapErrorToStatusCode(err)
		if statusCode == http.StatusInternalServerError {
			log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to initiate payment")
			respondWithError(w, statusCode, "Failed to initiate payment")
			return
		}
		respondWithError(w, statusCode, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}
