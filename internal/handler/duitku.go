package handler

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/tarjuman/order-service/internal/duitku"
	"github.com/tarjuman/order-service/internal/gatewaycache"
	"github.com/tarjuman/order-service/internal/order"
)

// CallbackVerifier checks a gateway callback signature. Nil means the
// gateway credentials were never configured.
type CallbackVerifier interface {
	VerifyCallbackSignature(params duitku.CallbackParams) bool
}

// DuitkuHandler serves the payment method listing and receives payment
// notifications from the gateway.
type DuitkuHandler struct {
	methods  *gatewaycache.MethodsCache
	verifier CallbackVerifier
	orders   order.Service
}

func NewDuitkuHandler(methods *gatewaycache.MethodsCache, verifier CallbackVerifier, orders order.Service) *DuitkuHandler {
	return &DuitkuHandler{
		methods:  methods,
		verifier: verifier,
		orders:   orders,
	}
}

func (h *DuitkuHandler) HandlePaymentMethods(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil || amount <= 0 {
		respondWithError(w, http.StatusBadRequest, "amount must be a positive integer")
		return
	}

	methods, err := h.methods.Methods(r.Context(), amount)
	if err != nil {
		log.Error().Err(err).Int64("amount", amount).Msg("Failed to fetch payment methods")
		respondWithError(w, http.StatusBadGateway, "Failed to fetch payment methods")
		return
	}

	respondWithJSON(w, http.StatusOK, methods)
}

// HandleCallback receives the gateway's payment notification. The gateway
// retries on any non-200, so once the notification is authenticated the
// response is always 200 "OK": internal processing failures are logged and
// reconciled out of band, never surfaced to the gateway.
func (h *DuitkuHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request")
		return
	}

	params := duitku.ParseCallback(r.PostForm)
	if !params.HasRequiredFields() {
		respondWithError(w, http.StatusBadRequest, "Bad Request")
		return
	}

	if h.verifier == nil {
		log.Error().Msg("Callback received but gateway credentials are not configured")
		respondWithError(w, http.StatusInternalServerError, "Server configuration error")
		return
	}

	if !h.verifier.VerifyCallbackSignature(params) {
		log.Warn().Str("merchant_order_id", params.MerchantOrderID).Msg("Callback signature mismatch")
		respondWithError(w, http.StatusBadRequest, "Bad Signature")
		return
	}

	if err := h.orders.ProcessCallback(r.Context(), params); err != nil {
		log.Error().Err(err).Str("merchant_order_id", params.MerchantOrderID).Msg("Failed to process payment callback")
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
