package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/tarjuman/order-service/internal/promo"
)

type ValidatePromoRequest struct {
	Code string `json:"code" validate:"required"`
}

// PromoHandler exposes checkout-time promo validation. Validation is
// advisory: the authoritative check and redemption happen again when the
// order is created.
type PromoHandler struct {
	repo     promo.Repository
	validate *validator.Validate
}

func NewPromoHandler(repo promo.Repository) *PromoHandler {
	return &PromoHandler{
		repo:     repo,
		validate: validator.New(),
	}
}

func (h *PromoHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var requestPayload ValidatePromoRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	result := promo.NewValidator(h.repo).Validate(r.Context(), requestPayload.Code)

	respondWithJSON(w, http.StatusOK, result)
}
