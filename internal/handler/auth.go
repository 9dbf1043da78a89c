package handler

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tarjuman/order-service/internal/profile"
)

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignInResponse struct {
	Token   string          `json:"token"`
	Profile ProfileResponse `json:"profile"`
}

type ProfileResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toProfileResponse(p *profile.Profile) ProfileResponse {
	return ProfileResponse{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		Role:      p.Role,
		CreatedAt: p.CreatedAt,
	}
}

type AuthHandler struct {
	service  profile.Service
	validate *validator.Validate
}

func NewAuthHandler(service profile.Service) *AuthHandler {
	return &AuthHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var requestPayload SignInRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	token, p, err := h.service.SignIn(r.Context(), requestPayload.Email, requestPayload.Password)
	if err != nil {
		log.Info().Str("email", requestPayload.Email).Msg("Sign in rejected")
		respondWithError(w, mapErrorToStatusCode(err), "Invalid email or password")
		return
	}

	respondWithJSON(w, http.StatusOK, SignInResponse{
		Token:   token,
		Profile: toProfileResponse(p),
	})
}

func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.service.SignOut(r.Context(), token); err != nil {
		log.Error().Err(err).Msg("Failed to sign out")
		respondWithError(w, http.StatusInternalServerError, "Failed to sign out")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}
