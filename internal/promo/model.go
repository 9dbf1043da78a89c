package promo

import (
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

// PromoCode is a discount token with a validity window and a usage quota.
// Codes are stored lowercase; Normalize applies the same canonical form to
// user input.
type PromoCode struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Code            string    `json:"code" db:"code"`
	DiscountPercent int       `json:"discount_percent" db:"discount_percent"`
	Active          bool      `json:"active" db:"active"`
	ValidFrom       time.Time `json:"valid_from" db:"valid_from"`
	ValidUntil      time.Time `json:"valid_until" db:"valid_until"`
	CurrentUses     int       `json:"current_uses" db:"current_uses"`
	MaxUses         int       `json:"max_uses" db:"max_uses"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// RejectReason is a user-displayable reason a code cannot be applied.
type RejectReason string

const (
	ReasonNotFound       RejectReason = "not_found"
	ReasonNotYetValid    RejectReason = "not_yet_valid"
	ReasonExpired        RejectReason = "expired"
	ReasonQuotaExhausted RejectReason = "quota_exhausted"
	// ReasonUnavailable covers lookup infrastructure failures, which are
	// absorbed into a rejection rather than surfaced as errors.
	ReasonUnavailable RejectReason = "unavailable"
)

// Normalize trims whitespace and lowercases a user-entered code so lookups
// are case-insensitive.
func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Usable checks a code against its active flag, validity window and usage
// quota at the given instant. A zero reason means the code can be applied.
func Usable(p *PromoCode, now time.Time) RejectReason {
	if p == nil || !p.Active {
		return ReasonNotFound
	}
	if now.Before(p.ValidFrom) {
		return ReasonNotYetValid
	}
	if now.After(p.ValidUntil) {
		return ReasonExpired
	}
	if p.CurrentUses >= p.MaxUses {
		return ReasonQuotaExhausted
	}
	return ""
}
