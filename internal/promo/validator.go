package promo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Status is the validation state for one checkout session:
// idle -> validating -> {applied | rejected}, back to idle on Clear.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusValidating Status = "validating"
	StatusApplied    Status = "applied"
	StatusRejected   Status = "rejected"
)

// Result is the outcome of a validation attempt. Reason is set only when
// Status is rejected.
type Result struct {
	Status          Status       `json:"status"`
	Code            string       `json:"code,omitempty"`
	DiscountPercent int          `json:"discount_percent,omitempty"`
	Reason          RejectReason `json:"reason,omitempty"`
}

// Validator runs promo checks for a single user's checkout session.
// Concurrent attempts are last-write-wins; a new Validate while a code is
// already applied replaces it. Lookup failures never escape as errors: they
// collapse into a rejected result the user can act on.
type Validator struct {
	repo Repository
	now  func() time.Time

	mu    sync.Mutex
	state Result
}

func NewValidator(repo Repository) *Validator {
	return &Validator{
		repo:  repo,
		now:   time.Now,
		state: Result{Status: StatusIdle},
	}
}

func (v *Validator) Validate(ctx context.Context, code string) Result {
	normalized := Normalize(code)

	v.mu.Lock()
	v.state = Result{Status: StatusValidating, Code: normalized}
	v.mu.Unlock()

	result := v.lookup(ctx, normalized)

	v.mu.Lock()
	v.state = result
	v.mu.Unlock()

	return result
}

func (v *Validator) lookup(ctx context.Context, code string) Result {
	p, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrPromoNotFound) {
			return Result{Status: StatusRejected, Code: code, Reason: ReasonNotFound}
		}
		log.Error().Err(err).Str("code", code).Msg("promo: lookup failed")
		return Result{Status: StatusRejected, Code: code, Reason: ReasonUnavailable}
	}

	if reason := Usable(p, v.now()); reason != "" {
		return Result{Status: StatusRejected, Code: code, Reason: reason}
	}

	return Result{Status: StatusApplied, Code: code, DiscountPercent: p.DiscountPercent}
}

// Clear drops any applied or rejected code and returns the session to idle.
func (v *Validator) Clear() {
	v.mu.Lock()
	v.state = Result{Status: StatusIdle}
	v.mu.Unlock()
}

// State returns the current session state.
func (v *Validator) State() Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}
