package promo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/tarjuman/order-service/internal/promo"
)

type mockPromoRepository struct {
	findByCodeFunc func(ctx context.Context, code string) (*promo.PromoCode, error)
	redeemFunc     func(ctx context.Context, id uuid.UUID) error
}

func (m *mockPromoRepository) FindByCode(ctx context.Context, code string) (*promo.PromoCode, error) {
	return m.findByCodeFunc(ctx, code)
}

func (m *mockPromoRepository) Redeem(ctx context.Context, id uuid.UUID) error {
	if m.redeemFunc != nil {
		return m.redeemFunc(ctx, id)
	}
	return nil
}

func activeCode(now time.Time) *promo.PromoCode {
	return &promo.PromoCode{
		ID:              uuid.Must(uuid.NewV4()),
		Code:            "save10",
		DiscountPercent: 10,
		Active:          true,
		ValidFrom:       now.Add(-24 * time.Hour),
		ValidUntil:      now.Add(24 * time.Hour),
		CurrentUses:     0,
		MaxUses:         5,
	}
}

func TestUsable(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(p *promo.PromoCode)
		want   promo.RejectReason
	}{
		{
			name:   "valid_code",
			mutate: func(p *promo.PromoCode) {},
			want:   "",
		},
		{
			name:   "inactive",
			mutate: func(p *promo.PromoCode) { p.Active = false },
			want:   promo.ReasonNotFound,
		},
		{
			name:   "not_yet_valid",
			mutate: func(p *promo.PromoCode) { p.ValidFrom = now.Add(time.Hour) },
			want:   promo.ReasonNotYetValid,
		},
		{
			name:   "expired",
			mutate: func(p *promo.PromoCode) { p.ValidUntil = now.Add(-time.Hour) },
			want:   promo.ReasonExpired,
		},
		{
			name:   "quota_exhausted",
			mutate: func(p *promo.PromoCode) { p.CurrentUses = 5 },
			want:   promo.ReasonQuotaExhausted,
		},
		{
			name:   "last_use_still_allowed",
			mutate: func(p *promo.PromoCode) { p.CurrentUses = 4 },
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := activeCode(now)
			tt.mutate(p)
			assert.Equal(t, tt.want, promo.Usable(p, now))
		})
	}

	assert.Equal(t, promo.ReasonNotFound, promo.Usable(nil, now))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "save10", promo.Normalize("SAVE10"))
	assert.Equal(t, "save10", promo.Normalize("  save10  "))
	assert.Equal(t, "save10", promo.Normalize("SaVe10"))
}

func TestValidatorApplied(t *testing.T) {
	now := time.Now()
	repo := &mockPromoRepository{
		findByCodeFunc: func(ctx context.Context, code string) (*promo.PromoCode, error) {
			// The validator must pass the normalized form to the repository.
			assert.Equal(t, "save10", code)
			return activeCode(now), nil
		},
	}

	v := promo.NewValidator(repo)
	assert.Equal(t, promo.StatusIdle, v.State().Status)

	result := v.Validate(context.Background(), "SAVE10")
	assert.Equal(t, promo.StatusApplied, result.Status)
	assert.Equal(t, 10, result.DiscountPercent)
	assert.Equal(t, result, v.State())
}

func TestValidatorRejections(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		findByCode func(ctx context.Context, code string) (*promo.PromoCode, error)
		wantReason promo.RejectReason
	}{
		{
			name: "unknown_code",
			findByCode: func(ctx context.Context, code string) (*promo.PromoCode, error) {
				return nil, promo.ErrPromoNotFound
			},
			wantReason: promo.ReasonNotFound,
		},
		{
			name: "quota_exhausted",
			findByCode: func(ctx context.Context, code string) (*promo.PromoCode, error) {
				p := activeCode(now)
				p.CurrentUses = p.MaxUses
				return p, nil
			},
			wantReason: promo.ReasonQuotaExhausted,
		},
		{
			name: "lookup_failure_absorbed",
			findByCode: func(ctx context.Context, code string) (*promo.PromoCode, error) {
				return nil, errors.New("connection refused")
			},
			wantReason: promo.ReasonUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := promo.NewValidator(&mockPromoRepository{findByCodeFunc: tt.findByCode})
			result := v.Validate(context.Background(), "save10")
			assert.Equal(t, promo.StatusRejected, result.Status)
			assert.Equal(t, tt.wantReason, result.Reason)
		})
	}
}

func TestValidatorReplaceAndClear(t *testing.T) {
	now := time.Now()
	v := promo.NewValidator(&mockPromoRepository{
		findByCodeFunc: func(ctx context.Context, code string) (*promo.PromoCode, error) {
			p := activeCode(now)
			p.Code = code
			if code == "save20" {
				p.DiscountPercent = 20
			}
			return p, nil
		},
	})

	first := v.Validate(context.Background(), "save10")
	assert.Equal(t, 10, first.DiscountPercent)

	// Re-validating while applied replaces the prior promo.
	second := v.Validate(context.Background(), "save20")
	assert.Equal(t, promo.StatusApplied, second.Status)
	assert.Equal(t, 20, second.DiscountPercent)
	assert.Equal(t, "save20", v.State().Code)

	v.Clear()
	assert.Equal(t, promo.StatusIdle, v.State().Status)
	assert.Empty(t, v.State().Code)
}
