package promo

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrPromoNotFound = errors.New("promo code not found")
	// ErrQuotaExhausted is returned by Redeem when the usage counter has
	// reached the limit between validation and redemption.
	ErrQuotaExhausted = errors.New("promo code usage quota exhausted")
)

type Repository interface {
	FindByCode(ctx context.Context, code string) (*PromoCode, error)
	Redeem(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) FindByCode(ctx context.Context, code string) (*PromoCode, error) {
	query := `
		SELECT id, code, discount_percent, active, valid_from, valid_until, current_uses, max_uses, created_at
		FROM promo_codes
		WHERE lower(code) = $1
	`

	var p PromoCode
	err := r.db.QueryRow(ctx, query, Normalize(code)).Scan(
		&p.ID,
		&p.Code,
		&p.DiscountPercent,
		&p.Active,
		&p.ValidFrom,
		&p.ValidUntil,
		&p.CurrentUses,
		&p.MaxUses,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPromoNotFound
		}
		return nil, fmt.Errorf("repository: failed to select promo code: %w", err)
	}

	return &p, nil
}

// Redeem increments the usage counter, guarded in SQL so concurrent
// redemptions can never push current_uses past max_uses.
func (r *postgresRepository) Redeem(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE promo_codes
		SET current_uses = current_uses + 1
		WHERE id = $1 AND active AND current_uses < max_uses
	`

	cmdTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		log.Error().Err(err).Stringer("promo_id", id).Msg("repository: failed to redeem promo code")
		return fmt.Errorf("repository: failed to redeem promo code %s: %w", id, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrQuotaExhausted
	}

	return nil
}
