package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/pricetracker/internal/domain/preferences"
	"github.com/geocoder89/pricetracker/internal/observability"
	"github.com/geocoder89/pricetracker/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PreferencesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPreferencesRepo(pool *pgxpool.Pool, prom *observability.Prom) *PreferencesRepo {
	return &PreferencesRepo{pool: pool, prom: prom}
}

func (r *PreferencesRepo) Get(ctx context.Context, userID string) (preferences.Preferences, error) {
	if !utils.IsUUID(userID) {
		return preferences.Preferences{}, preferences.ErrNotFound
	}

	var p preferences.Preferences

	err := r.prom.ObserveDB("preferences.get", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT user_id, currency, locale, timezone, price_alert_emails, weekly_digest, updated_at
			FROM user_preferences
			WHERE user_id = $1`,
			userID,
		).Scan(&p.UserID, &p.Currency, &p.Locale, &p.Timezone, &p.PriceAlertEmails, &p.WeeklyDigest, &p.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return preferences.Preferences{}, preferences.ErrNotFound
		}
		return preferences.Preferences{}, err
	}

	return p, nil
}

func (r *PreferencesRepo) Upsert(ctx context.Context, p preferences.Preferences) (preferences.Preferences, error) {
	var out preferences.Preferences

	err := r.prom.ObserveDB("preferences.upsert", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO user_preferences (user_id, currency, locale, timezone, price_alert_emails, weekly_digest, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (user_id) DO UPDATE
			SET currency = EXCLUDED.currency,
				locale = EXCLUDED.locale,
				timezone = EXCLUDED.timezone,
				price_alert_emails = EXCLUDED.price_alert_emails,
				weekly_digest = EXCLUDED.weekly_digest,
				updated_at = EXCLUDED.updated_at
			RETURNING user_id, currency, locale, timezone, price_alert_emails, weekly_digest, updated_at`,
			p.UserID, p.Currency, p.Locale, p.Timezone, p.PriceAlertEmails, p.WeeklyDigest, p.UpdatedAt,
		).Scan(&out.UserID, &out.Currency, &out.Locale, &out.Timezone, &out.PriceAlertEmails, &out.WeeklyDigest, &out.UpdatedAt)
	})

	if err != nil {
		return preferences.Preferences{}, err
	}

	return out, nil
}
