package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finpulse/finpulse/internal/domain"
)

// PreferenceRepo implements domain.PreferenceRepository backed by PostgreSQL.
// The main application owns the schema; this process only reads it.
type PreferenceRepo struct {
	pool *pgxpool.Pool
}

func NewPreferenceRepo(pool *pgxpool.Pool) *PreferenceRepo {
	return &PreferenceRepo{pool: pool}
}

// GetPreferences returns the user's notification preferences. A user with no
// rows gets the zero value (all kinds enabled).
func (r *PreferenceRepo) GetPreferences(ctx context.Context, userID string) (domain.Preferences, error) {
	prefs := domain.Preferences{
		UserID:        userID,
		DisabledKinds: make(map[domain.Kind]bool),
	}

	rows, err := r.pool.Query(ctx,
		`SELECT kind FROM notification_preferences WHERE user_id = $1 AND enabled = false`,
		userID,
	)
	if err != nil {
		return domain.Preferences{}, fmt.Errorf("preference lookup failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			return domain.Preferences{}, fmt.Errorf("preference scan failed: %w", err)
		}
		prefs.DisabledKinds[domain.Kind(kind)] = true
	}
	if err := rows.Err(); err != nil {
		return domain.Preferences{}, fmt.Errorf("preference iteration failed: %w", err)
	}

	return prefs, nil
}
