package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/nimbus/internal/core"
)

type ProfilesRepo struct {
	db *sql.DB
}

func NewProfilesRepo(db *sql.DB) *ProfilesRepo {
	return &ProfilesRepo{db: db}
}

// GetProfile returns nil (no error) when the user has no stored profile.
func (r *ProfilesRepo) GetProfile(ctx context.Context, userID string) (*core.Profile, error) {
	const query = `SELECT user_id, persona_id, preferred_city, units, response_style, updated_at FROM user_profiles WHERE user_id = ?`

	var p core.Profile
	var city sql.NullString
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.PersonaID, &city, &p.Units, &p.ResponseStyle, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	p.PreferredCity = city.String
	return &p, nil
}

func (r *ProfilesRepo) UpsertProfile(ctx context.Context, profile core.Profile) error {
	updatedAt := profile.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO user_profiles (user_id, persona_id, preferred_city, units, response_style, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id)
		DO UPDATE SET
			persona_id = excluded.persona_id,
			preferred_city = excluded.preferred_city,
			units = excluded.units,
			response_style = excluded.response_style,
			updated_at = excluded.updated_at`

	var city any
	if profile.PreferredCity != "" {
		city = profile.PreferredCity
	}

	_, err := r.db.ExecContext(ctx, query,
		profile.UserID, profile.PersonaID, city, profile.Units, profile.ResponseStyle, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

func (r *ProfilesRepo) ClearPreferredCity(ctx context.Context, userID string) error {
	const query = `UPDATE user_profiles SET preferred_city = NULL, updated_at = ? WHERE user_id = ?`
	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to clear preferred city: %w", err)
	}
	return nil
}

func (r *ProfilesRepo) DeleteProfile(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_profiles WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete profile: %w", err)
	}
	return res.RowsAffected()
}
