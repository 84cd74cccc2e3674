package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/empreinte/dbopen"
)

// UpsertProfile writes the latest profile snapshot for a user, replacing any
// previous one. created_at survives the replace.
func (s *Store) UpsertProfile(ctx context.Context, userID, profileJSON string) error {
	now := time.Now().UnixMilli()
	if profileJSON == "" {
		profileJSON = "{}"
	}
	_, err := dbopen.Exec(ctx, s.DB,
		`INSERT INTO user_profiles (user_id, profile_json, last_updated, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			profile_json = excluded.profile_json,
			last_updated = excluded.last_updated`,
		userID, profileJSON, now, now,
	)
	return err
}

// GetProfile returns the latest profile snapshot for a user, nil when none
// has been generated.
func (s *Store) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT user_id, profile_json, last_updated, created_at
		FROM user_profiles WHERE user_id = ?`, userID)

	var p Profile
	err := row.Scan(&p.UserID, &p.ProfileJSON, &p.LastUpdated, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	return &p, nil
}
