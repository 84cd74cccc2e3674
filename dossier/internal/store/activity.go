package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/empreinte/dbopen"
)

// DefaultActivityLimit bounds ListActivities when the caller passes no limit.
const DefaultActivityLimit = 100

// InsertActivity writes one activity row. CreatedAt and Timestamp default to
// now; ExtractedJSON defaults to an empty object.
func (s *Store) InsertActivity(ctx context.Context, a *Activity) error {
	now := time.Now().UnixMilli()
	if a.Timestamp == 0 {
		a.Timestamp = now
	}
	if a.CreatedAt == 0 {
		a.CreatedAt = now
	}
	if a.ExtractedJSON == "" {
		a.ExtractedJSON = "{}"
	}

	_, err := dbopen.Exec(ctx, s.DB,
		`INSERT INTO user_activities (id, user_id, platform, url, title, content,
		extracted_json, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Platform, a.URL, a.Title, a.Content,
		a.ExtractedJSON, a.Timestamp, a.CreatedAt,
	)
	return err
}

// ListActivities returns a user's activities, newest first. platform empty
// means all platforms; limit <= 0 means DefaultActivityLimit.
func (s *Store) ListActivities(ctx context.Context, userID, platform string, limit int) ([]*Activity, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}

	query := `SELECT id, user_id, platform, url, title, content,
		extracted_json, timestamp, created_at
		FROM user_activities WHERE user_id = ?`
	args := []any{userID}
	if platform != "" {
		query += ` AND platform = ?`
		args = append(args, platform)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []*Activity
	for rows.Next() {
		a, err := scanActivityRows(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// CountActivities returns the number of activity rows for a user.
func (s *Store) CountActivities(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_activities WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}

// PlatformStats returns per-platform activity counts for a user, largest first.
func (s *Store) PlatformStats(ctx context.Context, userID string) ([]PlatformStat, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT platform, COUNT(*) AS n FROM user_activities
		WHERE user_id = ? GROUP BY platform ORDER BY n DESC, platform ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []PlatformStat
	for rows.Next() {
		var st PlatformStat
		if err := rows.Scan(&st.Platform, &st.Count); err != nil {
			return nil, fmt.Errorf("scan platform stat: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// LastActivityAt returns the newest activity timestamp for a user, 0 when the
// user has no activities.
func (s *Store) LastActivityAt(ctx context.Context, userID string) (int64, error) {
	var ts sql.NullInt64
	err := s.DB.QueryRowContext(ctx,
		`SELECT MAX(timestamp) FROM user_activities WHERE user_id = ?`, userID).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

func scanActivityRows(rows *sql.Rows) (*Activity, error) {
	var a Activity
	err := rows.Scan(
		&a.ID, &a.UserID, &a.Platform, &a.URL, &a.Title, &a.Content,
		&a.ExtractedJSON, &a.Timestamp, &a.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan activity: %w", err)
	}
	return &a, nil
}
