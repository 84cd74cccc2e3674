// Package store provides the data access layer for collected user activity
// and generated profile snapshots. It receives an already-opened *sql.DB
// (see dbopen) so callers decide pathing, pragmas, and lifecycle.
package store

import "database/sql"

// Store wraps the activity database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}
