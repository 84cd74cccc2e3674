package dossier

import "errors"

// ErrInvalidInput is returned when a handle fails validation.
var ErrInvalidInput = errors.New("dossier: invalid input")

// ErrNoActivities is returned when profile generation finds no stored
// activities for the user.
var ErrNoActivities = errors.New("dossier: no activities found for user")
