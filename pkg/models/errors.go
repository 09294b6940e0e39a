package models

import "errors"

var (
	// ErrNotFound is returned by content and profile stores for missing rows.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when creating a row that is already there.
	ErrAlreadyExists = errors.New("already exists")
)
