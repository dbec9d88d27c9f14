package models

import "errors"

// Storage sentinels shared by repositories and the services that consume them.
var (
	ErrNotFound  = errors.New("document not found")
	ErrConflict  = errors.New("document version conflict")
	ErrDuplicate = errors.New("duplicate document")
)
