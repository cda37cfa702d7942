package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrDuplicatePostID   = errors.New("duplicate post id")
	ErrInvalidRepository = errors.New("invalid repository")
)
