package errors

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrInvalid   = errors.New("invalid")
	ErrConflict  = errors.New("conflict")
	ErrNoContent = errors.New("no content")
	ErrInternal  = errors.New("internal")
	// ErrStore marks Record Store failures; these abort the whole request
	// instead of being collected as item errors.
	ErrStore = errors.New("record store unavailable")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsStore(err error) bool {
	return errors.Is(err, ErrStore)
}
