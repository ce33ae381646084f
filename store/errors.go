package store

import "errors"

var (
	// ErrNotFound indicates the requested story, slot or catalog item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a malformed request payload.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCorruptStore indicates the persisted content document could not be decoded.
	ErrCorruptStore = errors.New("content store is corrupt")
)
