package core

import "errors"

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrStoreOperationFailed = errors.New("store operation failed")
	ErrTokenGeneration      = errors.New("failed to generate session token")
	ErrEmptySecret          = errors.New("shared secret must not be empty")
)
