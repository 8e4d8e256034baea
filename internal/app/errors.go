package app

import "errors"

var (
	// ErrInvalidRequest reports an inconsistent or incomplete Request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAborted reports that the user declined a confirmation.
	ErrAborted = errors.New("aborted")
)
