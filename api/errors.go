package api

import "errors"

var (
	// ErrAlreadyRunning indicates Run was called on a server that is serving.
	ErrAlreadyRunning = errors.New("api: server already running")
)
