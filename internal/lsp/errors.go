package lsp

import "errors"

// Standard errors returned by the LSP bridge.
var (
	// ErrNotRunning indicates the server session is not in the Running state.
	ErrNotRunning = errors.New("language server not running")

	// ErrAlreadyStarted indicates the session has already been started.
	ErrAlreadyStarted = errors.New("language server already started")

	// ErrShutdown indicates the session has been shut down.
	ErrShutdown = errors.New("language server session shut down")

	// ErrTimeout indicates a request exceeded the per-call timeout.
	ErrTimeout = errors.New("language server request timed out")

	// ErrInvalidResponse indicates a response whose shape could not be
	// normalized.
	ErrInvalidResponse = errors.New("invalid response from language server")

	// ErrEmptyResult indicates the server answered with a null or empty
	// result where content was expected.
	ErrEmptyResult = errors.New("empty result from language server")
)
