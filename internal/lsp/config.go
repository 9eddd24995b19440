package lsp

import (
	"time"

	"go.uber.org/zap"
)

// Config defines how a session starts and talks to its language server.
//
// NewSession fills zero values for RequestTimeout, KillGrace, MaxCompletions
// and Logger from the defaults below, so an explicit MaxCompletions of 0 is
// not representable. Boolean options are taken as-is: a hand-built Config
// starts with FuzzyRanking and SendDidClose off; start from DefaultConfig to
// get the documented defaults.
type Config struct {
	// Command is the server command line, tokenized with shell-word rules
	// but executed without a shell (e.g. "pylsp --verbose").
	Command string

	// LanguageID identifies the language for document sync ("python", "go").
	LanguageID string

	// Folders are the project root folders, as paths or file:// URIs. The
	// first folder becomes the root URI of the handshake.
	Folders []string

	// RequestTimeout bounds every outbound request. A request exceeding it
	// is treated as a server hang and triggers a full restart.
	// Default: 10 seconds.
	RequestTimeout time.Duration

	// KillGrace is how long Restart and Shutdown wait for the process to
	// die after a kill. Default: 5 seconds.
	KillGrace time.Duration

	// MaxCompletions caps the number of completion candidates returned.
	// Default: 10.
	MaxCompletions int

	// FuzzyRanking re-ranks completion candidates by closeness to the typed
	// prefix instead of keeping server order. Default: true.
	FuzzyRanking bool

	// SendDidClose controls whether CloseDocument emits a didClose wire
	// message. Off by default: several servers mishandle didClose for
	// documents they still hold diagnostics for.
	SendDidClose bool

	// Logger receives lifecycle and request logging. Defaults to a nop
	// logger.
	Logger *zap.Logger
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 10 * time.Second,
		KillGrace:      5 * time.Second,
		MaxCompletions: 10,
		FuzzyRanking:   true,
		Logger:         zap.NewNop(),
	}
}

// normalize fills zero values with defaults.
func (c Config) normalize() Config {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.KillGrace == 0 {
		c.KillGrace = 5 * time.Second
	}
	if c.MaxCompletions == 0 {
		c.MaxCompletions = 10
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
