package lsp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ServerInfo is a point-in-time snapshot of the managed server.
type ServerInfo struct {
	Status       ServerStatus       `json:"status"`
	PID          int                `json:"pid"`
	Capabilities ServerCapabilities `json:"capabilities"`
}

// Session owns one language server: the subprocess, the JSON-RPC
// connection over its stdio, and the request pipeline. All methods are safe
// for concurrent use.
type Session struct {
	cfg      Config
	logger   *zap.Logger
	sup      *Supervisor
	registry *documentRegistry
	diags    *DiagnosticsChannel

	mu   sync.Mutex
	rpc  *RpcSession
	orch *orchestrator
	caps ServerCapabilities
}

// NewSession builds a session from cfg. The server is not started until
// Start is called.
func NewSession(cfg Config) *Session {
	cfg = cfg.normalize()
	return &Session{
		cfg:      cfg,
		logger:   cfg.Logger,
		sup:      NewSupervisor(cfg.Logger),
		registry: newDocumentRegistry(),
		diags:    NewDiagnosticsChannel(cfg.Logger),
	}
}

// Start spawns the server process and performs the initialize handshake.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rpc != nil {
		return ErrAlreadyStarted
	}
	if err := s.sup.Start(s.cfg.Command, s.cfg.Folders); err != nil {
		return err
	}
	return s.connect(ctx)
}

// connect wires the JSON-RPC session over the supervisor's pipes and runs
// the handshake. The diagnostics handler is registered before initialize so
// an eager server cannot publish into the void. Callers hold s.mu.
func (s *Session) connect(ctx context.Context) error {
	stdin, stdout := s.sup.Stdio()
	rpc := NewRpcSession(stdin, stdout, s.cfg.RequestTimeout, s.logger)
	rpc.OnNotification("textDocument/publishDiagnostics", s.diags.HandlePublish)

	caps, err := negotiate(ctx, rpc, s.sup.PID(), s.cfg.Folders)
	if err != nil {
		// Transport down first, then the process: a server ignoring stdin
		// EOF would otherwise outlive the session.
		rpc.Close()
		s.sup.Stop(s.cfg.KillGrace)
		s.sup.SetError()
		s.rpc = nil
		s.orch = nil
		return fmt.Errorf("initialize handshake: %w", err)
	}

	s.rpc = rpc
	s.caps = caps
	s.orch = newOrchestrator(rpc, s.registry, caps, s.cfg, s.sup.Status, s.restartOnTimeout)
	s.logger.Info("language server ready",
		zap.Int("pid", s.sup.PID()),
		zap.Strings("triggerCharacters", caps.TriggerCharacters()))
	return nil
}

// Restart tears the server down and brings a fresh one up. Document
// versions reset, so every open document is re-opened on its next sync.
func (s *Session) Restart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restartLocked(ctx)
}

func (s *Session) restartLocked(ctx context.Context) error {
	s.teardownLocked()
	if err := s.sup.Start(s.cfg.Command, s.cfg.Folders); err != nil {
		return err
	}
	return s.connect(ctx)
}

// restartOnTimeout is the orchestrator's recovery hook. It runs on the
// caller's goroutine, which does not hold s.mu.
func (s *Session) restartOnTimeout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.restartLocked(context.Background()); err != nil {
		s.logger.Error("server restart failed", zap.Error(err))
	}
}

// Shutdown stops the server. A polite shutdown request is attempted first
// with a short deadline; the supervisor kills the process either way.
func (s *Session) Shutdown(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rpc != nil && s.sup.Status() == StatusRunning {
		polite, cancel := context.WithTimeout(ctx, time.Second)
		var discard any
		if err := s.rpc.Call(polite, "shutdown", nil, &discard); err == nil {
			s.rpc.Notify(polite, "exit", nil)
		}
		cancel()
	}
	s.teardownLocked()
}

func (s *Session) teardownLocked() {
	if s.rpc != nil {
		s.rpc.Close()
		s.rpc = nil
	}
	s.orch = nil
	s.sup.Stop(s.cfg.KillGrace)
	s.registry.Reset()
	s.diags.MarkPending()
}

// Status reports the server's lifecycle state.
func (s *Session) Status() ServerStatus {
	return s.sup.Status()
}

// TriggerCharacters returns the completion trigger characters the server
// declared during the handshake.
func (s *Session) TriggerCharacters() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps.TriggerCharacters()
}

// Info snapshots the server's status, PID and negotiated capabilities.
func (s *Session) Info() ServerInfo {
	s.mu.Lock()
	caps := s.caps
	s.mu.Unlock()
	return ServerInfo{
		Status:       s.sup.Status(),
		PID:          s.sup.PID(),
		Capabilities: caps,
	}
}

func (s *Session) orchestrator() *orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orch
}

// Completion returns completion candidates at the given zero-based
// position, with col at the start of the in-progress prefix. Without a
// running server the result is empty.
func (s *Session) Completion(ctx context.Context, path, code string, line, col int, prefix, triggerChar string) []CompletionCandidate {
	o := s.orchestrator()
	if o == nil {
		return []CompletionCandidate{}
	}
	return o.Completion(ctx, path, code, line, col, prefix, triggerChar)
}

// SignatureHelp returns the active calltip at the given position, or
// ok=false when there is none.
func (s *Session) SignatureHelp(ctx context.Context, path, code string, line, col int) (Signature, bool) {
	o := s.orchestrator()
	if o == nil {
		return Signature{}, false
	}
	return o.SignatureHelp(ctx, path, code, line, col)
}

// DocumentSymbols returns the document's symbols filtered to the given kind
// names. An empty filter admits every kind.
func (s *Session) DocumentSymbols(ctx context.Context, path, code string, kinds []string) []Symbol {
	o := s.orchestrator()
	if o == nil {
		return []Symbol{}
	}
	return o.DocumentSymbols(ctx, path, code, kinds)
}

// RunDiagnostics pushes the buffer to the server for analysis and returns a
// server snapshot. Results arrive asynchronously through PollDiagnostics.
func (s *Session) RunDiagnostics(ctx context.Context, path, code string) ServerInfo {
	s.diags.MarkPending()
	if o := s.orchestrator(); o != nil {
		if err := o.SyncForDiagnostics(ctx, path, code); err != nil {
			s.logger.Debug("diagnostics sync failed", zap.String("path", path), zap.Error(err))
		}
	}
	return s.Info()
}

// PollDiagnostics returns the latest published diagnostics, or ok=false
// while the server is still analyzing. Reports whose message starts with
// one of the ignore prefixes are dropped.
func (s *Session) PollDiagnostics(ignore []string) ([]Report, bool) {
	return s.diags.Poll(ignore)
}

// CloseDocument forgets the document's sync state.
func (s *Session) CloseDocument(ctx context.Context, path string) {
	if o := s.orchestrator(); o != nil {
		o.CloseDocument(ctx, path)
		return
	}
	s.registry.Forget(path)
}

// ChangeProjectFolders replaces the workspace folder set for the running
// server and for future restarts.
func (s *Session) ChangeProjectFolders(ctx context.Context, folders []string) error {
	o := s.orchestrator()
	if o == nil {
		return ErrNotRunning
	}
	if err := o.ChangeProjectFolders(ctx, folders); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg.Folders = folders
	s.mu.Unlock()
	return nil
}
