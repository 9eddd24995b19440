package lsp

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	shellwords "github.com/mattn/go-shellwords"
	"go.uber.org/zap"
)

// ServerStatus is the three-valued health state surfaced to the embedding
// editor. The numeric values are part of the external contract.
type ServerStatus int32

const (
	StatusNotStarted ServerStatus = 0
	StatusRunning    ServerStatus = 1
	StatusError      ServerStatus = 2
)

// String returns a human-readable status name.
func (s ServerStatus) String() string {
	switch s {
	case StatusNotStarted:
		return "not started"
	case StatusRunning:
		return "running"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Supervisor owns the language server subprocess. It holds the only writable
// reference to the process handle; no other component may terminate the
// process directly.
//
// Thread Safety: status uses atomic operations for lock-free reads; process
// fields are protected by mu.
type Supervisor struct {
	mu     sync.Mutex
	logger *zap.Logger

	status atomic.Int32

	// Last-used start parameters, replayed by restarts.
	command string
	folders []string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	// exitCh is closed by the monitor goroutine when the process exits.
	exitCh chan struct{}

	// generation distinguishes deliberate teardown from a crash: the monitor
	// only flags Error if its generation is still current.
	generation atomic.Int64
}

// NewSupervisor creates a supervisor with no process attached.
func NewSupervisor(logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Supervisor{logger: logger}
	s.status.Store(int32(StatusNotStarted))
	return s
}

// Start tokenizes command with shell-word splitting rules and spawns it with
// piped standard streams, resolving the binary via PATH rather than a shell.
// On spawn failure the status becomes Error and the error is returned;
// callers gate on Status rather than propagating it to the UI.
func (s *Supervisor) Start(command string, folders []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ServerStatus(s.status.Load()) == StatusRunning {
		return ErrAlreadyStarted
	}

	argv, err := shellwords.Parse(command)
	if err != nil {
		s.status.Store(int32(StatusError))
		return fmt.Errorf("parse server command %q: %w", command, err)
	}
	if len(argv) == 0 {
		s.status.Store(int32(StatusError))
		return fmt.Errorf("empty server command")
	}

	s.logger.Info("starting language server", zap.String("command", command))

	cmd := exec.Command(argv[0], argv[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		s.status.Store(int32(StatusError))
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		s.status.Store(int32(StatusError))
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		s.status.Store(int32(StatusError))
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		s.status.Store(int32(StatusError))
		s.logger.Error("failed to start language server", zap.Error(err))
		return fmt.Errorf("start %q: %w", argv[0], err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.stdout = stdout
	s.stderr = stderr
	s.command = command
	s.folders = folders
	s.exitCh = make(chan struct{})
	gen := s.generation.Add(1)
	s.status.Store(int32(StatusRunning))

	go s.monitor(cmd, s.exitCh, gen)
	go s.drainStderr(stderr)

	return nil
}

// drainStderr keeps the subprocess from blocking on a full stderr pipe and
// surfaces whatever it prints there.
func (s *Supervisor) drainStderr(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		s.logger.Debug("server stderr", zap.String("line", sc.Text()))
	}
}

// monitor waits for the process to exit and flags an unexpected death.
func (s *Supervisor) monitor(cmd *exec.Cmd, exitCh chan struct{}, gen int64) {
	err := cmd.Wait()
	close(exitCh)

	if s.generation.Load() != gen {
		return // deliberate teardown
	}
	if ServerStatus(s.status.Load()) == StatusRunning {
		s.status.Store(int32(StatusError))
		s.logger.Warn("language server exited unexpectedly", zap.Error(err))
	}
}

// Stop terminates the process and waits up to grace for it to exit, logging
// if it would not die. The status is reset to NotStarted so a subsequent
// Start may proceed.
func (s *Supervisor) Stop(grace time.Duration) {
	s.mu.Lock()
	cmd := s.cmd
	exitCh := s.exitCh
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil
	s.stderr = nil
	s.generation.Add(1) // invalidate the monitor
	s.status.Store(int32(StatusNotStarted))
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}

	s.logger.Info("killing language server", zap.Int("pid", cmd.Process.Pid))
	_ = cmd.Process.Kill()

	select {
	case <-exitCh:
	case <-time.After(grace):
		s.logger.Warn("language server did not exit within grace period",
			zap.Duration("grace", grace))
	}
}

// Restart forcibly terminates the current process and re-invokes Start with
// the last-used command and folders.
func (s *Supervisor) Restart(grace time.Duration) error {
	s.mu.Lock()
	command := s.command
	folders := s.folders
	s.mu.Unlock()

	s.Stop(grace)
	return s.Start(command, folders)
}

// Status returns the current server status.
func (s *Supervisor) Status() ServerStatus {
	return ServerStatus(s.status.Load())
}

// SetError demotes the status to Error. Used when the handshake fails on an
// otherwise live process.
func (s *Supervisor) SetError() {
	s.status.Store(int32(StatusError))
}

// PID returns the process id, or 0 when no process is attached.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Stdio returns the pipes bound to the subprocess. Exclusively consumed by
// the RPC session.
func (s *Supervisor) Stdio() (stdin io.WriteCloser, stdout io.ReadCloser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stdin, s.stdout
}
