package lsp

import (
	"testing"
	"time"
)

func TestServerStatusString(t *testing.T) {
	tests := []struct {
		status ServerStatus
		want   string
	}{
		{StatusNotStarted, "not started"},
		{StatusRunning, "running"},
		{StatusError, "error"},
		{ServerStatus(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("ServerStatus(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestSupervisorStartMissingBinary(t *testing.T) {
	s := NewSupervisor(nil)
	err := s.Start("definitely-not-a-real-binary-xyz", nil)
	if err == nil {
		t.Fatal("expected an error for a missing binary")
	}
	if s.Status() != StatusError {
		t.Errorf("status = %v, want error", s.Status())
	}
}

func TestSupervisorStartBadCommand(t *testing.T) {
	tests := []struct {
		name    string
		command string
	}{
		{"empty", ""},
		{"unterminated quote", `server --flag "unterminated`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSupervisor(nil)
			if err := s.Start(tt.command, nil); err == nil {
				t.Fatal("expected an error")
			}
			if s.Status() != StatusError {
				t.Errorf("status = %v, want error", s.Status())
			}
		})
	}
}

func TestSupervisorStopWithoutStart(t *testing.T) {
	s := NewSupervisor(nil)
	s.Stop(time.Second) // must not panic
	if s.Status() != StatusNotStarted {
		t.Errorf("status = %v, want not started", s.Status())
	}
	if s.PID() != 0 {
		t.Errorf("PID = %d, want 0", s.PID())
	}
}

func TestSupervisorLifecycle(t *testing.T) {
	s := NewSupervisor(nil)
	if err := s.Start("sleep 30", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if s.Status() != StatusRunning {
		t.Errorf("status = %v, want running", s.Status())
	}
	if s.PID() == 0 {
		t.Error("PID should be set while running")
	}
	stdin, stdout := s.Stdio()
	if stdin == nil || stdout == nil {
		t.Error("stdio pipes should be attached")
	}

	if err := s.Start("sleep 30", nil); err != ErrAlreadyStarted {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}

	s.Stop(5 * time.Second)
	if s.Status() != StatusNotStarted {
		t.Errorf("status after stop = %v, want not started", s.Status())
	}
	if s.PID() != 0 {
		t.Errorf("PID after stop = %d, want 0", s.PID())
	}
}

func TestSupervisorDetectsCrash(t *testing.T) {
	s := NewSupervisor(nil)
	if err := s.Start("true", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.Status() != StatusError {
		if time.Now().After(deadline) {
			t.Fatalf("status = %v, want error after process exit", s.Status())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSupervisorRestart(t *testing.T) {
	s := NewSupervisor(nil)
	if err := s.Start("sleep 30", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first := s.PID()

	if err := s.Restart(5 * time.Second); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	defer s.Stop(5 * time.Second)

	if s.Status() != StatusRunning {
		t.Errorf("status after restart = %v, want running", s.Status())
	}
	if s.PID() == first {
		t.Error("restart should spawn a new process")
	}
}

func TestSupervisorSetError(t *testing.T) {
	s := NewSupervisor(nil)
	if err := s.Start("sleep 30", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(5 * time.Second)

	s.SetError()
	if s.Status() != StatusError {
		t.Errorf("status = %v, want error", s.Status())
	}
}
