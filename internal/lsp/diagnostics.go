package lsp

import (
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Severity classifies a diagnostic report for the caller. The scale is
// intentionally coarser than the protocol's four levels: protocol Error
// maps to SeverityError and everything else to SeverityWarning.
type Severity int

const (
	SeverityWarning Severity = 1
	SeverityError   Severity = 2
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Report is a single caller-facing diagnostic.
type Report struct {
	Message   string   `json:"message"`
	Severity  Severity `json:"severity"`
	Line      int      `json:"line"`
	StartChar int      `json:"startChar"`
	EndChar   int      `json:"endChar"`
}

// DiagnosticsChannel buffers diagnostics pushed by the server so the caller
// can poll for them. Servers publish asynchronously after a document sync,
// so the channel starts each analysis round in a pending state; Poll reports
// not-ready until the next publish lands.
type DiagnosticsChannel struct {
	mu      sync.Mutex
	pending bool
	reports []Diagnostic
	logger  *zap.Logger
}

// NewDiagnosticsChannel returns a channel in the pending state.
func NewDiagnosticsChannel(logger *zap.Logger) *DiagnosticsChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiagnosticsChannel{pending: true, logger: logger}
}

// MarkPending discards any buffered diagnostics ahead of a new analysis
// round.
func (d *DiagnosticsChannel) MarkPending() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = true
	d.reports = nil
}

// HandlePublish consumes a textDocument/publishDiagnostics notification.
// Malformed payloads are logged and dropped.
func (d *DiagnosticsChannel) HandlePublish(params json.RawMessage) {
	var pub PublishDiagnosticsParams
	if err := json.Unmarshal(params, &pub); err != nil {
		d.logger.Warn("malformed diagnostics notification", zap.Error(err))
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = false
	d.reports = pub.Diagnostics
}

// Poll returns the buffered diagnostics, or ok=false while a publish is
// still pending. Diagnostics whose message starts with one of the ignore
// prefixes are dropped.
func (d *DiagnosticsChannel) Poll(ignore []string) ([]Report, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending {
		return nil, false
	}

	reports := make([]Report, 0, len(d.reports))
	for _, diag := range d.reports {
		if ignored(diag.Message, ignore) {
			continue
		}
		reports = append(reports, Report{
			Message:   diag.Message,
			Severity:  callerSeverity(diag.Severity),
			Line:      diag.Range.Start.Line,
			StartChar: diag.Range.Start.Character,
			EndChar:   diag.Range.End.Character,
		})
	}
	return reports, true
}

func ignored(message string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(message, p) {
			return true
		}
	}
	return false
}

// callerSeverity collapses the protocol's four severity levels. Only
// protocol errors surface as errors; hints and information read as
// warnings so they still render without alarming the user.
func callerSeverity(s DiagnosticSeverity) Severity {
	if s <= DiagnosticSeverityError {
		return SeverityError
	}
	return SeverityWarning
}
