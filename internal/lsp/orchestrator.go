package lsp

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
)

// orchestrator drives the per-request pipeline: guard on server status, sync
// the document, issue the request, and normalize the response. Failures
// degrade to neutral results so the editor never blocks on a sick server.
type orchestrator struct {
	rpc      rpcCaller
	registry *documentRegistry
	caps     ServerCapabilities
	cfg      Config
	status   func() ServerStatus
	restart  func()
	folders  []string
	logger   *zap.Logger
}

func newOrchestrator(rpc rpcCaller, registry *documentRegistry, caps ServerCapabilities, cfg Config, status func() ServerStatus, restart func()) *orchestrator {
	return &orchestrator{
		rpc:      rpc,
		registry: registry,
		caps:     caps,
		cfg:      cfg,
		status:   status,
		restart:  restart,
		folders:  cfg.Folders,
		logger:   cfg.Logger,
	}
}

func (o *orchestrator) running() bool {
	return o.status() == StatusRunning
}

// syncDocument pushes the current buffer contents to the server, opening the
// document on first sight and sending a full-text change afterwards. The
// empty path stands for an unsaved buffer.
func (o *orchestrator) syncDocument(ctx context.Context, path, code string) error {
	uri := FilePathToURI(path)
	text := ensureTrailingNewline(code)

	if !o.registry.Seen(path) {
		version := o.registry.Bump(path)
		return o.rpc.Notify(ctx, "textDocument/didOpen", DidOpenTextDocumentParams{
			TextDocument: TextDocumentItem{
				URI:        uri,
				LanguageID: o.cfg.LanguageID,
				Version:    version,
				Text:       text,
			},
		})
	}

	version := o.registry.Bump(path)
	return o.rpc.Notify(ctx, "textDocument/didChange", DidChangeTextDocumentParams{
		TextDocument: VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: TextDocumentIdentifier{URI: uri},
			Version:                version,
		},
		ContentChanges: []TextDocumentContentChangeEvent{{Text: text}},
	})
}

// callFailed logs a failed request and reports whether the attempt loop may
// try again after a resync. Some servers reject the first request after an
// open with a response error and answer the identical retry, so protocol and
// transport errors are retryable. A timeout means the server is wedged: it
// triggers a restart and ends the loop.
func (o *orchestrator) callFailed(method string, err error) (retry bool) {
	switch {
	case errors.Is(err, ErrTimeout):
		o.logger.Warn("request timed out, restarting server", zap.String("method", method))
		o.restart()
		return false
	case IsProtocolError(err):
		o.logger.Debug("server rejected request", zap.String("method", method), zap.Error(err))
		return true
	default:
		o.logger.Warn("request failed", zap.String("method", method), zap.Error(err))
		return true
	}
}

// Completion returns ranked completion candidates at the given position.
// Line and column are zero-based, with the column at the start of the
// in-progress prefix. An empty first response is retried once after
// re-syncing the document, since some servers drop requests that race a
// change notification.
func (o *orchestrator) Completion(ctx context.Context, path, code string, line, col int, prefix, triggerChar string) []CompletionCandidate {
	if !o.running() {
		return []CompletionCandidate{}
	}

	params := CompletionParams{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: TextDocumentIdentifier{URI: FilePathToURI(path)},
			Position:     Position{Line: line, Character: col + len(prefix)},
		},
		Context: &CompletionContext{TriggerKind: CompletionTriggerKindInvoked},
	}
	if triggerChar != "" {
		params.Context = &CompletionContext{
			TriggerKind:      CompletionTriggerKindTriggerCharacter,
			TriggerCharacter: triggerChar,
		}
	}

	for attempt := 0; attempt < 2; attempt++ {
		if err := o.syncDocument(ctx, path, code); err != nil {
			if !o.callFailed("textDocument/didChange", err) {
				return []CompletionCandidate{}
			}
			continue
		}

		var raw json.RawMessage
		if err := o.rpc.Call(ctx, "textDocument/completion", params, &raw); err != nil {
			if !o.callFailed("textDocument/completion", err) {
				return []CompletionCandidate{}
			}
			continue
		}

		items, err := decodeCompletionItems(raw)
		if errors.Is(err, ErrEmptyResult) {
			continue
		}
		if err != nil {
			o.logger.Warn("unusable completion response", zap.Error(err))
			return []CompletionCandidate{}
		}
		return normalizeCompletions(items, prefix, o.cfg.MaxCompletions, o.cfg.FuzzyRanking)
	}
	return []CompletionCandidate{}
}

// SignatureHelp returns the active calltip at the given position, or
// ok=false when there is none. Like Completion, an empty first response is
// retried once after a re-sync.
func (o *orchestrator) SignatureHelp(ctx context.Context, path, code string, line, col int) (Signature, bool) {
	if !o.running() {
		return Signature{}, false
	}

	params := SignatureHelpParams{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: TextDocumentIdentifier{URI: FilePathToURI(path)},
			Position:     Position{Line: line, Character: col},
		},
	}

	for attempt := 0; attempt < 2; attempt++ {
		if err := o.syncDocument(ctx, path, code); err != nil {
			if !o.callFailed("textDocument/didChange", err) {
				return Signature{}, false
			}
			continue
		}

		var help *SignatureHelp
		if err := o.rpc.Call(ctx, "textDocument/signatureHelp", params, &help); err != nil {
			if !o.callFailed("textDocument/signatureHelp", err) {
				return Signature{}, false
			}
			continue
		}

		sig, ok := normalizeSignature(help, col)
		if !ok {
			continue
		}
		return sig, true
	}
	return Signature{}, false
}

// DocumentSymbols returns the document's symbols filtered to the given kind
// names. An empty filter admits every kind.
func (o *orchestrator) DocumentSymbols(ctx context.Context, path, code string, kinds []string) []Symbol {
	if !o.running() {
		return []Symbol{}
	}

	if err := o.syncDocument(ctx, path, code); err != nil {
		o.callFailed("textDocument/didChange", err)
		return []Symbol{}
	}

	var raw json.RawMessage
	err := o.rpc.Call(ctx, "textDocument/documentSymbol", DocumentSymbolParams{
		TextDocument: TextDocumentIdentifier{URI: FilePathToURI(path)},
	}, &raw)
	if err != nil {
		o.callFailed("textDocument/documentSymbol", err)
		return []Symbol{}
	}

	allowed := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}

	symbols, err := normalizeSymbols(raw, allowed)
	if err != nil {
		if !errors.Is(err, ErrEmptyResult) {
			o.logger.Warn("unusable document symbol response", zap.Error(err))
		}
		return []Symbol{}
	}
	if symbols == nil {
		symbols = []Symbol{}
	}
	return symbols
}

// SyncForDiagnostics pushes the buffer so the server re-analyzes it. The
// server publishes results asynchronously; the caller polls the
// diagnostics channel for them.
func (o *orchestrator) SyncForDiagnostics(ctx context.Context, path, code string) error {
	if !o.running() {
		return ErrNotRunning
	}
	if err := o.syncDocument(ctx, path, code); err != nil {
		o.callFailed("textDocument/didChange", err)
		return err
	}
	return nil
}

// CloseDocument drops the document from the version registry. The didClose
// notification is gated off by default because some servers stop publishing
// diagnostics for documents they consider closed.
func (o *orchestrator) CloseDocument(ctx context.Context, path string) {
	if !o.registry.Seen(path) {
		return
	}
	o.registry.Forget(path)

	if !o.cfg.SendDidClose || !o.running() {
		return
	}
	err := o.rpc.Notify(ctx, "textDocument/didClose", DidCloseTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: FilePathToURI(path)},
	})
	if err != nil {
		o.logger.Debug("didClose failed", zap.String("path", path), zap.Error(err))
	}
}

// ChangeProjectFolders replaces the workspace folder set. Servers that did
// not declare workspace folder change support get a logged no-op.
func (o *orchestrator) ChangeProjectFolders(ctx context.Context, folders []string) error {
	if !o.running() {
		return ErrNotRunning
	}
	if !o.caps.SupportsWorkspaceFolderChanges() {
		o.logger.Info("server does not accept workspace folder changes")
		return nil
	}

	err := o.rpc.Notify(ctx, "workspace/didChangeWorkspaceFolders", DidChangeWorkspaceFoldersParams{
		Event: WorkspaceFoldersChangeEvent{
			Added:   FoldersToWorkspace(folders),
			Removed: FoldersToWorkspace(o.folders),
		},
	})
	if err != nil {
		return err
	}
	o.folders = folders
	return nil
}
