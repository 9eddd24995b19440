// Package lsp bridges an editor frontend to a single external language
// server process speaking the Language Server Protocol over stdio.
//
// The package owns the server subprocess, the JSON-RPC session bound to its
// standard streams, and the initialize handshake. Editor-level requests
// (completion, signature help, document symbols, diagnostics) are translated
// into LSP calls and the heterogeneous responses of real-world servers are
// normalized into small, uniform result records.
//
// # Architecture
//
//   - Session: public facade with explicit lifecycle (Start/Restart/Shutdown)
//   - Supervisor: subprocess spawn, kill and health status
//   - RpcSession: JSON-RPC transport with a fixed per-call timeout
//   - orchestrator: document sync, retry-with-resync, response normalization
//   - DiagnosticsChannel: asynchronous publishDiagnostics buffering with
//     non-blocking polls
//
// # Quick Start
//
//	cfg := lsp.DefaultConfig()
//	cfg.Command = "pylsp --verbose"
//	cfg.LanguageID = "python"
//	sess := lsp.NewSession(cfg)
//
//	if err := sess.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Shutdown(ctx)
//
//	candidates := sess.Completion(ctx, "/path/to/file.py", code, 10, 5, "pre", "")
//
// # Error Policy
//
// Nothing raised by the server ever propagates across the public operations:
// completions and symbols degrade to empty lists, calltips to "no tooltip",
// diagnostics to "no messages this cycle". The three-valued server status
// (NotStarted, Running, Error) is the only strong signal surfaced outward.
// A request timeout is treated as an unrecoverable hang and triggers a full
// process restart.
//
// # Concurrency
//
// A Session assumes requests are issued sequentially by the embedding host.
// The publishDiagnostics notification arrives on the transport's read loop
// and only writes to the diagnostics buffer, which is lock-protected so it
// is safe while a request is in flight.
package lsp
