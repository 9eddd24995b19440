package lsp

import (
	"context"
	"fmt"
)

// clientCapabilities is the capability declaration sent during initialize:
// snippet and markdown support for completion items, the symbol kinds the
// normalizer understands, and relatedInformation for diagnostics.
func clientCapabilities() ClientCapabilities {
	kinds := make([]SymbolKind, 0, len(symbolKindNames))
	for k := SymbolKindFile; k <= SymbolKindTypeParameter; k++ {
		kinds = append(kinds, k)
	}

	return ClientCapabilities{
		Workspace: &WorkspaceClientCapabilities{
			WorkspaceFolders: true,
		},
		TextDocument: &TextDocumentClientCapabilities{
			Completion: &CompletionClientCapabilities{
				CompletionItem: &CompletionItemCapabilities{
					SnippetSupport:      true,
					DocumentationFormat: []MarkupKind{MarkupKindMarkdown, MarkupKindPlainText},
				},
				ContextSupport: true,
			},
			SignatureHelp: &SignatureHelpClientCapabilities{
				SignatureInformation: &SignatureInformationCapabilities{
					DocumentationFormat: []MarkupKind{MarkupKindMarkdown, MarkupKindPlainText},
				},
			},
			DocumentSymbol: &DocumentSymbolClientCapabilities{
				SymbolKind: &SymbolKindCapabilities{ValueSet: kinds},
			},
			PublishDiagnostics: &PublishDiagnosticsClientCapabilities{
				RelatedInformation: true,
			},
		},
	}
}

// negotiate performs the initialize/initialized handshake and returns the
// server's capability set. The root URI derives from the first project
// folder, or stays null when none is configured. An error here makes the
// session unusable until a manual restart.
func negotiate(ctx context.Context, rpc rpcCaller, pid int, folders []string) (ServerCapabilities, error) {
	workspace := FoldersToWorkspace(folders)

	var rootURI *DocumentURI
	if len(workspace) > 0 {
		rootURI = &workspace[0].URI
	}

	params := InitializeParams{
		ProcessID:        pid,
		RootURI:          rootURI,
		Capabilities:     clientCapabilities(),
		Trace:            "off",
		WorkspaceFolders: workspace,
	}

	var result InitializeResult
	if err := rpc.Call(ctx, "initialize", params, &result); err != nil {
		return ServerCapabilities{}, fmt.Errorf("initialize: %w", err)
	}

	if err := rpc.Notify(ctx, "initialized", InitializedParams{}); err != nil {
		return ServerCapabilities{}, fmt.Errorf("initialized notification: %w", err)
	}

	return result.Capabilities, nil
}
