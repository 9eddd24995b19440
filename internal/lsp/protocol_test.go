package lsp

import (
	"runtime"
	"testing"
)

func TestFilePathToURI(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}

	tests := []struct {
		name string
		path string
		want DocumentURI
	}{
		{"absolute path", "/tmp/a.go", "file:///tmp/a.go"},
		{"uri passthrough", "file:///tmp/a.go", "file:///tmp/a.go"},
		{"empty", "", ""},
		{"spaces escaped", "/tmp/my project/a.go", "file:///tmp/my%20project/a.go"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FilePathToURI(tt.path); got != tt.want {
				t.Errorf("FilePathToURI(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestURIToFilePath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}

	tests := []struct {
		name string
		uri  DocumentURI
		want string
	}{
		{"file uri", "file:///tmp/a.go", "/tmp/a.go"},
		{"escaped", "file:///tmp/my%20project/a.go", "/tmp/my project/a.go"},
		{"empty", "", ""},
		{"non-file scheme", "untitled:buffer-1", "untitled:buffer-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := URIToFilePath(tt.uri); got != tt.want {
				t.Errorf("URIToFilePath(%q) = %q, want %q", tt.uri, got, tt.want)
			}
		})
	}
}

func TestURIRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}
	for _, path := range []string{"/tmp/a.go", "/home/user/src/pkg/file_test.go"} {
		if got := URIToFilePath(FilePathToURI(path)); got != path {
			t.Errorf("round trip of %q = %q", path, got)
		}
	}
}

func TestFoldersToWorkspace(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}

	got := FoldersToWorkspace([]string{"/tmp/project", "file:///srv/other"})
	if len(got) != 2 {
		t.Fatalf("got %d folders", len(got))
	}
	if got[0].URI != "file:///tmp/project" || got[0].Name != "project" {
		t.Errorf("folder 0 = %+v", got[0])
	}
	if got[1].URI != "file:///srv/other" || got[1].Name != "other" {
		t.Errorf("folder 1 = %+v", got[1])
	}

	if FoldersToWorkspace(nil) != nil {
		t.Error("no folders should yield nil")
	}
}

func TestSymbolKindString(t *testing.T) {
	tests := []struct {
		kind SymbolKind
		want string
	}{
		{SymbolKindFunction, "Function"},
		{SymbolKindClass, "Class"},
		{SymbolKindTypeParameter, "TypeParameter"},
		{SymbolKind(0), "Unknown"},
		{SymbolKind(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("SymbolKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
