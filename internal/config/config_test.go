package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMergesLaterWins(t *testing.T) {
	dir := t.TempDir()
	user := writeFile(t, dir, "user.json", `{
		"servers": {
			"python": {"command": "pylsp"},
			"go": {"command": "gopls serve"}
		}
	}`)
	project := writeFile(t, dir, "project.json", `{
		"servers": {
			"python": {"command": "pyright-langserver --stdio", "ignore": ["E501"]}
		}
	}`)

	f, err := Load(user, project)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	py, err := f.Lookup("python")
	if err != nil {
		t.Fatal(err)
	}
	if py.Command != "pyright-langserver --stdio" {
		t.Errorf("python command = %q, want project override", py.Command)
	}
	if len(py.Ignore) != 1 || py.Ignore[0] != "E501" {
		t.Errorf("ignore = %v", py.Ignore)
	}

	goDef, err := f.Lookup("go")
	if err != nil {
		t.Fatal(err)
	}
	if goDef.Command != "gopls serve" {
		t.Errorf("go command = %q", goDef.Command)
	}
}

func TestLoadSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	user := writeFile(t, dir, "user.json", `{"servers": {"go": {"command": "gopls"}}}`)

	f, err := Load(filepath.Join(dir, "absent.json"), user)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := f.Lookup("go"); err != nil {
		t.Errorf("Lookup: %v", err)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.json", `{"servers":`)

	if _, err := Load(bad); !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestLookupErrors(t *testing.T) {
	f := File{Servers: map[string]ServerDef{
		"broken": {},
	}}

	if _, err := f.Lookup("rust"); !errors.Is(err, ErrNoServer) {
		t.Errorf("unknown language err = %v, want ErrNoServer", err)
	}
	if _, err := f.Lookup("broken"); !errors.Is(err, ErrInvalid) {
		t.Errorf("empty command err = %v, want ErrInvalid", err)
	}
}

func TestLanguagesSorted(t *testing.T) {
	f := File{Servers: map[string]ServerDef{
		"rust":   {Command: "rust-analyzer"},
		"go":     {Command: "gopls"},
		"python": {Command: "pylsp"},
	}}

	got := f.Languages()
	want := []string{"go", "python", "rust"}
	if len(got) != len(want) {
		t.Fatalf("Languages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Languages = %v, want %v", got, want)
		}
	}
}

func TestRequestTimeout(t *testing.T) {
	d, err := ServerDef{Timeout: "30s"}.RequestTimeout()
	if err != nil || d != 30*time.Second {
		t.Errorf("RequestTimeout = %v, %v", d, err)
	}

	d, err = ServerDef{}.RequestTimeout()
	if err != nil || d != 0 {
		t.Errorf("unset timeout = %v, %v", d, err)
	}

	if _, err = (ServerDef{Timeout: "soon"}).RequestTimeout(); !errors.Is(err, ErrInvalid) {
		t.Errorf("bad timeout err = %v, want ErrInvalid", err)
	}
}

func TestSetServerPreservesUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "servers.json", `{
		"comment": "managed by hand",
		"servers": {
			"go": {"command": "gopls", "experimental": true}
		}
	}`)

	err := SetServer(path, "python", ServerDef{Command: "pylsp", Ignore: []string{"W29"}})
	if err != nil {
		t.Fatalf("SetServer: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, "managed by hand") {
		t.Error("top level unknown key lost")
	}
	if !strings.Contains(text, "experimental") {
		t.Error("unknown server key lost")
	}

	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	py, err := f.Lookup("python")
	if err != nil {
		t.Fatal(err)
	}
	if py.Command != "pylsp" || len(py.Ignore) != 1 {
		t.Errorf("python def = %+v", py)
	}
}

func TestSetServerCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.json")
	if err := SetServer(path, "go", ServerDef{Command: "gopls serve"}); err != nil {
		t.Fatalf("SetServer: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	def, err := f.Lookup("go")
	if err != nil || def.Command != "gopls serve" {
		t.Errorf("def = %+v, err = %v", def, err)
	}
}
