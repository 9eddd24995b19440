package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Sentinel errors for definition lookup and parsing.
var (
	ErrNoServer = errors.New("no server defined for language")
	ErrInvalid  = errors.New("invalid configuration")
)

// ServerDef describes how to run a language server for one language.
type ServerDef struct {
	// Command is the server command line ("pylsp --verbose").
	Command string `json:"command"`

	// Folders are default workspace folders. Usually empty; the caller
	// supplies the project folders at session start.
	Folders []string `json:"folders,omitempty"`

	// Ignore lists diagnostic message prefixes to drop.
	Ignore []string `json:"ignore,omitempty"`

	// Timeout overrides the per-request timeout, e.g. "30s".
	Timeout string `json:"timeout,omitempty"`

	// SendDidClose enables didClose notifications for this server.
	SendDidClose bool `json:"sendDidClose,omitempty"`
}

// RequestTimeout parses the Timeout override, or returns 0 when unset.
func (d ServerDef) RequestTimeout() (time.Duration, error) {
	if d.Timeout == "" {
		return 0, nil
	}
	t, err := time.ParseDuration(d.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: timeout %q: %v", ErrInvalid, d.Timeout, err)
	}
	return t, nil
}

// File is a parsed definition file.
type File struct {
	Servers map[string]ServerDef `json:"servers"`
}

// Load reads and merges definition files in order, later files winning per
// language. Missing files are skipped so user and project level paths can
// both be passed unconditionally.
func Load(paths ...string) (File, error) {
	merged := File{Servers: map[string]ServerDef{}}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return File{}, err
		}

		var f File
		if err := json.Unmarshal(data, &f); err != nil {
			return File{}, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
		}
		for lang, def := range f.Servers {
			merged.Servers[lang] = def
		}
	}
	return merged, nil
}

// Lookup returns the definition for a language identifier.
func (f File) Lookup(langID string) (ServerDef, error) {
	def, ok := f.Servers[langID]
	if !ok {
		return ServerDef{}, fmt.Errorf("%w: %s", ErrNoServer, langID)
	}
	if def.Command == "" {
		return ServerDef{}, fmt.Errorf("%w: %s: empty command", ErrInvalid, langID)
	}
	return def, nil
}

// Languages returns the language identifiers with a definition, sorted.
func (f File) Languages() []string {
	langs := make([]string, 0, len(f.Servers))
	for lang := range f.Servers {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// SetServer writes def for langID into the file at path, creating the file
// if needed. Only the affected entry changes; keys this package does not
// know about survive the rewrite.
func SetServer(path, langID string, def ServerDef) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		data = []byte("{}")
	} else if err != nil {
		return err
	}

	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: %s", ErrInvalid, path)
	}

	out, err := sjson.SetBytes(data, "servers."+langID, def)
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	return os.WriteFile(path, out, 0o644)
}
