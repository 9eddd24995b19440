// Package main is a command line smoke checker for language server
// configurations. It starts the configured server, prints the negotiated
// session details, and optionally runs diagnostics over the given files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dshills/lspbridge/internal/config"
	"github.com/dshills/lspbridge/internal/lsp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const diagnosticsWait = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, files, ignore := parseFlags()

	session := lsp.NewSession(cfg)
	defer session.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()

	if err := session.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start server: %v\n", err)
		return 1
	}

	info := session.Info()
	fmt.Printf("status: %s\n", info.Status)
	fmt.Printf("pid: %d\n", info.PID)
	fmt.Printf("trigger characters: %s\n", strings.Join(session.TriggerCharacters(), " "))

	failed := 0
	for _, file := range files {
		if err := checkFile(ctx, session, file, ignore); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", file, err)
			failed++
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}

// checkFile runs diagnostics over one file and prints the reports.
func checkFile(ctx context.Context, session *lsp.Session, path string, ignore []string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	code, err := os.ReadFile(abs)
	if err != nil {
		return err
	}

	session.RunDiagnostics(ctx, abs, string(code))

	deadline := time.Now().Add(diagnosticsWait)
	for {
		if reports, ok := session.PollDiagnostics(ignore); ok {
			fmt.Printf("%s: %d diagnostics\n", path, len(reports))
			for _, r := range reports {
				fmt.Printf("  %s %d:%d-%d %s\n", r.Severity, r.Line, r.StartChar, r.EndChar, r.Message)
			}
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no diagnostics within %s", diagnosticsWait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func parseFlags() (lsp.Config, []string, []string) {
	cfg := lsp.DefaultConfig()

	var configPath string
	var folders string
	var ignore string
	var logLevel string
	var saveServer bool
	var showVersion bool
	var showHelp bool

	flag.StringVar(&cfg.Command, "command", "", "Language server command line (overrides the config file)")
	flag.StringVar(&cfg.LanguageID, "langid", "", "Language identifier sent to the server (e.g. python, go)")
	flag.StringVar(&configPath, "config", defaultConfigPath(), "Server definition file")
	flag.StringVar(&folders, "folders", "", "Comma separated workspace folders")
	flag.StringVar(&ignore, "ignore", "", "Comma separated diagnostic message prefixes to drop")
	flag.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "Per-request timeout")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flag.BoolVar(&saveServer, "save", false, "Persist -command and options for -langid to the config file, then exit")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "lspbridge - language server session smoke checker\n\n")
		fmt.Fprintf(os.Stderr, "Usage: lspbridge -command <cmd> -langid <id> [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  lspbridge -command 'gopls serve' -langid go main.go\n")
		fmt.Fprintf(os.Stderr, "  lspbridge -command pylsp -langid python -ignore 'E501' app.py\n")
		fmt.Fprintf(os.Stderr, "  lspbridge -langid python app.py     Resolve the server from the config file\n")
		fmt.Fprintf(os.Stderr, "  lspbridge -langid go -command 'gopls serve' -save\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("lspbridge %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if cfg.LanguageID == "" {
		fmt.Fprintln(os.Stderr, "Error: -langid is required")
		flag.Usage()
		os.Exit(1)
	}

	if saveServer {
		if cfg.Command == "" {
			fmt.Fprintln(os.Stderr, "Error: -save requires -command")
			os.Exit(1)
		}
		def := config.ServerDef{
			Command: cfg.Command,
			Folders: splitList(folders),
			Ignore:  splitList(ignore),
		}
		if cfg.RequestTimeout != lsp.DefaultConfig().RequestTimeout {
			def.Timeout = cfg.RequestTimeout.String()
		}
		if err := config.SetServer(configPath, cfg.LanguageID, def); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("saved %s server to %s\n", cfg.LanguageID, configPath)
		os.Exit(0)
	}

	ignoreList := splitList(ignore)
	if cfg.Command == "" {
		def, err := resolveServer(configPath, cfg.LanguageID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg.Command = def.Command
		cfg.SendDidClose = def.SendDidClose
		if len(def.Folders) > 0 && folders == "" {
			cfg.Folders = def.Folders
		}
		ignoreList = append(ignoreList, def.Ignore...)
		if t, err := def.RequestTimeout(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		} else if t > 0 {
			cfg.RequestTimeout = t
		}
	}

	cfg.Logger = buildLogger(logLevel)
	if folders != "" {
		cfg.Folders = splitList(folders)
	}

	return cfg, flag.Args(), ignoreList
}

// resolveServer looks the language up in the definition file, merging a
// project-local lspbridge.json over it when present.
func resolveServer(path, langID string) (config.ServerDef, error) {
	f, err := config.Load(path, "lspbridge.json")
	if err != nil {
		return config.ServerDef{}, err
	}
	def, err := f.Lookup(langID)
	if err != nil {
		if langs := f.Languages(); len(langs) > 0 {
			return config.ServerDef{}, fmt.Errorf("%w (configured: %s)", err, strings.Join(langs, ", "))
		}
		return config.ServerDef{}, err
	}
	return def, nil
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lspbridge", "servers.json")
}

func buildLogger(level string) *zap.Logger {
	var lvl zapcore.Level
	switch level {
	case "debug":
		lvl = zapcore.DebugLevel
	case "info":
		lvl = zapcore.InfoLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", level)
		os.Exit(1)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zcfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
