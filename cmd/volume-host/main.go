package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	flag "github.com/spf13/pflag"

	"volumehost/internal/nativemsg"
)

const version = "1.0.0"

func printVersion() {
	fmt.Fprintf(os.Stderr, "volume-host v%s\n", version)
	fmt.Fprintln(os.Stderr, "Native messaging host for system volume control")
}

// Usage goes to stderr: stdout is reserved for the wire protocol.
func printUsage() {
	printVersion()
	w := os.Stderr
	fmt.Fprintln(w)
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  volume-host [OPTIONS] [ORIGIN...]")
	fmt.Fprintln(w, "  volume-host install-manifest [OPTIONS]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "DESCRIPTION:")
	fmt.Fprintln(w, "  Reads length-prefixed JSON commands on stdin and writes one")
	fmt.Fprintln(w, "  length-prefixed JSON response per command on stdout. Normally")
	fmt.Fprintln(w, "  started by the browser; positional arguments supplied by the")
	fmt.Fprintln(w, "  browser (caller origin, manifest path) are accepted and ignored.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "COMMANDS:")
	fmt.Fprintln(w, `  {"action":"get_volume"}`)
	fmt.Fprintln(w, `  {"action":"set_volume","value":<0..100>}`)
	fmt.Fprintln(w, `  {"action":"change_volume","delta":<int>}`)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTIONS:")
	fmt.Fprintln(w, "  --config string")
	fmt.Fprintf(w, "        YAML config file (default $%s, then <user config dir>/volume-host/config.yaml)\n", configEnvVar)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  --log-level string")
	fmt.Fprintln(w, "        Log level: error, warn, info, debug (default \"info\")")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  --log-file string")
	fmt.Fprintln(w, "        Append logs to this file instead of stderr")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  --exec-timeout-ms int")
	fmt.Fprintln(w, "        Timeout for each mixer tool invocation in ms (default 0, no timeout)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  --version")
	fmt.Fprintln(w, "        Print version and exit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  --help")
	fmt.Fprintln(w, "        Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "SUBCOMMANDS:")
	fmt.Fprintln(w, "  install-manifest")
	fmt.Fprintln(w, "        Write the native messaging host manifest for a browser")
	fmt.Fprintln(w, "        Run 'volume-host install-manifest --help' for options")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "  # Register with Chrome for one extension")
	fmt.Fprintln(w, "  volume-host install-manifest --extension-id abcdefghijklmnopabcdefghijklmnop")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  # Query the host by hand")
	fmt.Fprintln(w, "  volume-ctl get")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "NOTES:")
	fmt.Fprintln(w, "  - Linux uses pactl, falling back to amixer")
	fmt.Fprintln(w, "  - macOS uses osascript")
	fmt.Fprintln(w, "  - Windows uses the Core Audio endpoint volume API directly")
	fmt.Fprintln(w)
}

func main() {
	// Check for subcommand mode first
	if len(os.Args) > 1 && os.Args[1] == "install-manifest" {
		runInstallManifestSubcommand()
		return
	}

	// Check for version flag early (for main command)
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath    = flag.String("config", "", "YAML config file")
		logLevelStr   = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		logFile       = flag.String("log-file", "", "Append logs to this file instead of stderr")
		execTimeoutMS = flag.Int("exec-timeout-ms", 0, "Timeout for each mixer tool invocation in ms (0 = none)")
	)

	flag.Usage = printUsage
	// Chrome on Windows passes --parent-window=<hwnd>; it must not abort startup.
	flag.CommandLine.ParseErrorsWhitelist.UnknownFlags = true
	flag.Parse()

	conn := nativemsg.NewConn(os.Stdin, os.Stdout)

	cfg := DefaultConfig()
	if p := resolveConfigPath(*configPath); p != "" {
		loaded, err := LoadConfigFile(p)
		if err != nil {
			fatal(conn, err)
		}
		cfg = loaded
	}

	var overrides FlagOverrides
	if flag.CommandLine.Changed("log-level") {
		overrides.LogLevel = logLevelStr
	}
	if flag.CommandLine.Changed("log-file") {
		overrides.LogFile = logFile
	}
	if flag.CommandLine.Changed("exec-timeout-ms") {
		overrides.TimeoutMS = execTimeoutMS
	}
	overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fatal(conn, err)
	}
	logLevel, _ := parseLogLevel(cfg.Logging.Level)

	logOut, closeLog, err := openLogOutput(cfg.Logging.File)
	if err != nil {
		fatal(conn, err)
	}
	logger := setupLogger(logLevel, logOut)

	logger.Debug("starting volume-host", "version", version)
	logger.Debug("configuration",
		"os", runtime.GOOS,
		"exec_timeout_ms", cfg.Exec.TimeoutMS,
		"pactl", cfg.Tools.Pactl,
		"amixer", cfg.Tools.Amixer,
		"osascript", cfg.Tools.Osascript,
		"caller", flag.Args())

	runner := newExecRunner(cfg.Timeout(), logger)
	volume, err := newVolumeAccessor(runtime.GOOS, &cfg, runner, logger)
	if err != nil {
		logger.Error("no volume accessor", "error", err)
		volume = unavailableVolume{err: err}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = runBridge(ctx, conn, NewDispatcher(volume, logger), logger)
	if errors.Is(err, context.Canceled) {
		logger.Info("signal received, shutting down")
		err = nil
	}
	if err != nil {
		logger.Error("bridge stopped", "error", err)
		stop()
		_ = closeLog()
		os.Exit(1)
	}
	logger.Debug("shutting down")
	_ = closeLog()
}

// fatal reports a startup failure to the browser as the single response the
// host will ever send, then exits.
func fatal(conn *nativemsg.Conn, err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	_ = conn.Write(errorResponse(err.Error()))
	os.Exit(1)
}

func printInstallManifestUsage() {
	w := os.Stderr
	fmt.Fprintf(w, "volume-host install-manifest v%s\n", version)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  volume-host install-manifest --extension-id ID [OPTIONS]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTIONS:")
	fmt.Fprintln(w, "  --browser string")
	fmt.Fprintln(w, "        chrome, chromium, edge, or firefox (default \"chrome\")")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  --name string")
	fmt.Fprintf(w, "        Host name the extension connects to (default %q)\n", defaultHostName)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  --extension-id string")
	fmt.Fprintln(w, "        Extension allowed to start the host; repeatable")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  --host-path string")
	fmt.Fprintln(w, "        Absolute path of the host binary (default: this executable)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  --dir string")
	fmt.Fprintln(w, "        Write the manifest to this directory instead of the browser default")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  --print")
	fmt.Fprintln(w, "        Print the manifest to stdout and do not install it")
	fmt.Fprintln(w)
}

// runInstallManifestSubcommand handles install-manifest subcommand mode
func runInstallManifestSubcommand() {
	fs := flag.NewFlagSet("install-manifest", flag.ExitOnError)
	browserStr := fs.String("browser", string(BrowserChrome), "chrome, chromium, edge, or firefox")
	name := fs.String("name", defaultHostName, "Host name the extension connects to")
	extensionIDs := fs.StringArray("extension-id", nil, "Extension allowed to start the host; repeatable")
	hostPath := fs.String("host-path", "", "Absolute path of the host binary")
	dir := fs.String("dir", "", "Manifest directory override")
	printOnly := fs.Bool("print", false, "Print the manifest instead of installing it")
	logLevelStr := fs.String("log-level", "info", "Log level: error, warn, info, debug")
	showHelp := fs.Bool("help", false, "Print help message")

	fs.Usage = printInstallManifestUsage

	// Parse flags (skip "install-manifest" subcommand name)
	fs.Parse(os.Args[2:])

	if *showHelp {
		printInstallManifestUsage()
		return
	}

	logLevel, err := parseLogLevel(*logLevelStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel, os.Stderr)

	browser, err := parseBrowser(*browserStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	path := *hostPath
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			logger.Error("cannot determine executable path", "error", err, "tip", "pass --host-path")
			os.Exit(1)
		}
		path = exe
	}
	path, err = filepath.Abs(ExpandPath(path))
	if err != nil {
		logger.Error("invalid host path", "error", err)
		os.Exit(1)
	}

	manifest, err := buildManifest(browser, *name, path, *extensionIDs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *printOnly {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(manifest); err != nil {
			logger.Error("failed to print manifest", "error", err)
			os.Exit(1)
		}
		return
	}

	target := ExpandPath(*dir)
	if target == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			logger.Error("cannot determine home directory", "error", err, "tip", "pass --dir")
			os.Exit(1)
		}
		target, err = manifestDir(runtime.GOOS, browser, home, path)
		if err != nil {
			logger.Error("no manifest location", "error", err, "tip", "pass --dir")
			os.Exit(1)
		}
	}

	written, err := writeManifest(target, manifest)
	if err != nil {
		logger.Error("failed to install manifest", "error", err)
		os.Exit(1)
	}
	if err := registerManifest(browser, manifest.Name, written); err != nil {
		logger.Error("failed to register manifest", "error", err)
		os.Exit(1)
	}
	logger.Info("manifest installed", "browser", browser, "name", manifest.Name, "path", written, "host", path)
}
