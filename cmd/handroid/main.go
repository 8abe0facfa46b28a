// Handroid is an LLM agent that operates an Android phone over adb.
//
// It drives a tool-calling conversation loop against an OpenAI-compatible
// model gateway: the model inspects the screen, taps, swipes, and types
// until the user's instruction is done. A web chat UI and an optional
// MQTT instruction bridge expose the loop to the network. Configuration
// is loaded from a single YAML file discovered automatically (see
// [config.DefaultSearchPaths]).
//
// Usage:
//
//	handroid serve                 Start the web chat server
//	handroid chat                  Interactive chat on the terminal
//	handroid ask <instruction>     Run a single instruction
//	handroid seed                  Seed the app knowledge database
//	handroid pair [host:port code] Pair a phone over wireless debugging
//	handroid devices               List connected devices
//	handroid version               Print version and build information
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/handroid/handroid/internal/agent"
	"github.com/handroid/handroid/internal/buildinfo"
	"github.com/handroid/handroid/internal/config"
	"github.com/handroid/handroid/internal/device"
	"github.com/handroid/handroid/internal/embeddings"
	"github.com/handroid/handroid/internal/knowledge"
	"github.com/handroid/handroid/internal/llm"
	"github.com/handroid/handroid/internal/mqtt"
	"github.com/handroid/handroid/internal/prompts"
	"github.com/handroid/handroid/internal/tools"
	"github.com/handroid/handroid/internal/web"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the handroid command. All OS-level
// dependencies are injected as parameters so the lifecycle can be
// driven from tests. Arguments are parsed by hand: the flag package
// relies on package-level globals, and our argument surface is small
// enough that manual parsing is clearer than a CLI framework.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "chat":
		return runChat(ctx, stdout, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: handroid ask <instruction>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "seed":
		return runSeed(ctx, stdout, configPath)
	case "ingest":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: handroid ingest <file.yaml>")
		}
		return runIngest(ctx, stdout, configPath, cmdArgs[0])
	case "pair":
		return runPair(ctx, stdout, configPath, cmdArgs)
	case "devices":
		return runDevices(ctx, stdout, configPath)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// printUsage writes the top-level help text to w. It is called when
// handroid is invoked with no arguments, or with -h / --help.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Handroid - LLM agent for Android phones")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: handroid [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve                 Start the web chat server")
	fmt.Fprintln(w, "  chat                  Interactive chat on the terminal")
	fmt.Fprintln(w, "  ask <instruction>     Run a single instruction")
	fmt.Fprintln(w, "  seed                  Seed the app knowledge database")
	fmt.Fprintln(w, "  ingest <file.yaml>    Import app guides into the knowledge database")
	fmt.Fprintln(w, "  pair [host:port code] Pair a phone over wireless debugging")
	fmt.Fprintln(w, "  devices               List connected devices")
	fmt.Fprintln(w, "  version               Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/handroid/config.yaml, /etc/handroid/config.yaml")
	return nil
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// newLogger creates a text logger writing to w at the given level.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig discovers and loads the config file, returning the config
// and the path it came from.
func loadConfig(explicit string) (*config.Config, string, error) {
	path, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, path, nil
}

// pickSerial resolves the device serial to use. An explicit serial from
// config wins; otherwise exactly one connected device must be present.
func pickSerial(ctx context.Context, runner device.Runner, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	devices, err := device.ListDevices(ctx, runner)
	if err != nil {
		return "", fmt.Errorf("list devices: %w", err)
	}

	var online []device.DeviceInfo
	for _, d := range devices {
		if d.State == "device" {
			online = append(online, d)
		}
	}
	switch len(online) {
	case 0:
		return "", fmt.Errorf("no device connected (run 'handroid pair' or plug one in)")
	case 1:
		return online[0].Serial, nil
	default:
		serials := make([]string, len(online))
		for i, d := range online {
			serials[i] = d.Serial
		}
		return "", fmt.Errorf("multiple devices connected, set adb.serial in config: %s", strings.Join(serials, ", "))
	}
}

// buildAgent wires the full stack: gateway client, device, screen
// analyzer, knowledge store, tool registry, and the conversation loop.
// The returned cleanup closes the knowledge store (it is a no-op when
// knowledge is disabled).
func buildAgent(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*agent.Agent, func(), error) {
	cleanup := func() {}

	gateway := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, logger)

	runner := device.NewRunner(cfg.ADB.Path)
	serial, err := pickSerial(ctx, runner, cfg.ADB.Serial)
	if err != nil {
		return nil, cleanup, err
	}
	dev := device.New(serial, runner, device.WithLogger(logger))
	logger.Info("device selected", "serial", serial)

	analyzer := device.NewAnalyzer(dev, gateway, cfg.LLM.CheckModel)

	registry := tools.NewRegistry()
	tools.RegisterPhoneTools(registry, dev, analyzer)

	// Knowledge tools need the embedding service for semantic search.
	var knowledgeContent string
	if cfg.Knowledge.DBPath != "" && cfg.Embeddings.Enabled {
		embedder := embeddings.New(embeddings.Config{
			BaseURL: cfg.Embeddings.BaseURL,
			APIKey:  cfg.Embeddings.APIKey,
			Model:   cfg.Embeddings.Model,
		})
		store, err := knowledge.NewStore(cfg.Knowledge.DBPath, embedder)
		if err != nil {
			return nil, cleanup, fmt.Errorf("open knowledge database %s: %w", cfg.Knowledge.DBPath, err)
		}
		cleanup = func() { store.Close() }
		tools.RegisterKnowledgeTools(registry, store)
		knowledgeContent = describeKnownApps(ctx, store)
		logger.Info("knowledge database opened", "path", cfg.Knowledge.DBPath)
	} else {
		logger.Debug("knowledge tools disabled",
			"db_path", cfg.Knowledge.DBPath, "embeddings_enabled", cfg.Embeddings.Enabled)
	}

	systemPrompt := cfg.Agent.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = prompts.SystemPrompt(knowledgeContent)
	}

	invalidating := cfg.Agent.StateInvalidatingTools
	if len(invalidating) == 0 {
		invalidating = tools.StateInvalidatingTools()
	}

	warnOnCompactionFailure := true
	if cfg.Agent.WarnOnCompactionFailure != nil {
		warnOnCompactionFailure = *cfg.Agent.WarnOnCompactionFailure
	}

	a := agent.New(gateway, registry, agent.Config{
		Model:                   cfg.LLM.Model,
		Temperature:             cfg.LLM.Temperature,
		MaxTokens:               cfg.LLM.MaxTokens,
		MaxIterations:           cfg.Agent.MaxIterations,
		SystemPrompt:            systemPrompt,
		StateInvalidatingTools:  invalidating,
		WarnOnCompactionFailure: warnOnCompactionFailure,
	}, logger)

	return a, cleanup, nil
}

// describeKnownApps formats the apps with operating guides for the
// system prompt. Failures just mean the section is omitted.
func describeKnownApps(ctx context.Context, store *knowledge.Store) string {
	packages, err := store.Packages(ctx)
	if err != nil || len(packages) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Operating guides are available for these apps; use the action_knowledge tool before working in them:\n")
	for _, pkg := range packages {
		info, err := store.AppByPackage(ctx, pkg)
		if err != nil || info == nil {
			continue
		}
		fmt.Fprintf(&b, "- %s (%s): %s\n", info.AppName, info.PackageName, info.Description)
	}
	return b.String()
}

// runAsk handles "handroid ask <instruction>": one instruction through
// the full tool loop, answer on stdout.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := newLogger(stdout, level)
	logger.Info("config loaded", "path", cfgPath)

	a, cleanup, err := buildAgent(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	answer := a.Chat(ctx, strings.Join(args, " "))
	fmt.Fprintln(stdout, answer)
	return nil
}

// runChat handles "handroid chat": a line-oriented conversation on the
// terminal sharing one history across instructions.
func runChat(ctx context.Context, stdout io.Writer, configPath string) error {
	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := newLogger(stdout, level)
	logger.Info("config loaded", "path", cfgPath)

	a, cleanup, err := buildAgent(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Fprintln(stdout, "Connected. Type an instruction, /clear to reset, /quit to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(stdout)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			a.Clear()
			fmt.Fprintln(stdout, "Conversation cleared.")
			continue
		}

		fmt.Fprintln(stdout, a.Chat(ctx, line))
	}
}

// openKnowledgeStore opens the configured knowledge database with a
// live embedder, for the seed and ingest subcommands.
func openKnowledgeStore(cfg *config.Config) (*knowledge.Store, error) {
	if cfg.Knowledge.DBPath == "" {
		return nil, fmt.Errorf("knowledge.db_path is not configured")
	}
	if !cfg.Embeddings.Enabled {
		return nil, fmt.Errorf("embeddings must be enabled to write the knowledge database")
	}

	embedder := embeddings.New(embeddings.Config{
		BaseURL: cfg.Embeddings.BaseURL,
		APIKey:  cfg.Embeddings.APIKey,
		Model:   cfg.Embeddings.Model,
	})
	store, err := knowledge.NewStore(cfg.Knowledge.DBPath, embedder)
	if err != nil {
		return nil, fmt.Errorf("open knowledge database %s: %w", cfg.Knowledge.DBPath, err)
	}
	return store, nil
}

// runSeed handles "handroid seed": populates the knowledge database
// with the built-in app mappings and operating guides.
func runSeed(ctx context.Context, stdout io.Writer, configPath string) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	store, err := openKnowledgeStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Seed(ctx); err != nil {
		return fmt.Errorf("seed knowledge database: %w", err)
	}

	fmt.Fprintln(stdout, "Knowledge database seeded.")
	return nil
}

// runIngest handles "handroid ingest <file.yaml>": imports app
// mappings and help documents from a YAML file.
func runIngest(ctx context.Context, stdout io.Writer, configPath string, filePath string) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	store, err := openKnowledgeStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	apps, docs, err := store.ImportYAML(ctx, f)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", filePath, err)
	}

	fmt.Fprintf(stdout, "Imported %d apps and %d documents from %s\n", apps, docs, filePath)
	return nil
}

// runPair handles "handroid pair". With no arguments it prints a QR
// code for Android's "Pair device with QR code" flow. With host:port
// and a pairing code it completes a manual pairing.
func runPair(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	adbPath := "adb"
	if cfg, _, err := loadConfig(configPath); err == nil {
		adbPath = cfg.ADB.Path
	}
	runner := device.NewRunner(adbPath)

	if len(args) >= 2 {
		out, err := device.Pair(ctx, runner, args[0], args[1])
		if err != nil {
			return fmt.Errorf("pair with %s: %w", args[0], err)
		}
		fmt.Fprintln(stdout, strings.TrimSpace(out))
		return nil
	}

	session := device.NewPairingSession()
	qr, err := session.QRTerminal()
	if err != nil {
		return fmt.Errorf("render pairing QR code: %w", err)
	}

	fmt.Fprintln(stdout, "On the phone: Developer options > Wireless debugging > Pair device with QR code")
	fmt.Fprintln(stdout)
	fmt.Fprint(stdout, qr)
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Service: %s  Password: %s\n", session.Name, session.Password)
	fmt.Fprintln(stdout, "Then run: handroid pair <host:port> <code> with the values the phone shows.")
	return nil
}

// runDevices handles "handroid devices": lists devices known to adb.
func runDevices(ctx context.Context, stdout io.Writer, configPath string) error {
	adbPath := "adb"
	if cfg, _, err := loadConfig(configPath); err == nil {
		adbPath = cfg.ADB.Path
	}

	devices, err := device.ListDevices(ctx, device.NewRunner(adbPath))
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	if len(devices) == 0 {
		fmt.Fprintln(stdout, "No devices connected.")
		return nil
	}

	for _, d := range devices {
		if d.Model != "" {
			fmt.Fprintf(stdout, "%-24s %-12s %s\n", d.Serial, d.State, d.Model)
		} else {
			fmt.Fprintf(stdout, "%-24s %s\n", d.Serial, d.State)
		}
	}
	return nil
}

// runServe handles "handroid serve". It is the primary operating mode:
// loads config, wires the agent, starts the web chat server and the
// optional MQTT bridge, and blocks until a shutdown signal arrives.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting handroid",
		"version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure the logger now that the desired level is known.
	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"model", cfg.LLM.Model,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := buildAgent(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// --- Web chat server ---
	mux := http.NewServeMux()
	webServer := web.NewServer(web.Config{Chatter: a, Logger: logger})
	webServer.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	httpErr := make(chan error, 1)
	go func() {
		logger.Info("web server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			httpErr <- err
		}
	}()

	// --- MQTT instruction bridge (optional) ---
	var bridge *mqtt.Bridge
	if cfg.MQTT.Enabled {
		bridge = mqtt.New(cfg.MQTT, a, logger)
		go func() {
			if err := bridge.Start(ctx); err != nil {
				logger.Error("mqtt bridge failed", "error", err)
			}
		}()
	}

	select {
	case err := <-httpErr:
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if bridge != nil {
		if err := bridge.Stop(shutdownCtx); err != nil {
			logger.Warn("mqtt bridge shutdown failed", "error", err)
		}
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
