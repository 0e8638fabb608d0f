package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/slipway/internal/api"
	"github.com/mattjoyce/slipway/internal/config"
	"github.com/mattjoyce/slipway/internal/doctor"
	"github.com/mattjoyce/slipway/internal/events"
	"github.com/mattjoyce/slipway/internal/gate"
	"github.com/mattjoyce/slipway/internal/git"
	"github.com/mattjoyce/slipway/internal/inspect"
	"github.com/mattjoyce/slipway/internal/lifecycle"
	"github.com/mattjoyce/slipway/internal/lock"
	"github.com/mattjoyce/slipway/internal/log"
	"github.com/mattjoyce/slipway/internal/review"
	"github.com/mattjoyce/slipway/internal/signal"
	"github.com/mattjoyce/slipway/internal/status"
	"github.com/mattjoyce/slipway/internal/storage"
	"github.com/mattjoyce/slipway/internal/tabs"
	"github.com/mattjoyce/slipway/internal/tui/watch"
	"github.com/mattjoyce/slipway/internal/workspace"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	if cmd == "--version" {
		return runVersion(args)
	}

	switch cmd {
	// --- NOUNS ---
	case "system":
		return runSystemNoun(args)
	case "config":
		return runConfigNoun(args)
	case "workspace":
		return runWorkspaceNoun(args)
	case "review":
		return runReviewNoun(args)

	// --- ROOT ALIASES ---
	case "start":
		return runStart(args)
	case "watch":
		return runWatch(args)
	case "version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Print(`slipway - Workspace lifecycle and review orchestration daemon

Usage:
  slipway <noun> <action> [flags]

Core Resources (Nouns):
  system      Daemon lifecycle and monitoring
  config      Configuration and integrity
  workspace   Workspace status and surfaces
  review      Code review sessions

System Commands:
  system start        Start the daemon in foreground
  system watch        Real-time lifecycle board TUI

Config Commands:
  config check        Validate syntax and integrity
  config doctor       Validate configuration against the environment
  config lock         Authorize current state (update integrity hashes)
  config show         Show full resolved configuration

Workspace Commands:
  workspace list               Show workspaces and lifecycle statuses
  workspace set-status <id> <status>
                               Override a workspace's lifecycle status
  workspace inspect <id>       Report persisted workspace state

Review Commands:
  review start <id> [--force]  Request a review session

General:
  --version           Show version information
  version             Show version information
  help                Show this help message

Use 'slipway <noun> help' for resource-specific flags.
`)
}

// --- NOUN DISPATCHERS ---

func runSystemNoun(args []string) int {
	if len(args) < 1 {
		printSystemNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printSystemNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "start":
		if hasHelpFlag(actionArgs) {
			printSystemStartHelp()
			return 0
		}
		return runStart(actionArgs)
	case "watch":
		if hasHelpFlag(actionArgs) {
			printSystemWatchHelp()
			return 0
		}
		return runWatch(actionArgs)
	case "help":
		printSystemNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown system action: %s\n", action)
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "check":
		if hasHelpFlag(actionArgs) {
			printConfigCheckHelp()
			return 0
		}
		return runConfigCheck(actionArgs)
	case "lock", "hash-update":
		if hasHelpFlag(actionArgs) {
			printConfigLockHelp()
			return 0
		}
		return runConfigLock(actionArgs)
	case "doctor":
		if hasHelpFlag(actionArgs) {
			printConfigDoctorHelp()
			return 0
		}
		return runConfigDoctor(actionArgs)
	case "show":
		if hasHelpFlag(actionArgs) {
			printConfigShowHelp()
			return 0
		}
		return runConfigShow(actionArgs)
	case "help":
		printConfigNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func runWorkspaceNoun(args []string) int {
	if len(args) < 1 {
		printWorkspaceNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printWorkspaceNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "list":
		return runWorkspaceList(actionArgs)
	case "set-status":
		return runWorkspaceSetStatus(actionArgs)
	case "inspect":
		if hasHelpFlag(actionArgs) {
			printWorkspaceInspectHelp()
			return 0
		}
		return runWorkspaceInspect(actionArgs)
	case "help":
		printWorkspaceNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown workspace action: %s\n", action)
		return 1
	}
}

func runReviewNoun(args []string) int {
	if len(args) < 1 {
		printReviewNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printReviewNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "start":
		return runReviewStart(actionArgs)
	case "status":
		return runReviewStatus(actionArgs)
	case "help":
		printReviewNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown review action: %s\n", action)
		return 1
	}
}

// --- ACTION IMPLEMENTATIONS ---

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("slipway starting", "version", version, "config", *configPath)

	pidLockPath := filepath.Join(filepath.Dir(cfg.State.Path), "slipway.pid")
	pidLock, err := lock.AcquirePIDLock(pidLockPath)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)",
			"path", pidLockPath, "error", err)
		return 1
	}
	defer pidLock.Release()
	logger.Info("acquired PID lock", "path", pidLockPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.State.Path, "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("database opened", "path", cfg.State.Path)

	hub := events.NewHub(256)
	store := status.NewStore(db)
	registry := tabs.NewRegistry(db, cfg.ProviderIDs(), cfg.DefaultProvider())
	dir := workspace.NewDirectory()
	activity := signal.NewActivity()
	gitClient := git.NewExecClient()
	pipeline := review.NewPipeline(gitClient, hub)

	// Collaborator pushes land on the API's signals endpoint and flow
	// through the watcher adapters into the activity channel. The ingress
	// follows directory membership so signals for removed workspaces are
	// discarded.
	ingress := signal.NewIngress(activity, nil)
	dir.Subscribe(func(op workspace.Op, ws workspace.Workspace) {
		switch op {
		case workspace.OpAdded:
			ingress.Attach(ws.ID)
		case workspace.OpRemoved:
			ingress.Detach(ws.ID)
			activity.Remove(ws.ID)
		}
	})

	// Mirror store and registry mutations onto the event stream for the
	// board TUI and any SSE clients.
	store.Subscribe(func(c status.Change) {
		hub.Publish(events.TypeStatusChanged, c.WorkspaceID, map[string]any{
			"to": string(c.Status),
		})
	})

	agg := lifecycle.NewAggregator(cfg.Lifecycle, store, activity, dir, gitClient, hub)
	g := gate.NewGate(cfg.Review, store, registry, pipeline, dir, hub)
	g.Sink = func(workspaceID string, rec gate.Record) {
		hub.Publish(events.TypeReviewSession, workspaceID, rec)
	}
	agg.SetReadyHook(func(id string) { g.RequestAutoStart(id) })

	for _, ws := range cfg.Workspaces {
		w := workspace.Workspace{ID: ws.ID, Path: ws.Path, Worktrees: ws.Worktrees}
		if err := dir.Add(w); err != nil {
			logger.Error("invalid workspace in config", "workspace", ws.ID, "error", err)
			return 1
		}
		registry.Subscribe(ws.ID, func() {
			hub.Publish(events.TypeTabsChanged, w.ID, nil)
		})
	}

	agg.Start()
	defer agg.Stop()
	logger.Info("lifecycle aggregator started", "workspaces", len(dir.List()))

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	if cfg.API.Enabled {
		apiServer := api.New(cfg.API, store, registry, pipeline, g, agg, dir, ingress,
			hub, log.WithComponent("api"))
		go func() {
			if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("api: %w", err)
			}
		}()
		logger.Info("API server enabled", "listen", cfg.API.Listen)
	}

	logger.Info("slipway running (press Ctrl+C to stop)")

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("slipway stopped")
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	apiURL := fs.String("api-url", "http://localhost:8080", "Daemon API URL")
	apiKey := fs.String("api-key", os.Getenv("SLIPWAY_API_KEY"), "API Bearer Token")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if *apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: API key required. Use --api-key or SLIPWAY_API_KEY env var.")
		return 1
	}

	m := watch.New(*apiURL, *apiKey)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if _, err := config.Load(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Config check FAILED: %v\n", err)
		return 1
	}
	if err := config.VerifyChecksums(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Integrity check FAILED: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'slipway config lock' to authorize the current state.")
		return 1
	}
	fmt.Println("Status: Configuration check PASSED.")
	return 0
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("lock", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if _, err := config.Load(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Refusing to lock an invalid config: %v\n", err)
		return 1
	}
	manifestPath, err := config.GenerateChecksums(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write checksums: %v\n", err)
		return 1
	}
	fmt.Printf("Integrity hashes written to %s\n", manifestPath)
	return 0
}

func runConfigDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	result := doctor.New(cfg).Validate()
	if *jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render report: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	return 0
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(cfg, "", "  ")
		fmt.Println(string(data))
	} else {
		data, _ := yaml.Marshal(cfg)
		fmt.Print(string(data))
	}
	return 0
}

func runWorkspaceList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	apiURL := fs.String("api-url", "http://localhost:8080", "Daemon API URL")
	apiKey := fs.String("api-key", os.Getenv("SLIPWAY_API_KEY"), "API Bearer Token")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	var list []api.WorkspaceResponse
	if err := apiRequest(*apiURL, *apiKey, "GET", "/v1/workspaces", nil, &list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(list, "", "  ")
		fmt.Println(string(data))
		return 0
	}

	if len(list) == 0 {
		fmt.Println("No workspaces registered.")
		return 0
	}
	fmt.Printf("%-20s %-18s %-8s %s\n", "ID", "STATUS", "PENDING", "REVIEW")
	for _, ws := range list {
		pending := ""
		if ws.PendingReview {
			pending = "yes"
		}
		fmt.Printf("%-20s %-18s %-8s %s\n", ws.ID, ws.Status, pending, ws.ReviewStatus)
	}
	return 0
}

func runWorkspaceSetStatus(args []string) int {
	fs := flag.NewFlagSet("set-status", flag.ExitOnError)
	apiURL := fs.String("api-url", "http://localhost:8080", "Daemon API URL")
	apiKey := fs.String("api-key", os.Getenv("SLIPWAY_API_KEY"), "API Bearer Token")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: slipway workspace set-status <id> <not-started|active|ready-for-review>")
		return 1
	}
	id, st := fs.Arg(0), fs.Arg(1)

	body := api.SetStatusRequest{Status: st}
	var out api.WorkspaceResponse
	if err := apiRequest(*apiURL, *apiKey, "PUT",
		"/v1/workspaces/"+id+"/status", body, &out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("Workspace %s is now %s\n", out.ID, out.Status)
	return 0
}

func runWorkspaceInspect(args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: slipway workspace inspect <id> [--config PATH] [--json]")
		return 1
	}
	id := fs.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		return 1
	}
	defer db.Close()

	var out string
	if *jsonOut {
		out, err = inspect.BuildJSONReport(ctx, db, id)
	} else {
		out, err = inspect.BuildReport(ctx, db, id)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Print(out)
	if *jsonOut {
		fmt.Println()
	}
	return 0
}

func runReviewStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	apiURL := fs.String("api-url", "http://localhost:8080", "Daemon API URL")
	apiKey := fs.String("api-key", os.Getenv("SLIPWAY_API_KEY"), "API Bearer Token")
	force := fs.Bool("force", false, "Bypass the single-surface check")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: slipway review start <id> [--force]")
		return 1
	}
	id := fs.Arg(0)

	path := "/v1/workspaces/" + id + "/review"
	if *force {
		path += "?force=true"
	}
	var state review.State
	if err := apiRequest(*apiURL, *apiKey, "POST", path, nil, &state); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("Review for %s: %s\n", id, state.Status)
	return 0
}

func runReviewStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	apiURL := fs.String("api-url", "http://localhost:8080", "Daemon API URL")
	apiKey := fs.String("api-key", os.Getenv("SLIPWAY_API_KEY"), "API Bearer Token")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: slipway review status <id> [--json]")
		return 1
	}
	id := fs.Arg(0)

	var state review.State
	if err := apiRequest(*apiURL, *apiKey, "GET",
		"/v1/workspaces/"+id+"/review", nil, &state); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(state, "", "  ")
		fmt.Println(string(data))
		return 0
	}
	fmt.Printf("Status:  %s\n", state.Status)
	if state.Summary != "" {
		fmt.Printf("Summary: %s\n", state.Summary)
	}
	if state.Error != "" {
		fmt.Printf("Error:   %s\n", state.Error)
	}
	for _, f := range state.Files {
		fmt.Printf("  %-10s %s (+%d -%d)\n", f.ChangeKind, f.Path, f.Additions, f.Deletions)
	}
	return 0
}

// --- VERSION ---

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: slipway version [--json]")
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("slipway %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}

	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	resolvedCommit := strings.TrimSpace(gitCommit)
	if resolvedCommit == "" || resolvedCommit == "unknown" {
		resolvedCommit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if resolvedCommit != "" {
		info.Commit = shortenCommit(resolvedCommit)
	}

	resolvedBuildTime := strings.TrimSpace(buildDate)
	if resolvedBuildTime == "" || resolvedBuildTime == "unknown" {
		resolvedBuildTime = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if normalized, ok := normalizeBuildTimeUTC(resolvedBuildTime); ok {
		info.BuildTime = normalized
	}

	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func normalizeBuildTimeUTC(raw string) (string, bool) {
	if raw == "" || raw == "unknown" {
		return "", false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return "", false
	}
	return t.UTC().Format(time.RFC3339), true
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

// --- HELPERS ---

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func printSystemNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: slipway system <action>")
	fmt.Fprintln(w, "Actions: start, watch")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: slipway config <action> [flags]")
	fmt.Fprintln(w, "Actions: check, doctor, lock, show")
}

func printWorkspaceNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: slipway workspace <action> [flags]")
	fmt.Fprintln(w, "Actions: list, set-status, inspect")
}

func printReviewNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: slipway review <action> [flags]")
	fmt.Fprintln(w, "Actions: start, status")
}

func printSystemStartHelp() {
	fmt.Println("Usage: slipway system start [--config PATH]")
	fmt.Println("Start the daemon in the foreground.")
}

func printSystemWatchHelp() {
	fmt.Println("Usage: slipway system watch [flags]")
	fmt.Println()
	fmt.Println("Real-time lifecycle board TUI.")
	fmt.Println("Shows workspaces by lifecycle column and the daemon event stream.")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --api-url URL    Daemon API URL (default: http://localhost:8080)")
	fmt.Println("  --api-key KEY    API Bearer Token (or SLIPWAY_API_KEY env var)")
	fmt.Println()
	fmt.Println("Keybindings:")
	fmt.Println("  q, Ctrl+C        Quit")
	fmt.Println("  r                Refresh workspace list")
}

func printConfigCheckHelp() {
	fmt.Println("Usage: slipway config check [--config PATH]")
	fmt.Println("Validate configuration syntax and integrity hashes.")
}

func printConfigLockHelp() {
	fmt.Println("Usage: slipway config lock [--config PATH]")
	fmt.Println("Authorize current configuration state by regenerating integrity hashes.")
}

func printConfigDoctorHelp() {
	fmt.Println("Usage: slipway config doctor [--config PATH] [--json]")
	fmt.Println("Validate configuration against declared providers, workspace paths,")
	fmt.Println("and required tools (git, gh).")
}

func printConfigShowHelp() {
	fmt.Println("Usage: slipway config show [--config PATH] [--json]")
	fmt.Println("Show the full resolved configuration.")
}

func printWorkspaceInspectHelp() {
	fmt.Println("Usage: slipway workspace inspect <id> [--config PATH] [--json]")
	fmt.Println("Report a workspace's persisted lifecycle status, pending flag, and")
	fmt.Println("tab set straight from the state database. Works without the daemon.")
}
