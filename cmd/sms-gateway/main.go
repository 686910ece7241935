// ABOUTME: Entry point for the sms-gateway MCP server
// ABOUTME: Serves the task_complete tool over stdio or HTTP/SSE transports

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
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/sms-gateway/internal/config"
	"github.com/2389/sms-gateway/internal/gateway"
	"github.com/2389/sms-gateway/internal/mcp"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                                       _
  ___ _ __ ___  ___        __ _  __ _| |_ _____      ____ _ _   _
 / __| '_ ' _ \/ __|_____ / _' |/ _' | __/ _ \ \ /\ / / _' | | | |
 \__ \ | | | | \__ \_____| (_| | (_| | ||  __/\ V  V / (_| | |_| |
 |___/_| |_| |_|___/      \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |
                          |___/                             |___/
`

// getConfigPath returns the path to the gateway config file.
// Priority: SMS_GATEWAY_CONFIG env var > XDG_CONFIG_HOME/sms-gateway/gateway.yaml
// > ~/.config/sms-gateway/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("SMS_GATEWAY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "sms-gateway", "gateway.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: sms-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the HTTP/SSE gateway server")
		fmt.Println("  stdio    Speak MCP over stdin/stdout (for MCP client launchers)")
		fmt.Println("  init     Create a new config file interactively")
		fmt.Println("  health   Check gateway health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "stdio":
		err = runStdio(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stdout)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)

	green.Print("    ▶ ")
	fmt.Printf("Twilio:    ")
	if cfg.Twilio.Configured() {
		fmt.Printf("%s\n", cfg.Twilio.FromNumber)
	} else {
		red.Print("not configured")
		gray.Print(" (tool calls will fail)")
		fmt.Println()
	}

	if cfg.Supabase.URL != "" {
		green.Print("    ▶ ")
		fmt.Printf("Sink:      supabase\n")
	} else if cfg.Database.Path != "" {
		green.Print("    ▶ ")
		fmt.Printf("Sink:      sqlite (%s)\n", cfg.Database.Path)
	}

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}

	fmt.Println()

	logger.Info("starting sms-gateway",
		"http_addr", cfg.Server.HTTPAddr,
		"configured", cfg.Twilio.Configured(),
	)

	gw, err := gateway.New(cfg, version, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	gw.ValidateCredentials()

	return gw.Run(ctx)
}

// runStdio speaks the MCP line protocol on stdin/stdout. Everything else —
// including all logging — goes to stderr so the protocol stream stays clean.
func runStdio(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stderr)

	// The stdio binding is the original single-purpose deployment: refuse
	// to start without credentials rather than serving a dead tool.
	if !cfg.Twilio.Configured() {
		return fmt.Errorf("twilio is not configured: set TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, and TWILIO_PHONE_NUMBER")
	}

	dispatcher, _, s, err := gateway.BuildDispatcher(cfg, logger)
	if err != nil {
		return err
	}
	if s != nil {
		defer s.Close()
	}

	router, err := mcp.NewRouter(mcp.RouterConfig{
		Registry:   mcp.NewRegistry(),
		Dispatcher: dispatcher,
		Version:    version,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("creating router: %w", err)
	}

	srv := mcp.NewStdioServer(router, os.Stdin, os.Stdout, logger)
	if err := srv.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = &colorHandler{
			out:   out,
			level: level,
		}
	}

	return slog.New(handler)
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url, err := healthURL(cfg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	var health gateway.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	fmt.Printf("status:     %s\n", health.Status)
	fmt.Printf("server:     %s\n", health.Server)
	fmt.Printf("configured: %t\n", health.Configured)
	return nil
}

// healthURL resolves the probe target from config. The probe speaks plain
// TCP only: a tailnet-only deployment has no local listener to probe, so the
// bare-port form gets a localhost host and an empty address is an error.
func healthURL(cfg *config.Config) (string, error) {
	addr := cfg.Server.HTTPAddr
	if addr == "" {
		return "", fmt.Errorf("no local HTTP address to probe: the health command targets the TCP listener (set server.http_addr; tailnet listeners are not probed)")
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return fmt.Sprintf("http://%s/health", addr), nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("sms-gateway configuration setup")
	fmt.Println("===============================")
	fmt.Println()

	defaultConfigPath := getConfigPath()
	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", config.DefaultHTTPAddr)

	fmt.Println("\n--- Twilio Configuration ---")
	fmt.Println("Credentials are referenced as ${VAR} so secrets stay out of the file.")
	fromNumber := prompt(reader, "Sender number (E.164)", "${TWILIO_PHONE_NUMBER}")
	defaultTo := prompt(reader, "Default recipient (optional)", "${DEFAULT_TO_PHONE_NUMBER}")

	fmt.Println("\n--- Persistence Configuration ---")
	sink := prompt(reader, "Send log sink (supabase/sqlite/none)", "none")

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	var cfg strings.Builder
	cfg.WriteString("# sms-gateway configuration\n")
	cfg.WriteString("# Generated by sms-gateway init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n", httpAddr))
	cfg.WriteString("\n")

	cfg.WriteString("twilio:\n")
	cfg.WriteString("  account_sid: \"${TWILIO_ACCOUNT_SID}\"\n")
	cfg.WriteString("  auth_token: \"${TWILIO_AUTH_TOKEN}\"\n")
	cfg.WriteString(fmt.Sprintf("  from_number: %q\n", fromNumber))
	if defaultTo != "" {
		cfg.WriteString(fmt.Sprintf("  default_to: %q\n", defaultTo))
	}
	cfg.WriteString("\n")

	switch strings.ToLower(sink) {
	case "supabase":
		cfg.WriteString("supabase:\n")
		cfg.WriteString("  url: \"${SUPABASE_URL}\"\n")
		cfg.WriteString("  key: \"${SUPABASE_KEY}\"\n")
		cfg.WriteString("\n")
	case "sqlite":
		dbPath := prompt(reader, "SQLite database path", "sms-gateway.db")
		cfg.WriteString("database:\n")
		cfg.WriteString(fmt.Sprintf("  path: %q\n", dbPath))
		cfg.WriteString("\n")
	}

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", logFormat))

	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  sms-gateway serve\n")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
