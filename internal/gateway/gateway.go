// ABOUTME: Gateway orchestrator wiring config, SMS client, store, and MCP transports
// ABOUTME: Manages the HTTP server lifecycle including optional Tailscale listeners

package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"tailscale.com/tsnet"

	"github.com/2389/sms-gateway/internal/config"
	"github.com/2389/sms-gateway/internal/mcp"
	"github.com/2389/sms-gateway/internal/notify"
	"github.com/2389/sms-gateway/internal/sms"
	"github.com/2389/sms-gateway/internal/store"
)

// Gateway orchestrates the sms-gateway server components: the notification
// dispatcher, the MCP HTTP/SSE transports, and the optional persistence sink.
type Gateway struct {
	config      *config.Config
	store       store.Store
	smsClient   *sms.Client
	dispatcher  *notify.Dispatcher
	mcpServer   *mcp.Server
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger
}

// initStore creates the persistence sink based on config. Returns nil when
// no sink is configured; a nil sink disables send logging without affecting
// sends.
func initStore(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if cfg.Supabase.URL != "" {
		return store.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.Key, logger)
	}
	if cfg.Database.Path != "" {
		return store.NewSQLiteStore(cfg.Database.Path, logger)
	}
	return nil, nil
}

// BuildDispatcher assembles the SMS client, persistence sink, and dispatcher
// from config. The returned client is nil when credentials are absent; the
// dispatcher then rejects invocations with a configuration error instead of
// the process refusing to start.
func BuildDispatcher(cfg *config.Config, logger *slog.Logger) (*notify.Dispatcher, *sms.Client, store.Store, error) {
	var smsClient *sms.Client
	var sender sms.Sender
	if cfg.Twilio.Configured() {
		smsClient = sms.NewClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, logger)
		sender = smsClient
		logger.Info("twilio client initialized", "from_number", cfg.Twilio.FromNumber)
	} else {
		logger.Warn("twilio client not initialized - missing credentials")
	}

	s, err := initStore(cfg, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing store: %w", err)
	}
	if s == nil {
		logger.Info("no persistence sink configured, send logging disabled")
	}

	dispatcher := notify.NewDispatcher(notify.Config{
		Sender:           sender,
		Store:            s,
		FromNumber:       cfg.Twilio.FromNumber,
		DefaultRecipient: cfg.Twilio.DefaultTo,
		Logger:           logger,
	})

	return dispatcher, smsClient, s, nil
}

// New creates a new Gateway instance with the given configuration.
func New(cfg *config.Config, version string, logger *slog.Logger) (*Gateway, error) {
	dispatcher, smsClient, s, err := BuildDispatcher(cfg, logger)
	if err != nil {
		return nil, err
	}

	registry := mcp.NewRegistry()
	router, err := mcp.NewRouter(mcp.RouterConfig{
		Registry:   registry,
		Dispatcher: dispatcher,
		Version:    version,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}

	mcpServer, err := mcp.NewServer(mcp.ServerConfig{
		Router: router,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	gw := &Gateway{
		config:     cfg,
		store:      s,
		smsClient:  smsClient,
		dispatcher: dispatcher,
		mcpServer:  mcpServer,
		logger:     logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", gw.handleHealth)
	mcpServer.RegisterRoutes(mux)

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// ValidateCredentials fetches provider account info to confirm the
// configured credentials work. No-op when the client is absent.
func (g *Gateway) ValidateCredentials() {
	if g.smsClient == nil {
		return
	}
	info, err := g.smsClient.AccountInfo()
	if err != nil {
		g.logger.Warn("could not validate twilio credentials", "error", err)
		return
	}
	g.logger.Info("twilio account validated",
		"account_sid", info.SID,
		"friendly_name", info.FriendlyName,
		"status", info.Status,
	)
}

// Run starts the gateway and blocks until the context is canceled or the
// server fails. Returns nil on graceful shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := g.setupListener(ctx)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown gracefully stops the gateway and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}

	g.mcpServer.Close()

	if g.tsnetServer != nil {
		if err := g.tsnetServer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("tailscale shutdown: %w", err))
		}
	}

	if g.store != nil {
		if err := g.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// setupListener creates the HTTP listener based on configuration
// (Tailscale or TCP).
func (g *Gateway) setupListener(ctx context.Context) (net.Listener, error) {
	if g.config.Tailscale.Enabled {
		if g.config.Server.HTTPAddr != "" {
			g.logger.Warn("server.http_addr is ignored when tailscale is enabled",
				"http_addr", g.config.Server.HTTPAddr,
			)
		}
		return g.setupTailscaleListener(ctx)
	}

	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// resolveTailscaleStateDir returns the state directory, using a default
// under the user's data dir if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "sms-gateway", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable")
	}
	return authKey, nil
}

// setupTailscaleListener creates a tsnet node and returns the HTTP listener.
func (g *Gateway) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := g.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, err
	}

	g.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	g.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := g.tsnetServer.Up(ctx)
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}

	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	g.logger.Info("tailscale node ready", "hostname", tsCfg.Hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)

	return g.createTailscaleHTTPListener(tsCfg)
}

// createTailscaleHTTPListener creates the appropriate listener based on the
// funnel/https settings.
func (g *Gateway) createTailscaleHTTPListener(tsCfg config.TailscaleConfig) (net.Listener, error) {
	switch {
	case tsCfg.Funnel:
		g.logger.Info("enabling tailscale funnel (public HTTPS) on :443")
		ln, err := g.tsnetServer.ListenFunnel("tcp", ":443")
		if err != nil {
			_ = g.tsnetServer.Close()
			return nil, fmt.Errorf("listening on tailscale funnel port: %w", err)
		}
		return ln, nil
	case tsCfg.HTTPS:
		return g.createTailscaleTLSListener()
	default:
		ln, err := g.tsnetServer.Listen("tcp", ":80")
		if err != nil {
			_ = g.tsnetServer.Close()
			return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
		}
		return ln, nil
	}
}

// createTailscaleTLSListener creates a TLS listener using Tailscale's
// auto-provisioned certs.
func (g *Gateway) createTailscaleTLSListener() (net.Listener, error) {
	g.logger.Info("enabling HTTPS with Tailscale certs on :443")
	ln, err := g.tsnetServer.Listen("tcp", ":443")
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("listening on tailscale HTTPS port: %w", err)
	}
	lc, err := g.tsnetServer.LocalClient()
	if err != nil {
		_ = ln.Close()
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("getting tailscale local client: %w", err)
	}
	return tls.NewListener(ln, &tls.Config{
		GetCertificate: lc.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}), nil
}
