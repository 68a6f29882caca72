package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/officekit/workspace-mcp/pkg/auth"
	"github.com/officekit/workspace-mcp/pkg/config"
	"github.com/officekit/workspace-mcp/pkg/gworkspace"
	"github.com/officekit/workspace-mcp/pkg/logging"
	"github.com/officekit/workspace-mcp/pkg/observability"
	"github.com/officekit/workspace-mcp/pkg/server"
	"github.com/officekit/workspace-mcp/pkg/transport"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	rootFlagSet := flag.NewFlagSet("workspace-mcp", flag.ContinueOnError)

	serveFlagSet := flag.NewFlagSet("workspace-mcp serve", flag.ContinueOnError)
	var (
		configDir    = serveFlagSet.String("config-dir", "", "configuration directory (default: user config dir)")
		logLevel     = serveFlagSet.String("log-level", "info", "log level: debug, info, warn, error")
		metricsAddr  = serveFlagSet.String("metrics-addr", "", "expose Prometheus metrics on this address (disabled when empty)")
		otlpEndpoint = serveFlagSet.String("otlp-endpoint", "", "export traces to this OTLP HTTP endpoint (disabled when empty)")
		otlpInsecure = serveFlagSet.Bool("otlp-insecure", false, "export traces over plain HTTP instead of TLS")
		watchToken   = serveFlagSet.Bool("watch-token", false, "reload credentials when the token file changes on disk")
	)

	serveCmd := &ffcli.Command{
		Name:       "serve",
		ShortUsage: "workspace-mcp serve [flags]",
		ShortHelp:  "Serve MCP over stdin/stdout",
		LongHelp: `Serve the Model Context Protocol over stdin/stdout.

Requests arrive as line-delimited JSON-RPC 2.0 on stdin; responses leave
on stdout. Diagnostics go to a log file, never to stdout. The server
exits 0 when stdin closes or on SIGINT/SIGTERM.

Flags may also be set through WORKSPACE_MCP_* environment variables,
e.g. WORKSPACE_MCP_LOG_LEVEL=debug.`,
		FlagSet: serveFlagSet,
		Options: []ff.Option{ff.WithEnvVarPrefix("WORKSPACE_MCP")},
		Exec: func(ctx context.Context, args []string) error {
			return runServe(ctx, serveOptions{
				configDir:    *configDir,
				logLevel:     *logLevel,
				metricsAddr:  *metricsAddr,
				otlpEndpoint: *otlpEndpoint,
				otlpInsecure: *otlpInsecure,
				watchToken:   *watchToken,
			})
		},
	}

	authFlagSet := flag.NewFlagSet("workspace-mcp authenticate", flag.ContinueOnError)
	authConfigDir := authFlagSet.String("config-dir", "", "configuration directory (default: user config dir)")

	authenticateCmd := &ffcli.Command{
		Name:       "authenticate",
		ShortUsage: "workspace-mcp authenticate [flags]",
		ShortHelp:  "Run the interactive Google authorization flow",
		LongHelp: `Run the interactive OAuth2 authorization flow.

Prints a consent URL to open in a browser, waits for the redirect on a
local port, and stores the resulting token. Requires credentials.json
(the OAuth client configuration from the Google Cloud console) in the
configuration directory.`,
		FlagSet: authFlagSet,
		Options: []ff.Option{ff.WithEnvVarPrefix("WORKSPACE_MCP")},
		Exec: func(ctx context.Context, args []string) error {
			return runAuthenticate(ctx, *authConfigDir)
		},
	}

	versionCmd := &ffcli.Command{
		Name:       "version",
		ShortUsage: "workspace-mcp version",
		ShortHelp:  "Print the version",
		Exec: func(ctx context.Context, args []string) error {
			fmt.Printf("workspace-mcp %s\n", version)
			return nil
		},
	}

	root := &ffcli.Command{
		ShortUsage:  "workspace-mcp [<command>] [flags]",
		ShortHelp:   "MCP server for Gmail, Google Calendar and Google Contacts",
		FlagSet:     rootFlagSet,
		Subcommands: []*ffcli.Command{serveCmd, authenticateCmd, versionCmd},
		Exec: func(ctx context.Context, args []string) error {
			// No subcommand means serve, so MCP client configurations can
			// point at the bare binary.
			return serveCmd.ParseAndRun(ctx, args)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ParseAndRun(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type serveOptions struct {
	configDir    string
	logLevel     string
	metricsAddr  string
	otlpEndpoint string
	otlpInsecure bool
	watchToken   bool
}

func runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := config.Resolve(opts.configDir)
	if err != nil {
		return err
	}
	if err := cfg.RequireCredentials(); err != nil {
		return err
	}

	logger, logCloser, err := logging.NewFileLogger(cfg.LogPath)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	logger.SetLevel(logging.ParseLevel(opts.logLevel))

	store := auth.NewFileStore(cfg.TokenPath)
	authenticator, err := auth.NewAuthenticator(cfg.CredentialsPath, store)
	if err != nil {
		return err
	}

	toolset := gworkspace.NewToolSet(func(ctx context.Context) (*gworkspace.Clients, error) {
		client, err := authenticator.Client(ctx)
		if err != nil {
			return nil, err
		}
		return gworkspace.NewClients(ctx, client)
	}, authenticator.Status)

	var metrics *observability.Metrics
	if opts.metricsAddr != "" {
		metrics = observability.NewMetrics()
		if err := metrics.Serve(opts.metricsAddr); err != nil {
			return err
		}
		defer func() {
			_ = metrics.Shutdown(context.Background())
		}()
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:    "workspace-mcp",
		ServiceVersion: version,
		Endpoint:       opts.otlpEndpoint,
		Insecure:       opts.otlpInsecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = shutdownTracing(context.Background())
	}()

	serverOpts := []server.Option{
		server.WithName("workspace-mcp"),
		server.WithVersion(version),
		server.WithLogger(logger),
		server.WithMetrics(metrics),
	}
	serverOpts = append(serverOpts, toolset.Options()...)
	srv := server.New(serverOpts...)

	if opts.watchToken {
		go func() {
			err := auth.WatchToken(ctx, cfg.TokenPath, logger, func() {
				toolset.Reset()
				srv.ResetConnection()
			})
			if err != nil {
				logger.Warn("token watcher stopped", logging.ErrorField(err))
			}
		}()
	}

	logger.Info("serving MCP over stdio",
		logging.String("version", version),
		logging.String("config_dir", cfg.Dir))

	stdio := transport.NewStdio(os.Stdin, os.Stdout, srv, logger)
	return stdio.Serve(ctx)
}

func runAuthenticate(ctx context.Context, configDir string) error {
	cfg, err := config.Resolve(configDir)
	if err != nil {
		return err
	}
	if err := cfg.RequireCredentials(); err != nil {
		return err
	}

	store := auth.NewFileStore(cfg.TokenPath)
	authenticator, err := auth.NewAuthenticator(cfg.CredentialsPath, store)
	if err != nil {
		return err
	}

	state := logging.NewRequestID()
	callback, err := auth.NewCallbackServer("127.0.0.1:0", state)
	if err != nil {
		return err
	}

	fmt.Println("Open this URL in a browser to authorize access:")
	fmt.Println()
	fmt.Println("  " + authenticator.AuthURL(callback.RedirectURL(), state))
	fmt.Println()
	fmt.Println("Waiting for authorization...")

	code, err := callback.WaitForCode(ctx)
	if err != nil {
		return err
	}

	if _, err := authenticator.Exchange(ctx, callback.RedirectURL(), code); err != nil {
		return err
	}

	fmt.Printf("Authorization complete. Token saved to %s\n", cfg.TokenPath)
	return nil
}
