package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/xdswitch/control"
	"github.com/hazyhaar/xdswitch/cookies"
	"github.com/hazyhaar/xdswitch/dbopen"
	"github.com/hazyhaar/xdswitch/indicator"
	"github.com/hazyhaar/xdswitch/internal/browser"
	"github.com/hazyhaar/xdswitch/internal/config"
	"github.com/hazyhaar/xdswitch/journal"
	"github.com/hazyhaar/xdswitch/modewriter"
	"github.com/hazyhaar/xdswitch/prefstore"
	"github.com/hazyhaar/xdswitch/reconcile"
	"github.com/hazyhaar/xdswitch/tabrouter"
)

var (
	serveRemote    string
	serveHeadless  bool
	serveAddr      string
	serveStdio     bool
	serveEphemeral bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon: watch tabs, reconcile cookies, serve the control API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		level, err := config.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		// Logs go to stderr; stdout belongs to the MCP stdio transport.
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := serve(ctx, cfg, logger); err != nil {
			logger.Error("xdswitch: fatal", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveRemote, "remote", "", "DevTools WebSocket URL of a running Chrome")
	f.BoolVar(&serveHeadless, "headless", false, "launch Chrome headless")
	f.StringVar(&serveAddr, "addr", "", "control API listen address, e.g. 127.0.0.1:7717")
	f.BoolVar(&serveStdio, "mcp-stdio", false, "serve MCP tools on stdin/stdout")
	f.BoolVar(&serveEphemeral, "ephemeral", false, "keep site preferences in memory only")
}

// loadConfig reads the file (if any) and lets explicit flags override it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadFile(configPath); err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("remote") {
		cfg.Browser.Remote = serveRemote
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = serveHeadless
	}
	if flags.Changed("addr") {
		cfg.HTTP.Addr = serveAddr
	}
	if flags.Changed("mcp-stdio") {
		cfg.MCP.Stdio = serveStdio
	}
	if flags.Changed("ephemeral") {
		cfg.Store.Ephemeral = serveEphemeral
	}
	return cfg, cfg.Validate()
}

// buildSinks creates the indicator sinks named in cfg. Terminal output goes
// to out, which is stderr when MCP owns stdout.
func buildSinks(cfg *config.Config, out io.Writer, logger *slog.Logger) []indicator.Sink {
	var sinks []indicator.Sink
	for _, s := range cfg.Indicator.Sinks {
		switch s.Type {
		case "stdout":
			sinks = append(sinks, indicator.NewStdout(out))
		case "term":
			sinks = append(sinks, indicator.NewTerm(out))
		case "webhook":
			sinks = append(sinks, indicator.NewWebhook(s.URL,
				indicator.WithWebhookRetries(s.Retries),
				indicator.WithWebhookLogger(logger)))
		}
	}
	return sinks
}

// openStore returns the preference store and, when it is SQLite-backed,
// the database handle (nil for an ephemeral store).
func openStore(cfg *config.Config) (prefstore.Store, *sql.DB, error) {
	if cfg.Store.Ephemeral {
		return prefstore.NewMemory(), nil, nil
	}
	db, err := dbopen.Open(cfg.Store.Path, dbopen.WithMkdirAll(),
		dbopen.WithSchema(prefstore.Schema), dbopen.WithSchema(journal.Schema))
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return prefstore.NewSQLite(db), db, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	var jrnl *journal.Journal
	if db != nil && cfg.Journal.Enabled {
		jrnl = journal.New(db, logger)
		if err := jrnl.Cleanup(ctx, cfg.Journal.RetentionDays); err != nil {
			logger.Warn("xdswitch: journal cleanup failed", "error", err)
		}
	}

	sinkOut := io.Writer(os.Stdout)
	if cfg.MCP.Stdio {
		sinkOut = os.Stderr
	}
	sink := indicator.NewRouter(logger, buildSinks(cfg, sinkOut, logger)...)
	defer sink.Close()

	mgr := browser.NewManager(browser.Config{
		RemoteURL:   cfg.Browser.Remote,
		Headless:    cfg.Browser.Headless,
		Bin:         cfg.Browser.Bin,
		UserDataDir: cfg.Browser.UserDataDir,
		Logger:      logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return err
	}
	defer mgr.Close()

	tabs := browser.NewTabs(mgr)
	jar := browser.NewJar(mgr)
	oracle := cookies.NewOracle(jar)
	epochs := reconcile.NewEpochs()

	recOpts := []reconcile.Option{reconcile.WithEpochs(epochs), reconcile.WithLogger(logger)}
	wOpts := []modewriter.Option{modewriter.WithEpochs(epochs), modewriter.WithLogger(logger)}
	if jrnl != nil {
		recOpts = append(recOpts, reconcile.WithRecorder(jrnl))
		wOpts = append(wOpts, modewriter.WithRecorder(jrnl))
	}
	rec := reconcile.New(store, oracle, recOpts...)
	writer := modewriter.New(jar, store, sink, tabs, wOpts...)
	router := tabrouter.New(tabs, store, rec, sink, logger)
	pump := browser.NewPump(mgr, func(ctx context.Context, ev tabrouter.Event) {
		router.Handle(ctx, ev)
	}, logger)

	svc := &control.Service{
		Tabs:       tabs,
		Activator:  pump,
		Writer:     writer,
		Reconciler: rec,
		Detector:   oracle,
		Store:      store,
		Sink:       sink,
		Logger:     logger,
	}
	if jrnl != nil {
		svc.Journal = jrnl
	}

	errc := make(chan error, 3)

	go func() { errc <- pump.Run(ctx) }()

	if db != nil && cfg.Store.Watch > 0 {
		go prefstore.Watch(ctx, db, cfg.Store.Watch, logger, func() {
			logger.Info("xdswitch: preference store changed on disk")
		})
	}

	var srv *http.Server
	if cfg.HTTP.Addr != "" {
		srv = &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           control.NewHandler(svc, cfg.HTTP.TokenHash, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("xdswitch: control API listening", "addr", cfg.HTTP.Addr, "auth", cfg.HTTP.TokenHash != "")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("http: %w", err)
			}
		}()
	}

	if cfg.MCP.Stdio {
		mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "xdswitch", Version: version}, nil)
		svc.RegisterMCP(mcpSrv)
		go func() {
			logger.Info("xdswitch: MCP on stdio")
			errc <- mcpSrv.Run(ctx, &mcp.StdioTransport{})
		}()
	}

	logger.Info("xdswitch: started",
		"store", storeName(cfg), "journal", jrnl != nil, "sinks", len(cfg.Indicator.Sinks))

	select {
	case <-ctx.Done():
	case err = <-errc:
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}
	logger.Info("xdswitch: stopped")
	return err
}

func storeName(cfg *config.Config) string {
	if cfg.Store.Ephemeral {
		return "memory"
	}
	return cfg.Store.Path
}
