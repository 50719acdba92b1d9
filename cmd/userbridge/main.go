package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/userbridge/internal/api"
	"github.com/dusk-indust/userbridge/internal/config"
	"github.com/dusk-indust/userbridge/internal/directory"
	"github.com/dusk-indust/userbridge/internal/mcptools"
	"github.com/dusk-indust/userbridge/internal/reconcile"
	"github.com/dusk-indust/userbridge/internal/store"
)

// CLI flags parsed from command line.
type cliFlags struct {
	ConfigDir string
	HTTPAddr  string
	Store     string
	ServeMCP  bool
	Version   bool
}

// version is set by goreleaser at build time.
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var flags cliFlags

	fs := flag.NewFlagSet("userbridge", flag.ContinueOnError)
	fs.StringVar(&flags.ConfigDir, "config-dir", ".", "directory containing userbridge.yml")
	fs.StringVar(&flags.HTTPAddr, "http-addr", "", "HTTP listen address (overrides config)")
	fs.StringVar(&flags.Store, "store", "", "local store driver: memory, sqlite, postgres, mongo or kuzu (overrides config)")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "serve the MCP tools on stdio instead of the HTTP API")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Fprintln(stdout, version)
		return nil
	}

	cfg, err := config.Load(flags.ConfigDir)
	if err != nil {
		return err
	}
	if flags.HTTPAddr != "" {
		cfg.HTTPAddr = flags.HTTPAddr
	}
	if flags.Store != "" {
		cfg.Store.Driver = flags.Store
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	local, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	defer func() {
		if err := local.Close(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}()

	remote := directory.NewHTTPClient(
		directory.WithBaseURL(cfg.Directory.BaseURL),
		directory.WithUsersPath(cfg.Directory.UsersPath),
		directory.WithTimeout(cfg.Directory.Timeout),
		directory.WithLogger(logger.Named("directory")),
	)
	svc := reconcile.New(local, remote, logger.Named("reconcile"))

	logger.Info("starting userbridge",
		zap.String("version", version),
		zap.String("store", cfg.Store.Driver),
		zap.String("directory", cfg.Directory.BaseURL),
	)

	if flags.ServeMCP {
		return mcptools.RunStdio(ctx, svc)
	}
	return serve(ctx, cfg, svc, logger)
}

// serve runs the HTTP API, and the MCP endpoint when configured, until ctx is
// cancelled or one of them fails.
func serve(ctx context.Context, cfg *config.Config, svc *reconcile.Service, logger *zap.Logger) error {
	srv := api.NewServer(svc, logger.Named("api"))
	if err := srv.Start(ctx, cfg.HTTPAddr); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MCP.Addr != "" {
		g.Go(func() error {
			return mcptools.RunHTTP(gctx, svc, cfg.MCP.Addr, logger.Named("mcp"))
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Stop(shutdownCtx)
	})
	return g.Wait()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
