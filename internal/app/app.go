// Package app assembles civicwatch from configuration: storage, change
// feed, ingestion, remediation and the MCP/HTTP surfaces.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/civicwatch/civicwatch/internal/analytics"
	"github.com/civicwatch/civicwatch/internal/config"
	"github.com/civicwatch/civicwatch/internal/domain/activity"
	"github.com/civicwatch/civicwatch/internal/domain/report"
	"github.com/civicwatch/civicwatch/internal/domain/user"
	"github.com/civicwatch/civicwatch/internal/feed"
	"github.com/civicwatch/civicwatch/internal/ingest"
	"github.com/civicwatch/civicwatch/internal/kafkabus"
	"github.com/civicwatch/civicwatch/internal/mcp"
	"github.com/civicwatch/civicwatch/internal/remediation"
	"github.com/civicwatch/civicwatch/internal/sqlite"
	"github.com/civicwatch/civicwatch/internal/store"
	"github.com/civicwatch/civicwatch/internal/transport"
)

// Version is reported by the MCP server and the version command.
var Version = "dev"

const shutdownTimeout = 5 * time.Second

// App holds every wired component.
type App struct {
	Config      config.Config
	Logger      *slog.Logger
	DB          *sqlite.DB
	Store       *store.Store
	Reports     *report.Service
	Users       *user.Service
	Activity    *activity.Service
	Coordinator *remediation.Coordinator
	Handler     *mcp.Handler
	MCP         *sdkmcp.Server

	handle *ingest.Handle
	mirror *kafkabus.Mirror
}

// Open opens the database and builds the storage-side services. It does not
// start ingestion; use New for a running application.
func Open(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("preparing database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, DB: db}

	reportRepo := sqlite.NewReportRepository(db)
	a.Reports = report.NewService(reportRepo, sqlite.NewSearchRepository(db), logger)
	a.Users = user.NewService(sqlite.NewUserRepository(db), logger)
	a.Activity = activity.NewService(sqlite.NewActivityRepository(db), logger)

	var mirror store.Mirror
	if cfg.Kafka.Enabled() {
		a.mirror, err = kafkabus.NewMirror(kafkaConfig(cfg), logger)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("creating kafka mirror: %w", err)
		}
		mirror = a.mirror
	}
	a.Store = store.New(reportRepo, mirror, logger)
	return a, nil
}

// New opens the application and subscribes the ingestor. It fails with an
// *ingest.IngestFailure when the change feed cannot be opened.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a, err := Open(cfg, logger)
	if err != nil {
		return nil, err
	}

	var source feed.Source = a.Store
	if cfg.Kafka.Enabled() && cfg.Kafka.Consume {
		source, err = kafkabus.NewSource(kafkaConfig(cfg), a.Logger)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("creating kafka source: %w", err)
		}
	}

	ingestor := ingest.New(source, ingest.Options{
		RetryInterval: cfg.Ingest.RetryInterval,
		Logger:        a.Logger,
	})
	a.handle, err = ingestor.Subscribe(ctx, feed.Filter{})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Coordinator = remediation.New(a.Store, a.handle.Live(), remediation.Options{
		Notifier: remediation.Notifiers{Journal(a.Activity, a.Logger)},
		Logger:   a.Logger,
	})

	services := mcp.Services{
		Reports:     a.Reports,
		Remediation: a.Coordinator,
		Activity:    a.Activity,
		Analytics:   analytics.Options{TopN: cfg.Analytics.TopN, Window: cfg.Analytics.Window},
	}
	a.Handler = mcp.NewHandler(services)
	a.MCP = mcp.NewServer(mcp.Config{
		Services:      services,
		Resolver:      a.Users,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		Version:       Version,
		Logger:        a.Logger,
	})
	return a, nil
}

// Snapshot returns the live snapshot.
func (a *App) Snapshot() report.Snapshot {
	return a.handle.Current()
}

// Ready reports whether the first batch has been ingested.
func (a *App) Ready() bool {
	return a.handle != nil && a.handle.Current().Version > 0
}

// Router builds the HTTP surface: JSON-RPC, streamable MCP, health and
// metrics.
func (a *App) Router() http.Handler {
	auth := transport.StaticPrincipal(mcp.LocalPrincipal)
	if a.Config.Auth.Enabled {
		auth = transport.AuthMiddleware(a.Users)
	}
	streamable := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return a.MCP },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
	)
	return transport.NewServer(a.Handler, transport.Options{
		Auth:  auth,
		MCP:   streamable,
		Ready: a.Ready,
	})
}

// Serve runs the configured transport until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.watch(ctx)
		return nil
	})

	if a.Config.Transport.Mode == "stdio" {
		a.Logger.Info("starting stdio transport", "auth", "disabled")
		g.Go(func() error {
			return a.MCP.Run(ctx, &sdkmcp.StdioTransport{})
		})
		return g.Wait()
	}

	addr := fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		a.Logger.Info("server listening", "addr", addr, "auth", a.Config.Auth.Enabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.Logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// watch logs snapshot updates and ingest failures until ctx ends.
func (a *App) watch(ctx context.Context) {
	updates, failures := a.handle.Updates(), a.handle.Failures()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			trend := analytics.DetectTrend(snap)
			a.Logger.Debug("snapshot_updated", "version", snap.Version, "reports", snap.Len(), "trend", analytics.Summarize(trend))
		case err, ok := <-failures:
			if !ok {
				return
			}
			a.Logger.Warn("feed_unavailable", "error", err, "retry_in", a.Config.Ingest.RetryInterval)
		}
	}
}

// Close stops ingestion and releases every resource.
func (a *App) Close() error {
	if a.handle != nil {
		a.handle.Close()
	}
	var errs []error
	if a.mirror != nil {
		errs = append(errs, a.mirror.Close())
	}
	errs = append(errs, a.DB.Close())
	return errors.Join(errs...)
}

func kafkaConfig(cfg config.Config) kafkabus.Config {
	return kafkabus.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
