package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/civicwatch/civicwatch/internal/analytics"
	"github.com/civicwatch/civicwatch/internal/domain/activity"
	"github.com/civicwatch/civicwatch/internal/domain/report"
	"github.com/civicwatch/civicwatch/internal/domain/user"
	"github.com/civicwatch/civicwatch/internal/remediation"
)

// ReportService defines stored-report reads needed by MCP.
type ReportService interface {
	Search(ctx context.Context, query string, opts report.SearchOptions) ([]report.SearchResult, error)
}

// RemediationService defines live snapshot access and mutations.
type RemediationService interface {
	Snapshot() report.Snapshot
	MarkStatus(ctx context.Context, id string, status report.Status) error
	CleanupLocation(ctx context.Context, loc string, opts remediation.CleanupOptions) (remediation.CleanupResult, error)
	Submit(ctx context.Context, req report.SubmitRequest) (report.Report, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Reports     ReportService
	Remediation RemediationService
	Activity    ActivityService
	Analytics   analytics.Options
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      PrincipalResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	Version       string
	Logger        *slog.Logger
}

// LocalPrincipal is the caller when authentication is disabled.
var LocalPrincipal = user.Principal{ID: "local", Role: user.RoleAdmin}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "civicwatch",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Each call wraps the handler built so far, so the principal middleware
	// is added last to run first.
	server.AddReceivingMiddleware(toolAuditMiddleware(cfg.Logger))
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	// Stdio is a local operator console and never authenticates.
	if cfg.TransportMode == "stdio" || !cfg.AuthEnabled {
		server.AddReceivingMiddleware(noAuthMiddleware(LocalPrincipal))
	} else {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	}
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, NewHandler(cfg.Services))

	return server
}
