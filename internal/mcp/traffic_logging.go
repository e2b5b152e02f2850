package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/civicwatch/civicwatch/internal/domain/user"
)

const (
	outcomeOK        = "OK"
	outcomeToolError = "TOOL_ERROR"
	outcomeProtocol  = "PROTOCOL_ERROR"
)

var toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "civicwatch_mcp_tool_calls_total",
	Help: "MCP tool calls by tool, caller role and outcome code.",
}, []string{"tool", "role", "outcome"})

// toolAuditMiddleware records every inbound tools/call with the caller, the
// tool and the domain outcome code (BUSY, CLEANUP_PARTIAL, ...).
func toolAuditMiddleware(logger *slog.Logger) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if method != "tools/call" {
				return next(ctx, method, req)
			}
			start := time.Now()
			result, err := next(ctx, method, req)

			p := user.PrincipalFrom(ctx)
			role := string(p.Role)
			if role == "" {
				role = "none"
			}
			tool := toolName(safeParams(req))
			outcome := outcomeCode(result, err)
			toolCallsTotal.WithLabelValues(tool, role, outcome).Inc()

			if logger != nil {
				attrs := []any{"tool", tool, "principal_id", p.ID, "role", role, "outcome", outcome, "duration", time.Since(start)}
				if outcome == outcomeOK {
					logger.Info("mcp_tool_call", attrs...)
				} else {
					logger.Warn("mcp_tool_call", attrs...)
				}
			}
			return result, err
		}
	}
}

// trafficLoggingMiddleware dumps raw MCP payloads at debug level.
func trafficLoggingMiddleware(logger *slog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if logger == nil || !logger.Enabled(ctx, slog.LevelDebug) {
				return next(ctx, method, req)
			}

			principalID := user.PrincipalFrom(ctx).ID
			logger.Debug("mcp_traffic", "direction", direction, "stage", "request", "method", method,
				"principal_id", principalID, "params", formatPayload(safeParams(req)))

			result, err := next(ctx, method, req)
			if !strings.HasPrefix(method, "notifications/") {
				logger.Debug("mcp_traffic", "direction", direction, "stage", "response", "method", method,
					"principal_id", principalID, "outcome", outcomeCode(result, err), "result", formatPayload(result))
			}
			return result, err
		}
	}
}

// toolName reads the tool name from tools/call params without depending on
// the concrete params type.
func toolName(params any) string {
	data, err := json.Marshal(params)
	if err != nil {
		return "unknown"
	}
	var named struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(data, &named) != nil || named.Name == "" {
		return "unknown"
	}
	return named.Name
}

// outcomeCode classifies a response. Tool failures carry "<CODE>: message"
// text from APIError.
func outcomeCode(result sdkmcp.Result, err error) string {
	if err != nil {
		return outcomeProtocol
	}
	res, ok := result.(*sdkmcp.CallToolResult)
	if !ok || res == nil || !res.IsError {
		return outcomeOK
	}
	for _, content := range res.Content {
		if text, ok := content.(*sdkmcp.TextContent); ok {
			return errorCodeOf(text.Text)
		}
	}
	return outcomeToolError
}

func errorCodeOf(text string) string {
	code, _, found := strings.Cut(text, ":")
	if !found || code == "" {
		return outcomeToolError
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && r != '_' {
			return outcomeToolError
		}
	}
	return code
}

func safeParams(req sdkmcp.Request) any {
	if req == nil {
		return nil
	}
	defer func() { recover() }()
	return req.GetParams()
}

func formatPayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	return string(data)
}
