package mcp

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/civicwatch/civicwatch/internal/analytics"
	"github.com/civicwatch/civicwatch/internal/domain/report"
	"github.com/civicwatch/civicwatch/internal/remediation"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestToolAudit_LogsToolAndOutcomeCode(t *testing.T) {
	var logs lockedBuffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo}))
	session := connectLoggedClient(t, Services{
		Remediation: remediationStub{
			snapshot: testSnapshot(),
			markFn: func(context.Context, string, report.Status) error {
				return remediation.ErrBusy
			},
		},
		Reports:   reportStub{},
		Activity:  activityStub{},
		Analytics: analytics.DefaultOptions(),
	}, logger)
	ctx := context.Background()

	_, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "whoami", Arguments: map[string]any{}})
	require.NoError(t, err)
	_, err = session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "mark_status",
		Arguments: map[string]any{"id": "r1", "status": "cleaned"},
	})
	require.NoError(t, err)

	out := logs.String()
	require.Contains(t, out, "level=INFO msg=mcp_tool_call tool=whoami principal_id=local role=admin outcome=OK")
	require.Contains(t, out, "level=WARN msg=mcp_tool_call tool=mark_status principal_id=local role=admin outcome=BUSY")
	require.NotContains(t, out, "mcp_traffic")
}

func TestOutcomeCode(t *testing.T) {
	errResult := func(text string) *sdkmcp.CallToolResult {
		return &sdkmcp.CallToolResult{IsError: true, Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: text}}}
	}

	require.Equal(t, outcomeOK, outcomeCode(&sdkmcp.CallToolResult{}, nil))
	require.Equal(t, outcomeOK, outcomeCode(nil, nil))
	require.Equal(t, outcomeProtocol, outcomeCode(nil, errors.New("boom")))
	require.Equal(t, "CLEANUP_PARTIAL", outcomeCode(errResult(`CLEANUP_PARTIAL: cleanup of "Park": 1 of 2 updates failed (r3)`), nil))
	require.Equal(t, outcomeToolError, outcomeCode(errResult("invalid params: missing id"), nil))
	require.Equal(t, outcomeToolError, outcomeCode(&sdkmcp.CallToolResult{IsError: true}, nil))
}

func TestToolName(t *testing.T) {
	require.Equal(t, "cleanup_location", toolName(map[string]any{"name": "cleanup_location", "arguments": map[string]any{}}))
	require.Equal(t, "unknown", toolName(nil))
	require.Equal(t, "unknown", toolName(map[string]any{"uri": "civicwatch://docs/index"}))
}
