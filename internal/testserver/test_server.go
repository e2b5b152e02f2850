package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/civicwatch/civicwatch/internal/app"
	"github.com/civicwatch/civicwatch/internal/config"
	"github.com/civicwatch/civicwatch/internal/domain/user"
	"github.com/civicwatch/civicwatch/internal/transport"
)

// TestServer is a running civicwatch over a per-test in-memory database.
type TestServer struct {
	Server *httptest.Server
	App    *app.App
}

// New starts a server with authentication enabled.
func New(t *testing.T) *TestServer {
	t.Helper()

	cfg := config.Default()
	cfg.DB.Path = fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	cfg.Transport.Mode = "http"
	cfg.Auth.Enabled = true
	cfg.Ingest.RetryInterval = 20 * time.Millisecond

	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Eventually(t, a.Ready, 2*time.Second, 5*time.Millisecond)

	server := httptest.NewServer(a.Router())
	t.Cleanup(func() {
		server.Close()
		_ = a.Close()
	})

	return &TestServer{Server: server, App: a}
}

// AddUser creates a user with role and returns a bearer token for it.
func (ts *TestServer) AddUser(t *testing.T, id string, role user.Role) string {
	t.Helper()
	ctx := context.Background()
	_, err := ts.App.Users.EnsureUser(ctx, user.EnsureRequest{ID: id, Role: role, Method: "test"})
	require.NoError(t, err)
	token, err := ts.App.Users.IssueAPIKey(ctx, id, "test")
	require.NoError(t, err)
	return token
}

// Call posts a JSON-RPC request to /rpc. An empty token sends no
// Authorization header.
func (ts *TestServer) Call(t *testing.T, token, method string, params any) transport.Response {
	t.Helper()
	payload := map[string]any{"jsonrpc": "2.0", "method": method, "id": 1}
	if params != nil {
		payload["params"] = params
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/rpc", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded transport.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}

// Decode re-marshals a JSON-RPC result into out.
func Decode(t *testing.T, resp transport.Response, out any) {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected error: %+v", resp.Error)
	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}
