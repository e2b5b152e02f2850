package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/civicwatch/civicwatch/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLogLevel("WARN"))
	require.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	require.Equal(t, slog.LevelError, parseLogLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLogLevel(""))
	require.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestLogFileWriter_KeepsTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "civicwatch.log")
	w, err := openLogFile(path, 10, 4)
	require.NoError(t, err)

	_, err = w.Write([]byte("0123456"))
	require.NoError(t, err)
	_, err = w.Write([]byte("789abc"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "9abc", string(data))
}

func TestNewLogger_StdioUsesStderr(t *testing.T) {
	t.Setenv(logPathEnv, "")
	var stdout, stderr bytes.Buffer

	cfg := config.Default()
	cfg.Transport.Mode = "stdio"
	logger, closeLog := newLogger(cfg, &stdout, &stderr)
	defer closeLog()
	logger.Info("hello")
	require.Empty(t, stdout.String())
	require.Contains(t, stderr.String(), "msg=hello")

	stderr.Reset()
	cfg.Transport.Mode = "http"
	cfg.Log.Level = "warn"
	logger, _ = newLogger(cfg, &stdout, &stderr)
	logger.Info("quiet")
	logger.Warn("loud")
	require.False(t, strings.Contains(stdout.String(), "quiet"))
	require.Contains(t, stdout.String(), "msg=loud")
}

func TestNewLogger_FileFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	t.Setenv(logPathEnv, path)
	var stdout, stderr bytes.Buffer

	logger, closeLog := newLogger(config.Default(), &stdout, &stderr)
	logger.Info("to file")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "to file")
	require.Empty(t, stderr.String())
}
