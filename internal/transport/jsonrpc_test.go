package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	body := bytes.NewBufferString(`{"jsonrpc":"2.0","method":"test","params":{"a":1},"id":1}`)
	req, err := ParseRequest(body)
	require.NoError(t, err)
	require.Equal(t, "2.0", req.JSONRPC)
	require.Equal(t, "test", req.Method)
	require.Equal(t, json.RawMessage(`{"a":1}`), req.Params)
}

func TestParseRequest_Invalid(t *testing.T) {
	body := bytes.NewBufferString(`{"jsonrpc":"2.0","id":1}`)
	_, err := ParseRequest(body)
	require.Error(t, err)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, 1, ErrInvalidParams, "bad params", nil)

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), `"error"`)
}

type busyError struct{}

func (busyError) Error() string             { return "BUSY: operation already in progress" }
func (busyError) CodeValue() string         { return "BUSY" }
func (busyError) MessageValue() string      { return "operation already in progress" }
func (busyError) DetailsValue() any         { return nil }
func (busyError) RecoveryHintValue() string { return "retry later" }

func TestWriteHandlerError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteHandlerError(rec, 7, fmt.Errorf("mark r1: %w", busyError{}))

	var resp struct {
		Error struct {
			Code    int       `json:"code"`
			Message string    `json:"message"`
			Data    ErrorData `json:"data"`
		} `json:"error"`
		ID int `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, ErrDomain, resp.Error.Code)
	require.Equal(t, "operation already in progress", resp.Error.Message)
	require.Equal(t, ErrorData{Code: "BUSY", RecoveryHint: "retry later"}, resp.Error.Data)
	require.Equal(t, 7, resp.ID)

	rec = httptest.NewRecorder()
	WriteHandlerError(rec, 8, errors.New("disk full"))
	require.Contains(t, rec.Body.String(), `"code":-32603`)
	require.Contains(t, rec.Body.String(), "disk full")
}
