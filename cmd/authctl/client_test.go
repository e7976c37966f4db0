package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Client{addr: srv.URL, token: "tok", operatorToken: "op", http: srv.Client()}
}

func TestClient_SendsCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "op", r.Header.Get("X-Operator-Token"))
		w.Write([]byte(`{"username":"alice"}`)) //nolint:errcheck
	})

	res, err := c.get("/api/v1/auth/me")
	require.NoError(t, err)
	assert.Equal(t, "alice", res["username"])
}

func TestClient_ErrorEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusLocked)
		w.Write([]byte(`{"errors":["account locked"],"remaining_minutes":7}`)) //nolint:errcheck
	})

	_, err := c.post("/api/v1/auth/login", map[string]string{"username": "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account locked")
	assert.Contains(t, err.Error(), "7")
}

func TestClient_NoContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})
	assert.NoError(t, c.delete("/api/v1/sys/revocations"))
}

func TestClient_NonJSONError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	_, err := c.get("/health")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestConfigRoundTrip(t *testing.T) {
	t.Setenv("MEMBERAUTH_CLI_CONFIG", filepath.Join(t.TempDir(), "cli.yaml"))

	loadConfig()
	assert.Equal(t, "http://127.0.0.1:8080", cfg.Address)

	cfg.Token = "saved"
	cfg.Username = "alice"
	require.NoError(t, saveConfig())

	cfg = CLIConfig{}
	loadConfig()
	assert.Equal(t, "saved", cfg.Token)
	assert.Equal(t, "alice", cfg.Username)
}

func TestPrintResultFormats(t *testing.T) {
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev; outputFormat = ""; outputField = "" })

	data := map[string]any{"role": "TRAINEE", "username": "alice"}

	outputFormat = "raw"
	outputField = "role"
	printResult(data)
	assert.Equal(t, "TRAINEE\n", buf.String())

	buf.Reset()
	outputField = ""
	printResult(data)
	assert.Equal(t, "role=TRAINEE\nusername=alice\n", buf.String())

	buf.Reset()
	outputFormat = "json"
	printResult(data)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, data, decoded)
}

func TestPrintEventsTable(t *testing.T) {
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev; outputFormat = "" })
	outputFormat = "table"

	printEvents(map[string]any{"data": []any{
		map[string]any{"Username": "alice", "Action": "login", "Outcome": "locked"},
	}})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "OUTCOME")
	assert.Contains(t, lines[1], "locked")
}
