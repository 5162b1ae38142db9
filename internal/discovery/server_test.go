package discovery

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/gsgo/internal/config"
	"github.com/udisondev/gsgo/internal/testutil"
)

const serversINI = "[Servers]\nRouterIP0=127.0.0.1\nRouterPort0=7777\n"

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "servers.ini"), []byte(serversINI), 0o644))

	return NewServer("", []config.GameEntry{
		{ID: "HEROES_657d2c2ebadc6a1d", Dir: dir, File: "servers.ini"},
		{ID: "SPLINTERCELL3PS2US", Dir: dir, File: "GS.ini"},
	})
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestGSInit(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		target string
		status int
		body   string
	}{
		{"known game", "/gsinit.php?dp=HEROES_657d2c2ebadc6a1d", http.StatusOK, serversINI},
		{"unknown game", "/gsinit.php?dp=NOPE", http.StatusBadRequest, "Unknown game id"},
		{"no dp", "/gsinit.php", http.StatusBadRequest, "Unknown game id"},
		{"file missing", "/gsinit.php?dp=SPLINTERCELL3PS2US&user=noname", http.StatusNotFound, ""},
		{"other php", "/index.php?dp=HEROES_657d2c2ebadc6a1d", http.StatusBadRequest, "Unknown request"},
		{"nested path", "/a/gsinit.php", http.StatusBadRequest, "Unknown request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, s, tt.target)
			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestGSInit_Attachment(t *testing.T) {
	w := get(t, newTestServer(t), "/gsinit.php?dp=HEROES_657d2c2ebadc6a1d")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "servers.ini")
}

func TestServer_ServeAndShutdown(t *testing.T) {
	s := newTestServer(t)
	ln, addr := testutil.ListenTCP(t)
	testutil.ServeInBackground(t, func(ctx context.Context) error {
		return s.Serve(ctx, ln)
	})
	require.NoError(t, testutil.WaitForTCPReady(addr, 2*time.Second))

	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/gsinit.php?dp=HEROES_657d2c2ebadc6a1d")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, serversINI, string(body))
	assert.NotNil(t, s.Addr())
}
