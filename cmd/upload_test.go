package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/venue-atlas/internal/config"
)

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestUploadFile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/imports/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("api_key"))
		_, _ = io.WriteString(w, `{"item_queue_id":"job-9","success":true}`)
	})
	mux.HandleFunc("GET /api/v1/imports/job-9", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"state":"complete","success":true,"table_name":"boston_ma"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	withConfig(t, &config.Config{Upload: config.UploadConfig{Key: "k", BaseURL: srv.URL}})

	path := filepath.Join(t.TempDir(), "boston_ma.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"FeatureCollection","features":[]}`), 0o644))

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	require.NoError(t, uploadFile(context.Background(), cmd, path))
	assert.Contains(t, out.String(), "table boston_ma")
	assert.Contains(t, out.String(), "job-9")
}

func TestUploadFile_MissingKey(t *testing.T) {
	withConfig(t, &config.Config{Upload: config.UploadConfig{Account: "acct"}})

	err := uploadFile(context.Background(), &cobra.Command{}, "x.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload.key is required")
}
