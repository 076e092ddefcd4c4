package app

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukstats/sourcefetch/internal/status"
)

const sourcesTemplate = `outputDir: out
sources:
  - name: house_price_index
    type: direct_download
    url: %[1]s/hpi.csv
    method: GET
    file_type: csv
    output_file: hpi.csv
  - name: unemployment
    type: web_scrape
    url: %[1]s/labour-market
    method: GET
    parser: html.parser
    file_type: csv
    link_text: Download unemployment data
    output_file: labour/unemployment.csv
%[2]s`

const brokenSource = `  - name: rental_prices
    type: direct_download
    url: %s/gone.csv
    method: GET
    file_type: csv
    output_file: rents.csv
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/hpi.csv", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Date,AveragePrice\n2024-01-01,285000\n"))
	})
	mux.HandleFunc("/labour-market", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<p><a href="data/unemployment.csv">Download unemployment data</a></p>`))
	})
	mux.HandleFunc("/data/unemployment.csv", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("month,rate\n2024-01,4.2\n"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeSources(t *testing.T, serverURL, extra string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(sourcesTemplate, serverURL, extra)), 0600))
	return path
}

func testFetchOptions(configPath, statusDir string) fetchOptions {
	return fetchOptions{
		ConfigPath:  configPath,
		StatusDir:   statusDir,
		Concurrency: 2,
		Timeout:     5 * time.Second,
	}
}

func TestRunFetch(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	configPath := writeSources(t, server.URL, "")
	statusDir := t.TempDir()

	var out bytes.Buffer
	err := runFetch(context.Background(), testFetchOptions(configPath, statusDir), &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "2/2 sources completed extraction")
	assert.Contains(t, out.String(), "house_price_index")
	assert.NotContains(t, out.String(), "Failed sources")

	outDir := filepath.Join(filepath.Dir(configPath), "out")
	data, err := os.ReadFile(filepath.Join(outDir, "hpi.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Date,AveragePrice\n2024-01-01,285000\n", string(data))

	data, err = os.ReadFile(filepath.Join(outDir, "labour", "unemployment.csv"))
	require.NoError(t, err)
	assert.Equal(t, "month,rate\n2024-01,4.2\n", string(data))

	statuses, err := status.NewFileStatusPersistence(statusDir).LoadAllStatus(context.Background())
	require.NoError(t, err)
	assert.Len(t, statuses, 2)
	assert.True(t, statuses["unemployment"].IsSuccessful())
}

func TestRunFetch_SourceFailure(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	configPath := writeSources(t, server.URL, fmt.Sprintf(brokenSource, server.URL))

	var out bytes.Buffer
	err := runFetch(context.Background(), testFetchOptions(configPath, t.TempDir()), &out)
	require.ErrorIs(t, err, ErrSourcesFailed)
	assert.Contains(t, err.Error(), "rental_prices")

	assert.Contains(t, out.String(), "2/3 sources completed extraction")
	assert.Contains(t, out.String(), "Failed sources:")
	assert.Contains(t, out.String(), "rental_prices: rental_prices: FetchError")

	outDir := filepath.Join(filepath.Dir(configPath), "out")
	assert.FileExists(t, filepath.Join(outDir, "hpi.csv"))
	assert.NoFileExists(t, filepath.Join(outDir, "rents.csv"))
}

func TestRunFetch_Only(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	configPath := writeSources(t, server.URL, fmt.Sprintf(brokenSource, server.URL))

	opts := testFetchOptions(configPath, t.TempDir())
	opts.Only = []string{"house_price_index"}

	var out bytes.Buffer
	require.NoError(t, runFetch(context.Background(), opts, &out))
	assert.Contains(t, out.String(), "1/1 sources completed extraction")
}

func TestRunFetch_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing config path", func(t *testing.T) {
		t.Parallel()

		err := runFetch(context.Background(), testFetchOptions("", t.TempDir()), &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--config is required")
	})

	t.Run("invalid config does not touch the network", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "sources.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`sources:
  - name: rents
    type: direct_download
    url: http://127.0.0.1:1/rents.xlsx
    method: GET
    file_type: xlsx
    output_file: rents.csv
`), 0600))

		err := runFetch(context.Background(), testFetchOptions(path, t.TempDir()), &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sheet_name")
	})

	t.Run("another run holds the lock", func(t *testing.T) {
		t.Parallel()

		server := newTestServer(t)
		configPath := writeSources(t, server.URL, "")
		statusDir := t.TempDir()

		lock, err := status.AcquireRunLock(statusDir)
		require.NoError(t, err)
		defer func() { _ = lock.Release() }()

		err = runFetch(context.Background(), testFetchOptions(configPath, statusDir), &bytes.Buffer{})
		require.ErrorIs(t, err, status.ErrRunInProgress)
	})
}
