package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestDumpResty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<h1>Hamza</h1>"))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "dump")
	client := resty.New()
	require.NoError(t, DumpResty(client, dir))

	_, err := client.R().SetHeader("User-Agent", "test-agent").Get(srv.URL + "/profile/12345-hamza/")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].Name(), "001-127.0.0.1")

	contents, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Contains(t, string(contents), "GET "+srv.URL+"/profile/12345-hamza/")
	require.Contains(t, string(contents), "User-Agent: test-agent")
	require.Contains(t, string(contents), "200 ")
	require.Contains(t, string(contents), "<h1>Hamza</h1>")
}

func TestFormatRequestBody(t *testing.T) {
	noBody, err := http.NewRequest(http.MethodGet, "http://localhost/", nil)
	require.NoError(t, err)
	noBody.GetBody = func() (io.ReadCloser, error) { return nil, nil }
	require.Equal(t, "", formatRequestBody(noBody))

	withBody, err := http.NewRequest(http.MethodPost, "http://localhost/", strings.NewReader(`{"name":"LINKEDIN_PROFILE"}`))
	require.NoError(t, err)
	require.Equal(t, `{"name":"LINKEDIN_PROFILE"}`, formatRequestBody(withBody))

	require.Equal(t, "", formatRequestBody(nil))
}

func TestDumpRestyDisabled(t *testing.T) {
	require.NoError(t, DumpResty(resty.New(), ""))
}
