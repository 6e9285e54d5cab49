package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/Hamza5/InteractiveCV/internal/components/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcherSendsBrowserHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><h1> Hamza </h1><img src="/a.png"></body></html>`))
	}))
	defer srv.Close()

	f := NewFetcher(&telemetry.Recorder{})
	page, err := f.Fetch(context.Background(), srv.URL+"/profile/")
	require.NoError(t, err)

	assert.Equal(t, BrowserHeaders["User-Agent"], got.Get("User-Agent"))
	assert.Equal(t, "en-US,en;q=0.5", got.Get("Accept-Language"))
	assert.Equal(t, "navigate", got.Get("Sec-Fetch-Mode"))

	name, err := page.RequireText(page.Doc.Selection, "h1")
	require.NoError(t, err)
	assert.Equal(t, "Hamza", name)

	src, err := page.RequireURL(page.Doc.Selection, "img", "src")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/a.png", src)
}

func TestFetcherNon2xxIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	rec := &telemetry.Recorder{}
	_, err := NewFetcher(rec).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.Contains(t, err.Error(), "404")
	assert.NotEmpty(t, rec.Reports("broken"))
}

func TestFetcherWithDump(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><h1>Hamza</h1></body></html>`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := NewFetcher(&telemetry.Recorder{})
	require.NoError(t, telemetry.DumpResty(f.Client(), dir))

	page, err := f.Fetch(context.Background(), srv.URL+"/profile/")
	require.NoError(t, err)
	name, err := page.RequireText(page.Doc.Selection, "h1")
	require.NoError(t, err)
	assert.Equal(t, "Hamza", name)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	contents, err := os.ReadFile(dir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(contents), "GET "+srv.URL+"/profile/")
	assert.Contains(t, string(contents), "<h1>Hamza</h1>")
}

func TestRequireMissingElement(t *testing.T) {
	body := []byte(`<html><body><form><input name="session_password"></form></body></html>`)
	page, err := NewPage("https://www.example.com/in/someone", 200, http.Header{}, body)
	require.NoError(t, err)
	require.Equal(t, BlockLoginWall, page.Block)

	_, err = page.Require(page.Doc.Selection, "main section")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtraction))
	assert.Contains(t, err.Error(), `"main section"`)
	assert.Contains(t, err.Error(), "login_wall")

	_, err = page.RequireAttr(page.Doc.Selection, "form", "action")
	assert.True(t, errors.Is(err, ErrExtraction))
}

func TestParseCount(t *testing.T) {
	testCases := []struct {
		text     string
		expected int
		fails    bool
	}{
		{text: "500", expected: 500},
		{text: "500+", expected: 500},
		{text: " 1,024 connections", expected: 1024},
		{text: "connections", fails: true},
		{text: "", fails: true},
	}

	for _, test := range testCases {
		n, err := ParseCount("connection_count", test.text)
		if test.fails {
			require.ErrorIs(t, err, ErrExtraction, test.text)
			continue
		}
		require.NoError(t, err, test.text)
		require.Equal(t, test.expected, n, test.text)
	}
}

func TestParseInt(t *testing.T) {
	n, err := ParseInt("reputation", " -12\n")
	require.NoError(t, err)
	require.Equal(t, -12, n)

	_, err = ParseInt("reputation", "12k")
	require.ErrorIs(t, err, ErrExtraction)
}

func TestEncodeRecordKeepsUnicodeAndHtml(t *testing.T) {
	out, err := EncodeRecord(map[string]string{"about": "مطور <Go> & Python"})
	require.NoError(t, err)
	require.Equal(t, `{"about":"مطور <Go> & Python"}`, out)
}

func TestNewPageIgnoresScripts(t *testing.T) {
	body := []byte(`<html><head>
		<script>window.config = {"captchaChallengeUrl": "/checkpoint/challenge"}</script>
		<style>.captcha-widget { display: none }</style>
	</head><body><main><h1>Hamza Abbad</h1></main></body></html>`)

	page, err := NewPage("https://www.linkedin.com/in/hamza-abbad/", http.StatusOK, http.Header{}, body)
	require.NoError(t, err)
	assert.Equal(t, BlockNone, page.Block)

	_, err = page.Require(page.Doc.Selection, ".t-bold")
	require.ErrorIs(t, err, ErrExtraction)
	assert.NotContains(t, err.Error(), "captcha")

	name, err := page.RequireText(page.Doc.Selection, "h1")
	require.NoError(t, err)
	assert.Equal(t, "Hamza Abbad", name)

	wall := []byte(`<html><body><script>var captcha;</script><form><input name="session_password"></form></body></html>`)
	page, err = NewPage("https://www.linkedin.com/in/hamza-abbad/", http.StatusOK, http.Header{}, wall)
	require.NoError(t, err)
	assert.Equal(t, BlockLoginWall, page.Block)
}

func TestDetectBlock(t *testing.T) {
	cfHeader := http.Header{}
	cfHeader.Set("cf-ray", "8a1b")

	testCases := []struct {
		status   int
		header   http.Header
		body     string
		expected BlockType
	}{
		{status: 403, header: cfHeader, body: "denied", expected: BlockCloudflare},
		{status: 200, header: http.Header{}, body: "Checking your browser before accessing", expected: BlockCloudflare},
		{status: 200, header: http.Header{}, body: "please solve the hCaptcha", expected: BlockCaptcha},
		{status: 200, header: http.Header{}, body: `<a href="/authwall">`, expected: BlockLoginWall},
		{status: 200, header: http.Header{}, body: "<h1>profile</h1>", expected: BlockNone},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, DetectBlock(test.status, test.header, []byte(test.body)), test.body)
	}
}
