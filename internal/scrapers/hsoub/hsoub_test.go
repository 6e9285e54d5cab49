package hsoub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/Hamza5/InteractiveCV/internal/components/telemetry"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/asset"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/scraper"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var photo = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

func newSite(t *testing.T, page string) *httptest.Server {
	t.Helper()

	fixture, err := os.ReadFile("testdata/profile.html")
	require.NoError(t, err)
	if page != "" {
		fixture = []byte(page)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/profile/12345-hamza/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(fixture)
	})
	mux.HandleFunc("/uploads/profile/photo-thumb.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(photo)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newScraper(inliner func(*scraper.Fetcher) asset.Inliner) *Scraper {
	tel := &telemetry.Recorder{}
	fetcher := scraper.NewFetcher(tel)
	return NewScraper(fetcher, inliner(fetcher), tel)
}

func httpInliner(f *scraper.Fetcher) asset.Inliner {
	return asset.NewHTTPInliner(f.Client(), &telemetry.Recorder{})
}

func TestScrape(t *testing.T) {
	srv := newSite(t, "")
	s := newScraper(httpInliner)

	ctx := context.Background()
	require.NoError(t, s.Scrape(ctx, srv.URL+"/profile/12345-hamza/"))

	profile, ok := s.Profile()
	require.True(t, ok)
	expected := Profile{
		Name:              "Hamza Abbad",
		ProfilePictureUrl: srv.URL + "/uploads/profile/photo-thumb.png",
		Level:             "عضو نشيط",
		PostCount:         1024,
		Reputation:        315,
		BestAnswerCount:   42,
		About:             "مهندس برمجيات وباحث في معالجة اللغات الطبيعية.",
	}
	if diff := cmp.Diff(expected, profile); diff != "" {
		t.Fatalf("profile mismatch (-want +got):\n%s", diff)
	}

	record, err := s.ToRecord(ctx)
	require.NoError(t, err)
	encoded, err := scraper.EncodeRecord(record)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(encoded), &decoded))
	require.Equal(t, base64.StdEncoding.EncodeToString(photo), decoded["profile_picture_base64"])
	require.Equal(t, float64(1024), decoded["postCount"])
	require.Equal(t, float64(42), decoded["bestAnswerCount"])
	require.Equal(t, "عضو نشيط", decoded["level"])

	var roundTrip Record
	require.NoError(t, json.Unmarshal([]byte(encoded), &roundTrip))
	require.Equal(t, record, roundTrip)
}

func TestToRecordWithoutInlining(t *testing.T) {
	srv := newSite(t, "")
	s := newScraper(func(*scraper.Fetcher) asset.Inliner { return asset.Disabled{} })

	ctx := context.Background()
	require.NoError(t, s.Scrape(ctx, srv.URL+"/profile/12345-hamza/"))
	record, err := s.ToRecord(ctx)
	require.NoError(t, err)

	encoded, err := scraper.EncodeRecord(record)
	require.NoError(t, err)
	require.NotContains(t, encoded, "profile_picture_base64")
}

func TestMissingElement(t *testing.T) {
	fixture, err := os.ReadFile("testdata/profile.html")
	require.NoError(t, err)
	broken := strings.Replace(string(fixture), `class="cProfileRepScore"`, `class="cProfileScore"`, 1)

	srv := newSite(t, broken)
	s := newScraper(httpInliner)

	err = s.Scrape(context.Background(), srv.URL+"/profile/12345-hamza/")
	require.ErrorIs(t, err, scraper.ErrExtraction)
	require.Contains(t, err.Error(), "p.cProfileRepScore")

	_, ok := s.Profile()
	require.False(t, ok)
	_, err = s.ToRecord(context.Background())
	require.Error(t, err)
}

func TestMissingPicture(t *testing.T) {
	fixture, err := os.ReadFile("testdata/profile.html")
	require.NoError(t, err)
	moved := strings.Replace(string(fixture), "photo-thumb.png", "gone.png", 1)

	srv := newSite(t, moved)
	s := newScraper(httpInliner)

	ctx := context.Background()
	require.NoError(t, s.Scrape(ctx, srv.URL+"/profile/12345-hamza/"))
	_, err = s.ToRecord(ctx)
	require.True(t, errors.Is(err, scraper.ErrNetwork), "got %v", err)
}
