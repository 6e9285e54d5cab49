package review

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Hamza5/InteractiveCV/internal/components/telemetry"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/rating"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/scraper"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestAggregateJSON(t *testing.T) {
	aggregate := Aggregate{
		Averages: rating.Factors{"contact": 4.9, "quality": 5, "timing": 4.75},
		Reviews: []Record{
			{
				Title:        "تصميم موقع <شخصي> & مدونة",
				Author:       "Ahmed K.",
				Text:         "عمل ممتاز\nأنصح بالتعامل معه",
				Factors:      rating.Factors{"contact": 5, "quality": 5, "timing": 4},
				AvatarUrl:    "https://cdn.example.com/a.png",
				AvatarBase64: "iVBORw0K",
				Link:         "https://khamsat.com/user/hamza/reviews/77",
			},
			{
				Title:     "تطوير سكربت",
				Author:    "Sara",
				Text:      "شكرا",
				Factors:   rating.Factors{"contact": 3, "quality": 0, "timing": 5},
				AvatarUrl: "https://cdn.example.com/b.png",
			},
		},
	}

	encoded, err := scraper.EncodeRecord(aggregate)
	require.NoError(t, err)
	require.Contains(t, encoded, `"title":"تصميم موقع <شخصي> & مدونة"`)

	var flat map[string]any
	require.NoError(t, json.Unmarshal([]byte(encoded), &flat))
	require.Equal(t, 4.9, flat["average_contact"])
	require.Equal(t, float64(5), flat["average_quality"])
	reviews := flat["reviews"].([]any)
	require.Len(t, reviews, 2)
	first := reviews[0].(map[string]any)
	require.Equal(t, float64(4), first["timing"])
	require.Equal(t, "https://khamsat.com/user/hamza/reviews/77", first["link"])
	second := reviews[1].(map[string]any)
	require.NotContains(t, second, "link")
	require.NotContains(t, second, "avatar_base64")

	var decoded Aggregate
	require.NoError(t, json.Unmarshal([]byte(encoded), &decoded))
	if diff := cmp.Diff(aggregate, decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFactorCollision(t *testing.T) {
	_, err := json.Marshal(Record{Factors: rating.Factors{"title": 1}})
	require.Error(t, err)
}

type fakeInliner map[string]string

func (f fakeInliner) Inline(_ context.Context, url string) (string, error) {
	out, ok := f[url]
	if !ok {
		return "", scraper.ErrNetwork
	}
	return out, nil
}

func TestBuildAggregate(t *testing.T) {
	page := Page{
		Averages: rating.Factors{"quality": 5},
		Entries: []Entry{
			{Title: "a", Factors: rating.Factors{"quality": 5}, AvatarUrl: "https://x/a.png"},
			{Title: "b", Factors: rating.Factors{"quality": 4}, AvatarUrl: "https://x/b.png"},
		},
	}
	tel := &telemetry.Recorder{}

	aggregate, err := BuildAggregate(context.Background(), page, fakeInliner{
		"https://x/a.png": "QQ==",
		"https://x/b.png": "Qg==",
	}, tel)
	require.NoError(t, err)
	require.Len(t, aggregate.Reviews, 2)
	require.Equal(t, "QQ==", aggregate.Reviews[0].AvatarBase64)
	require.Equal(t, "Qg==", aggregate.Reviews[1].AvatarBase64)

	_, err = BuildAggregate(context.Background(), page, fakeInliner{"https://x/a.png": "QQ=="}, tel)
	require.True(t, errors.Is(err, scraper.ErrNetwork))
	require.Len(t, tel.Reports("broken"), 1)
}

func TestLogUnrated(t *testing.T) {
	tel := &telemetry.Recorder{}
	Page{
		Unrated: []string{"repeat"},
		Entries: []Entry{
			{Title: "a", Unrated: []string{"timing", "repeat"}},
			{Title: "b"},
		},
	}.Log(context.Background(), tel)

	warnings := tel.Reports("warning")
	require.Len(t, warnings, 2)
	require.Equal(t, []any{"averages", "repeat"}, warnings[0].Params)
	require.Equal(t, []any{"a", "timing,repeat"}, warnings[1].Params)
}
