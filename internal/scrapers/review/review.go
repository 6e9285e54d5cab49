// Package review holds the record shape shared by the review page extractors: named
// factor averages plus the reviews in page order, each with its own factor scores.
//
// Factors are flattened into the JSON objects, a review is serialized as
// {"title": ..., "quality": 5, ...} and an aggregate as {"average_quality": 4.9, ...}.
package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Hamza5/InteractiveCV/internal/components/telemetry"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/asset"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/rating"
)

const (
	report_review_unrated = "review.unrated"
	report_review_inline  = "review.inline"
)

const averagePrefix = "average_"

// Entry is one review as read from the page.
type Entry struct {
	Title     string
	Author    string
	Text      string
	Factors   rating.Factors
	Unrated   []string
	AvatarUrl string
	Link      string
}

// Page is everything read from a reviews page.
type Page struct {
	Averages rating.Factors
	Unrated  []string
	Entries  []Entry
}

// Log writes one line per review and warns about every factor that had no rating.
func (p Page) Log(ctx context.Context, tel telemetry.API) {
	if len(p.Unrated) > 0 {
		tel.ReportWarning(report_review_unrated, "averages", strings.Join(p.Unrated, ","))
	}
	for _, e := range p.Entries {
		slog.InfoContext(ctx, "got review", "title", e.Title, "author", e.Author)
		if len(e.Unrated) > 0 {
			tel.ReportWarning(report_review_unrated, e.Title, strings.Join(e.Unrated, ","))
		}
	}
}

// Record is the stored form of a review.
type Record struct {
	Title        string
	Author       string
	Text         string
	Factors      rating.Factors
	AvatarUrl    string
	AvatarBase64 string
	Link         string
}

// Aggregate is the stored form of a reviews page.
type Aggregate struct {
	Averages rating.Factors
	Reviews  []Record
}

// BuildAggregate inlines every avatar and converts the page into its stored form. The
// first avatar that cannot be fetched fails the whole aggregate.
func BuildAggregate(ctx context.Context, page Page, inliner asset.Inliner, tel telemetry.API) (Aggregate, error) {
	out := Aggregate{
		Averages: page.Averages,
		Reviews:  make([]Record, 0, len(page.Entries)),
	}
	for _, e := range page.Entries {
		avatar, err := inliner.Inline(ctx, e.AvatarUrl)
		if err != nil {
			tel.ReportBroken(report_review_inline, err, e.Title)
			return Aggregate{}, fmt.Errorf("avatar of review %q: %w", e.Title, err)
		}
		out.Reviews = append(out.Reviews, Record{
			Title:        e.Title,
			Author:       e.Author,
			Text:         e.Text,
			Factors:      e.Factors,
			AvatarUrl:    e.AvatarUrl,
			AvatarBase64: avatar,
			Link:         e.Link,
		})
	}
	return out, nil
}

var recordKeys = map[string]bool{
	"title":         true,
	"author":        true,
	"text":          true,
	"avatar_url":    true,
	"avatar_base64": true,
	"link":          true,
}

func (r Record) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(r.Factors)+6)
	for name, value := range r.Factors {
		if recordKeys[name] {
			return nil, fmt.Errorf("review: factor %q collides with a review field", name)
		}
		fields[name] = value
	}
	fields["title"] = r.Title
	fields["author"] = r.Author
	fields["text"] = r.Text
	fields["avatar_url"] = r.AvatarUrl
	if r.AvatarBase64 != "" {
		fields["avatar_base64"] = r.AvatarBase64
	}
	if r.Link != "" {
		fields["link"] = r.Link
	}
	return marshalObject(fields)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	err := json.Unmarshal(data, &fields)
	if err != nil {
		return err
	}

	out := Record{Factors: rating.Factors{}}
	strs := map[string]*string{
		"title":         &out.Title,
		"author":        &out.Author,
		"text":          &out.Text,
		"avatar_url":    &out.AvatarUrl,
		"avatar_base64": &out.AvatarBase64,
		"link":          &out.Link,
	}
	for key, raw := range fields {
		if dst, ok := strs[key]; ok {
			err = json.Unmarshal(raw, dst)
			if err != nil {
				return fmt.Errorf("review: field %s: %w", key, err)
			}
			continue
		}
		var value float64
		err = json.Unmarshal(raw, &value)
		if err != nil {
			return fmt.Errorf("review: factor %s: %w", key, err)
		}
		out.Factors[key] = value
	}
	*r = out
	return nil
}

func (a Aggregate) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(a.Averages)+1)
	for name, value := range a.Averages {
		fields[averagePrefix+name] = value
	}
	reviews := a.Reviews
	if reviews == nil {
		reviews = []Record{}
	}
	fields["reviews"] = reviews
	return marshalObject(fields)
}

func (a *Aggregate) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	err := json.Unmarshal(data, &fields)
	if err != nil {
		return err
	}

	out := Aggregate{Averages: rating.Factors{}}
	for key, raw := range fields {
		switch {
		case key == "reviews":
			err = json.Unmarshal(raw, &out.Reviews)
			if err != nil {
				return fmt.Errorf("review: reviews: %w", err)
			}
		case strings.HasPrefix(key, averagePrefix):
			var value float64
			err = json.Unmarshal(raw, &value)
			if err != nil {
				return fmt.Errorf("review: %s: %w", key, err)
			}
			out.Averages[strings.TrimPrefix(key, averagePrefix)] = value
		}
	}
	*a = out
	return nil
}

func marshalObject(fields map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(fields)
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
