// Package khamsat scrapes the reviews page of a Khamsat seller, three rating factors
// per review.
package khamsat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Hamza5/InteractiveCV/internal/components/assert"
	"github.com/Hamza5/InteractiveCV/internal/components/telemetry"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/asset"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/rating"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/review"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/scraper"
)

const (
	report_scraper_scrape    = "scraper.scrape"
	report_scraper_to_record = "scraper.to-record"
	report_scraper_reviews   = "scraper.reviews"
)

// Factors is the rating factor set of a review, in the order the rows are rendered.
// A row shows either a .numeric_rate value or a row of star icons.
var Factors = rating.FactorSet{
	Names: []string{"contact", "quality", "timing"},
	Normalizer: rating.Normalizer{
		Text:  ".numeric_rate",
		Stars: "i.fa.fa-star",
	},
}

type Scraper struct {
	fetcher scraper.PageFetcher
	inliner asset.Inliner
	tel     telemetry.API

	page *review.Page
}

var _ scraper.Scraper = (*Scraper)(nil)

func NewScraper(fetcher scraper.PageFetcher, inliner asset.Inliner, tel telemetry.API) *Scraper {
	assert.NotNil(fetcher)
	assert.NotNil(inliner)
	assert.NotNil(tel)

	return &Scraper{
		fetcher: fetcher,
		inliner: inliner,
		tel:     telemetry.NewScopedAPI("khamsat_reviews", tel),
	}
}

func (s *Scraper) Scrape(ctx context.Context, url string) error {
	slog.InfoContext(ctx, "getting reviews", "url", url)

	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}
	reviews, err := ParseReviews(page, url)
	if err != nil {
		s.tel.ReportBroken(report_scraper_scrape, err, url)
		return err
	}
	s.page = &reviews

	reviews.Log(ctx, s.tel)
	s.tel.ReportCount(report_scraper_reviews, int64(len(reviews.Entries)))
	slog.InfoContext(ctx, "got reviews", "count", len(reviews.Entries))
	return nil
}

// Reviews returns what the last successful Scrape read.
func (s *Scraper) Reviews() (review.Page, bool) {
	if s.page == nil {
		return review.Page{}, false
	}
	return *s.page, true
}

func (s *Scraper) ToRecord(ctx context.Context) (any, error) {
	if s.page == nil {
		return nil, fmt.Errorf("khamsat: ToRecord called before a successful Scrape")
	}
	aggregate, err := review.BuildAggregate(ctx, *s.page, s.inliner, s.tel)
	if err != nil {
		s.tel.ReportBroken(report_scraper_to_record, err)
		return nil, err
	}
	return aggregate, nil
}

// ParseReviews reads the factor averages and every review of a fetched reviews page,
// reviewsUrl is the base of each review's permalink.
func ParseReviews(page *scraper.Page, reviewsUrl string) (review.Page, error) {
	doc := page.Doc.Selection

	summary, err := page.Require(doc, "div#reviews-section div.card-body")
	if err != nil {
		return review.Page{}, err
	}
	averages, err := Factors.Resolve(summary.Find("div.text-end"))
	if err != nil {
		return review.Page{}, fmt.Errorf("averages: %w", err)
	}

	out := review.Page{
		Averages: averages.Factors,
		Unrated:  averages.Unrated,
	}
	base := strings.TrimRight(reviewsUrl, "/")

	sections := doc.Find("div.review_section")
	for i := range sections.Length() {
		section := sections.Eq(i)

		id, ok := section.Attr("id")
		if !ok || id == "" {
			return review.Page{}, fmt.Errorf("%w: review %d has no id", scraper.ErrExtraction, i)
		}
		parts := strings.Split(id, "-")
		id = parts[len(parts)-1]

		heading, err := page.Require(section, ".details-head")
		if err != nil {
			return review.Page{}, fmt.Errorf("review %s: %w", id, err)
		}
		title, err := page.RequireText(heading, "a")
		if err != nil {
			return review.Page{}, fmt.Errorf("review %s: %w", id, err)
		}
		factors, err := Factors.Resolve(section.Find("div.text-end"))
		if err != nil {
			return review.Page{}, fmt.Errorf("review %s: %w", id, err)
		}
		author, err := page.RequireText(section, ".meta--user")
		if err != nil {
			return review.Page{}, fmt.Errorf("review %s: %w", id, err)
		}
		text, err := page.RequireText(section, "p")
		if err != nil {
			return review.Page{}, fmt.Errorf("review %s: %w", id, err)
		}
		avatar, err := page.RequireURL(section, ".meta--avatar img", "src")
		if err != nil {
			return review.Page{}, fmt.Errorf("review %s: %w", id, err)
		}

		out.Entries = append(out.Entries, review.Entry{
			Title:     title,
			Author:    author,
			Text:      text,
			Factors:   factors.Factors,
			Unrated:   factors.Unrated,
			AvatarUrl: avatar,
			Link:      base + "/" + id,
		})
	}

	return out, nil
}
