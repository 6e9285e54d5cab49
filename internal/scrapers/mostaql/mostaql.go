// Package mostaql scrapes the reviews page of a Mostaql freelancer profile. Every
// review is rated on six factors rendered as a homogeneous list of rows.
package mostaql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Hamza5/InteractiveCV/internal/components/assert"
	"github.com/Hamza5/InteractiveCV/internal/components/telemetry"
	"github.com/Hamza5/InteractiveCV/internal/htmlutil"
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
var Factors = rating.FactorSet{
	Names: []string{"proficiency", "contact", "quality", "experience", "timing", "repeat"},
	Normalizer: rating.Normalizer{
		Text:  ".pull-left",
		Stars: ".pull-left i.fa.fa-star.clr-amber.rating-star",
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
		tel:     telemetry.NewScopedAPI("mostaql_reviews", tel),
	}
}

func (s *Scraper) Scrape(ctx context.Context, url string) error {
	slog.InfoContext(ctx, "getting reviews", "url", url)

	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}
	reviews, err := ParseReviews(page)
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
		return nil, fmt.Errorf("mostaql: ToRecord called before a successful Scrape")
	}
	aggregate, err := review.BuildAggregate(ctx, *s.page, s.inliner, s.tel)
	if err != nil {
		s.tel.ReportBroken(report_scraper_to_record, err)
		return nil, err
	}
	return aggregate, nil
}

// ParseReviews reads the factor averages and every review of a fetched reviews page.
func ParseReviews(page *scraper.Page) (review.Page, error) {
	doc := page.Doc.Selection

	container, err := page.Require(doc, "div.review--factors_container")
	if err != nil {
		return review.Page{}, err
	}
	averages, err := Factors.Resolve(container.Find("div.pdn--bs"))
	if err != nil {
		return review.Page{}, fmt.Errorf("averages: %w", err)
	}

	out := review.Page{
		Averages: averages.Factors,
		Unrated:  averages.Unrated,
	}

	sections := doc.Find("div.review")
	for i := range sections.Length() {
		section := sections.Eq(i)

		title, err := page.RequireText(section, ".project__title")
		if err != nil {
			return review.Page{}, fmt.Errorf("review %d: %w", i, err)
		}
		factors, err := Factors.Resolve(section.Find("div.pdn--bs"))
		if err != nil {
			return review.Page{}, fmt.Errorf("review %q: %w", title, err)
		}
		author, err := page.RequireText(section, ".profile__name")
		if err != nil {
			return review.Page{}, fmt.Errorf("review %q: %w", title, err)
		}
		details, err := page.Require(section, "div.review__details")
		if err != nil {
			return review.Page{}, fmt.Errorf("review %q: %w", title, err)
		}
		avatar, err := page.RequireURL(section, ".profile-card--avatar img", "src")
		if err != nil {
			return review.Page{}, fmt.Errorf("review %q: %w", title, err)
		}

		out.Entries = append(out.Entries, review.Entry{
			Title:     title,
			Author:    author,
			Text:      strings.Join(htmlutil.StrippedStrings(details), "\n"),
			Factors:   factors.Factors,
			Unrated:   factors.Unrated,
			AvatarUrl: avatar,
		})
	}

	return out, nil
}
