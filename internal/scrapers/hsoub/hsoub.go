// Package hsoub scrapes a community profile page of Hsoub Academy (static html).
package hsoub

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Hamza5/InteractiveCV/internal/components/assert"
	"github.com/Hamza5/InteractiveCV/internal/components/telemetry"
	"github.com/Hamza5/InteractiveCV/internal/htmlutil"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/asset"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/scraper"
)

const (
	report_scraper_scrape    = "scraper.scrape"
	report_scraper_to_record = "scraper.to-record"
)

type Profile struct {
	Name              string
	ProfilePictureUrl string
	Level             string
	PostCount         int
	Reputation        int
	BestAnswerCount   int
	About             string
}

// Record is the JSON document stored for a profile.
type Record struct {
	Name                 string `json:"name"`
	ProfilePictureUrl    string `json:"profile_picture_url"`
	ProfilePictureBase64 string `json:"profile_picture_base64,omitempty"`
	Level                string `json:"level"`
	PostCount            int    `json:"postCount"`
	Reputation           int    `json:"reputation"`
	BestAnswerCount      int    `json:"bestAnswerCount"`
	About                string `json:"about"`
}

type Scraper struct {
	fetcher scraper.PageFetcher
	inliner asset.Inliner
	tel     telemetry.API

	profile *Profile
}

var _ scraper.Scraper = (*Scraper)(nil)

func NewScraper(fetcher scraper.PageFetcher, inliner asset.Inliner, tel telemetry.API) *Scraper {
	assert.NotNil(fetcher)
	assert.NotNil(inliner)
	assert.NotNil(tel)

	return &Scraper{
		fetcher: fetcher,
		inliner: inliner,
		tel:     telemetry.NewScopedAPI("hsoub_academy", tel),
	}
}

func (s *Scraper) Scrape(ctx context.Context, url string) error {
	slog.InfoContext(ctx, "getting profile", "url", url)

	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}
	profile, err := ParseProfile(page)
	if err != nil {
		s.tel.ReportBroken(report_scraper_scrape, err, url)
		return err
	}
	s.profile = &profile

	slog.InfoContext(
		ctx, "got profile data",
		"name", profile.Name,
		"level", profile.Level,
		"post_count", profile.PostCount,
		"reputation", profile.Reputation,
		"best_answer_count", profile.BestAnswerCount,
		"about", profile.About,
	)
	return nil
}

// Profile returns what the last successful Scrape read.
func (s *Scraper) Profile() (Profile, bool) {
	if s.profile == nil {
		return Profile{}, false
	}
	return *s.profile, true
}

func (s *Scraper) ToRecord(ctx context.Context) (any, error) {
	if s.profile == nil {
		return nil, fmt.Errorf("hsoub: ToRecord called before a successful Scrape")
	}

	picture, err := s.inliner.Inline(ctx, s.profile.ProfilePictureUrl)
	if err != nil {
		s.tel.ReportBroken(report_scraper_to_record, err)
		return nil, fmt.Errorf("profile picture: %w", err)
	}

	return Record{
		Name:                 s.profile.Name,
		ProfilePictureUrl:    s.profile.ProfilePictureUrl,
		ProfilePictureBase64: picture,
		Level:                s.profile.Level,
		PostCount:            s.profile.PostCount,
		Reputation:           s.profile.Reputation,
		BestAnswerCount:      s.profile.BestAnswerCount,
		About:                s.profile.About,
	}, nil
}

// ParseProfile reads a profile out of a fetched profile page.
func ParseProfile(page *scraper.Page) (Profile, error) {
	doc := page.Doc.Selection
	out := Profile{}

	var err error
	out.Name, err = page.RequireText(doc, "h1")
	if err != nil {
		return Profile{}, err
	}
	out.ProfilePictureUrl, err = page.RequireURL(doc, "div#elProfilePhoto img", "src")
	if err != nil {
		return Profile{}, err
	}

	// the post count is a bare text node right after the stats heading
	heading, err := page.Require(doc, "div#elProfileStats h4")
	if err != nil {
		return Profile{}, err
	}
	out.PostCount, err = scraper.ParseCount("post count", htmlutil.NextNonBlankSibling(heading))
	if err != nil {
		return Profile{}, err
	}

	achievements, err := page.Require(doc, "div.cProfileAchievements")
	if err != nil {
		return Profile{}, err
	}
	out.Level, err = page.RequireAttr(achievements, "img", "alt")
	if err != nil {
		return Profile{}, err
	}
	reputation, err := page.RequireText(achievements, "p.cProfileRepScore")
	if err != nil {
		return Profile{}, err
	}
	out.Reputation, err = scraper.ParseInt("reputation", reputation)
	if err != nil {
		return Profile{}, err
	}
	solutions, err := page.RequireText(achievements, "p.cProfileSolutions")
	if err != nil {
		return Profile{}, err
	}
	out.BestAnswerCount, err = scraper.ParseInt("best answer count", solutions)
	if err != nil {
		return Profile{}, err
	}

	followers, err := page.Require(doc, "div#elFollowers")
	if err != nil {
		return Profile{}, err
	}
	personalInfo := followers.NextAllFiltered("div").First()
	if personalInfo.Length() == 0 {
		return Profile{}, scraper.MissingElement("div#elFollowers ~ div", page.Block)
	}
	item, err := page.Require(personalInfo, "li")
	if err != nil {
		return Profile{}, err
	}
	about, err := page.Require(item, "div")
	if err != nil {
		return Profile{}, err
	}
	out.About = strings.TrimSpace(about.Text())

	return out, nil
}
