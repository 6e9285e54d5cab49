// Package linkedin scrapes a LinkedIn profile. The profile is only rendered for a
// signed in visitor, so the page is read through a session.Manager replaying the
// stored cookies in a real browser.
package linkedin

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Hamza5/InteractiveCV/internal/components/assert"
	"github.com/Hamza5/InteractiveCV/internal/components/telemetry"
	"github.com/Hamza5/InteractiveCV/internal/htmlutil"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/asset"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/scraper"
	"github.com/Hamza5/InteractiveCV/internal/session"
)

// SiteRoot is the page the session is opened on, its host scopes the replayed cookies.
const SiteRoot = "https://www.linkedin.com/"

const (
	report_scraper_scrape       = "scraper.scrape"
	report_scraper_to_record    = "scraper.to-record"
	report_scraper_affiliations = "scraper.affiliations"
)

type Affiliation struct {
	Name    string
	LogoUrl string
}

type Profile struct {
	Name              string
	ProfilePictureUrl string
	About             string
	ConnectionCount   int
	Affiliations      []Affiliation
}

type AffiliationRecord struct {
	Name       string `json:"name"`
	LogoUrl    string `json:"logo_url"`
	LogoBase64 string `json:"logo_base64,omitempty"`
}

// Record is the JSON document stored for a profile.
type Record struct {
	Name                 string              `json:"name"`
	ProfilePictureUrl    string              `json:"profile_picture_url"`
	ProfilePictureBase64 string              `json:"profile_picture_base64,omitempty"`
	About                string              `json:"about"`
	ConnectionCount      int                 `json:"connection_count"`
	Affiliations         []AffiliationRecord `json:"affiliations"`
}

type Scraper struct {
	session *session.Manager
	inliner asset.Inliner
	tel     telemetry.API

	profile *Profile
}

var (
	_ scraper.SessionScraper = (*Scraper)(nil)
	_ io.Closer              = (*Scraper)(nil)
)

func NewScraper(manager *session.Manager, inliner asset.Inliner, tel telemetry.API) *Scraper {
	assert.NotNil(manager)
	assert.NotNil(inliner)
	assert.NotNil(tel)

	return &Scraper{
		session: manager,
		inliner: inliner,
		tel:     telemetry.NewScopedAPI("linkedin", tel),
	}
}

func (s *Scraper) Scrape(ctx context.Context, url string) error {
	slog.InfoContext(ctx, "getting profile", "url", url)

	err := s.session.Load(ctx)
	if err != nil {
		return err
	}
	err = s.session.Open(ctx)
	if err != nil {
		return err
	}
	html, err := s.session.Visit(ctx, url)
	if err != nil {
		return err
	}

	page, err := scraper.NewPage(url, http.StatusOK, http.Header{}, []byte(html))
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "loaded page", "title", strings.TrimSpace(page.Doc.Find("title").First().Text()))

	profile, err := ParseProfile(page)
	if err != nil {
		s.tel.ReportBroken(report_scraper_scrape, err, url)
		return err
	}
	s.profile = &profile
	s.tel.ReportCount(report_scraper_affiliations, int64(len(profile.Affiliations)))

	names := make([]string, len(profile.Affiliations))
	for i, a := range profile.Affiliations {
		names[i] = a.Name
	}
	slog.InfoContext(
		ctx, "got profile data",
		"name", profile.Name,
		"about", profile.About,
		"connection_count", profile.ConnectionCount,
		"affiliations", strings.Join(names, " | "),
	)
	return nil
}

// PersistSession writes the cookies of the browsing session back to the vault.
func (s *Scraper) PersistSession(ctx context.Context) error {
	return s.session.Persist(ctx)
}

// Close shuts the browser down, ToRecord does not need it.
func (s *Scraper) Close() error {
	return s.session.Close()
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
		return nil, fmt.Errorf("linkedin: ToRecord called before a successful Scrape")
	}

	picture, err := s.inliner.Inline(ctx, s.profile.ProfilePictureUrl)
	if err != nil {
		s.tel.ReportBroken(report_scraper_to_record, err)
		return nil, fmt.Errorf("profile picture: %w", err)
	}

	affiliations := make([]AffiliationRecord, 0, len(s.profile.Affiliations))
	for _, a := range s.profile.Affiliations {
		logo, err := s.inliner.Inline(ctx, a.LogoUrl)
		if err != nil {
			s.tel.ReportBroken(report_scraper_to_record, err, a.Name)
			return nil, fmt.Errorf("logo of %s: %w", a.Name, err)
		}
		affiliations = append(affiliations, AffiliationRecord{
			Name:       a.Name,
			LogoUrl:    a.LogoUrl,
			LogoBase64: logo,
		})
	}

	return Record{
		Name:                 s.profile.Name,
		ProfilePictureUrl:    s.profile.ProfilePictureUrl,
		ProfilePictureBase64: picture,
		About:                s.profile.About,
		ConnectionCount:      s.profile.ConnectionCount,
		Affiliations:         affiliations,
	}, nil
}

// ParseProfile reads the top card of a rendered profile page.
func ParseProfile(page *scraper.Page) (Profile, error) {
	top, err := page.Require(page.Doc.Selection, "main section")
	if err != nil {
		return Profile{}, err
	}

	out := Profile{}
	out.Name, err = page.RequireText(top, "h1")
	if err != nil {
		return Profile{}, err
	}
	out.ProfilePictureUrl, err = page.RequireURL(top, ".profile-photo-edit img", "src")
	if err != nil {
		return Profile{}, err
	}
	out.About, err = page.RequireText(top, "div.text-body-medium")
	if err != nil {
		return Profile{}, err
	}

	// only the bold token is the count, the link also reads "connections"
	connections, err := page.RequireText(top, "a[href*='connections'] .t-bold")
	if err != nil {
		return Profile{}, err
	}
	out.ConnectionCount, err = scraper.ParseCount("connection count", connections)
	if err != nil {
		return Profile{}, err
	}

	items := top.Find(".mt2 ul li")
	out.Affiliations = make([]Affiliation, 0, items.Length())
	for i := range items.Length() {
		item := items.Eq(i)
		logo, err := page.RequireURL(item, "img", "src")
		if err != nil {
			return Profile{}, fmt.Errorf("affiliation %d: %w", i, err)
		}
		out.Affiliations = append(out.Affiliations, Affiliation{
			Name:    htmlutil.Clean(item.Text()),
			LogoUrl: logo,
		})
	}

	return out, nil
}
