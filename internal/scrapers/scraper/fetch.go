package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/Hamza5/InteractiveCV/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
)

const report_fetcher_fetch = "fetcher.fetch"

// BrowserHeaders is the header set sent with every static page request so the sites
// serve the page they would serve to a desktop Firefox. Accept-Encoding is left to the
// transport so compressed bodies are decoded transparently.
var BrowserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:126.0) Gecko/20100101 Firefox/126.0",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"DNT":                       "1",
	"Sec-GPC":                   "1",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Priority":                  "u=1",
}

// Fetcher downloads static pages with a browser-like request.
type Fetcher struct {
	http *resty.Client
	tel  telemetry.API
}

func NewFetcher(tel telemetry.API) *Fetcher {
	tel = telemetry.NewScopedAPI("fetcher", tel)

	client := resty.New()
	client.SetHeaders(BrowserHeaders)
	client.SetTimeout(time.Second * 30)
	telemetry.InstrumentResty(client, tel)

	return &Fetcher{http: client, tel: tel}
}

// Client exposes the underlying http client so other components (asset inlining)
// send the same headers.
func (f *Fetcher) Client() *resty.Client {
	return f.http
}

// Fetch downloads and parses the page at pageUrl. Transport failures and non 2xx
// responses are network errors.
func (f *Fetcher) Fetch(ctx context.Context, pageUrl string) (*Page, error) {
	res, err := f.http.R().
		SetContext(ctx).
		Get(pageUrl)
	if err != nil {
		f.tel.ReportBroken(report_fetcher_fetch, err, pageUrl)
		return nil, fmt.Errorf("%w: GET %s: %w", ErrNetwork, pageUrl, err)
	}
	if res.IsError() {
		err := fmt.Errorf("%w: GET %s: %s", ErrNetwork, pageUrl, res.Status())
		f.tel.ReportBroken(report_fetcher_fetch, err)
		return nil, err
	}

	finalUrl := pageUrl
	if res.RawResponse != nil && res.RawResponse.Request != nil && res.RawResponse.Request.URL != nil {
		finalUrl = res.RawResponse.Request.URL.String()
	}
	return NewPage(finalUrl, res.StatusCode(), res.Header(), res.Body())
}

// PageFetcher is what the static extractors need from a Fetcher.
type PageFetcher interface {
	Fetch(ctx context.Context, pageUrl string) (*Page, error)
}

var _ PageFetcher = (*Fetcher)(nil)
