// Package asset embeds remote images into records as base64 text.
package asset

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/Hamza5/InteractiveCV/internal/components/assert"
	"github.com/Hamza5/InteractiveCV/internal/components/telemetry"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/scraper"

	"github.com/go-resty/resty/v2"
)

const report_inliner_inline = "inliner.inline"

// Inliner turns the resource at an url into base64 text.
type Inliner interface {
	Inline(ctx context.Context, url string) (string, error)
}

// HTTPInliner downloads resources with a resty client.
type HTTPInliner struct {
	http *resty.Client
	tel  telemetry.API
}

func NewHTTPInliner(client *resty.Client, tel telemetry.API) HTTPInliner {
	assert.NotNil(client)
	return HTTPInliner{
		http: client,
		tel:  telemetry.NewScopedAPI("asset", tel),
	}
}

// Inline fetches url and returns the standard base64 encoding of the body. Any
// transport failure or non 2xx response is a network error.
func (i HTTPInliner) Inline(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("%w: empty asset url", scraper.ErrExtraction)
	}

	res, err := i.http.R().
		SetContext(ctx).
		SetHeader("Accept", "image/avif,image/webp,image/png,image/svg+xml,image/*;q=0.8,*/*;q=0.5").
		SetHeader("Sec-Fetch-Dest", "image").
		SetHeader("Sec-Fetch-Mode", "no-cors").
		Get(url)
	if err != nil {
		i.tel.ReportBroken(report_inliner_inline, err, url)
		return "", fmt.Errorf("%w: fetch asset %s: %w", scraper.ErrNetwork, url, err)
	}
	if res.IsError() {
		err := fmt.Errorf("%w: fetch asset %s: %s", scraper.ErrNetwork, url, res.Status())
		i.tel.ReportBroken(report_inliner_inline, err)
		return "", err
	}

	i.tel.ReportDebug("inlined asset", url, len(res.Body()))
	return base64.StdEncoding.EncodeToString(res.Body()), nil
}

// Disabled is the Inliner used when asset inlining is turned off, records then carry
// only the asset urls.
type Disabled struct{}

func (Disabled) Inline(context.Context, string) (string, error) {
	return "", nil
}
