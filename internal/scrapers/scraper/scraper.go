// Package scraper holds what every site extractor shares: the Scraper contract,
// the error classes a run can fail with, the browser-like page fetcher and the
// helpers used to read required elements out of a fetched page.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
)

// Scraper is implemented once per site.
//
// Scrape fetches the page at url and populates the scraper's fields, it fails with an
// ErrExtraction when an expected element is missing. ToRecord returns the
// JSON-serializable record of what was scraped, fetching and inlining images on the
// way (an ErrNetwork if one of them cannot be fetched).
type Scraper interface {
	Scrape(ctx context.Context, url string) error
	ToRecord(ctx context.Context) (any, error)
}

// SessionScraper is a Scraper whose site needs an authenticated session, the session
// state is written back to the external store by PersistSession once Scrape succeeded.
type SessionScraper interface {
	Scraper
	PersistSession(ctx context.Context) error
}

// EncodeRecord serializes a record as UTF-8 JSON without escaping html characters.
func EncodeRecord(record any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(record)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
