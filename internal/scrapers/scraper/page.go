package scraper

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is a parsed html document together with the url it was served from.
type Page struct {
	URL   *url.URL
	Doc   *goquery.Document
	Block BlockType
}

// NewPage parses body as html. pageUrl is used to resolve relative references and
// the status, headers and markup outside scripts decide Block.
func NewPage(pageUrl string, statusCode int, header http.Header, body []byte) (*Page, error) {
	parsed, err := url.Parse(pageUrl)
	if err != nil {
		return nil, fmt.Errorf("%w: parse page url: %w", ErrConfiguration, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html of %s: %w", ErrExtraction, pageUrl, err)
	}
	return &Page{
		URL:   parsed,
		Doc:   doc,
		Block: DetectBlock(statusCode, header, blockMarkup(doc)),
	}, nil
}

// blockMarkup renders doc without its scripts and styles. Rendered pages ship
// inline code mentioning captchas and challenges without showing any.
func blockMarkup(doc *goquery.Document) []byte {
	markup := doc.Selection.Clone()
	markup.Find("script, style, noscript, template").Remove()
	rendered, err := goquery.OuterHtml(markup)
	if err != nil {
		return nil
	}
	return []byte(rendered)
}

// Resolve turns a possibly relative reference found in the page into an absolute url.
func (p *Page) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || p.URL == nil {
		return ref
	}
	resolved, err := p.URL.Parse(ref)
	if err != nil {
		return ref
	}
	return resolved.String()
}

// Require returns the first match of selector under root, or an extraction error.
func (p *Page) Require(root *goquery.Selection, selector string) (*goquery.Selection, error) {
	sel := root.Find(selector)
	if sel.Length() == 0 {
		return nil, MissingElement(selector, p.Block)
	}
	return sel.First(), nil
}

// RequireAll returns every match of selector under root, failing when there is none.
func (p *Page) RequireAll(root *goquery.Selection, selector string) (*goquery.Selection, error) {
	sel := root.Find(selector)
	if sel.Length() == 0 {
		return nil, MissingElement(selector, p.Block)
	}
	return sel, nil
}

// RequireText is Require followed by reading the trimmed text of the element.
func (p *Page) RequireText(root *goquery.Selection, selector string) (string, error) {
	sel, err := p.Require(root, selector)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(sel.Text()), nil
}

// RequireAttr is Require followed by reading an attribute that must be present.
func (p *Page) RequireAttr(root *goquery.Selection, selector, attr string) (string, error) {
	sel, err := p.Require(root, selector)
	if err != nil {
		return "", err
	}
	value, ok := sel.Attr(attr)
	if !ok {
		return "", fmt.Errorf("%w: element %q has no %q attribute", ErrExtraction, selector, attr)
	}
	return strings.TrimSpace(value), nil
}

// RequireURL reads an url attribute and resolves it against the page url.
func (p *Page) RequireURL(root *goquery.Selection, selector, attr string) (string, error) {
	value, err := p.RequireAttr(root, selector, attr)
	if err != nil {
		return "", err
	}
	return p.Resolve(value), nil
}

// ParseInt parses the trimmed text of a field as a base 10 integer.
func ParseInt(field, text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %q is not an integer", ErrExtraction, field, text)
	}
	return n, nil
}

var leadingCount = regexp.MustCompile(`\d[\d,]*`)

// ParseCount reads the first run of digits in text (thousands separators allowed),
// "500+" and "1,024 followers" yield 500 and 1024.
func ParseCount(field, text string) (int, error) {
	token := leadingCount.FindString(text)
	if token == "" {
		return 0, fmt.Errorf("%w: %s: %q has no number", ErrExtraction, field, text)
	}
	return ParseInt(field, strings.ReplaceAll(token, ",", ""))
}
