// Package rating resolves the score shown by a rating widget. Review sites render a
// score either as a decimal number or as a row of star icons, the Normalizer reads
// whichever of the two is present.
package rating

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Hamza5/InteractiveCV/internal/scrapers/scraper"

	"github.com/PuerkitoBio/goquery"
)

// Source tells which representation a score was read from.
type Source string

const (
	SourceText  Source = "text"
	SourceStars Source = "stars"
	// SourceNone means the widget had neither a number nor a filled star, the value is 0
	// and cannot be told apart from a real zero rating.
	SourceNone Source = "none"
)

type Score struct {
	Value  float64
	Source Source
}

// Normalizer describes where a site puts the two representations inside one widget.
type Normalizer struct {
	// Text selects the element holding the numeric text, relative to the widget. A
	// missing element reads as empty text.
	Text string
	// Stars selects the filled star markers, relative to the widget.
	Stars string
}

// Score reads the widget: the numeric text when it is not empty, otherwise the number
// of filled stars. Non numeric text is an extraction error.
func (n Normalizer) Score(widget *goquery.Selection) (Score, error) {
	text := strings.TrimSpace(widget.Find(n.Text).First().Text())
	if text != "" {
		value, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Score{}, fmt.Errorf("%w: rating %q is not a number", scraper.ErrExtraction, text)
		}
		return Score{Value: value, Source: SourceText}, nil
	}

	stars := widget.Find(n.Stars).Length()
	if stars == 0 {
		return Score{Value: 0, Source: SourceNone}, nil
	}
	return Score{Value: float64(stars), Source: SourceStars}, nil
}
