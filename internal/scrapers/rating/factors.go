package rating

import (
	"fmt"

	"github.com/Hamza5/InteractiveCV/internal/scrapers/scraper"

	"github.com/PuerkitoBio/goquery"
)

// FactorSet names rating widgets that are rendered as a homogeneous repeated block,
// the i-th widget is the i-th name.
type FactorSet struct {
	Names      []string
	Normalizer Normalizer
}

// Factors holds one score per factor name.
type Factors map[string]float64

// Resolved is the result of reading a FactorSet, Unrated lists the factors whose
// widget had no rating at all.
type Resolved struct {
	Factors Factors
	Unrated []string
}

// Resolve scores each widget and names it by position. The number of widgets must be
// exactly the number of names, anything else means the layout changed.
func (f FactorSet) Resolve(widgets *goquery.Selection) (Resolved, error) {
	if widgets.Length() != len(f.Names) {
		return Resolved{}, fmt.Errorf(
			"%w: expected %d rating factors, found %d",
			scraper.ErrExtraction, len(f.Names), widgets.Length(),
		)
	}

	out := Resolved{Factors: make(Factors, len(f.Names))}
	for i, name := range f.Names {
		score, err := f.Normalizer.Score(widgets.Eq(i))
		if err != nil {
			return Resolved{}, fmt.Errorf("factor %s: %w", name, err)
		}
		if score.Source == SourceNone {
			out.Unrated = append(out.Unrated, name)
		}
		out.Factors[name] = score.Value
	}
	return out, nil
}
