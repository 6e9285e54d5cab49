// Package dispatch runs the site extractors: each selected target is scraped, its
// session persisted when it has one, and its record written to the store variable
// named after it.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/Hamza5/InteractiveCV/internal/components/assert"
	"github.com/Hamza5/InteractiveCV/internal/components/telemetry"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/scraper"
	"github.com/Hamza5/InteractiveCV/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	HsoubAcademy   = "hsoub_academy"
	MostaqlReviews = "mostaql_reviews"
	KhamsatReviews = "khamsat_reviews"
	LinkedIn       = "linkedin"
)

// Order is the sequence targets run in when none is selected.
var Order = []string{HsoubAcademy, MostaqlReviews, KhamsatReviews, LinkedIn}

const (
	report_dispatcher_run     = "dispatcher.run"
	report_dispatcher_persist = "dispatcher.persist"
)

// Target is one extractor the dispatcher can run.
type Target struct {
	Name string
	// Variable is the store variable the record is written to.
	Variable string
	URL      string
	// New constructs the scraper, it is only called when the target runs.
	New func(ctx context.Context) (scraper.Scraper, error)
}

// Result is the outcome of one target. Err is set when no record was written,
// PersistErr when the session could not be saved back (the record is still written).
type Result struct {
	Target     string
	Variable   string
	Err        error
	PersistErr error
	Duration   time.Duration
}

type Dispatcher struct {
	targets map[string]Target
	store   store.Store
	tel     telemetry.API
	tracer  trace.Tracer
}

func NewDispatcher(st store.Store, tel telemetry.API, targets ...Target) *Dispatcher {
	assert.NotNil(st)
	assert.NotNil(tel)

	byName := make(map[string]Target, len(targets))
	for _, t := range targets {
		assert.NotEmptyStr(t.Name)
		assert.NotNil(t.New)
		byName[t.Name] = t
	}
	return &Dispatcher{
		targets: byName,
		store:   st,
		tel:     telemetry.NewScopedAPI("dispatch", tel),
		tracer:  telemetry.Tracer("github.com/Hamza5/InteractiveCV/internal/dispatch"),
	}
}

// Select returns the targets to run for an invocation argument, every target in Order
// when name is empty.
func (d *Dispatcher) Select(name string) ([]Target, error) {
	if name == "" {
		out := make([]Target, 0, len(Order))
		for _, n := range Order {
			t, ok := d.targets[n]
			if !ok {
				return nil, fmt.Errorf("%w: target %s is not configured", scraper.ErrConfiguration, n)
			}
			out = append(out, t)
		}
		return out, nil
	}
	t, ok := d.targets[name]
	if !ok || !slices.Contains(Order, name) {
		return nil, fmt.Errorf("%w: unknown target %q, expected one of %v", scraper.ErrConfiguration, name, Order)
	}
	return []Target{t}, nil
}

// Run runs the selected targets one after the other. A failing target does not stop
// the ones after it, the returned error is only about the selection.
func (d *Dispatcher) Run(ctx context.Context, name string) ([]Result, error) {
	targets, err := d.Select(name)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(targets))
	for _, t := range targets {
		res := d.runTarget(ctx, t)
		if res.Err != nil {
			d.tel.ReportBroken(report_dispatcher_run, res.Err, t.Name)
		}
		results = append(results, res)
	}
	return results, nil
}

func (d *Dispatcher) runTarget(ctx context.Context, t Target) Result {
	ctx, span := d.tracer.Start(ctx, t.Name, trace.WithAttributes(
		attribute.String("scraper.target", t.Name),
		attribute.String("scraper.variable", t.Variable),
	))
	defer span.End()

	start := time.Now()
	res := Result{Target: t.Name, Variable: t.Variable}
	res.Err = d.execute(ctx, t, &res)
	res.Duration = time.Since(start)

	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	} else if res.PersistErr != nil {
		span.RecordError(res.PersistErr)
	}
	return res
}

// execute runs one target and returns why it failed. A failure to save the session
// does not fail the target, it is recorded in res.PersistErr.
func (d *Dispatcher) execute(ctx context.Context, t Target, res *Result) error {
	if t.URL == "" {
		return fmt.Errorf("%w: no url configured for %s", scraper.ErrConfiguration, t.Name)
	}
	if t.Variable == "" {
		return fmt.Errorf("%w: no output variable configured for %s", scraper.ErrConfiguration, t.Name)
	}

	s, err := t.New(ctx)
	if err != nil {
		return err
	}
	closer, _ := s.(io.Closer)
	closeScraper := func() {
		if closer == nil {
			return
		}
		if err := closer.Close(); err != nil {
			d.tel.ReportWarning(report_dispatcher_run, "close scraper", t.Name, err)
		}
		closer = nil
	}
	defer closeScraper()

	err = s.Scrape(ctx, t.URL)
	if err != nil {
		return err
	}

	if sessioned, ok := s.(scraper.SessionScraper); ok {
		res.PersistErr = sessioned.PersistSession(ctx)
		if res.PersistErr != nil {
			d.tel.ReportBroken(report_dispatcher_persist, res.PersistErr, t.Name)
		}
	}
	closeScraper()

	record, err := s.ToRecord(ctx)
	if err != nil {
		return err
	}
	encoded, err := scraper.EncodeRecord(record)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", t.Name, err)
	}
	err = d.store.SetVariable(ctx, t.Variable, encoded)
	if err != nil {
		return fmt.Errorf("%w: save %s: %w", scraper.ErrPersist, t.Variable, err)
	}

	slog.InfoContext(ctx, "saved record", "target", t.Name, "variable", t.Variable, "bytes", len(encoded))
	return nil
}

// Failed tells whether any target of a run failed to write its record.
func Failed(results []Result) bool {
	return slices.ContainsFunc(results, func(r Result) bool {
		return r.Err != nil
	})
}

// Classify names the error class of err, for display.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, scraper.ErrConfiguration):
		return "configuration"
	case errors.Is(err, scraper.ErrExtraction):
		return "extraction"
	case errors.Is(err, scraper.ErrNetwork):
		return "network"
	case errors.Is(err, scraper.ErrPersist):
		return "persist"
	default:
		return "unknown"
	}
}
