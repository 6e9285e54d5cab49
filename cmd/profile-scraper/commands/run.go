package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Hamza5/InteractiveCV/internal/browser"
	"github.com/Hamza5/InteractiveCV/internal/components/telemetry"
	"github.com/Hamza5/InteractiveCV/internal/config"
	"github.com/Hamza5/InteractiveCV/internal/dispatch"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/asset"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/hsoub"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/khamsat"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/linkedin"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/mostaql"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/scraper"
	"github.com/Hamza5/InteractiveCV/internal/session"
	"github.com/Hamza5/InteractiveCV/internal/store"
)

func run(ctx context.Context, target string, out io.Writer) error {
	telemetry.InitSlog(telemetry.ParseLevel(os.Getenv(config.EnvLogLevel)))

	cfg, err := config.Load(os.Getenv(config.EnvConfigFile), ".env")
	if err != nil {
		return err
	}
	telemetry.InitSlog(telemetry.ParseLevel(cfg.LogLevel))

	shutdown, err := telemetry.SetupTracing(ctx, "profile-scraper", cfg.Telemetry.OtlpHttpEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("failed to flush traces", "err", err)
		}
	}()

	tel := telemetry.SlogAPI{}

	st, closeStore, err := openStore(cfg, tel)
	if err != nil {
		return err
	}
	defer closeStore()

	fetcher := scraper.NewFetcher(tel)
	err = telemetry.DumpResty(fetcher.Client(), cfg.Telemetry.DumpDir)
	if err != nil {
		return fmt.Errorf("%w: %w", scraper.ErrConfiguration, err)
	}
	var inliner asset.Inliner = asset.Disabled{}
	if cfg.Inline() {
		inliner = asset.NewHTTPInliner(fetcher.Client(), tel)
	}

	d := dispatch.NewDispatcher(st, tel, targets(cfg, st, fetcher, inliner, tel)...)
	results, err := d.Run(ctx, target)
	if err != nil {
		return err
	}

	for _, r := range results {
		if r.Err != nil {
			slog.ErrorContext(ctx, "target failed", "target", r.Target, "class", dispatch.Classify(r.Err), "err", r.Err)
		}
		if r.PersistErr != nil {
			slog.WarnContext(ctx, "session not saved", "target", r.Target, "err", r.PersistErr)
		}
	}
	dispatch.RenderResults(out, results)

	if dispatch.Failed(results) {
		return fmt.Errorf("one or more targets failed")
	}
	return nil
}

func openStore(cfg config.Config, tel telemetry.API) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreSQLite:
		db, err := store.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", scraper.ErrConfiguration, err)
		}
		slog.Info("using local store", "path", cfg.Store.SQLitePath)
		return db, func() { closeWithWarning("store", db) }, nil
	default:
		gh, err := store.NewGitHub(store.GitHubOptions{
			BaseUrl:    cfg.Store.GitHub.BaseUrl,
			Token:      cfg.Store.GitHub.Token,
			Repository: cfg.Store.GitHub.Repository,
		}, tel)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", scraper.ErrConfiguration, err)
		}
		return gh, func() {}, nil
	}
}

func targets(
	cfg config.Config,
	st store.Store,
	fetcher *scraper.Fetcher,
	inliner asset.Inliner,
	tel telemetry.API,
) []dispatch.Target {
	return []dispatch.Target{
		{
			Name:     dispatch.HsoubAcademy,
			Variable: cfg.Targets.HsoubAcademy.Variable,
			URL:      cfg.Targets.HsoubAcademy.URL,
			New: func(context.Context) (scraper.Scraper, error) {
				return hsoub.NewScraper(fetcher, inliner, tel), nil
			},
		},
		{
			Name:     dispatch.MostaqlReviews,
			Variable: cfg.Targets.MostaqlReviews.Variable,
			URL:      cfg.Targets.MostaqlReviews.URL,
			New: func(context.Context) (scraper.Scraper, error) {
				return mostaql.NewScraper(fetcher, inliner, tel), nil
			},
		},
		{
			Name:     dispatch.KhamsatReviews,
			Variable: cfg.Targets.KhamsatReviews.Variable,
			URL:      cfg.Targets.KhamsatReviews.URL,
			New: func(context.Context) (scraper.Scraper, error) {
				return khamsat.NewScraper(fetcher, inliner, tel), nil
			},
		},
		{
			Name:     dispatch.LinkedIn,
			Variable: cfg.Targets.LinkedIn.Variable,
			URL:      cfg.Targets.LinkedIn.URL,
			New: func(ctx context.Context) (scraper.Scraper, error) {
				return newLinkedIn(ctx, cfg, st, inliner, tel)
			},
		},
	}
}

func newLinkedIn(
	ctx context.Context,
	cfg config.Config,
	st store.Store,
	inliner asset.Inliner,
	tel telemetry.API,
) (scraper.Scraper, error) {
	var vault session.Vault
	switch cfg.LinkedIn.CookieStorage {
	case config.CookieStorageVariable:
		vault = session.NewVariableVault(st, cfg.LinkedIn.CookieName)
	default:
		vault = session.NewSecretVault(st, cfg.LinkedIn.CookieName, cfg.LinkedIn.Cookies)
	}

	engine, err := browser.Launch(ctx, browser.Config{
		RemoteURL:         cfg.Browser.RemoteUrl,
		Headful:           cfg.Browser.Headful,
		NavigationTimeout: time.Duration(cfg.Browser.NavigationTimeoutSeconds) * time.Second,
	}, tel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", scraper.ErrNetwork, err)
	}

	manager, err := session.NewManager(engine, vault, linkedin.SiteRoot, tel)
	if err != nil {
		closeWithWarning("browser", engine)
		return nil, err
	}
	return linkedin.NewScraper(manager, inliner, tel), nil
}

// closeWithWarning closes c and logs a failure, for cleanup paths that already
// have a result or an error to return.
func closeWithWarning(what string, c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Warn("failed to close "+what, "err", err)
	}
}
