// Package session owns the authenticated browsing context of the sites that need a
// login: the cookies are loaded from a Vault, replayed into the page engine, and the
// (possibly rotated) cookies are written back once the page has been read.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/Hamza5/InteractiveCV/internal/components/assert"
	"github.com/Hamza5/InteractiveCV/internal/components/telemetry"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/scraper"
)

const (
	report_manager_load    = "manager.load"
	report_manager_open    = "manager.open"
	report_manager_visit   = "manager.visit"
	report_manager_persist = "manager.persist"

	report_manager_applied_cookies = "manager.applied-cookies"
	report_manager_saved_cookies   = "manager.saved-cookies"
)

var (
	ErrSessionLoad     = fmt.Errorf("load session cookies: %w", scraper.ErrConfiguration)
	ErrSessionNavigate = fmt.Errorf("navigate session: %w", scraper.ErrNetwork)
	ErrSessionPersist  = fmt.Errorf("persist session cookies: %w", scraper.ErrPersist)
)

// Engine is the page-rendering engine the session drives, one page at a time.
type Engine interface {
	Navigate(ctx context.Context, url string) error
	// HTML returns the rendered document of the current page.
	HTML(ctx context.Context) (string, error)
	// Cookies returns the cookies of the browsing context that apply to url.
	Cookies(ctx context.Context, url string) (CookieSet, error)
	SetCookies(ctx context.Context, cookies CookieSet) error
	ClearCookies(ctx context.Context) error
	Close() error
}

type State int

const (
	Unauthenticated State = iota
	CookiesLoaded
	PageNavigated
	SessionActive
	CookiesPersisted
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case CookiesLoaded:
		return "cookies_loaded"
	case PageNavigated:
		return "page_navigated"
	case SessionActive:
		return "session_active"
	case CookiesPersisted:
		return "cookies_persisted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Manager walks a session through Load, Open, Visit and Persist, in that order.
type Manager struct {
	engine Engine
	vault  Vault
	root   *url.URL
	tel    telemetry.API

	state   State
	loaded  CookieSet
	applied CookieSet
}

// NewManager creates a manager for the site served at root (ex. https://www.linkedin.com/).
func NewManager(engine Engine, vault Vault, root string, tel telemetry.API) (*Manager, error) {
	assert.NotNil(engine)
	assert.NotNil(vault)
	assert.NotNil(tel)

	parsed, err := url.Parse(root)
	if err != nil || parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: invalid site root %q", scraper.ErrConfiguration, root)
	}
	return &Manager{
		engine: engine,
		vault:  vault,
		root:   parsed,
		tel:    telemetry.NewScopedAPI("session", tel),
	}, nil
}

func (m *Manager) State() State {
	return m.state
}

// Applied returns the cookies that were replayed into the engine by Open.
func (m *Manager) Applied() CookieSet {
	return m.applied
}

func (m *Manager) expect(state State) error {
	if m.state != state {
		return fmt.Errorf("session: expected state %s, in %s", state, m.state)
	}
	return nil
}

// Load reads the cookie set from the vault.
func (m *Manager) Load(ctx context.Context) error {
	if err := m.expect(Unauthenticated); err != nil {
		return err
	}

	cookies, err := m.vault.Load(ctx)
	if err != nil {
		m.tel.ReportBroken(report_manager_load, err)
		return fmt.Errorf("%w: %w", ErrSessionLoad, err)
	}
	m.loaded = cookies
	m.state = CookiesLoaded
	return nil
}

// Open navigates to the site root, clears the browsing context cookies and replays
// the loaded cookies that belong to the site.
func (m *Manager) Open(ctx context.Context) error {
	if err := m.expect(CookiesLoaded); err != nil {
		return err
	}

	root := m.root.String()
	err := m.engine.Navigate(ctx, root)
	if err != nil {
		m.tel.ReportBroken(report_manager_open, err, root)
		return fmt.Errorf("%w: open %s: %w", ErrSessionNavigate, root, err)
	}
	err = m.engine.ClearCookies(ctx)
	if err != nil {
		m.tel.ReportBroken(report_manager_open, err)
		return fmt.Errorf("%w: clear cookies: %w", ErrSessionNavigate, err)
	}

	applied := Prepare(m.loaded, m.root.Hostname())
	if dropped := len(m.loaded) - len(applied); dropped > 0 {
		m.tel.ReportDebug("dropped cookies of other domains", dropped)
	}
	err = m.engine.SetCookies(ctx, applied)
	if err != nil {
		m.tel.ReportBroken(report_manager_open, err)
		return fmt.Errorf("%w: set cookies: %w", ErrSessionNavigate, err)
	}

	m.applied = applied
	m.state = PageNavigated
	m.tel.ReportCount(report_manager_applied_cookies, int64(len(applied)))
	slog.InfoContext(ctx, "loaded cookies", "site", m.root.Hostname(), "count", len(applied))
	return nil
}

// Visit navigates to pageUrl under the authenticated context and returns the rendered
// html. It may be called more than once.
func (m *Manager) Visit(ctx context.Context, pageUrl string) (string, error) {
	if m.state != PageNavigated && m.state != SessionActive {
		return "", m.expect(PageNavigated)
	}

	err := m.engine.Navigate(ctx, pageUrl)
	if err != nil {
		m.tel.ReportBroken(report_manager_visit, err, pageUrl)
		return "", fmt.Errorf("%w: open %s: %w", ErrSessionNavigate, pageUrl, err)
	}
	html, err := m.engine.HTML(ctx)
	if err != nil {
		m.tel.ReportBroken(report_manager_visit, err, pageUrl)
		return "", fmt.Errorf("%w: read %s: %w", ErrSessionNavigate, pageUrl, err)
	}

	m.state = SessionActive
	return html, nil
}

// Persist reads back the cookies of the browsing context and overwrites the vault with
// them, keeping rotated session tokens usable by the next run.
func (m *Manager) Persist(ctx context.Context) error {
	if err := m.expect(SessionActive); err != nil {
		return err
	}

	root := m.root.String()
	cookies, err := m.engine.Cookies(ctx, root)
	if err != nil {
		m.tel.ReportBroken(report_manager_persist, err)
		return fmt.Errorf("%w: read cookies: %w", ErrSessionPersist, err)
	}
	err = m.vault.Save(ctx, cookies)
	if err != nil {
		m.tel.ReportBroken(report_manager_persist, err)
		return fmt.Errorf("%w: %w", ErrSessionPersist, err)
	}

	m.state = CookiesPersisted
	m.tel.ReportCount(report_manager_saved_cookies, int64(len(cookies)))
	slog.InfoContext(ctx, "saved cookies", "site", m.root.Hostname(), "count", len(cookies))
	return nil
}

// Close releases the page engine, the session cannot be used afterwards.
func (m *Manager) Close() error {
	return m.engine.Close()
}
