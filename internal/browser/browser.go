// Package browser is the page engine used by sessions: a Chrome driven through Rod with
// a stealth page, so the site sees a regular browser rather than an automation client.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Hamza5/InteractiveCV/internal/components/assert"
	"github.com/Hamza5/InteractiveCV/internal/components/telemetry"
	"github.com/Hamza5/InteractiveCV/internal/session"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

const (
	report_browser_launch   = "browser.launch"
	report_browser_navigate = "browser.navigate"
)

type Config struct {
	// RemoteURL is the websocket url of an already running Chrome. Empty launches a
	// local one.
	RemoteURL string
	// Headful shows the browser window, useful to debug selectors locally.
	Headful bool
	// NavigationTimeout bounds each navigation. Default: 60s.
	NavigationTimeout time.Duration
}

// Browser is a session.Engine with a single page.
type Browser struct {
	browser *rod.Browser
	page    *rod.Page
	lnch    *launcher.Launcher
	timeout time.Duration
	tel     telemetry.API
}

var _ session.Engine = (*Browser)(nil)

// Launch starts (or connects to) Chrome and opens one stealth page.
func Launch(ctx context.Context, cfg Config, tel telemetry.API) (*Browser, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("browser", tel)

	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 60 * time.Second
	}

	out := &Browser{timeout: cfg.NavigationTimeout, tel: tel}

	wsURL := cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Context(ctx).
			Headless(!cfg.Headful).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			tel.ReportBroken(report_browser_launch, err)
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		out.lnch = l
		slog.DebugContext(ctx, "launched local chrome", "url", wsURL, "headful", cfg.Headful)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		out.cleanup()
		tel.ReportBroken(report_browser_launch, err)
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	out.browser = b

	page, err := stealth.Page(b)
	if err != nil {
		out.Close()
		tel.ReportBroken(report_browser_launch, err)
		return nil, fmt.Errorf("browser: create page: %w", err)
	}
	out.page = page

	return out, nil
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	page := b.page.Context(navCtx)
	err := page.Navigate(url)
	if err != nil {
		b.tel.ReportBroken(report_browser_navigate, err, url)
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		b.tel.ReportWarning(report_browser_navigate, "wait load", url, err)
	}
	return nil
}

func (b *Browser) HTML(ctx context.Context) (string, error) {
	html, err := b.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("browser: read html: %w", err)
	}
	return html, nil
}

func (b *Browser) Cookies(ctx context.Context, url string) (session.CookieSet, error) {
	cookies, err := b.page.Context(ctx).Cookies([]string{url})
	if err != nil {
		return nil, fmt.Errorf("browser: read cookies: %w", err)
	}
	return fromNetworkCookies(cookies), nil
}

func (b *Browser) SetCookies(ctx context.Context, cookies session.CookieSet) error {
	if len(cookies) == 0 {
		return nil
	}
	err := b.page.Context(ctx).SetCookies(toCookieParams(cookies))
	if err != nil {
		return fmt.Errorf("browser: set cookies: %w", err)
	}
	return nil
}

func (b *Browser) ClearCookies(ctx context.Context) error {
	err := proto.NetworkClearBrowserCookies{}.Call(b.page.Context(ctx))
	if err != nil {
		return fmt.Errorf("browser: clear cookies: %w", err)
	}
	return nil
}

// Close closes the page and the browser, and removes the profile of a launched Chrome.
func (b *Browser) Close() error {
	var err error
	if b.page != nil {
		err = b.page.Close()
		b.page = nil
	}
	if b.browser != nil {
		if closeErr := b.browser.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		b.browser = nil
	}
	b.cleanup()
	return err
}

func (b *Browser) cleanup() {
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
}

func fromNetworkCookies(cookies []*proto.NetworkCookie) session.CookieSet {
	out := make(session.CookieSet, 0, len(cookies))
	for _, c := range cookies {
		var expires *float64
		if !c.Session && c.Expires > 0 {
			e := float64(c.Expires)
			expires = &e
		}
		out = append(out, session.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: session.NormalizeSameSite(string(c.SameSite)),
		})
	}
	return out
}

func toCookieParams(cookies session.CookieSet) []*proto.NetworkCookieParam {
	out := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		param := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: proto.NetworkCookieSameSite(session.NormalizeSameSite(string(c.SameSite))),
		}
		if c.Expires != nil {
			param.Expires = proto.TimeSinceEpoch(*c.Expires)
		}
		out = append(out, param)
	}
	return out
}
