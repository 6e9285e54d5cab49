// Package sessiontest provides an in-memory session.Engine for tests.
package sessiontest

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/Hamza5/InteractiveCV/internal/session"
)

// Engine serves canned html per url and keeps a cookie jar.
type Engine struct {
	mu sync.Mutex

	Pages map[string]string
	// NavigateErr fails navigation to the given urls.
	NavigateErr map[string]error
	CookiesErr  error
	// Rotate, when set, is applied to the jar after every navigation (ex. to refresh a
	// session token the way a real site does).
	Rotate func(jar session.CookieSet) session.CookieSet

	jar     session.CookieSet
	current string
	visited []string
	closed  bool
}

func NewEngine(pages map[string]string) *Engine {
	return &Engine{Pages: pages, NavigateErr: map[string]error{}}
}

func (e *Engine) Navigate(_ context.Context, target string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.NavigateErr[target]; err != nil {
		return err
	}
	e.current = target
	e.visited = append(e.visited, target)
	if e.Rotate != nil {
		e.jar = e.Rotate(e.jar)
	}
	return nil
}

func (e *Engine) HTML(context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	html, ok := e.Pages[e.current]
	if !ok {
		return "<html><body></body></html>", nil
	}
	return html, nil
}

func (e *Engine) Cookies(_ context.Context, target string) (session.CookieSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.CookiesErr != nil {
		return nil, e.CookiesErr
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	out := session.CookieSet{}
	for _, c := range e.jar {
		if session.MatchesDomain(c.Domain, parsed.Hostname()) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (e *Engine) SetCookies(_ context.Context, cookies session.CookieSet) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, c := range cookies {
		if c.SameSite != session.SameSiteStrict && c.SameSite != session.SameSiteLax && c.SameSite != session.SameSiteNone {
			return fmt.Errorf("invalid sameSite %q for cookie %s", c.SameSite, c.Name)
		}
		e.jar = append(e.jar, c)
	}
	return nil
}

func (e *Engine) ClearCookies(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jar = nil
	return nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Jar returns a copy of every cookie in the engine.
func (e *Engine) Jar() session.CookieSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append(session.CookieSet{}, e.jar...)
}

func (e *Engine) Visited() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string{}, e.visited...)
}

func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
