package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Hamza5/InteractiveCV/internal/components/telemetry"
	"github.com/Hamza5/InteractiveCV/internal/scrapers/scraper"
	"github.com/Hamza5/InteractiveCV/internal/session"
	"github.com/Hamza5/InteractiveCV/internal/session/sessiontest"
	"github.com/Hamza5/InteractiveCV/internal/store"

	"github.com/stretchr/testify/require"
)

const (
	root    = "https://www.linkedin.com/"
	profile = "https://www.linkedin.com/in/hamza/"
)

const storedCookies = `[
	{"name":"li_at","value":"v1","domain":".www.linkedin.com","path":"/","sameSite":"no_restriction","secure":true,"httpOnly":true},
	{"name":"JSESSIONID","value":"ajax:1","domain":"www.linkedin.com","path":"/","sameSite":"STRICT","secure":true},
	{"name":"NID","value":"x","domain":".google.com","path":"/","sameSite":"lax"}
]`

func newManager(t *testing.T, engine session.Engine, vault session.Vault) *session.Manager {
	t.Helper()
	m, err := session.NewManager(engine, vault, root, &telemetry.Recorder{})
	require.NoError(t, err)
	return m
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	require.NoError(t, s.SetVariable(ctx, "LINKEDIN_COOKIES", storedCookies))

	engine := sessiontest.NewEngine(map[string]string{profile: "<h1>Hamza</h1>"})
	engine.Rotate = func(jar session.CookieSet) session.CookieSet {
		for i := range jar {
			if jar[i].Name == "li_at" {
				jar[i].Value = "v2"
			}
		}
		return jar
	}

	tel := &telemetry.Recorder{}
	m, err := session.NewManager(engine, session.NewVariableVault(s, "LINKEDIN_COOKIES"), root, tel)
	require.NoError(t, err)
	require.Equal(t, session.Unauthenticated, m.State())

	require.NoError(t, m.Load(ctx))
	require.Equal(t, session.CookiesLoaded, m.State())

	require.NoError(t, m.Open(ctx))
	require.Equal(t, session.PageNavigated, m.State())
	require.Len(t, m.Applied(), 2)
	for _, c := range engine.Jar() {
		require.NotEqual(t, "NID", c.Name)
	}

	html, err := m.Visit(ctx, profile)
	require.NoError(t, err)
	require.Equal(t, "<h1>Hamza</h1>", html)
	require.Equal(t, session.SessionActive, m.State())
	require.Equal(t, []string{root, profile}, engine.Visited())

	require.NoError(t, m.Persist(ctx))
	require.Equal(t, session.CookiesPersisted, m.State())

	saved, err := s.GetVariable(ctx, "LINKEDIN_COOKIES")
	require.NoError(t, err)
	set, err := session.ParseCookieSet([]byte(saved))
	require.NoError(t, err)
	require.Len(t, set, 2)
	require.Equal(t, "li_at", set[0].Name)
	require.Equal(t, "v2", set[0].Value)
	require.Equal(t, session.SameSiteNone, set[0].SameSite)
	require.Equal(t, session.SameSiteStrict, set[1].SameSite)

	require.Equal(t, []telemetry.Report{
		{Kind: "count", ID: "session: manager.applied-cookies", Params: []any{int64(2)}},
		{Kind: "count", ID: "session: manager.saved-cookies", Params: []any{int64(2)}},
	}, tel.Reports("count"))
}

func TestManagerSecretVault(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	engine := sessiontest.NewEngine(nil)

	m := newManager(t, engine, session.NewSecretVault(s, "LINKEDIN_COOKIES", storedCookies))
	require.NoError(t, m.Load(ctx))
	require.NoError(t, m.Open(ctx))
	_, err := m.Visit(ctx, profile)
	require.NoError(t, err)
	require.NoError(t, m.Persist(ctx))

	secret, ok := s.Secret("LINKEDIN_COOKIES")
	require.True(t, ok)
	require.Contains(t, secret, `"li_at"`)
	require.NotContains(t, secret, `"NID"`)
	require.Empty(t, s.Variables())
}

func TestManagerLoadFailures(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name  string
		vault func(s *store.Memory) session.Vault
	}{
		{
			name: "missing variable",
			vault: func(s *store.Memory) session.Vault {
				return session.NewVariableVault(s, "LINKEDIN_COOKIES")
			},
		},
		{
			name: "invalid variable",
			vault: func(s *store.Memory) session.Vault {
				_ = s.SetVariable(ctx, "LINKEDIN_COOKIES", "{not json")
				return session.NewVariableVault(s, "LINKEDIN_COOKIES")
			},
		},
		{
			name: "secret not provided",
			vault: func(s *store.Memory) session.Vault {
				return session.NewSecretVault(s, "LINKEDIN_COOKIES", "")
			},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			m := newManager(t, sessiontest.NewEngine(nil), test.vault(store.NewMemory()))
			err := m.Load(ctx)
			require.ErrorIs(t, err, session.ErrSessionLoad)
			require.ErrorIs(t, err, scraper.ErrConfiguration)
			require.Equal(t, session.Unauthenticated, m.State())
		})
	}
}

func TestManagerNavigateFailure(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	require.NoError(t, s.SetVariable(ctx, "LINKEDIN_COOKIES", storedCookies))

	engine := sessiontest.NewEngine(nil)
	engine.NavigateErr[profile] = errors.New("net::ERR_CONNECTION_RESET")

	m := newManager(t, engine, session.NewVariableVault(s, "LINKEDIN_COOKIES"))
	require.NoError(t, m.Load(ctx))
	require.NoError(t, m.Open(ctx))

	_, err := m.Visit(ctx, profile)
	require.ErrorIs(t, err, session.ErrSessionNavigate)
	require.ErrorIs(t, err, scraper.ErrNetwork)
	require.NotErrorIs(t, err, session.ErrSessionLoad)
	require.Equal(t, session.PageNavigated, m.State())

	require.Error(t, m.Persist(ctx), "persist before an active session")
}

func TestManagerPersistFailure(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	require.NoError(t, s.SetVariable(ctx, "LINKEDIN_COOKIES", storedCookies))

	engine := sessiontest.NewEngine(nil)
	engine.CookiesErr = errors.New("target closed")

	m := newManager(t, engine, session.NewVariableVault(s, "LINKEDIN_COOKIES"))
	require.NoError(t, m.Load(ctx))
	require.NoError(t, m.Open(ctx))
	_, err := m.Visit(ctx, profile)
	require.NoError(t, err)

	err = m.Persist(ctx)
	require.ErrorIs(t, err, session.ErrSessionPersist)
	require.ErrorIs(t, err, scraper.ErrPersist)
	require.Equal(t, session.SessionActive, m.State())

	stored, err := s.GetVariable(ctx, "LINKEDIN_COOKIES")
	require.NoError(t, err)
	require.Equal(t, storedCookies, stored)
}

func TestManagerOutOfOrder(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, sessiontest.NewEngine(nil), session.NewSecretVault(store.NewMemory(), "C", "[]"))

	require.Error(t, m.Open(ctx))
	_, err := m.Visit(ctx, profile)
	require.Error(t, err)
	require.Error(t, m.Persist(ctx))

	require.NoError(t, m.Load(ctx))
	require.Error(t, m.Load(ctx))
}

func TestNewManagerInvalidRoot(t *testing.T) {
	_, err := session.NewManager(sessiontest.NewEngine(nil), session.NewSecretVault(store.NewMemory(), "C", "[]"), "not a url", &telemetry.Recorder{})
	require.ErrorIs(t, err, scraper.ErrConfiguration)
}
