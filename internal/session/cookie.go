package session

import (
	"encoding/json"
	"fmt"
	"strings"
)

type SameSite string

const (
	SameSiteStrict SameSite = "Strict"
	SameSiteLax    SameSite = "Lax"
	SameSiteNone   SameSite = "None"
)

// NormalizeSameSite maps any spelling of strict or lax to its canonical form, every
// other value (including "", "no_restriction" and "unspecified") becomes None.
func NormalizeSameSite(value string) SameSite {
	value = strings.TrimSpace(value)
	switch {
	case strings.EqualFold(value, string(SameSiteStrict)):
		return SameSiteStrict
	case strings.EqualFold(value, string(SameSiteLax)):
		return SameSiteLax
	default:
		return SameSiteNone
	}
}

type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
	// Expires is in seconds since the unix epoch, nil for a session cookie.
	Expires  *float64 `json:"expires,omitempty"`
	HTTPOnly bool     `json:"httpOnly"`
	Secure   bool     `json:"secure"`
	SameSite SameSite `json:"sameSite"`
}

type CookieSet []Cookie

// wireCookie accepts both the browser-extension export format (expirationDate) and the
// automation format (expires). Fields it does not name are dropped.
type wireCookie struct {
	Name           string   `json:"name"`
	Value          string   `json:"value"`
	Domain         string   `json:"domain"`
	Path           string   `json:"path"`
	Expires        *float64 `json:"expires"`
	ExpirationDate *float64 `json:"expirationDate"`
	HTTPOnly       bool     `json:"httpOnly"`
	Secure         bool     `json:"secure"`
	SameSite       string   `json:"sameSite"`
}

// ParseCookieSet decodes a serialized CookieSet, normalizing sameSite on the way.
func ParseCookieSet(data []byte) (CookieSet, error) {
	var wire []wireCookie
	err := json.Unmarshal(data, &wire)
	if err != nil {
		return nil, fmt.Errorf("decode cookies: %w", err)
	}

	out := make(CookieSet, 0, len(wire))
	for i, w := range wire {
		if w.Name == "" {
			return nil, fmt.Errorf("decode cookies: cookie %d has no name", i)
		}
		expires := w.Expires
		if w.ExpirationDate != nil {
			expires = w.ExpirationDate
		}
		if expires != nil && *expires < 0 {
			expires = nil
		}
		path := w.Path
		if path == "" {
			path = "/"
		}
		out = append(out, Cookie{
			Name:     w.Name,
			Value:    w.Value,
			Domain:   w.Domain,
			Path:     path,
			Expires:  expires,
			HTTPOnly: w.HTTPOnly,
			Secure:   w.Secure,
			SameSite: NormalizeSameSite(w.SameSite),
		})
	}
	return out, nil
}

func (s CookieSet) Encode() (string, error) {
	if s == nil {
		s = CookieSet{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// MatchesDomain reports whether a cookie set for cookieDomain applies to host, that is
// whether the cookie domain (without its leading dot) is host or a parent of host.
func MatchesDomain(cookieDomain, host string) bool {
	cookieDomain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cookieDomain), "."))
	host = strings.ToLower(strings.TrimSpace(host))
	if cookieDomain == "" || host == "" {
		return false
	}
	return host == cookieDomain || strings.HasSuffix(host, "."+cookieDomain)
}

// Prepare returns the cookies of set that apply to host with their sameSite normalized.
// Cookies for other domains are dropped. The input set is not modified.
func Prepare(set CookieSet, host string) CookieSet {
	out := CookieSet{}
	for _, c := range set {
		if !MatchesDomain(c.Domain, host) {
			continue
		}
		c.SameSite = NormalizeSameSite(string(c.SameSite))
		out = append(out, c)
	}
	return out
}
