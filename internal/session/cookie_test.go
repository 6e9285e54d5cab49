package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSameSite(t *testing.T) {
	testCases := []struct {
		input    string
		expected SameSite
	}{
		{input: "strict", expected: SameSiteStrict},
		{input: "Strict", expected: SameSiteStrict},
		{input: "STRICT", expected: SameSiteStrict},
		{input: "LAX", expected: SameSiteLax},
		{input: "lax", expected: SameSiteLax},
		{input: "none", expected: SameSiteNone},
		{input: "None", expected: SameSiteNone},
		{input: "no_restriction", expected: SameSiteNone},
		{input: "unspecified", expected: SameSiteNone},
		{input: "foo", expected: SameSiteNone},
		{input: "", expected: SameSiteNone},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, NormalizeSameSite(test.input), test.input)
	}
}

func TestMatchesDomain(t *testing.T) {
	testCases := []struct {
		domain   string
		host     string
		expected bool
	}{
		{domain: "www.linkedin.com", host: "www.linkedin.com", expected: true},
		{domain: ".www.linkedin.com", host: "www.linkedin.com", expected: true},
		{domain: ".linkedin.com", host: "www.linkedin.com", expected: true},
		{domain: "LinkedIn.com", host: "www.linkedin.com", expected: true},
		{domain: "evil-linkedin.com", host: "www.linkedin.com", expected: false},
		{domain: "linkedin.com.evil.com", host: "www.linkedin.com", expected: false},
		{domain: "ads.linkedin.com", host: "www.linkedin.com", expected: false},
		{domain: ".google.com", host: "www.linkedin.com", expected: false},
		{domain: "", host: "www.linkedin.com", expected: false},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, MatchesDomain(test.domain, test.host), test.domain)
	}
}

func TestParseCookieSet(t *testing.T) {
	data := []byte(`[
		{
			"domain": ".www.linkedin.com",
			"expirationDate": 1767225600.5,
			"hostOnly": false,
			"httpOnly": true,
			"name": "li_at",
			"path": "/",
			"sameSite": "no_restriction",
			"secure": true,
			"session": false,
			"storeId": "0",
			"value": "AQEDAR"
		},
		{
			"name": "JSESSIONID",
			"value": "\"ajax:123\"",
			"domain": "www.linkedin.com",
			"path": "/",
			"expires": -1,
			"httpOnly": false,
			"secure": true,
			"sameSite": "lax"
		},
		{
			"name": "bcookie",
			"value": "v=2",
			"domain": ".linkedin.com",
			"expires": 1767225600,
			"sameSite": null
		}
	]`)

	set, err := ParseCookieSet(data)
	require.NoError(t, err)

	expires := 1767225600.5
	expires2 := float64(1767225600)
	expected := CookieSet{
		{
			Name:     "li_at",
			Value:    "AQEDAR",
			Domain:   ".www.linkedin.com",
			Path:     "/",
			Expires:  &expires,
			HTTPOnly: true,
			Secure:   true,
			SameSite: SameSiteNone,
		},
		{
			Name:     "JSESSIONID",
			Value:    `"ajax:123"`,
			Domain:   "www.linkedin.com",
			Path:     "/",
			Secure:   true,
			SameSite: SameSiteLax,
		},
		{
			Name:     "bcookie",
			Value:    "v=2",
			Domain:   ".linkedin.com",
			Path:     "/",
			Expires:  &expires2,
			SameSite: SameSiteNone,
		},
	}
	if diff := cmp.Diff(expected, set); diff != "" {
		t.Fatalf("cookies mismatch (-want +got):\n%s", diff)
	}

	encoded, err := set.Encode()
	require.NoError(t, err)
	require.NotContains(t, encoded, "storeId")
	require.NotContains(t, encoded, "expirationDate")

	reparsed, err := ParseCookieSet([]byte(encoded))
	require.NoError(t, err)
	if diff := cmp.Diff(set, reparsed); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCookieSetInvalid(t *testing.T) {
	for _, data := range []string{``, `{}`, `not json`, `[{"value":"x"}]`} {
		_, err := ParseCookieSet([]byte(data))
		require.Error(t, err, data)
	}

	set, err := ParseCookieSet([]byte(`[]`))
	require.NoError(t, err)
	require.Empty(t, set)
}

func TestPrepare(t *testing.T) {
	set := CookieSet{
		{Name: "li_at", Domain: ".www.linkedin.com", SameSite: "strict"},
		{Name: "bcookie", Domain: ".linkedin.com", SameSite: "Lax"},
		{Name: "NID", Domain: ".google.com", SameSite: "None"},
		{Name: "lang", Domain: "www.linkedin.com", SameSite: "whatever"},
		{Name: "ads", Domain: "ads.linkedin.com", SameSite: "None"},
	}

	applied := Prepare(set, "www.linkedin.com")

	names := []string{}
	for _, c := range applied {
		names = append(names, c.Name)
		require.Contains(t, []SameSite{SameSiteStrict, SameSiteLax, SameSiteNone}, c.SameSite)
	}
	require.Equal(t, []string{"li_at", "bcookie", "lang"}, names)
	require.Equal(t, SameSiteStrict, applied[0].SameSite)
	require.Equal(t, SameSiteNone, applied[2].SameSite)

	// input untouched
	require.Equal(t, SameSite("strict"), set[0].SameSite)
	require.Empty(t, Prepare(set, "www.example.com"))
}
