package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Hamza5/InteractiveCV/internal/components/assert"
	"github.com/Hamza5/InteractiveCV/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
	"golang.org/x/crypto/nacl/box"
)

const (
	report_github_get_variable = "github.get-variable"
	report_github_set_variable = "github.set-variable"
	report_github_put_secret   = "github.put-secret"
)

const DefaultGitHubAPI = "https://api.github.com"

// GitHub stores values as GitHub Actions repository variables and secrets.
type GitHub struct {
	http       *resty.Client
	repository string
	tel        telemetry.API
}

type GitHubOptions struct {
	// BaseUrl defaults to DefaultGitHubAPI.
	BaseUrl string
	Token   string
	// Repository is "owner/name".
	Repository string
}

func NewGitHub(opts GitHubOptions, tel telemetry.API) (*GitHub, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("github_store", tel)

	if opts.Token == "" {
		return nil, fmt.Errorf("github store: empty token")
	}
	owner, name, ok := strings.Cut(opts.Repository, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("github store: repository %q is not owner/name", opts.Repository)
	}
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultGitHubAPI
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(opts.BaseUrl, "/"))
	client.SetAuthToken(opts.Token)
	client.SetHeader("Accept", "application/vnd.github+json")
	client.SetHeader("X-GitHub-Api-Version", "2022-11-28")
	client.SetTimeout(time.Second * 30)
	telemetry.InstrumentResty(client, tel)

	return &GitHub{
		http:       client,
		repository: url.PathEscape(owner) + "/" + url.PathEscape(name),
		tel:        tel,
	}, nil
}

type githubVariable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (g *GitHub) variablesPath() string {
	return fmt.Sprintf("/repos/%s/actions/variables", g.repository)
}

func (g *GitHub) GetVariable(ctx context.Context, name string) (string, error) {
	var out githubVariable
	res, err := g.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(g.variablesPath() + "/" + url.PathEscape(name))
	if err != nil {
		g.tel.ReportBroken(report_github_get_variable, err, name)
		return "", fmt.Errorf("get variable %s: %w", name, err)
	}
	if res.StatusCode() == http.StatusNotFound {
		return "", fmt.Errorf("%s: %w", name, ErrVariableNotFound)
	}
	if res.IsError() {
		err := fmt.Errorf("get variable %s: %s", name, res.Status())
		g.tel.ReportBroken(report_github_get_variable, err)
		return "", err
	}
	return out.Value, nil
}

// SetVariable overwrites an existing variable, creating it when the repository does not
// have it yet.
func (g *GitHub) SetVariable(ctx context.Context, name, value string) error {
	body := githubVariable{Name: name, Value: value}

	res, err := g.http.R().
		SetContext(ctx).
		SetBody(body).
		Patch(g.variablesPath() + "/" + url.PathEscape(name))
	if err != nil {
		g.tel.ReportBroken(report_github_set_variable, err, name)
		return fmt.Errorf("update variable %s: %w", name, err)
	}
	if res.StatusCode() != http.StatusNotFound {
		if res.IsError() {
			err := fmt.Errorf("update variable %s: %s", name, res.Status())
			g.tel.ReportBroken(report_github_set_variable, err)
			return err
		}
		return nil
	}

	g.tel.ReportDebug("variable does not exist, creating it", name)
	res, err = g.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(g.variablesPath())
	if err != nil {
		g.tel.ReportBroken(report_github_set_variable, err, name)
		return fmt.Errorf("create variable %s: %w", name, err)
	}
	if res.IsError() {
		err := fmt.Errorf("create variable %s: %s", name, res.Status())
		g.tel.ReportBroken(report_github_set_variable, err)
		return err
	}
	return nil
}

type githubPublicKey struct {
	KeyID string `json:"key_id"`
	Key   string `json:"key"`
}

type githubSecret struct {
	EncryptedValue string `json:"encrypted_value"`
	KeyID          string `json:"key_id"`
}

// PutSecret creates or overwrites a secret. The value is sealed to the repository's
// public key (libsodium sealed box) before it leaves the process.
func (g *GitHub) PutSecret(ctx context.Context, name, value string) error {
	var key githubPublicKey
	res, err := g.http.R().
		SetContext(ctx).
		SetResult(&key).
		Get(fmt.Sprintf("/repos/%s/actions/secrets/public-key", g.repository))
	if err != nil {
		g.tel.ReportBroken(report_github_put_secret, err, name)
		return fmt.Errorf("get repository public key: %w", err)
	}
	if res.IsError() {
		err := fmt.Errorf("get repository public key: %s", res.Status())
		g.tel.ReportBroken(report_github_put_secret, err)
		return err
	}

	sealed, err := SealSecret(key.Key, []byte(value))
	if err != nil {
		g.tel.ReportBroken(report_github_put_secret, err, name)
		return err
	}

	res, err = g.http.R().
		SetContext(ctx).
		SetBody(githubSecret{EncryptedValue: sealed, KeyID: key.KeyID}).
		Put(fmt.Sprintf("/repos/%s/actions/secrets/%s", g.repository, url.PathEscape(name)))
	if err != nil {
		g.tel.ReportBroken(report_github_put_secret, err, name)
		return fmt.Errorf("put secret %s: %w", name, err)
	}
	if res.IsError() {
		err := fmt.Errorf("put secret %s: %s", name, res.Status())
		g.tel.ReportBroken(report_github_put_secret, err)
		return err
	}
	return nil
}

// SealSecret encrypts plaintext for a base64 encoded curve25519 public key and returns
// the base64 encoded sealed box.
func SealSecret(publicKey string, plaintext []byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return "", fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("public key is %d bytes, expected 32", len(raw))
	}
	var recipient [32]byte
	copy(recipient[:], raw)

	sealed, err := box.SealAnonymous(nil, plaintext, &recipient, rand.Reader)
	if err != nil {
		return "", fmt.Errorf("seal secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}
