// Package crm provides a Controller that issues requests against the Plannr CRM REST API and OAuth token endpoint.
package crm

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mkfa/plannr-relay/internal/envelope"
	"github.com/mkfa/plannr-relay/internal/helpers"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	// DefaultAPIBaseURL is the base of every pass-through call.
	DefaultAPIBaseURL = "https://api.plannrcrm.com/api/v1"
	// DefaultTokenURL is the OAuth token endpoint used for code and refresh-token exchanges.
	DefaultTokenURL = "https://api.plannrcrm.com/oauth/token"
	// DefaultAuthorizeURL is the OAuth authorization endpoint browsers are redirected to.
	DefaultAuthorizeURL = "https://api.plannrcrm.com/oauth/authorize"
	// DefaultTimeout bounds a single upstream round trip.
	DefaultTimeout = 30 * time.Second

	// AccountUUIDHeader carries the account identifier on server-credential calls.
	AccountUUIDHeader = "X-PLANNR-ACCOUNT-UUID"
	// ClientsResource is the API resource listing CRM clients.
	ClientsResource = "client"
	// DefaultScope is requested on authorization redirects.
	DefaultScope = "*"
)

var (
	// ErrMissingClientCredentials is returned when the application client id or secret is not configured.
	ErrMissingClientCredentials = errors.New("missing upstream client credentials")
	// ErrMissingServerCredentials is returned when the standing access token or account UUID is not configured.
	ErrMissingServerCredentials = errors.New("missing PlannrCRM credentials in configuration")
)

// Credentials holds the upstream secrets. The JSON tags describe the document stored in SSM.
type Credentials struct {
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	AccountUUID  string `json:"account_uuid,omitempty"`
}

// HasClientCredentials reports whether the OAuth application credentials are both set.
func (c Credentials) HasClientCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// HasServerCredentials reports whether the standing access token and account UUID are both set.
func (c Credentials) HasServerCredentials() bool {
	return c.AccessToken != "" && c.AccountUUID != ""
}

// Result is the outcome of a single upstream call.
type Result struct {
	StatusCode int
	Payload    envelope.Payload
}

// OK reports whether the upstream answered 200.
func (r *Result) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Option is a functional option used to configure a Controller.
type Option func(*Controller)

// Controller performs upstream calls. It holds no per-request state and is safe for concurrent use.
type Controller struct {
	credentials Credentials

	logger       *slog.Logger
	client       *http.Client
	timeout      time.Duration
	apiBaseURL   string
	tokenURL     string
	authorizeURL string
}

// NewController initializes a new Controller with the provided options, setting defaults where necessary.
func NewController(opts ...Option) (*Controller, error) {
	_inst := &Controller{
		apiBaseURL:   DefaultAPIBaseURL,
		tokenURL:     DefaultTokenURL,
		authorizeURL: DefaultAuthorizeURL,
		timeout:      DefaultTimeout,
	}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	for name, raw := range map[string]string{
		"api base":  _inst.apiBaseURL,
		"token":     _inst.tokenURL,
		"authorize": _inst.authorizeURL,
	} {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s URL", name)
		}
		if !u.IsAbs() {
			return nil, errors.Errorf("%s URL must be absolute: %q", name, raw)
		}
	}
	if _inst.client == nil {
		_inst.client = &http.Client{
			Timeout:   _inst.timeout,
			Transport: &loggingRoundTripper{logger: _inst.logger, next: http.DefaultTransport},
		}
	} else {
		client := *_inst.client
		_inst.client = &client
	}
	if _inst.client.CheckRedirect == nil {
		_inst.client.CheckRedirect = dropAuthorizationOffHost
	}
	return _inst, nil
}

// Credentials returns the credentials the controller was built with.
func (c *Controller) Credentials() Credentials {
	return c.credentials
}

// ExchangeCode trades an authorization code for tokens.
func (c *Controller) ExchangeCode(ctx context.Context, code, redirectURI string) (*Result, error) {
	return c.tokenRequest(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"redirect_uri": {redirectURI},
		"code":         {code},
	})
}

// RefreshToken trades a refresh token for a new token set.
func (c *Controller) RefreshToken(ctx context.Context, refreshToken string) (*Result, error) {
	return c.tokenRequest(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}

func (c *Controller) tokenRequest(ctx context.Context, form url.Values) (*Result, error) {
	if !c.credentials.HasClientCredentials() {
		return nil, ErrMissingClientCredentials
	}
	form.Set("client_id", c.credentials.ClientID)
	form.Set("client_secret", c.credentials.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint().TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build token request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(c.client, req)
}

// Get forwards a GET to endpoint under the API base, authenticated with the caller's bearer token.
func (c *Controller) Get(ctx context.Context, token, endpoint string, query url.Values) (*Result, error) {
	target, err := c.resourceURL(endpoint, query)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build upstream request")
	}
	req.Header.Set("Accept", "application/json")
	setBearer(req, token)
	return c.do(c.client, req)
}

// Post forwards a JSON body to endpoint under the API base, authenticated with the caller's bearer token.
func (c *Controller) Post(ctx context.Context, token, endpoint string, body []byte) (*Result, error) {
	target, err := c.resourceURL(endpoint, nil)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build upstream request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	setBearer(req, token)
	return c.do(c.client, req)
}

// ListClients fetches the full clients resource with the relay's own access token and account UUID.
func (c *Controller) ListClients(ctx context.Context) (*Result, error) {
	if !c.credentials.HasServerCredentials() {
		return nil, ErrMissingServerCredentials
	}
	target, err := c.resourceURL(ClientsResource, nil)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build upstream request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(AccountUUIDHeader, c.credentials.AccountUUID)
	setBearer(req, c.credentials.AccessToken)
	return c.do(c.client, req)
}

// AuthCodeURL builds the URL a browser is sent to in order to start the authorization code flow.
func (c *Controller) AuthCodeURL(state, redirectURI string) (string, error) {
	if c.credentials.ClientID == "" {
		return "", ErrMissingClientCredentials
	}
	cfg := &oauth2.Config{
		ClientID:    c.credentials.ClientID,
		Endpoint:    c.endpoint(),
		RedirectURL: redirectURI,
		Scopes:      []string{DefaultScope},
	}
	return cfg.AuthCodeURL(state), nil
}

func (c *Controller) endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   c.authorizeURL,
		TokenURL:  c.tokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// setBearer attaches token to req itself, so the client's redirect policy still governs where it travels.
func setBearer(req *http.Request, token string) {
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
}

const maxRedirects = 10

// dropAuthorizationOffHost follows redirects like the default policy but never carries the
// Authorization header to a different host or port than the one it was issued for.
func dropAuthorizationOffHost(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.Errorf("stopped after %d redirects", maxRedirects)
	}
	if !strings.EqualFold(req.URL.Host, via[0].URL.Host) {
		req.Header.Del("Authorization")
	}
	return nil
}

// resourceURL joins endpoint onto the API base as-is and appends query.
func (c *Controller) resourceURL(endpoint string, query url.Values) (string, error) {
	u, err := url.Parse(c.apiBaseURL + "/" + endpoint)
	if err != nil {
		return "", errors.Wrapf(err, "invalid endpoint %q", endpoint)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Controller) do(client *http.Client, req *http.Request) (*Result, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "upstream request failed")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read upstream response")
	}
	return &Result{
		StatusCode: resp.StatusCode,
		Payload:    envelope.Sniff(body, resp.Header.Get("Content-Type")),
	}, nil
}
