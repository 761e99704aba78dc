package crm_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/mkfa/plannr-relay/internal/controllers/crm"
	"github.com/mkfa/plannr-relay/internal/envelope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Method  string
	Path    string
	Query   url.Values
	Headers http.Header
	Body    string
}

func newUpstream(t *testing.T, status int, contentType, body string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		captured = append(captured, capturedRequest{
			Method:  r.Method,
			Path:    r.URL.Path,
			Query:   r.URL.Query(),
			Headers: r.Header.Clone(),
			Body:    string(b),
		})
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func newController(t *testing.T, srv *httptest.Server, creds crm.Credentials) *crm.Controller {
	t.Helper()
	ctl, err := crm.NewController(
		crm.WithCredentials(creds),
		crm.WithAPIBaseURL(srv.URL+"/api/v1"),
		crm.WithTokenURL(srv.URL+"/oauth/token"),
		crm.WithAuthorizeURL(srv.URL+"/oauth/authorize"))
	require.NoError(t, err)
	return ctl
}

var appCredentials = crm.Credentials{ClientID: "client-id", ClientSecret: "client-secret"}

func TestExchangeCode(t *testing.T) {
	srv, captured := newUpstream(t, http.StatusOK, "application/json", `{"access_token":"t1"}`)
	ctl := newController(t, srv, appCredentials)

	result, err := ctl.ExchangeCode(context.Background(), "abc", "https://x/y")
	require.NoError(t, err)

	assert.True(t, result.OK())
	assert.Equal(t, envelope.JSON, result.Payload.Kind)
	assert.Equal(t, `{"access_token":"t1"}`, string(result.Payload.Raw))

	require.Len(t, *captured, 1)
	req := (*captured)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/oauth/token", req.Path)
	assert.Equal(t, "application/x-www-form-urlencoded", req.Headers.Get("Content-Type"))
	assert.Equal(t, "application/json", req.Headers.Get("Accept"))
	assert.Empty(t, req.Headers.Get("Authorization"))

	form, err := url.ParseQuery(req.Body)
	require.NoError(t, err)
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "abc", form.Get("code"))
	assert.Equal(t, "https://x/y", form.Get("redirect_uri"))
	assert.Equal(t, "client-id", form.Get("client_id"))
	assert.Equal(t, "client-secret", form.Get("client_secret"))
}

func TestRefreshToken(t *testing.T) {
	srv, captured := newUpstream(t, http.StatusBadRequest, "application/json", `{"error":"invalid_grant"}`)
	ctl := newController(t, srv, appCredentials)

	result, err := ctl.RefreshToken(context.Background(), "r1")
	require.NoError(t, err)
	assert.False(t, result.OK())
	assert.Equal(t, http.StatusBadRequest, result.StatusCode)

	require.Len(t, *captured, 1)
	form, err := url.ParseQuery((*captured)[0].Body)
	require.NoError(t, err)
	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "r1", form.Get("refresh_token"))
	assert.False(t, form.Has("redirect_uri"))
}

func TestTokenRequestWithoutClientCredentials(t *testing.T) {
	testCases := []struct {
		Name        string
		Credentials crm.Credentials
	}{
		{
			Name: "none",
		},
		{
			Name:        "missing_secret",
			Credentials: crm.Credentials{ClientID: "client-id"},
		},
		{
			Name:        "missing_id",
			Credentials: crm.Credentials{ClientSecret: "client-secret"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			srv, captured := newUpstream(t, http.StatusOK, "application/json", `{}`)
			ctl := newController(t, srv, tc.Credentials)

			_, err := ctl.ExchangeCode(context.Background(), "abc", "https://x/y")
			assert.ErrorIs(t, err, crm.ErrMissingClientCredentials)
			assert.Empty(t, *captured)
		})
	}
}

func TestGetForwardsBearerAndQuery(t *testing.T) {
	srv, captured := newUpstream(t, http.StatusOK, "application/json", `{"results":[]}`)
	ctl := newController(t, srv, crm.Credentials{})

	query := url.Values{"endpoint": {"logins"}, "page": {"2"}}
	result, err := ctl.Get(context.Background(), "tok", "logins", query)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)

	require.Len(t, *captured, 1)
	req := (*captured)[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/v1/logins", req.Path)
	assert.Equal(t, "Bearer tok", req.Headers.Get("Authorization"))
	assert.Equal(t, query, req.Query)
}

func TestGetKeepsNestedEndpoint(t *testing.T) {
	srv, captured := newUpstream(t, http.StatusNoContent, "", "")
	ctl := newController(t, srv, crm.Credentials{})

	result, err := ctl.Get(context.Background(), "tok", "client/u1/notes", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, result.StatusCode)
	assert.Equal(t, envelope.Empty, result.Payload.Kind)

	require.Len(t, *captured, 1)
	assert.Equal(t, "/api/v1/client/u1/notes", (*captured)[0].Path)
}

func TestPostForwardsBody(t *testing.T) {
	srv, captured := newUpstream(t, http.StatusCreated, "text/plain", "created")
	ctl := newController(t, srv, crm.Credentials{})

	result, err := ctl.Post(context.Background(), "tok", "notes", []byte(`{"text":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, result.StatusCode)
	assert.Equal(t, envelope.Text, result.Payload.Kind)
	assert.Equal(t, "text/plain", result.Payload.ContentType)

	require.Len(t, *captured, 1)
	req := (*captured)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/v1/notes", req.Path)
	assert.Equal(t, "application/json", req.Headers.Get("Content-Type"))
	assert.Equal(t, "Bearer tok", req.Headers.Get("Authorization"))
	assert.JSONEq(t, `{"text":"hi"}`, req.Body)
}

func TestListClients(t *testing.T) {
	srv, captured := newUpstream(t, http.StatusOK, "application/json", `{"data":[]}`)
	ctl := newController(t, srv, crm.Credentials{AccessToken: "server-token", AccountUUID: "acc-1"})

	result, err := ctl.ListClients(context.Background())
	require.NoError(t, err)
	assert.True(t, result.OK())

	require.Len(t, *captured, 1)
	req := (*captured)[0]
	assert.Equal(t, "/api/v1/client", req.Path)
	assert.Equal(t, "Bearer server-token", req.Headers.Get("Authorization"))
	assert.Equal(t, "acc-1", req.Headers.Get(crm.AccountUUIDHeader))
	assert.Empty(t, req.Query)
}

func TestListClientsWithoutServerCredentials(t *testing.T) {
	srv, captured := newUpstream(t, http.StatusOK, "application/json", `[]`)
	ctl := newController(t, srv, crm.Credentials{AccessToken: "server-token"})

	_, err := ctl.ListClients(context.Background())
	assert.ErrorIs(t, err, crm.ErrMissingServerCredentials)
	assert.Empty(t, *captured)
}

func TestAuthCodeURL(t *testing.T) {
	srv, captured := newUpstream(t, http.StatusOK, "", "")
	ctl := newController(t, srv, appCredentials)

	raw, err := ctl.AuthCodeURL("st4te", "https://app.example/auth/callback")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/oauth/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "*", q.Get("scope"))
	assert.Equal(t, "st4te", q.Get("state"))
	assert.Equal(t, "https://app.example/auth/callback", q.Get("redirect_uri"))
	assert.False(t, q.Has("client_secret"))
	assert.Empty(t, *captured)

	_, err = newController(t, srv, crm.Credentials{}).AuthCodeURL("s", "https://x")
	assert.ErrorIs(t, err, crm.ErrMissingClientCredentials)
}

func TestNewControllerRejectsRelativeURLs(t *testing.T) {
	_, err := crm.NewController(crm.WithAPIBaseURL("/api/v1"))
	assert.Error(t, err)
}

func TestUpstreamUnreachable(t *testing.T) {
	srv, _ := newUpstream(t, http.StatusOK, "", "")
	ctl := newController(t, srv, crm.Credentials{})
	srv.Close()

	_, err := ctl.Get(context.Background(), "tok", "logins", nil)
	assert.Error(t, err)
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestTransportFailure(t *testing.T) {
	var calls int
	ctl, err := crm.NewController(
		crm.WithHTTPClient(&http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, errors.New("connection refused")
		})}))
	require.NoError(t, err)

	_, err = ctl.Get(context.Background(), "tok", "logins", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream request failed")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, calls)
}

func TestRedirectDoesNotCarryTokenToAnotherHost(t *testing.T) {
	testCases := []struct {
		Name string
		Call func(ctl *crm.Controller) (*crm.Result, error)
	}{
		{
			Name: "get",
			Call: func(ctl *crm.Controller) (*crm.Result, error) {
				return ctl.Get(context.Background(), "secret-tok", "logins", nil)
			},
		},
		{
			Name: "list_clients",
			Call: func(ctl *crm.Controller) (*crm.Result, error) {
				return ctl.ListClients(context.Background())
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			other, otherCaptured := newUpstream(t, http.StatusOK, "application/json", `{"moved":true}`)
			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, other.URL+"/elsewhere", http.StatusFound)
			}))
			t.Cleanup(origin.Close)
			ctl := newController(t, origin, crm.Credentials{AccessToken: "secret-tok", AccountUUID: "acc-1"})

			result, err := tc.Call(ctl)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, result.StatusCode)

			require.Len(t, *otherCaptured, 1)
			assert.Empty(t, (*otherCaptured)[0].Headers.Get("Authorization"))
		})
	}
}

func TestRedirectOnSameHostKeepsToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/moved" {
			http.Redirect(w, r, "/api/v1/moved", http.StatusFound)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	ctl := newController(t, srv, crm.Credentials{})

	result, err := ctl.Get(context.Background(), "tok", "logins", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "Bearer tok", gotAuth)
}
