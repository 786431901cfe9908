package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrijs2005/atelier/internal/app"
	"github.com/dmitrijs2005/atelier/internal/backup"
	"github.com/dmitrijs2005/atelier/internal/config"
	"github.com/dmitrijs2005/atelier/internal/logging"
	"github.com/dmitrijs2005/atelier/internal/storage/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mutate func(*config.Config), blob backup.Blob) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.StoreDriver = kv.DriverMemory
	if mutate != nil {
		mutate(cfg)
	}
	h, err := kv.Open(ctx, kv.DriverMemory, "")
	require.NoError(t, err)
	a, err := app.Wire(ctx, cfg, h, blob, logging.Nop())
	require.NoError(t, err)

	srv := httptest.NewServer(New(a).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func errCode(t *testing.T, data []byte) string {
	t.Helper()
	var e ErrorBody
	require.NoError(t, json.Unmarshal(data, &e))
	return e.Code
}

const adaSignup = `{"email":"ada@x.io","password":"pw","firstName":"Ada","lastName":"Lovelace","userType":"client","phone":"555"}`

func TestHealthAndRequestID(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, body := call(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, string(body))
	require.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")
	r2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	r2.Body.Close()
	require.Equal(t, "abc-123", r2.Header.Get(RequestIDHeader))
}

func TestSignup_NameIsDerivedAndAvatarMustBeString(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, body := call(t, srv, http.MethodPost, "/signup",
		`{"email":"ada@x.io","password":"pw","firstName":"Ada","lastName":"Lovelace","userType":"client","name":"Boss"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var info map[string]any
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, "Ada Lovelace", info["name"])

	resp, body = call(t, srv, http.MethodPost, "/login", `{"email":"ada@x.io","password":"pw"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var sess SessionView
	require.NoError(t, json.Unmarshal(body, &sess))
	require.NotNil(t, sess.UserInfo)
	assert.Equal(t, "Ada Lovelace", sess.UserInfo.Name)

	resp, body = call(t, srv, http.MethodPost, "/signup",
		`{"email":"bob@x.io","password":"pw","userType":"client","avatar":{"url":"a.png"}}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_input", errCode(t, body))
}

func TestSignupLoginFlow(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, body := call(t, srv, http.MethodPost, "/signup", adaSignup)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var info map[string]any
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, "Ada Lovelace", info["name"])
	assert.Equal(t, "555", info["phone"])
	assert.NotContains(t, info, "password")

	resp, body = call(t, srv, http.MethodPost, "/signup", strings.Replace(adaSignup, `"client"`, `"designer"`, 1))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "duplicate_email", errCode(t, body))

	resp, body = call(t, srv, http.MethodPost, "/signup", `{"email":"x@x.io","userType":"admin"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_input", errCode(t, body))

	resp, body = call(t, srv, http.MethodPost, "/login", `{"email":"nobody@x.io","password":"pw"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "no_such_account", errCode(t, body))

	resp, body = call(t, srv, http.MethodPost, "/login", `{"email":"ada@x.io","password":"bad"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_credentials", errCode(t, body))

	resp, body = call(t, srv, http.MethodPost, "/login", `{"email":"ada@x.io","password":"pw"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sess SessionView
	require.NoError(t, json.Unmarshal(body, &sess))
	require.True(t, sess.IsAuthenticated)
	require.Equal(t, "logged_in", sess.State)

	resp, body = call(t, srv, http.MethodPost, "/login", `{"email":"ada@x.io","password":"pw"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "already_authenticated", errCode(t, body))

	resp, body = call(t, srv, http.MethodPatch, "/profile", `{"lastName":"King","bio":"<b>math</b>"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, "Ada King", info["name"])
	assert.Equal(t, "math", info["bio"])

	resp, _ = call(t, srv, http.MethodPut, "/profile/password", `{"current":"pw","next":"pw2"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = call(t, srv, http.MethodPut, "/profile/social-links", `{"links":{"ig":"https://ig/ada"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"socialLinks":{"ig":"https://ig/ada"}`)

	resp, _ = call(t, srv, http.MethodPost, "/logout", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = call(t, srv, http.MethodGet, "/session", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &sess))
	require.False(t, sess.IsAuthenticated)
	require.Nil(t, sess.UserInfo)

	resp, body = call(t, srv, http.MethodPatch, "/profile", `{"bio":"x"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "no_session", errCode(t, body))
}

func TestCartRoutes(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, body := call(t, srv, http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"key":"cart_guest","items":[],"total":0}`, string(body))

	resp, _ = call(t, srv, http.MethodPost, "/cart/lines", `{"productId":1,"name":"Shirt","price":10,"quantity":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = call(t, srv, http.MethodPost, "/cart/lines", `{"productId":"1","name":"Shirt","price":10,"quantity":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cart CartView
	require.NoError(t, json.Unmarshal(body, &cart))
	require.Len(t, cart.Items, 1)
	require.Equal(t, 3, cart.Items[0].Quantity)
	require.InDelta(t, 30, cart.Total, 1e-9)

	resp, body = call(t, srv, http.MethodPost, "/cart/lines", `{"productId":"1","name":"Shirt","price":10,"quantity":8}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_input", errCode(t, body))

	resp, body = call(t, srv, http.MethodPatch, "/cart/lines/1", `{"quantity":5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &cart))
	require.InDelta(t, 50, cart.Total, 1e-9)

	resp, body = call(t, srv, http.MethodPatch, "/cart/lines/404", `{"quantity":5}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "not_found", errCode(t, body))

	resp, body = call(t, srv, http.MethodDelete, "/cart/lines/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &cart))
	require.Empty(t, cart.Items)

	resp, _ = call(t, srv, http.MethodPost, "/cart/lines", `{"productId":"2","name":"Hat","price":4}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = call(t, srv, http.MethodDelete, "/cart", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &cart))
	require.Zero(t, cart.Total)

	resp, body = call(t, srv, http.MethodPost, "/cart/lines", `{"productId":`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_input", errCode(t, body))
}

func TestLoginMigratesGuestCart(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	call(t, srv, http.MethodPost, "/signup", adaSignup)
	call(t, srv, http.MethodPost, "/cart/lines", `{"productId":"1","name":"Shirt","price":10,"quantity":2}`)
	call(t, srv, http.MethodPost, "/login", `{"email":"ada@x.io","password":"pw"}`)

	_, body := call(t, srv, http.MethodGet, "/cart", "")
	var cart CartView
	require.NoError(t, json.Unmarshal(body, &cart))
	require.Equal(t, "cart_client_1", cart.Key)
	require.Len(t, cart.Items, 1)
	require.InDelta(t, 20, cart.Total, 1e-9)
}

func TestLoginRateLimit(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) {
		c.LoginRatePerMinute = 1
		c.LoginBurst = 2
	}, nil)

	for range 2 {
		resp, _ := call(t, srv, http.MethodPost, "/login", `{"email":"nobody@x.io","password":"pw"}`)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	}
	resp, body := call(t, srv, http.MethodPost, "/login", `{"email":"nobody@x.io","password":"pw"}`)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "60", resp.Header.Get("Retry-After"))
	require.Equal(t, "rate_limit_exceeded", errCode(t, body))

	resp, _ = call(t, srv, http.MethodGet, "/session", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, "only the login route is limited")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	call(t, srv, http.MethodPost, "/login", `{"email":"nobody@x.io","password":"pw"}`)

	resp, body := call(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `atelier_intents_total{intent="login",outcome="no_such_account"} 1`)
	require.Contains(t, string(body), `atelier_http_requests_total{method="POST",status_code="404"} 1`)
}

func TestBackupRoutes(t *testing.T) {
	disabled := newTestServer(t, nil, nil)
	resp, body := call(t, disabled, http.MethodPost, "/backups", "")
	require.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	require.Equal(t, "backup_disabled", errCode(t, body))

	srv := newTestServer(t, nil, backup.NewFileBlob(t.TempDir()))

	resp, body = call(t, srv, http.MethodPost, "/backups/restore", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "snapshot_not_found", errCode(t, body))

	call(t, srv, http.MethodPost, "/signup", adaSignup)

	resp, body = call(t, srv, http.MethodPost, "/backups", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created backupRequest
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotEmpty(t, created.Name)

	resp, body = call(t, srv, http.MethodGet, "/backups", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), created.Name)

	payload, err := json.Marshal(backupRequest{Name: created.Name})
	require.NoError(t, err)
	resp, body = call(t, srv, http.MethodPost, "/backups/restore", string(payload))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, _ = call(t, srv, http.MethodPost, "/login", `{"email":"ada@x.io","password":"pw"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRecoverer(t *testing.T) {
	h := recoverer(logging.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", bytes.NewReader(nil)))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "internal", errCode(t, rec.Body.Bytes()))
}
