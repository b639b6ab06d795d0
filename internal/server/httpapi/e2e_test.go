package httpapi_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrijs2005/alertkeeper/internal/dbx"
	"github.com/dmitrijs2005/alertkeeper/internal/logging"
	"github.com/dmitrijs2005/alertkeeper/internal/server/config"
	"github.com/dmitrijs2005/alertkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/alertkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/alertkeeper/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newStack(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	m := repomanager.NewSQLRepositoryManager(dbx.DialectSQLite, nil)
	require.NoError(t, m.RunMigrations(context.Background(), db))

	us := services.NewUserService(db, m, &config.Config{SecretKey: "e2e-secret"})
	as, err := services.NewAlertService(db, m, 16)
	require.NoError(t, err)

	l := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	srv := httptest.NewServer(httpapi.NewServer("", l, us, as, httpapi.Options{Version: "e2e"}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, req *http.Request) (int, map[string]any, []any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var obj map[string]any
	var arr []any
	if len(raw) > 0 && raw[0] == '[' {
		require.NoError(t, json.Unmarshal(raw, &arr))
	} else {
		require.NoError(t, json.Unmarshal(raw, &obj), string(raw))
	}
	return resp.StatusCode, obj, arr
}

func newReq(t *testing.T, method, url, body, token string) *http.Request {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestEndToEnd(t *testing.T) {
	srv := newStack(t)

	code, _, _ := call(t, newReq(t, http.MethodPost, srv.URL+"/auth/register", `{"username":"analyst","password":"s3cret"}`, ""))
	require.Equal(t, http.StatusCreated, code)

	code, body, _ := call(t, newReq(t, http.MethodPost, srv.URL+"/auth/register", `{"username":"analyst","password":"other"}`, ""))
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "conflict", body["error"])

	login := newReq(t, http.MethodPost, srv.URL+"/auth/login", "", "")
	login.SetBasicAuth("analyst", "wrong")
	code, _, _ = call(t, login)
	require.Equal(t, http.StatusUnauthorized, code)

	login = newReq(t, http.MethodPost, srv.URL+"/auth/login", "", "")
	login.SetBasicAuth("analyst", "s3cret")
	code, body, _ = call(t, login)
	require.Equal(t, http.StatusOK, code)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	code, _, _ = call(t, newReq(t, http.MethodGet, srv.URL+"/alerts", "", ""))
	require.Equal(t, http.StatusUnauthorized, code)

	code, _, _ = call(t, newReq(t, http.MethodGet, srv.URL+"/alerts", "", token))
	require.Equal(t, http.StatusNotFound, code, "empty registry")

	alert := `{"source":"edr","user":"bob","description":"beacon","date":"2024-05-01 10:00:00",
		"iocs":[{"type":"ip","data":"10.0.0.1"},{"type":"domain","data":"evil.example"}]}`
	code, body, _ = call(t, newReq(t, http.MethodPost, srv.URL+"/alert", alert, token))
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, float64(1), body["id"])

	code, body, _ = call(t, newReq(t, http.MethodPost, srv.URL+"/alert", alert, token))
	require.Equal(t, http.StatusBadRequest, code, "same source and IOC again")
	assert.Equal(t, "Duplicate IOC for the same source", body["message"])

	other := `{"source":"ids","user":"carol","description":"scan","date":"2024-05-02 10:00:00",
		"iocs":[{"type":"ip","data":"10.0.0.1"}]}`
	code, _, _ = call(t, newReq(t, http.MethodPost, srv.URL+"/alert", other, token))
	require.Equal(t, http.StatusCreated, code, "same IOC from a different source is allowed")

	code, body, _ = call(t, newReq(t, http.MethodGet, srv.URL+"/alert/1", "", token))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "edr", body["source"])
	assert.Len(t, body["iocs"], 2)

	code, _, list := call(t, newReq(t, http.MethodGet, srv.URL+"/alerts?ioc_type=ip&ioc_data=10.0.0.1", "", token))
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, list, 2)

	code, _, list = call(t, newReq(t, http.MethodGet, srv.URL+"/alerts?user=carol", "", token))
	require.Equal(t, http.StatusOK, code)
	require.Len(t, list, 1)
	assert.Equal(t, "ids", list[0].(map[string]any)["source"])

	code, _, _ = call(t, newReq(t, http.MethodGet, srv.URL+"/alert/42", "", token))
	assert.Equal(t, http.StatusNotFound, code)

	// Both alerts are dated in the past, so windows starting now or later
	// match nothing.
	for _, days := range []string{"0", "-1"} {
		code, _, _ = call(t, newReq(t, http.MethodGet, srv.URL+"/alerts?days="+days, "", token))
		assert.Equal(t, http.StatusNotFound, code, "days=%s", days)
	}
}
