package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/alertkeeper/internal/client/client"
	"github.com/dmitrijs2005/alertkeeper/internal/client/config"
	"github.com/dmitrijs2005/alertkeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	token string

	registered []string
	regErr     error

	loginUser string
	loginPass string
	loginTok  string
	loginErr  error

	query   models.AlertQuery
	listOut []models.Alert
	listErr error

	getOut *models.Alert
	getErr error

	created   *models.Alert
	createID  int64
	createErr error
}

func (f *fakeClient) SetToken(token string) { f.token = token }

func (f *fakeClient) Register(_ context.Context, username, password string) error {
	f.registered = append(f.registered, username+":"+password)
	return f.regErr
}

func (f *fakeClient) Login(_ context.Context, username, password string) (string, error) {
	f.loginUser, f.loginPass = username, password
	return f.loginTok, f.loginErr
}

func (f *fakeClient) ListAlerts(_ context.Context, q models.AlertQuery) ([]models.Alert, error) {
	f.query = q
	return f.listOut, f.listErr
}

func (f *fakeClient) GetAlert(_ context.Context, id int64) (*models.Alert, error) {
	return f.getOut, f.getErr
}

func (f *fakeClient) CreateAlert(_ context.Context, a *models.Alert) (int64, error) {
	f.created = a
	return f.createID, f.createErr
}

func newTestApp(t *testing.T, fc *fakeClient, stdin string) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{
		ServerURL: "http://127.0.0.1:1",
		TokenFile: filepath.Join(t.TempDir(), "sub", "token"),
		Timeout:   time.Second,
	}
	var out bytes.Buffer
	app := &App{
		config:    cfg,
		newClient: func(*config.Config) (client.Client, error) { return fc, nil },
		reader:    bufio.NewReader(strings.NewReader(stdin)),
		out:       &out,
	}
	return app, &out
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	old := readPassword
	readPassword = func(int) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { readPassword = old })
}

func TestRootCmd_Structure(t *testing.T) {
	app, _ := newTestApp(t, &fakeClient{}, "")
	root := app.NewRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"register", "login", "logout", "alerts"} {
		assert.True(t, names[want], "missing command %s", want)
	}
	for _, f := range []string{"server", "token-file", "timeout", "config", "json"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(f), f)
	}
}

func TestRegister_PromptsForUsername(t *testing.T) {
	stubPassword(t, "pw")
	fc := &fakeClient{}
	app, out := newTestApp(t, fc, "alice\n")

	require.NoError(t, app.Run(context.Background(), []string{"register"}))
	assert.Equal(t, []string{"alice:pw"}, fc.registered)
	assert.Contains(t, out.String(), "User alice created")
}

func TestRegister_Conflict(t *testing.T) {
	stubPassword(t, "pw")
	fc := &fakeClient{regErr: &client.APIError{Status: 400, Kind: "conflict"}}
	app, _ := newTestApp(t, fc, "")

	err := app.Run(context.Background(), []string{"register", "-u", "alice"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRegister_EmptyPassword(t *testing.T) {
	stubPassword(t, "")
	fc := &fakeClient{}
	app, _ := newTestApp(t, fc, "")

	require.Error(t, app.Run(context.Background(), []string{"register", "-u", "alice"}))
	assert.Empty(t, fc.registered)
}

func TestLoginLogout_TokenFile(t *testing.T) {
	stubPassword(t, "pw")
	fc := &fakeClient{loginTok: "tok-123"}
	app, out := newTestApp(t, fc, "")

	require.NoError(t, app.Run(context.Background(), []string{"login", "--username", "alice"}))
	assert.Equal(t, "alice", fc.loginUser)
	assert.Equal(t, "pw", fc.loginPass)
	assert.Contains(t, out.String(), "Logged in as alice")

	info, err := os.Stat(app.config.TokenFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	tok, err := loadToken(app.config.TokenFile)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok)

	require.NoError(t, app.Run(context.Background(), []string{"logout"}))
	_, err = os.Stat(app.config.TokenFile)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, app.Run(context.Background(), []string{"logout"}), "logout is idempotent")
}

func TestLogin_BadCredentials(t *testing.T) {
	stubPassword(t, "nope")
	fc := &fakeClient{loginErr: &client.APIError{Status: 401}}
	app, _ := newTestApp(t, fc, "")

	err := app.Run(context.Background(), []string{"login", "-u", "alice"})
	require.EqualError(t, err, "invalid username or password")
	_, statErr := os.Stat(app.config.TokenFile)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAlerts_RequireLogin(t *testing.T) {
	fc := &fakeClient{}
	app, _ := newTestApp(t, fc, "")

	err := app.Run(context.Background(), []string{"alerts", "list"})
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func loggedIn(t *testing.T, app *App) {
	t.Helper()
	require.NoError(t, saveToken(app.config.TokenFile, "tok"))
}

func TestAlertsList_FiltersAndTable(t *testing.T) {
	fc := &fakeClient{listOut: []models.Alert{{
		ID: 4, Source: "edr", User: "bob", Date: "2024-05-01 10:00:00",
		IOCs: []models.IOC{{Type: "ip", Data: "1.1.1.1"}, {Type: "domain", Data: "x.example"}},
	}}}
	app, out := newTestApp(t, fc, "")
	loggedIn(t, app)

	err := app.Run(context.Background(), []string{"alerts", "list", "--user", "bob", "--ioc-type", "ip", "--days", "3"})
	require.NoError(t, err)

	assert.Equal(t, "tok", fc.token)
	assert.Equal(t, "bob", fc.query.User)
	assert.Equal(t, "ip", fc.query.IOCType)
	require.NotNil(t, fc.query.Days)
	assert.Equal(t, 3, *fc.query.Days)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "ip=1.1.1.1,domain=x.example")
}

func TestAlertsList_NoDaysMeansNoFilter(t *testing.T) {
	fc := &fakeClient{}
	app, out := newTestApp(t, fc, "")
	loggedIn(t, app)

	require.NoError(t, app.Run(context.Background(), []string{"alerts", "list"}))
	assert.Nil(t, fc.query.Days)
	assert.Contains(t, out.String(), "No alerts found")
}

func TestAlertsList_ZeroAndNegativeDaysSent(t *testing.T) {
	for _, days := range []int{0, -1} {
		fc := &fakeClient{}
		app, _ := newTestApp(t, fc, "")
		loggedIn(t, app)

		require.NoError(t, app.Run(context.Background(), []string{"alerts", "list", fmt.Sprintf("--days=%d", days)}))
		require.NotNil(t, fc.query.Days)
		assert.Equal(t, days, *fc.query.Days)
	}
}

func TestAlertsList_JSON(t *testing.T) {
	fc := &fakeClient{listOut: []models.Alert{{ID: 1, Source: "s", IOCs: []models.IOC{}}}}
	app, out := newTestApp(t, fc, "")
	loggedIn(t, app)

	require.NoError(t, app.Run(context.Background(), []string{"--json", "alerts", "list"}))
	var got []models.Alert
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, fc.listOut, got)
}

func TestAlertsList_ExpiredSession(t *testing.T) {
	fc := &fakeClient{listErr: &client.APIError{Status: 401, Message: "Token has expired"}}
	app, _ := newTestApp(t, fc, "")
	loggedIn(t, app)

	err := app.Run(context.Background(), []string{"alerts", "list"})
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Contains(t, err.Error(), "alertctl login")
}

func TestAlertsGet(t *testing.T) {
	fc := &fakeClient{getOut: &models.Alert{ID: 9, Source: "ids", IOCs: []models.IOC{{Type: "hash", Data: "abc"}}}}
	app, out := newTestApp(t, fc, "")
	loggedIn(t, app)

	require.NoError(t, app.Run(context.Background(), []string{"alerts", "get", "9"}))
	assert.Contains(t, out.String(), "Source:      ids")
	assert.Contains(t, out.String(), "hash\tabc")
}

func TestAlertsGet_BadIDAndNotFound(t *testing.T) {
	fc := &fakeClient{getErr: &client.APIError{Status: 404}}
	app, _ := newTestApp(t, fc, "")
	loggedIn(t, app)

	assert.Error(t, app.Run(context.Background(), []string{"alerts", "get", "abc"}))

	err := app.Run(context.Background(), []string{"alerts", "get", "5"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alert 5 not found")
}

func TestAlertsCreate_FromFlags(t *testing.T) {
	old := now
	now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) }
	t.Cleanup(func() { now = old })

	fc := &fakeClient{createID: 21}
	app, out := newTestApp(t, fc, "")
	loggedIn(t, app)

	err := app.Run(context.Background(), []string{"alerts", "create",
		"--source", "edr", "--user", "bob", "--description", "beacon",
		"--ioc", "ip=10.0.0.1", "--ioc", "url=http://x/?a=b"})
	require.NoError(t, err)

	require.NotNil(t, fc.created)
	assert.Equal(t, &models.Alert{
		Source: "edr", User: "bob", Description: "beacon", Date: "2024-05-01 12:30:00",
		IOCs: []models.IOC{{Type: "ip", Data: "10.0.0.1"}, {Type: "url", Data: "http://x/?a=b"}},
	}, fc.created)
	assert.Contains(t, out.String(), "Alert 21 created")
}

func TestAlertsCreate_NoIOCsSendsEmptyList(t *testing.T) {
	fc := &fakeClient{createID: 1}
	app, _ := newTestApp(t, fc, "")
	loggedIn(t, app)

	require.NoError(t, app.Run(context.Background(), []string{"alerts", "create", "--source", "s", "--user", "u", "--date", "2024-01-01 00:00:00"}))
	require.NotNil(t, fc.created.IOCs)
	assert.Empty(t, fc.created.IOCs)
}

func TestAlertsCreate_Validation(t *testing.T) {
	app, _ := newTestApp(t, &fakeClient{}, "")
	loggedIn(t, app)

	assert.Error(t, app.Run(context.Background(), []string{"alerts", "create", "--user", "u"}), "missing source")
	assert.Error(t, app.Run(context.Background(), []string{"alerts", "create", "--source", "s", "--user", "u", "--ioc", "bogus"}))
	assert.Error(t, app.Run(context.Background(), []string{"alerts", "create", "--source", "s", "--file", "x.json"}))
}

func TestAlertsCreate_FromFileAndStdin(t *testing.T) {
	payload := `{"source":"fw","user":"eve","description":"d","date":"2024-02-02 02:02:02","iocs":[{"type":"ip","data":"9.9.9.9"}]}`
	path := filepath.Join(t.TempDir(), "alert.json")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	fc := &fakeClient{createID: 2}
	app, _ := newTestApp(t, fc, payload)
	loggedIn(t, app)

	require.NoError(t, app.Run(context.Background(), []string{"alerts", "create", "--file", path}))
	assert.Equal(t, "fw", fc.created.Source)
	assert.Equal(t, []models.IOC{{Type: "ip", Data: "9.9.9.9"}}, fc.created.IOCs)

	fc.created = nil
	require.NoError(t, app.Run(context.Background(), []string{"alerts", "create", "-f", "-"}))
	assert.Equal(t, "eve", fc.created.User)
}
