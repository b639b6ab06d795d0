package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/alertkeeper/internal/client/models"
)

type HTTPClient struct {
	baseURL string
	http    *http.Client
	token   string
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do sends a request and decodes a 2xx JSON answer into out (when non-nil).
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any, auth func(*http.Request)) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != nil {
		auth(req)
	} else if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil {
			apiErr.Kind, apiErr.Message = eb.Error, eb.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) Register(ctx context.Context, username, password string) error {
	in := map[string]string{"username": username, "password": password}
	return c.do(ctx, http.MethodPost, "/auth/register", in, nil, nil)
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *HTTPClient) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	basic := func(r *http.Request) { r.SetBasicAuth(username, password) }
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, &out, basic); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("server returned an empty token")
	}
	c.token = out.Token
	return out.Token, nil
}

// ListAlerts returns the matching alerts. No matches is an empty result,
// not an error.
func (c *HTTPClient) ListAlerts(ctx context.Context, q models.AlertQuery) ([]models.Alert, error) {
	v := url.Values{}
	if q.User != "" {
		v.Set("user", q.User)
	}
	if q.IOCType != "" {
		v.Set("ioc_type", q.IOCType)
	}
	if q.IOCData != "" {
		v.Set("ioc_data", q.IOCData)
	}
	if q.Days != nil {
		v.Set("days", strconv.Itoa(*q.Days))
	}

	path := "/alerts"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var out []models.Alert
	if err := c.do(ctx, http.MethodGet, path, nil, &out, nil); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return []models.Alert{}, nil
		}
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetAlert(ctx context.Context, id int64) (*models.Alert, error) {
	var out models.Alert
	if err := c.do(ctx, http.MethodGet, "/alert/"+strconv.FormatInt(id, 10), nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreateAlert(ctx context.Context, a *models.Alert) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/alert", a, &out, nil); err != nil {
		return 0, err
	}
	return out.ID, nil
}
