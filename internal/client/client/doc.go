// Package client talks to the alert registry HTTP API.
//
// HTTPClient covers registration, login (HTTP Basic in, bearer token out)
// and the alert endpoints. Failures are reported as *APIError, which matches
// the sentinels ErrUnauthorized, ErrNotFound and ErrConflict with errors.Is.
// Transport failures wrap ErrUnavailable.
package client
