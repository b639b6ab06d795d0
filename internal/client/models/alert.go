// Package models defines the alert payloads exchanged with the registry API.
package models

import (
	"errors"
	"strings"
)

var ErrIncorrectIOC = errors.New("ioc must be type=data")

// IOC is one indicator of compromise.
type IOC struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// Alert is the wire form of an alert. ID is set by the server.
type Alert struct {
	ID          int64  `json:"id,omitempty"`
	Source      string `json:"source"`
	User        string `json:"user"`
	Description string `json:"description"`
	Date        string `json:"date"`
	IOCs        []IOC  `json:"iocs"`
}

// AlertQuery holds the optional list filters. A nil Days means no recency
// filter.
type AlertQuery struct {
	User    string
	IOCType string
	IOCData string
	Days    *int
}

// ParseIOC parses "type=data". Only the first '=' separates, so data may
// itself contain '='.
func ParseIOC(s string) (IOC, error) {
	typ, data, ok := strings.Cut(s, "=")
	typ = strings.TrimSpace(typ)
	if !ok || typ == "" || data == "" {
		return IOC{}, ErrIncorrectIOC
	}
	return IOC{Type: typ, Data: data}, nil
}
