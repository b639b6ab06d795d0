package models

// Alert is a security event reported by a source, together with the
// indicators of compromise observed in it. Timestamp is kept exactly as
// submitted.
type Alert struct {
	ID          int64
	Source      string
	User        string
	Description string
	Timestamp   string
	IOCs        []IOC
}

// IOC is a single indicator of compromise attached to an alert.
type IOC struct {
	ID      int64
	AlertID int64
	Type    string
	Data    string
}

// IOC types seen in practice. The registry stores any type string.
const (
	IOCTypeIP     = "ip"
	IOCTypeDomain = "domain"
	IOCTypeHash   = "hash"
	IOCTypeURL    = "url"
	IOCTypeEmail  = "email"
)
