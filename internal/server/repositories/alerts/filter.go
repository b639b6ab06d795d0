package alerts

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/alertkeeper/internal/dbx"
)

// TimestampLayout is the textual form alert timestamps are compared in.
const TimestampLayout = "2006-01-02 15:04:05"

// Filter narrows Find. Zero values mean "no filter".
//
// User and Since select alerts. IOCType and IOCData narrow the IOCs returned
// with each alert; when either is set, alerts left with no IOCs are dropped.
type Filter struct {
	User    string
	IOCType string
	IOCData string
	Since   time.Time
}

// Scope says which relation a predicate applies to.
type Scope int

const (
	ScopeAlert Scope = iota
	ScopeIOC
)

// Op is a comparison operator a predicate may use.
type Op string

const (
	OpEq  Op = "="
	OpGte Op = ">="
)

// Predicate is a single typed condition. Column must be one of the columns
// known for its scope; values are always bound as parameters.
type Predicate struct {
	Scope  Scope
	Column string
	Op     Op
	Value  any
}

var columns = map[Scope]map[string]struct{}{
	ScopeAlert: {"source": {}, "user_name": {}, "timestamp": {}},
	ScopeIOC:   {"type": {}, "data": {}},
}

var aliases = map[Scope]string{
	ScopeAlert: "a",
	ScopeIOC:   "i",
}

// Predicates turns f into its predicate list.
func (f Filter) Predicates() []Predicate {
	var ps []Predicate
	if f.User != "" {
		ps = append(ps, Predicate{Scope: ScopeAlert, Column: "user_name", Op: OpEq, Value: f.User})
	}
	if !f.Since.IsZero() {
		ps = append(ps, Predicate{Scope: ScopeAlert, Column: "timestamp", Op: OpGte,
			Value: f.Since.UTC().Format(TimestampLayout)})
	}
	if f.IOCType != "" {
		ps = append(ps, Predicate{Scope: ScopeIOC, Column: "type", Op: OpEq, Value: f.IOCType})
	}
	if f.IOCData != "" {
		ps = append(ps, Predicate{Scope: ScopeIOC, Column: "data", Op: OpEq, Value: f.IOCData})
	}
	return ps
}

const findSelect = `SELECT a.id, a.source, a.user_name, a.description, a.timestamp, i.id, i.type, i.data
FROM alerts a`

// BuildFindQuery composes the Find query for ps. Alert predicates land in
// WHERE. IOC predicates land in the join condition and turn the LEFT JOIN
// into an INNER JOIN, so alerts without a matching IOC disappear.
func BuildFindQuery(d dbx.Dialect, ps []Predicate) (string, []any, error) {
	var (
		onParts    = []string{"i.alert_id = a.id"}
		whereParts []string
		onArgs     []any
		whereArgs  []any
	)

	for _, p := range ps {
		cond, err := p.render()
		if err != nil {
			return "", nil, err
		}
		switch p.Scope {
		case ScopeIOC:
			onParts = append(onParts, cond)
			onArgs = append(onArgs, p.Value)
		default:
			whereParts = append(whereParts, cond)
			whereArgs = append(whereArgs, p.Value)
		}
	}

	join := "LEFT JOIN"
	if len(onArgs) > 0 {
		join = "INNER JOIN"
	}

	var b strings.Builder
	b.WriteString(findSelect)
	fmt.Fprintf(&b, "\n%s iocs i ON %s", join, strings.Join(onParts, " AND "))
	if len(whereParts) > 0 {
		fmt.Fprintf(&b, "\nWHERE %s", strings.Join(whereParts, " AND "))
	}
	b.WriteString("\nORDER BY a.id, i.id")

	args := append(onArgs, whereArgs...)
	return dbx.Rebind(d, b.String()), args, nil
}

func (p Predicate) render() (string, error) {
	cols, ok := columns[p.Scope]
	if !ok {
		return "", fmt.Errorf("unknown predicate scope %d", p.Scope)
	}
	if _, ok := cols[p.Column]; !ok {
		return "", fmt.Errorf("unknown column %q", p.Column)
	}
	switch p.Op {
	case OpEq, OpGte:
	default:
		return "", fmt.Errorf("unsupported operator %q", p.Op)
	}
	return fmt.Sprintf("%s.%s %s ?", aliases[p.Scope], p.Column, p.Op), nil
}
