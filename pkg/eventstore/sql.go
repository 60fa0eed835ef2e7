package eventstore

import (
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/featurekit/pkg/event"
)

const eventColumns = "uid, ts, source, scope, action, target_uid, user_id, host, value, duration_ns, metadata"

// sqlDialect covers what differs between the SQL stores: bind parameter
// syntax and the stored form of timestamps.
type sqlDialect struct {
	placeholder func(n int) string
	timestamp   func(time.Time) any
}

var (
	postgresSQL = sqlDialect{
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		timestamp:   func(t time.Time) any { return t.UTC() },
	}
	sqliteSQL = sqlDialect{
		placeholder: func(int) string { return "?" },
		timestamp:   func(t time.Time) any { return t.UnixNano() },
	}
)

// where renders q as a parameterised WHERE clause, or an empty string when q
// selects everything.
func (d sqlDialect) where(q event.Query) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(col, op string, v any) {
		args = append(args, v)
		conds = append(conds, col+" "+op+" "+d.placeholder(len(args)))
	}

	if !q.From.IsZero() {
		add("ts", ">=", d.timestamp(q.From))
	}
	if !q.To.IsZero() {
		add("ts", "<", d.timestamp(q.To))
	}
	if q.Scope != "" {
		add("scope", "=", string(q.Scope))
	}
	if q.Source != "" {
		add("source", "=", string(q.Source))
	}
	if q.Action != "" {
		add("action", "=", string(q.Action))
	}
	if q.TargetUID != "" {
		add("target_uid", "=", q.TargetUID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// values renders the VALUES list of an insert of every event column.
func (d sqlDialect) values() string {
	n := strings.Count(eventColumns, ",") + 1
	ph := make([]string, n)
	for i := range ph {
		ph[i] = d.placeholder(i + 1)
	}
	return "(" + strings.Join(ph, ", ") + ")"
}

func sqlColumn(d event.Dimension) (string, bool) {
	switch d {
	case event.DimensionTarget:
		return "target_uid", true
	case event.DimensionSource:
		return "source", true
	case event.DimensionUser:
		return "user_id", true
	case event.DimensionHost:
		return "host", true
	}
	return "", false
}
