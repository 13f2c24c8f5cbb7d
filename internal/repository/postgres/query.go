package postgres

import (
	"fmt"
	"strconv"
	"strings"
)

// selectQuery collects predicates and their arguments and compiles them
// into one parameterized statement. Filter values only ever travel as
// arguments; predicate text is fixed.
type selectQuery struct {
	table  string
	joins  []string
	preds  []string
	args   []any
	groups []string
}

// bind appends v to the argument list and returns its placeholder.
func (q *selectQuery) bind(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

// where adds a predicate. Each %s in pred is replaced, in order, by the
// placeholder of the matching value.
func (q *selectQuery) where(pred string, vals ...any) {
	ph := make([]any, len(vals))
	for i, v := range vals {
		ph[i] = q.bind(v)
	}
	q.preds = append(q.preds, fmt.Sprintf(pred, ph...))
}

func (q *selectQuery) join(clause string) {
	q.joins = append(q.joins, clause)
}

func (q *selectQuery) from() string {
	var b strings.Builder
	b.WriteString(" FROM ")
	b.WriteString(q.table)
	for _, j := range q.joins {
		b.WriteString(" ")
		b.WriteString(j)
	}
	if len(q.preds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.preds, " AND "))
	}
	if len(q.groups) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(q.groups, ", "))
	}
	return b.String()
}
