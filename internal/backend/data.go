package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// restPath is the mount point of the row-level data API.
const restPath = "/rest/v1/"

// Query builds one read against a table of the data API. Filters map onto
// the API's query-string operators; nothing is interpreted locally.
type Query struct {
	c      *Client
	table  string
	params url.Values
	order  []string
	single bool
}

// From starts a query against the named table.
func (c *Client) From(table string) *Query {
	return &Query{
		c:      c,
		table:  table,
		params: url.Values{},
	}
}

// Select sets the column/projection list, e.g. "id,title,profiles(username)".
func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

// Eq adds an equality filter on a column.
func (q *Query) Eq(column, value string) *Query {
	q.params.Set(column, "eq."+value)
	return q
}

// Or adds a disjunction of filter expressions, e.g. as built by Ilike.
func (q *Query) Or(filters ...string) *Query {
	q.params.Set("or", "("+strings.Join(filters, ",")+")")
	return q
}

// Order appends a sort key. Keys accumulate in call order and are encoded as
// a single comma-separated order parameter.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := ".desc"
	if ascending {
		dir = ".asc"
	}
	q.order = append(q.order, column+dir)
	return q
}

// Single marks the query as expecting exactly one row. A zero-row result
// becomes ErrNotFound instead of an empty list.
func (q *Query) Single() *Query {
	q.single = true
	return q
}

// Get executes the query. token is the caller's access token ("" for
// anonymous reads). dst receives the decoded row or rows.
func (q *Query) Get(ctx context.Context, token string, dst any) error {
	if len(q.order) > 0 {
		q.params.Set("order", strings.Join(q.order, ","))
	}

	headers := map[string]string{
		"Authorization": q.c.bearer(token),
	}
	if q.single {
		headers["Accept"] = "application/vnd.pgrst.object+json"
	}

	return q.c.do(ctx, http.MethodGet, restPath+q.table, q.params, headers, nil, dst)
}

// Ilike builds a case-insensitive substring filter expression for use with
// Or. The needle is embedded between wildcards; commas and parens would break
// the filter grammar, so they are stripped.
func Ilike(column, needle string) string {
	replacer := strings.NewReplacer(",", " ", "(", " ", ")", " ")
	return column + ".ilike.*" + strings.TrimSpace(replacer.Replace(needle)) + "*"
}

// Insert writes one row. The new row, as stored (defaults and trigger-set
// columns included), is decoded into dst when dst is non-nil.
func (c *Client) Insert(ctx context.Context, token, table string, row, dst any) error {
	headers := map[string]string{
		"Authorization": c.bearer(token),
		"Prefer":        "return=representation",
	}
	return c.do(ctx, http.MethodPost, restPath+table, nil, headers, row, dst)
}

// RPC invokes a named server-side function with the given arguments.
func (c *Client) RPC(ctx context.Context, token, fn string, args any) error {
	headers := map[string]string{
		"Authorization": c.bearer(token),
	}
	return c.do(ctx, http.MethodPost, restPath+"rpc/"+fn, nil, headers, args, nil)
}
