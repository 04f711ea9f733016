package analytics

import "errors"

// ErrMalformedResponse is returned when the backend answers with a body that
// cannot be decoded into rows.
var ErrMalformedResponse = errors.New("malformed analytics response")

// Query is one report request against a single data source.
type Query struct {
	DataSource string
	StartDate  string
	EndDate    string
	Dimensions []string
	Metrics    []string
	Filter     *Filter
	OrderBy    *OrderBy
	Limit      int64
}

// Filter is an exact-match equality filter on one dimension.
type Filter struct {
	Dimension string
	Value     string
}

type OrderBy struct {
	Metric string
	Desc   bool
}

// Row holds positional dimension and metric values, always as strings.
type Row struct {
	Dimensions []string
	Metrics    []string
}

// Result is the backend answer. A zero RowCount is a valid result.
type Result struct {
	Rows     []Row
	RowCount int64
}

// Metric returns the i-th metric value, or "" if absent.
func (r Row) Metric(i int) string {
	if i < 0 || i >= len(r.Metrics) {
		return ""
	}
	return r.Metrics[i]
}

// Dimension returns the i-th dimension value, or "" if absent.
func (r Row) Dimension(i int) string {
	if i < 0 || i >= len(r.Dimensions) {
		return ""
	}
	return r.Dimensions[i]
}
