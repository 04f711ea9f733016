package analytics_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	analyticsdata "google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/googleapi"

	"github.com/rddigitech/dashboard-api/internal/analytics"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *analytics.GA4Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := analytics.NewGA4Client(context.Background(), analytics.GA4Config{
		Endpoint:   srv.URL + "/",
		HTTPClient: srv.Client(),
	}, nil)
	require.NoError(t, err)
	return c
}

func TestGA4Client_RunReport(t *testing.T) {
	var got analyticsdata.RunReportRequest
	var path string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"rows": [
				{"dimensionValues": [{"value": "google / organic"}], "metricValues": [{"value": "12"}]},
				{"dimensionValues": [{"value": "(direct) / (none)"}], "metricValues": [{"value": "7"}]}
			],
			"rowCount": 2
		}`))
	})

	res, err := c.RunReport(context.Background(), analytics.Query{
		DataSource: "properties/111",
		StartDate:  "30daysAgo",
		EndDate:    "today",
		Dimensions: []string{"sessionSourceMedium"},
		Metrics:    []string{"sessions"},
		OrderBy:    &analytics.OrderBy{Metric: "sessions", Desc: true},
		Limit:      8,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(path, "properties/111:runReport"), path)
	require.Len(t, got.DateRanges, 1)
	assert.Equal(t, "30daysAgo", got.DateRanges[0].StartDate)
	assert.Equal(t, "today", got.DateRanges[0].EndDate)
	require.Len(t, got.Dimensions, 1)
	assert.Equal(t, "sessionSourceMedium", got.Dimensions[0].Name)
	require.Len(t, got.OrderBys, 1)
	assert.Equal(t, "sessions", got.OrderBys[0].Metric.MetricName)
	assert.True(t, got.OrderBys[0].Desc)
	assert.Equal(t, int64(8), got.Limit)
	assert.Nil(t, got.DimensionFilter)

	assert.Equal(t, int64(2), res.RowCount)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "google / organic", res.Rows[0].Dimension(0))
	assert.Equal(t, "12", res.Rows[0].Metric(0))
	assert.Equal(t, "", res.Rows[0].Metric(3))
}

func TestGA4Client_EventFilterAndEmptyResult(t *testing.T) {
	var got analyticsdata.RunReportRequest

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	res, err := c.RunReport(context.Background(), analytics.Query{
		DataSource: "properties/111",
		StartDate:  "7daysAgo",
		EndDate:    "today",
		Metrics:    []string{"eventCount"},
		Filter:     &analytics.Filter{Dimension: "eventName", Value: "booking_click"},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.Zero(t, res.RowCount)

	require.NotNil(t, got.DimensionFilter)
	require.NotNil(t, got.DimensionFilter.Filter)
	assert.Equal(t, "eventName", got.DimensionFilter.Filter.FieldName)
	assert.Equal(t, "EXACT", got.DimensionFilter.Filter.StringFilter.MatchType)
	assert.Equal(t, "booking_click", got.DimensionFilter.Filter.StringFilter.Value)
}

func TestGA4Client_BackendError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "no access", "status": "PERMISSION_DENIED"}}`))
	})

	_, err := c.RunReport(context.Background(), analytics.Query{DataSource: "properties/111", Metrics: []string{"activeUsers"}})
	require.Error(t, err)

	var gerr *googleapi.Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, http.StatusForbidden, gerr.Code)
}

func TestNewGA4Client_RequiresCredentials(t *testing.T) {
	_, err := analytics.NewGA4Client(context.Background(), analytics.GA4Config{}, nil)
	assert.Error(t, err)
}
