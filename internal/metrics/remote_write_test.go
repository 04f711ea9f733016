package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rddigitech/dashboard-api/internal/metrics"
)

type pushSink struct {
	t        *testing.T
	mu       sync.Mutex
	requests []*prompb.WriteRequest
	orgIDs   []string
	status   int
}

func (s *pushSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	assert.Equal(s.t, "/api/v1/push", r.URL.Path)
	assert.Equal(s.t, "snappy", r.Header.Get("Content-Encoding"))

	body, err := io.ReadAll(r.Body)
	assert.NoError(s.t, err)
	data, err := snappy.Decode(nil, body)
	assert.NoError(s.t, err)

	var req prompb.WriteRequest
	assert.NoError(s.t, req.Unmarshal(data))

	s.mu.Lock()
	s.requests = append(s.requests, &req)
	s.orgIDs = append(s.orgIDs, r.Header.Get("X-Scope-OrgID"))
	status := s.status
	s.mu.Unlock()

	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
}

func seriesByName(reqs []*prompb.WriteRequest) map[string][]prompb.TimeSeries {
	out := make(map[string][]prompb.TimeSeries)
	for _, req := range reqs {
		for _, ts := range req.Timeseries {
			for _, l := range ts.Labels {
				if l.Name == "__name__" {
					out[l.Value] = append(out[l.Value], ts)
				}
			}
		}
	}
	return out
}

func labelValue(ts prompb.TimeSeries, name string) string {
	for _, l := range ts.Labels {
		if l.Name == name {
			return l.Value
		}
	}
	return ""
}

func TestRemoteWriter_FlushPushesCollectorSeries(t *testing.T) {
	sink := &pushSink{t: t}
	srv := httptest.NewServer(sink)
	defer srv.Close()

	c := metrics.NewCollector()
	c.RecordReport("stepbystep", "ok", 250*time.Millisecond)
	c.RecordDecision(false, "not_allowlisted")
	c.RecordQuery("kpis", "ok", 80*time.Millisecond)

	w := metrics.NewRemoteWriter(metrics.RemoteWriteConfig{
		URL:       srv.URL,
		OrgID:     "dashboards",
		BatchSize: 10,
	}, c.Registry(), nil)

	require.NoError(t, w.Flush(context.Background()))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.NotEmpty(t, sink.requests)
	for _, org := range sink.orgIDs {
		assert.Equal(t, "dashboards", org)
	}
	for _, req := range sink.requests {
		assert.LessOrEqual(t, len(req.Timeseries), 10)
	}

	for _, req := range sink.requests {
		for _, ts := range req.Timeseries {
			names := make([]string, 0, len(ts.Labels))
			for _, l := range ts.Labels {
				names = append(names, l.Name)
			}
			assert.True(t, sort.StringsAreSorted(names), "labels not sorted: %v", names)
		}
	}

	series := seriesByName(sink.requests)

	reports := series["dashboard_reports_total"]
	require.Len(t, reports, 1)
	assert.Equal(t, "stepbystep", labelValue(reports[0], "tenant"))
	assert.Equal(t, "dashboard-api", labelValue(reports[0], "job"))
	assert.Equal(t, 1.0, reports[0].Samples[0].Value)

	decisions := series["dashboard_authz_decisions_total"]
	require.Len(t, decisions, 1)
	assert.Equal(t, "not_allowlisted", labelValue(decisions[0], "reason"))

	counts := series["dashboard_report_duration_seconds_count"]
	require.Len(t, counts, 1)
	assert.Equal(t, 1.0, counts[0].Samples[0].Value)
	assert.NotEmpty(t, series["dashboard_report_duration_seconds_bucket"])
}

func TestRemoteWriter_FlushReportsRejectedPush(t *testing.T) {
	sink := &pushSink{t: t, status: http.StatusTooManyRequests}
	srv := httptest.NewServer(sink)
	defer srv.Close()

	c := metrics.NewCollector()
	w := metrics.NewRemoteWriter(metrics.RemoteWriteConfig{URL: srv.URL}, c.Registry(), nil)

	err := w.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
