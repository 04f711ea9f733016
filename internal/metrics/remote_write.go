package metrics

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	"go.uber.org/zap"
)

type RemoteWriteConfig struct {
	URL           string
	TenantHeader  string        `mapstructure:"tenant_header"`
	OrgID         string        `mapstructure:"org_id"`
	AuthToken     string        `mapstructure:"auth_token"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	Job           string
}

// RemoteWriter periodically pushes a registry's samples to a Prometheus
// remote-write endpoint such as Mimir.
type RemoteWriter struct {
	config   RemoteWriteConfig
	gatherer prometheus.Gatherer
	client   *http.Client
	logger   *zap.Logger
}

func NewRemoteWriter(cfg RemoteWriteConfig, gatherer prometheus.Gatherer, logger *zap.Logger) *RemoteWriter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 30 * time.Second
	}
	if cfg.TenantHeader == "" {
		cfg.TenantHeader = "X-Scope-OrgID"
	}
	if cfg.Job == "" {
		cfg.Job = "dashboard-api"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteWriter{
		config:   cfg,
		gatherer: gatherer,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// Start flushes on every interval until ctx is done.
func (w *RemoteWriter) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Flush(ctx); err != nil {
				w.logger.Warn("Remote write failed", zap.Error(err))
			}
		}
	}
}

func (w *RemoteWriter) Flush(ctx context.Context) error {
	mfs, err := w.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	series := toTimeSeries(mfs, w.config.Job, time.Now().UnixMilli())
	for i := 0; i < len(series); i += w.config.BatchSize {
		end := i + w.config.BatchSize
		if end > len(series) {
			end = len(series)
		}
		if err := w.send(ctx, series[i:end]); err != nil {
			return fmt.Errorf("failed to send batch: %w", err)
		}
	}
	return nil
}

func toTimeSeries(mfs []*dto.MetricFamily, job string, ts int64) []prompb.TimeSeries {
	var out []prompb.TimeSeries

	add := func(name string, base []prompb.Label, value float64, extra ...prompb.Label) {
		labels := make([]prompb.Label, 0, len(base)+len(extra)+1)
		labels = append(labels, prompb.Label{Name: "__name__", Value: name})
		labels = append(labels, base...)
		labels = append(labels, extra...)
		// Remote write receivers reject series whose label names are unsorted.
		sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })
		out = append(out, prompb.TimeSeries{
			Labels:  labels,
			Samples: []prompb.Sample{{Value: value, Timestamp: ts}},
		})
	}

	for _, mf := range mfs {
		name := mf.GetName()
		for _, m := range mf.Metric {
			base := []prompb.Label{{Name: "job", Value: job}}
			for _, l := range m.Label {
				base = append(base, prompb.Label{Name: l.GetName(), Value: l.GetValue()})
			}

			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				add(name, base, m.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				add(name, base, m.GetGauge().GetValue())
			case dto.MetricType_UNTYPED:
				add(name, base, m.GetUntyped().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				for _, b := range h.GetBucket() {
					add(name+"_bucket", base, float64(b.GetCumulativeCount()),
						prompb.Label{Name: "le", Value: formatBound(b.GetUpperBound())})
				}
				add(name+"_bucket", base, float64(h.GetSampleCount()), prompb.Label{Name: "le", Value: "+Inf"})
				add(name+"_sum", base, h.GetSampleSum())
				add(name+"_count", base, float64(h.GetSampleCount()))
			case dto.MetricType_SUMMARY:
				s := m.GetSummary()
				add(name+"_sum", base, s.GetSampleSum())
				add(name+"_count", base, float64(s.GetSampleCount()))
			}
		}
	}
	return out
}

func formatBound(v float64) string {
	if math.IsInf(v, 1) {
		return "+Inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (w *RemoteWriter) send(ctx context.Context, series []prompb.TimeSeries) error {
	req := &prompb.WriteRequest{Timeseries: series}
	data, err := req.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	compressed := snappy.Encode(nil, data)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL+"/api/v1/push", bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	if w.config.OrgID != "" {
		httpReq.Header.Set(w.config.TenantHeader, w.config.OrgID)
	}
	if w.config.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+w.config.AuthToken)
	}

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("remote write failed with status %d", resp.StatusCode)
	}
	return nil
}
