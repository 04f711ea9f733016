package analytics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	analyticsdata "google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/option"
)

// GA4Config configures the Google Analytics Data API client.
type GA4Config struct {
	CredentialsJSON string
	CredentialsFile string
	Endpoint        string
	Timeout         time.Duration

	// HTTPClient replaces credential-based transport; used against fakes.
	HTTPClient *http.Client
}

// GA4Client runs reports through the GA4 Data API (v1beta).
type GA4Client struct {
	svc     *analyticsdata.Service
	timeout time.Duration
	logger  *zap.Logger
}

func NewGA4Client(ctx context.Context, cfg GA4Config, logger *zap.Logger) (*GA4Client, error) {
	opts := []option.ClientOption{option.WithScopes(analyticsdata.AnalyticsReadonlyScope)}
	switch {
	case cfg.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	default:
		return nil, fmt.Errorf("analytics credentials are not configured")
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := analyticsdata.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics data client: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &GA4Client{svc: svc, timeout: cfg.Timeout, logger: logger}, nil
}

// RunReport executes q. Deadlines come from ctx, bounded by the configured timeout.
func (c *GA4Client) RunReport(ctx context.Context, q Query) (*Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.svc.Properties.RunReport(q.DataSource, toRequest(q)).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Analytics report completed",
		zap.String("data_source", q.DataSource),
		zap.Strings("metrics", q.Metrics),
		zap.Int64("row_count", resp.RowCount),
		zap.Duration("latency", time.Since(start)),
	)

	return fromResponse(resp)
}

func toRequest(q Query) *analyticsdata.RunReportRequest {
	req := &analyticsdata.RunReportRequest{
		DateRanges: []*analyticsdata.DateRange{{StartDate: q.StartDate, EndDate: q.EndDate}},
		Limit:      q.Limit,
	}
	for _, d := range q.Dimensions {
		req.Dimensions = append(req.Dimensions, &analyticsdata.Dimension{Name: d})
	}
	for _, m := range q.Metrics {
		req.Metrics = append(req.Metrics, &analyticsdata.Metric{Name: m})
	}
	if q.Filter != nil {
		req.DimensionFilter = &analyticsdata.FilterExpression{
			Filter: &analyticsdata.Filter{
				FieldName: q.Filter.Dimension,
				StringFilter: &analyticsdata.StringFilter{
					MatchType: "EXACT",
					Value:     q.Filter.Value,
				},
			},
		}
	}
	if q.OrderBy != nil {
		req.OrderBys = []*analyticsdata.OrderBy{{
			Metric: &analyticsdata.MetricOrderBy{MetricName: q.OrderBy.Metric},
			Desc:   q.OrderBy.Desc,
		}}
	}
	return req
}

func fromResponse(resp *analyticsdata.RunReportResponse) (*Result, error) {
	if resp == nil {
		return nil, ErrMalformedResponse
	}

	out := &Result{RowCount: resp.RowCount, Rows: make([]Row, 0, len(resp.Rows))}
	for _, r := range resp.Rows {
		if r == nil {
			continue
		}
		row := Row{
			Dimensions: make([]string, 0, len(r.DimensionValues)),
			Metrics:    make([]string, 0, len(r.MetricValues)),
		}
		for _, v := range r.DimensionValues {
			if v == nil {
				row.Dimensions = append(row.Dimensions, "")
				continue
			}
			row.Dimensions = append(row.Dimensions, v.Value)
		}
		for _, v := range r.MetricValues {
			if v == nil {
				row.Metrics = append(row.Metrics, "")
				continue
			}
			row.Metrics = append(row.Metrics, v.Value)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
