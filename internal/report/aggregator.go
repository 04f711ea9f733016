package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rddigitech/dashboard-api/internal/analytics"
	"github.com/rddigitech/dashboard-api/internal/core"
	"github.com/rddigitech/dashboard-api/internal/metrics"
)

const (
	topSourcesLimit = 8
	topPagesLimit   = 12

	EventContactSubmit = "contact_submit"
	EventBookingClick  = "booking_click"
)

// Backend runs one report query against the analytics service.
type Backend interface {
	RunReport(ctx context.Context, q analytics.Query) (*analytics.Result, error)
}

// DataSources resolves a canonical tenant key to its analytics property.
type DataSources interface {
	DataSourceFor(canonicalKey string) (string, error)
}

// Aggregator builds dashboard reports. It holds no per-request state and is
// safe for concurrent use.
type Aggregator struct {
	backend Backend
	sources DataSources
	metrics *metrics.Collector
	logger  *zap.Logger
}

func NewAggregator(backend Backend, sources DataSources, collector *metrics.Collector, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		backend: backend,
		sources: sources,
		metrics: collector,
		logger:  logger,
	}
}

// GetResults builds the report for an already authorized tenant. The KPI,
// source, page and event queries run concurrently; the first failure cancels
// the rest and fails the whole call.
func (a *Aggregator) GetResults(ctx context.Context, tenant string, windowDays int) (*core.ResponsePayload, error) {
	started := time.Now()

	dataSource, err := a.sources.DataSourceFor(tenant)
	if err != nil {
		a.logger.Error("Tenant data source is not configured",
			zap.String("tenant", tenant),
			zap.Error(err),
		)
		a.metrics.RecordReport(tenant, "config_missing", time.Since(started))
		return nil, err
	}

	days := ClampWindow(windowDays)
	w := window{
		dataSource: dataSource,
		start:      fmt.Sprintf("%ddaysAgo", days),
		end:        "today",
	}

	var (
		kpis     core.Kpis
		sources  []core.TrafficSource
		pages    []core.PageView
		contacts int
		bookings int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		kpis, err = a.fetchKpis(gctx, tenant, w)
		return err
	})
	g.Go(func() (err error) {
		sources, err = a.fetchTopSources(gctx, tenant, w)
		return err
	})
	g.Go(func() (err error) {
		pages, err = a.fetchTopPages(gctx, tenant, w)
		return err
	})
	g.Go(func() (err error) {
		contacts, err = a.fetchEventCount(gctx, tenant, w, EventContactSubmit)
		return err
	})
	g.Go(func() (err error) {
		bookings, err = a.fetchEventCount(gctx, tenant, w, EventBookingClick)
		return err
	})

	if err := g.Wait(); err != nil {
		a.metrics.RecordReport(tenant, "backend_error", time.Since(started))
		return nil, err
	}

	topTrafficSource := core.NotSetSource
	if len(sources) > 0 {
		topTrafficSource = sources[0].Source
	}

	a.metrics.RecordReport(tenant, "ok", time.Since(started))
	return &core.ResponsePayload{
		RangeLabel:        RangeLabel(days),
		Users:             kpis.ActiveUsers,
		NewUsers:          kpis.NewUsers,
		AvgEngagementTime: kpis.AvgSessionDuration,
		ContactSubmits:    contacts,
		BookingClicks:     bookings,
		TopTrafficSource:  topTrafficSource,
		TopSources:        sources,
		TopPages:          pages,
		Tenant:            tenant,
	}, nil
}

type window struct {
	dataSource string
	start      string
	end        string
}

func (w window) query() analytics.Query {
	return analytics.Query{DataSource: w.dataSource, StartDate: w.start, EndDate: w.end}
}

func (a *Aggregator) fetchKpis(ctx context.Context, tenant string, w window) (core.Kpis, error) {
	q := w.query()
	q.Metrics = []string{"activeUsers", "newUsers", "averageSessionDuration"}

	res, err := a.run(ctx, tenant, "kpis", q)
	if err != nil {
		return core.Kpis{}, err
	}
	if len(res.Rows) == 0 {
		return core.Kpis{AvgSessionDuration: core.UnknownDuration}, nil
	}

	row := res.Rows[0]
	return core.Kpis{
		ActiveUsers:        ParseCount(row.Metric(0)),
		NewUsers:           ParseCount(row.Metric(1)),
		AvgSessionDuration: PrettyDuration(ParseFloat(row.Metric(2))),
	}, nil
}

// fetchTopSources returns sessions by source/medium, highest first. Rows with
// equal session counts keep the backend's order, which is not guaranteed to
// be stable across calls.
func (a *Aggregator) fetchTopSources(ctx context.Context, tenant string, w window) ([]core.TrafficSource, error) {
	q := w.query()
	q.Dimensions = []string{"sessionSourceMedium"}
	q.Metrics = []string{"sessions"}
	q.OrderBy = &analytics.OrderBy{Metric: "sessions", Desc: true}
	q.Limit = topSourcesLimit

	res, err := a.run(ctx, tenant, "top_sources", q)
	if err != nil {
		return nil, err
	}

	out := make([]core.TrafficSource, 0, len(res.Rows))
	for _, r := range res.Rows {
		out = append(out, core.TrafficSource{
			Source:   r.Dimension(0),
			Sessions: ParseCount(r.Metric(0)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Sessions > out[j].Sessions
	})
	return out, nil
}

// fetchTopPages keeps the backend's row order as is.
func (a *Aggregator) fetchTopPages(ctx context.Context, tenant string, w window) ([]core.PageView, error) {
	q := w.query()
	q.Dimensions = []string{"pagePath"}
	q.Metrics = []string{"screenPageViews"}
	q.OrderBy = &analytics.OrderBy{Metric: "screenPageViews", Desc: true}
	q.Limit = topPagesLimit

	res, err := a.run(ctx, tenant, "top_pages", q)
	if err != nil {
		return nil, err
	}

	out := make([]core.PageView, 0, len(res.Rows))
	for _, r := range res.Rows {
		out = append(out, core.PageView{
			Path:  r.Dimension(0),
			Views: ParseCount(r.Metric(0)),
		})
	}
	return out, nil
}

// fetchEventCount returns 0 for events the backend has never recorded.
func (a *Aggregator) fetchEventCount(ctx context.Context, tenant string, w window, event string) (int, error) {
	q := w.query()
	q.Metrics = []string{"eventCount"}
	q.Filter = &analytics.Filter{Dimension: "eventName", Value: event}

	res, err := a.run(ctx, tenant, "event_"+event, q)
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 {
		return 0, nil
	}
	return ParseCount(res.Rows[0].Metric(0)), nil
}

func (a *Aggregator) run(ctx context.Context, tenant, name string, q analytics.Query) (*analytics.Result, error) {
	start := time.Now()
	res, err := a.backend.RunReport(ctx, q)
	if err == nil && res == nil {
		err = analytics.ErrMalformedResponse
	}
	if err != nil {
		category := analytics.Categorize(err)
		a.metrics.RecordQuery(name, category, time.Since(start))
		if category != analytics.CategoryCanceled {
			a.logger.Error("Analytics query failed",
				zap.String("tenant", tenant),
				zap.String("query", name),
				zap.String("category", category),
				zap.Error(err),
			)
		}
		return nil, &QueryError{Tenant: tenant, Query: name, Category: category, Err: err}
	}

	a.metrics.RecordQuery(name, "ok", time.Since(start))
	return res, nil
}
