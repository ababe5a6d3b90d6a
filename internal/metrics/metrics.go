package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

var (
	// 每个订阅源的抓取结果
	SourceFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "technews_source_fetch_total",
		Help: "Feed source fetches by source and result",
	}, []string{"source", "result"})

	// 最近一次聚合返回的条数
	AggregateItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "technews_aggregate_items",
		Help: "Number of items returned by the last aggregation run",
	})

	EmailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsletter_emails_total",
		Help: "Newsletter emails by kind and result",
	}, []string{"kind", "result"})
)
