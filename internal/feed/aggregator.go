package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LJTian/portfolio/internal/metrics"
)

// Aggregator 并发抓取所有订阅源，合并后按发布时间倒序截断
type Aggregator struct {
	sources []string
	fetcher Fetcher
	log     *zap.Logger
	now     func() time.Time
}

func NewAggregator(sources []string, fetcher Fetcher, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{
		sources: sources,
		fetcher: fetcher,
		log:     log,
		now:     time.Now,
	}
}

// Aggregate 总是返回一个非 nil 的列表；任何单源失败只会让结果变少
func (a *Aggregator) Aggregate(ctx context.Context) (items []FeedItem) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("technews: aggregate panic", zap.Any("panic", r))
			items = []FeedItem{}
		}
	}()

	results := a.FetchAll(ctx)
	items = Merge(results, MaxItems)
	metrics.AggregateItems.Set(float64(len(items)))
	return items
}

// FetchAll 每个源一个任务，各自写自己的结果槽位，全部完成后返回
func (a *Aggregator) FetchAll(ctx context.Context) []SourceResult {
	now := a.now()
	results := make([]SourceResult, len(a.sources))

	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			results[i] = a.fetchSource(ctx, src, now)
			return nil
		})
	}
	_ = g.Wait()

	ok := 0
	for _, r := range results {
		if r.OK() {
			ok++
		}
	}
	a.log.Info("technews: fetch done", zap.Int("sources", len(results)), zap.Int("ok", ok))
	return results
}

func (a *Aggregator) fetchSource(ctx context.Context, feedURL string, now time.Time) (res SourceResult) {
	res.URL = feedURL
	defer func() {
		if r := recover(); r != nil {
			res.Items = nil
			res.Err = fmt.Errorf("panic: %v", r)
		}
		if res.Err != nil {
			a.log.Warn("technews: skip source", zap.String("source", feedURL), zap.Error(res.Err))
			metrics.SourceFetchTotal.WithLabelValues(feedURL, metrics.ResultFailed).Inc()
			return
		}
		metrics.SourceFetchTotal.WithLabelValues(feedURL, metrics.ResultOK).Inc()
	}()

	sctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	parsed, err := a.fetcher.Fetch(sctx, feedURL)
	if err != nil {
		res.Err = err
		return res
	}
	if parsed == nil {
		res.Err = fmt.Errorf("fetch %s: no feed", feedURL)
		return res
	}

	res.Name = sourceName(parsed, feedURL)
	limit := min(len(parsed.Items), PerSourceLimit)
	res.Items = make([]FeedItem, 0, limit)
	for _, it := range parsed.Items {
		if len(res.Items) == limit {
			break
		}
		if it == nil {
			continue
		}
		res.Items = append(res.Items, buildItem(it, parsed.FeedType, res.Name, now))
	}
	return res
}

// Merge 按源顺序拼接成功的结果，稳定排序（新的在前）后截断到 limit
func Merge(results []SourceResult, limit int) []FeedItem {
	all := make([]FeedItem, 0, len(results)*PerSourceLimit)
	for _, r := range results {
		if !r.OK() {
			continue
		}
		all = append(all, r.Items...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].PublishDate.After(all[j].PublishDate)
	})

	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}
