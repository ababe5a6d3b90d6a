package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/mmcdole/gofeed"
)

// Fetcher 抽象单个订阅源的获取与解析
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error)
}

// CollyFetcher 用 colly 拉取 feed 原文，再交给 gofeed 解析 RSS/Atom
type CollyFetcher struct {
	UserAgent string
	Timeout   time.Duration
}

func NewCollyFetcher() *CollyFetcher {
	return &CollyFetcher{UserAgent: UserAgent, Timeout: FetchTimeout}
}

func (f *CollyFetcher) Fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.UserAgent(f.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(f.Timeout)

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	// colly 对非 2xx 响应同样返回错误
	if err := c.Visit(feedURL); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feedURL, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("fetch %s: %w", feedURL, errEmptyBody)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", feedURL, err)
	}
	return feed, nil
}

var errEmptyBody = errors.New("empty body")
