package feed

import (
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

var snippetPolicy = bluemonday.StrictPolicy()

// buildItem 把 gofeed 条目转成对外的 FeedItem；缺失的发布时间用本轮聚合时间兜底
func buildItem(item *gofeed.Item, feedType, source string, now time.Time) FeedItem {
	published := now
	switch {
	case item.PublishedParsed != nil:
		published = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		published = *item.UpdatedParsed
	}

	return FeedItem{
		Title:        strings.TrimSpace(item.Title),
		Link:         strings.TrimSpace(item.Link),
		PublishDate:  published,
		SourceName:   source,
		Description:  describe(item),
		PreviewImage: ResolveImage(FromGofeed(item, feedType)),
	}
}

// describe 优先用去掉 HTML 的描述文本，否则截取原始正文前 200 个字符
func describe(item *gofeed.Item) string {
	if s := snippet(item.Description); s != "" {
		return s
	}
	return truncateRunes(item.Content, descriptionLimit)
}

func snippet(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	text := html.UnescapeString(snippetPolicy.Sanitize(s))
	return strings.Join(strings.Fields(text), " ")
}

// truncateRunes 按 rune 数截断，避免切断多字节字符
func truncateRunes(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

// sourceName 优先用 feed 标题，否则用 feed 地址的 host
func sourceName(feed *gofeed.Feed, feedURL string) string {
	if feed != nil {
		if t := strings.TrimSpace(feed.Title); t != "" {
			return t
		}
	}
	if u, err := url.Parse(feedURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return feedURL
}
