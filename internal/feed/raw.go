package feed

import (
	"sort"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

const (
	keyEnclosure      = "enclosure"
	keyMediaThumbnail = "media:thumbnail"
	keyMediaContent   = "media:content"

	// gofeed.Feed.FeedType 的取值
	feedTypeRSS = "rss"
)

// Enclosure RSS enclosure / Atom rel=enclosure 链接
type Enclosure struct {
	URL  string
	Href string
	Type string
}

// Field 是条目上按出现顺序排列的一个键值
type Field struct {
	Key  string
	Node MediaNode
}

// RawItem 是解析后、尚未归一化的条目，图片解析只依赖它
type RawItem struct {
	Link      string
	Enclosure *Enclosure
	Fields    []Field

	// HTML 兜底按以下顺序查找
	FullContent    string
	EncodedContent string
	Content        string
	Description    string
	Summary        string
}

// Field 返回第一个匹配 key 的字段
func (r RawItem) Field(key string) (MediaNode, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Node, true
		}
	}
	return MediaNode{}, false
}

func (r RawItem) htmlCandidates() []string {
	return []string{r.FullContent, r.EncodedContent, r.Content, r.Description, r.Summary}
}

// FromGofeed 把 gofeed 的条目摊平成 RawItem。
// gofeed 解析 RSS 时把 content:encoded 并入 item.Content，所以 RSS 的正文记为 EncodedContent，
// Atom/JSON Feed 的正文记为 FullContent。
// 扩展与自定义字段是 map，这里按 key 排序保证扫描顺序稳定。
func FromGofeed(item *gofeed.Item, feedType string) RawItem {
	raw := RawItem{
		Link:        strings.TrimSpace(item.Link),
		Description: item.Description,
	}
	if feedType == feedTypeRSS {
		raw.EncodedContent = item.Content
	} else {
		raw.FullContent = item.Content
	}

	if len(item.Enclosures) > 0 && item.Enclosures[0] != nil {
		enc := item.Enclosures[0]
		raw.Enclosure = &Enclosure{URL: enc.URL, Type: enc.Type}
	}

	if item.Image != nil {
		raw.Fields = append(raw.Fields, Field{Key: "image", Node: ObjectNode(MediaObject{URL: item.Image.URL})})
	}

	for _, prefix := range sortedKeys(item.Extensions) {
		names := item.Extensions[prefix]
		for _, name := range sortedKeys(names) {
			key := prefix + ":" + name
			exts := names[name]
			if len(exts) == 0 {
				continue
			}
			raw.Fields = append(raw.Fields, Field{Key: key, Node: extensionNode(exts)})

			// media:group 下的 thumbnail/content 展开为子字段
			for _, e := range exts {
				for _, child := range sortedKeys(e.Children) {
					if len(e.Children[child]) == 0 {
						continue
					}
					raw.Fields = append(raw.Fields, Field{
						Key:  key + "." + child,
						Node: extensionNode(e.Children[child]),
					})
				}
			}
		}
	}

	for _, key := range sortedKeys(item.Custom) {
		val := item.Custom[key]
		switch key {
		case "content":
			raw.Content = val
		case "summary":
			raw.Summary = val
		}
		raw.Fields = append(raw.Fields, Field{Key: key, Node: StringNode(val)})
	}

	return raw
}

func extensionNode(exts []ext.Extension) MediaNode {
	objs := make([]MediaObject, 0, len(exts))
	for _, e := range exts {
		objs = append(objs, MediaObject{URL: strings.TrimSpace(e.Value), Attrs: e.Attrs})
	}
	if len(objs) == 1 {
		return ObjectNode(objs[0])
	}
	return ArrayNode(objs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
