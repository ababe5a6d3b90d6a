package feed

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var mediaKeyPattern = regexp.MustCompile(`(?i)thumbnail|image|media|enclosure`)

// ResolveImage 按优先级为条目找一张预览图，找不到返回空串：
// enclosure > media:thumbnail > media:content > 名字像图片的其它字段 > HTML 中第一张 <img>
func ResolveImage(raw RawItem) string {
	if u := enclosureImage(raw.Enclosure); u != "" {
		return u
	}

	for _, key := range []string{keyMediaThumbnail, keyMediaContent} {
		if node, ok := raw.Field(key); ok {
			if u := node.URL(); u != "" {
				return u
			}
		}
	}

	for _, f := range raw.Fields {
		if f.Key == keyEnclosure || !mediaKeyPattern.MatchString(f.Key) {
			continue
		}
		if u := f.Node.URL(); isAbsoluteHTTP(u) {
			return u
		}
	}

	for _, html := range raw.htmlCandidates() {
		if u := firstImageFromHTML(html, raw.Link); u != "" {
			return u
		}
	}
	return ""
}

func enclosureImage(enc *Enclosure) string {
	if enc == nil {
		return ""
	}
	u := strings.TrimSpace(enc.URL)
	if u == "" {
		u = strings.TrimSpace(enc.Href)
	}
	if u == "" {
		return ""
	}
	typ := strings.ToLower(strings.TrimSpace(enc.Type))
	if typ == "" || strings.HasPrefix(typ, "image/") {
		return u
	}
	return ""
}

// firstImageFromHTML 按文档顺序取第一张带 src 或 data-src（懒加载）的 <img>，并以 base 解析相对地址
func firstImageFromHTML(html, base string) string {
	if !strings.Contains(strings.ToLower(html), "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var ref string
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, attr := range []string{"src", "data-src"} {
			if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
				ref = v
				return false
			}
		}
		return true
	})
	if ref == "" {
		return ""
	}
	return resolveRef(ref, base)
}

// resolveRef 解析失败一律视为没有图片
func resolveRef(ref, base string) string {
	ref = strings.TrimSpace(strings.ReplaceAll(ref, "&amp;", "&"))
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if !u.IsAbs() {
		b, err := url.Parse(strings.TrimSpace(base))
		if err != nil || !b.IsAbs() || b.Host == "" {
			return ""
		}
		u = b.ResolveReference(u)
	}
	if !isAbsoluteHTTP(u.String()) || u.Host == "" {
		return ""
	}
	return u.String()
}

func isAbsoluteHTTP(u string) bool {
	u = strings.ToLower(u)
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}
