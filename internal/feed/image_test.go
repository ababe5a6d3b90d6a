package feed

import (
	"testing"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveImage_EnclosureBeatsThumbnail(t *testing.T) {
	raw := RawItem{
		Enclosure: &Enclosure{URL: "https://cdn.test/enc.jpg", Type: "image/jpeg"},
		Fields: []Field{
			{Key: keyMediaThumbnail, Node: ObjectNode(MediaObject{Attrs: map[string]string{"url": "https://cdn.test/thumb.jpg"}})},
		},
	}
	assert.Equal(t, "https://cdn.test/enc.jpg", ResolveImage(raw))
}

func TestResolveImage_EnclosureTypes(t *testing.T) {
	untyped := RawItem{Enclosure: &Enclosure{Href: "https://cdn.test/a.png"}}
	assert.Equal(t, "https://cdn.test/a.png", ResolveImage(untyped), "untyped enclosure uses href")

	audio := RawItem{
		Enclosure: &Enclosure{URL: "https://cdn.test/a.mp3", Type: "audio/mpeg"},
		Fields: []Field{
			{Key: keyMediaThumbnail, Node: StringNode("https://cdn.test/thumb.jpg")},
		},
	}
	assert.Equal(t, "https://cdn.test/thumb.jpg", ResolveImage(audio), "non-image enclosure falls through")
}

func TestResolveImage_MediaNodeShapes(t *testing.T) {
	cases := []struct {
		name string
		node MediaNode
		want string
	}{
		{"string", StringNode(" https://cdn.test/s.jpg "), "https://cdn.test/s.jpg"},
		{"object direct url", ObjectNode(MediaObject{URL: "https://cdn.test/o.jpg"}), "https://cdn.test/o.jpg"},
		{"object attrs win", ObjectNode(MediaObject{URL: "https://cdn.test/v.jpg", Attrs: map[string]string{"url": "https://cdn.test/attr.jpg"}}), "https://cdn.test/attr.jpg"},
		{"array first element", ArrayNode(
			MediaObject{Attrs: map[string]string{"url": "https://cdn.test/first.jpg"}},
			MediaObject{Attrs: map[string]string{"url": "https://cdn.test/second.jpg"}},
		), "https://cdn.test/first.jpg"},
		{"empty array", ArrayNode(), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.node.URL())
		})
	}
}

func TestResolveImage_MediaContentAfterThumbnail(t *testing.T) {
	raw := RawItem{
		Fields: []Field{
			{Key: keyMediaContent, Node: ObjectNode(MediaObject{Attrs: map[string]string{"url": "https://cdn.test/content.jpg"}})},
			{Key: keyMediaThumbnail, Node: ObjectNode(MediaObject{})},
		},
	}
	assert.Equal(t, "https://cdn.test/content.jpg", ResolveImage(raw))
}

func TestResolveImage_KeyScanRequiresAbsoluteHTTP(t *testing.T) {
	raw := RawItem{
		Fields: []Field{
			{Key: "author", Node: StringNode("https://not-an-image.test")},
			{Key: "itunes:image", Node: ObjectNode(MediaObject{Attrs: map[string]string{"href": "/relative.png"}})},
			{Key: "enclosure", Node: StringNode("https://skipped.test/e.png")},
			{Key: "CoverImage", Node: StringNode("https://cdn.test/cover.png")},
		},
		Description: `<img src="https://cdn.test/html.png">`,
	}
	assert.Equal(t, "https://cdn.test/cover.png", ResolveImage(raw))
}

func TestResolveImage_HTMLFallback(t *testing.T) {
	raw := RawItem{Description: `<p>hello</p><img src="http://example.com/a.png">`}
	assert.Equal(t, "http://example.com/a.png", ResolveImage(raw))
}

func TestResolveImage_HTMLOrder(t *testing.T) {
	raw := RawItem{
		FullContent: "<p>no image here</p>",
		Content:     `<IMG SRC='https://cdn.test/content.png'>`,
		Description: `<img src="https://cdn.test/desc.png">`,
	}
	assert.Equal(t, "https://cdn.test/content.png", ResolveImage(raw))
}

func TestResolveImage_RelativeDataSrc(t *testing.T) {
	raw := RawItem{
		Link:    "https://site.test/post",
		Summary: `<img class="lazy" data-src="/img/b.png">`,
	}
	assert.Equal(t, "https://site.test/img/b.png", ResolveImage(raw))
}

func TestResolveImage_FirstImgInDocumentOrder(t *testing.T) {
	raw := RawItem{
		Link:        "https://site.test/post",
		Description: `<img data-src="/first.png"><img src="/second.png">`,
	}
	assert.Equal(t, "https://site.test/first.png", ResolveImage(raw))

	// 同一个 <img> 上 src 优先于 data-src
	raw.Description = `<img data-src="/lazy.png" src="/eager.png">`
	assert.Equal(t, "https://site.test/eager.png", ResolveImage(raw))

	// 没有任何属性的 <img> 跳过
	raw.Description = `<img alt="x"><img data-src="/third.png">`
	assert.Equal(t, "https://site.test/third.png", ResolveImage(raw))
}

func TestResolveImage_KeyScanSchemeIsCaseInsensitive(t *testing.T) {
	raw := RawItem{Fields: []Field{
		{Key: "itunes:image", Node: ObjectNode(MediaObject{Attrs: map[string]string{"href": "HTTPS://CDN.TEST/cover.jpg"}})},
	}}
	assert.Equal(t, "HTTPS://CDN.TEST/cover.jpg", ResolveImage(raw))
}

func TestFromGofeed_RSSContentEncoded(t *testing.T) {
	const doc = `<?xml version="1.0"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel><title>t</title>
<item><title>a</title><link>https://site.test/a</link>
<content:encoded><![CDATA[<p>x</p><img src="/enc.png">]]></content:encoded></item>
</channel></rss>`
	parsed, err := gofeed.NewParser().ParseString(doc)
	require.NoError(t, err)
	require.Len(t, parsed.Items, 1)

	raw := FromGofeed(parsed.Items[0], parsed.FeedType)
	assert.Contains(t, raw.EncodedContent, "enc.png")
	assert.Empty(t, raw.FullContent)
	assert.Equal(t, "https://site.test/enc.png", ResolveImage(raw))
}

func TestFromGofeed_AtomContentIsFullContent(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"><title>t</title>
<entry><title>a</title><link href="https://site.test/a"/><id>1</id><updated>2026-01-01T00:00:00Z</updated>
<content type="html">&lt;img src="https://cdn.test/atom.png"&gt;</content></entry>
</feed>`
	parsed, err := gofeed.NewParser().ParseString(doc)
	require.NoError(t, err)
	require.Len(t, parsed.Items, 1)

	raw := FromGofeed(parsed.Items[0], parsed.FeedType)
	assert.Empty(t, raw.EncodedContent)
	assert.Equal(t, "https://cdn.test/atom.png", ResolveImage(raw))
}

func TestResolveImage_UnescapesAmp(t *testing.T) {
	raw := RawItem{
		Link:        "https://site.test/post",
		Description: `<img src="https://cdn.test/i.png?w=1&amp;amp;h=2">`,
	}
	assert.Equal(t, "https://cdn.test/i.png?w=1&h=2", ResolveImage(raw))
}

func TestResolveImage_MalformedIsAbsent(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Equal(t, "", ResolveImage(RawItem{Description: `<img src="not a url">`}))
		assert.Equal(t, "", ResolveImage(RawItem{Link: "::bad::", Description: `<img src="/x.png">`}))
		assert.Equal(t, "", ResolveImage(RawItem{Description: `<img src="http://[::1">`}))
		assert.Equal(t, "", ResolveImage(RawItem{}))
	})
}

func TestFromGofeed_MapsExtensionsAndContent(t *testing.T) {
	item := &gofeed.Item{
		Link:    "https://site.test/post",
		Content: "<p>full</p>",
		Enclosures: []*gofeed.Enclosure{
			{URL: "https://cdn.test/a.mp3", Type: "audio/mpeg"},
		},
		Extensions: ext.Extensions{
			"media": {
				"thumbnail": []ext.Extension{
					{Attrs: map[string]string{"url": "https://cdn.test/t1.jpg"}},
					{Attrs: map[string]string{"url": "https://cdn.test/t2.jpg"}},
				},
			},
		},
		Custom: map[string]string{"summary": "short"},
	}

	raw := FromGofeed(item, "atom")
	assert.Equal(t, "https://site.test/post", raw.Link)
	assert.Equal(t, "audio/mpeg", raw.Enclosure.Type)
	assert.Equal(t, "<p>full</p>", raw.FullContent)
	assert.Empty(t, raw.EncodedContent)
	assert.Equal(t, "short", raw.Summary)

	node, ok := raw.Field(keyMediaThumbnail)
	assert.True(t, ok)
	assert.Equal(t, NodeArray, node.Kind)
	assert.Equal(t, "https://cdn.test/t1.jpg", ResolveImage(raw))
}

func TestFromGofeed_MediaGroupChildren(t *testing.T) {
	item := &gofeed.Item{
		Extensions: ext.Extensions{
			"media": {
				"group": []ext.Extension{{
					Children: map[string][]ext.Extension{
						"content": {{Attrs: map[string]string{"url": "https://cdn.test/g.jpg", "medium": "image"}}},
					},
				}},
			},
		},
	}
	assert.Equal(t, "https://cdn.test/g.jpg", ResolveImage(FromGofeed(item, feedTypeRSS)))
}
