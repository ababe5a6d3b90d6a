package feed

import "strings"

// NodeKind 标记媒体字段的形态：不同 feed 方言里同一个字段可能是字符串、对象或对象数组
type NodeKind int

const (
	NodeString NodeKind = iota + 1
	NodeObject
	NodeArray
)

// MediaObject 媒体对象：url 可以直接挂在对象上，也可以放在属性里（<media:thumbnail url="..."/>）
type MediaObject struct {
	URL   string
	Attrs map[string]string
}

// MediaNode 是 {String, Object, Array} 的标签联合
type MediaNode struct {
	Kind   NodeKind
	Text   string
	Object MediaObject
	Array  []MediaObject
}

func StringNode(s string) MediaNode {
	return MediaNode{Kind: NodeString, Text: s}
}

func ObjectNode(o MediaObject) MediaNode {
	return MediaNode{Kind: NodeObject, Object: o}
}

func ArrayNode(objs ...MediaObject) MediaNode {
	return MediaNode{Kind: NodeArray, Array: objs}
}

// URL 按形态取出 url，取不到返回空串。数组只看第一个元素。
func (n MediaNode) URL() string {
	switch n.Kind {
	case NodeString:
		return strings.TrimSpace(n.Text)
	case NodeObject:
		return n.Object.url()
	case NodeArray:
		if len(n.Array) == 0 {
			return ""
		}
		return n.Array[0].url()
	default:
		return ""
	}
}

func (o MediaObject) url() string {
	for _, key := range []string{"url", "href"} {
		if u := strings.TrimSpace(o.Attrs[key]); u != "" {
			return u
		}
	}
	return strings.TrimSpace(o.URL)
}
