package feed

import "time"

const (
	// 每个源最多取 5 条，合并排序后全局最多 15 条
	PerSourceLimit = 5
	MaxItems       = 15

	FetchTimeout = 10 * time.Second
	UserAgent    = "Mozilla/5.0 (compatible; PortfolioTechNews/1.0)"

	descriptionLimit = 200
)

// Sources 是固定的科技新闻订阅源列表
var Sources = []string{
	"https://techcrunch.com/feed/",
	"https://www.theverge.com/rss/index.xml",
	"https://feeds.arstechnica.com/arstechnica/index",
	"https://github.blog/feed/",
	"https://dev.to/feed",
	"https://hnrss.org/frontpage",
}

// FeedItem 是聚合后对外输出的新闻条目，仅在单次请求内存在
type FeedItem struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishDate time.Time `json:"pubDate"`
	SourceName  string    `json:"source"`
	Description string    `json:"description,omitempty"`
	// 没有匹配到图片时整个字段省略
	PreviewImage string `json:"image,omitempty"`
}

// SourceResult 单个源的抓取结果：要么 Items，要么 Err
type SourceResult struct {
	URL   string
	Name  string
	Items []FeedItem
	Err   error
}

func (r SourceResult) OK() bool {
	return r.Err == nil
}
