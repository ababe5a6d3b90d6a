// Package newsletter 负责订阅校验、新文章通知与周报群发
package newsletter

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/LJTian/portfolio/internal/email"
	"github.com/LJTian/portfolio/internal/feed"
	"github.com/LJTian/portfolio/internal/storage"
)

const (
	KindNewPost = "new_post"
	KindWeekly  = "weekly"

	subscribeSource = "blog"
	highlightCount  = 5
)

var (
	ErrInvalidEmail          = errors.New("newsletter: invalid email")
	ErrMissingPost           = errors.New("newsletter: post url or slug required")
	ErrEmailNotConfigured    = errors.New("newsletter: email not configured")
	ErrDatabaseNotConfigured = errors.New("newsletter: database not configured")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type SubscriberStore interface {
	Subscribe(ctx context.Context, email, source string) error
	ListSubscriberEmails(ctx context.Context) ([]string, error)
	RecordSend(ctx context.Context, send *storage.NewsletterSend)
}

type Mailer interface {
	Configured() bool
	SendBulk(ctx context.Context, kind string, to []string, subject, html string) (email.BulkResult, error)
}

// Headlines 提供周报里的新闻摘要
type Headlines interface {
	Aggregate(ctx context.Context) []feed.FeedItem
}

// PostRequest 新文章通知参数：url 优先，否则由 slug 拼出地址
type PostRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Slug  string `json:"slug"`
}

// Outcome 群发结果；没有可发对象时只有 Message
type Outcome struct {
	Result  email.BulkResult
	Message string
}

func (o Outcome) Skipped() bool {
	return o.Message != ""
}

type Service struct {
	store  SubscriberStore
	mailer Mailer
	news   Headlines
	site   email.Site
	log    *zap.Logger
}

// NewService store 与 news 可以为 nil
func NewService(store SubscriberStore, mailer Mailer, news Headlines, site email.Site, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, mailer: mailer, news: news, site: site, log: log}
}

func (s *Service) DatabaseConfigured() bool {
	return s.store != nil
}

// NormalizeEmail 去空格并转小写后校验格式
func NormalizeEmail(raw string) (string, bool) {
	e := strings.ToLower(strings.TrimSpace(raw))
	if e == "" || !emailPattern.MatchString(e) {
		return "", false
	}
	return e, true
}

func (s *Service) Subscribe(ctx context.Context, rawEmail string) error {
	addr, ok := NormalizeEmail(rawEmail)
	if !ok {
		return ErrInvalidEmail
	}
	if s.store == nil {
		return ErrDatabaseNotConfigured
	}
	if err := s.store.Subscribe(ctx, addr, subscribeSource); err != nil {
		return err
	}
	s.log.Info("newsletter: subscribed", zap.String("source", subscribeSource))
	return nil
}

func (s *Service) NotifyPost(ctx context.Context, req PostRequest) (Outcome, error) {
	postURL := strings.TrimSpace(req.URL)
	if postURL == "" && strings.TrimSpace(req.Slug) != "" {
		postURL = strings.TrimRight(s.site.BaseURL, "/") + "/blog/" + strings.TrimSpace(req.Slug)
	}
	if postURL == "" {
		return Outcome{}, ErrMissingPost
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New blog post"
	}

	emails, out, err := s.recipients(ctx, KindNewPost)
	if err != nil || out.Skipped() {
		return out, err
	}

	html, err := email.BuildNewPostHTML(s.site, title, postURL)
	if err != nil {
		return Outcome{}, err
	}
	meta := datatypes.JSONMap{"url": postURL, "title": title}
	return s.send(ctx, KindNewPost, emails, email.NewPostSubject(s.site, title), html, meta)
}

// SendWeekly 先确认有可发对象，再聚合新闻生成周报
func (s *Service) SendWeekly(ctx context.Context) (Outcome, error) {
	emails, out, err := s.recipients(ctx, KindWeekly)
	if err != nil || out.Skipped() {
		return out, err
	}

	highlights := s.highlights(ctx)
	html, err := email.BuildWeeklyDigestHTML(s.site, highlights)
	if err != nil {
		return Outcome{}, err
	}
	meta := datatypes.JSONMap{"highlights": len(highlights)}
	return s.send(ctx, KindWeekly, emails, email.WeeklySubject(s.site), html, meta)
}

func (s *Service) highlights(ctx context.Context) []email.Highlight {
	if s.news == nil {
		return nil
	}
	items := s.news.Aggregate(ctx)
	if len(items) > highlightCount {
		items = items[:highlightCount]
	}
	out := make([]email.Highlight, 0, len(items))
	for _, it := range items {
		if it.Title == "" || it.Link == "" {
			continue
		}
		out = append(out, email.Highlight{Title: it.Title, Link: it.Link, Source: it.SourceName})
	}
	return out
}

// recipients 检查邮件与数据库配置并取出订阅者；没有可发对象时返回带 Message 的 Outcome
func (s *Service) recipients(ctx context.Context, kind string) ([]string, Outcome, error) {
	if s.mailer == nil || !s.mailer.Configured() {
		return nil, Outcome{}, ErrEmailNotConfigured
	}
	if s.store == nil {
		return nil, Outcome{}, ErrDatabaseNotConfigured
	}

	emails, err := s.store.ListSubscriberEmails(ctx)
	if err != nil {
		s.log.Error("newsletter: list subscribers", zap.String("kind", kind), zap.Error(err))
		return nil, Outcome{Message: "Database error"}, nil
	}
	if len(emails) == 0 {
		return nil, Outcome{Message: "No subscribers."}, nil
	}
	return emails, Outcome{}, nil
}

func (s *Service) send(ctx context.Context, kind string, emails []string, subject, html string, meta datatypes.JSONMap) (Outcome, error) {
	res, err := s.mailer.SendBulk(ctx, kind, emails, subject, html)
	if err != nil {
		return Outcome{}, fmt.Errorf("send %s: %w", kind, err)
	}

	s.store.RecordSend(ctx, &storage.NewsletterSend{
		Kind:    kind,
		Subject: subject,
		Sent:    res.Sent,
		Total:   res.Total,
		Meta:    meta,
	})
	return Outcome{Result: res}, nil
}
