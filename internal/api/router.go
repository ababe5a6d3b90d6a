package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/LJTian/portfolio/internal/config"
	"github.com/LJTian/portfolio/internal/feed"
	"github.com/LJTian/portfolio/internal/newsletter"
	"github.com/LJTian/portfolio/internal/og"
	"github.com/LJTian/portfolio/internal/storage"
)

const (
	techNewsCacheControl = "public, s-maxage=3600, stale-while-revalidate=7200"
	ogCacheControl       = "public, immutable, no-transform, max-age=31536000"
)

type NewsSource interface {
	Aggregate(ctx context.Context) []feed.FeedItem
}

type ContributionStore interface {
	ListContributions(ctx context.Context, projectSlug string) ([]storage.Contribution, error)
}

type ImageRenderer interface {
	Render(ctx context.Context, card og.Card) ([]byte, error)
}

// Deps 路由依赖；Contributions 为 nil 表示未配置数据库
type Deps struct {
	Config        *config.Config
	News          NewsSource
	Newsletter    *newsletter.Service
	Contributions ContributionStore
	OG            ImageRenderer
	Log           *zap.Logger
}

type Server struct {
	cfg      *config.Config
	news     NewsSource
	letters  *newsletter.Service
	contribs ContributionStore
	og       ImageRenderer
	log      *zap.Logger
}

func NewServer(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:      d.Config,
		news:     d.News,
		letters:  d.Newsletter,
		contribs: d.Contributions,
		og:       d.OG,
		log:      log,
	}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/tech-news", s.techNews)
		api.POST("/subscribe", s.subscribe)
		api.GET("/contributions", s.listContributions)
		api.GET("/og/generate", s.ogImage)

		letters := api.Group("/newsletter", cronSecretMiddleware(s.cfg.CronSecret))
		letters.POST("/notify-post", s.notifyPost)
		letters.GET("/weekly", s.weekly)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// techNews 永远返回 200；异常时降级为空列表且不带缓存头
func (s *Server) techNews(c *gin.Context) {
	items, ok := s.aggregate(c.Request.Context())
	if ok {
		c.Header("Cache-Control", techNewsCacheControl)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) aggregate(ctx context.Context) (items []feed.FeedItem, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("tech news fetch error", zap.Any("panic", r))
			items, ok = []feed.FeedItem{}, false
		}
	}()
	items = s.news.Aggregate(ctx)
	if items == nil {
		items = []feed.FeedItem{}
	}
	return items, true
}

type subscribeRequest struct {
	Email string `json:"email"`
}

func (s *Server) subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid email address."})
		return
	}

	err := s.letters.Subscribe(c.Request.Context(), req.Email)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, newsletter.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid email address."})
	case errors.Is(err, newsletter.ErrDatabaseNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Subscription service is not configured."})
	case errors.Is(err, storage.ErrAlreadySubscribed):
		c.JSON(http.StatusConflict, gin.H{"error": "This email is already subscribed."})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not subscribe. Please try again."})
	}
}

func (s *Server) listContributions(c *gin.Context) {
	project := strings.TrimSpace(c.Query("project"))
	if project == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing project query"})
		return
	}

	list := []storage.Contribution{}
	if s.contribs != nil {
		got, err := s.contribs.ListContributions(c.Request.Context(), project)
		if err != nil {
			s.log.Error("list contributions failed", zap.String("project", project), zap.Error(err))
		} else {
			list = got
		}
	} else {
		s.log.Warn("list contributions: database not configured")
	}

	if c.Query("debug") == "1" {
		c.JSON(http.StatusOK, gin.H{
			"ok":                 len(list) > 0,
			"count":              len(list),
			"project":            project,
			"databaseConfigured": s.contribs != nil,
			"data":               list,
		})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) notifyPost(c *gin.Context) {
	var req newsletter.PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body. Use { title, url } or { slug }."})
		return
	}
	out, err := s.letters.NotifyPost(c.Request.Context(), req)
	s.writeOutcome(c, out, err)
}

func (s *Server) weekly(c *gin.Context) {
	out, err := s.letters.SendWeekly(c.Request.Context())
	s.writeOutcome(c, out, err)
}

func (s *Server) writeOutcome(c *gin.Context, out newsletter.Outcome, err error) {
	switch {
	case errors.Is(err, newsletter.ErrMissingPost):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide post url or slug in body."})
	case errors.Is(err, newsletter.ErrEmailNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Email not configured (RESEND_API_KEY)."})
	case errors.Is(err, newsletter.ErrDatabaseNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database not configured (POSTGRES_DSN)."})
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not send newsletter."})
	case out.Skipped():
		c.JSON(http.StatusOK, gin.H{"sent": 0, "message": out.Message})
	default:
		c.JSON(http.StatusOK, out.Result)
	}
}

func (s *Server) ogImage(c *gin.Context) {
	card := og.Card{
		Title:     c.DefaultQuery("title", s.cfg.PersonName),
		Subtitle:  c.DefaultQuery("subtitle", s.cfg.PersonRole),
		AvatarURL: absoluteURL(s.cfg.SiteBaseURL, s.cfg.PersonAvatar),
	}
	if card.Title == "" {
		card.Title = s.cfg.PersonName
	}
	if card.Subtitle == "" {
		card.Subtitle = s.cfg.PersonRole
	}

	png, err := s.og.Render(c.Request.Context(), card)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate image"})
		return
	}
	c.Header("Cache-Control", ogCacheControl)
	c.Data(http.StatusOK, "image/png", png)
}

// absoluteURL 站内相对路径拼上站点地址
func absoluteURL(base, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}
