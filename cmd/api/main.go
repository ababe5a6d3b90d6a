package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LJTian/portfolio/internal/api"
	"github.com/LJTian/portfolio/internal/config"
	"github.com/LJTian/portfolio/internal/email"
	"github.com/LJTian/portfolio/internal/feed"
	"github.com/LJTian/portfolio/internal/logger"
	"github.com/LJTian/portfolio/internal/newsletter"
	"github.com/LJTian/portfolio/internal/og"
	"github.com/LJTian/portfolio/internal/scheduler"
	"github.com/LJTian/portfolio/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	news := feed.NewAggregator(feed.Sources, feed.NewCollyFetcher(), log.Named("feed"))
	mailer := email.NewMailer(cfg.ResendAPIKey, cfg.PersonName, cfg.NewsletterFromEmail, log.Named("email"))
	site := email.Site{Name: cfg.PersonName, BaseURL: cfg.SiteBaseURL}

	deps := api.Deps{Config: cfg, News: news, Log: log}

	// 未配置数据库时订阅与群发接口返回 503，贡献者列表返回空
	var letters *newsletter.Service
	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr, cfg.ContributionsCacheTTL, log.Named("storage"))
	switch {
	case err == nil:
		letters = newsletter.NewService(store, mailer, news, site, log.Named("newsletter"))
		deps.Contributions = store
	case errors.Is(err, storage.ErrNotConfigured):
		log.Warn("POSTGRES_DSN not set, running without database")
		letters = newsletter.NewService(nil, mailer, news, site, log.Named("newsletter"))
	default:
		log.Fatal("init store failed", zap.Error(err))
	}
	deps.Newsletter = letters

	if !cfg.EmailConfigured() {
		log.Warn("RESEND_API_KEY not set, newsletter sends are disabled")
	}

	renderer, err := og.NewRenderer(log.Named("og"))
	if err != nil {
		log.Fatal("init og renderer failed", zap.Error(err))
	}
	deps.OG = renderer

	if cfg.WeeklyDigestCron != "" {
		s, err := scheduler.New(cfg.WeeklyDigestCron, letters, log.Named("scheduler"))
		if err != nil {
			log.Fatal("init scheduler failed", zap.String("spec", cfg.WeeklyDigestCron), zap.Error(err))
		}
		s.Start()
		defer s.Stop()
	}

	if !cfg.LogDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger(log.Named("http")))
	api.NewServer(deps).RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting api server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server exit", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
