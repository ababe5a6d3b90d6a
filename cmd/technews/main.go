package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/LJTian/portfolio/internal/config"
	"github.com/LJTian/portfolio/internal/feed"
	"github.com/LJTian/portfolio/internal/logger"
)

// 只执行一次聚合并把结果打印到标准输出，便于手动检查各订阅源
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := feed.NewAggregator(feed.Sources, feed.NewCollyFetcher(), log)
	items := agg.Aggregate(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{"items": items}); err != nil {
		log.Fatal("encode items failed", zap.Error(err))
	}
	log.Info("aggregation done", zap.Int("items", len(items)))
}
