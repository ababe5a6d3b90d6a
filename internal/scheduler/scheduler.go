package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/LJTian/portfolio/internal/newsletter"
)

const weeklyJobTimeout = 10 * time.Minute

// WeeklySender 周报发送入口
type WeeklySender interface {
	SendWeekly(ctx context.Context) (newsletter.Outcome, error)
}

type Scheduler struct {
	cron   *cron.Cron
	weekly WeeklySender
	log    *zap.Logger
}

// New spec 为标准 5 段 cron 表达式，例如 "0 9 * * 1"（每周一 9 点）
func New(spec string, weekly WeeklySender, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := cron.New()

	s := &Scheduler{
		cron:   c,
		weekly: weekly,
		log:    log,
	}

	if _, err := c.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.log.Info("scheduler: weekly digest scheduled", zap.Time("next", e.Next))
	}
}

// Stop 停止调度并等待正在运行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发
func (s *Scheduler) RunOnce() {
	s.runOnce()
}

func (s *Scheduler) runOnce() {
	s.log.Info("scheduler: weekly digest start")

	ctx, cancel := context.WithTimeout(context.Background(), weeklyJobTimeout)
	defer cancel()

	out, err := s.weekly.SendWeekly(ctx)
	if err != nil {
		s.log.Error("scheduler: weekly digest failed", zap.Error(err))
		return
	}
	if out.Skipped() {
		s.log.Info("scheduler: weekly digest skipped", zap.String("reason", out.Message))
		return
	}
	s.log.Info("scheduler: weekly digest done",
		zap.Int("sent", out.Result.Sent), zap.Int("total", out.Result.Total))
}
