package email

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LJTian/portfolio/internal/metrics"
)

var ErrNotConfigured = errors.New("email: RESEND_API_KEY not configured")

// 同时在途的发送请求上限
const sendConcurrency = 5

// sender 是 resend.EmailsSvc 中用到的部分
type sender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// BulkResult 群发结果：单封失败只计数，不中断整批
type BulkResult struct {
	Success bool `json:"success"`
	Sent    int  `json:"sent"`
	Total   int  `json:"total"`
}

type Mailer struct {
	sender sender
	from   string
	log    *zap.Logger
}

// NewMailer apiKey 为空时返回未配置的 Mailer
func NewMailer(apiKey, fromName, fromEmail string, log *zap.Logger) *Mailer {
	m := &Mailer{from: formatFrom(fromName, fromEmail), log: log}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if apiKey != "" {
		m.sender = resend.NewClient(apiKey).Emails
	}
	return m
}

func (m *Mailer) Configured() bool {
	return m != nil && m.sender != nil
}

// SendBulk 每个收件人单独一封，并发发送
func (m *Mailer) SendBulk(ctx context.Context, kind string, to []string, subject, html string) (BulkResult, error) {
	if !m.Configured() {
		return BulkResult{}, ErrNotConfigured
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sendConcurrency)

	for _, addr := range to {
		g.Go(func() error {
			_, err := m.sender.SendWithContext(gctx, &resend.SendEmailRequest{
				From:    m.from,
				To:      []string{addr},
				Subject: subject,
				Html:    html,
			})
			if err != nil {
				failed.Add(1)
				metrics.EmailsTotal.WithLabelValues(kind, metrics.ResultFailed).Inc()
				m.log.Warn("newsletter: send failed", zap.String("kind", kind), zap.Error(err))
				return nil
			}
			metrics.EmailsTotal.WithLabelValues(kind, metrics.ResultOK).Inc()
			return nil
		})
	}
	_ = g.Wait()

	total := len(to)
	sent := total - int(failed.Load())
	m.log.Info("newsletter: bulk send done",
		zap.String("kind", kind), zap.Int("sent", sent), zap.Int("total", total))

	return BulkResult{Success: sent == total, Sent: sent, Total: total}, nil
}

func formatFrom(name, addr string) string {
	if name == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}
