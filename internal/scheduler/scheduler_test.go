package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/portfolio/internal/email"
	"github.com/LJTian/portfolio/internal/newsletter"
)

type countingSender struct {
	calls int
	err   error
}

func (c *countingSender) SendWeekly(context.Context) (newsletter.Outcome, error) {
	c.calls++
	return newsletter.Outcome{Result: email.BulkResult{Success: true, Sent: 1, Total: 1}}, c.err
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New("every monday", &countingSender{}, nil)
	assert.Error(t, err)
}

func TestRunOnceCallsSender(t *testing.T) {
	sender := &countingSender{}
	s, err := New("0 9 * * 1", sender, nil)
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 1)

	s.RunOnce()
	assert.Equal(t, 1, sender.calls)

	// 发送失败只记日志
	sender.err = errors.New("boom")
	assert.NotPanics(t, s.RunOnce)
	assert.Equal(t, 2, sender.calls)
}

func TestStartStop(t *testing.T) {
	s, err := New("0 9 * * 1", &countingSender{}, nil)
	require.NoError(t, err)
	s.Start()
	s.Stop()
}
