package email

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu    sync.Mutex
	calls []*resend.SendEmailRequest
	fail  map[string]bool
}

func (f *fakeSender) SendWithContext(_ context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, params)
	if f.fail[params.To[0]] {
		return nil, errors.New("rejected")
	}
	return &resend.SendEmailResponse{Id: "msg_" + params.To[0]}, nil
}

func TestSendBulkCountsFailures(t *testing.T) {
	fs := &fakeSender{fail: map[string]bool{"bad@site.test": true}}
	m := &Mailer{sender: fs, from: formatFrom("Ada", "news@site.test")}

	res, err := m.SendBulk(context.Background(), "weekly", []string{"a@site.test", "bad@site.test", "b@site.test"}, "hi", "<p>hi</p>")
	require.NoError(t, err)
	assert.Equal(t, BulkResult{Success: false, Sent: 2, Total: 3}, res)

	require.Len(t, fs.calls, 3)
	for _, c := range fs.calls {
		assert.Equal(t, "Ada <news@site.test>", c.From)
		assert.Len(t, c.To, 1)
		assert.Equal(t, "hi", c.Subject)
	}
}

func TestSendBulkAllOK(t *testing.T) {
	m := &Mailer{sender: &fakeSender{}, from: "news@site.test"}
	res, err := m.SendBulk(context.Background(), "new_post", []string{"a@site.test"}, "s", "h")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Sent)
}

func TestSendBulkNotConfigured(t *testing.T) {
	m := NewMailer("", "Ada", "news@site.test", nil)
	assert.False(t, m.Configured())

	_, err := m.SendBulk(context.Background(), "weekly", []string{"a@site.test"}, "s", "h")
	assert.ErrorIs(t, err, ErrNotConfigured)

	assert.True(t, NewMailer("re_key", "Ada", "news@site.test", nil).Configured())
}

func TestTemplates(t *testing.T) {
	site := Site{Name: "Ada", BaseURL: "https://site.test/"}

	post, err := BuildNewPostHTML(site, "Go <tips>", "https://site.test/blog/go")
	require.NoError(t, err)
	assert.Contains(t, post, `href="https://site.test/blog/go"`)
	assert.Contains(t, post, "Go &lt;tips&gt;")
	assert.Contains(t, post, "https://site.test/blog")

	empty, err := BuildWeeklyDigestHTML(site, nil)
	require.NoError(t, err)
	assert.Contains(t, empty, "Check the latest updates on the News page.")
	assert.Contains(t, empty, "https://site.test/news")

	digest, err := BuildWeeklyDigestHTML(site, []Highlight{{Title: "Big news", Link: "https://n.test/1", Source: "N"}})
	require.NoError(t, err)
	assert.Contains(t, digest, "This week's highlights")
	assert.Contains(t, digest, `<a href="https://n.test/1">Big news</a>`)
	assert.False(t, strings.Contains(digest, "Check the latest updates"))

	assert.Equal(t, "New post: Go – Ada", NewPostSubject(site, "Go"))
	assert.Equal(t, "Weekly update from Ada", WeeklySubject(site))
}
