package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// Site 邮件里用到的站点信息
type Site struct {
	Name    string
	BaseURL string
}

func (s Site) url(path string) string {
	return strings.TrimRight(s.BaseURL, "/") + path
}

// Highlight 周报中的一条新闻
type Highlight struct {
	Title  string
	Link   string
	Source string
}

const layout = `<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
{{template "body" .}}
<hr style="border: none; border-top: 1px solid #eee;" />
<p style="color: #888; font-size: 12px;">You received this because you subscribed at {{.BlogURL}}</p>
</div>`

var (
	newPostTmpl = template.Must(template.Must(template.New("layout").Parse(layout)).New("body").Parse(`<h1>New blog post</h1>
<p>{{.Site.Name}} published a new post:</p>
<p><strong><a href="{{.PostURL}}">{{.PostTitle}}</a></strong></p>
<p><a href="{{.BlogURL}}">See all posts</a></p>`))

	weeklyTmpl = template.Must(template.Must(template.New("layout").Parse(layout)).New("body").Parse(`<h1>Weekly update from {{.Site.Name}}</h1>
<p>Here's your weekly digest.</p>
{{if .Highlights}}<p><strong>This week's highlights</strong></p>
<ul>{{range .Highlights}}<li><a href="{{.Link}}">{{.Title}}</a>{{if .Source}} <span style="color: #888;">({{.Source}})</span>{{end}}</li>{{end}}</ul>
{{else}}<p>Check the latest updates on the News page.</p>{{end}}
<p><a href="{{.NewsURL}}">Read the full news</a></p>
<p><a href="{{.BlogURL}}">Visit the blog</a></p>`))
)

type newPostData struct {
	Site      Site
	PostTitle string
	PostURL   string
	BlogURL   string
}

type weeklyData struct {
	Site       Site
	Highlights []Highlight
	NewsURL    string
	BlogURL    string
}

func BuildNewPostHTML(site Site, postTitle, postURL string) (string, error) {
	var buf bytes.Buffer
	err := newPostTmpl.ExecuteTemplate(&buf, "layout", newPostData{
		Site:      site,
		PostTitle: postTitle,
		PostURL:   postURL,
		BlogURL:   site.url("/blog"),
	})
	if err != nil {
		return "", fmt.Errorf("render new post email: %w", err)
	}
	return buf.String(), nil
}

func BuildWeeklyDigestHTML(site Site, highlights []Highlight) (string, error) {
	var buf bytes.Buffer
	err := weeklyTmpl.ExecuteTemplate(&buf, "layout", weeklyData{
		Site:       site,
		Highlights: highlights,
		NewsURL:    site.url("/news"),
		BlogURL:    site.url("/blog"),
	})
	if err != nil {
		return "", fmt.Errorf("render weekly email: %w", err)
	}
	return buf.String(), nil
}

func NewPostSubject(site Site, postTitle string) string {
	return fmt.Sprintf("New post: %s – %s", postTitle, site.Name)
}

func WeeklySubject(site Site) string {
	return "Weekly update from " + site.Name
}
