// Package og 渲染分享卡片（Open Graph 图片）
package og

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
)

const (
	Width  = 1200
	Height = 630

	avatarSize     = 120
	avatarBorder   = 4
	avatarGap      = 40
	titleSize      = 64
	subtitleSize   = 32
	lineGap        = 16
	subtitleGap    = 24
	maxTextWidth   = Width - 160
	maxTitleLines  = 2
	maxTextRunes   = 200
	avatarMaxBytes = 5 << 20
	avatarTimeout  = 5 * time.Second
)

var (
	topColor      = color.RGBA{0x1a, 0x1a, 0x1a, 0xff}
	bottomColor   = color.RGBA{0x0a, 0x0a, 0x0a, 0xff}
	titleColor    = color.RGBA{0xff, 0xff, 0xff, 0xff}
	subtitleColor = color.RGBA{0xa0, 0xa0, 0xa0, 0xff}
)

// Card 卡片内容，AvatarURL 必须是绝对地址，留空则不画头像
type Card struct {
	Title     string
	Subtitle  string
	AvatarURL string
}

type Renderer struct {
	bold    *opentype.Font
	regular *opentype.Font
	client  *http.Client
	log     *zap.Logger
}

func NewRenderer(log *zap.Logger) (*Renderer, error) {
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{
		bold:    bold,
		regular: regular,
		client:  &http.Client{Timeout: avatarTimeout},
		log:     log,
	}, nil
}

// Render 输出 PNG。头像拉取失败时只画文字
func (r *Renderer) Render(ctx context.Context, card Card) ([]byte, error) {
	// 画布最多容纳两行标题，多余的字符直接丢弃
	card.Title = truncateRunes(card.Title, maxTextRunes)
	card.Subtitle = truncateRunes(card.Subtitle, maxTextRunes)

	// font.Face 不是并发安全的，每次渲染单独创建
	titleFace, err := opentype.NewFace(r.bold, &opentype.FaceOptions{Size: titleSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("title face: %w", err)
	}
	defer titleFace.Close()
	subFace, err := opentype.NewFace(r.regular, &opentype.FaceOptions{Size: subtitleSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("subtitle face: %w", err)
	}
	defer subFace.Close()

	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	fillGradient(img, topColor, bottomColor)

	var avatar image.Image
	if card.AvatarURL != "" {
		avatar, err = r.fetchAvatar(ctx, card.AvatarURL)
		if err != nil {
			r.log.Warn("og: avatar fetch failed, rendering without it", zap.String("url", card.AvatarURL), zap.Error(err))
			avatar = nil
		}
	}

	titleLines := wrapLines(titleFace, card.Title, maxTextWidth, maxTitleLines)
	titleLineH := titleFace.Metrics().Height.Ceil()
	subLineH := subFace.Metrics().Height.Ceil()

	total := len(titleLines)*titleLineH + (len(titleLines)-1)*lineGap
	if card.Subtitle != "" {
		total += subtitleGap + subLineH
	}
	if avatar != nil {
		total += avatarSize + avatarGap
	}
	y := (Height - total) / 2

	if avatar != nil {
		drawAvatar(img, avatar, image.Pt(Width/2, y+avatarSize/2))
		y += avatarSize + avatarGap
	}
	for i, line := range titleLines {
		if i > 0 {
			y += lineGap
		}
		drawCentered(img, titleFace, titleColor, line, y)
		y += titleLineH
	}
	if card.Subtitle != "" {
		y += subtitleGap
		sub := wrapLines(subFace, card.Subtitle, maxTextWidth, 1)
		if len(sub) > 0 {
			drawCentered(img, subFace, subtitleColor, sub[0], y)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) fetchAvatar(ctx context.Context, avatarURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, avatarURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	img, _, err := image.Decode(io.LimitReader(resp.Body, avatarMaxBytes))
	if err != nil {
		return nil, fmt.Errorf("decode avatar: %w", err)
	}
	return img, nil
}

func fillGradient(img *image.RGBA, top, bottom color.RGBA) {
	h := img.Bounds().Dy()
	for y := 0; y < h; y++ {
		c := lerp(top, bottom, float64(y)/float64(max(h-1, 1)))
		draw.Draw(img, image.Rect(0, y, img.Bounds().Dx(), y+1), image.NewUniform(c), image.Point{}, draw.Src)
	}
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t) }
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 0xff}
}

// drawAvatar 白色圆环 + 圆形裁剪的头像
func drawAvatar(dst *image.RGBA, avatar image.Image, center image.Point) {
	outer := &circle{c: center, r: avatarSize/2 + avatarBorder}
	draw.DrawMask(dst, outer.Bounds(), image.NewUniform(titleColor), image.Point{}, outer, outer.Bounds().Min, draw.Over)

	inner := &circle{c: center, r: avatarSize / 2}
	scaled := image.NewRGBA(image.Rect(0, 0, avatarSize, avatarSize))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), avatar, avatar.Bounds(), xdraw.Src, nil)
	draw.DrawMask(dst, inner.Bounds(), scaled, image.Point{}, inner, inner.Bounds().Min, draw.Over)
}

func drawCentered(dst *image.RGBA, face font.Face, c color.Color, text string, top int) {
	w := font.MeasureString(face, text).Ceil()
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P((Width-w)/2, top+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

// wrapLines 按宽度折行，超过 maxLines 时最后一行以省略号结尾
func wrapLines(face font.Face, text string, maxWidth, maxLines int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	cur := ""
	for _, w := range words {
		next := w
		if cur != "" {
			next = cur + " " + w
		}
		if cur == "" || font.MeasureString(face, next).Ceil() <= maxWidth {
			cur = next
			continue
		}
		lines = append(lines, cur)
		cur = w
	}
	lines = append(lines, cur)

	truncated := len(lines) > maxLines
	if truncated {
		lines = lines[:maxLines]
	}
	last := lines[len(lines)-1]
	if truncated || font.MeasureString(face, last).Ceil() > maxWidth {
		lines[len(lines)-1] = ellipsize(face, last, maxWidth)
	}
	return lines
}

// ellipsize 二分查找能放下省略号的最长前缀
func ellipsize(face font.Face, s string, maxWidth int) string {
	rs := []rune(s)
	fits := func(n int) bool {
		return font.MeasureString(face, strings.TrimSpace(string(rs[:n]))+"…").Ceil() <= maxWidth
	}

	lo, hi := 0, len(rs)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	if lo == 0 {
		return "…"
	}
	return strings.TrimSpace(string(rs[:lo])) + "…"
}

func truncateRunes(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

type circle struct {
	c image.Point
	r int
}

func (c *circle) ColorModel() color.Model { return color.AlphaModel }

func (c *circle) Bounds() image.Rectangle {
	return image.Rect(c.c.X-c.r, c.c.Y-c.r, c.c.X+c.r, c.c.Y+c.r)
}

func (c *circle) At(x, y int) color.Color {
	dx := float64(x-c.c.X) + 0.5
	dy := float64(y-c.c.Y) + 0.5
	rr := float64(c.r)
	if dx*dx+dy*dy <= rr*rr {
		return color.Alpha{A: 0xff}
	}
	return color.Alpha{}
}
