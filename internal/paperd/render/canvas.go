package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
	"github.com/paperfeed/paperfeed/internal/paperd/epd"
)

// Layout constants, tuned for the smallest supported panel and scaled only by
// the frame width where that matters.
const (
	margin       = 5
	lineHeight   = 15
	titleBarH    = 25
	bannerH      = 30
	bottomMargin = 20
	charWidth    = 7
)

var face font.Face = basicfont.Face7x13

// maxChars is how many characters of body text fit on one line
func maxChars(t Target) int {
	n := (t.Width - 2*margin) / charWidth
	if n < 1 {
		n = 1
	}
	return n
}

// newCanvas allocates a white logical frame
func newCanvas(t Target) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(epd.White.RGBA()), image.Point{}, draw.Src)
	return img
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// drawLine renders one line of text with its baseline below (x, y)
func drawLine(img *image.RGBA, x, y int, s string, c color.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

// wrap splits text into lines of at most width characters, breaking on words
// where possible
func wrap(s string, width int) []string {
	var out []string
	for _, raw := range strings.Split(s, "\n") {
		if len(raw) <= width {
			out = append(out, raw)
			continue
		}
		line := ""
		for _, word := range strings.Fields(raw) {
			for len(word) > width {
				if line != "" {
					out = append(out, line)
					line = ""
				}
				out = append(out, word[:width])
				word = word[width:]
			}
			if line == "" {
				line = word
			} else if len(line)+1+len(word) <= width {
				line += " " + word
			} else {
				out = append(out, line)
				line = word
			}
		}
		out = append(out, line)
	}
	return out
}

// truncate shortens a title to fit the title bar
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// accent picks the strongest attention color the palette offers
func accent(t Target) color.RGBA {
	for _, c := range []epd.Color{epd.Red, epd.Orange, epd.Yellow} {
		for _, p := range t.Palette {
			if p == c {
				return c.RGBA()
			}
		}
	}
	return epd.Black.RGBA()
}

// Text composes a text file frame: a black title bar with the filename and
// the wrapped body below, cut off at the bottom margin
func Text(name, body string, t Target) *image.RGBA {
	img := newCanvas(t)
	fillRect(img, image.Rect(0, 0, t.Width, titleBarH), epd.Black.RGBA())
	drawLine(img, margin, margin, truncate(name, maxChars(t)), epd.White.RGBA())

	y := titleBarH + margin
	for _, line := range wrap(body, maxChars(t)) {
		if y > t.Height-bottomMargin {
			break
		}
		drawLine(img, margin, y, line, epd.Black.RGBA())
		y += lineHeight
	}
	return img
}

// FileInfo composes an info card for content with no dedicated renderer
func FileInfo(item v1alpha1.ContentItem, t Target) *image.RGBA {
	img := newCanvas(t)
	fillRect(img, image.Rect(0, 0, t.Width, bannerH), epd.Black.RGBA())
	drawLine(img, margin, 8, "New File Added", epd.White.RGBA())

	ext := strings.ToUpper(strings.TrimPrefix(extOf(item.Name), "."))
	if ext == "" {
		ext = "No extension"
	}
	info := []string{
		fmt.Sprintf("Name: %s", item.Name),
		fmt.Sprintf("Size: %d bytes", item.Size),
		fmt.Sprintf("Type: %s", ext),
		fmt.Sprintf("Modified: %s", item.ModifiedAt.Format(time.ANSIC)),
	}
	y := bannerH + 10
	for _, entry := range info {
		for _, line := range wrap(entry, maxChars(t)) {
			if y > t.Height-bannerH {
				return img
			}
			drawLine(img, margin, y, line, epd.Black.RGBA())
			y += lineHeight
		}
		y += 5
	}
	return img
}

// ErrorBanner composes the on-panel error frame: an accent-colored header
// and the wrapped failure message. The panel is the only user channel the
// renderer has, so persistent failures end up here.
func ErrorBanner(name, msg string, t Target) *image.RGBA {
	img := newCanvas(t)
	fillRect(img, image.Rect(0, 0, t.Width, bannerH), accent(t))
	drawLine(img, margin, 8, "ERROR", epd.White.RGBA())

	y := bannerH + 10
	drawLine(img, margin, y, truncate(fmt.Sprintf("File: %s", name), maxChars(t)), epd.Black.RGBA())
	y += lineHeight + 5
	for _, line := range wrap(msg, maxChars(t)) {
		if y > t.Height-bannerH {
			break
		}
		drawLine(img, margin, y, line, epd.Black.RGBA())
		y += lineHeight
	}
	return img
}

// Welcome composes the placeholder frame shown before any content arrives
func Welcome(folder string, t Target) *image.RGBA {
	img := newCanvas(t)
	fillRect(img, image.Rect(0, 0, t.Width, bannerH+5), epd.Black.RGBA())
	drawLine(img, margin, 10, "paperfeed", epd.White.RGBA())

	drawLine(img, margin, bannerH+15, "Monitoring folder:", epd.Black.RGBA())
	drawLine(img, margin, bannerH+15+lineHeight, truncate(folder, maxChars(t)), epd.Black.RGBA())
	drawLine(img, margin, bannerH+15+3*lineHeight, "Add files to display them!", accent(t))
	return img
}

// NotFound composes the banner for a missing startup file
func NotFound(name string, t Target) *image.RGBA {
	img := newCanvas(t)
	fillRect(img, image.Rect(0, 0, t.Width, bannerH+5), accent(t))
	drawLine(img, margin, 10, "File Not Found", epd.White.RGBA())
	drawLine(img, margin, bannerH+20, truncate(fmt.Sprintf("File: %s", name), maxChars(t)), epd.Black.RGBA())
	return img
}

func extOf(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i:])
}
