// Package render composes content frames in a canonical logical-landscape
// coordinate space and maps them onto a panel's native raster. All content
// kinds (images, text, info cards, error banners) pass through one shared
// rotation step, so orientation handling lives here and nowhere else.
package render

import (
	"fmt"
	"image"

	"github.com/paperfeed/paperfeed/internal/paperd/epd"
)

// Orientation is the user-facing mounting orientation of the panel
type Orientation string

const (
	// OrientationLandscape is the default logical frame
	OrientationLandscape Orientation = "landscape"
	// OrientationPortrait rotates content a quarter turn clockwise
	OrientationPortrait Orientation = "portrait"
	// OrientationLandscapeFlipped is landscape upside-down
	OrientationLandscapeFlipped Orientation = "landscape-flipped"
	// OrientationPortraitFlipped is portrait upside-down
	OrientationPortraitFlipped Orientation = "portrait-flipped"
)

// Orientations lists the four supported modes in rotation order
var Orientations = []Orientation{
	OrientationLandscape,
	OrientationPortrait,
	OrientationLandscapeFlipped,
	OrientationPortraitFlipped,
}

// ParseOrientation validates an orientation name
func ParseOrientation(s string) (Orientation, error) {
	switch Orientation(s) {
	case OrientationLandscape, OrientationPortrait, OrientationLandscapeFlipped, OrientationPortraitFlipped:
		return Orientation(s), nil
	case "":
		return OrientationLandscape, nil
	}
	return "", fmt.Errorf("unknown orientation %q", s)
}

// quarterTurns maps each orientation to its clockwise quarter-turn count
// relative to the logical landscape frame
func quarterTurns(o Orientation) int {
	switch o {
	case OrientationPortrait:
		return 1
	case OrientationLandscapeFlipped:
		return 2
	case OrientationPortraitFlipped:
		return 3
	default:
		return 0
	}
}

// Target is the logical drawing frame derived from panel capabilities and a
// configured orientation. Content is composed at Width x Height and rotated
// by Turns quarter turns to reach the native raster.
type Target struct {
	// Width and Height are the logical frame dimensions
	Width  int
	Height int
	// Turns is the clockwise quarter-turn count applied to outgoing
	// frames
	Turns int
	// Orientation is the configured mode this target was derived from
	Orientation Orientation
	// Palette is the panel's color set, used when composing
	Palette []epd.Color
}

// Normalize derives the render target for a panel and configured orientation.
// Portrait-native rasters get one extra quarter turn so that the default
// configuration always yields a landscape logical frame. Pure; recomputed on
// every configuration change.
func Normalize(caps epd.Capabilities, o Orientation) Target {
	turns := quarterTurns(o)
	if caps.NativeOrientation == epd.Portrait {
		turns = (turns + 1) % 4
	}
	w, h := caps.Width, caps.Height
	if turns%2 == 1 {
		w, h = h, w
	}
	return Target{
		Width:       w,
		Height:      h,
		Turns:       turns,
		Orientation: o,
		Palette:     caps.Palette,
	}
}

// Rotate returns src rotated clockwise by the given quarter turns. Zero turns
// returns src unchanged.
func Rotate(src *image.RGBA, turns int) *image.RGBA {
	turns = ((turns % 4) + 4) % 4
	for ; turns > 0; turns-- {
		src = rotate90(src)
	}
	return src
}

// rotate90 rotates one quarter turn clockwise: (x, y) -> (h-1-y, x)
func rotate90(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			di := dst.PixOffset(h-1-y, x)
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst
}
