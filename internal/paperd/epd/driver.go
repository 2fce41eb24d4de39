// Package epd defines the capability abstraction over concrete e-paper panel
// drivers. A Driver wraps one vendor device behind a uniform init / render /
// clear / sleep contract; everything above it works against Capabilities and
// never against a specific panel.
package epd

import (
	"image"
	"image/color"
)

// Orientation is the native raster orientation of a panel
type Orientation string

const (
	// Portrait means the native raster is taller than wide
	Portrait Orientation = "portrait"
	// Landscape means the native raster is wider than tall
	Landscape Orientation = "landscape"
)

// Color is one entry of a panel's enumerated palette
type Color string

const (
	White  Color = "white"
	Black  Color = "black"
	Red    Color = "red"
	Yellow Color = "yellow"
	Blue   Color = "blue"
	Green  Color = "green"
	Orange Color = "orange"
)

// RGBA returns the canonical RGBA value used when composing frames for this
// palette entry
func (c Color) RGBA() color.RGBA {
	switch c {
	case Black:
		return color.RGBA{A: 0xff}
	case Red:
		return color.RGBA{R: 0xff, A: 0xff}
	case Yellow:
		return color.RGBA{R: 0xff, G: 0xff, A: 0xff}
	case Blue:
		return color.RGBA{B: 0xff, A: 0xff}
	case Green:
		return color.RGBA{G: 0xff, A: 0xff}
	case Orange:
		return color.RGBA{R: 0xff, G: 0x80, A: 0xff}
	default:
		return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
}

// ParseColor maps a wire color name onto a palette entry, defaulting to white
func ParseColor(name string) Color {
	switch Color(name) {
	case Black, Red, Yellow, Blue, Green, Orange:
		return Color(name)
	default:
		return White
	}
}

// Capabilities describes one panel variant. Set once at driver construction;
// read-only thereafter.
type Capabilities struct {
	// Device identifies the panel variant (e.g. "epd2in15g")
	Device string
	// Width and Height are the native raster dimensions in pixels
	Width  int
	Height int
	// NativeOrientation is the orientation of the native raster
	NativeOrientation Orientation
	// Palette enumerates the colors the panel can show
	Palette []Color
}

// Supports reports whether the palette contains the given color
func (c Capabilities) Supports(col Color) bool {
	for _, p := range c.Palette {
		if p == col {
			return true
		}
	}
	return false
}

// Driver is the narrow contract every concrete panel implements. Drivers
// perform no retries; retry policy belongs to the timing governor, which owns
// the single execution context for all hardware access.
type Driver interface {
	// Init powers up and initializes the panel
	Init() error

	// Render pushes a frame in the panel's native raster orientation.
	// The image must match the native width and height exactly.
	Render(frame *image.RGBA) error

	// Clear blanks the panel to the given palette color
	Clear(c Color) error

	// Sleep puts the panel into deep sleep; Init wakes it again
	Sleep() error

	// Capabilities describes this panel variant
	Capabilities() Capabilities
}
