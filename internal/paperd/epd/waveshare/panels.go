//go:build linux

package waveshare

import (
	"errors"
	"image"

	"periph.io/x/conn/v3/gpio"

	"github.com/paperfeed/paperfeed/internal/paperd/epd"
)

var (
	errNotInitialized = errors.New("panel not initialized")
	errBusyTimeout    = errors.New("busy line timeout")
)

type cmdStep struct {
	cmd  byte
	data []byte
}

// panelSequences holds the per-variant controller protocol: init and refresh
// command tables, the data-start command, the sleep command, the busy line
// polarity, and the framebuffer packing.
type panelSequences struct {
	init         []cmdStep
	refresh      []cmdStep
	dataStartCmd byte
	sleepCmd     byte
	sleepData    []byte
	busyLevel    gpio.Level
	pack         func(frame *image.RGBA, caps epd.Capabilities) []byte
	fill         func(c epd.Color, caps epd.Capabilities) []byte
}

func sequencesFor(device string) (panelSequences, error) {
	switch device {
	case "epd2in15g":
		return seq2in15g, nil
	case "epd13in3e":
		return seq13in3e, nil
	default:
		return panelSequences{}, &epd.ErrUnsupportedVariant{Variant: device, Supported: []string{"epd2in15g", "epd13in3e"}}
	}
}

// 2.15" G: UC-family controller, four colors at 2 bits per pixel.
var seq2in15g = panelSequences{
	init: []cmdStep{
		{cmd: 0x4D, data: []byte{0x78}},
		{cmd: 0x00, data: []byte{0x0F, 0x29}}, // panel setting
		{cmd: 0x01, data: []byte{0x07, 0x00}}, // power setting
		{cmd: 0x03, data: []byte{0x10, 0x54, 0x44}},
		{cmd: 0x06, data: []byte{0x05, 0x00, 0x3F, 0x0A, 0x25, 0x12, 0x1A}}, // booster
		{cmd: 0x50, data: []byte{0x37}},                                     // VCOM and data interval
		{cmd: 0x60, data: []byte{0x02, 0x02}},                               // TCON
		{cmd: 0x61, data: []byte{0x00, 0xA0, 0x01, 0x28}},                   // resolution 160x296
		{cmd: 0xE3, data: []byte{0x22}},
		{cmd: 0x04}, // power on
	},
	refresh: []cmdStep{
		{cmd: 0x12, data: []byte{0x00}}, // display refresh
	},
	dataStartCmd: 0x10,
	sleepCmd:     0x07,
	sleepData:    []byte{0xA5},
	busyLevel:    gpio.Low,
	pack:         packTwoBit,
	fill:         fillTwoBit,
}

// 13.3" E: Spectra 6 controller, six colors at 4 bits per pixel.
var seq13in3e = panelSequences{
	init: []cmdStep{
		{cmd: 0xAA, data: []byte{0x49, 0x55, 0x20, 0x08, 0x09, 0x18}}, // CMDH
		{cmd: 0x01, data: []byte{0x3F}},
		{cmd: 0x00, data: []byte{0x4F, 0x69}},
		{cmd: 0x05, data: []byte{0x40, 0x1F, 0x1F, 0x2C}},
		{cmd: 0x08, data: []byte{0x6F, 0x1F, 0x1F, 0x22}},
		{cmd: 0x06, data: []byte{0x6F, 0x1F, 0x14, 0x14}},
		{cmd: 0x03, data: []byte{0x00, 0x54, 0x00, 0x44}},
		{cmd: 0x60, data: []byte{0x02, 0x00}},
		{cmd: 0x61, data: []byte{0x04, 0xB0, 0x06, 0x40}}, // resolution 1200x1600
		{cmd: 0x50, data: []byte{0x3F}},
		{cmd: 0x04}, // power on
	},
	refresh: []cmdStep{
		{cmd: 0x12, data: []byte{0x00}},
	},
	dataStartCmd: 0x10,
	sleepCmd:     0x07,
	sleepData:    []byte{0xA5},
	busyLevel:    gpio.Low,
	pack:         packFourBit,
	fill:         fillFourBit,
}

// Controller color codes shared by the Waveshare color families.
var colorCodes = map[epd.Color]byte{
	epd.Black:  0x0,
	epd.White:  0x1,
	epd.Yellow: 0x2,
	epd.Red:    0x3,
	epd.Blue:   0x5,
	epd.Green:  0x6,
}

// nearest maps an RGBA pixel onto the closest palette entry by squared
// distance in RGB space
func nearest(r, g, b uint8, palette []epd.Color) epd.Color {
	best := palette[0]
	bestDist := 1 << 30
	for _, c := range palette {
		p := c.RGBA()
		dr := int(r) - int(p.R)
		dg := int(g) - int(p.G)
		db := int(b) - int(p.B)
		d := dr*dr + dg*dg + db*db
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

func pixelCode(frame *image.RGBA, x, y int, caps epd.Capabilities) byte {
	i := frame.PixOffset(x, y)
	c := nearest(frame.Pix[i], frame.Pix[i+1], frame.Pix[i+2], caps.Palette)
	return colorCodes[c]
}

// packTwoBit packs four pixels per byte, MSB first
func packTwoBit(frame *image.RGBA, caps epd.Capabilities) []byte {
	buf := make([]byte, caps.Width*caps.Height/4)
	i := 0
	for y := 0; y < caps.Height; y++ {
		for x := 0; x < caps.Width; x += 4 {
			var b byte
			for k := 0; k < 4; k++ {
				b = b<<2 | pixelCode(frame, x+k, y, caps)
			}
			buf[i] = b
			i++
		}
	}
	return buf
}

func fillTwoBit(c epd.Color, caps epd.Capabilities) []byte {
	code := colorCodes[c]
	b := code<<6 | code<<4 | code<<2 | code
	buf := make([]byte, caps.Width*caps.Height/4)
	for i := range buf {
		buf[i] = b
	}
	return buf
}

// packFourBit packs two pixels per byte, MSB first
func packFourBit(frame *image.RGBA, caps epd.Capabilities) []byte {
	buf := make([]byte, caps.Width*caps.Height/2)
	i := 0
	for y := 0; y < caps.Height; y++ {
		for x := 0; x < caps.Width; x += 2 {
			buf[i] = pixelCode(frame, x, y, caps)<<4 | pixelCode(frame, x+1, y, caps)
			i++
		}
	}
	return buf
}

func fillFourBit(c epd.Color, caps epd.Capabilities) []byte {
	code := colorCodes[c]
	b := code<<4 | code
	buf := make([]byte, caps.Width*caps.Height/2)
	for i := range buf {
		buf[i] = b
	}
	return buf
}
