//go:build !linux

// Package waveshare implements the epd.Driver contract for Waveshare color
// e-paper panels over SPI and GPIO using periph.io. On platforms without
// SPI/GPIO support Open always fails; the memory variant is the only option.
package waveshare

import (
	"errors"
	"image"

	"github.com/paperfeed/paperfeed/internal/paperd/epd"
)

// Config selects the wiring for one panel
type Config struct {
	Capabilities epd.Capabilities
	SPIPort      string
	DCPin        string
	ResetPin     string
	BusyPin      string
}

// Panel drives one Waveshare e-paper device. It implements epd.Driver.
type Panel struct {
	caps epd.Capabilities
}

var errUnsupportedPlatform = errors.New("hardware panels require linux SPI/GPIO support")

// Open fails on non-linux platforms
func Open(cfg Config) (*Panel, error) {
	return nil, epd.NewHardwareError(cfg.Capabilities.Device, "init", errUnsupportedPlatform)
}

// Init implements epd.Driver
func (p *Panel) Init() error {
	return epd.NewHardwareError(p.caps.Device, "init", errUnsupportedPlatform)
}

// Render implements epd.Driver
func (p *Panel) Render(frame *image.RGBA) error {
	return epd.NewHardwareError(p.caps.Device, "render", errUnsupportedPlatform)
}

// Clear implements epd.Driver
func (p *Panel) Clear(c epd.Color) error {
	return epd.NewHardwareError(p.caps.Device, "clear", errUnsupportedPlatform)
}

// Sleep implements epd.Driver
func (p *Panel) Sleep() error {
	return epd.NewHardwareError(p.caps.Device, "sleep", errUnsupportedPlatform)
}

// Capabilities implements epd.Driver
func (p *Panel) Capabilities() epd.Capabilities {
	return p.caps
}

// Close releases the SPI port
func (p *Panel) Close() error {
	return nil
}
