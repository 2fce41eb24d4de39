//go:build linux

// Package waveshare implements the epd.Driver contract for Waveshare color
// e-paper panels over SPI and GPIO using periph.io. The renderer never talks
// to this package directly; it is selected once at startup through the panel
// variant configuration.
package waveshare

import (
	"fmt"
	"image"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/paperfeed/paperfeed/internal/paperd/epd"
)

// Default wiring follows the Waveshare e-Paper HAT (BCM numbering).
const (
	defaultSPIPort  = "SPI0.0"
	defaultDCPin    = "GPIO25"
	defaultResetPin = "GPIO17"
	defaultBusyPin  = "GPIO24"
)

// busyTimeout bounds the wait for the panel's busy line. Full-panel refreshes
// on the larger variants take over twenty seconds.
const busyTimeout = 40 * time.Second

// spiChunk is the largest single SPI transfer; spidev buffers are commonly
// limited to 4096 bytes.
const spiChunk = 4096

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
	seq  panelSequences

	conn spi.Conn
	port spi.PortCloser
	dc   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIn

	initialized bool
}

// Open connects the SPI port and GPIO lines for the configured variant
func Open(cfg Config) (*Panel, error) {
	if _, err := host.Init(); err != nil {
		return nil, epd.NewHardwareError(cfg.Capabilities.Device, "init", err)
	}

	seq, err := sequencesFor(cfg.Capabilities.Device)
	if err != nil {
		return nil, err
	}

	portName := cfg.SPIPort
	if portName == "" {
		portName = defaultSPIPort
	}
	port, err := spireg.Open(portName)
	if err != nil {
		return nil, epd.NewHardwareError(cfg.Capabilities.Device, "init", err)
	}
	conn, err := port.Connect(10*1000*1000, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, epd.NewHardwareError(cfg.Capabilities.Device, "init", err)
	}

	pin := func(name, fallback string) gpio.PinIO {
		if name == "" {
			name = fallback
		}
		return gpioreg.ByName(name)
	}
	dc := pin(cfg.DCPin, defaultDCPin)
	rst := pin(cfg.ResetPin, defaultResetPin)
	busy := pin(cfg.BusyPin, defaultBusyPin)
	if dc == nil || rst == nil || busy == nil {
		port.Close()
		return nil, epd.NewHardwareError(cfg.Capabilities.Device, "init",
			fmt.Errorf("gpio pins not found (dc=%q rst=%q busy=%q)", cfg.DCPin, cfg.ResetPin, cfg.BusyPin))
	}
	if err := busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		port.Close()
		return nil, epd.NewHardwareError(cfg.Capabilities.Device, "init", err)
	}

	return &Panel{
		caps: cfg.Capabilities,
		seq:  seq,
		conn: conn,
		port: port,
		dc:   dc,
		rst:  rst,
		busy: busy,
	}, nil
}

// Init implements epd.Driver. It performs the hardware reset and sends the
// variant's power-on sequence; it also wakes the panel from deep sleep.
func (p *Panel) Init() error {
	if err := p.reset(); err != nil {
		return epd.NewHardwareError(p.caps.Device, "init", err)
	}
	for _, step := range p.seq.init {
		if err := p.command(step.cmd, step.data...); err != nil {
			return epd.NewHardwareError(p.caps.Device, "init", err)
		}
	}
	if err := p.waitIdle(); err != nil {
		return epd.NewHardwareError(p.caps.Device, "init", err)
	}
	p.initialized = true
	return nil
}

// Render implements epd.Driver
func (p *Panel) Render(frame *image.RGBA) error {
	if !p.initialized {
		return epd.NewHardwareError(p.caps.Device, "render", errNotInitialized)
	}
	b := frame.Bounds()
	if b.Dx() != p.caps.Width || b.Dy() != p.caps.Height {
		return epd.NewHardwareError(p.caps.Device, "render",
			fmt.Errorf("frame size %dx%d does not match panel %dx%d", b.Dx(), b.Dy(), p.caps.Width, p.caps.Height))
	}
	buf := p.seq.pack(frame, p.caps)
	if err := p.pushFrame(buf); err != nil {
		return epd.NewHardwareError(p.caps.Device, "render", err)
	}
	return nil
}

// Clear implements epd.Driver
func (p *Panel) Clear(c epd.Color) error {
	if !p.initialized {
		return epd.NewHardwareError(p.caps.Device, "clear", errNotInitialized)
	}
	buf := p.seq.fill(c, p.caps)
	if err := p.pushFrame(buf); err != nil {
		return epd.NewHardwareError(p.caps.Device, "clear", err)
	}
	return nil
}

// Sleep implements epd.Driver. Deep sleep is mandatory between refreshes on
// these panels; a high voltage held across the film damages it.
func (p *Panel) Sleep() error {
	if err := p.command(p.seq.sleepCmd, p.seq.sleepData...); err != nil {
		return epd.NewHardwareError(p.caps.Device, "sleep", err)
	}
	p.initialized = false
	time.Sleep(100 * time.Millisecond)
	return nil
}

// Capabilities implements epd.Driver
func (p *Panel) Capabilities() epd.Capabilities {
	return p.caps
}

// Close releases the SPI port
func (p *Panel) Close() error {
	return p.port.Close()
}

// pushFrame transfers a packed framebuffer and triggers a full refresh
func (p *Panel) pushFrame(buf []byte) error {
	if err := p.commandOnly(p.seq.dataStartCmd); err != nil {
		return err
	}
	if err := p.data(buf); err != nil {
		return err
	}
	for _, step := range p.seq.refresh {
		if err := p.command(step.cmd, step.data...); err != nil {
			return err
		}
	}
	return p.waitIdle()
}

func (p *Panel) reset() error {
	for _, level := range []gpio.Level{gpio.High, gpio.Low, gpio.High} {
		if err := p.rst.Out(level); err != nil {
			return err
		}
		time.Sleep(30 * time.Millisecond)
	}
	return nil
}

func (p *Panel) commandOnly(cmd byte) error {
	if err := p.dc.Out(gpio.Low); err != nil {
		return err
	}
	return p.conn.Tx([]byte{cmd}, nil)
}

func (p *Panel) command(cmd byte, data ...byte) error {
	if err := p.commandOnly(cmd); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return p.data(data)
}

func (p *Panel) data(buf []byte) error {
	if err := p.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(buf) > 0 {
		n := len(buf)
		if n > spiChunk {
			n = spiChunk
		}
		if err := p.conn.Tx(buf[:n], nil); err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// waitIdle blocks until the busy line releases or the timeout expires
func (p *Panel) waitIdle() error {
	deadline := time.Now().Add(busyTimeout)
	for p.busy.Read() == p.seq.busyLevel {
		if time.Now().After(deadline) {
			return errBusyTimeout
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}
