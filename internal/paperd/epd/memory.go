package epd

import (
	"image"
	"sync"

	"github.com/paperfeed/paperfeed/internal/paperd/errors"
)

// Memory is a Driver that renders into process memory. It backs tests and
// the "memory" panel variant used for dry runs on machines without the
// hardware attached.
type Memory struct {
	caps Capabilities

	mu          sync.Mutex
	initialized bool
	asleep      bool
	frame       *image.RGBA
	ops         []string

	// FailOps, when set, makes the named operations return a hardware
	// error. Used by governor tests to exercise failure paths.
	FailOps map[string]bool
}

// NewMemory creates a memory driver with the given capabilities
func NewMemory(caps Capabilities) *Memory {
	return &Memory{caps: caps}
}

// MemoryCapabilities is the default capability set for the memory variant,
// matching the smallest supported physical panel
func MemoryCapabilities() Capabilities {
	return Capabilities{
		Device:            "memory",
		Width:             160,
		Height:            296,
		NativeOrientation: Portrait,
		Palette:           []Color{White, Black, Red, Yellow},
	}
}

func (m *Memory) fail(op string) error {
	if m.FailOps[op] {
		return NewHardwareError(m.caps.Device, op, errors.ErrHardware)
	}
	return nil
}

// Init implements Driver
func (m *Memory) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("init"); err != nil {
		return err
	}
	m.initialized = true
	m.asleep = false
	m.ops = append(m.ops, "init")
	return nil
}

// Render implements Driver
func (m *Memory) Render(frame *image.RGBA) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("render"); err != nil {
		return err
	}
	if !m.initialized {
		return NewHardwareError(m.caps.Device, "render", errNotInitialized)
	}
	b := frame.Bounds()
	if b.Dx() != m.caps.Width || b.Dy() != m.caps.Height {
		return NewHardwareError(m.caps.Device, "render",
			errFrameSize(b.Dx(), b.Dy(), m.caps.Width, m.caps.Height))
	}
	m.frame = frame
	m.ops = append(m.ops, "render")
	return nil
}

// Clear implements Driver
func (m *Memory) Clear(c Color) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("clear"); err != nil {
		return err
	}
	if !m.initialized {
		return NewHardwareError(m.caps.Device, "clear", errNotInitialized)
	}
	fill := image.NewRGBA(image.Rect(0, 0, m.caps.Width, m.caps.Height))
	rgba := c.RGBA()
	for i := 0; i < len(fill.Pix); i += 4 {
		fill.Pix[i] = rgba.R
		fill.Pix[i+1] = rgba.G
		fill.Pix[i+2] = rgba.B
		fill.Pix[i+3] = rgba.A
	}
	m.frame = fill
	m.ops = append(m.ops, "clear")
	return nil
}

// Sleep implements Driver
func (m *Memory) Sleep() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("sleep"); err != nil {
		return err
	}
	m.asleep = true
	m.ops = append(m.ops, "sleep")
	return nil
}

// Capabilities implements Driver
func (m *Memory) Capabilities() Capabilities {
	return m.caps
}

// Frame returns the most recently rendered frame, or nil
func (m *Memory) Frame() *image.RGBA {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frame
}

// Ops returns the recorded operation sequence
func (m *Memory) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.ops))
	copy(out, m.ops)
	return out
}

// RenderCount returns how many render operations completed
func (m *Memory) RenderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, op := range m.ops {
		if op == "render" {
			n++
		}
	}
	return n
}
