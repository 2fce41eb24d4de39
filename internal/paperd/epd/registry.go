package epd

import (
	"errors"
	"fmt"
)

var (
	errNotInitialized = errors.New("panel not initialized")
)

func errFrameSize(gotW, gotH, wantW, wantH int) error {
	return fmt.Errorf("frame size %dx%d does not match panel %dx%d", gotW, gotH, wantW, wantH)
}

// Variants is the closed set of supported panel variants and their
// capabilities. Selection happens once at startup from configuration.
var Variants = map[string]Capabilities{
	"memory": MemoryCapabilities(),
	"epd2in15g": {
		Device:            "epd2in15g",
		Width:             160,
		Height:            296,
		NativeOrientation: Portrait,
		Palette:           []Color{White, Black, Red, Yellow},
	},
	"epd13in3e": {
		Device:            "epd13in3e",
		Width:             1200,
		Height:            1600,
		NativeOrientation: Portrait,
		Palette:           []Color{White, Black, Red, Yellow, Blue, Green},
	},
}

// VariantNames returns the supported variant names
func VariantNames() []string {
	names := make([]string, 0, len(Variants))
	for name := range Variants {
		names = append(names, name)
	}
	return names
}

// Lookup resolves a variant name against the closed set
func Lookup(variant string) (Capabilities, error) {
	caps, ok := Variants[variant]
	if !ok {
		return Capabilities{}, &ErrUnsupportedVariant{Variant: variant, Supported: VariantNames()}
	}
	return caps, nil
}
