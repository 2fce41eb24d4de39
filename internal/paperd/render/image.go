package render

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"

	// Register the raster decoders the upload allowlist accepts.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
)

// Image decodes raster data and composes it centered on a white logical
// frame, scaled to fit while preserving aspect ratio
func Image(data []byte, t Target) (*image.RGBA, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	sb := src.Bounds()
	scaleX := float64(t.Width) / float64(sb.Dx())
	scaleY := float64(t.Height) / float64(sb.Dy())
	scale := scaleX
	if scaleY < scale {
		scale = scaleY
	}
	if scale > 1 {
		scale = 1
	}
	w := int(float64(sb.Dx()) * scale)
	h := int(float64(sb.Dy()) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	img := newCanvas(t)
	x := (t.Width - w) / 2
	y := (t.Height - h) / 2
	dst := image.Rect(x, y, x+w, y+h)
	xdraw.CatmullRom.Scale(img, dst, src, sb, draw.Over, nil)
	return img, nil
}
