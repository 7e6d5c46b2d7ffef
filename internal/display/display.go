// Package display drives the e-paper panel. The cycle only sees Panel;
// drivers decode the server's packed frame into whatever the glass needs.
package display

import (
	"context"
	"fmt"
	"image"
	"image/color"

	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
)

// Panel is the contract the cycle relies on. Refresh blocks for the full
// panel update, which can take tens of seconds.
type Panel interface {
	Initialize(ctx context.Context) error
	LoadImage(data []byte) error
	Refresh(ctx context.Context) error
	Sleep() error
}

// Hardware color codes of the packed frame format, one per nibble.
const (
	CodeBlack  = 0x0
	CodeWhite  = 0x1
	CodeYellow = 0x2
	CodeRed    = 0x3
	CodeBlue   = 0x5
	CodeGreen  = 0x6
)

// Palette maps nibble codes to RGB. Codes without a color render white.
var Palette = color.Palette{
	CodeBlack:  color.RGBA{0, 0, 0, 255},
	CodeWhite:  color.RGBA{255, 255, 255, 255},
	CodeYellow: color.RGBA{255, 255, 0, 255},
	CodeRed:    color.RGBA{255, 0, 0, 255},
	0x4:        color.RGBA{255, 255, 255, 255},
	CodeBlue:   color.RGBA{0, 0, 255, 255},
	CodeGreen:  color.RGBA{41, 204, 20, 255},
	0x7:        color.RGBA{255, 255, 255, 255},
}

// PackedFormat describes the server frame: row-major, two pixels per byte,
// high nibble first.
type PackedFormat struct {
	Width  int
	Height int
}

// Size is the exact byte length of one frame.
func (f PackedFormat) Size() int { return (f.Width*f.Height + 1) / 2 }

// DecodePacked expands a packed frame into a paletted image.
func DecodePacked(data []byte, f PackedFormat) (*image.Paletted, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, ferrors.ConfigError(fmt.Sprintf("invalid frame size %dx%d", f.Width, f.Height)).Build()
	}
	if len(data) < f.Size() {
		return nil, ferrors.ValidationError(fmt.Sprintf("frame too short: %d bytes, want %d", len(data), f.Size())).
			WithContext("width", f.Width).
			WithContext("height", f.Height).
			Build()
	}

	img := image.NewPaletted(image.Rect(0, 0, f.Width, f.Height), Palette)
	for i := 0; i < f.Width*f.Height; i++ {
		b := data[i/2]
		code := b >> 4
		if i%2 == 1 {
			code = b & 0x0f
		}
		if int(code) >= len(Palette) {
			code = CodeWhite
		}
		img.Pix[i] = code
	}
	return img, nil
}
