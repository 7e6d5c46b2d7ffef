package display

import (
	"context"
	"image"
	"image/color"
	stddraw "image/draw"
	"log/slog"

	xdraw "golang.org/x/image/draw"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/devices/v3/waveshare2in13v4"

	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
)

var monochrome = color.Palette{color.Black, color.White}

// Waveshare drives a Waveshare 2.13" v4 HAT. Color frames are scaled to the
// panel and dithered to black and white. host.Init must have run first.
type Waveshare struct {
	port   spi.PortCloser
	dev    *waveshare2in13v4.Dev
	format PackedFormat
	frame  *image1bit.VerticalLSB
	logger *slog.Logger
}

// OpenWaveshare opens the SPI port (empty name picks the first one).
func OpenWaveshare(portName string, format PackedFormat, logger *slog.Logger) (*Waveshare, error) {
	port, err := spireg.Open(portName)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHardware, "failed to open SPI port").
			WithContext("port", portName).Build()
	}
	opts := waveshare2in13v4.EPD2in13v4
	dev, err := waveshare2in13v4.NewHat(port, &opts)
	if err != nil {
		_ = port.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryHardware, "failed to create panel driver").Build()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Waveshare{port: port, dev: dev, format: format, logger: logger}, nil
}

func (w *Waveshare) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.dev.Init(); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHardware, "panel initialization failed").Build()
	}
	return nil
}

func (w *Waveshare) LoadImage(data []byte) error {
	src, err := DecodePacked(data, w.format)
	if err != nil {
		return err
	}

	bounds := w.dev.Bounds()
	scaled := image.NewRGBA(bounds)
	stddraw.Draw(scaled, bounds, image.White, image.Point{}, stddraw.Src)
	xdraw.ApproxBiLinear.Scale(scaled, fitRect(src.Bounds(), bounds), src, src.Bounds(), xdraw.Src, nil)

	mono := image.NewPaletted(bounds, monochrome)
	stddraw.FloydSteinberg.Draw(mono, bounds, scaled, bounds.Min)

	frame := image1bit.NewVerticalLSB(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			frame.SetBit(x, y, mono.ColorIndexAt(x, y) == 1)
		}
	}
	w.frame = frame
	return nil
}

func (w *Waveshare) Refresh(ctx context.Context) error {
	if w.frame == nil {
		return ferrors.InternalError("refresh without a loaded image").Build()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.dev.Draw(w.dev.Bounds(), w.frame, image.Point{}); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHardware, "panel refresh failed").
			Warning().NextCycle().Build()
	}
	return nil
}

func (w *Waveshare) Sleep() error {
	if err := w.dev.Sleep(); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHardware, "panel sleep failed").Warning().Build()
	}
	return nil
}

// Close halts the panel and releases the SPI port.
func (w *Waveshare) Close() error {
	_ = w.dev.Halt()
	return w.port.Close()
}

// fitRect returns the largest rectangle with src's aspect ratio centered in dst.
func fitRect(src, dst image.Rectangle) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	dw, dh := dst.Dx(), dst.Dy()
	if sw == 0 || sh == 0 {
		return dst
	}
	w, h := dw, sh*dw/sw
	if h > dh {
		w, h = sw*dh/sh, dh
	}
	x0 := dst.Min.X + (dw-w)/2
	y0 := dst.Min.Y + (dh-h)/2
	return image.Rect(x0, y0, x0+w, y0+h)
}
