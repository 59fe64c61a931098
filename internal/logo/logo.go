// Package logo validates uploaded logo images and converts them into the
// form the PDF renderer embeds.
package logo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/diewo77/invoicer/internal/apperror"
)

// ErrEmpty is returned for a zero-length upload.
var ErrEmpty = errors.New("empty image")

// ErrTooLarge is returned for images wider or taller than MaxDimension.
var ErrTooLarge = errors.New("image dimensions too large")

const (
	// MaxDimension bounds the width and height of an accepted logo.
	MaxDimension = 4096
	// MaxStoredDimension is the longest edge of a normalized logo. The
	// renderer draws it in an 80pt box.
	MaxStoredDimension = 512
)

// Info describes a decoded logo.
type Info struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Inspect checks that data is a decodable image without decoding the pixels.
func Inspect(data []byte) (Info, error) {
	if len(data) == 0 {
		return Info{}, apperror.InvalidAsset("inspect logo", ErrEmpty)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, apperror.InvalidAsset("inspect logo", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return Info{}, apperror.InvalidAsset("inspect logo", errors.New("zero-sized image"))
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return Info{}, apperror.InvalidAsset("inspect logo",
			fmt.Errorf("%w: %dx%d exceeds %dx%d", ErrTooLarge, cfg.Width, cfg.Height, MaxDimension, MaxDimension))
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Normalize decodes data (PNG, JPEG, GIF, BMP or WebP), flattens it onto a
// white background, shrinks it to fit MaxStoredDimension and re-encodes it as
// an 8-bit RGB PNG. The header is checked with Inspect before any pixels are
// decoded.
func Normalize(data []byte) ([]byte, error) {
	if _, err := Inspect(data); err != nil {
		return nil, err
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperror.InvalidAsset("normalize logo", err)
	}
	b := src.Bounds()
	w, h := fit(b.Dx(), b.Dy(), MaxStoredDimension)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, apperror.InvalidAsset("normalize logo", err)
	}
	return buf.Bytes(), nil
}

// fit scales w x h down so that neither edge exceeds limit, keeping the aspect
// ratio. Smaller images are returned unchanged.
func fit(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}
