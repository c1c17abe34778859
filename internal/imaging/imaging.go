// Package imaging turns uploaded profile photos into small JPEGs suitable for embedding in a document.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"phCompose/internal/document"
)

const (
	DefaultMaxSide   = 300
	DefaultQuality   = 80
	DefaultMaxPixels = 40_000_000
)

var (
	// ErrDecode matches every *DecodeError.
	ErrDecode = errors.New("imaging: cannot decode image")
	// ErrTooLarge is wrapped when the declared dimensions exceed the pixel budget.
	ErrTooLarge = errors.New("imaging: image exceeds pixel budget")
)

// DecodeError is returned when the input cannot be turned into a photo. The caller's existing photo
// must be left untouched.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("decode %s image: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// Normalizer bounds and re-encodes images. The zero value uses the defaults.
type Normalizer struct {
	MaxSide   int
	Quality   int
	MaxPixels int
}

var std Normalizer

// Normalize re-encodes raw with the default settings.
func Normalize(raw []byte) ([]byte, error) {
	return std.Normalize(raw)
}

// ReplacePhoto normalizes raw with the default settings and stores it on info.
func ReplacePhoto(info *document.PersonalInfo, raw []byte) error {
	return std.ReplacePhoto(info, raw)
}

// Normalize decodes raw (PNG, JPEG, GIF, WebP or BMP), bounds its longer side and returns a JPEG.
// Transparent areas become white.
func (n Normalizer) Normalize(raw []byte) ([]byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &DecodeError{Format: format, Err: fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)}
	}
	if cfg.Width*cfg.Height > n.maxPixels() {
		return nil, &DecodeError{Format: format, Err: fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)}
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Format: format, Err: err}
	}

	b := src.Bounds()
	w, h := Fit(b.Dx(), b.Dy(), n.maxSide())
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: n.quality()}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// ReplacePhoto sets info.Photo to the normalized image. On error info is not modified.
func (n Normalizer) ReplacePhoto(info *document.PersonalInfo, raw []byte) error {
	out, err := n.Normalize(raw)
	if err != nil {
		return err
	}
	info.Photo = out
	return nil
}

// Fit returns the output dimensions for a w×h image: unchanged when both sides fit within limit,
// otherwise the longer side becomes limit and the shorter side is scaled proportionally (at least 1).
func Fit(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, scaleSide(h, limit, w)
	}
	return scaleSide(w, limit, h), limit
}

func scaleSide(short, limit, long int) int {
	s := int(math.Round(float64(short) * float64(limit) / float64(long)))
	if s < 1 {
		return 1
	}
	return s
}

func (n Normalizer) maxSide() int {
	if n.MaxSide <= 0 {
		return DefaultMaxSide
	}
	return n.MaxSide
}

func (n Normalizer) quality() int {
	if n.Quality <= 0 || n.Quality > 100 {
		return DefaultQuality
	}
	return n.Quality
}

func (n Normalizer) maxPixels() int {
	if n.MaxPixels <= 0 {
		return DefaultMaxPixels
	}
	return n.MaxPixels
}
