// ABOUTME: Normalizes uploaded person photos before they are sent for try-on
// ABOUTME: Decodes PNG or JPEG, shrinks to a maximum width and re-encodes as JPEG

package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/nfnt/resize"
)

const (
	MaxImageWidth = 1024
	// MaxImagePixels caps width*height as declared by the image header.
	MaxImagePixels = 40_000_000
	jpegQuality    = 85
)

var (
	ErrUnsupportedImage = errors.New("unsupported image format, use PNG or JPEG")
	ErrImageTooLarge    = fmt.Errorf("image exceeds %d megapixels", MaxImagePixels/1_000_000)
)

// NormalizeImage returns r as a JPEG no wider than maxWidth. Narrower images
// keep their size; aspect ratio is always preserved.
func NormalizeImage(r io.Reader, maxWidth uint) ([]byte, error) {
	// Decoders allocate from the header dimensions, so check them first
	var header bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &header))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedImage
		}
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, ErrImageTooLarge
	}

	img, format, err := image.Decode(io.MultiReader(&header, r))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedImage
		}
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if format != "jpeg" && format != "png" {
		return nil, ErrUnsupportedImage
	}

	if uint(img.Bounds().Dx()) > maxWidth {
		img = resize.Resize(maxWidth, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
