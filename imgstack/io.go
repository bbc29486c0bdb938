package imgstack

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
)

// Decode reads a single grayscale frame from a TIFF or PNG image.
// Pixels are scaled to [0, 1].
func Decode(r io.Reader, ext string) (*Stack, error) {
	var img image.Image
	var err error
	switch strings.ToLower(ext) {
	case ".tif", ".tiff":
		img, err = tiff.Decode(r)
	case ".png":
		img, err = png.Decode(r)
	default:
		return nil, fmt.Errorf("imgstack: unsupported image format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	s := New(1, bounds.Dy(), bounds.Dx())
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
			s.Set(0, y, x, float32(g.Y)/65535)
		}
	}
	return s, nil
}

// ReadFile loads every frame found in the named files into one stack.
// All frames must share the same dimensions.
func ReadFile(paths ...string) (*Stack, error) {
	var out *Stack
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		frame, err := Decode(f, filepath.Ext(path))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if out == nil {
			out = frame
			continue
		}
		if frame.Height != out.Height || frame.Width != out.Width {
			return nil, fmt.Errorf("%s: %w: frame is %dx%d, stack is %dx%d",
				path, ErrShape, frame.Height, frame.Width, out.Height, out.Width)
		}
		out.Data = append(out.Data, frame.Data...)
		out.Frames++
	}
	if out == nil {
		return nil, fmt.Errorf("imgstack: no input files")
	}
	return out, nil
}

// WriteFile stores frame t of the stack as a 16-bit grayscale TIFF.
// Values are clamped to [0, 1] before quantization.
func WriteFile(path string, s *Stack, t int) error {
	img := image.NewGray16(image.Rect(0, 0, s.Width, s.Height))
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			v := s.At(t, y, x)
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(v * 65535)})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return fmt.Errorf("encode tiff: %w", err)
	}
	return nil
}
