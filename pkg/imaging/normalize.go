// Package imaging normalises punch evidence photos into bounded JPEGs.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned when the payload is not a decodable image.
var ErrUnsupportedImage = errors.New("unsupported image payload")

// Options bounds the normalised output.
type Options struct {
	MaxSide int
	Quality int
}

// Result holds the re-encoded JPEG and its final dimensions.
type Result struct {
	Data   []byte
	Width  int
	Height int
}

// Normalize applies EXIF orientation, flattens to opaque RGB, shrinks the
// longest edge to MaxSide and re-encodes as JPEG.
func Normalize(raw []byte, opts Options) (*Result, error) {
	if opts.MaxSide <= 0 {
		opts.MaxSide = 1024
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 75
	}

	img, err := decodeWithWebPFallback(raw)
	if err != nil {
		return nil, err
	}

	img = applyOrientation(img, readOrientation(raw))
	img = fitWithin(flatten(img), opts.MaxSide)

	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	bounds := img.Bounds()
	return &Result{Data: buf.Bytes(), Width: bounds.Dx(), Height: bounds.Dy()}, nil
}

func decodeWithWebPFallback(raw []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err == nil {
		return img, nil
	}
	if decoded, webpErr := webp.Decode(bytes.NewReader(raw)); webpErr == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
}

// readOrientation returns the EXIF orientation tag, or 1 when absent.
func readOrientation(raw []byte) int {
	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	value, err := tag.Int(0)
	if err != nil || value < 1 || value > 8 {
		return 1
	}
	return value
}

func applyOrientation(src image.Image, orientation int) image.Image {
	if orientation <= 1 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dw, dh := w, h
	if orientation >= 5 {
		dw, dh = h, w
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for dy := 0; dy < dh; dy++ {
		for dx := 0; dx < dw; dx++ {
			var sx, sy int
			switch orientation {
			case 2:
				sx, sy = w-1-dx, dy
			case 3:
				sx, sy = w-1-dx, h-1-dy
			case 4:
				sx, sy = dx, h-1-dy
			case 5:
				sx, sy = dy, dx
			case 6:
				sx, sy = dy, h-1-dx
			case 7:
				sx, sy = w-1-dy, h-1-dx
			case 8:
				sx, sy = w-1-dy, dx
			default:
				sx, sy = dx, dy
			}
			dst.Set(dx, dy, src.At(b.Min.X+sx, b.Min.Y+sy))
		}
	}
	return dst
}

func flatten(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

func fitWithin(src *image.RGBA, maxSide int) image.Image {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxSide {
		return src
	}
	tw := max(1, w*maxSide/longest)
	th := max(1, h*maxSide/longest)
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}
