package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 120, A: 128})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestNormalizeShrinksLongestEdge(t *testing.T) {
	res, err := Normalize(encodePNG(t, 2048, 1024), Options{MaxSide: 1024, Quality: 75})
	require.NoError(t, err)
	assert.Equal(t, 1024, res.Width)
	assert.Equal(t, 512, res.Height)

	decoded, format, err := image.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 1024, decoded.Bounds().Dx())
}

func TestNormalizeKeepsSmallImages(t *testing.T) {
	res, err := Normalize(encodePNG(t, 300, 200), Options{})
	require.NoError(t, err)
	assert.Equal(t, 300, res.Width)
	assert.Equal(t, 200, res.Height)
	_, err = jpeg.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	_, err := Normalize([]byte("definitely not an image"), Options{})
	require.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestApplyOrientationRotatesDimensions(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 2))
	src.Set(0, 1, color.RGBA{R: 255, A: 255})

	rotated := applyOrientation(src, 6)
	assert.Equal(t, 2, rotated.Bounds().Dx())
	assert.Equal(t, 4, rotated.Bounds().Dy())
	r, _, _, _ := rotated.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)

	assert.Same(t, src, applyOrientation(src, 1))
}
