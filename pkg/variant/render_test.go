package variant

import (
	"bytes"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitDimensions(t *testing.T) {
	tests := []struct {
		name             string
		w, h, boxW, boxH int
		wantW, wantH     int
	}{
		{"Landscape", 400, 200, 100, 100, 100, 50},
		{"Portrait", 200, 400, 100, 100, 50, 100},
		{"Upscale", 10, 5, 100, 100, 100, 50},
		{"Exact", 100, 100, 100, 100, 100, 100},
		{"NeverZero", 1000, 1, 10, 10, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitDimensions(tt.w, tt.h, tt.boxW, tt.boxH)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestRenderFit(t *testing.T) {
	src := encodePNG(t, 80, 40)

	out, err := Render(src, "image/png", Key{Width: 20, Height: 20}, imaging.CatmullRom)
	require.NoError(t, err)

	w, h := decodeSize(t, out)
	assert.Equal(t, 20, w)
	assert.Equal(t, 10, h)
	assert.True(t, bytes.HasPrefix(out, []byte("\x89PNG")), "output keeps the source format")
}

func TestRenderFill(t *testing.T) {
	src := encodeJPEG(t, 80, 40)

	out, err := Render(src, "image/jpeg", Key{Width: 20, Height: 20, Fill: true}, imaging.CatmullRom)
	require.NoError(t, err)

	w, h := decodeSize(t, out)
	assert.Equal(t, 20, w)
	assert.Equal(t, 20, h)
	assert.True(t, bytes.HasPrefix(out, []byte{0xFF, 0xD8}), "output keeps the source format")
}

func TestRenderDeterministic(t *testing.T) {
	src := encodePNG(t, 64, 48)
	key := Key{Width: 30, Height: 30, Fill: true}

	a, err := Render(src, "image/png", key, imaging.Lanczos)
	require.NoError(t, err)
	b, err := Render(src, "image/png", key, imaging.Lanczos)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestRenderErrors(t *testing.T) {
	src := encodePNG(t, 10, 10)

	_, err := Render(src, "image/png", Key{Width: 0, Height: 10}, imaging.CatmullRom)
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = Render(src, "application/pdf", Key{Width: 5, Height: 5}, imaging.CatmullRom)
	assert.Error(t, err)

	_, err = Render([]byte("not an image"), "image/png", Key{Width: 5, Height: 5}, imaging.CatmullRom)
	assert.Error(t, err)
}

func TestParseFilter(t *testing.T) {
	for _, name := range FilterNames() {
		_, err := ParseFilter(name)
		assert.NoError(t, err, name)
	}

	_, err := ParseFilter("")
	assert.NoError(t, err)

	_, err = ParseFilter("bicubic-ish")
	assert.Error(t, err)
}
