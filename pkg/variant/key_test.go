package variant

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestKeyContentID(t *testing.T) {
	id := uuid.MustParse("0d5c4a52-3a5a-4f3e-8d1f-0e6a3a9b2c11")

	assert.EqualValues(t, id.String()+"_200x100.png", Key{FileID: id, Width: 200, Height: 100}.ContentID("png"))
	assert.EqualValues(t, id.String()+"_64x64_fill.jpg", Key{FileID: id, Width: 64, Height: 64, Fill: true}.ContentID("jpg"))
	assert.Equal(t, id.String()+"_", Prefix(id))
}

func TestKeyValidate(t *testing.T) {
	assert.NoError(t, Key{Width: 1, Height: 1}.Validate())
	assert.ErrorIs(t, Key{Width: 0, Height: 10}.Validate(), ErrInvalidDimensions)
	assert.ErrorIs(t, Key{Width: 10, Height: 0}.Validate(), ErrInvalidDimensions)
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name   string
		stored string
		ext    string
		w, h   uint16
		fill   bool
		want   string
	}{
		{"Fit", "beach.png", "png", 200, 100, false, "beach_200x100.png"},
		{"Fill", "beach.png", "png", 64, 64, true, "beach_64x64_fill.png"},
		{"MultipleDots", "beach.day.jpg", "jpg", 10, 20, false, "beach_10x20.jpg"},
		{"NoExtension", "scan", "gif", 5, 5, false, "scan_5x5.gif"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.stored, tt.ext, tt.w, tt.h, tt.fill))
		})
	}
}
