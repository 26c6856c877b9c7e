package variant

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultFilter is the resampling filter used when none is configured.
const DefaultFilter = "catmullrom"

var filters = map[string]imaging.ResampleFilter{
	"catmullrom": imaging.CatmullRom,
	"lanczos":    imaging.Lanczos,
	"linear":     imaging.Linear,
	"box":        imaging.Box,
	"nearest":    imaging.NearestNeighbor,
}

// ParseFilter maps a configured filter name to its resampling kernel.
// An empty name selects DefaultFilter.
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	if name == "" {
		name = DefaultFilter
	}
	f, ok := filters[strings.ToLower(name)]
	if !ok {
		return imaging.ResampleFilter{}, fmt.Errorf("unknown image filter %q", name)
	}
	return f, nil
}

// FilterNames lists the accepted filter names.
func FilterNames() []string {
	return []string{"catmullrom", "lanczos", "linear", "box", "nearest"}
}

func formatFor(mediaType string) (imaging.Format, error) {
	switch mediaType {
	case "image/gif":
		return imaging.GIF, nil
	case "image/jpeg":
		return imaging.JPEG, nil
	case "image/png":
		return imaging.PNG, nil
	default:
		return 0, fmt.Errorf("cannot render variants of %q", mediaType)
	}
}

// fitDimensions scales (w, h) by the largest factor that keeps it inside
// the box. Images smaller than the box are scaled up.
func fitDimensions(w, h, boxW, boxH int) (int, int) {
	ratio := math.Min(float64(boxW)/float64(w), float64(boxH)/float64(h))
	nw := max(int(math.Round(float64(w)*ratio)), 1)
	nh := max(int(math.Round(float64(h)*ratio)), 1)
	return nw, nh
}

// Render produces the variant of src described by key.
//
// EXIF orientation is applied at decode time so the box is matched against
// the image as displayed. The output is encoded in the source format and is
// deterministic for identical inputs.
func Render(src []byte, mediaType string, key Key, filter imaging.ResampleFilter) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	format, err := formatFor(mediaType)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	width, height := int(key.Width), int(key.Height)

	var out image.Image
	if key.Fill {
		out = imaging.Fill(img, width, height, imaging.Center, filter)
	} else {
		b := img.Bounds()
		nw, nh := fitDimensions(b.Dx(), b.Dy(), width, height)
		out = imaging.Resize(img, nw, nh, filter)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, format); err != nil {
		return nil, fmt.Errorf("failed to encode variant: %w", err)
	}
	return buf.Bytes(), nil
}
