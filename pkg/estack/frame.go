package estack

import (
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/abworrall/imagealign/pkg/ecolor"
	"github.com/abworrall/imagealign/pkg/emath"
)

// A Frame is one image in a sequence, plus the single channel version
// of it that gets aligned.
type Frame struct {
	LoadFilename       string
	Taken              time.Time    // From EXIF, if we found it
	OrigImage          image.Image  // The original image, as loaded

	intensity          *emath.FloatGrid
}

func NewFrame(filename string, img image.Image) Frame {
	return Frame{LoadFilename: filename, OrigImage: img}
}

func (f Frame)String() string {
	b := f.OrigImage.Bounds()
	str := fmt.Sprintf("%s: %dx%d", f.Filename(), b.Dx(), b.Dy())
	if !f.Taken.IsZero() {
		str += ", taken " + f.Taken.Format(time.RFC3339)
	}
	return str
}

func (f Frame)Filename() string {
	return filepath.Base(f.LoadFilename)
}

// Intensity converts the image into a grid on first use, and caches it
func (f *Frame)Intensity(l ecolor.Luminance) *emath.FloatGrid {
	if f.intensity == nil {
		f.intensity = ecolor.ToIntensity(f.OrigImage, l)
	}
	return f.intensity
}
