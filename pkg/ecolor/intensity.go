// Package ecolor turns colour images into the single channel
// intensity grids that the aligner works on. Intensities are on the
// familiar 8-bit scale, [0,255].
package ecolor

import(
	"fmt"
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mdouchement/hdr"

	"github.com/abworrall/imagealign/pkg/emath"
)

// Luminance picks the formula used to collapse RGB into one channel
type Luminance int

const(
	Rec601 Luminance = iota // 0.2989R + 0.5870G + 0.1140B, on gamma encoded values
	CIELab                  // perceptual lightness, L* from CIE Lab
	HDRY                    // Y from XYZ, for HDR images; others fall back to Rec601
)

func (l Luminance)String() string {
	switch l {
	case Rec601: return "rec601"
	case CIELab: return "lab"
	case HDRY:   return "hdr-y"
	}
	return fmt.Sprintf("Luminance(%d)", int(l))
}

func ParseLuminance(s string) (Luminance, error) {
	switch s {
	case "", "rec601": return Rec601, nil
	case "lab":        return CIELab, nil
	case "hdr-y":      return HDRY, nil
	}
	return Rec601, fmt.Errorf("no luminance mode named '%s'", s)
}

func ColToGray(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return (float64(r) * 0.2989 + float64(g) * 0.5870 + float64(b) * 0.1140) / 257.0
}

func ColToLightness(c color.Color) float64 {
	col, ok := colorful.MakeColor(c)
	if !ok {
		return 0 // fully transparent
	}
	l, _, _ := col.Lab()
	return l * 255.0
}

// ToIntensity converts any image into an intensity grid. Single
// channel images are used as-is (rescaled); the mode only matters for
// colour images. The grid's (0,0) is the image's Bounds().Min.
func ToIntensity(img image.Image, mode Luminance) *emath.FloatGrid {
	b := img.Bounds()
	fg := emath.NewFloatGrid(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.Gray:
		for y:=0; y<b.Dy(); y++ {
			row := fg.Row(y)
			for x := range row {
				row[x] = float64(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return fg

	case *image.Gray16:
		for y:=0; y<b.Dy(); y++ {
			row := fg.Row(y)
			for x := range row {
				row[x] = float64(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y) / 257.0
			}
		}
		return fg

	case hdr.Image:
		if mode == HDRY {
			for y:=0; y<b.Dy(); y++ {
				row := fg.Row(y)
				for x := range row {
					_, lum, _, _ := src.HDRAt(b.Min.X+x, b.Min.Y+y).HDRXYZA()
					row[x] = lum * 255.0
				}
			}
			return fg
		}
	}

	f := ColToGray
	if mode == CIELab { f = ColToLightness }

	for y:=0; y<b.Dy(); y++ {
		row := fg.Row(y)
		for x := range row {
			row[x] = f(img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return fg
}
