package ecolor

import(
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/mdouchement/hdr/hdrcolor"
)

// flatHDR is a minimal hdr.Image, bright on the left and black on the right
type flatHDR struct{ lum float64 }

func (f flatHDR)ColorModel() color.Model { return hdrcolor.RGBModel }
func (f flatHDR)Bounds() image.Rectangle { return image.Rect(0, 0, 2, 1) }
func (f flatHDR)At(x, y int) color.Color { return f.HDRAt(x, y) }
func (f flatHDR)Size() int               { return 2 }
func (f flatHDR)HDRAt(x, y int) hdrcolor.Color {
	if x == 0 { return hdrcolor.RGB{R: f.lum, G: f.lum, B: f.lum} }
	return hdrcolor.RGB{}
}

func TestGrayIsUsedDirectly(t *testing.T) {
	img := image.NewGray(image.Rect(10, 20, 14, 23))
	img.SetGray(11, 21, color.Gray{200})

	fg := ToIntensity(img, CIELab)
	if fg.Dx() != 4 || fg.Dy() != 3 {
		t.Fatalf("size %dx%d", fg.Dx(), fg.Dy())
	}
	if fg.Get(1, 1) != 200 || fg.Get(0, 0) != 0 {
		t.Errorf("got %f, %f", fg.Get(1, 1), fg.Get(0, 0))
	}

	img16 := image.NewGray16(image.Rect(0, 0, 2, 2))
	img16.SetGray16(1, 0, color.Gray16{0xFFFF})
	if got := ToIntensity(img16, Rec601).Get(1, 0); got != 255 {
		t.Errorf("gray16 white = %f", got)
	}
}

func TestColourModes(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 1))
	img.Set(0, 0, color.RGBA{255, 255, 255, 255})
	img.Set(1, 0, color.RGBA{0, 0, 0, 255})
	img.Set(2, 0, color.RGBA{0, 255, 0, 255})

	rec := ToIntensity(img, Rec601)
	lab := ToIntensity(img, CIELab)

	if math.Abs(rec.Get(0,0) - 255) > 0.1 || math.Abs(lab.Get(0,0) - 255) > 0.5 {
		t.Errorf("white: rec601 %f, lab %f", rec.Get(0,0), lab.Get(0,0))
	}
	if rec.Get(1,0) != 0 || math.Abs(lab.Get(1,0)) > 1e-9 {
		t.Errorf("black: rec601 %f, lab %f", rec.Get(1,0), lab.Get(1,0))
	}
	if math.Abs(rec.Get(2,0) - 0.5870*255) > 0.1 {
		t.Errorf("green: rec601 %f", rec.Get(2,0))
	}
	// L* of pure green is about 87.7
	if math.Abs(lab.Get(2,0) - 0.877*255) > 1.0 {
		t.Errorf("green: lab %f", lab.Get(2,0))
	}
}

func TestHDRY(t *testing.T) {
	fg := ToIntensity(flatHDR{2}, HDRY)
	_, want, _, _ := hdrcolor.RGB{R: 2, G: 2, B: 2}.HDRXYZA()
	if math.Abs(fg.Get(0, 0) - want*255) > 1e-9 {
		t.Errorf("got %f, want %f", fg.Get(0, 0), want*255)
	}
	if fg.Get(1, 0) != 0 {
		t.Errorf("black pixel = %f", fg.Get(1, 0))
	}
}

func TestParseLuminance(t *testing.T) {
	for _, l := range []Luminance{Rec601, CIELab, HDRY} {
		if got, err := ParseLuminance(l.String()); err != nil || got != l {
			t.Errorf("ParseLuminance(%q) = %v, %v", l, got, err)
		}
	}
	if _, err := ParseLuminance("hsv"); err == nil {
		t.Errorf("expected error")
	}
}
