package estack

import(
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"      // replace by "image/draw" at some point
	"golang.org/x/image/math/f64"  // replace by "image/math/f64" at some point

	"github.com/abworrall/imagealign/pkg/emath"
	"github.com/abworrall/imagealign/pkg/warp"
)

var(
	ColorEstimate = color.RGBA{0x00, 0xff, 0x00, 0xff}
	ColorTruth    = color.RGBA{0xff, 0x00, 0x00, 0xff}
	ColorLost     = color.RGBA{0xff, 0xa0, 0x00, 0xff}
)

func WritePNG(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return png.Encode(writer, img)
	}
}

// An Outline is a template-sized rectangle drawn through a warp
type Outline struct {
	Warp  warp.Warp
	Color color.Color
}

// DrawOutlines draws the borders of a size.X*size.Y template, as mapped
// into img by each warp. The warps work in grid coords, i.e. relative to
// img.Bounds().Min, which is also where gg's canvas starts.
func DrawOutlines(img image.Image, size image.Point, title string, outlines ...Outline) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetLineWidth(1.5)

	corners := []emath.Vec2{{0, 0}, {float64(size.X), 0}, {float64(size.X), float64(size.Y)}, {0, float64(size.Y)}}
	for _, o := range outlines {
		dc.SetColor(o.Color)
		for i, c := range corners {
			p := o.Warp.Apply(c)
			if i == 0 {
				dc.MoveTo(p[0], p[1])
			} else {
				dc.LineTo(p[0], p[1])
			}
		}
		dc.ClosePath()
		dc.Stroke()
	}

	if title != "" {
		dc.SetColor(ColorEstimate)
		dc.DrawString(title, 10, 20)
	}

	return dc.Image()
}

// AlignedPreview resamples img into the template frame: pixel (x,y) of
// the result comes from w(x+0.5, y+0.5) in img. Affine warps go through
// x/image/draw; projective ones use a nearest neighbour lookup.
func AlignedPreview(img image.Image, w warp.Warp, size image.Point) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	b := img.Bounds()

	if m := w.Matrix(); m.IsAffine() {
		if inv, ok := m.Aff3().Invert(); ok {
			// draw wants src->dst; remember they compose back to front
			s2d := inv.Mult(emath.Identity().Translate(-1*float64(b.Min.X), -1*float64(b.Min.Y)))
			draw.BiLinear.Transform(dst, f64.Aff3(s2d), img, b, draw.Src, nil)
			return dst
		}
	}

	for y:=0; y<size.Y; y++ {
		for x:=0; x<size.X; x++ {
			p := w.Apply(emath.Vec2{float64(x) + 0.5, float64(y) + 0.5})
			if !emath.IsFinite(p[0], p[1]) { continue }
			sp := image.Point{b.Min.X + int(math.Floor(p[0])), b.Min.Y + int(math.Floor(p[1]))}
			if sp.In(b) {
				dst.Set(x, y, img.At(sp.X, sp.Y))
			}
		}
	}
	return dst
}

// WriteTrackImages writes one PNG per frame, with the tracked region outlined
func (s *Sequence)WriteTrackImages(results []TrackResult) error {
	size := s.TemplateSize()
	for i, tr := range results {
		if i >= len(s.Frames) { break }
		col := ColorEstimate
		if tr.Lost { col = ColorLost }

		img := DrawOutlines(s.Frames[i].OrigImage, size, tr.Frame, Outline{tr.Warp, col})
		filename := filepath.Join(s.OutputDir, fmt.Sprintf("track-%03d.png", i))
		if err := WritePNG(img, filename); err != nil {
			return err
		}
	}
	return nil
}
