package emath

import(
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	"github.com/fogleman/gg" // Move to https://pkg.go.dev/golang.org/x/image/font#Drawer sometime
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"
)

// A FloatGrid is a single channel grid of floats, with some operations.
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) *FloatGrid {
	if w < 0 || h < 0 {
		panic(fmt.Sprintf("NewFloatGrid: bad size %dx%d", w, h))
	}
	return &FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

// NewFloatGridFrom wraps a row-major slice of values; it is not copied.
func NewFloatGridFrom(w, h int, values []float64) *FloatGrid {
	if len(values) != w*h {
		panic(fmt.Sprintf("NewFloatGridFrom: %d values for %dx%d", len(values), w, h))
	}
	return &FloatGrid{stride: w, values: values}
}

func (g1 *FloatGrid)NewFromThis() *FloatGrid  { return NewFloatGrid(g1.Dx(), g1.Dy()) }
func (fg *FloatGrid)Set(x, y int, v float64)  { fg.values[fg.stride*y + x] = v }
func (fg *FloatGrid)Get(x, y int) float64     { return fg.values[fg.stride*y + x] }
func (fg *FloatGrid)Dx() int                  { return fg.stride }
func (fg *FloatGrid)Row(y int) []float64      { return fg.values[fg.stride*y : fg.stride*(y+1)] }
func (fg *FloatGrid)Values() []float64        { return fg.values }
func (fg *FloatGrid)Bounds() image.Rectangle  { return image.Rect(0, 0, fg.Dx(), fg.Dy()) }

func (fg *FloatGrid)Dy() int {
	if fg.stride == 0 { return 0 }
	return len(fg.values) / fg.stride
}

func (fg *FloatGrid)Empty() bool { return fg == nil || len(fg.values) == 0 }

func (g1 *FloatGrid)Copy() *FloatGrid {
	g2 := FloatGrid{stride: g1.stride, values:make([]float64, len(g1.values))}
	copy(g2.values, g1.values)
	return &g2
}

// SubGrid copies out the pixels inside r, which must lie within the grid.
func (g1 *FloatGrid)SubGrid(r image.Rectangle) *FloatGrid {
	if !r.In(g1.Bounds()) {
		panic(fmt.Sprintf("SubGrid: %s not inside %s", r, g1.Bounds()))
	}
	g2 := NewFloatGrid(r.Dx(), r.Dy())
	for y:=0; y<r.Dy(); y++ {
		copy(g2.Row(y), g1.Row(r.Min.Y+y)[r.Min.X:r.Max.X])
	}
	return g2
}

func (fg *FloatGrid)Fill(v float64) {
	for i := range fg.values { fg.values[i] = v }
}

// At reads a pixel, using the border policy for out of bounds locations
func (fg *FloatGrid)At(x, y int, b Border) float64 {
	xx, okx := b.Index(x, fg.Dx())
	yy, oky := b.Index(y, fg.Dy())
	if !okx || !oky {
		return 0
	}
	return fg.Get(xx, yy)
}

func (fg *FloatGrid)Mean() float64 {
	if len(fg.values) == 0 { return 0 }
	sum := 0.0
	for _, v := range fg.values { sum += v }
	return sum / float64(len(fg.values))
}

// Sobel computes the x and y derivatives using the 3x3 Sobel kernels,
// multiplied by scale.
func (fg *FloatGrid)Sobel(scale float64, b Border) (*FloatGrid, *FloatGrid) {
	gx := fg.NewFromThis()
	gy := fg.NewFromThis()
	width, height := fg.Dx(), fg.Dy()

	for y:=0; y<height; y++ {
		for x:=0; x<width; x++ {
			nw, n, ne := fg.At(x-1,y-1,b), fg.At(x,y-1,b), fg.At(x+1,y-1,b)
			w,      e := fg.At(x-1,y,  b),                 fg.At(x+1,y,  b)
			sw, s, se := fg.At(x-1,y+1,b), fg.At(x,y+1,b), fg.At(x+1,y+1,b)

			gx.Set(x, y, scale * ((ne + 2*e + se) - (nw + 2*w + sw)))
			gy.Set(x, y, scale * ((sw + 2*s + se) - (nw + 2*n + ne)))
		}
	}

	return gx, gy
}

// BoxBlur averages each pixel with its (2r+1)x(2r+1) neighbourhood.
func (g1 *FloatGrid)BoxBlur(r int, b Border) *FloatGrid {
	width := g1.Dx()
	height := g1.Dy()
	k := float64(2*r + 1)

	//--- X blur, build up in T
	T := g1.NewFromThis()
	for y:=0; y<height; y++ {
		for x:=0; x<width; x++ {
			t := 0.0
			for i:=-r; i<=r; i++ { t += g1.At(x+i, y, b) }
			T.Set(x, y, t/k)
		}
	}

	//--- Y blur, read from T and generate output
	g2 := g1.NewFromThis()
	for y:=0; y<height; y++ {
		for x:=0; x<width; x++ {
			t := 0.0
			for i:=-r; i<=r; i++ { t += T.At(x, y+i, b) }
			g2.Set(x, y, t/k)
		}
	}

	return g2
}

func (fg *FloatGrid)MinMax() (float64, float64) {
	min := math.MaxFloat64
	max := -1.0  * min
	for i:=0 ; i<len(fg.values) ; i++ {
		if fg.values[i] > max { max = fg.values[i] }
		if fg.values[i] < min { min = fg.values[i] }
	}
	return min, max
}

func (fg *FloatGrid)Stats() string {
	min, max := fg.MinMax()
	return fmt.Sprintf("fg[%dx%d, vals{%f,%f}]", fg.Dx(), fg.Dy(), min, max)
}

// ToImage renders a simple grayscale, based on the range of values in the grid, and gamma scaling the
// gray to look normal for human vision
func (fg *FloatGrid)ToImage() *image.RGBA64 {
	min, max := fg.MinMax()
	span := max - min
	if span <= 0 { span = 1 }

	img := image.NewRGBA64(image.Rectangle{Max:image.Point{fg.Dx(), fg.Dy()}})
	for x:=0; x<fg.Dx(); x++ {
		for y:=0; y<fg.Dy(); y++ {
			gray := GammaExpand_F64((fg.Get(x,y) - min) / span)
			col := color.RGBA64{uint16(gray * 65535.0), uint16(gray * 65535.0), uint16(gray * 65535.0), 0xFFFF}
			img.Set(x, y, col)
		}
	}
	return img
}

// ToImg saves the grid as a PNG, with a title written on top
func (fg *FloatGrid)ToImg(title, filename string) error {
	dc := gg.NewContextForImage(fg.ToImage())
	dc.SetRGB(1,0,0)
	dc.DrawString(title, 10, 20)
	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("save '%s': %v", filename, err)
	}
	return nil
}

// hdrGrid implements hdr.Image, so the raw float values can be written out losslessly-ish
type hdrGrid struct{ *FloatGrid }

func (g hdrGrid)ColorModel() color.Model       { return hdrcolor.RGBModel }
func (g hdrGrid)Bounds() image.Rectangle       { return g.FloatGrid.Bounds() }
func (g hdrGrid)At(x, y int) color.Color       { return g.HDRAt(x,y) }
func (g hdrGrid)HDRAt(x, y int) hdrcolor.Color {
	v := math.Abs(g.Get(x,y)) // RGBE can't store negatives
	return hdrcolor.RGB{R: v, G: v, B: v}
}
func (g hdrGrid)Size() int                     { return g.Dx() * g.Dy() }

// WriteHDR saves the absolute values of the grid in Radiance RGBE format.
func (fg *FloatGrid)WriteHDR(filename string) error {
	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	}
	defer writer.Close()

	if err := rgbe.Encode(writer, hdrGrid{fg}); err != nil {
		return fmt.Errorf("rgbe encode '%s': %v", filename, err)
	}
	return nil
}
