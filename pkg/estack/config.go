package estack

import(
	"fmt"
	"image"
	"io/ioutil"
	"log"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/imagealign/pkg/align"
	"github.com/abworrall/imagealign/pkg/ecolor"
	"github.com/abworrall/imagealign/pkg/warp"
)

/* Example config file ...

align:
  verbosity: 1
  warp: translation
  maxiterations: 50
  epsilon: 0.01
  workers: 4
luminance: rec601
orderby: exif
template:
  min:
    x: 500
    y: 500
  max:
    x: 540
    y: 540
updatetemplate: true
lostthreshold: 40
initial:
  5663.tif: [ 505,  500]
  5664.tif: [ 507,  503]

*/

type Config struct {
	Align           align.Config

	Luminance       string            // see ecolor.ParseLuminance
	OrderBy         string            // exif (DateTimeOriginal, then filename) or name
	Template        image.Rectangle   // The region of the first frame we track
	UpdateTemplate  bool              // re-cut the template from each frame as we go (optical flow style)
	LostThreshold   float64           // frames whose mean abs error is above this are lost; <=0 to disable
	OutputDir       string

	// Maps filenames to warp parameters, to use instead of the previous frame's estimate
	Initial         map[string][]float64
}

func NewConfig() Config {
	return Config{
		Align:          align.NewConfig(),
		Luminance:      "rec601",
		OrderBy:        "exif",
		UpdateTemplate: true,
		LostThreshold:  50,
		OutputDir:      ".",
		Initial:        map[string][]float64{},
	}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	return c, c.FinalizeConfig()
}

func LoadConfig(filename string) (Config, error) {
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return NewConfig(), fmt.Errorf("read '%s': %v", filename, err)
	}
	c, err := newConfigFromYaml(contents)
	if err != nil {
		return c, fmt.Errorf("parse '%s': %v", filename, err)
	}
	return c, nil
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

// FinalizeConfig does sanity checks and other post-processing
func (c *Config)FinalizeConfig() error {
	if err := c.Align.FinalizeConfig(); err != nil {
		return err
	}
	if _, err := ecolor.ParseLuminance(c.Luminance); err != nil {
		return err
	}

	switch c.OrderBy {
	case "": c.OrderBy = "exif"
	case "exif", "name":
	default:
		return fmt.Errorf("no OrderBy named '%s'", c.OrderBy)
	}

	if c.Initial == nil { c.Initial = map[string][]float64{} }
	kind, _ := c.Align.WarpKind()
	for name, p := range c.Initial {
		if len(p) != kind.NParameters() {
			return fmt.Errorf("initial warp for '%s' has %d params, %s warps need %d", name, len(p), kind, kind.NParameters())
		}
	}

	return nil
}

func (c Config)GetLuminance() ecolor.Luminance {
	l, _ := ecolor.ParseLuminance(c.Luminance)
	return l
}

// InitialWarp returns the per-file override from the config, if there is one
func (c Config)InitialWarp(filename string) (warp.Warp, bool) {
	p, exists := c.Initial[filename]
	if !exists {
		return nil, false
	}
	kind, _ := c.Align.WarpKind()
	return warp.NewWithParameters(kind, p), true
}

// ParseFloats reads a comma separated list, e.g. "20.5,-3,0.1"
func ParseFloats(s string) ([]float64, error) {
	vals := []float64{}
	for _, str := range strings.Split(s, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return nil, fmt.Errorf("bad number '%s' in '%s'", str, s)
		}
		vals = append(vals, f)
	}
	return vals, nil
}

// ParseRect reads "x,y,w,h"
func ParseRect(s string) (image.Rectangle, error) {
	vals, err := ParseFloats(s)
	if err != nil {
		return image.Rectangle{}, err
	} else if len(vals) != 4 || vals[2] <= 0 || vals[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("rect '%s' should be x,y,w,h", s)
	}
	x, y, w, h := int(vals[0]), int(vals[1]), int(vals[2]), int(vals[3])
	return image.Rect(x, y, x+w, y+h), nil
}
