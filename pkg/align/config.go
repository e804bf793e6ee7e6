package align

import(
	"fmt"
	"io/ioutil"
	"log"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/imagealign/pkg/emath"
	"github.com/abworrall/imagealign/pkg/sample"
	"github.com/abworrall/imagealign/pkg/warp"
)

/* Example config file ...

verbosity: 1
warp: euclidean
maxiterations: 100
epsilon: 0.001
maxconditionnumber: 1e12
workers: 4
border: reflect101
sampler: bilinear

*/

type Config struct {
	Verbosity          int

	Warp               string  // which kind of warp to estimate, see warp.ParseKind
	MaxIterations      int     // per call to Run
	Epsilon            float64 // Run stops once |delta| is smaller than this
	MaxConditionNumber float64 // Hessians worse than this are degenerate; <=0 for no limit
	Workers            int     // number of row bands accumulated in parallel

	Border             string  // what the target looks like beyond its edges, see emath.ParseBorder
	Sampler            string  // bilinear or nearest
}

func NewConfig() Config {
	return Config{
		Warp:               "translation",
		MaxIterations:      100,
		Epsilon:            0.001,
		MaxConditionNumber: 1e12,
		Workers:            1,
		Border:             "reflect101",
		Sampler:            "bilinear",
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
		return NewConfig(), fmt.Errorf("config read '%s': %v", filename, err)
	}
	c, err := newConfigFromYaml(contents)
	if err != nil {
		return c, fmt.Errorf("config parse '%s': %v", filename, err)
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

// FinalizeConfig does sanity checks, and fills in zero values
func (c *Config)FinalizeConfig() error {
	if c.Workers < 1       { c.Workers = 1 }
	if c.MaxIterations < 1 { c.MaxIterations = 1 }
	if c.Epsilon < 0 {
		return fmt.Errorf("epsilon %g must not be negative", c.Epsilon)
	}

	if _, err := c.WarpKind(); err != nil {
		return err
	}
	if _, err := c.GetSampler(); err != nil {
		return err
	}
	return nil
}

func (c Config)WarpKind() (warp.Kind, error) {
	if c.Warp == "" {
		return warp.Translation, nil
	}
	return warp.ParseKind(c.Warp)
}

func (c Config)GetSampler() (sample.Sampler, error) {
	s := sample.NewSampler()

	var err error
	if s.Border, err = emath.ParseBorder(c.Border); err != nil {
		return s, err
	}
	if s.Method, err = sample.ParseMethod(c.Sampler); err != nil {
		return s, err
	}
	return s, nil
}
