package align

import(
	"fmt"
	"math"

	"github.com/codahale/hdrhistogram"

	"github.com/abworrall/imagealign/pkg/emath"
)

// Errors are recorded in the histogram as integer multiples of this
const statsResolution = 1e-3

// Stats describe the distribution of absolute per-pixel errors
type Stats struct {
	N      int64
	Mean   float64
	Median float64
	P95    float64
	Max    float64
}

func (s Stats)String() string {
	return fmt.Sprintf("err[n=%d, mean:%.3f, median:%.3f, p95:%.3f, max:%.3f]", s.N, s.Mean, s.Median, s.P95, s.Max)
}

// ErrorStats summarizes |v| over the grid. Values bigger than the
// histogram can hold are counted at its ceiling.
func ErrorStats(g *emath.FloatGrid) Stats {
	const maxVal = int64(1e12)
	h := hdrhistogram.New(1, maxVal, 3)

	for _, v := range g.Values() {
		f := math.Abs(v) / statsResolution
		if math.IsNaN(f) { continue }

		n := maxVal
		if f < float64(maxVal) { n = int64(math.Round(f)) }
		h.RecordValue(n)
	}

	return Stats{
		N:      h.TotalCount(),
		Mean:   h.Mean() * statsResolution,
		Median: float64(h.ValueAtQuantile(50)) * statsResolution,
		P95:    float64(h.ValueAtQuantile(95)) * statsResolution,
		Max:    float64(h.Max()) * statsResolution,
	}
}
