package estack

import(
	"fmt"
	"sort"
)

// A Sequence of frames to track a template across. The frames are
// kept in the order given by Config.OrderBy.
type Sequence struct {
	Frames           []Frame
	Config
}

func NewSequence() Sequence {
	return Sequence{
		Frames: []Frame{},
		Config: NewConfig(),
	}
}

func (s Sequence)String() string {
	str := "Sequence[\n"
	for _, f := range s.Frames {
		str += fmt.Sprintf("  %s\n", f)
	}
	str += "]\n"
	return str
}

func (s *Sequence)Add(f Frame) {
	s.Frames = append(s.Frames, f)
	s.Sort()
}

// Sort orders by EXIF time if every frame has one, else by filename
func (s *Sequence)Sort() {
	byTime := s.Config.OrderBy != "name"
	for _, f := range s.Frames {
		if f.Taken.IsZero() { byTime = false }
	}

	sort.SliceStable(s.Frames, func(i, j int) bool {
		fi, fj := s.Frames[i], s.Frames[j]
		if byTime && !fi.Taken.Equal(fj.Taken) {
			return fi.Taken.Before(fj.Taken)
		}
		return fi.LoadFilename < fj.LoadFilename
	})
}
