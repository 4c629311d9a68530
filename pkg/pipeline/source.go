package pipeline

import (
	"fmt"
	"math/rand"

	"github.com/justyntemme/framego/pkg/frame"
	"github.com/justyntemme/framego/pkg/host"
)

// Synthetic source patterns
const (
	PatternGradient = "gradient"
	PatternChecker  = "checker"
	PatternNoise    = "noise"
	PatternSolid    = "solid"
)

// checkerSize is the edge length of one checker square in pixels
const checkerSize = 8

func validPattern(name string) bool {
	switch name {
	case PatternGradient, PatternChecker, PatternNoise, PatternSolid:
		return true
	}
	return false
}

// Source produces a fixed number of synthetic frame sets, one frame per
// configured stream. Frames are deterministic in the sequence number, so two
// sources with the same config produce the same bytes.
type Source struct {
	descs    []frame.Descriptor
	patterns []string
	frames   int
	next     int
}

// NewSource creates a source from its config
func NewSource(cfg SourceConfig) (*Source, error) {
	if len(cfg.Streams) == 0 {
		return nil, fmt.Errorf("%w: source has no streams", ErrInvalidConfig)
	}

	s := &Source{frames: cfg.Frames}
	for i, stream := range cfg.Streams {
		d, err := stream.Descriptor()
		if err != nil {
			return nil, fmt.Errorf("%w: stream %d: %w", ErrInvalidConfig, i, err)
		}
		if !validPattern(stream.Pattern) {
			return nil, fmt.Errorf("%w: stream %d: unknown pattern %q", ErrInvalidConfig, i, stream.Pattern)
		}
		s.descs = append(s.descs, d)
		s.patterns = append(s.patterns, stream.Pattern)
	}
	return s, nil
}

// Descriptors returns the shape of each stream
func (s *Source) Descriptors() []frame.Descriptor {
	return s.descs
}

// Remaining returns the number of frame sets left
func (s *Source) Remaining() int {
	return s.frames - s.next
}

// Next returns the next frame set, or false at end of stream
func (s *Source) Next() ([]host.Frame, bool) {
	if s.next >= s.frames {
		return nil, false
	}
	seq := s.next
	s.next++

	set := make([]host.Frame, len(s.descs))
	for i, d := range s.descs {
		f := host.NewFrame(d)
		fill(f, s.patterns[i], seq, i)
		set[i] = f
	}
	return set, true
}

func fill(f host.Frame, pattern string, seq, stream int) {
	d := f.Descriptor
	bpp := d.Format.BytesPerPixel()
	stride := d.Stride()

	switch pattern {
	case PatternNoise:
		rng := rand.New(rand.NewSource(int64(seq)<<8 | int64(stream)))
		rng.Read(f.Pix)
	case PatternSolid:
		v := byte(seq * 8)
		for i := range f.Pix {
			f.Pix[i] = v
		}
	case PatternChecker:
		for y := 0; y < d.Height; y++ {
			row := f.Pix[y*stride : (y+1)*stride]
			for x := 0; x < d.Width; x++ {
				var v byte
				if (x/checkerSize+y/checkerSize+seq)%2 == 0 {
					v = 255
				}
				for c := 0; c < bpp; c++ {
					row[x*bpp+c] = v
				}
			}
		}
	default:
		for y := 0; y < d.Height; y++ {
			row := f.Pix[y*stride : (y+1)*stride]
			for x := 0; x < d.Width; x++ {
				for c := 0; c < bpp; c++ {
					row[x*bpp+c] = byte(x*4 + y*2 + c*32 + seq)
				}
			}
		}
	}
}
