package filter

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/message"
)

type stage struct {
	info message.FilterInfo
	f    Filter
	err  error // why f is nil
}

// Pipeline runs the stages of one filter pipeline message. A nil
// Pipeline has no stages.
type Pipeline struct {
	stages []stage
}

// NewPipeline builds the stages of fp. A required stage that cannot run
// is an error; an optional one is kept so chunks that skipped it still
// decode.
func NewPipeline(fp *message.FilterPipeline) (*Pipeline, error) {
	p := &Pipeline{}
	if fp == nil {
		return p, nil
	}
	for i, info := range fp.Filters {
		f, err := New(info)
		if err != nil && !info.IsOptional() {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		p.stages = append(p.stages, stage{info: info, f: f, err: err})
	}
	return p, nil
}

func (p *Pipeline) Empty() bool { return p.Len() == 0 }

func (p *Pipeline) Len() int {
	if p == nil {
		return 0
	}
	return len(p.stages)
}

func skipped(mask uint32, i int) bool {
	return i < 32 && mask&(1<<i) != 0
}

// Decode undoes the stages not masked out, last stage first.
func (p *Pipeline) Decode(in []byte, mask uint32) ([]byte, error) {
	data := in
	for i := p.Len() - 1; i >= 0; i-- {
		if skipped(mask, i) {
			continue
		}
		s := p.stages[i]
		if s.f == nil {
			return nil, fmt.Errorf("stage %d: %w", i, s.err)
		}
		out, err := s.f.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s decode: %w", Name(s.info), err)
		}
		data = out
	}
	return data, nil
}

// Encode applies the stages in order. Optional stages that are
// unavailable or fail are left out, and their bits are set in the
// returned mask.
func (p *Pipeline) Encode(in []byte) ([]byte, uint32, error) {
	data := in
	var mask uint32
	for i := range p.Len() {
		s := p.stages[i]
		if s.f == nil {
			mask |= 1 << i
			continue
		}
		out, err := s.f.Encode(data)
		if err != nil {
			if s.info.IsOptional() && i < 32 {
				mask |= 1 << i
				continue
			}
			return nil, 0, fmt.Errorf("%s encode: %w", Name(s.info), err)
		}
		data = out
	}
	return data, mask, nil
}
