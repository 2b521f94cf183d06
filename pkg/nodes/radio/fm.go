// Package radio provides signal processing node kinds.
package radio

import (
	"fmt"
	"math"

	"github.com/aretw0/flow/pkg/catalog"
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/runtime"
	"github.com/aretw0/flow/pkg/schema"
)

const KindFMDemodulation = "Radio/Demodulation/FM"

// Register adds the radio kinds to c.
func Register(c *catalog.Catalog) {
	c.Register(KindFMDemodulation, "Quadrature FM demodulator over interleaved I/Q samples.", catalog.Decoded[FMDemodulation]())
}

// FMDemodulation turns a block of interleaved I/Q samples into instantaneous
// frequency values scaled by sample rate / (2π · deviation).
//
// The last sample of each block is kept per scope so that consecutive blocks
// demodulate without a discontinuity. Before the first block the previous
// sample is unknown (NaN) and the first sample of the block stands in for it.
type FMDemodulation struct {
	InDeviation  domain.PortRef `mapstructure:"in_deviation"`
	InSampleRate domain.PortRef `mapstructure:"in_sample_rate"`
	In           domain.PortRef `mapstructure:"in"`
	Out          domain.PortRef `mapstructure:"out"`
}

type fmState struct {
	prevRe, prevIm float64
}

func (n *FMDemodulation) Kind() string { return KindFMDemodulation }

func (n *FMDemodulation) Ports() []domain.Port {
	return []domain.Port{
		domain.DataIn("Deviation", "in_deviation", schema.Int(), n.InDeviation),
		domain.DataIn("Sample Rate", "in_sample_rate", schema.Int(), n.InSampleRate),
		domain.DataIn("", "in", schema.Arr(), n.In),
		domain.DataOut("", "out", schema.Arr(), n.Out),
	}
}

func (n *FMDemodulation) Requirements() []runtime.Requirement {
	return []runtime.Requirement{runtime.Requires(n.Out, n.InDeviation, n.InSampleRate, n.In)}
}

func (n *FMDemodulation) Initialize(s *runtime.Scope) error {
	st := runtime.State(s, n, func() *fmState {
		return &fmState{prevRe: math.NaN(), prevIm: math.NaN()}
	})
	deviation, err := s.Input(n.InDeviation)
	if err != nil {
		return err
	}
	rate, err := s.Input(n.InSampleRate)
	if err != nil {
		return err
	}
	in, err := s.Input(n.In)
	if err != nil {
		return err
	}
	return s.Provide(n.Out, func() (any, error) {
		raw, err := in.Get()
		if err != nil {
			return nil, err
		}
		samples, err := domain.ToFloats(raw)
		if err != nil {
			return nil, err
		}
		dv, err := deviation.Get()
		if err != nil {
			return nil, err
		}
		dev, err := domain.ToInt(dv)
		if err != nil {
			return nil, err
		}
		rv, err := rate.Get()
		if err != nil {
			return nil, err
		}
		sampleRate, err := domain.ToInt(rv)
		if err != nil {
			return nil, err
		}
		if dev == 0 {
			return nil, domain.InvalidExpression(fmt.Sprintf("%d / (2π · 0)", sampleRate))
		}
		return demodulate(st, samples, float64(sampleRate)/(2*math.Pi*float64(dev))), nil
	})
}

func (n *FMDemodulation) Shutdown(s *runtime.Scope) error {
	s.DropState(n)
	return nil
}

func demodulate(st *fmState, iq []float64, gain float64) []float64 {
	size := len(iq) / 2
	out := make([]float64, size)
	if size == 0 {
		return out
	}
	if math.IsNaN(st.prevRe) || math.IsNaN(st.prevIm) {
		st.prevRe, st.prevIm = iq[0], iq[1]
	}
	prevRe, prevIm := st.prevRe, st.prevIm
	for i := 0; i < size; i++ {
		inRe, inIm := iq[2*i], iq[2*i+1]
		re := inRe*prevRe + inIm*prevIm
		im := inIm*prevRe - inRe*prevIm
		out[i] = math.Atan2(im, re) * gain
		prevRe, prevIm = inRe, inIm
	}
	st.prevRe, st.prevIm = prevRe, prevIm
	return out
}
