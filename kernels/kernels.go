// Package kernels catalogs the built-in operations so callers can look
// them up by designation without importing every kernel package.
package kernels

import (
	"github.com/lumoscope/liquid/discover"
	"github.com/lumoscope/liquid/engine"
	"github.com/lumoscope/liquid/imgstack"
	"github.com/lumoscope/liquid/kernels/interp"
	"github.com/lumoscope/liquid/kernels/nlm"
	"github.com/lumoscope/liquid/kernels/radiality"
	"github.com/lumoscope/liquid/kernels/rgc"
	"github.com/lumoscope/liquid/kernels/temporal"
)

// Params collects every tunable across the built-in kernels. Each
// kernel reads only the fields it understands.
type Params struct {
	Magnification      int
	Radius             float64
	Sensitivity        float64
	IntensityWeighting bool

	PatchSize     int
	PatchDistance int
	H             float64

	ShiftY, ShiftX float64
	MagY, MagX     float64

	Projection string
}

// DefaultParams mirrors the eSRRF defaults for the reconstruction
// kernels and conservative values for the rest.
func DefaultParams() Params {
	return Params{
		Magnification:      5,
		Radius:             1.5,
		Sensitivity:        1,
		IntensityWeighting: true,
		PatchSize:          7,
		PatchDistance:      5,
		H:                  0.1,
		MagY:               5,
		MagX:               5,
		Projection:         string(temporal.Average),
	}
}

// Info describes one registered operation.
type Info struct {
	Designation string
	New         func(enum *discover.Enumerator, opts ...engine.Option) (*engine.Operation, error)
	Args        func(in *imgstack.Stack, p Params) engine.Args
}

// Catalog returns the built-in operations in display order.
func Catalog() []Info {
	return []Info{
		{
			Designation: interp.Designation,
			New:         interp.New,
			Args: func(in *imgstack.Stack, p Params) engine.Args {
				return interp.Args{Input: in, ShiftY: p.ShiftY, ShiftX: p.ShiftX, MagY: p.MagY, MagX: p.MagX}
			},
		},
		{
			Designation: radiality.Designation,
			New:         radiality.New,
			Args: func(in *imgstack.Stack, p Params) engine.Args {
				return radiality.Args{Input: in, Magnification: p.Magnification, RingRadius: p.Radius}
			},
		},
		{
			Designation: rgc.Designation,
			New:         rgc.New,
			Args: func(in *imgstack.Stack, p Params) engine.Args {
				return rgc.Args{
					Input:                in,
					Magnification:        p.Magnification,
					Radius:               p.Radius,
					Sensitivity:          p.Sensitivity,
					DoIntensityWeighting: p.IntensityWeighting,
				}
			},
		},
		{
			Designation: nlm.Designation,
			New:         nlm.New,
			Args: func(in *imgstack.Stack, p Params) engine.Args {
				return nlm.Args{Input: in, PatchSize: p.PatchSize, PatchDistance: p.PatchDistance, H: p.H}
			},
		},
		{
			Designation: temporal.Designation,
			New:         temporal.New,
			Args: func(in *imgstack.Stack, p Params) engine.Args {
				return temporal.Args{Input: in, Projection: temporal.Projection(p.Projection)}
			},
		},
	}
}

// Lookup finds an operation by designation.
func Lookup(designation string) (Info, bool) {
	for _, info := range Catalog() {
		if info.Designation == designation {
			return info, true
		}
	}
	return Info{}, false
}
