package newroutes

import (
	"errors"
	"fmt"
)

// NumTrajectories is the number of planes in the airspace.
const NumTrajectories = 2

// ErrTrajectoryCount is returned when the number of plane inputs is not NumTrajectories.
var ErrTrajectoryCount = errors.New("number of plane inputs does not match the number of trajectories")

// StateOptions declares a state of the ODE and where its rate comes from.
type StateOptions struct {
	Name       string
	RateSource string
	Targets    []string
	Units      string
}

// ParameterOptions declares a parameter (here a control) of the ODE.
type ParameterOptions struct {
	Name    string
	Targets []string
	Units   string
}

// ODEOptions describes how an external transcription connects to the ODE.
type ODEOptions struct {
	TimeUnits   string
	TimeTargets []string
	States      []StateOptions
	Parameters  []ParameterOptions
}

// State returns the options of the named state, and whether it exists.
func (o ODEOptions) State(name string) (StateOptions, bool) {
	for _, s := range o.States {
		if s.Name == name {
			return s, true
		}
	}
	return StateOptions{}, false
}

// AirspaceODE composes NumTrajectories independent planes on the same grid.
type AirspaceODE struct {
	NumNodes int
	Planes   []*PlanePath2D
}

// NewAirspaceODE returns the combined dynamics on nn nodes.
func NewAirspaceODE(nn int) *AirspaceODE {
	planes := make([]*PlanePath2D, NumTrajectories)
	for i := range planes {
		planes[i] = NewPlanePath2D(nn)
	}
	return &AirspaceODE{nn, planes}
}

// PlaneName returns the subsystem name of the i-th plane.
func PlaneName(i int) string {
	return fmt.Sprintf("p%d", i)
}

// Options returns the declarations of time, states and parameters.
func (a *AirspaceODE) Options() ODEOptions {
	opts := ODEOptions{TimeUnits: "s"}
	for i := range a.Planes {
		p := PlaneName(i)
		opts.TimeTargets = append(opts.TimeTargets, p+".time")
		opts.States = append(opts.States,
			StateOptions{p + "x", p + ".x_dot", []string{p + ".x"}, "m"},
			StateOptions{p + "y", p + ".y_dot", []string{p + ".y"}, "m"})
		opts.Parameters = append(opts.Parameters,
			ParameterOptions{p + "vx", []string{p + ".vx"}, "m/s"},
			ParameterOptions{p + "vy", []string{p + ".vy"}, "m/s"})
	}
	return opts
}

func (a *AirspaceODE) checkCount(in []PlaneInputs) error {
	if len(in) != len(a.Planes) {
		return fmt.Errorf("got %d, expected %d: %w", len(in), len(a.Planes), ErrTrajectoryCount)
	}
	return nil
}

// Compute evaluates each plane independently.
func (a *AirspaceODE) Compute(in []PlaneInputs) ([]PlaneOutputs, error) {
	if err := a.checkCount(in); err != nil {
		return nil, err
	}
	outs := make([]PlaneOutputs, len(a.Planes))
	for i, p := range a.Planes {
		out, err := p.Compute(in[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", PlaneName(i), err)
		}
		outs[i] = out
	}
	return outs, nil
}

// ComputePartials returns the partials of each plane.
func (a *AirspaceODE) ComputePartials(in []PlaneInputs) ([]PlanePartials, error) {
	if err := a.checkCount(in); err != nil {
		return nil, err
	}
	parts := make([]PlanePartials, len(a.Planes))
	for i, p := range a.Planes {
		part, err := p.ComputePartials(in[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", PlaneName(i), err)
		}
		parts[i] = part
	}
	return parts, nil
}

// StateRates maps each state name to its rate source output.
func (a *AirspaceODE) StateRates(outs []PlaneOutputs) map[string][]float64 {
	rates := make(map[string][]float64, 2*len(outs))
	for i, out := range outs {
		p := PlaneName(i)
		rates[p+"x"] = out.XDot
		rates[p+"y"] = out.YDot
	}
	return rates
}
