package newroutes

import (
	"fmt"
	"math"
	"math/rand/v2"

	kitlog "github.com/go-kit/kit/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat/distuv"
)

// Schedule is the scheduled departure and arrival of a plane.
type Schedule struct {
	Departure, Arrival float64 // s
}

// Route is where a plane starts and where it must end, on the scenario circle.
type Route struct {
	StartX, StartY float64
	EndX, EndY     float64
	Schedule       Schedule
}

// BoundaryConstraint fixes a state at the initial or final node of the phase.
type BoundaryConstraint struct {
	State  string
	Loc    string // initial or final
	Equals float64
}

// Control declares a design control of the phase.
type Control struct {
	Name  string
	Units string
	Opt   bool
	ControlOptions
}

// StateDesign declares the scaling of a state of the phase.
type StateDesign struct {
	Name string
	StateScaling
}

// Objective is what the optimizer minimizes.
type Objective struct {
	Name   string
	Loc    string
	Scaler float64
}

// TimeOptions bounds the phase initial time and duration.
type TimeOptions struct {
	InitialBounds  [2]float64
	DurationBounds [2]float64
}

// Scenario is the full definition of the airspace problem, ready to be handed to a transcription.
type Scenario struct {
	Config      ScenarioConfig
	Grid        *Grid
	ODE         *AirspaceODE
	Routes      []Route
	States      []StateDesign
	Constraints []BoundaryConstraint
	Controls    []Control
	Objective   Objective
	Time        TimeOptions
	logger      kitlog.Logger
}

// NewScenario draws random routes and schedules from the configured seed, and declares the problem.
func NewScenario(conf ScenarioConfig, logger kitlog.Logger) (*Scenario, error) {
	grid, err := NewGrid(conf.Segments, conf.Order, conf.Compressed)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	s := &Scenario{
		Config:    conf,
		Grid:      grid,
		ODE:       NewAirspaceODE(grid.NumNodes()),
		Objective: Objective{"time", "final", 1},
		Time:      TimeOptions{[2]float64{0, 0}, [2]float64{1, conf.MaxTime}},
		logger:    kitlog.With(logger, "subsys", "scenario"),
	}

	src := rand.NewPCG(conf.Seed, conf.Seed)
	rng := rand.New(src)
	uniform := func(lo, hi float64) float64 {
		return distuv.Uniform{Min: lo, Max: hi, Src: src}.Rand()
	}

	// Equally spaced angles from a random origin, shuffled, two per plane.
	start := uniform(0, 2*math.Pi)
	thetas := floats.Span(make([]float64, 2*NumTrajectories+1), start, start+2*math.Pi)[:2*NumTrajectories]
	rng.Shuffle(len(thetas), func(i, j int) { thetas[i], thetas[j] = thetas[j], thetas[i] })

	for i := 0; i < NumTrajectories; i++ {
		sched := Schedule{uniform(1, conf.MaxTime/4), uniform(1.2*conf.MaxTime/2, conf.MaxTime)}
		sinθ0, cosθ0 := math.Sincos(thetas[2*i])
		sinθ1, cosθ1 := math.Sincos(thetas[2*i+1])
		route := Route{
			StartX:   conf.CenterX + conf.Radius*cosθ0,
			StartY:   conf.CenterY + conf.Radius*sinθ0,
			EndX:     conf.CenterX + conf.Radius*cosθ1,
			EndY:     conf.CenterY + conf.Radius*sinθ1,
			Schedule: sched,
		}
		s.Routes = append(s.Routes, route)
		s.logger.Log("level", "info", "plane", PlaneName(i), "departure(s)", sched.Departure, "arrival(s)", sched.Arrival)

		p := PlaneName(i)
		s.States = append(s.States, StateDesign{p + "x", conf.State}, StateDesign{p + "y", conf.State})
		s.Constraints = append(s.Constraints,
			BoundaryConstraint{p + "x", "initial", route.StartX},
			BoundaryConstraint{p + "y", "initial", route.StartY},
			BoundaryConstraint{p + "x", "final", route.EndX},
			BoundaryConstraint{p + "y", "final", route.EndY})
		s.Controls = append(s.Controls,
			Control{p + "vx", "m/s", true, conf.Control},
			Control{p + "vy", "m/s", true, conf.Control})
	}
	return s, nil
}

// Guess is an initial guess of the phase.
type Guess struct {
	TInitial, TDuration float64
	States              map[string][]float64 // at the state input nodes
	Controls            map[string][]float64 // at all nodes
}

// linear returns a linear interpolation of the values ys at times ts, evaluated at each of times.
func linear(ts, ys, times []float64) ([]float64, error) {
	var pl interp.PiecewiseLinear
	if err := pl.Fit(ts, ys); err != nil {
		return nil, err
	}
	vals := make([]float64, len(times))
	for i, t := range times {
		vals[i] = pl.Predict(t)
	}
	return vals, nil
}

// InitialGuess interpolates each plane's states from its start to its end over the maximum duration.
// The controls are the constant velocity of that straight line, within the control bounds.
func (s *Scenario) InitialGuess() (Guess, error) {
	g := Guess{0, s.Config.MaxTime, make(map[string][]float64), make(map[string][]float64)}
	stateTimes := s.Grid.StateInputTimes(g.TInitial, g.TDuration)
	ends := []float64{g.TInitial, g.TInitial + g.TDuration}
	nn := s.Grid.NumNodes()
	for i, r := range s.Routes {
		p := PlaneName(i)
		xs, err := linear(ends, []float64{r.StartX, r.EndX}, stateTimes)
		if err != nil {
			return g, fmt.Errorf("%sx guess: %w", p, err)
		}
		ys, err := linear(ends, []float64{r.StartY, r.EndY}, stateTimes)
		if err != nil {
			return g, fmt.Errorf("%sy guess: %w", p, err)
		}
		g.States[p+"x"] = xs
		g.States[p+"y"] = ys
		vx := make([]float64, nn)
		vy := make([]float64, nn)
		floats.AddConst(s.Config.Control.Clamp((r.EndX-r.StartX)/g.TDuration), vx)
		floats.AddConst(s.Config.Control.Clamp((r.EndY-r.StartY)/g.TDuration), vy)
		g.Controls[p+"vx"] = vx
		g.Controls[p+"vy"] = vy
	}
	return g, nil
}

// PlaneInputs returns the inputs of each plane at all nodes for the given guess.
func (s *Scenario) PlaneInputs(g Guess) ([]PlaneInputs, error) {
	times := s.Grid.Times(g.TInitial, g.TDuration)
	stateTimes := s.Grid.StateInputTimes(g.TInitial, g.TDuration)
	ins := make([]PlaneInputs, len(s.Routes))
	for i, r := range s.Routes {
		p := PlaneName(i)
		// Uncompressed grids repeat segment boundaries, the abscissae must be strictly increasing.
		ts, xs := dedup(stateTimes, g.States[p+"x"])
		_, ys := dedup(stateTimes, g.States[p+"y"])
		x, err := linear(ts, xs, times)
		if err != nil {
			return nil, fmt.Errorf("%sx: %w", p, err)
		}
		y, err := linear(ts, ys, times)
		if err != nil {
			return nil, fmt.Errorf("%sy: %w", p, err)
		}
		ins[i] = PlaneInputs{
			Time:          times,
			X:             x,
			Y:             y,
			Vx:            g.Controls[p+"vx"],
			Vy:            g.Controls[p+"vy"],
			DepartureTime: r.Schedule.Departure,
			DestinationX:  r.EndX,
			DestinationY:  r.EndY,
		}
	}
	return ins, nil
}

// dedup drops the entries of ts, and the matching ys, equal to their predecessor.
func dedup(ts, ys []float64) ([]float64, []float64) {
	outT := make([]float64, 0, len(ts))
	outY := make([]float64, 0, len(ys))
	for i, t := range ts {
		if i > 0 && t == ts[i-1] {
			continue
		}
		outT = append(outT, t)
		outY = append(outY, ys[i])
	}
	return outT, outY
}

// Evaluate runs the airspace ODE on the guess and logs the penalties.
func (s *Scenario) Evaluate(g Guess) ([]PlaneOutputs, error) {
	ins, err := s.PlaneInputs(g)
	if err != nil {
		return nil, err
	}
	outs, err := s.ODE.Compute(ins)
	if err != nil {
		return nil, err
	}
	for i, out := range outs {
		last := out.DistanceToDestination[len(out.DistanceToDestination)-1]
		s.logger.Log("level", "info", "plane", PlaneName(i), "departure_hold", out.DepartureHold, "final_distance(m)", last)
	}
	return outs, nil
}
