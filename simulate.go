package newroutes

import (
	"fmt"
	"math"
	"sync"

	kitlog "github.com/go-kit/kit/log"
	"github.com/thearn/newroutes/integrator"
	"gonum.org/v1/gonum/interp"
)

/* Handles the simulation of a control schedule, i.e. the explicit propagation of the phase. */

// ControlSchedule returns the velocity controls of a plane at a given time.
type ControlSchedule interface {
	Velocity(plane int, t float64) (vx, vy float64)
}

// NodeControls interpolates the controls given at the grid nodes.
type NodeControls struct {
	vx, vy []interp.PiecewiseLinear
}

// NewNodeControls fits the controls (keyed by control name, e.g. p0vx) given at the node times.
func NewNodeControls(times []float64, controls map[string][]float64) (*NodeControls, error) {
	nc := &NodeControls{make([]interp.PiecewiseLinear, NumTrajectories), make([]interp.PiecewiseLinear, NumTrajectories)}
	for i := 0; i < NumTrajectories; i++ {
		p := PlaneName(i)
		for _, c := range []struct {
			name string
			pl   *interp.PiecewiseLinear
		}{{p + "vx", &nc.vx[i]}, {p + "vy", &nc.vy[i]}} {
			vals, ok := controls[c.name]
			if !ok {
				return nil, fmt.Errorf("missing control `%s`", c.name)
			}
			if len(vals) != len(times) {
				return nil, fmt.Errorf("control `%s` has %d values for %d nodes: %w", c.name, len(vals), len(times), ErrNodeCount)
			}
			ts, vs := dedup(times, vals)
			if err := c.pl.Fit(ts, vs); err != nil {
				return nil, fmt.Errorf("control `%s`: %w", c.name, err)
			}
		}
	}
	return nc, nil
}

// Velocity implements the ControlSchedule interface.
func (nc *NodeControls) Velocity(plane int, t float64) (vx, vy float64) {
	return nc.vx[plane].Predict(t), nc.vy[plane].Predict(t)
}

// SimState is the state of one plane at one time of the simulation.
type SimState struct {
	Time         float64
	Plane        int
	X, Y, Vx, Vy float64
	Distance     float64 // gated distance to destination
	Hold         float64 // departure hold at this time
}

// Simulation propagates the positions of all the planes under a control schedule.
type Simulation struct {
	Scenario   *Scenario
	Controls   ControlSchedule
	StopTime   float64
	CurrentT   float64
	state      []float64 // x, y per plane
	point      *AirspaceODE
	step       float64
	histChan   chan SimState
	exportErr  error
	exportDone sync.WaitGroup
	logger     kitlog.Logger
}

// NewSimulation returns a simulation of the scenario over the given duration.
// If the export configuration is not useless, the states are streamed to it.
func NewSimulation(s *Scenario, ctrl ControlSchedule, duration float64, conf ExportConfig, logger kitlog.Logger) *Simulation {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	sim := &Simulation{
		Scenario: s,
		Controls: ctrl,
		StopTime: duration,
		state:    make([]float64, 2*len(s.Routes)),
		point:    NewAirspaceODE(1),
		step:     s.Config.SimStep,
		logger:   kitlog.With(logger, "subsys", "sim"),
	}
	for i, r := range s.Routes {
		sim.state[2*i] = r.StartX
		sim.state[2*i+1] = r.StartY
	}
	if !conf.IsUseless() {
		sim.histChan = make(chan SimState, 1000) // a 1k entry buffer
		sim.exportDone.Add(1)
		go func() {
			defer sim.exportDone.Done()
			sim.exportErr = StreamStates(conf, sim.histChan)
		}()
	}
	return sim
}

// inputs returns the single node inputs of each plane for the state f at time t.
func (sim *Simulation) inputs(t float64, f []float64) []PlaneInputs {
	ins := make([]PlaneInputs, len(sim.Scenario.Routes))
	for i, r := range sim.Scenario.Routes {
		vx, vy := sim.Controls.Velocity(i, t)
		ins[i] = PlaneInputs{
			Time:          []float64{t},
			X:             []float64{f[2*i]},
			Y:             []float64{f[2*i+1]},
			Vx:            []float64{vx},
			Vy:            []float64{vy},
			DepartureTime: r.Schedule.Departure,
			DestinationX:  r.EndX,
			DestinationY:  r.EndY,
		}
	}
	return ins
}

func (sim *Simulation) record(t float64) {
	if sim.histChan == nil {
		return
	}
	ins := sim.inputs(t, sim.state)
	outs, err := sim.point.Compute(ins)
	if err != nil {
		panic(err) // single node inputs are always consistent
	}
	for i, out := range outs {
		sim.histChan <- SimState{t, i, ins[i].X[0], ins[i].Y[0], ins[i].Vx[0], ins[i].Vy[0], out.DistanceToDestination[0], out.DepartureHold}
	}
}

// Run propagates until the stop time. It blocks until all the states are exported.
func (sim *Simulation) Run() error {
	sim.logger.Log("level", "info", "status", "started", "duration(s)", sim.StopTime, "step(s)", sim.step)
	sim.record(0)
	iters, _, err := integrator.NewRK4(0, sim.step, sim).Solve()
	if sim.histChan != nil {
		close(sim.histChan)
	}
	sim.exportDone.Wait() // Don't return until we're done writing all the files.
	if err != nil {
		return err
	}
	for i, r := range sim.Scenario.Routes {
		miss := math.Hypot(sim.state[2*i]-r.EndX, sim.state[2*i+1]-r.EndY)
		sim.logger.Log("level", "notice", "status", "finished", "plane", PlaneName(i), "steps", iters, "miss(m)", miss)
	}
	return sim.exportErr
}

// Positions returns the current x and y of each plane.
func (sim *Simulation) Positions() (xs, ys []float64) {
	for i := 0; i < len(sim.state)/2; i++ {
		xs = append(xs, sim.state[2*i])
		ys = append(ys, sim.state[2*i+1])
	}
	return
}

// GetState implements the Integrable interface.
func (sim *Simulation) GetState() []float64 {
	s := make([]float64, len(sim.state))
	copy(s, sim.state)
	return s
}

// SetState implements the Integrable interface.
func (sim *Simulation) SetState(t float64, s []float64) {
	sim.CurrentT = t
	copy(sim.state, s)
	sim.record(t)
}

// Stop implements the Integrable interface.
func (sim *Simulation) Stop(t float64) bool {
	return t >= sim.StopTime-sim.step/2
}

// Func implements the Integrable interface: the state rates are the outputs of the airspace ODE.
func (sim *Simulation) Func(t float64, f []float64) (fDot []float64) {
	outs, err := sim.point.Compute(sim.inputs(t, f))
	if err != nil {
		panic(err)
	}
	rates := sim.point.StateRates(outs)
	fDot = make([]float64, len(f))
	for i, st := range sim.point.Options().States {
		fDot[i] = rates[st.Name][0]
		if math.IsNaN(fDot[i]) {
			panic(fmt.Errorf("fDot[%d]=NaN @ t=%f", i, t))
		}
	}
	return
}
