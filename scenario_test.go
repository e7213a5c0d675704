package newroutes

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestScenarioRoutes(t *testing.T) {
	conf := DefaultScenarioConfig()
	s, err := NewScenario(conf, nil)
	if err != nil {
		t.Fatalf("err %s", err)
	}
	if len(s.Routes) != NumTrajectories {
		t.Fatalf("%d routes", len(s.Routes))
	}
	var angles []float64
	for i, r := range s.Routes {
		for _, pt := range [][2]float64{{r.StartX, r.StartY}, {r.EndX, r.EndY}} {
			if !floats.EqualWithinAbs(math.Hypot(pt[0]-conf.CenterX, pt[1]-conf.CenterY), conf.Radius, 1e-9) {
				t.Fatalf("plane %d: %v is not on the circle", i, pt)
			}
			angles = append(angles, math.Atan2(pt[1], pt[0]))
		}
		if r.Schedule.Departure < 1 || r.Schedule.Departure > conf.MaxTime/4 {
			t.Fatalf("plane %d departs at %f", i, r.Schedule.Departure)
		}
		if r.Schedule.Arrival < 0.6*conf.MaxTime || r.Schedule.Arrival > conf.MaxTime {
			t.Fatalf("plane %d arrives at %f", i, r.Schedule.Arrival)
		}
	}
	// All four points are a quarter turn apart from their neighbors.
	for i := range angles {
		for j := i + 1; j < len(angles); j++ {
			Δ := math.Mod(math.Abs(angles[i]-angles[j]), math.Pi/2)
			if !floats.EqualWithinAbs(Δ, 0, 1e-9) && !floats.EqualWithinAbs(Δ, math.Pi/2, 1e-9) {
				t.Fatalf("points %d and %d are %f rad apart", i, j, math.Abs(angles[i]-angles[j]))
			}
			if floats.EqualWithinAbs(angles[i], angles[j], 1e-9) {
				t.Fatalf("points %d and %d are the same", i, j)
			}
		}
	}
	if len(s.Constraints) != 4*NumTrajectories || len(s.Controls) != 2*NumTrajectories || len(s.States) != 2*NumTrajectories {
		t.Fatal("invalid problem declaration")
	}
	if s.Constraints[2].State != "p0x" || s.Constraints[2].Loc != "final" || s.Constraints[2].Equals != s.Routes[0].EndX {
		t.Fatalf("invalid final constraint %+v", s.Constraints[2])
	}
	if s.Objective.Name != "time" || s.Objective.Loc != "final" {
		t.Fatalf("invalid objective %+v", s.Objective)
	}
	if s.Time.DurationBounds != [2]float64{1, conf.MaxTime} {
		t.Fatalf("invalid duration bounds %v", s.Time.DurationBounds)
	}
	if s.ODE.NumNodes != s.Grid.NumNodes() {
		t.Fatal("the ODE and the grid disagree on the number of nodes")
	}
}

func TestScenarioSeed(t *testing.T) {
	conf := DefaultScenarioConfig()
	s1, _ := NewScenario(conf, nil)
	s2, _ := NewScenario(conf, nil)
	for i := range s1.Routes {
		if s1.Routes[i] != s2.Routes[i] {
			t.Fatal("the same seed should generate the same scenario")
		}
	}
	conf.Seed = 3
	s3, _ := NewScenario(conf, nil)
	if s3.Routes[0] == s1.Routes[0] {
		t.Fatal("a different seed should generate a different scenario")
	}
}

func TestScenarioInitialGuess(t *testing.T) {
	s, err := NewScenario(DefaultScenarioConfig(), nil)
	if err != nil {
		t.Fatalf("err %s", err)
	}
	g, err := s.InitialGuess()
	if err != nil {
		t.Fatalf("err %s", err)
	}
	nState := len(s.Grid.StateInputIndices())
	for i, r := range s.Routes {
		p := PlaneName(i)
		xs := g.States[p+"x"]
		if len(xs) != nState {
			t.Fatalf("%d state values for %d nodes", len(xs), nState)
		}
		if !floats.EqualWithinAbs(xs[0], r.StartX, 1e-9) || !floats.EqualWithinAbs(xs[nState-1], r.EndX, 1e-9) {
			t.Fatalf("%sx guess goes from %f to %f", p, xs[0], xs[nState-1])
		}
		ys := g.States[p+"y"]
		mid := (ys[0] + ys[nState-1]) / 2
		if !floats.EqualWithinAbs(ys[nState/2], mid, 1e-9) {
			t.Fatalf("%sy guess is not linear", p)
		}
		for _, v := range append(g.Controls[p+"vx"], g.Controls[p+"vy"]...) {
			if v < s.Config.Control.Lower || v > s.Config.Control.Upper {
				t.Fatalf("control %f out of bounds", v)
			}
		}
	}

	outs, err := s.Evaluate(g)
	if err != nil {
		t.Fatalf("err %s", err)
	}
	for i, out := range outs {
		if out.DepartureHold <= 0 {
			t.Fatalf("plane %d moves before departure, the hold should be positive", i)
		}
		// The guess ends on the destination.
		last := out.DistanceToDestination[len(out.DistanceToDestination)-1]
		if !floats.EqualWithinAbs(last, 0, 1e-6) {
			t.Fatalf("plane %d ends %f m from its destination", i, last)
		}
	}
}

func TestScenarioUncompressed(t *testing.T) {
	conf := DefaultScenarioConfig()
	conf.Compressed = false
	s, err := NewScenario(conf, nil)
	if err != nil {
		t.Fatalf("err %s", err)
	}
	g, err := s.InitialGuess()
	if err != nil {
		t.Fatalf("err %s", err)
	}
	ins, err := s.PlaneInputs(g)
	if err != nil {
		t.Fatalf("err %s", err)
	}
	if len(ins[0].X) != s.Grid.NumNodes() {
		t.Fatalf("%d node values", len(ins[0].X))
	}
}
