package newroutes

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/floats"
)

type constantControls struct {
	vx, vy float64
}

func (c constantControls) Velocity(plane int, t float64) (float64, float64) {
	return c.vx, c.vy
}

func shortScenario(t *testing.T) *Scenario {
	conf := DefaultScenarioConfig()
	conf.MaxTime = 100
	conf.Segments = 4
	conf.SimStep = 0.5
	s, err := NewScenario(conf, nil)
	if err != nil {
		t.Fatalf("err %s", err)
	}
	return s
}

func TestSimulationConstantVelocity(t *testing.T) {
	s := shortScenario(t)
	sim := NewSimulation(s, constantControls{3, -4}, 100, ExportConfig{}, nil)
	if err := sim.Run(); err != nil {
		t.Fatalf("err %s", err)
	}
	if !floats.EqualWithinAbs(sim.CurrentT, 100, 1e-9) {
		t.Fatalf("simulation stopped at %f", sim.CurrentT)
	}
	xs, ys := sim.Positions()
	for i, r := range s.Routes {
		if !floats.EqualWithinAbs(xs[i], r.StartX+300, 1e-6) || !floats.EqualWithinAbs(ys[i], r.StartY-400, 1e-6) {
			t.Fatalf("plane %d ended at (%f, %f)", i, xs[i], ys[i])
		}
	}
}

func TestSimulationGuess(t *testing.T) {
	s := shortScenario(t)
	g, err := s.InitialGuess()
	if err != nil {
		t.Fatalf("err %s", err)
	}
	ctrl, err := NewNodeControls(s.Grid.Times(g.TInitial, g.TDuration), g.Controls)
	if err != nil {
		t.Fatalf("err %s", err)
	}
	dir := t.TempDir()
	conf := ExportConfig{Filename: "guess", OutputDir: dir, AsCSV: true}
	sim := NewSimulation(s, ctrl, g.TDuration, conf, nil)
	if err = sim.Run(); err != nil {
		t.Fatalf("err %s", err)
	}
	xs, _ := sim.Positions()
	for i, r := range s.Routes {
		exp := r.StartX + g.Controls[PlaneName(i)+"vx"][0]*g.TDuration
		if !floats.EqualWithinAbs(xs[i], exp, 1e-6) {
			t.Fatalf("plane %d ended at x=%f, expected %f", i, xs[i], exp)
		}
	}

	f, err := os.Open(filepath.Join(dir, "states-guess.csv"))
	if err != nil {
		t.Fatalf("err %s", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("err %s", err)
	}
	// Header, then every plane at t=0 and after each of the 200 steps.
	if exp := 1 + NumTrajectories*(1+200); len(records) != exp {
		t.Fatalf("%d records, expected %d", len(records), exp)
	}
	if records[0][0] != "time" || records[1][1] != "p0" || records[2][1] != "p1" {
		t.Fatalf("unexpected records %v", records[:3])
	}
}

func TestNodeControlsErrors(t *testing.T) {
	times := []float64{0, 1, 2}
	ok := map[string][]float64{"p0vx": {1, 2, 3}, "p0vy": {1, 2, 3}, "p1vx": {1, 2, 3}, "p1vy": {1, 2, 3}}
	nc, err := NewNodeControls(times, ok)
	if err != nil {
		t.Fatalf("err %s", err)
	}
	if vx, vy := nc.Velocity(1, 1.5); vx != 2.5 || vy != 2.5 {
		t.Fatalf("interpolated velocity (%f, %f)", vx, vy)
	}
	delete(ok, "p1vy")
	if _, err = NewNodeControls(times, ok); err == nil {
		t.Fatal("a missing control should fail")
	}
	ok["p1vy"] = []float64{1, 2}
	if _, err = NewNodeControls(times, ok); err == nil {
		t.Fatal("a short control should fail")
	}
}
