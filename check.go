package newroutes

import (
	"fmt"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultFDStep is the finite difference step used by CheckPartials when none is given.
	DefaultFDStep = 1e-6
	undeclaredTol = 1e-8
)

var (
	planeInputNames  = []string{"time", "x", "y", "vx", "vy", "departure_time", "destination_x", "destination_y"}
	planeOutputNames = []string{"x_dot", "y_dot", "distance_to_destination", "departure_hold"}
)

// inputSize returns the size of the named input.
func (p *PlanePath2D) inputSize(name string) int {
	switch name {
	case "departure_time", "destination_x", "destination_y":
		return 1
	}
	return p.NumNodes
}

// outputSize returns the size of the named output.
func (p *PlanePath2D) outputSize(name string) int {
	if name == "departure_hold" {
		return 1
	}
	return p.NumNodes
}

func offsetOf(names []string, size func(string) int, name string) int {
	off := 0
	for _, n := range names {
		if n == name {
			return off
		}
		off += size(n)
	}
	panic(fmt.Errorf("unknown variable `%s`", name))
}

// Dims returns the number of flattened outputs and inputs.
func (p *PlanePath2D) Dims() (m, n int) {
	return 3*p.NumNodes + 1, 5*p.NumNodes + 3
}

// Flatten returns the inputs as a single vector, in the order used by Jacobian.
func (p *PlanePath2D) Flatten(in PlaneInputs) []float64 {
	x := make([]float64, 0, 5*p.NumNodes+3)
	for _, v := range [][]float64{in.Time, in.X, in.Y, in.Vx, in.Vy} {
		x = append(x, v...)
	}
	return append(x, in.DepartureTime, in.DestinationX, in.DestinationY)
}

// Unflatten is the inverse of Flatten.
func (p *PlanePath2D) Unflatten(x []float64) PlaneInputs {
	nn := p.NumNodes
	return PlaneInputs{
		Time:          x[0:nn],
		X:             x[nn : 2*nn],
		Y:             x[2*nn : 3*nn],
		Vx:            x[3*nn : 4*nn],
		Vy:            x[4*nn : 5*nn],
		DepartureTime: x[5*nn],
		DestinationX:  x[5*nn+1],
		DestinationY:  x[5*nn+2],
	}
}

func (p *PlanePath2D) flattenOutputs(dst []float64, out PlaneOutputs) {
	nn := p.NumNodes
	copy(dst[0:nn], out.XDot)
	copy(dst[nn:2*nn], out.YDot)
	copy(dst[2*nn:3*nn], out.DistanceToDestination)
	dst[3*nn] = out.DepartureHold
}

// Jacobian assembles the dense Jacobian of the flattened outputs with respect to the flattened inputs.
// Only the declared partials are filled.
func (p *PlanePath2D) Jacobian(part PlanePartials) *mat.Dense {
	m, n := p.Dims()
	J := mat.NewDense(m, n, nil)
	vals := part.values()
	for k, pat := range p.Pattern() {
		rOff := offsetOf(planeOutputNames, p.outputSize, pat.Of)
		cOff := offsetOf(planeInputNames, p.inputSize, pat.Wrt)
		for j := range pat.Rows {
			J.Set(rOff+pat.Rows[j], cOff+pat.Cols[j], vals[k][j])
		}
	}
	return J
}

// PartialCheck is the comparison of one block of the Jacobian.
type PartialCheck struct {
	Of, Wrt        string
	MaxAbs, MaxRel float64
}

// PartialsReport is the result of CheckPartials.
type PartialsReport struct {
	Declared   []PartialCheck // analytic vs. finite difference
	Undeclared []PartialCheck // non zero derivatives which are not declared, MaxAbs is the FD magnitude
}

// MaxRelError returns the largest relative error over all declared partials.
func (r PartialsReport) MaxRelError() (rel float64) {
	for _, c := range r.Declared {
		rel = math.Max(rel, c.MaxRel)
	}
	return
}

func (r PartialsReport) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"of", "wrt", "max |abs err|", "max |rel err|", "declared"})
	for _, c := range r.Declared {
		t.AppendRow(table.Row{c.Of, c.Wrt, fmt.Sprintf("%.4e", c.MaxAbs), fmt.Sprintf("%.4e", c.MaxRel), "yes"})
	}
	for _, c := range r.Undeclared {
		t.AppendRow(table.Row{c.Of, c.Wrt, fmt.Sprintf("%.4e", c.MaxAbs), "-", "no"})
	}
	return t.Render()
}

// CheckPartials compares the analytic partials of the plane with central finite differences.
func CheckPartials(p *PlanePath2D, in PlaneInputs, step float64) (PartialsReport, error) {
	var report PartialsReport
	part, err := p.ComputePartials(in)
	if err != nil {
		return report, err
	}
	if step <= 0 {
		step = DefaultFDStep
	}
	analytic := p.Jacobian(part)

	m, n := p.Dims()
	approx := mat.NewDense(m, n, nil)
	x0 := p.Flatten(in)
	fd.Jacobian(approx, func(y, x []float64) {
		out, cerr := p.Compute(p.Unflatten(x))
		if cerr != nil {
			panic(cerr) // sizes are fixed by Flatten
		}
		p.flattenOutputs(y, out)
	}, x0, &fd.JacobianSettings{Formula: fd.Central, Step: step})

	declared := make(map[[2]string]bool)
	for _, pat := range p.Pattern() {
		declared[[2]string{pat.Of, pat.Wrt}] = true
	}
	for _, of := range planeOutputNames {
		rOff := offsetOf(planeOutputNames, p.outputSize, of)
		for _, wrt := range planeInputNames {
			cOff := offsetOf(planeInputNames, p.inputSize, wrt)
			chk := PartialCheck{Of: of, Wrt: wrt}
			for i := 0; i < p.outputSize(of); i++ {
				for j := 0; j < p.inputSize(wrt); j++ {
					a := analytic.At(rOff+i, cOff+j)
					f := approx.At(rOff+i, cOff+j)
					if !declared[[2]string{of, wrt}] {
						chk.MaxAbs = math.Max(chk.MaxAbs, math.Abs(f))
						continue
					}
					Δ := math.Abs(a - f)
					chk.MaxAbs = math.Max(chk.MaxAbs, Δ)
					if math.Abs(f) > undeclaredTol {
						chk.MaxRel = math.Max(chk.MaxRel, Δ/math.Abs(f))
					}
				}
			}
			if declared[[2]string{of, wrt}] {
				report.Declared = append(report.Declared, chk)
			} else if chk.MaxAbs > undeclaredTol {
				report.Undeclared = append(report.Undeclared, chk)
			}
		}
	}
	return report, nil
}
