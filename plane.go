package newroutes

import (
	"errors"
	"fmt"
	"math"
)

const (
	// MinPartialDistance is the floor applied to the distance to destination before it is used
	// in the partial derivatives.
	MinPartialDistance = 1.0
)

// ErrNodeCount is returned when a per-node input does not match the number of nodes.
var ErrNodeCount = errors.New("input length does not match the number of nodes")

// PlaneInputs are the per-node inputs of a single 2D point-mass plane.
type PlaneInputs struct {
	Time, X, Y, Vx, Vy []float64 // One entry per node.
	DepartureTime      float64   // Scheduled departure time (s)
	DestinationX       float64   // Destination x (m)
	DestinationY       float64   // Destination y (m)
}

// PlaneOutputs are the outputs of PlanePath2D.Compute.
type PlaneOutputs struct {
	XDot, YDot            []float64
	DistanceToDestination []float64
	DepartureHold         float64
}

// PlanePartials stores the declared partials of a PlanePath2D.
// Diagonal partials store the diagonal only, HoldVx and HoldVy are dense rows.
type PlanePartials struct {
	XDotVx, YDotVy         []float64
	HoldVx, HoldVy         []float64
	DistX, DistY, DistTime []float64
}

// PlanePath2D is the 2D point-mass kinematics of a plane with a departure hold.
type PlanePath2D struct {
	NumNodes int
}

// NewPlanePath2D returns a new plane evaluated on nn nodes.
func NewPlanePath2D(nn int) *PlanePath2D {
	if nn <= 0 {
		panic("number of nodes must be positive")
	}
	return &PlanePath2D{nn}
}

func (p *PlanePath2D) validate(in PlaneInputs) error {
	names := []string{"time", "x", "y", "vx", "vy"}
	for i, v := range [][]float64{in.Time, in.X, in.Y, in.Vx, in.Vy} {
		if len(v) != p.NumNodes {
			return fmt.Errorf("%s has %d entries, expected %d: %w", names[i], len(v), p.NumNodes, ErrNodeCount)
		}
	}
	return nil
}

// departureMask is the smooth gate which goes from 0 before departure to 1 after.
func departureMask(t, ts float64) float64 {
	return (math.Tanh(t-ts) + 1) / 2
}

// Compute returns the rates, the distance to destination and the departure hold.
func (p *PlanePath2D) Compute(in PlaneInputs) (out PlaneOutputs, err error) {
	if err = p.validate(in); err != nil {
		return
	}
	nn := p.NumNodes
	out.XDot = make([]float64, nn)
	out.YDot = make([]float64, nn)
	out.DistanceToDestination = make([]float64, nn)
	copy(out.XDot, in.Vx)
	copy(out.YDot, in.Vy)
	for i := 0; i < nn; i++ {
		dist := math.Hypot(in.X[i]-in.DestinationX, in.Y[i]-in.DestinationY)
		mask := departureMask(in.Time[i], in.DepartureTime)
		out.DepartureHold += (in.Vx[i]*in.Vx[i] + in.Vy[i]*in.Vy[i]) * (1 - mask)
		out.DistanceToDestination[i] = dist * mask
	}
	return
}

// ComputePartials returns the analytic partials of the outputs.
// NOTE: the departure hold is not differentiated with respect to time.
func (p *PlanePath2D) ComputePartials(in PlaneInputs) (part PlanePartials, err error) {
	if err = p.validate(in); err != nil {
		return
	}
	nn := p.NumNodes
	part = PlanePartials{
		XDotVx:   make([]float64, nn),
		YDotVy:   make([]float64, nn),
		HoldVx:   make([]float64, nn),
		HoldVy:   make([]float64, nn),
		DistX:    make([]float64, nn),
		DistY:    make([]float64, nn),
		DistTime: make([]float64, nn),
	}
	for i := 0; i < nn; i++ {
		part.XDotVx[i] = 1
		part.YDotVy[i] = 1

		Δx := in.X[i] - in.DestinationX
		Δy := in.Y[i] - in.DestinationY
		dist := math.Max(math.Hypot(Δx, Δy), MinPartialDistance)
		tanh := math.Tanh(in.Time[i] - in.DepartureTime)
		mask := (tanh + 1) / 2
		dmask := 0.5 - 0.5*tanh*tanh

		part.HoldVx[i] = (1 - mask) * 2 * in.Vx[i]
		part.HoldVy[i] = (1 - mask) * 2 * in.Vy[i]
		part.DistX[i] = Δx / dist * mask
		part.DistY[i] = Δy / dist * mask
		part.DistTime[i] = dist * dmask
	}
	return
}

// PartialPattern is one declared partial: the output `Of` with respect to input `Wrt`.
// Rows and Cols index into the output and input vectors respectively.
type PartialPattern struct {
	Of, Wrt    string
	Rows, Cols []int
}

// Pattern returns the sparsity pattern of the declared partials.
func (p *PlanePath2D) Pattern() []PartialPattern {
	nn := p.NumNodes
	diag := make([]int, nn)
	zeros := make([]int, nn)
	for i := range diag {
		diag[i] = i
	}
	return []PartialPattern{
		{"x_dot", "vx", diag, diag},
		{"y_dot", "vy", diag, diag},
		{"departure_hold", "vx", zeros, diag},
		{"departure_hold", "vy", zeros, diag},
		{"distance_to_destination", "x", diag, diag},
		{"distance_to_destination", "y", diag, diag},
		{"distance_to_destination", "time", diag, diag},
	}
}

// values returns the partials in the same order as Pattern.
func (part PlanePartials) values() [][]float64 {
	return [][]float64{part.XDotVx, part.YDotVy, part.HoldVx, part.HoldVy, part.DistX, part.DistY, part.DistTime}
}
