package newroutes

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// lglNodes are the Legendre-Gauss-Lobatto nodes on [-1, 1] per transcription order.
var lglNodes = map[int][]float64{
	3: {-1, 0, 1},
	5: {-1, -math.Sqrt(3. / 7), 0, math.Sqrt(3. / 7), 1},
	7: {-1, -0.830223896278567, -0.468848793470714, 0, 0.468848793470714, 0.830223896278567, 1},
}

// Grid is the node layout of a Gauss-Lobatto transcription.
// Every segment holds Order nodes. The even nodes of a segment are state discretization nodes,
// the odd ones are collocation nodes. When compressed, the state of adjacent segments is shared at
// their boundary.
type Grid struct {
	NumSegments int
	Order       int
	Compressed  bool
	segEnds     []float64
}

// NewGrid returns a grid with equally spaced segments.
func NewGrid(numSegments, order int, compressed bool) (*Grid, error) {
	if numSegments < 1 {
		return nil, fmt.Errorf("invalid number of segments %d", numSegments)
	}
	if _, ok := lglNodes[order]; !ok {
		return nil, fmt.Errorf("unsupported transcription order %d (use 3, 5 or 7)", order)
	}
	ends := floats.Span(make([]float64, numSegments+1), -1, 1)
	return &Grid{numSegments, order, compressed, ends}, nil
}

// NumNodes returns the number of nodes at which the ODE is evaluated.
func (g *Grid) NumNodes() int {
	return g.NumSegments * g.Order
}

// Tau returns the nodes in the phase's non-dimensional time, in [-1, 1].
func (g *Grid) Tau() []float64 {
	tau := make([]float64, 0, g.NumNodes())
	for s := 0; s < g.NumSegments; s++ {
		a, b := g.segEnds[s], g.segEnds[s+1]
		for _, ξ := range lglNodes[g.Order] {
			switch ξ {
			case -1:
				tau = append(tau, a)
			case 1:
				tau = append(tau, b) // bit identical to the first node of the next segment
			default:
				tau = append(tau, a+(ξ+1)*(b-a)/2)
			}
		}
	}
	return tau
}

// Times returns the time of each node for a phase starting at tInitial and lasting tDuration.
func (g *Grid) Times(tInitial, tDuration float64) []float64 {
	tau := g.Tau()
	for i, τ := range tau {
		tau[i] = tInitial + (τ+1)/2*tDuration
	}
	return tau
}

// StateInputIndices returns the node indices at which the states are design variables.
func (g *Grid) StateInputIndices() []int {
	var idx []int
	for s := 0; s < g.NumSegments; s++ {
		for j := 0; j < g.Order; j += 2 {
			if g.Compressed && s > 0 && j == 0 {
				continue // shared with the last node of the previous segment
			}
			idx = append(idx, s*g.Order+j)
		}
	}
	return idx
}

// StateInputTimes returns the times of the state input nodes.
func (g *Grid) StateInputTimes(tInitial, tDuration float64) []float64 {
	all := g.Times(tInitial, tDuration)
	idx := g.StateInputIndices()
	times := make([]float64, len(idx))
	for i, j := range idx {
		times[i] = all[j]
	}
	return times
}
