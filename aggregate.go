package newroutes

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

/* Constraint aggregation functions. A constraint g is satisfied when g <= 0. */

// KS returns the Kreisselmeier-Steinhauser aggregate of g, a smooth over-approximation of max(g),
// its gradient with respect to g and its derivative with respect to ρ.
// The row maximum is subtracted before exponentiating, so large ρ does not overflow.
func KS(g []float64, ρ float64) (ks float64, dKSdg []float64, dKSdρ float64) {
	if len(g) == 0 {
		panic("KS of an empty vector")
	}
	if ρ <= 0 {
		panic("KS requires a positive ρ")
	}
	gMax := floats.Max(g)
	dKSdg = make([]float64, len(g))
	var sum, weighted float64
	for i, gi := range g {
		e := math.Exp(ρ * (gi - gMax))
		dKSdg[i] = e
		sum += e
		weighted += (gi - gMax) * e
	}
	lnSum := math.Log(sum)
	ks = gMax + lnSum/ρ
	floats.Scale(1/sum, dKSdg)
	dKSdρ = weighted/(ρ*sum) - lnSum/(ρ*ρ)
	return
}

// KSRows applies KS to each row of g.
func KSRows(g mat.Matrix, ρ float64) ([]float64, *mat.Dense) {
	r, c := g.Dims()
	ks := make([]float64, r)
	grad := mat.NewDense(r, c, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, g)
		var dg []float64
		ks[i], dg, _ = KS(row, ρ)
		grad.SetRow(i, dg)
	}
	return ks, grad
}

// RePU is the rectified polynomial unit max(g, 0)^p and its elementwise derivative.
// Feasible entries (g <= 0) have a zero value and a zero derivative.
func RePU(g []float64, p float64) (y, dy []float64) {
	if p < 1 {
		panic("RePU requires p >= 1")
	}
	y = make([]float64, len(g))
	dy = make([]float64, len(g))
	for i, gi := range g {
		if gi <= 0 {
			continue
		}
		y[i] = math.Pow(gi, p)
		dy[i] = p * math.Pow(gi, p-1)
	}
	return
}

// RePUAggregate sums RePU over g, which is zero iff every constraint is satisfied.
func RePUAggregate(g []float64, p float64) (float64, []float64) {
	y, dy := RePU(g, p)
	return floats.Sum(y), dy
}
