package newroutes

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestKSScenario(t *testing.T) {
	ks, dg, _ := KS([]float64{1, 2, 3}, 50)
	if !floats.EqualWithinAbs(ks, 3, 0.05) {
		t.Fatalf("KS([1 2 3], 50) = %f", ks)
	}
	if ks < 3 {
		t.Fatalf("KS = %f is less than the max", ks)
	}
	if !floats.EqualWithinAbs(floats.Sum(dg), 1, 1e-12) {
		t.Fatalf("KS gradient sums to %f", floats.Sum(dg))
	}
	if dg[2] < 0.99 {
		t.Fatalf("the max should dominate the gradient: %v", dg)
	}
}

func TestKSGradient(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5))
	for trial := 0; trial < 50; trial++ {
		g := make([]float64, 1+rng.IntN(6))
		for i := range g {
			g[i] = 10*rng.Float64() - 5
		}
		ρ := 0.5 + 10*rng.Float64()
		ks, dg, dρ := KS(g, ρ)
		if ks < floats.Max(g) {
			t.Fatalf("KS(%v, %f) = %f < max", g, ρ, ks)
		}
		if ks > floats.Max(g)+math.Log(float64(len(g)))/ρ+1e-12 {
			t.Fatalf("KS(%v, %f) = %f is above its upper bound", g, ρ, ks)
		}
		approx := fd.Gradient(nil, func(x []float64) float64 {
			v, _, _ := KS(x, ρ)
			return v
		}, g, &fd.Settings{Formula: fd.Central})
		if !floats.EqualApprox(dg, approx, 1e-6) {
			t.Fatalf("∂KS/∂g = %v != FD %v", dg, approx)
		}
		approxρ := fd.Derivative(func(r float64) float64 {
			v, _, _ := KS(g, r)
			return v
		}, ρ, &fd.Settings{Formula: fd.Central})
		if !floats.EqualWithinAbs(dρ, approxρ, 1e-6) {
			t.Fatalf("∂KS/∂ρ = %f != FD %f", dρ, approxρ)
		}
	}
}

func TestKSConvergence(t *testing.T) {
	g := []float64{-1, 0.3, 0.25, -4}
	prev := math.Inf(1)
	for _, ρ := range []float64{1, 5, 10, 50, 100} {
		ks, _, _ := KS(g, ρ)
		Δ := ks - 0.3
		if Δ < 0 || Δ >= prev {
			t.Fatalf("KS does not converge to the max from above: ρ=%f Δ=%e", ρ, Δ)
		}
		prev = Δ
	}
	if prev > 1e-3 {
		t.Fatalf("KS is %e from the max at ρ=100", prev)
	}
}

func TestKSLarge(t *testing.T) {
	ks, dg, _ := KS([]float64{1000, 999}, 100)
	if math.IsInf(ks, 0) || math.IsNaN(ks) {
		t.Fatal("KS overflowed")
	}
	if !floats.EqualWithinAbs(ks, 1000, 1e-12) || !floats.EqualWithinAbs(dg[0], 1, 1e-12) {
		t.Fatalf("KS = %f, ∂KS/∂g = %v", ks, dg)
	}
}

func TestKSRows(t *testing.T) {
	g := mat.NewDense(2, 3, []float64{1, 2, 3, -5, 4, 0})
	ks, grad := KSRows(g, 20)
	for i := 0; i < 2; i++ {
		exp, dg, _ := KS(mat.Row(nil, i, g), 20)
		if ks[i] != exp || !floats.Equal(mat.Row(nil, i, grad), dg) {
			t.Fatalf("row %d differs", i)
		}
	}
}

func TestKSInvalid(t *testing.T) {
	for _, f := range []func(){
		func() { KS(nil, 1) },
		func() { KS([]float64{1}, 0) },
		func() { RePU([]float64{1}, 0.5) },
	} {
		func() {
			defer func() {
				if r := recover(); r == nil {
					t.Fatal("expected a panic")
				}
			}()
			f()
		}()
	}
}

func TestRePUScenario(t *testing.T) {
	y, dy := RePU([]float64{-1, 0, 2}, 2)
	if !floats.Equal(y, []float64{0, 0, 4}) {
		t.Fatalf("RePU = %v", y)
	}
	if !floats.Equal(dy, []float64{0, 0, 4}) {
		t.Fatalf("∂RePU = %v", dy)
	}
	sum, grad := RePUAggregate([]float64{-1, 0, 2, 3}, 2)
	if sum != 13 || !floats.Equal(grad, []float64{0, 0, 4, 6}) {
		t.Fatalf("aggregate = %f %v", sum, grad)
	}
}

func TestRePUProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	g := make([]float64, 100)
	for i := range g {
		g[i] = 6*rng.Float64() - 3
	}
	for _, p := range []float64{1, 2, 3, 2.5} {
		y, dy := RePU(g, p)
		for i, gi := range g {
			if gi <= 0 {
				if y[i] != 0 || dy[i] != 0 {
					t.Fatalf("p=%f: feasible g=%f has RePU=%f ∂=%f", p, gi, y[i], dy[i])
				}
				continue
			}
			if !floats.EqualWithinRel(y[i], math.Pow(gi, p), 1e-12) || !floats.EqualWithinRel(dy[i], p*math.Pow(gi, p-1), 1e-12) {
				t.Fatalf("p=%f: g=%f has RePU=%f ∂=%f", p, gi, y[i], dy[i])
			}
		}
	}
}
