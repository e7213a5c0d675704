package main

import (
	"flag"
	"log"
	"path/filepath"

	"github.com/thearn/newroutes"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	n, every  int
	k, ρ, pow float64
	outputdir string
)

func init() {
	flag.IntVar(&n, "n", 101, "number of grid points per axis")
	flag.IntVar(&every, "every", 5, "plot one arrow every so many grid points")
	flag.Float64Var(&k, "k", 5, "the grid spans [-k, k] on both axes")
	flag.Float64Var(&ρ, "rho", 1, "KS sharpness")
	flag.Float64Var(&pow, "p", 2, "RePU power")
	flag.StringVar(&outputdir, "out", "./", "output directory")
}

// field is a 2-vector field sampled on a square grid.
type field struct {
	xs, ys []float64
	vecs   [][]plotter.XY
}

func (f field) Dims() (c, r int) { return len(f.xs), len(f.ys) }
func (f field) Vector(c, r int) plotter.XY { return f.vecs[c][r] }
func (f field) X(c int) float64 { return f.xs[c] }
func (f field) Y(r int) float64 { return f.ys[r] }

// sample evaluates fn at every `every` point of an n×n grid spanning [-k, k]².
func sample(fn func(g []float64) (u, v float64)) field {
	axis := floats.Span(make([]float64, n), -k, k)
	var f field
	for i := 0; i < n; i += every {
		f.xs = append(f.xs, axis[i])
		f.ys = append(f.ys, axis[i])
	}
	f.vecs = make([][]plotter.XY, len(f.xs))
	for c, x := range f.xs {
		f.vecs[c] = make([]plotter.XY, len(f.ys))
		for r, y := range f.ys {
			u, v := fn([]float64{x, y})
			f.vecs[c][r] = plotter.XY{X: u, Y: v}
		}
	}
	return f
}

func save(f field, title, filename string) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "g₁"
	p.Y.Label.Text = "g₂"
	p.Add(plotter.NewField(f))
	path := filepath.Join(outputdir, filename)
	if err := p.Save(5*vg.Inch, 5*vg.Inch, path); err != nil {
		log.Fatalf("could not save %s: %s", path, err)
	}
	log.Printf("[info] saved %s", path)
}

func main() {
	flag.Parse()
	if n < 2 || every < 1 || k <= 0 {
		log.Fatal("invalid grid: need n >= 2, every >= 1 and k > 0")
	}
	// The KS value is a scalar, so its gradient is plotted.
	save(sample(func(g []float64) (float64, float64) {
		_, dg, _ := newroutes.KS(g, ρ)
		return dg[0], dg[1]
	}), "∇KS(g)", "ks.png")
	save(sample(func(g []float64) (float64, float64) {
		y, _ := newroutes.RePU(g, pow)
		return y[0], y[1]
	}), "RePU(g)", "repu.png")
}
