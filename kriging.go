package soilmap

import (
	"math"
	"runtime"

	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// MinKrigingSamples is the smallest sample set Krige accepts.
const MinKrigingSamples = 3

// Kriging is a trained ordinary-kriging system over a fixed set of
// observations. After Train it is read-only and Predict may be called from
// several goroutines.
type Kriging struct {
	pos []vec3d.T

	Variogram Variogram

	// LU factorization of the bordered variogram matrix
	lu *mat.LU
}

func New(pos []vec3d.T) *Kriging {
	return &Kriging{pos: pos}
}

// Train fits the variogram and factorizes the kriging system
//
//	| Γ  1 | | w |   | γ0 |
//	| 1ᵀ 0 | | μ | = | 1  |
//
// shared by every prediction.
func (kri *Kriging) Train(model ModelType) (*Kriging, error) {
	n := len(kri.pos)
	if n < MinKrigingSamples {
		return nil, eris.Wrapf(ErrInsufficientData, "kriging: %d samples, need %d", n, MinKrigingSamples)
	}

	vgm, err := FitVariogram(kri.pos, model)
	if err != nil {
		return nil, eris.Wrap(err, "kriging: fit variogram")
	}
	kri.Variogram = vgm

	a := mat.NewDense(n+1, n+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			g := vgm.Eval(obsDistance(kri.pos[i], kri.pos[j]))
			a.Set(i, j, g)
			a.Set(j, i, g)
		}
		a.Set(i, n, 1)
		a.Set(n, i, 1)
	}

	var lu mat.LU
	lu.Factorize(a)
	if cond := lu.Cond(); math.IsInf(cond, 1) || math.IsNaN(cond) || cond > mat.ConditionTolerance {
		return nil, eris.Wrapf(ErrSingularSystem, "kriging: factorize %dx%d system: condition %g", n+1, n+1, cond)
	}
	kri.lu = &lu

	zap.L().Debug("kriging: trained",
		zap.Int("samples", n),
		zap.String("model", string(vgm.Model)),
		zap.Float64("nugget", vgm.Nugget),
		zap.Float64("partial_sill", vgm.PartialSill),
		zap.Float64("range", vgm.Range),
	)
	return kri, nil
}

// weights returns the kriging weights for p and the Lagrange multiplier.
func (kri *Kriging) weights(p vec2d.T) ([]float64, float64) {
	n := len(kri.pos)
	rhs := mat.NewVecDense(n+1, nil)
	for i := 0; i < n; i++ {
		rhs.SetVec(i, kri.Variogram.Eval(planarDistance(p, xy(kri.pos[i]))))
	}
	rhs.SetVec(n, 1)

	// conditioning was checked in Train
	var sol mat.VecDense
	_ = kri.lu.SolveVecTo(&sol, false, rhs)

	w := make([]float64, n)
	for i := range w {
		w[i] = sol.AtVec(i)
	}
	return w, sol.AtVec(n)
}

// Predict returns the kriged value and estimation variance at (x, y).
func (kri *Kriging) Predict(x, y float64) (float64, float64) {
	p := vec2d.T{x, y}
	w, mu := kri.weights(p)

	var value, variance float64
	for i := range w {
		value += w[i] * kri.pos[i][2]
		variance += w[i] * kri.Variogram.Eval(planarDistance(p, xy(kri.pos[i])))
	}
	variance += mu
	return value, math.Max(variance, 0)
}

// KrigingOptions configures Krige.
type KrigingOptions struct {
	Model ModelType
	// Workers bounds concurrent grid-point solves; zero means GOMAXPROCS.
	Workers int
}

// Krige predicts every grid point by ordinary kriging. A singular system
// aborts the whole surface with ErrSingularSystem, since the matrix is
// shared by all grid points.
func Krige(obs []vec3d.T, grid *Grid, opts KrigingOptions) (*Surface, error) {
	kri, err := New(obs).Train(opts.Model)
	if err != nil {
		return nil, err
	}

	locs := grid.Locations()
	preds := make([]Prediction, len(locs))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (len(locs) + workers - 1) / workers
	if chunk == 0 {
		chunk = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < len(locs); start += chunk {
		start := start
		end := start + chunk
		if end > len(locs) {
			end = len(locs)
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				v, s := kri.Predict(locs[i][0], locs[i][1])
				preds[i] = Prediction{Value: v, Variance: s, Defined: true}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	vgm := kri.Variogram
	return &Surface{Method: MethodOK, Grid: grid, Predictions: preds, Variogram: &vgm}, nil
}
