package soilmap

import (
	"math"

	vec2d "github.com/flywave/go3d/float64/vec2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultResolution is the grid step in source coordinates (degrees).
const DefaultResolution = 0.0025

type Options struct {
	Resolution      float64
	CRS             *CRSConfig
	FenceMultiplier *float64
	Model           *ModelType
	Preference      []Method
	Workers         int
}

// Pipeline runs grid construction, the three interpolation methods and the
// accuracy comparison over one sample set.
type Pipeline struct {
	resolution float64
	projector  *Projector
	fence      float64
	model      ModelType
	preference []Method
	workers    int
}

// NewPipeline validates options. Coordinate references are checked here so
// a bad configuration fails before any computation.
func NewPipeline(opts Options) (*Pipeline, error) {
	p := &Pipeline{
		resolution: opts.Resolution,
		fence:      DefaultFenceMultiplier,
		model:      Auto,
		preference: DefaultPreference,
		workers:    opts.Workers,
	}

	if p.resolution == 0 {
		p.resolution = DefaultResolution
	}
	if opts.FenceMultiplier != nil {
		p.fence = *opts.FenceMultiplier
	}
	if opts.Model != nil {
		p.model = *opts.Model
	}
	if len(opts.Preference) > 0 {
		p.preference = opts.Preference
	}

	crs := DefaultCRS()
	if opts.CRS != nil {
		crs = *opts.CRS
	}
	proj, err := NewProjector(crs)
	if err != nil {
		return nil, err
	}
	p.projector = proj
	return p, nil
}

func (p *Pipeline) Projector() *Projector {
	return p.projector
}

// MethodResult is the outcome of one interpolation method: either a surface
// with its score, or the reason it failed.
type MethodResult struct {
	Method  Method
	Surface *Surface
	Score   Score
	Err     error
}

func (r MethodResult) OK() bool {
	return r.Err == nil && r.Surface != nil
}

// Report collects every artifact of one run. Nothing in it is modified
// after Run returns.
type Report struct {
	Samples   []Sample
	Planar    []vec2d.T
	Grid      *Grid
	Partition Partition
	Results   []MethodResult
	Best      Method
	HasBest   bool
}

// Result returns the outcome for method m.
func (r *Report) Result(m Method) (MethodResult, bool) {
	for _, res := range r.Results {
		if res.Method == m {
			return res, true
		}
	}
	return MethodResult{}, false
}

// Scores returns the scores of the methods that produced a surface.
func (r *Report) Scores() []Score {
	var ret []Score
	for _, res := range r.Results {
		if res.OK() {
			ret = append(ret, res.Score)
		}
	}
	return ret
}

// Run builds and projects the grid, then computes the ok, tin and combined
// surfaces independently. A failing method is recorded in its result and
// does not stop the others; only grid or projection failures abort.
func (p *Pipeline) Run(samples []Sample) (*Report, error) {
	grid, err := BuildGrid(samples, p.resolution)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: build grid")
	}
	grid, err = p.projector.ProjectGrid(grid)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: project grid")
	}
	planar, err := p.projector.ProjectSamples(samples)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: project samples")
	}
	zap.L().Debug("pipeline: grid ready",
		zap.Int("columns", grid.Columns),
		zap.Int("rows", grid.Rows),
		zap.Int("samples", len(samples)),
	)

	report := &Report{Samples: samples, Planar: planar, Grid: grid}
	obs := Observations(samples, planar)
	kopts := KrigingOptions{Model: p.model, Workers: p.workers}

	ok := MethodResult{Method: MethodOK}
	ok.Surface, ok.Err = Krige(obs, grid, kopts)

	tin := MethodResult{Method: MethodTIN}
	tin.Surface, tin.Err = InterpolateTIN(obs, grid)

	combined := MethodResult{Method: MethodCombined}
	combined.Surface, report.Partition, combined.Err = SkewSplit(samples, planar, grid, p.fence, kopts)

	scorer, err := NewScorer(grid)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: scorer")
	}
	for _, res := range []*MethodResult{&ok, &tin, &combined} {
		if res.Err != nil {
			zap.L().Warn("pipeline: method failed",
				zap.String("method", string(res.Method)),
				zap.Error(res.Err),
			)
			continue
		}
		res.Score, res.Err = scorer.Score(samples, planar, res.Surface)
		if res.Err != nil {
			res.Surface = nil
			continue
		}
		zap.L().Info("pipeline: method scored",
			zap.String("method", string(res.Method)),
			zap.Float64("rmse", res.Score.RMSE),
			zap.Int("pairs", res.Score.Pairs),
		)
	}
	report.Results = []MethodResult{ok, tin, combined}

	report.Best, report.HasBest = SelectBest(report.Scores(), p.preference)
	if report.HasBest {
		zap.L().Info("pipeline: selected method", zap.String("method", string(report.Best)))
	}
	return report, nil
}

// Link projects geographic targets and joins them to the surface of
// method m. Targets without a usable coordinate are left unjoined.
func (p *Pipeline) Link(report *Report, m Method, targets []vec2d.T) ([]Link, error) {
	res, found := report.Result(m)
	if !found {
		return nil, eris.Errorf("pipeline: unknown method %q", m)
	}
	if !res.OK() {
		return nil, eris.Wrapf(res.Err, "pipeline: method %s has no surface", m)
	}

	planar := make([]vec2d.T, len(targets))
	for i, t := range targets {
		if math.IsNaN(t[0]) || math.IsNaN(t[1]) {
			planar[i] = t
			continue
		}
		c, err := p.projector.Forward(t)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: project target %d", i)
		}
		planar[i] = c
	}
	return LinkSurface(planar, res.Surface)
}

// LinkBest joins targets to the selected surface.
func (p *Pipeline) LinkBest(report *Report, targets []vec2d.T) ([]Link, error) {
	if !report.HasBest {
		return nil, eris.Wrap(ErrEmptySurface, "pipeline: no method produced a scored surface")
	}
	return p.Link(report, report.Best, targets)
}
