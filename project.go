package soilmap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ctessum/geom/proj"
	vec2d "github.com/flywave/go3d/float64/vec2"
	"github.com/rotisserie/eris"
)

// Unit is the linear unit of projected coordinates.
type Unit string

const (
	Meters     Unit = "m"
	Kilometers Unit = "km"
)

const (
	EPSG4326 = "EPSG:4326"
	EPSG3857 = "EPSG:3857"
)

const (
	longlatDef = "+proj=longlat +datum=WGS84 +no_defs"
	webMapDef  = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"
)

// CRSConfig names the source and target coordinate references and the unit
// of the projected side.
type CRSConfig struct {
	Source string `yaml:"source" mapstructure:"source"`
	Target string `yaml:"target" mapstructure:"target"`
	Unit   Unit   `yaml:"unit" mapstructure:"unit"`
}

// DefaultCRS projects WGS84 lon/lat onto UTM zone 18N in meters.
func DefaultCRS() CRSConfig {
	return CRSConfig{Source: EPSG4326, Target: "EPSG:32618", Unit: Meters}
}

type reference struct {
	code       string
	sr         *proj.SR
	geographic bool
}

// Projector converts coordinates between two references. It is stateless
// after construction and safe for concurrent use.
type Projector struct {
	config  CRSConfig
	source  reference
	target  reference
	forward proj.Transformer
	inverse proj.Transformer
	// meters per projected unit
	factor float64
}

// proj4Definition maps a supported EPSG identifier to its PROJ.4 definition.
func proj4Definition(code string) (def string, geographic bool, err error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if !strings.HasPrefix(c, "EPSG:") {
		return "", false, eris.Wrapf(ErrUnsupportedProjection, "projection: %q", code)
	}
	n, perr := strconv.Atoi(strings.TrimPrefix(c, "EPSG:"))
	if perr != nil {
		return "", false, eris.Wrapf(ErrUnsupportedProjection, "projection: %q", code)
	}

	switch {
	case n == 4326:
		return longlatDef, true, nil
	case n == 3857:
		return webMapDef, false, nil
	case n >= 32601 && n <= 32660:
		return fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", n-32600), false, nil
	case n >= 32701 && n <= 32760:
		return fmt.Sprintf("+proj=utm +zone=%d +south +datum=WGS84 +units=m +no_defs", n-32700), false, nil
	}
	return "", false, eris.Wrapf(ErrUnsupportedProjection, "projection: %q", code)
}

func newReference(code string) (reference, error) {
	def, geographic, err := proj4Definition(code)
	if err != nil {
		return reference{}, err
	}
	sr, err := proj.Parse(def)
	if err != nil {
		return reference{}, eris.Wrapf(ErrUnsupportedProjection, "projection: parse %q: %v", code, err)
	}
	return reference{code: code, sr: sr, geographic: geographic}, nil
}

// NewProjector validates the configuration and prepares both transforms.
// Unknown identifiers or units fail with ErrUnsupportedProjection.
func NewProjector(cfg CRSConfig) (*Projector, error) {
	var factor float64
	switch cfg.Unit {
	case Meters, "":
		factor = 1
	case Kilometers:
		factor = 1000
	default:
		return nil, eris.Wrapf(ErrUnsupportedProjection, "projection: unit %q", cfg.Unit)
	}

	src, err := newReference(cfg.Source)
	if err != nil {
		return nil, err
	}
	dst, err := newReference(cfg.Target)
	if err != nil {
		return nil, err
	}

	p := &Projector{config: cfg, source: src, target: dst, factor: factor}
	if p.forward, err = src.sr.NewTransform(dst.sr); err != nil {
		return nil, eris.Wrapf(ErrUnsupportedProjection, "projection: %s -> %s: %v", cfg.Source, cfg.Target, err)
	}
	if p.inverse, err = dst.sr.NewTransform(src.sr); err != nil {
		return nil, eris.Wrapf(ErrUnsupportedProjection, "projection: %s -> %s: %v", cfg.Target, cfg.Source, err)
	}
	return p, nil
}

func (p *Projector) Config() CRSConfig {
	return p.config
}

// Planar reports whether the target reference is projected.
func (p *Projector) Planar() bool {
	return !p.target.geographic
}

func (p *Projector) transform(t proj.Transformer, from, to reference, c vec2d.T) (vec2d.T, error) {
	x, y := c[0], c[1]
	if !from.geographic {
		x, y = x*p.factor, y*p.factor
	}
	x, y, err := t(x, y)
	if err != nil {
		return vec2d.T{}, eris.Wrapf(err, "projection: transform (%v, %v) %s -> %s", c[0], c[1], from.code, to.code)
	}
	if !to.geographic {
		x, y = x/p.factor, y/p.factor
	}
	return vec2d.T{x, y}, nil
}

// Forward converts a source coordinate into the target reference.
func (p *Projector) Forward(c vec2d.T) (vec2d.T, error) {
	return p.transform(p.forward, p.source, p.target, c)
}

// Inverse converts a target coordinate back into the source reference.
func (p *Projector) Inverse(c vec2d.T) (vec2d.T, error) {
	return p.transform(p.inverse, p.target, p.source, c)
}

// ProjectAll converts every coordinate, returning a new slice.
func (p *Projector) ProjectAll(coords []vec2d.T) ([]vec2d.T, error) {
	ret := make([]vec2d.T, len(coords))
	for i := range coords {
		c, err := p.Forward(coords[i])
		if err != nil {
			return nil, err
		}
		ret[i] = c
	}
	return ret, nil
}

// ProjectGrid returns a copy of g whose planar locations are the projected
// grid points. The input grid is left untouched.
func (p *Projector) ProjectGrid(g *Grid) (*Grid, error) {
	planar, err := p.ProjectAll(g.Points)
	if err != nil {
		return nil, eris.Wrap(err, "projection: grid")
	}
	return g.withPlanar(planar), nil
}

// ProjectSamples projects sample coordinates in order. Samples without a
// usable coordinate map to the zero vector and are skipped downstream.
func (p *Projector) ProjectSamples(samples []Sample) ([]vec2d.T, error) {
	ret := make([]vec2d.T, len(samples))
	for i, s := range samples {
		if !s.hasCoordinate() {
			continue
		}
		c, err := p.Forward(s.Coordinate())
		if err != nil {
			return nil, eris.Wrapf(err, "projection: sample %d", s.ID)
		}
		ret[i] = c
	}
	return ret, nil
}
