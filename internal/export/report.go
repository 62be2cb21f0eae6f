package export

import (
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	soilmap "github.com/dthill196/syracuse-soil-metal-biomarker-study"
)

// Method outcome labels used in the run report.
const (
	StatusOK            = "ok"
	StatusFailed        = "failed"
	StatusNotApplicable = "not_applicable"
)

// Report is the YAML summary of one pipeline run.
type Report struct {
	Samples      int               `yaml:"samples"`
	ValidSamples int               `yaml:"valid_samples"`
	CRS          soilmap.CRSConfig `yaml:"crs"`
	Grid         GridSummary       `yaml:"grid"`
	Partition    PartitionSummary  `yaml:"partition"`
	Methods      []MethodSummary   `yaml:"methods"`
	Best         string            `yaml:"best,omitempty"`
}

type GridSummary struct {
	Columns int     `yaml:"columns"`
	Rows    int     `yaml:"rows"`
	Step    float64 `yaml:"step"`
	Points  int     `yaml:"points"`
}

type PartitionSummary struct {
	K        float64 `yaml:"k"`
	Q1       float64 `yaml:"q1"`
	Q3       float64 `yaml:"q3"`
	Lower    float64 `yaml:"lower"`
	Upper    float64 `yaml:"upper"`
	Core     int     `yaml:"core"`
	Outliers int     `yaml:"outliers"`
}

type MethodSummary struct {
	Method    string             `yaml:"method"`
	Status    string             `yaml:"status"`
	Error     string             `yaml:"error,omitempty"`
	RMSE      *float64           `yaml:"rmse,omitempty"`
	Pairs     int                `yaml:"pairs"`
	Defined   int                `yaml:"defined"`
	Variogram *soilmap.Variogram `yaml:"variogram,omitempty"`
}

// Summarize condenses a pipeline report.
func Summarize(r *soilmap.Report, crs soilmap.CRSConfig) Report {
	out := Report{
		Samples: len(r.Samples),
		CRS:     crs,
		Grid: GridSummary{
			Columns: r.Grid.Columns,
			Rows:    r.Grid.Rows,
			Step:    r.Grid.Step,
			Points:  r.Grid.Len(),
		},
		Partition: PartitionSummary{
			K:        r.Partition.K,
			Q1:       r.Partition.Q1,
			Q3:       r.Partition.Q3,
			Lower:    r.Partition.Lower,
			Upper:    r.Partition.Upper,
			Core:     len(r.Partition.Core),
			Outliers: len(r.Partition.Outlier),
		},
	}
	for _, s := range r.Samples {
		if s.Valid {
			out.ValidSamples++
		}
	}

	for _, res := range r.Results {
		ms := MethodSummary{Method: string(res.Method), Status: StatusOK}
		switch {
		case eris.Is(res.Err, soilmap.ErrSkewSplitNotApplicable):
			ms.Status = StatusNotApplicable
			ms.Error = res.Err.Error()
		case res.Err != nil:
			ms.Status = StatusFailed
			ms.Error = res.Err.Error()
		}
		if res.OK() {
			ms.Pairs = res.Score.Pairs
			ms.Defined = res.Surface.DefinedCount()
			ms.Variogram = res.Surface.Variogram
			if res.Score.Scored() {
				rmse := res.Score.RMSE
				ms.RMSE = &rmse
			}
		}
		out.Methods = append(out.Methods, ms)
	}

	if r.HasBest {
		out.Best = string(r.Best)
	}
	return out
}

func WriteReport(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return eris.Wrap(err, "export: encode report")
	}
	return eris.Wrap(enc.Close(), "export: close report")
}
