package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	soilmap "github.com/dthill196/syracuse-soil-metal-biomarker-study"
	"github.com/dthill196/syracuse-soil-metal-biomarker-study/internal/config"
	"github.com/dthill196/syracuse-soil-metal-biomarker-study/internal/export"
	"github.com/dthill196/syracuse-soil-metal-biomarker-study/internal/ingest"
	"github.com/dthill196/syracuse-soil-metal-biomarker-study/internal/render"
)

var (
	runSamples      string
	runParticipants string
	runOut          string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run interpolation, scoring and participant linkage",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runSamples != "" {
			cfg.Input.Samples = runSamples
		}
		if runParticipants != "" {
			cfg.Input.Participants = runParticipants
		}
		if runOut != "" {
			cfg.Output.Dir = runOut
		}
		return runPipeline(cfg)
	},
}

func init() {
	runCmd.Flags().StringVar(&runSamples, "samples", "", "sample CSV (overrides input.samples)")
	runCmd.Flags().StringVar(&runParticipants, "participants", "", "participant CSV (overrides input.participants)")
	runCmd.Flags().StringVar(&runOut, "out", "", "output directory (overrides output.dir)")
	rootCmd.AddCommand(runCmd)
}

func sampleColumns(c *config.Config) ingest.Columns {
	return ingest.Columns{
		ID:        c.Input.IDColumn,
		Longitude: c.Input.LongitudeColumn,
		Latitude:  c.Input.LatitudeColumn,
		Value:     c.Input.ValueColumn,
	}
}

func runPipeline(c *config.Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	pipe, err := soilmap.NewPipeline(c.PipelineOptions())
	if err != nil {
		return eris.Wrap(err, "run: configure pipeline")
	}

	samples, err := ingest.LoadSamples(c.Input.Samples, sampleColumns(c))
	if err != nil {
		return err
	}

	var boundary ingest.Boundary
	if c.Input.Boundary != "" {
		if boundary, err = ingest.LoadBoundary(c.Input.Boundary); err != nil {
			return err
		}
	}

	report, err := pipe.Run(samples)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(c.Output.Dir, 0o755); err != nil {
		return eris.Wrapf(err, "run: create %s", c.Output.Dir)
	}
	if err := writeFile(filepath.Join(c.Output.Dir, "report.yaml"), func(f *os.File) error {
		return export.WriteReport(f, export.Summarize(report, pipe.Projector().Config()))
	}); err != nil {
		return err
	}

	for _, res := range report.Results {
		if !res.OK() {
			continue
		}
		if err := writeSurface(c, res.Surface, boundary, samples); err != nil {
			return err
		}
	}

	if c.Input.Participants == "" {
		zap.L().Info("run: no participant table configured")
		return nil
	}
	return linkParticipants(c, pipe, report)
}

func writeSurface(c *config.Config, s *soilmap.Surface, b ingest.Boundary, samples []soilmap.Sample) error {
	base := filepath.Join(c.Output.Dir, "surface_"+string(s.Method))
	if err := writeFile(base+".csv", func(f *os.File) error {
		return export.WriteCSV(f, export.SurfaceRows(s, b))
	}); err != nil {
		return err
	}

	fc := export.SurfaceFeatures(s, b)
	if len(b.MultiPolygon) > 0 {
		fc.Append(export.BoundaryFeature(b))
	}
	if err := writeFile(base+".geojson", func(f *os.File) error {
		return export.WriteGeoJSON(f, fc)
	}); err != nil {
		return err
	}

	if !c.Output.Plots {
		return nil
	}
	p, err := render.SurfaceMap(s, render.MapOptions{Boundary: b, Samples: samples})
	if err != nil {
		zap.L().Warn("run: surface map skipped", zap.String("method", string(s.Method)), zap.Error(err))
		return nil
	}
	return render.Save(p, base+".png")
}

func linkParticipants(c *config.Config, pipe *soilmap.Pipeline, report *soilmap.Report) error {
	ps, err := ingest.LoadParticipants(c.Input.Participants, ingest.Columns{
		ID:        c.Input.IDColumn,
		Longitude: c.Input.LongitudeColumn,
		Latitude:  c.Input.LatitudeColumn,
		Value:     c.Input.OutcomeColumn,
	})
	if err != nil {
		return err
	}

	method := report.Best
	if c.Output.Method != "" {
		if method, err = config.ParseMethod(c.Output.Method); err != nil {
			return err
		}
	} else if !report.HasBest {
		return eris.Wrap(soilmap.ErrEmptySurface, "run: no method to link participants to")
	}

	links, err := pipe.Link(report, method, ingest.Coordinates(ps))
	if err != nil {
		return err
	}
	rows, err := export.JoinParticipants(ps, links, method)
	if err != nil {
		return err
	}

	base := filepath.Join(c.Output.Dir, "participants")
	if err := writeFile(base+".csv", func(f *os.File) error {
		return export.WriteCSV(f, rows)
	}); err != nil {
		return err
	}
	if err := writeFile(base+".geojson", func(f *os.File) error {
		return export.WriteGeoJSON(f, export.ParticipantFeatures(rows))
	}); err != nil {
		return err
	}
	zap.L().Info("run: participants linked",
		zap.String("method", string(method)),
		zap.Int("participants", len(rows)),
	)

	if !c.Output.Plots {
		return nil
	}
	p, err := render.OutcomeScatter(rows, "Outcome vs predicted ("+string(method)+")")
	if err != nil {
		zap.L().Warn("run: outcome scatter skipped", zap.Error(err))
		return nil
	}
	return render.Save(p, base+".png")
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "run: create %s", path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "run: close %s", path)
}
