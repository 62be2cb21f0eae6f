package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	soilmap "github.com/dthill196/syracuse-soil-metal-biomarker-study"
	"github.com/dthill196/syracuse-soil-metal-biomarker-study/internal/config"
	"github.com/dthill196/syracuse-soil-metal-biomarker-study/internal/export"
	"github.com/dthill196/syracuse-soil-metal-biomarker-study/internal/ingest"
)

var (
	gridSamples string
	gridOutput  string
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Write the prediction grid for a sample table",
	RunE: func(cmd *cobra.Command, args []string) error {
		if gridSamples != "" {
			cfg.Input.Samples = gridSamples
		}
		if gridOutput == "" {
			return writeGrid(cfg, cmd.OutOrStdout())
		}
		return writeFile(gridOutput, func(f *os.File) error {
			return writeGrid(cfg, f)
		})
	},
}

func init() {
	gridCmd.Flags().StringVar(&gridSamples, "samples", "", "sample CSV (overrides input.samples)")
	gridCmd.Flags().StringVar(&gridOutput, "output", "", "write CSV to file (default: stdout)")
	rootCmd.AddCommand(gridCmd)
}

func writeGrid(c *config.Config, w io.Writer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	proj, err := soilmap.NewProjector(c.CRS)
	if err != nil {
		return eris.Wrap(err, "grid: configure projection")
	}
	samples, err := ingest.LoadSamples(c.Input.Samples, sampleColumns(c))
	if err != nil {
		return err
	}

	grid, err := soilmap.BuildGrid(samples, c.Grid.Resolution)
	if err != nil {
		return err
	}
	if grid, err = proj.ProjectGrid(grid); err != nil {
		return err
	}

	var boundary ingest.Boundary
	if c.Input.Boundary != "" {
		if boundary, err = ingest.LoadBoundary(c.Input.Boundary); err != nil {
			return err
		}
	}
	return export.WriteCSV(w, export.GridRows(grid, boundary))
}
