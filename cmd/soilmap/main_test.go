package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dthill196/syracuse-soil-metal-biomarker-study/internal/config"
	"github.com/dthill196/syracuse-soil-metal-biomarker-study/internal/export"
)

const samplesCSV = `id,longitude,latitude,pb
1,-76.18,43.02,10
2,-76.12,43.02,12
3,-76.18,43.08,11
4,-76.12,43.08,9
5,-76.15,43.05,200
6,-76.16,43.03,NA
`

const participantsCSV = `id,longitude,latitude,bll
A,-76.15,43.05,3.1
B,-76.17,43.07,1.2
C,,,2.0
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "samples.csv"), []byte(samplesCSV), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "participants.csv"), []byte(participantsCSV), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "soilmap.yaml"), []byte(`
input:
  samples: `+filepath.Join(dir, "samples.csv")+`
  participants: `+filepath.Join(dir, "participants.csv")+`
  value_column: pb
  outcome_column: bll
grid:
  resolution: 0.005
kriging:
  model: exponential
  workers: 2
output:
  dir: `+filepath.Join(dir, "out")+`
log:
  level: error
`), 0644))

	c, err := config.Load(filepath.Join(dir, "soilmap.yaml"))
	require.NoError(t, err)
	return c
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"run", "grid"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestRunPipeline(t *testing.T) {
	c := testConfig(t)
	require.NoError(t, runPipeline(c))

	out := c.Output.Dir
	for _, name := range []string{
		"report.yaml",
		"surface_ok.csv", "surface_ok.geojson", "surface_ok.png",
		"surface_tin.csv", "surface_tin.geojson",
		"participants.csv", "participants.geojson", "participants.png",
	} {
		assert.FileExists(t, filepath.Join(out, name))
	}
	assert.NoFileExists(t, filepath.Join(out, "surface_combined.csv"))

	data, err := os.ReadFile(filepath.Join(out, "report.yaml"))
	require.NoError(t, err)
	var rep export.Report
	require.NoError(t, yaml.Unmarshal(data, &rep))
	assert.Equal(t, 6, rep.Samples)
	assert.Equal(t, 5, rep.ValidSamples)
	assert.Equal(t, 13, rep.Grid.Columns)
	assert.NotEmpty(t, rep.Best)
	require.Len(t, rep.Methods, 3)
	assert.Equal(t, export.StatusFailed, rep.Methods[2].Status)

	joined, err := os.ReadFile(filepath.Join(out, "participants.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(joined)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "id,longitude,latitude,outcome,method,grid_index"))
	assert.True(t, strings.HasPrefix(lines[3], "C,NA,NA,2,"))
}

func TestRunPipelineExplicitMethod(t *testing.T) {
	c := testConfig(t)
	c.Output.Method = "combined"
	c.Output.Plots = false
	assert.Error(t, runPipeline(c))

	c.Output.Method = "ok"
	require.NoError(t, runPipeline(c))
	joined, err := os.ReadFile(filepath.Join(c.Output.Dir, "participants.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(joined), ",ok,")
}

func TestRunPipelineUnsupportedCRS(t *testing.T) {
	c := testConfig(t)
	c.CRS.Target = "EPSG:2263"
	assert.Error(t, runPipeline(c))
	assert.NoDirExists(t, c.Output.Dir)
}

func TestWriteGrid(t *testing.T) {
	c := testConfig(t)

	var buf bytes.Buffer
	require.NoError(t, writeGrid(c, &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1+13*13)
	assert.Equal(t, "index,row,column,longitude,latitude,x,y,inside", lines[0])
}
