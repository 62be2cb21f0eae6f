package export

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	vec2d "github.com/flywave/go3d/float64/vec2"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	soilmap "github.com/dthill196/syracuse-soil-metal-biomarker-study"
	"github.com/dthill196/syracuse-soil-metal-biomarker-study/internal/ingest"
)

func fixtureSurface(t *testing.T) *soilmap.Surface {
	t.Helper()
	grid, err := soilmap.CalculateGrid(vec2d.Rect{Min: vec2d.T{-76.2, 43.0}, Max: vec2d.T{-76.1, 43.1}}, 0.1)
	require.NoError(t, err)
	require.Equal(t, 4, grid.Len())

	return &soilmap.Surface{
		Method: soilmap.MethodTIN,
		Grid:   grid,
		Predictions: []soilmap.Prediction{
			{Value: 1.5, Defined: true},
			{},
			{Value: 3, Defined: true},
			{Value: 4.25, Defined: true},
		},
	}
}

func square() ingest.Boundary {
	return ingest.Boundary{MultiPolygon: orb.MultiPolygon{{{
		{-76.25, 42.95}, {-76.15, 42.95}, {-76.15, 43.15}, {-76.25, 43.15}, {-76.25, 42.95},
	}}}}
}

func TestSurfaceCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, SurfaceRows(fixtureSurface(t), square())))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "index,row,column,longitude,latitude,x,y,inside,method,value,variance", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0,0,0,"))
	assert.True(t, strings.HasSuffix(lines[1], ",true,tin,1.5,NA"))
	assert.True(t, strings.HasSuffix(lines[2], ",false,tin,NA,NA"))
	assert.True(t, strings.HasPrefix(lines[3], "2,1,0,"))
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV[GridRow](&buf, nil))
	assert.Equal(t, "index,row,column,longitude,latitude,x,y,inside\n", buf.String())
}

func TestJoinParticipants(t *testing.T) {
	ps := []ingest.Participant{
		{ID: "P1", Longitude: ingest.Measure{Value: -76.2, Valid: true}, Latitude: ingest.Measure{Value: 43, Valid: true}, Outcome: ingest.Measure{Value: 2, Valid: true}},
		{ID: "P2"},
	}
	links := []soilmap.Link{
		{Target: 0, GridIndex: 0, Distance: 12.5, Prediction: soilmap.Prediction{Value: 1.5, Defined: true}},
		{Target: 1, GridIndex: -1, Distance: math.NaN()},
	}

	rows, err := JoinParticipants(ps, links, soilmap.MethodTIN)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ingest.Measure{Value: 1.5, Valid: true}, rows[0].Predicted)
	assert.Equal(t, ingest.Measure{Value: 12.5, Valid: true}, rows[0].Distance)
	assert.Equal(t, -1, rows[1].GridIndex)
	assert.False(t, rows[1].Distance.Valid)
	assert.False(t, rows[1].Predicted.Valid)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))
	assert.Contains(t, buf.String(), "P2,NA,NA,NA,tin,-1,NA,NA")

	fc := ParticipantFeatures(rows)
	assert.Len(t, fc.Features, 1)

	_, err = JoinParticipants(ps, links[:1], soilmap.MethodTIN)
	assert.Error(t, err)
}

func TestSurfaceGeoJSON(t *testing.T) {
	fc := SurfaceFeatures(fixtureSurface(t), ingest.Boundary{})
	fc.Append(BoundaryFeature(square()))

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, fc))

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 5)
	assert.Equal(t, "Point", doc.Features[0].Geometry.Type)
	assert.Equal(t, 1.5, doc.Features[0].Properties["value"])
	assert.Nil(t, doc.Features[1].Properties["value"])
	assert.NotContains(t, doc.Features[0].Properties, "variance")
	assert.Equal(t, "MultiPolygon", doc.Features[4].Geometry.Type)
}

func TestReport(t *testing.T) {
	s := fixtureSurface(t)
	ok := &soilmap.Surface{Method: soilmap.MethodOK, Grid: s.Grid, Predictions: s.Predictions,
		Variogram: &soilmap.Variogram{Model: soilmap.Spherical, Nugget: 0.1, PartialSill: 2, Range: 500}}

	r := &soilmap.Report{
		Samples: []soilmap.Sample{{Valid: true}, {Valid: true}, {}},
		Grid:    s.Grid,
		Partition: soilmap.Partition{
			Core: []int{0}, Outlier: []int{1}, K: 1.25, Q1: 10, Q3: 12, IQR: 2, Lower: 7.5, Upper: 14.5,
		},
		Results: []soilmap.MethodResult{
			{Method: soilmap.MethodOK, Surface: ok, Score: soilmap.Score{Method: soilmap.MethodOK, RMSE: 0.5, Pairs: 2}},
			{Method: soilmap.MethodTIN, Surface: s, Score: soilmap.Score{Method: soilmap.MethodTIN, RMSE: math.NaN()}},
			{Method: soilmap.MethodCombined, Err: eris.Wrap(soilmap.ErrInsufficientData, "skew-split: outlier triangulation")},
		},
		Best:    soilmap.MethodOK,
		HasBest: true,
	}

	sum := Summarize(r, soilmap.DefaultCRS())
	assert.Equal(t, 3, sum.Samples)
	assert.Equal(t, 2, sum.ValidSamples)
	assert.Equal(t, 1, sum.Partition.Outliers)
	require.Len(t, sum.Methods, 3)
	assert.Equal(t, StatusOK, sum.Methods[0].Status)
	require.NotNil(t, sum.Methods[0].RMSE)
	assert.Equal(t, 0.5, *sum.Methods[0].RMSE)
	assert.Equal(t, 3, sum.Methods[0].Defined)
	assert.Nil(t, sum.Methods[1].RMSE)
	assert.Equal(t, StatusFailed, sum.Methods[2].Status)
	assert.Equal(t, "ok", sum.Best)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sum))

	var back Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "ok", back.Best)
	require.NotNil(t, back.Methods[0].Variogram)
	assert.Equal(t, soilmap.Spherical, back.Methods[0].Variogram.Model)
	assert.Contains(t, buf.String(), "status: failed")
}
