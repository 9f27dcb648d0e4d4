package dataset

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/stopcast/pkg/errors"
	"github.com/YuminosukeSato/stopcast/pkg/log"
)

const sampleCSV = `,Stop A,Stop B,Stop C
2024-03-05 08:15:00,3,NaN,
2024-03-04 07:00:00,5,2,
2024-03-06 23:59:30,4.0,null,
2024-03-04 07:00:00,6,1,NA
`

func TestParse(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"Stop A", "Stop B", "Stop C"}, table.Stops)
	require.Len(t, table.Timestamps, 4)
	assert.Equal(t, time.Date(2024, 3, 5, 8, 15, 0, 0, time.UTC), table.Timestamps[0])
	assert.Equal(t, 3.0, table.Values[0][0])
	assert.True(t, math.IsNaN(table.Values[0][1]))
	assert.True(t, math.IsNaN(table.Values[2][1]))
	assert.True(t, math.IsNaN(table.Values[3][2]))
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		param string
	}{
		{"empty", "", "header"},
		{"no stops", "timestamp\n2024-03-04 07:00:00\n", "header"},
		{"ragged row", ",A,B\n2024-03-04 07:00:00,1\n", "csv"},
		{"bad timestamp", ",A\nyesterday-ish,1\n", "timestamp"},
		{"bad count", ",A\n2024-03-04 07:00:00,many\n", "A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			var verr *errors.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.param, verr.ParamName)
		})
	}
}

func TestPartition(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	series := table.Partition()
	require.Len(t, series, 3)

	a := series[0]
	assert.Equal(t, 0, a.ID)
	assert.Equal(t, "Stop A", a.Name)
	require.Equal(t, 4, a.Len())
	// sorted by time; the two 07:00 records keep file order
	assert.Equal(t, []float64{5, 6, 3, 4}, []float64{
		a.Records[0].Count, a.Records[1].Count, a.Records[2].Count, a.Records[3].Count,
	})

	b := series[1]
	assert.Equal(t, 1, b.ID)
	assert.Equal(t, 2, b.Len())

	c := series[2]
	assert.Equal(t, 2, c.ID)
	assert.Equal(t, 0, c.Len())
}

func TestFeatures(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	series := table.Partition()

	X, y := Features(series[0])
	require.NotNil(t, X)
	rows, cols := X.Dims()
	assert.Equal(t, 4, rows)
	assert.Equal(t, len(FeatureNames), cols)

	// 2024-03-06 23:59:30 is a Wednesday, two days after the first record
	assert.Equal(t, []float64{23, 59, 2, 2, 0}, []float64{X.At(3, 0), X.At(3, 1), X.At(3, 2), X.At(3, 3), X.At(3, 4)})
	// 2024-03-04 is a Monday
	assert.Equal(t, 0.0, X.At(0, 3))
	assert.Equal(t, 4.0, y.AtVec(3))

	X, y = Features(series[2])
	assert.Nil(t, X)
	assert.Nil(t, y)
}

func quietLoader(path, url string) *Loader {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	return NewLoader(path, url, WithQuiet(true), WithLogger(logger))
}

func TestLoaderLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loader.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	// the remote source must not be touched
	table, err := quietLoader(path, "http://127.0.0.1:0/unused.csv").Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, table.Stops, 3)
}

func TestLoaderRemoteFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	missing := filepath.Join(t.TempDir(), "missing.csv")
	table, err := quietLoader(missing, srv.URL).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, table.Timestamps, 4)

	table, err = quietLoader("", srv.URL).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, table.Stops, 3)
}

func TestLoaderDataUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	missing := filepath.Join(t.TempDir(), "missing.csv")
	_, err := quietLoader(missing, srv.URL).Load(context.Background())
	require.Error(t, err)

	var due *errors.DataUnavailableError
	require.True(t, errors.As(err, &due), "got %v", err)
	assert.Equal(t, []string{missing, srv.URL}, due.Sources)
	assert.Contains(t, err.Error(), "404")
}

func TestLoaderUnreachableRemote(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := quietLoader("", url).Load(context.Background())
	var due *errors.DataUnavailableError
	assert.True(t, errors.As(err, &due), "got %v", err)
}

func TestLoaderMalformedIsNotUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("only-one-column\n"), 0o644))

	_, err := quietLoader(path, "").Load(context.Background())
	require.Error(t, err)

	var verr *errors.ValidationError
	assert.True(t, errors.As(err, &verr))
	var due *errors.DataUnavailableError
	assert.False(t, errors.As(err, &due))
}
