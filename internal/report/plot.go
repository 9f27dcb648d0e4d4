package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/stopcast/internal/pipeline"
	"github.com/YuminosukeSato/stopcast/pkg/errors"
)

// PlotWriter renders actual against predicted counts as a PNG per stop.
type PlotWriter struct {
	Dir    string
	Width  vg.Length
	Height vg.Length
}

func NewPlotWriter(dir string) *PlotWriter {
	return &PlotWriter{Dir: dir, Width: 10 * vg.Inch, Height: 4 * vg.Inch}
}

// PlotName returns the plot file name of a stop.
func PlotName(stopID int) string {
	return fmt.Sprintf("predictions_stop_%d.png", stopID)
}

// Write implements pipeline.Sink. Stops without predictions are skipped.
func (w *PlotWriter) Write(res *pipeline.StopResult) (string, error) {
	if res.Len() == 0 {
		return "", nil
	}
	path := filepath.Join(w.Dir, PlotName(res.StopID))
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return path, errors.NewWriteError(path, err)
	}

	p, err := newPlot(res)
	if err != nil {
		return path, err
	}
	if err := p.Save(w.Width, w.Height, path); err != nil {
		return path, errors.NewWriteError(path, err)
	}
	return path, nil
}

func newPlot(res *pipeline.StopResult) (*plot.Plot, error) {
	actual := make(plotter.XYs, res.Len())
	predicted := make(plotter.XYs, res.Len())
	for i, pr := range res.Predictions {
		x := float64(pr.Time.Unix())
		actual[i] = plotter.XY{X: x, Y: pr.Actual}
		predicted[i] = plotter.XY{X: x, Y: float64(pr.Predicted)}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (MAE %.3f)", res.StopName, res.MAE)
	p.X.Label.Text = "time"
	p.Y.Label.Text = "passengers"
	p.X.Tick.Marker = plot.TimeTicks{Format: "01-02 15:04"}
	p.Add(plotter.NewGrid())

	actualLine, err := plotter.NewLine(actual)
	if err != nil {
		return nil, errors.Wrap(err, "actual series")
	}
	actualLine.Color = color.RGBA{B: 200, A: 255}

	predLine, err := plotter.NewLine(predicted)
	if err != nil {
		return nil, errors.Wrap(err, "predicted series")
	}
	predLine.Color = color.RGBA{R: 220, A: 255}
	predLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(actualLine, predLine)
	p.Legend.Add("actual", actualLine)
	p.Legend.Add("predicted", predLine)
	p.Legend.Top = true
	return p, nil
}
