package export

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

var errEmptyResult = errors.New("export: result has no samples")

// ChartOptions controls chart rendering. Zero sizes fall back to 16x10 cm.
type ChartOptions struct {
	Title  string
	Width  vg.Length
	Height vg.Length

	// Nodes limits the plotted series. Empty means every node.
	Nodes []string

	// Measurements are overlaid as points in the colour of their node.
	Measurements []thermal.Measurement
}

func (o ChartOptions) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 16 * vg.Centimeter
	}
	if h <= 0 {
		h = 10 * vg.Centimeter
	}
	return w, h
}

// Chart builds a temperature-versus-time plot of a result.
func Chart(r *thermal.Result, opts ChartOptions) (*plot.Plot, error) {
	if r == nil || len(r.Times) == 0 {
		return nil, errEmptyResult
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "temperature (°C)"
	p.Add(plotter.NewGrid())

	wanted := make(map[string]bool, len(opts.Nodes))
	for _, id := range opts.Nodes {
		wanted[id] = true
	}

	colour := make(map[string]int)
	for _, s := range r.Series {
		if len(wanted) > 0 && !wanted[s.NodeID] {
			continue
		}
		i := len(colour)
		colour[s.NodeID] = i

		pts := make(plotter.XYs, len(r.Times))
		for k, t := range r.Times {
			pts[k].X = t
			pts[k].Y = s.Temperatures[k]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", s.NodeID, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(s.NodeID, line)
	}

	for _, m := range opts.Measurements {
		i, ok := colour[m.NodeID]
		if !ok || len(m.Times) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(m.Times))
		for k := range m.Times {
			pts[k].X = m.Times[k]
			pts[k].Y = m.Temperatures[k]
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("measurement %s: %w", m.NodeID, err)
		}
		sc.Color = plotutil.Color(i)
		sc.Shape = plotutil.Shape(i)
		sc.Radius = vg.Points(2)
		p.Add(sc)
	}

	p.Legend.Top = true
	return p, nil
}

// SaveChart renders a chart to path. The format follows the extension
// (.png, .svg, .pdf, ...).
func SaveChart(path string, r *thermal.Result, opts ChartOptions) error {
	p, err := Chart(r, opts)
	if err != nil {
		return err
	}
	w, h := opts.size()
	return p.Save(w, h, path)
}

// WriteChart renders a chart in the given format ("png", "svg", ...).
func WriteChart(dst io.Writer, format string, r *thermal.Result, opts ChartOptions) error {
	p, err := Chart(r, opts)
	if err != nil {
		return err
	}
	w, h := opts.size()
	wt, err := p.WriterTo(w, h, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(dst)
	return err
}
