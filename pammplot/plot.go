//Package pammplot draws quick-look figures from PAMM/clustering results:
//2D evaluation points colored by cluster, and cluster-population bar charts.
//These are meant for eyeballing an analysis, not for publication-quality
//figures.
package pammplot

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/rmera/gopamm/cluster"
)

func basicPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	return p
}

// ClusterScatter plots the rows of points (which must have exactly 2
// columns) as a scatter, one color per cluster of a, and saves it as
// plotname.png. points and a must refer to the same nodes, in the same
// order.
func ClusterScatter(points *mat.Dense, a *cluster.Assignment, title, plotname string) error {
	if points == nil || a == nil {
		panic("goPAMM/pammplot: given nil data")
	}
	n, d := points.Dims()
	if d != 2 {
		return fmt.Errorf("pammplot: can only scatter 2D points, got %dD", d)
	}
	if n != a.N() {
		return fmt.Errorf("pammplot: %d points for %d clustered nodes", n, a.N())
	}
	p := basicPlot(title, "CV 1", "CV 2")
	nc := a.NumClusters()
	for c := 0; c < nc; c++ {
		members := a.Members(c)
		xys := make(plotter.XYs, len(members))
		for k, i := range members {
			xys[k].X = points.At(i, 0)
			xys[k].Y = points.At(i, 1)
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		r, g, b := colors(c, nc)
		s.GlyphStyle.Color = color.RGBA{R: r, G: g, B: b, A: 255}
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("cluster %d (%d)", c, a.Size(c)), s)
	}
	return p.Save(5*vg.Inch, 5*vg.Inch, plotname+".png")
}

// PopulationBars plots one bar per cluster with its occupation fraction,
// and saves it as plotname.png.
func PopulationBars(pop []float64, title, plotname string) error {
	if pop == nil {
		panic("goPAMM/pammplot: given nil data")
	}
	p := basicPlot(title, "cluster", "population")
	bars, err := plotter.NewBarChart(plotter.Values(pop), vg.Points(20))
	if err != nil {
		return err
	}
	r, g, b := colors(0, 1)
	bars.Color = color.RGBA{R: r, G: g, B: b, A: 255}
	p.Add(bars)
	names := make([]string, len(pop))
	for i := range names {
		names[i] = fmt.Sprintf("%d", i)
	}
	p.NominalX(names...)
	return p.Save(5*vg.Inch, 4*vg.Inch, plotname+".png")
}

// colors spreads index key among total hues and returns it as RGB.
func colors(key, total int) (uint8, uint8, uint8) {
	h := 360.0 * float64(key) / float64(total)
	return iHVS2RGB(h, 0.85, 0.9)
}

//takes hue (0-360), v and s (0-1), returns r,g,b (0-255)
func iHVS2RGB(h, v, s float64) (uint8, uint8, uint8) {
	var i, f, p, q, t float64
	var r, g, b float64
	maxcolor := 255.0
	conversion := maxcolor * v
	if s == 0.0 {
		return uint8(conversion), uint8(conversion), uint8(conversion)
	}
	h = h / 60
	i = math.Floor(h)
	f = h - i
	p = v * (1 - s)
	q = v * (1 - s*f)
	t = v * (1 - s*(1-f))
	switch int(i) {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return uint8(r * maxcolor), uint8(g * maxcolor), uint8(b * maxcolor)
}
