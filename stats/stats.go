//Package stats computes population statistics over cluster assignments and
//responsibility trajectories: occupation fractions, free-energy estimates
//and responsibility histograms. Nothing here is differentiable; these are
//analysis-side numbers, not CVs.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/rmera/gopamm/cluster"
)

// Populations returns the fraction of nodes in each cluster of a. The
// fractions add up to 1.
func Populations(a *cluster.Assignment) []float64 {
	if a == nil {
		panic("goPAMM/stats: nil assignment given")
	}
	n := float64(a.N())
	pop := make([]float64, a.NumClusters())
	for c := range pop {
		pop[c] = float64(a.Size(c)) / n
	}
	return pop
}

// FreeEnergies turns populations into free-energy estimates, -kT*ln(p),
// shifted so the most populated state sits at zero. Empty states get +Inf,
// which is the honest answer: we never saw them.
func FreeEnergies(pop []float64, kT float64) []float64 {
	fes := make([]float64, len(pop))
	min := math.Inf(1)
	for i, p := range pop {
		if p <= 0 {
			fes[i] = math.Inf(1)
			continue
		}
		fes[i] = -kT * math.Log(p)
		if fes[i] < min {
			min = fes[i]
		}
	}
	if !math.IsInf(min, 1) {
		for i := range fes {
			fes[i] -= min
		}
	}
	return fes
}

// MeanResponsibilities returns the per-kernel mean over all frames of a
// frames-by-kernels responsibility matrix, i.e. the average weight of each
// motif along the trajectory.
func MeanResponsibilities(resp mat.Matrix) []float64 {
	nf, nk := resp.Dims()
	means := make([]float64, nk)
	col := make([]float64, nf)
	for k := 0; k < nk; k++ {
		mat.Col(col, k, resp)
		means[k] = stat.Mean(col, nil)
	}
	return means
}

// Histogram bins the responsibilities of kernel k over all frames of resp
// into nbins equal-width bins spanning [0,1]. It returns the nbins+1 bin
// dividers and the per-bin counts.
func Histogram(resp mat.Matrix, k, nbins int) (dividers, counts []float64) {
	nf, nk := resp.Dims()
	if k < 0 || k >= nk {
		panic("goPAMM/stats: requested kernel out of bounds")
	}
	if nbins < 1 {
		panic("goPAMM/stats: need at least one bin")
	}
	col := make([]float64, nf)
	mat.Col(col, k, resp)
	sort.Float64s(col) //stat.Histogram wants its samples sorted
	dividers = floats.Span(make([]float64, nbins+1), 0, 1)
	//responsibilities can be exactly 1, and the last divider is exclusive
	dividers[nbins] = math.Nextafter(1, 2)
	counts = stat.Histogram(nil, dividers, col, nil)
	return dividers, counts
}
