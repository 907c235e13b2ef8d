/*
 * pamm.go, part of gopamm.
 *
 * Copyright 2026 Raul Mera <rmera{at}usachDOTcl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */
/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

package pamm

import (
	"fmt"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultRegularization is the default floor added to the kernel-density
// denominator. It guarantees that responsibilities are well-defined (and
// simply zero) even where every kernel has decayed to nothing.
const DefaultRegularization = 0.001

// stepKind enumerates the typed step descriptors of an evaluation plan.
type stepKind int

const (
	stepKernel  stepKind = iota //evaluate one kernel at the current point
	stepCombine                 //sum all kernel values and add the regularization floor
	stepRatio                   //one kernel value over the regularized sum, quotient-rule gradient
)

// step is one descriptor in the evaluation plan. The plan is built once at
// setup, from the CV list and the kernel file, and then executed identically
// every simulation step; nothing about the plan depends on the data seen.
type step struct {
	kind   stepKind
	kernel int //kernel index, for stepKernel and stepRatio
	label  string
}

// PAMM evaluates the responsibilities of a fitted kernel mixture, with
// derivatives, for one evaluation point per simulation step. The zero value
// is not usable; build one with NewPAMM or NewPAMMFromSet. Once built, a
// PAMM is immutable and safe for concurrent use.
type PAMM struct {
	data     []string //ordered input CV names; their count is the dimensionality
	ks       *KernelSet
	reg      float64
	label    string
	plan     []step
	nworkers int
}

// Option changes the configuration of a PAMM under construction.
type Option func(*PAMM)

// WithRegularization sets the floor added to the denominator sum.
func WithRegularization(reg float64) Option {
	return func(p *PAMM) { p.reg = reg }
}

// WithLabel sets the label used to name the outputs (default "pamm",
// yielding "pamm-1", "pamm-2"...).
func WithLabel(label string) Option {
	return func(p *PAMM) { p.label = label }
}

// WithWorkers sets the number of goroutines used for kernel and batch
// evaluation. n<=1 means fully sequential evaluation.
func WithWorkers(n int) Option {
	return func(p *PAMM) { p.nworkers = n }
}

// NewPAMM reads the kernel definition file clustersFile and sets up the
// evaluation pipeline for the ordered CV list data.
func NewPAMM(data []string, clustersFile string, opts ...Option) (*PAMM, error) {
	ks, err := ReadKernels(clustersFile, data)
	if err != nil {
		return nil, errDecorate(err, "NewPAMM")
	}
	p, err := NewPAMMFromSet(data, ks, opts...)
	if err != nil {
		return nil, errDecorate(err, "NewPAMM")
	}
	return p, nil
}

// NewPAMMFromSet sets up the pipeline over an already-loaded KernelSet.
// The dimensionality declared by data must match the kernel set's.
func NewPAMMFromSet(data []string, ks *KernelSet, opts ...Option) (*PAMM, error) {
	if data == nil || ks == nil {
		panic(ErrNilData)
	}
	if len(data) != ks.Dim() {
		return nil, dimensionMismatch("NewPAMMFromSet", "%d input CVs given for %d-dimensional kernels", len(data), ks.Dim())
	}
	p := new(PAMM)
	p.data = make([]string, len(data))
	copy(p.data, data)
	p.ks = ks
	p.reg = DefaultRegularization
	p.label = "pamm"
	p.nworkers = runtime.NumCPU()
	for _, o := range opts {
		o(p)
	}
	if p.reg <= 0 {
		return nil, CError{fmt.Sprintf("regularization floor must be positive, got %g", p.reg), []string{"NewPAMMFromSet"}, errGeneric}
	}
	p.buildPlan()
	return p, nil
}

// buildPlan expands the configured mixture into the ordered step list:
// one kernel evaluation per kernel, the regularized combination, and one
// ratio per kernel. The labels mirror the chain of actions the equivalent
// PLUMED input would create.
func (p *PAMM) buildPlan() {
	n := p.ks.Len()
	p.plan = make([]step, 0, 2*n+1)
	for k := 0; k < n; k++ {
		p.plan = append(p.plan, step{stepKernel, k, fmt.Sprintf("%s_kernel-%d", p.label, k+1)})
	}
	p.plan = append(p.plan, step{stepCombine, -1, p.label + "_rksum"})
	for k := 0; k < n; k++ {
		p.plan = append(p.plan, step{stepRatio, k, fmt.Sprintf("%s-%d", p.label, k+1)})
	}
}

// NKernels returns the number of kernels, i.e. of responsibility outputs.
func (p *PAMM) NKernels() int { return p.ks.Len() }

// Dim returns the number of input CVs.
func (p *PAMM) Dim() int { return len(p.data) }

// Data returns the ordered input CV names.
func (p *PAMM) Data() []string {
	d := make([]string, len(p.data))
	copy(d, p.data)
	return d
}

// Regularization returns the denominator floor in use.
func (p *PAMM) Regularization() float64 { return p.reg }

// Evaluate runs the plan on one evaluation point, returning one named
// responsibility per kernel with gradient and virial contribution. All
// kernel evaluations complete (concurrently, each writing to its own slot)
// before the denominator is formed; the responsibilities and their
// quotient-rule gradients,
//
//	ds_k/dx = (dv_k/dx * den - v_k * sum_j dv_j/dx) / den^2
//
// are computed after that barrier. Evaluate never divides by zero: the
// denominator is at least the regularization floor.
func (p *PAMM) Evaluate(point []float64) (*Responsibilities, error) {
	if point == nil {
		panic(ErrNilData)
	}
	if len(point) != len(p.data) {
		panic(ErrShape)
	}
	n := p.ks.Len()
	d := len(p.data)
	vals := make([]float64, n)
	grads := make([][]float64, n)
	for k := range grads {
		grads[k] = make([]float64, d)
	}
	p.evalKernels(point, vals, grads)
	R := &Responsibilities{Values: make([]*Value, 0, n)}
	gradsum := make([]float64, d)
	for _, s := range p.plan {
		switch s.kind {
		case stepKernel:
			//already evaluated above, behind the barrier
		case stepCombine:
			R.Denom = floats.Sum(vals) + p.reg
			for _, g := range grads {
				floats.Add(gradsum, g)
			}
		case stepRatio:
			k := s.kernel
			v := &Value{Name: s.label, V: vals[k] / R.Denom, Derivs: make([]float64, d)}
			for i := 0; i < d; i++ {
				v.Derivs[i] = (grads[k][i]*R.Denom - vals[k]*gradsum[i]) / (R.Denom * R.Denom)
			}
			v.setVirial(point)
			R.Values = append(R.Values, v)
		}
	}
	return R, nil
}

// evalKernels fills vals[k] and grads[k] for every kernel, fanning out over
// a bounded worker pool when it is worth it.
func (p *PAMM) evalKernels(point []float64, vals []float64, grads [][]float64) {
	n := len(vals)
	nw := p.nworkers
	if nw > n {
		nw = n
	}
	if nw <= 1 || n < 4 {
		for k := 0; k < n; k++ {
			vals[k] = p.ks.Kernel(k).Evaluate(point, grads[k])
		}
		return
	}
	var wg sync.WaitGroup
	work := make(chan int)
	for w := 0; w < nw; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range work {
				vals[k] = p.ks.Kernel(k).Evaluate(point, grads[k])
			}
		}()
	}
	for k := 0; k < n; k++ {
		work <- k
	}
	close(work)
	wg.Wait() //the reduction barrier: nothing downstream reads vals/grads before this
}

// SimilarityMatrix turns a frames-by-kernels responsibility matrix into the
// frames-by-frames similarity relation S = R R^T: S_ij is large when frames
// i and j put their responsibility on the same motifs. Thresholding S and
// clustering it groups the frames by motif; the cluster subpackage consumes
// exactly this kind of matrix.
func SimilarityMatrix(resp mat.Matrix) *mat.Dense {
	if resp == nil {
		panic(ErrNilData)
	}
	n, _ := resp.Dims()
	s := mat.NewDense(n, n, nil)
	s.Mul(resp, resp.T())
	return s
}

// Step reads the current CV values from src and evaluates them. The names
// reported by src must match, in order, the CV list the PAMM was built with.
func (p *PAMM) Step(src Source) (*Responsibilities, error) {
	names := src.Names()
	if len(names) != len(p.data) {
		return nil, dimensionMismatch("Step", "source provides %d CVs, pipeline wants %d", len(names), len(p.data))
	}
	for i, n := range names {
		if n != p.data[i] {
			return nil, dimensionMismatch("Step", "source CV %d is %q, pipeline wants %q", i+1, n, p.data[i])
		}
	}
	point, err := src.Values(make([]float64, len(p.data)))
	if err != nil {
		return nil, CError{"can't read CV values: " + err.Error(), []string{"Step"}, errGeneric}
	}
	return p.Evaluate(point)
}

// EvaluateBatch evaluates every row of frames (one evaluation point per row)
// and returns the frames-by-kernels responsibility matrix, the raw material
// for adjacency building. Rows are independent, so they are processed
// concurrently, each one writing only its own row of the result.
func (p *PAMM) EvaluateBatch(frames *mat.Dense) (*mat.Dense, error) {
	if frames == nil {
		panic(ErrNilData)
	}
	nf, d := frames.Dims()
	if d != len(p.data) {
		return nil, dimensionMismatch("EvaluateBatch", "frames have %d columns, pipeline wants %d", d, len(p.data))
	}
	n := p.ks.Len()
	out := mat.NewDense(nf, n, nil)
	dorow := func(r int) {
		point := frames.RawRowView(r)
		row := out.RawRowView(r)
		for k := 0; k < n; k++ {
			row[k] = p.ks.Kernel(k).Evaluate(point, nil)
		}
		den := floats.Sum(row) + p.reg
		floats.Scale(1/den, row)
	}
	nw := p.nworkers
	if nw > nf {
		nw = nf
	}
	if nw <= 1 {
		for r := 0; r < nf; r++ {
			dorow(r)
		}
		return out, nil
	}
	var wg sync.WaitGroup
	work := make(chan int)
	for w := 0; w < nw; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range work {
				dorow(r)
			}
		}()
	}
	for r := 0; r < nf; r++ {
		work <- r
	}
	close(work)
	wg.Wait()
	return out, nil
}
