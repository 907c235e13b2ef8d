/*
 * kernel.go, part of gopamm.
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

package pamm

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

/*Note: Kernel evaluation panics instead of returning errors on nil data or
 * mismatched dimensions. These are "fundamental" functions called once per kernel
 * per simulation step: if something is wrong there, the program is way-most likely
 * wrong as a whole, and should crash. Everything dimension-related is checked once,
 * at setup, by the functions that do return errors.*/

// KernelFamily selects the functional form of a kernel.
type KernelFamily int

const (
	// Gaussian is the standard multivariate Gaussian lobe.
	Gaussian KernelFamily = iota
	// VonMises is the periodic analog, where the displacement enters the
	// quadratic form through the sine of the wrapped difference. It is the
	// natural choice when the underlying CVs are torsional angles.
	VonMises
)

func (f KernelFamily) String() string {
	if f == VonMises {
		return "von-misses" //PLUMED's spelling, kept for file compatibility
	}
	return "gaussian"
}

// DefaultPeriod is the period assumed for periodic dimensions unless
// the kernel says otherwise. CVs built from angles live in (-pi,pi].
const DefaultPeriod = 2 * math.Pi

// Kernel is one weighted, localized probability-density lobe of a fitted
// mixture: a center, an inverse covariance, and per-dimension periodicity
// metadata. Kernels are built once, at setup time, and never mutated, so
// one Kernel may be evaluated concurrently from many goroutines.
type Kernel struct {
	weight    float64
	center    []float64
	invSigma  *mat.SymDense
	normConst float64 //1/sqrt((2pi)^D |Sigma|), precomputed from the Cholesky factors
	periodic  []bool
	periods   []float64
	family    KernelFamily
}

// NewKernel builds a kernel from a weight, a center and a covariance matrix.
// The covariance is Cholesky-factorized on the spot: a matrix that is not
// symmetric positive-definite is rejected, as no probability density can be
// built from it. periodic and periods may be nil (nothing periodic); a zero
// entry in periods means DefaultPeriod.
func NewKernel(weight float64, center []float64, sigma *mat.SymDense, periodic []bool, periods []float64, family KernelFamily) (*Kernel, error) {
	if center == nil || sigma == nil {
		panic(ErrNilData)
	}
	d := len(center)
	if r := sigma.SymmetricDim(); r != d {
		return nil, dimensionMismatch("NewKernel", "covariance is %dx%d but the center has %d dimensions", r, r, d)
	}
	if periodic != nil && len(periodic) != d {
		return nil, dimensionMismatch("NewKernel", "got %d periodic flags for %d dimensions", len(periodic), d)
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sigma); !ok {
		return nil, malformedKernelFile("NewKernel", "covariance matrix is not positive-definite")
	}
	K := new(Kernel)
	K.weight = weight
	K.center = make([]float64, d)
	copy(K.center, center)
	K.invSigma = mat.NewSymDense(d, nil)
	if err := chol.InverseTo(K.invSigma); err != nil {
		return nil, malformedKernelFile("NewKernel", "can't invert covariance: %v", err)
	}
	//exp(-(D log(2pi) + log|Sigma|)/2), through logs to survive large D.
	K.normConst = math.Exp(-0.5 * (float64(d)*math.Log(2*math.Pi) + chol.LogDet()))
	K.periodic = make([]bool, d)
	K.periods = make([]float64, d)
	if periodic != nil {
		copy(K.periodic, periodic)
		for i, p := range K.periodic {
			if !p {
				continue
			}
			K.periods[i] = DefaultPeriod
			if periods != nil && periods[i] != 0 {
				K.periods[i] = periods[i]
			}
		}
	}
	K.family = family
	return K, nil
}

// Dim returns the dimensionality of the kernel.
func (K *Kernel) Dim() int { return len(K.center) }

// Weight returns the weight of the kernel in the mixture.
func (K *Kernel) Weight() float64 { return K.weight }

// Family returns the functional form of the kernel.
func (K *Kernel) Family() KernelFamily { return K.family }

// Center returns a copy of the kernel's center, in dst if given.
func (K *Kernel) Center(dst ...[]float64) []float64 {
	var c []float64
	if len(dst) > 0 && dst[0] != nil {
		if len(dst[0]) != len(K.center) {
			panic(ErrShape)
		}
		c = dst[0]
	} else {
		c = make([]float64, len(K.center))
	}
	copy(c, K.center)
	return c
}

// wrap maps delta into (-period/2, period/2], i.e. to the shortest periodic image.
func wrap(delta, period float64) float64 {
	d := math.Mod(delta, period)
	if d <= -period/2 {
		d += period
	} else if d > period/2 {
		d -= period
	}
	return d
}

// Evaluate computes the kernel density at point and, if grad is not nil, its
// gradient with respect to each coordinate of point, stored in grad. For
// Gaussian kernels,
//
//	value = weight * normConst * exp(-(Delta^T Sigma^-1 Delta)/2)
//
// with Delta the displacement from the center, wrapped to the closest
// periodic image on periodic dimensions. The gradient along dimension d is
// -value*(Sigma^-1 Delta)_d. Von Mises kernels replace Delta_d by
// (P/2pi)*sin(2pi*Delta_d/P), which makes value and gradient exactly
// invariant under full-period shifts. Far away from the center the
// exponential underflows and both value and gradient are simply zero;
// that is a fine, well-defined result, not an error.
func (K *Kernel) Evaluate(point []float64, grad []float64) float64 {
	if K == nil || point == nil {
		panic(ErrNilData)
	}
	d := len(K.center)
	if len(point) != d || (grad != nil && len(grad) != d) {
		panic(ErrShape)
	}
	delta := make([]float64, d)
	for i := range delta {
		dd := point[i] - K.center[i]
		if K.periodic[i] {
			dd = wrap(dd, K.periods[i])
		}
		delta[i] = dd
	}
	var jac []float64
	if K.family == VonMises {
		jac = make([]float64, d)
		for i := range delta {
			if !K.periodic[i] {
				jac[i] = 1
				continue
			}
			scale := K.periods[i] / (2 * math.Pi)
			theta := delta[i] / scale
			jac[i] = math.Cos(theta)
			delta[i] = scale * math.Sin(theta)
		}
	}
	sd := make([]float64, d) //Sigma^-1 Delta
	for i := 0; i < d; i++ {
		var s float64
		for j := 0; j < d; j++ {
			s += K.invSigma.At(i, j) * delta[j]
		}
		sd[i] = s
	}
	val := K.weight * K.normConst * math.Exp(-0.5*floats.Dot(delta, sd))
	if grad != nil {
		for i := range grad {
			g := -val * sd[i]
			if jac != nil {
				g *= jac[i]
			}
			grad[i] = g
		}
	}
	return val
}

// KernelSet is an ordered, immutable collection of kernels of the same
// dimensionality. The order is the order of the records in the definition
// file; it affects nothing mathematically but is preserved so output
// labels are reproducible.
type KernelSet struct {
	kernels []*Kernel
	dim     int
}

// NewKernelSet builds a KernelSet from a non-empty slice of kernels,
// checking that they all share the same dimensionality.
func NewKernelSet(kernels []*Kernel) (*KernelSet, error) {
	if len(kernels) == 0 {
		return nil, CError{"can't build a kernel set with no kernels", []string{"NewKernelSet"}, errGeneric}
	}
	d := kernels[0].Dim()
	for i, k := range kernels {
		if k.Dim() != d {
			return nil, dimensionMismatch("NewKernelSet", "kernel %d has dimension %d, expected %d", i+1, k.Dim(), d)
		}
	}
	S := &KernelSet{kernels: kernels, dim: d}
	return S, nil
}

// Len returns the number of kernels in the set.
func (S *KernelSet) Len() int { return len(S.kernels) }

// Dim returns the dimensionality shared by all kernels in the set.
func (S *KernelSet) Dim() int { return S.dim }

// Kernel returns the kernel corresponding to the index i, in file order.
// Panics if out of range.
func (S *KernelSet) Kernel(i int) *Kernel {
	if i < 0 || i >= len(S.kernels) {
		panic(PanicMsg("goPAMM: requested kernel out of bounds"))
	}
	return S.kernels[i]
}
