/*
 * cv.go, part of gopamm.
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

import "gonum.org/v1/gonum/floats"

// Source provides the current values of an ordered list of named scalar
// collective variables. It is the upstream side of the pipeline: the host MD
// engine (or a trajectory reader) recomputes these once per simulation step.
type Source interface {
	//Names returns the CV names, in a fixed order.
	Names() []string

	//Values stores the current CV values in dst, which must have one slot
	//per name, and returns it.
	Values(dst []float64) ([]float64, error)
}

// Value is one named, differentiable scalar output: a responsibility (or a
// transformation of responsibilities) together with its derivatives with
// respect to the input CVs and its virial contribution. It is what a
// downstream biasing scheme consumes. Cluster assignments are deliberately
// NOT Values: they carry no derivative at all (see the cluster subpackage).
type Value struct {
	Name   string
	V      float64
	Derivs []float64 //d V/d x_i, one per input CV
	Virial float64   //-sum_i x_i * dV/dx_i, the CV-space virial contribution
}

// setVirial recomputes the virial contribution of v at the point x.
func (v *Value) setVirial(x []float64) {
	v.Virial = -floats.Dot(x, v.Derivs)
}

// Responsibilities is the per-step output of the PAMM pipeline: one Value per
// kernel, in kernel (file) order, plus the regularized denominator they share.
type Responsibilities struct {
	Values []*Value
	Denom  float64 //sum of all kernel values plus the regularization floor; always > 0
}

// Sum returns the sum of all responsibilities. It lies in (0,1]: the
// regularization floor eats a (usually tiny) fraction of the total density,
// and eats all of it where every kernel has decayed to zero.
func (R *Responsibilities) Sum() float64 {
	var s float64
	for _, v := range R.Values {
		s += v.V
	}
	return s
}

// MostLikely returns the index of the kernel with the largest responsibility
// and its value. This is the "motif assignment" of the point. With all-zero
// kernel values it returns kernel 0 with responsibility 0.
func (R *Responsibilities) MostLikely() (int, float64) {
	best := 0
	for i, v := range R.Values {
		if v.V > R.Values[best].V {
			best = i
		}
	}
	return best, R.Values[best].V
}
