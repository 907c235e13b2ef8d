/*
 * pamm_test.go, part of gopamm.
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
	"fmt"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// the two-Gaussian mixture several tests use: weights 0.4/0.6,
// centers (-1,-1)/(1,1), diagonal covariance 0.2, nothing periodic.
const twoGaussians = `#! FIELDS height d1 d2 sigma_d1_d1 sigma_d1_d2 sigma_d2_d1 sigma_d2_d2
#! SET kerneltype gaussian
0.4 -1.0 -1.0 0.2 0.0 0.0 0.2
0.6  1.0  1.0 0.2 0.0 0.0 0.2
`

func twoGaussianPAMM(Te *testing.T, opts ...Option) *PAMM {
	ks, err := ReadKernelSet(strings.NewReader(twoGaussians), []string{"d1", "d2"})
	if err != nil {
		Te.Fatal(err)
	}
	p, err := NewPAMMFromSet([]string{"d1", "d2"}, ks, opts...)
	if err != nil {
		Te.Fatal(err)
	}
	return p
}

func TestResponsibilitiesAtKernelCenter(Te *testing.T) {
	p := twoGaussianPAMM(Te)
	R, err := p.Evaluate([]float64{-1, -1})
	if err != nil {
		Te.Fatal(err)
	}
	fmt.Println("responsibilities at (-1,-1):", R.Values[0].V, R.Values[1].V)
	if R.Values[0].V < 0.99 {
		Te.Errorf("kernel 1 responsibility at its center is %g, expected close to 1", R.Values[0].V)
	}
	if R.Values[1].V > 1e-6 {
		Te.Errorf("kernel 2 responsibility far from its center is %g, expected close to 0", R.Values[1].V)
	}
	if k, _ := R.MostLikely(); k != 0 {
		Te.Errorf("most likely motif at (-1,-1) is %d, expected 0", k)
	}
	//output labels follow kernel order
	if R.Values[0].Name != "pamm-1" || R.Values[1].Name != "pamm-2" {
		Te.Errorf("wrong output names: %s, %s", R.Values[0].Name, R.Values[1].Name)
	}
}

func TestResponsibilitySumBounds(Te *testing.T) {
	p := twoGaussianPAMM(Te)
	points := [][]float64{
		{-1, -1}, {1, 1}, {0, 0}, {0.5, -0.5}, {3, 3}, {-10, 10},
	}
	for _, point := range points {
		R, err := p.Evaluate(point)
		if err != nil {
			Te.Fatal(err)
		}
		s := R.Sum()
		if s < 0 || s > 1 {
			Te.Errorf("responsibility sum %g at %v out of (0,1]", s, point)
		}
		if R.Denom < p.Regularization() {
			Te.Errorf("denominator %g below the regularization floor", R.Denom)
		}
	}
}

func TestAllZeroKernels(Te *testing.T) {
	//far from every kernel the exponentials underflow to exactly zero;
	//the denominator must then be exactly the floor, and never a division error
	p := twoGaussianPAMM(Te)
	R, err := p.Evaluate([]float64{1e5, 1e5})
	if err != nil {
		Te.Fatal(err)
	}
	if R.Denom != p.Regularization() {
		Te.Errorf("denominator %g, expected exactly %g", R.Denom, p.Regularization())
	}
	for i, v := range R.Values {
		if v.V != 0 {
			Te.Errorf("kernel %d responsibility %g, expected exactly 0", i+1, v.V)
		}
		for _, d := range v.Derivs {
			if d != 0 || math.IsNaN(d) {
				Te.Errorf("kernel %d has a nonzero or NaN derivative far from everything", i+1)
			}
		}
	}
}

func TestResponsibilityGradients(Te *testing.T) {
	//quotient-rule gradients against finite differences
	p := twoGaussianPAMM(Te)
	point := []float64{0.3, -0.2}
	R, err := p.Evaluate(point)
	if err != nil {
		Te.Fatal(err)
	}
	h := 1e-6
	for k, v := range R.Values {
		for d := 0; d < 2; d++ {
			pp := []float64{point[0], point[1]}
			pm := []float64{point[0], point[1]}
			pp[d] += h
			pm[d] -= h
			Rp, _ := p.Evaluate(pp)
			Rm, _ := p.Evaluate(pm)
			num := (Rp.Values[k].V - Rm.Values[k].V) / (2 * h)
			if math.Abs(num-v.Derivs[d]) > 1e-5*(1+math.Abs(num)) {
				Te.Errorf("responsibility %d gradient[%d]: analytical %g, numerical %g", k+1, d, v.Derivs[d], num)
			}
		}
		//and the virial contribution is -x.grad
		want := -(point[0]*v.Derivs[0] + point[1]*v.Derivs[1])
		if math.Abs(v.Virial-want) > 1e-14 {
			Te.Errorf("responsibility %d virial %g, expected %g", k+1, v.Virial, want)
		}
	}
}

func TestSetupDimensionMismatch(Te *testing.T) {
	ks, err := ReadKernelSet(strings.NewReader(twoGaussians), []string{"d1", "d2"})
	if err != nil {
		Te.Fatal(err)
	}
	_, err = NewPAMMFromSet([]string{"d1", "d2", "d3"}, ks)
	if err == nil || !IsDimensionMismatch(err) {
		Te.Error("a 3-CV list over 2D kernels should have been rejected at setup")
	}
}

func TestBadRegularization(Te *testing.T) {
	ks, err := ReadKernelSet(strings.NewReader(twoGaussians), []string{"d1", "d2"})
	if err != nil {
		Te.Fatal(err)
	}
	if _, err := NewPAMMFromSet([]string{"d1", "d2"}, ks, WithRegularization(0)); err == nil {
		Te.Error("a zero regularization floor should have been rejected")
	}
}

type sliceSource struct {
	names []string
	vals  []float64
}

func (s *sliceSource) Names() []string { return s.names }
func (s *sliceSource) Values(dst []float64) ([]float64, error) {
	copy(dst, s.vals)
	return dst, nil
}

func TestStepFromSource(Te *testing.T) {
	p := twoGaussianPAMM(Te)
	src := &sliceSource{names: []string{"d1", "d2"}, vals: []float64{1, 1}}
	R, err := p.Step(src)
	if err != nil {
		Te.Fatal(err)
	}
	if R.Values[1].V < 0.99 {
		Te.Errorf("kernel 2 responsibility at its center is %g, expected close to 1", R.Values[1].V)
	}
	//a source with the wrong CVs is a configuration error
	bad := &sliceSource{names: []string{"d2", "d1"}, vals: []float64{1, 1}}
	if _, err := p.Step(bad); err == nil || !IsDimensionMismatch(err) {
		Te.Error("a source with reordered CVs should have been rejected")
	}
}

func TestEvaluateBatch(Te *testing.T) {
	//the batch path must agree with the per-point path, whatever the worker count
	for _, workers := range []int{1, 4} {
		p := twoGaussianPAMM(Te, WithWorkers(workers))
		frames := mat.NewDense(5, 2, []float64{
			-1, -1,
			1, 1,
			0, 0,
			0.25, -0.75,
			1e5, 1e5,
		})
		resp, err := p.EvaluateBatch(frames)
		if err != nil {
			Te.Fatal(err)
		}
		nf, nk := resp.Dims()
		if nf != 5 || nk != 2 {
			Te.Fatalf("batch output is %dx%d, expected 5x2", nf, nk)
		}
		for r := 0; r < nf; r++ {
			R, err := p.Evaluate(frames.RawRowView(r))
			if err != nil {
				Te.Fatal(err)
			}
			for k := 0; k < nk; k++ {
				if math.Abs(resp.At(r, k)-R.Values[k].V) > 1e-14 {
					Te.Errorf("workers=%d: batch and per-point disagree at frame %d, kernel %d", workers, r, k+1)
				}
			}
		}
		if _, err := p.EvaluateBatch(mat.NewDense(2, 3, nil)); err == nil || !IsDimensionMismatch(err) {
			Te.Error("3-column frames over 2D kernels should have been rejected")
		}
	}
}

func TestPlanLabels(Te *testing.T) {
	p := twoGaussianPAMM(Te, WithLabel("hbonds"))
	R, err := p.Evaluate([]float64{0, 0})
	if err != nil {
		Te.Fatal(err)
	}
	if R.Values[0].Name != "hbonds-1" || R.Values[1].Name != "hbonds-2" {
		Te.Errorf("wrong labels: %s, %s", R.Values[0].Name, R.Values[1].Name)
	}
}
