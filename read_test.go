/*
 * read_test.go, part of gopamm.
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
)

func TestReadKernels(Te *testing.T) {
	ks, err := ReadKernels("test/clusters.dat", []string{"phi", "psi"})
	if err != nil {
		Te.Fatal(err)
	}
	fmt.Println("clusters.dat read!")
	if ks.Len() != 2 {
		Te.Fatalf("expected 2 kernels, got %d", ks.Len())
	}
	if ks.Dim() != 2 {
		Te.Fatalf("expected dimension 2, got %d", ks.Dim())
	}
	if w := ks.Kernel(0).Weight(); w != 0.4 {
		Te.Errorf("first kernel weight %g, expected 0.4", w)
	}
	if w := ks.Kernel(1).Weight(); w != 0.6 {
		Te.Errorf("second kernel weight %g, expected 0.6", w)
	}
	//file order must be preserved
	c := ks.Kernel(0).Center()
	if c[0] != -1.0 || c[1] != -1.0 {
		Te.Errorf("first kernel center %v, expected (-1,-1)", c)
	}
	//the von-misses tag marks every dimension periodic
	for i := 0; i < ks.Len(); i++ {
		if ks.Kernel(i).Family() != VonMises {
			Te.Errorf("kernel %d should be von Mises", i+1)
		}
	}
}

func TestReadKernelsIgnoresUnknownFields(Te *testing.T) {
	//gaussians.dat carries an extra "logweight" column, which must not abort loading
	ks, err := ReadKernels("test/gaussians.dat", []string{"d1", "d2"})
	if err != nil {
		Te.Fatal(err)
	}
	if ks.Len() != 2 || ks.Kernel(0).Family() != Gaussian {
		Te.Error("gaussians.dat misread")
	}
}

func TestReadKernelsDiagonal(Te *testing.T) {
	ks, err := ReadKernels("test/diag.dat", []string{"x", "y"})
	if err != nil {
		Te.Fatal(err)
	}
	//diagonal sigma 0.5: norm constant is 1/(2*pi*0.5)
	want := 1 / (2 * math.Pi * 0.5)
	got := ks.Kernel(0).Evaluate([]float64{0, 0}, nil) //weight 1, at the center
	if math.Abs(got-want) > 1e-12 {
		Te.Errorf("diagonal covariance normalization: got %g, want %g", got, want)
	}
}

func TestReadKernelsNotPositiveDefinite(Te *testing.T) {
	_, err := ReadKernels("test/bad.dat", []string{"phi", "psi"})
	if err == nil {
		Te.Fatal("bad.dat should have been rejected")
	}
	if !IsMalformedKernelFile(err) {
		Te.Errorf("wrong error kind: %v", err)
	}
	fmt.Println("bad.dat rejected with:", err.Error())
}

func TestReadKernelsMissingCV(Te *testing.T) {
	_, err := ReadKernels("test/clusters.dat", []string{"phi", "omega"})
	if err == nil {
		Te.Fatal("a CV with no column should have been rejected")
	}
	if !IsDimensionMismatch(err) {
		Te.Errorf("wrong error kind: %v", err)
	}
}

func TestReadKernelSetEdgeCases(Te *testing.T) {
	//an empty file means zero kernels, which is malformed
	if _, err := ReadKernelSet(strings.NewReader(""), []string{"x"}); err == nil || !IsMalformedKernelFile(err) {
		Te.Error("empty kernel file should have been rejected")
	}
	//a record before any FIELDS header is malformed
	if _, err := ReadKernelSet(strings.NewReader("1.0 0.0 0.1\n"), []string{"x"}); err == nil || !IsMalformedKernelFile(err) {
		Te.Error("headerless record should have been rejected")
	}
	//an unparsable number is malformed
	in := "#! FIELDS height x sigma_x\n1.0 zero 0.1\n"
	if _, err := ReadKernelSet(strings.NewReader(in), []string{"x"}); err == nil || !IsMalformedKernelFile(err) {
		Te.Error("unparsable record should have been rejected")
	}
	//running out of records is just the end of the set
	in = "#! FIELDS height x sigma_x\n1.0 0.0 0.1\n\n"
	ks, err := ReadKernelSet(strings.NewReader(in), []string{"x"})
	if err != nil {
		Te.Fatal(err)
	}
	if ks.Len() != 1 {
		Te.Errorf("expected 1 kernel, got %d", ks.Len())
	}
}
