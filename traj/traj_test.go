/*
 * traj_test.go, part of gopamm.
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

package traj

import (
	"fmt"
	"math"
	"path/filepath"
	"testing"

	pamm "github.com/rmera/gopamm"
)

var testFrames = [][]float64{
	{-1.0, -1.0},
	{0.25, -0.75},
	{1.0, 1.0},
}

// writes testFrames to name and reads them back, whatever the extension says
// about compression.
func roundTrip(Te *testing.T, name string) {
	w, err := NewWriter(name, 2)
	if err != nil {
		Te.Fatal(err)
	}
	for _, f := range testFrames {
		if err := w.WNext(f); err != nil {
			Te.Error(err)
		}
	}
	w.Close()
	r, err := NewReader(name, []string{"d1", "d2"})
	if err != nil {
		Te.Fatal(err)
	}
	defer r.Close()
	buf := make([]float64, 2)
	for i := 0; ; i++ {
		_, err := r.Next(buf)
		if err != nil {
			if _, ok := err.(pamm.LastFrameError); ok {
				if i != len(testFrames) {
					Te.Errorf("%s: read %d frames, wrote %d", name, i, len(testFrames))
				}
				break
			}
			Te.Fatal(err)
		}
		for d := 0; d < 2; d++ {
			if math.Abs(buf[d]-testFrames[i][d]) > 1e-12 {
				Te.Errorf("%s: frame %d came back as %v", name, i, buf)
			}
		}
	}
}

func TestRoundTrip(Te *testing.T) {
	dir := Te.TempDir()
	for _, name := range []string{"plain.dat", "comp.gz", "comp.zst", "comp.flate"} {
		fmt.Println("trajectory round trip:", name)
		roundTrip(Te, filepath.Join(dir, name))
	}
}

func TestReadAll(Te *testing.T) {
	dir := Te.TempDir()
	name := filepath.Join(dir, "all.zst")
	w, err := NewWriter(name, 2)
	if err != nil {
		Te.Fatal(err)
	}
	for _, f := range testFrames {
		if err := w.WNext(f); err != nil {
			Te.Error(err)
		}
	}
	w.Close()
	r, err := NewReader(name, []string{"d1", "d2"})
	if err != nil {
		Te.Fatal(err)
	}
	defer r.Close()
	frames, err := r.ReadAll()
	if err != nil {
		Te.Fatal(err)
	}
	nf, nc := frames.Dims()
	if nf != 3 || nc != 2 {
		Te.Fatalf("ReadAll returned a %dx%d matrix, expected 3x2", nf, nc)
	}
	if frames.At(1, 1) != -0.75 {
		Te.Errorf("frame 1 misread: %v", frames.RawRowView(1))
	}
}

func TestReaderIsSource(Te *testing.T) {
	//a Reader feeds (*pamm.PAMM).Step directly
	var _ pamm.Source = (*Reader)(nil)
}

func TestBadFrames(Te *testing.T) {
	dir := Te.TempDir()
	name := filepath.Join(dir, "bad.dat")
	w, err := NewWriter(name, 2)
	if err != nil {
		Te.Fatal(err)
	}
	if err := w.WNext([]float64{1, 2, 3}); err == nil {
		Te.Error("a 3-CV frame on a 2-CV writer should have been rejected")
	}
	if err := w.WNext(nil); err == nil {
		Te.Error("a nil frame should have been rejected")
	}
	if err := w.WNext([]float64{1, 2}); err != nil {
		Te.Error(err)
	}
	w.Close()
	if err := w.WNext([]float64{1, 2}); err == nil {
		Te.Error("writing after Close should have been rejected")
	}
	//reading it back with the wrong column count is an error
	r, err := NewReader(name, []string{"a", "b", "c"})
	if err != nil {
		Te.Fatal(err)
	}
	defer r.Close()
	if _, err := r.Next(nil); err == nil {
		Te.Error("a 2-column frame for 3 CVs should have been rejected")
	}
}
