/*
 * read.go, part of gopamm.
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
	"bufio"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

/*The kernel definition file is the PLUMED-style clusters file produced by
 * external Gaussian-mixture fitting codes:
 *
 * #! FIELDS height phi psi sigma_phi_phi sigma_phi_psi sigma_psi_phi sigma_psi_psi
 * #! SET multivariate von-misses
 * #! SET kerneltype gaussian
 *       0.4     -1.0      -1.0      0.2     -0.1    -0.1    0.2
 *       0.6      1.0      +1.0      0.1     -0.03   -0.03   0.1
 *
 * The FIELDS header names a weight column ("height"), one column per input CV
 * (matched by name against the DATA list) and the covariance entries, either
 * the full matrix (sigma_a_b) or just the diagonal (sigma_a). Running out of
 * records is the normal way loading ends, not an error.*/

// fileHeader is the mutable header state while scanning a clusters file.
// A file may re-declare its headers between records; the latest one wins.
type fileHeader struct {
	fields   []string
	family   KernelFamily
	periodic bool //the "multivariate von-misses" tag marks every dimension periodic
}

// ReadKernels reads a kernel definition file from path. data is the ordered
// list of input CV names; its length fixes the expected dimensionality, and
// its entries are matched by name against the FIELDS header. The returned
// KernelSet preserves file order.
func ReadKernels(path string, data []string) (*KernelSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, CError{"can't open kernel file " + path + ": " + err.Error(), []string{"ReadKernels"}, errMalformedKernelFile}
	}
	defer f.Close()
	ks, err := ReadKernelSet(f, data)
	if err != nil {
		return nil, errDecorate(err, "ReadKernels: "+path)
	}
	return ks, nil
}

// ReadKernelSet is the io.Reader version of ReadKernels.
func ReadKernelSet(r io.Reader, data []string) (*KernelSet, error) {
	if data == nil {
		panic(ErrNilData)
	}
	h := &fileHeader{family: Gaussian}
	var kernels []*Kernel
	var loggedIgnored bool
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "#!") {
			if err := h.parse(text); err != nil {
				return nil, errDecorate(err, "ReadKernelSet")
			}
			continue
		}
		if strings.HasPrefix(text, "#") {
			continue //plain comment
		}
		k, ignored, err := readKernelRecord(h, data, text, len(kernels)+1)
		if err != nil {
			return nil, errDecorate(err, "ReadKernelSet")
		}
		if ignored != nil && !loggedIgnored {
			log.Printf("goPAMM: ignoring unknown field(s) %v in kernel file", ignored)
			loggedIgnored = true
		}
		kernels = append(kernels, k)
	}
	if err := scanner.Err(); err != nil {
		return nil, malformedKernelFile("ReadKernelSet", "read failed at line %d: %v", line, err)
	}
	if len(kernels) == 0 {
		return nil, malformedKernelFile("ReadKernelSet", "no kernel records found")
	}
	ks, err := NewKernelSet(kernels)
	if err != nil {
		return nil, errDecorate(err, "ReadKernelSet")
	}
	return ks, nil
}

// parse digests one "#!" header line.
func (h *fileHeader) parse(text string) error {
	w := strings.Fields(text)
	if len(w) < 2 {
		return malformedKernelFile("parse", "bad header line %q", text)
	}
	switch w[1] {
	case "FIELDS":
		h.fields = w[2:]
	case "SET":
		if len(w) < 4 {
			return malformedKernelFile("parse", "bad SET line %q", text)
		}
		switch w[2] {
		case "multivariate":
			//"von-misses" is how the fitting codes spell it.
			h.periodic = w[3] == "von-misses" || w[3] == "von-mises"
			if h.periodic {
				h.family = VonMises
			}
		case "kerneltype":
			if w[3] == "gaussian" && !h.periodic {
				h.family = Gaussian
			}
		default:
			//Unknown SET tags are fine, other codes stick their own metadata here.
		}
	default:
		return malformedKernelFile("parse", "unknown header directive %q", w[1])
	}
	return nil
}

// readKernelRecord parses one data line under the current header, returning
// the kernel and the names of any ignored extra columns.
func readKernelRecord(h *fileHeader, data []string, text string, record int) (*Kernel, []string, error) {
	if h.fields == nil {
		return nil, nil, malformedKernelFile("readKernelRecord", "record %d appears before any FIELDS header", record)
	}
	cols := strings.Fields(text)
	if len(cols) != len(h.fields) {
		return nil, nil, malformedKernelFile("readKernelRecord", "record %d has %d columns, FIELDS declares %d", record, len(cols), len(h.fields))
	}
	vals := make(map[string]float64, len(cols))
	var ignored []string
	for i, name := range h.fields {
		v, err := strconv.ParseFloat(cols[i], 64)
		if err != nil {
			return nil, nil, malformedKernelFile("readKernelRecord", "record %d, field %s: can't parse %q", record, name, cols[i])
		}
		vals[name] = v
	}
	weight, ok := vals["height"]
	if !ok {
		if weight, ok = vals["weight"]; !ok {
			return nil, nil, malformedKernelFile("readKernelRecord", "record %d: no height/weight field", record)
		}
	}
	d := len(data)
	center := make([]float64, d)
	for i, name := range data {
		c, ok := vals[name]
		if !ok {
			return nil, nil, dimensionMismatch("readKernelRecord", "input CV %s has no column in FIELDS %v", name, h.fields)
		}
		center[i] = c
	}
	sigma, err := readCovariance(vals, data, record)
	if err != nil {
		return nil, nil, err
	}
	//anything not consumed above is an extra column we silently carry past
	for _, name := range h.fields {
		if name == "height" || name == "weight" || isInString(data, name) || strings.HasPrefix(name, "sigma_") {
			continue
		}
		ignored = append(ignored, name)
	}
	var periodic []bool
	if h.periodic {
		periodic = make([]bool, d)
		for i := range periodic {
			periodic[i] = true
		}
	}
	k, err := NewKernel(weight, center, sigma, periodic, nil, h.family)
	if err != nil {
		return nil, nil, errDecorate(err, "readKernelRecord: record "+strconv.Itoa(record))
	}
	return k, ignored, nil
}

// readCovariance assembles the covariance matrix of one record, from the full
// sigma_a_b entries when they are all there, or from the sigma_a diagonal.
func readCovariance(vals map[string]float64, data []string, record int) (*mat.SymDense, error) {
	d := len(data)
	sigma := mat.NewSymDense(d, nil)
	full := true
	for i := 0; i < d && full; i++ {
		for j := i; j < d; j++ {
			if _, ok := vals["sigma_"+data[i]+"_"+data[j]]; !ok {
				full = false
				break
			}
		}
	}
	if full {
		for i := 0; i < d; i++ {
			for j := i; j < d; j++ {
				sigma.SetSym(i, j, vals["sigma_"+data[i]+"_"+data[j]])
			}
		}
		return sigma, nil
	}
	for i, name := range data {
		v, ok := vals["sigma_"+name]
		if !ok {
			return nil, malformedKernelFile("readCovariance", "record %d: neither full nor diagonal covariance for CV %s", record, name)
		}
		sigma.SetSym(i, i, v)
	}
	return sigma, nil
}

// isInString returns true if test is in container.
func isInString(container []string, test string) bool {
	for _, i := range container {
		if test == i {
			return true
		}
	}
	return false
}
