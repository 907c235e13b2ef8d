/*
 * traj.go, part of gopamm.
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

//Package traj reads and writes CV trajectories: one line of
//whitespace-separated floats per frame, one column per collective variable,
//as produced by the PRINT action of an MD plugin or by any analysis script.
//Files are transparently (de)compressed according to their extension:
//".gz" (gzip), ".zst" (zstd) and ".flate" (DEFLATE) are understood, anything
//else is plain text. Lines starting with "#" are comments and are skipped.
package traj

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/mat"

	pamm "github.com/rmera/gopamm"
)

// Reader reads a CV trajectory frame by frame. It implements pamm.Source,
// so it can be fed straight to (*pamm.PAMM).Step.
type Reader struct {
	f        *os.File
	z        io.ReadCloser //decompressor, nil when reading plain text
	h        *bufio.Scanner
	cvs      []string
	filename string
	readable bool
}

// zstdql adapts *zstd.Decoder, which sadly does not implement io.ReadCloser.
type zstdql struct {
	closeql func()
	*zstd.Decoder
}

func (s zstdql) Close() error {
	s.closeql()
	return nil
}

// NewReader opens the trajectory in name. cvs names the columns, in order;
// every frame must have exactly one value per name.
func NewReader(name string, cvs []string) (*Reader, error) {
	if len(cvs) == 0 {
		return nil, Error{"no CV names given", name, []string{"NewReader"}, true}
	}
	R := new(Reader)
	var err error
	R.f, err = os.Open(name)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), name, []string{"NewReader"}, true}
	}
	var in io.Reader = R.f
	switch {
	case strings.HasSuffix(name, ".gz"):
		gz, err := gzip.NewReader(R.f)
		if err != nil {
			R.f.Close()
			return nil, Error{WrongFormat + ": " + err.Error(), name, []string{"NewReader"}, true}
		}
		R.z, in = gz, gz
	case strings.HasSuffix(name, ".zst"):
		zr, err := zstd.NewReader(R.f)
		if err != nil {
			R.f.Close()
			return nil, Error{WrongFormat + ": " + err.Error(), name, []string{"NewReader"}, true}
		}
		q := zstdql{closeql: zr.Close, Decoder: zr}
		R.z, in = q, zr
	case strings.HasSuffix(name, ".flate"):
		fr := flate.NewReader(R.f)
		R.z, in = fr, fr
	}
	R.h = bufio.NewScanner(in)
	R.cvs = make([]string, len(cvs))
	copy(R.cvs, cvs)
	R.filename = name
	R.readable = true
	return R, nil
}

// Names returns the CV names of the trajectory's columns (pamm.Source).
func (R *Reader) Names() []string {
	n := make([]string, len(R.cvs))
	copy(n, R.cvs)
	return n
}

// Values reads the next frame into dst (pamm.Source). The error at the end
// of the trajectory satisfies pamm.LastFrameError, and is harmless.
func (R *Reader) Values(dst []float64) ([]float64, error) {
	if R == nil {
		return nil, Error{TrajUnIniRead, "", []string{"Values"}, true}
	}
	if !R.readable {
		return nil, Error{TrajUnIniRead, R.filename, []string{"Values"}, true}
	}
	if dst == nil {
		dst = make([]float64, len(R.cvs))
	}
	if len(dst) != len(R.cvs) {
		return nil, Error{fmt.Sprintf("%d slots given for %d CVs", len(dst), len(R.cvs)), R.filename, []string{"Values"}, true}
	}
	for R.h.Scan() {
		text := strings.TrimSpace(R.h.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		cols := strings.Fields(text)
		if len(cols) != len(R.cvs) {
			return nil, Error{fmt.Sprintf("frame has %d columns, expected %d", len(cols), len(R.cvs)), R.filename, []string{"Values"}, true}
		}
		for i, c := range cols {
			v, err := strconv.ParseFloat(c, 64)
			if err != nil {
				return nil, Error{WrongFormat + ": " + c, R.filename, []string{"Values"}, true}
			}
			dst[i] = v
		}
		return dst, nil
	}
	if err := R.h.Err(); err != nil {
		return nil, Error{ReadError + ": " + err.Error(), R.filename, []string{"Values"}, true}
	}
	return nil, newlastFrameError(R.filename, "Values")
}

// Next reads the next frame into dst. It is Values under the usual
// trajectory-reader name.
func (R *Reader) Next(dst []float64) ([]float64, error) {
	return R.Values(dst)
}

// ReadAll reads every remaining frame into one frames-by-CVs matrix, ready
// for batch evaluation. Running out of frames is, of course, not an error
// here.
func (R *Reader) ReadAll() (*mat.Dense, error) {
	var all []float64
	frames := 0
	buf := make([]float64, len(R.cvs))
	for {
		_, err := R.Values(buf)
		if err != nil {
			if _, ok := err.(pamm.LastFrameError); ok {
				break
			}
			return nil, err
		}
		all = append(all, buf...)
		frames++
	}
	if frames == 0 {
		return nil, Error{"trajectory has no frames", R.filename, []string{"ReadAll"}, true}
	}
	return mat.NewDense(frames, len(R.cvs), all), nil
}

// Close closes the trajectory. The Reader can not be used after this call.
func (R *Reader) Close() {
	if R == nil || !R.readable {
		return
	}
	if R.z != nil {
		R.z.Close()
	}
	R.f.Close()
	R.readable = false
}

// Writer writes a CV trajectory, compressing by extension like NewReader.
type Writer struct {
	f         *os.File
	h         io.WriteCloser
	ncvs      int
	filename  string
	writeable bool
}

// NewWriter creates the trajectory file name for ncvs CVs per frame.
// The optional compressionLevel is used for gzip and DEFLATE.
func NewWriter(name string, ncvs int, compressionLevel ...int) (*Writer, error) {
	level := flate.DefaultCompression
	if len(compressionLevel) > 0 {
		level = compressionLevel[0]
	}
	W := new(Writer)
	var err error
	W.f, err = os.Create(name)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), name, []string{"NewWriter"}, true}
	}
	var h io.WriteCloser = nopCloser{W.f}
	switch {
	case strings.HasSuffix(name, ".gz"):
		h, err = gzip.NewWriterLevel(W.f, level)
	case strings.HasSuffix(name, ".zst"):
		h, err = zstd.NewWriter(W.f)
	case strings.HasSuffix(name, ".flate"):
		h, err = flate.NewWriter(W.f, level)
	}
	if err != nil {
		W.f.Close()
		return nil, Error{err.Error(), name, []string{"NewWriter"}, true}
	}
	W.h = h
	W.ncvs = ncvs
	W.filename = name
	W.writeable = true
	return W, nil
}

// WNext writes one frame.
func (W *Writer) WNext(frame []float64) error {
	if W == nil {
		return Error{TrajUnIniWrite, "", []string{"WNext"}, true}
	}
	if !W.writeable {
		return Error{TrajUnIniWrite, W.filename, []string{"WNext"}, true}
	}
	if frame == nil {
		return Error{NilFrame, W.filename, []string{"WNext"}, true}
	}
	if len(frame) != W.ncvs {
		return Error{fmt.Sprintf("%d values given, but %d expected", len(frame), W.ncvs), W.filename, []string{"WNext"}, true}
	}
	strs := make([]string, len(frame))
	for i, v := range frame {
		strs[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	if _, err := W.h.Write([]byte(strings.Join(strs, " ") + "\n")); err != nil {
		return Error{err.Error(), W.filename, []string{"WNext"}, true}
	}
	return nil
}

// Close flushes and closes the trajectory. The Writer can not be used after
// this call.
func (W *Writer) Close() {
	if W == nil || !W.writeable {
		return
	}
	W.h.Close()
	W.f.Close()
	W.writeable = false
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

//Errors

const (
	TrajUnIniRead  = "Traj object uninitialized to read"
	TrajUnIniWrite = "Traj object uninitialized to write"
	ReadError      = "Error reading frame"
	UnableToOpen   = "Unable to open file"
	NilFrame       = "Given nil frame"
	WrongFormat    = "Wrong format in the trajectory file or frame"
)

// Error is the general structure for CV trajectory errors. It fulfills
// pamm.Error and pamm.TrajError.
type Error struct {
	message  string
	filename string //the input file that has problems, or empty string if none.
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return fmt.Sprintf("traj file %s error: %s", err.filename, err.message)
}

// Decorate adds new information to the error.
func (err Error) Decorate(deco string) []string {
	//Even though this method does not use a pointer as a receiver, and tries to alter the receiver,
	//it should work, since err.deco is a slice, and hence a pointer itself.
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

// FileName returns the file to which the failing trajectory was associated.
func (err Error) FileName() string { return err.filename }

// Format returns the format of the file associated to the error.
func (err Error) Format() string { return "cvtraj" }

// Critical returns true if the error is critical, false otherwise.
func (err Error) Critical() bool { return err.critical }

// lastFrameError implements pamm.LastFrameError.
type lastFrameError struct {
	deco     []string
	fileName string
}

// NormalLastFrameTermination does nothing.
func (e lastFrameError) NormalLastFrameTermination() {}

func (e lastFrameError) FileName() string { return e.fileName }

func (e lastFrameError) Error() string { return "EOF" }

func (e lastFrameError) Critical() bool { return false }

func (e lastFrameError) Format() string { return "cvtraj" }

func (e lastFrameError) Decorate(deco string) []string {
	if deco != "" {
		e.deco = append(e.deco, deco)
	}
	return e.deco
}

func newlastFrameError(filename, caller string) lastFrameError {
	return lastFrameError{deco: []string{caller}, fileName: filename}
}
