/*
 * errors.go, part of gopamm.
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

import "fmt"

// Error is the interface for errors that all packages in this library implement. The Decorate
// method allows to add and retrieve info from the error, without changing its type or wrapping
// it around something else. The decorate slice should contain a list of functions in the calling
// stack, plus, for each function, any relevant information, or nothing.
type Error interface {
	Error() string
	Critical() bool
	Decorate(string) []string
}

// kinds of setup failure. Setup errors are fatal: the caller is expected
// to abort before the first simulation step.
type errKind int

const (
	errGeneric errKind = iota
	errMalformedKernelFile
	errDimensionMismatch
)

// CError is the concrete error type for the pamm package.
type CError struct {
	msg  string
	deco []string
	kind errKind
}

func (err CError) Error() string { return err.msg }

// Critical returns true. Every error this package returns is a structural or
// configuration defect; there is nothing transient to retry.
func (err CError) Critical() bool { return true }

// Decorate will add the dec string to the decoration slice of strings of the error,
// and return the resulting slice. If passed an empty string it just returns the
// current deco slice.
func (err CError) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

// IsMalformedKernelFile returns true if err was caused by an unreadable record,
// or a non-positive-definite covariance, in a kernel definition file.
func IsMalformedKernelFile(err error) bool {
	e, ok := err.(CError)
	return ok && e.kind == errMalformedKernelFile
}

// IsDimensionMismatch returns true if err was caused by the number of input CVs
// not matching the dimensionality of a kernel set.
func IsDimensionMismatch(err error) bool {
	e, ok := err.(CError)
	return ok && e.kind == errDimensionMismatch
}

func malformedKernelFile(caller, format string, a ...interface{}) CError {
	return CError{fmt.Sprintf(format, a...), []string{caller}, errMalformedKernelFile}
}

func dimensionMismatch(caller, format string, a ...interface{}) CError {
	return CError{fmt.Sprintf(format, a...), []string{caller}, errDimensionMismatch}
}

// errDecorate asserts that err implements Error and decorates it with the
// caller's name before returning it. Calling it on any other error panics.
func errDecorate(err error, caller string) error {
	err2 := err.(Error)
	err2.Decorate(caller)
	return err2
}

// TrajError is the interface for errors in CV trajectories.
type TrajError interface {
	Error
	FileName() string
	Format() string
}

// LastFrameError has a useless function to distinguish the harmless errors (i.e. running
// out of frames, which is how every trajectory read normally ends) so they can be filtered
// in a typeswitch that looks for this interface.
type LastFrameError interface {
	TrajError
	NormalLastFrameTermination()
}

// PanicMsg is a message used for panics. It does satisfy the error interface,
// but for recoverable conditions use Error/CError instead.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const (
	// ErrForceOnNonDifferentiable is the panic raised when a caller asks for force or
	// derivative information through a hard cluster assignment. The assignment is
	// piecewise constant, so a zero would be a lie that hides a modeling bug.
	ErrForceOnNonDifferentiable = PanicMsg("goPAMM: forces cannot be propagated through a hard cluster assignment")
	ErrNilData                  = PanicMsg("goPAMM: nil data given")
	ErrShape                    = PanicMsg("goPAMM: dimension mismatch")
)
