/*
 * errors.go, part of kbody.
 *
 *
 * Copyright 2024 Raul Mera rauldotmeraatusachdotcl
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
 *
 */

package kbody

import "fmt"

// Error is the interface for errors that all files in this library implement. The Decorate method
// allows to add and retrieve info from the error, without changing its type or wrapping it
// around something else. The decorate slice should contain a list of functions in the calling stack,
// plus, for each function, any relevant information, or nothing.
type Error interface {
	Error() string
	Decorate(string) []string
}

//errDecorate asserts that err implements Error and decorates it with
//the caller's name before returning it. Errors from outside the library
//(say, from the os package while writing records) get wrapped into a
//CError first.
func errDecorate(err error, caller string) error {
	err2, ok := err.(Error)
	if !ok {
		err2 = CError{msg: err.Error()}
	}
	err2.Decorate(caller)
	return err2
}

// CError is the general error type of the library, for errors that don't
// fall in any of the specific categories below.
type CError struct {
	msg  string
	deco []string
}

func (err CError) Error() string { return err.msg }

//Decorate adds new information to the error.
func (err CError) Decorate(deco string) []string {
	//Even though this method does not use a pointer as a receiver, and tries to alter the receiver,
	//it should work, since err.deco is a slice, and hence a pointer itself.
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

// CompositionError is returned when a structure contains more atoms of
// some element than the transformer was configured to accept, or an
// element the transformer doesn't know at all. It is always returned
// before any geometry work is done.
type CompositionError struct {
	Formula string
	deco    []string
}

func (err CompositionError) Error() string {
	return fmt.Sprintf("kbody: unsupported composition %s", err.Formula)
}

func (err CompositionError) Decorate(deco string) []string {
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

// ShapeError is returned when a caller-supplied output buffer disagrees
// with the shape the transformer declares.
type ShapeError struct {
	WantRows, WantCols int
	Rows, Cols         int
	deco               []string
}

func (err ShapeError) Error() string {
	return fmt.Sprintf("kbody: features buffer is %dx%d, want %dx%d", err.Rows, err.Cols, err.WantRows, err.WantCols)
}

func (err ShapeError) Decorate(deco string) []string {
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

// PeriodicForcesError is returned when force derivation is requested
// together with minimum-image geometry. The combination is not
// implemented, and silently ignoring either setting would be worse.
type PeriodicForcesError struct {
	deco []string
}

func (err PeriodicForcesError) Error() string {
	return "kbody: atomic forces for periodic structures are not supported"
}

func (err PeriodicForcesError) Decorate(deco string) []string {
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

// GhostError is returned when the number of ghost atoms in a species list
// is inconsistent with the expansion order. Only 0 or KMax-2 ghosts are
// meaningful, and they must trail the real atoms.
type GhostError struct {
	Ghosts, KMax int
	deco         []string
}

func (err GhostError) Error() string {
	return fmt.Sprintf("kbody: %d ghost atoms given, want 0 or %d, trailing the species list", err.Ghosts, err.KMax-2)
}

func (err GhostError) Decorate(deco string) []string {
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

// BaselineError is returned when the one-body linear system is neither
// full rank nor rank one, so the per-species baseline energies can't be
// recovered without guessing.
type BaselineError struct {
	Rank, Types int
	deco        []string
}

func (err BaselineError) Error() string {
	return fmt.Sprintf("kbody: one-body system of %d atom types has unsupported rank %d", err.Types, err.Rank)
}

func (err BaselineError) Decorate(deco string) []string {
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}
