/*
 * baseline.go, part of kbody.
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

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

//machine epsilon for float64, used in the numerical rank tolerance
const eps = 2.220446049250313e-16

// SolveBaseline fits the one-body baseline energies: the least-squares
// solution x of occurs*x = -energies, where occurs counts each atom type
// per structure (columns in the transformer's sorted type order, ghost
// columns all zero) and energies are the total energies. The sign flip
// makes the weights positive for bound structures.
//
// Two cases are solvable: the occurs matrix has full rank over the
// numRealTypes real atom types (SVD pseudoinverse), or rank 1, meaning
// every structure has the same stoichiometry, in which case all real
// types share the per-atom mean. Anything in between is degenerate and
// yields a BaselineError.
func SolveBaseline(occurs *mat.Dense, energies []float64, numRealTypes int) ([]float64, error) {
	r, c := occurs.Dims()
	if len(energies) != r {
		return nil, ShapeError{WantRows: r, WantCols: 1, Rows: len(energies), Cols: 1}
	}
	var svd mat.SVD
	if !svd.Factorize(occurs, mat.SVDThin) {
		return nil, CError{msg: "kbody: SVD of the occurrence matrix failed"}
	}
	values := svd.Values(nil)
	big := r
	if c > big {
		big = c
	}
	tol := float64(big) * eps * values[0]
	rank := 0
	for _, v := range values {
		if v > tol {
			rank++
		}
	}
	x := make([]float64, c)
	switch {
	case rank == numRealTypes:
		var sol mat.VecDense
		svd.SolveVecTo(&sol, mat.NewVecDense(r, energies), rank)
		for i := range x {
			x[i] = -sol.AtVec(i)
		}
		return x, nil
	case rank == 1:
		//same stoichiometry everywhere: split the mean per-atom energy
		//equally among the real types
		mean := 0.0
		for i := 0; i < r; i++ {
			mean += energies[i] / floats.Sum(occurs.RawRowView(i))
		}
		mean /= float64(r)
		for i := 0; i < numRealTypes; i++ {
			x[i] = -mean
		}
		return x, nil
	default:
		return nil, BaselineError{Rank: rank, Types: numRealTypes}
	}
}
