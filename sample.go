/*
 * sample.go, part of kbody.
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

import "gonum.org/v1/gonum/mat"

// Structure is one molecular configuration to be transformed: the ordered
// species, the N-by-3 coordinates, and, when available, the total energy,
// the N-by-3 forces and the 3x3 periodic cell.
type Structure struct {
	Species []string
	Coords  *mat.Dense
	Energy  float64
	Forces  *mat.Dense
	Cell    *mat.Dense
}

// Sample is the result of transforming one Structure: everything a model
// needs for one training example.
type Sample struct {
	//Features is the [realDim, C(kmax,2)] feature matrix.
	Features *mat.Dense
	//SplitDims are the per-term row counts of Features.
	SplitDims []int
	//Weights is the binary row-weight vector (0 marks padding rows).
	Weights []float64
	//Occurs counts each atom type of the parent transformer in this
	//structure, in the transformer's sorted type order. Ghost entries
	//stay 0.
	Occurs []float64
	//Coef and Indexing are the force-derivation outputs; nil unless the
	//transformer has atomic forces enabled. Indexing is the flattened
	//[3*NumReal, numEntries] scatter-index array.
	Coef     *mat.Dense
	Indexing []int32
	//Energy is carried over from the source Structure.
	Energy float64
}
