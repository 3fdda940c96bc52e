/*
 * geometry.go, part of kbody.
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
	"math"

	"gonum.org/v1/gonum/mat"
)

//distanceMatrix returns the flattened, row-major N-by-N matrix of direct
//Euclidean interatomic distances for an N-by-3 coordinates matrix.
func distanceMatrix(coords *mat.Dense) []float64 {
	n, _ := coords.Dims()
	dists := make([]float64, n*n)
	for i := 0; i < n; i++ {
		xi, yi, zi := coords.At(i, 0), coords.At(i, 1), coords.At(i, 2)
		for j := i + 1; j < n; j++ {
			dx := coords.At(j, 0) - xi
			dy := coords.At(j, 1) - yi
			dz := coords.At(j, 2) - zi
			d := math.Sqrt(dx*dx + dy*dy + dz*dz)
			dists[i*n+j] = d
			dists[j*n+i] = d
		}
	}
	return dists
}

//distanceMatrixMIC returns the flattened distance matrix under the
//minimum-image convention for the given 3x3 cell matrix (rows are the
//cell vectors). Interatomic vectors are wrapped in fractional
//coordinates, which is exact for cells that are not extremely skewed.
func distanceMatrixMIC(coords *mat.Dense, cell *mat.Dense) ([]float64, error) {
	r, c := cell.Dims()
	if r != 3 || c != 3 {
		return nil, CError{msg: "kbody: the cell must be a 3x3 matrix"}
	}
	var inv mat.Dense
	if err := inv.Inverse(cell); err != nil {
		return nil, CError{msg: "kbody: singular cell matrix: " + err.Error()}
	}
	n, _ := coords.Dims()
	dists := make([]float64, n*n)
	var d, f [3]float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for ax := 0; ax < 3; ax++ {
				d[ax] = coords.At(j, ax) - coords.At(i, ax)
			}
			//to fractional coordinates, wrap to the nearest image, and back
			for ax := 0; ax < 3; ax++ {
				f[ax] = d[0]*inv.At(0, ax) + d[1]*inv.At(1, ax) + d[2]*inv.At(2, ax)
				f[ax] -= math.Round(f[ax])
			}
			for ax := 0; ax < 3; ax++ {
				d[ax] = f[0]*cell.At(0, ax) + f[1]*cell.At(1, ax) + f[2]*cell.At(2, ax)
			}
			dist := math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
			dists[i*n+j] = dist
			dists[j*n+i] = dist
		}
	}
	return dists, nil
}

//deltaMatrix returns the signed coordinate differences as a flattened
//N*N-by-3 array: delta[(i*n+j)*3+ax] = coords[j][ax]-coords[i][ax].
//Note that, unlike a proper antisymmetric tensor, both (i,j) and (j,i)
//hold coords[j]-coords[i]; the sign of the opposite atom's contribution
//is applied later, at assignment, where each pair writes a + and a -
//block. This matches how the gradients are folded back into forces.
func deltaMatrix(coords *mat.Dense) []float64 {
	n, _ := coords.Dims()
	delta := make([]float64, n*n*3)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for ax := 0; ax < 3; ax++ {
				d := coords.At(j, ax) - coords.At(i, ax)
				delta[(i*n+j)*3+ax] = d
				delta[(j*n+i)*3+ax] = d
			}
		}
	}
	return delta
}

//ghostify overwrites the entries of the flattened matrices that involve
//the trailing nghosts atoms: distances to +Inf (zero normalized weight),
//deltas to 0. delta may be nil.
func ghostify(dists, delta []float64, natoms, nghosts int) {
	if nghosts == 0 {
		return
	}
	first := natoms - nghosts
	for i := 0; i < natoms; i++ {
		for j := 0; j < natoms; j++ {
			if i < first && j < first {
				continue
			}
			dists[i*natoms+j] = math.Inf(1)
			if delta != nil {
				for ax := 0; ax < 3; ax++ {
					delta[(i*natoms+j)*3+ax] = 0
				}
			}
		}
	}
}

//padCoords appends nghosts zero rows to an N-by-3 coordinates matrix.
//The positions are irrelevant, every ghost distance is overwritten
//afterwards; zero just keeps the numbers finite.
func padCoords(coords *mat.Dense, nghosts int) *mat.Dense {
	if nghosts == 0 {
		return coords
	}
	n, _ := coords.Dims()
	padded := mat.NewDense(n+nghosts, 3, nil)
	for i := 0; i < n; i++ {
		for ax := 0; ax < 3; ax++ {
			padded.Set(i, ax, coords.At(i, ax))
		}
	}
	return padded
}
