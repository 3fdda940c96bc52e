/*
 * atomicdata.go, part of kbody.
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

// Ghost is the reserved symbol for the inert placeholder atoms used to
// unify feature shapes across expansion orders. Distances involving a
// ghost are set to +Inf, so their normalized contribution is exactly zero.
const Ghost = "X"

//A map for assigning single-bond covalent radii to elements.
//Values from Pyykko and Atsumi, 2009 (DOI:10.1002/chem.200800987).
//The ghost symbol gets the hydrogen radius; the value never reaches
//a feature because ghost distances are infinite.
var symbolPyykko = map[string]float64{
	"Ac": 1.86, "Ag": 1.28, "Al": 1.26, "Am": 1.66, "Ar": 0.96, "As": 1.21,
	"At": 1.47, "Au": 1.24, "B": 0.85, "Ba": 1.96, "Be": 1.02, "Bh": 1.41,
	"Bi": 1.51, "Bk": 1.68, "Br": 1.14, "C": 0.75, "Ca": 1.71, "Cd": 1.36,
	"Ce": 1.63, "Cf": 1.68, "Cl": 0.99, "Cm": 1.66, "Co": 1.11, "Cr": 1.22,
	"Cs": 2.32, "Cu": 1.12, "Db": 1.49, "Ds": 1.28, "Dy": 1.67, "Er": 1.65,
	"Es": 1.65, "Eu": 1.68, "F": 0.64, "Fe": 1.16, "Fm": 1.67, "Fr": 2.23,
	"Ga": 1.24, "Gd": 1.69, "Ge": 1.21, "H": 0.32, "He": 0.46, "Hf": 1.52,
	"Hg": 1.33, "Ho": 1.66, "Hs": 1.34, "I": 1.33, "In": 1.42, "Ir": 1.22,
	"K": 1.96, "Kr": 1.17, "La": 1.8, "Li": 1.33, "Lu": 1.62, "Md": 1.73,
	"Mg": 1.39, "Mn": 1.19, "Mo": 1.38, "Mt": 1.29, "N": 0.71, "Na": 1.55,
	"Nb": 1.47, "Nd": 1.74, "Ne": 0.67, "Ni": 1.1, "No": 1.76, "Np": 1.71,
	"O": 0.63, "Os": 1.29, "P": 1.11, "Pa": 1.69, "Pb": 1.44, "Pd": 1.2,
	"Pm": 1.73, "Po": 1.45, "Pr": 1.76, "Pt": 1.23, "Pu": 1.72, "Ra": 2.01,
	"Rb": 2.1, "Re": 1.31, "Rf": 1.57, "Rh": 1.25, "Rn": 1.42, "Ru": 1.25,
	"S": 1.03, "Sb": 1.4, "Sc": 1.48, "Se": 1.16, "Sg": 1.43, "Si": 1.16,
	"Sm": 1.72, "Sn": 1.4, "Sr": 1.85, "Ta": 1.46, "Tb": 1.68, "Tc": 1.28,
	"Te": 1.36, "Th": 1.75, "Ti": 1.36, "Tl": 1.44, "Tm": 1.64, "U": 1.7,
	"V": 1.34, "W": 1.37, "X": 0.32, "Xe": 1.31, "Y": 1.63, "Yb": 1.7,
	"Zn": 1.18, "Zr": 1.54,
}

// PyykkoRadius returns the single-bond covalent radius for the given
// element symbol, and false if the element is not in the table.
func PyykkoRadius(symbol string) (float64, bool) {
	r, ok := symbolPyykko[symbol]
	return r, ok
}

//refLengths returns the flattened N-by-N matrix of per-pair reference
//lengths, where the length for a pair is factor*(r_i+r_j). The row-major
//flattening matches the one used by the distance matrices, so both can be
//indexed with the same i*N+j values from the mapping.
func refLengths(species []string, factor float64) ([]float64, error) {
	n := len(species)
	rr := make([]float64, n)
	for i, s := range species {
		r, ok := symbolPyykko[s]
		if !ok {
			return nil, CError{msg: "kbody: no covalent radius for element " + s}
		}
		rr[i] = r
	}
	lengths := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			lengths[i*n+j] = factor * (rr[i] + rr[j])
		}
	}
	return lengths, nil
}
