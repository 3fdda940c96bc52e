/*
 * transformer.go, part of kbody.
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
	"sort"

	"gonum.org/v1/gonum/mat"
)

//Feature values below e^-6 are clamped before taking logarithms in the
//force-coefficient matrix, to keep the gradients finite.
var safeLogZ = math.Exp(-6)

// Options collects the settings shared by Transformer and the multi
// transformers. The zero value is not useful; start from DefaultOptions.
type Options struct {
	//KMax is the maximum k of the many-body expansion.
	KMax int
	//NormOrder is the exponent of the distance normalization. 0 means
	//plain exp(-d), with no reference-length scaling.
	NormOrder int
	//IncludeAllK selects whether all orders 1..KMax are represented
	//(via ghost padding) or only 1 and KMax.
	IncludeAllK bool
	//Periodic selects minimum-image distances under a cell matrix.
	Periodic bool
	//AtomicForces enables the auxiliary outputs needed to reconstruct
	//forces from feature gradients.
	AtomicForces bool
}

// DefaultOptions returns the settings used throughout the original
// many-body expansion work: k up to 3, first-order normalization, all
// lower orders included.
func DefaultOptions() *Options {
	o := new(Options)
	o.KMax = 3
	o.NormOrder = 1
	o.IncludeAllK = true
	return o
}

// Transformer converts the coordinates of one fixed chemical formula into
// a feature matrix of shape [realDim, C(KMax,2)]. It is built once per
// formula (the construction enumerates every k-atom selection, which is
// combinatorial) and is immutable afterwards, so a single Transformer can
// be shared by any number of concurrent readers.
type Transformer struct {
	kmax        int
	species     []string
	terms       []string
	offsets     []int
	sizes       []int //selections per term; 0 for terms this formula can't realize
	splitDims   []int
	mapping     map[string]*termMapping
	sortGroups  map[string][][]int
	normalizers []float64
	normOrder   int
	ghosts      int
	periodic    bool
	forces      bool
	realDim     int
	ck2         int
	weights     []float64
	numReal     int //real atoms behind the (possibly padded) feature rows
	numEntries  int //gradient entries per force component
	indexBase   []int
}

// New builds a Transformer for the given ordered species list, which may
// end in ghost atoms. terms fixes the k-body term ordering and splitDims
// the per-term block sizes; both may be nil, in which case they are
// derived from the species themselves (terms from TermsOf, sizes from the
// selection counts). A multi transformer passes its global terms and dims
// here so all its formulas agree on one layout.
func New(species []string, terms []string, splitDims []int, o *Options) (*Transformer, error) {
	if o == nil {
		o = DefaultOptions()
	}
	if o.Periodic && o.AtomicForces {
		return nil, PeriodicForcesError{}
	}
	ghosts, trailing := countGhosts(species)
	if ghosts != 0 && (ghosts != o.KMax-2 || !trailing) {
		return nil, GhostError{Ghosts: ghosts, KMax: o.KMax}
	}
	if terms == nil {
		terms = TermsOf(species, o.KMax)
	}
	if splitDims != nil && len(splitDims) != len(terms) {
		return nil, CError{msg: "kbody: split dims and terms have different lengths"}
	}
	T := new(Transformer)
	T.kmax = o.KMax
	T.species = append([]string(nil), species...)
	T.terms = terms
	T.normOrder = o.NormOrder
	T.ghosts = ghosts
	T.periodic = o.Periodic
	T.forces = o.AtomicForces
	T.ck2 = comb(o.KMax, 2)
	T.mapping = buildMapping(species, terms)
	T.sortGroups = condSortGroups(terms)

	//Per-term offsets and the real dimension. Every excluded term still
	//owns one all-zero row, so realDim >= len(terms).
	T.offsets = make([]int, 1, len(terms)+1)
	T.sizes = make([]int, len(terms))
	for i, term := range terms {
		if m := T.mapping[term]; m != nil {
			T.sizes[i] = len(m.selections)
		}
	}
	if splitDims == nil {
		T.splitDims = make([]int, len(terms))
		for i := range terms {
			d := T.sizes[i]
			if d < 1 {
				d = 1
			}
			T.splitDims[i] = d
			T.realDim += d
			T.offsets = append(T.offsets, T.realDim)
		}
	} else {
		T.splitDims = append([]int(nil), splitDims...)
		for _, d := range splitDims {
			T.realDim += d
			T.offsets = append(T.offsets, T.realDim)
		}
	}

	var err error
	T.normalizers, err = refLengths(species, 1.0)
	if err != nil {
		return nil, errDecorate(err, "New")
	}

	//binary weights: 1 where a row holds a real selection, 0 on padding
	T.weights = make([]float64, T.realDim)
	for i := range terms {
		size := T.sizes[i]
		if lim := T.offsets[i+1] - T.offsets[i]; size > lim {
			size = lim
		}
		for j := 0; j < size; j++ {
			T.weights[T.offsets[i]+j] = 1
		}
	}

	//The number of atoms behind the feature rows. When the dims were
	//fixed externally the padded total corresponds to the max-occurs
	//pool, which we recover from C(n, kmax); otherwise it is just the
	//species list.
	n := len(species)
	if splitDims != nil {
		n = numAtomsFromTotal(T.realDim, T.kmax)
	}
	T.numReal = n - ghosts
	T.numEntries = numForceEntries(T.numReal, T.kmax)
	if T.forces {
		T.indexBase = T.buildIndexBase()
	}
	return T, nil
}

// Shape returns the dimensions of the feature matrix: realDim rows,
// C(KMax,2) columns.
func (T *Transformer) Shape() (int, int) { return T.realDim, T.ck2 }

// Ck2 returns C(KMax,2), the number of pair slots per term.
func (T *Transformer) Ck2() int { return T.ck2 }

// KMax returns the expansion order.
func (T *Transformer) KMax() int { return T.kmax }

// Terms returns the ordered k-body terms. Read-only.
func (T *Transformer) Terms() []string { return T.terms }

// SplitDims returns the per-term row counts. Read-only.
func (T *Transformer) SplitDims() []int { return T.splitDims }

// KbodySizes returns the number of selections realizing each term in this
// formula. It equals SplitDims unless the dims were fixed externally.
func (T *Transformer) KbodySizes() []int { return T.sizes }

// BinaryWeights returns the indicator vector marking which feature rows
// hold real data (1) rather than structural padding (0). Read-only.
func (T *Transformer) BinaryWeights() []float64 { return T.weights }

// Selections returns the atom-index selections realizing the given term,
// or nil if this formula can't realize it. Read-only.
func (T *Transformer) Selections(term string) [][]int {
	if m := T.mapping[term]; m != nil {
		return m.selections
	}
	return nil
}

// Species returns the species of this transformer, ghosts excluded.
func (T *Transformer) Species() []string {
	return T.species[:len(T.species)-T.ghosts]
}

// NumGhosts returns the number of trailing ghost atoms.
func (T *Transformer) NumGhosts() int { return T.ghosts }

// NumReal returns the number of real atoms behind the feature rows. For
// externally fixed dims this is the max-occurs total, not the size of any
// particular molecule, so force outputs of all formulas share one shape.
func (T *Transformer) NumReal() int { return T.numReal }

// Periodic returns whether this transformer uses minimum-image geometry.
func (T *Transformer) Periodic() bool { return T.periodic }

// ForcesEnabled returns whether force derivation outputs are produced.
func (T *Transformer) ForcesEnabled() bool { return T.forces }

// IndexingShape returns the dimensions of the force scatter-index output:
// 3*NumReal rows, one per atom and axis, by the entry count per component.
func (T *Transformer) IndexingShape() (int, int) {
	return 3 * T.numReal, T.numEntries
}

// Transform converts an N-by-3 coordinates matrix (real atoms only,
// ghosts are padded internally) into the feature matrix, plus, when force
// derivation is enabled, the coefficient matrix and the scatter indices.
// For a periodic transformer the 3x3 cell matrix must be supplied.
func (T *Transformer) Transform(coords *mat.Dense, cell ...*mat.Dense) (*mat.Dense, *mat.Dense, []int32, error) {
	features := mat.NewDense(T.realDim, T.ck2, nil)
	coef, indexing, err := T.TransformInto(coords, features, cell...)
	if err != nil {
		return nil, nil, nil, errDecorate(err, "Transform")
	}
	return features, coef, indexing, nil
}

// TransformInto is Transform writing into a caller-supplied feature
// buffer, which must have the transformer's shape.
func (T *Transformer) TransformInto(coords, features *mat.Dense, cell ...*mat.Dense) (*mat.Dense, []int32, error) {
	if r, c := features.Dims(); r != T.realDim || c != T.ck2 {
		return nil, nil, ShapeError{WantRows: T.realDim, WantCols: T.ck2, Rows: r, Cols: c}
	}
	nreal, c3 := coords.Dims()
	if c3 != 3 {
		return nil, nil, CError{msg: "kbody: coordinates must have 3 columns"}
	}
	if nreal != len(T.species)-T.ghosts {
		return nil, nil, CError{msg: "kbody: coordinate rows don't match the species list"}
	}
	all := padCoords(coords, T.ghosts)
	natoms := len(T.species)

	var dists []float64
	var err error
	if T.periodic {
		if len(cell) == 0 || cell[0] == nil {
			return nil, nil, CError{msg: "kbody: a periodic transformer needs a cell matrix"}
		}
		dists, err = distanceMatrixMIC(all, cell[0])
		if err != nil {
			return nil, nil, errDecorate(err, "TransformInto")
		}
	} else {
		dists = distanceMatrix(all)
	}
	var delta []float64
	if T.forces {
		delta = deltaMatrix(all)
	}
	ghostify(dists, delta, natoms, T.ghosts)
	norm := normalize(dists, T.normalizers, T.normOrder)

	cr, dr := T.assign(norm, delta, features)
	indexing := T.conditionallySort(features, cr, dr)
	coef := T.coefMatrix(features, cr, dr)
	positions := T.transformIndexing(indexing)
	return coef, positions, nil
}

//assign scatters the normalized distances into the per-term blocks of the
//feature matrix through the precomputed mapping and, in force mode, fills
//the reference-length matrix cr and the coordinate-difference matrix dr.
//dr columns: +dx in [0,ck2), +dy, +dz, then the three blocks negated for
//the opposite atom of each pair.
func (T *Transformer) assign(norm, delta []float64, features *mat.Dense) (cr, dr *mat.Dense) {
	if T.forces {
		cr = mat.NewDense(T.realDim, T.ck2, nil)
		dr = mat.NewDense(T.realDim, 6*T.ck2, nil)
	}
	for i, term := range T.terms {
		m := T.mapping[term]
		if m == nil {
			continue
		}
		istart := T.offsets[i]
		istep := T.offsets[i+1] - istart
		if len(m.selections) < istep {
			istep = len(m.selections)
		}
		for k := 0; k < T.ck2; k++ {
			row := m.indices[k]
			for j := 0; j < istep; j++ {
				idx := row[j]
				features.Set(istart+j, k, norm[idx])
				if !T.forces {
					continue
				}
				cr.Set(istart+j, k, T.normalizers[idx])
				for ax := 0; ax < 3; ax++ {
					d := delta[idx*3+ax]
					dr.Set(istart+j, ax*T.ck2+k, d)
					dr.Set(istart+j, (3+ax)*T.ck2+k, -d)
				}
			}
		}
	}
	return cr, dr
}

//buildIndexBase returns the flattened [realDim][ck2][2] matrix holding
//the two atom indices behind every feature cell, -1 where a cell has no
//selection behind it.
func (T *Transformer) buildIndexBase() []int {
	base := make([]int, T.realDim*T.ck2*2)
	for i := range base {
		base[i] = -1
	}
	for i, term := range T.terms {
		m := T.mapping[term]
		if m == nil {
			continue
		}
		offset := T.offsets[i]
		istep := T.offsets[i+1] - offset
		if len(m.selections) < istep {
			istep = len(m.selections)
		}
		for j := 0; j < istep; j++ {
			for l, ab := range pairsOf(m.selections[j]) {
				base[((offset+j)*T.ck2+l)*2] = ab[0]
				base[((offset+j)*T.ck2+l)*2+1] = ab[1]
			}
		}
	}
	return base
}

//sortPerm returns the permutation that sorts vals ascending, stably.
//Making the permutation explicit (instead of sorting each array on its
//own) is what guarantees features, reference lengths, deltas and index
//bookkeeping all move together.
func sortPerm(vals []float64) []int {
	p := intRange(len(vals))
	sort.SliceStable(p, func(a, b int) bool { return vals[p[a]] < vals[p[b]] })
	return p
}

//applyPermRow permutes the given columns of row r of m by perm.
func applyPermRow(m *mat.Dense, r int, cols []int, perm []int, tmp []float64) {
	for i, pi := range perm {
		tmp[i] = m.At(r, cols[pi])
	}
	for i, c := range cols {
		m.Set(r, c, tmp[i])
	}
}

//conditionallySort restores permutation invariance: for every term whose
//bond types repeat, the repeated columns of each row are sorted ascending
//by feature value, and the very same permutation is carried through the
//reference lengths, the six delta blocks and the index bookkeeping.
//It returns the sorted copy of the index matrix (nil without forces).
func (T *Transformer) conditionallySort(features, cr, dr *mat.Dense) []int {
	var indexing []int
	if T.forces {
		indexing = append([]int(nil), T.indexBase...)
	}
	tmp := make([]float64, 2*T.ck2)
	itmp := make([]int, T.ck2)
	shifted := make([]int, T.ck2)
	for i, term := range T.terms {
		if T.mapping[term] == nil {
			continue
		}
		groups := T.sortGroups[term]
		if groups == nil {
			continue
		}
		istart, istop := T.offsets[i], T.offsets[i+1]
		for _, cols := range groups {
			w := len(cols)
			for r := istart; r < istop; r++ {
				vals := tmp[:w]
				for ci, c := range cols {
					vals[ci] = features.At(r, c)
				}
				if !T.forces {
					//just the features, nothing else to keep aligned
					sort.Float64s(vals)
					for ci, c := range cols {
						features.Set(r, c, vals[ci])
					}
					continue
				}
				perm := sortPerm(vals)
				applyPermRow(features, r, cols, perm, tmp[w:2*w])
				applyPermRow(cr, r, cols, perm, tmp[w:2*w])
				for blk := 0; blk < 6; blk++ {
					sc := shifted[:w]
					for ci, c := range cols {
						sc[ci] = blk*T.ck2 + c
					}
					applyPermRow(dr, r, sc, perm, tmp[w:2*w])
				}
				for axis := 0; axis < 2; axis++ {
					at := itmp[:w]
					for ii, pi := range perm {
						at[ii] = indexing[(r*T.ck2+cols[pi])*2+axis]
					}
					for ii, c := range cols {
						indexing[(r*T.ck2+c)*2+axis] = at[ii]
					}
				}
			}
		}
	}
	return indexing
}

//coefMatrix builds the force-coefficient matrix z*d/(l^2*ln z), with z
//clamped at e^-6 and non-finite results zeroed, tiled over the six delta
//blocks. Returns nil when forces are disabled.
func (T *Transformer) coefMatrix(z, cr, dr *mat.Dense) *mat.Dense {
	if !T.forces {
		return nil
	}
	coef := mat.NewDense(T.realDim, 6*T.ck2, nil)
	for r := 0; r < T.realDim; r++ {
		for c := 0; c < 6*T.ck2; c++ {
			zv := z.At(r, c%T.ck2)
			if zv < safeLogZ {
				zv = safeLogZ
			}
			l := cr.At(r, c%T.ck2)
			den := l * l * math.Log(zv)
			v := 0.0
			if den != 0 {
				v = zv * dr.At(r, c) / den
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			coef.Set(r, c, v)
		}
	}
	return coef
}

//transformIndexing converts the sorted per-cell atom pairs into the dense
//scatter-index array: row 3a+axis lists, 1-based, the flattened positions
//of every gradient entry contributing to atom a along axis; 0 is the
//reserved "no contribution" sentinel. Pairs touching a ghost are skipped.
func (T *Transformer) transformIndexing(indexing []int) []int32 {
	if !T.forces {
		return nil
	}
	positions := make([]int32, 3*T.numReal*T.numEntries)
	loc := make([]int, T.numReal)
	position := 0
	imax := len(T.species) - T.ghosts
	for i := 0; i < T.realDim; i++ {
		ok := true
		for e := 0; e < T.ck2*2; e++ {
			if indexing[i*T.ck2*2+e] < 0 {
				ok = false
				break
			}
		}
		if ok {
			for j := 0; j < T.ck2; j++ {
				a := indexing[(i*T.ck2+j)*2]
				b := indexing[(i*T.ck2+j)*2+1]
				if a >= imax || b >= imax {
					continue
				}
				for ax := 0; ax < 3; ax++ {
					positions[(a*3+ax)*T.numEntries+loc[a]] = int32(position + ax*T.ck2 + j + 1)
				}
				loc[a]++
				for ax := 0; ax < 3; ax++ {
					positions[(b*3+ax)*T.numEntries+loc[b]] = int32(position + (3+ax)*T.ck2 + j + 1)
				}
				loc[b]++
			}
		}
		position += 6 * T.ck2
	}
	return positions
}
