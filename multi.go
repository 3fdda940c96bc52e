/*
 * multi.go, part of kbody.
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
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

//unlimited marks an atom type with no occurrence cap.
const unlimited = math.MaxInt32

// MultiTransformer transforms structures of varying composition drawn
// from a fixed set of atom types. It lazily builds, and caches, one
// Transformer per distinct formula; all of them share the same global
// term ordering, so their feature blocks line up term by term even when
// their shapes differ. Safe for concurrent use.
type MultiTransformer struct {
	types     []string //sorted atom types, ghost included
	maxOccurs map[string]int
	terms     []string
	splitDims []int //nil: each formula gets its own dims
	opts      Options
	ghosts    int
	mu        sync.Mutex
	cache     map[string]*Transformer
}

// NewMulti builds a MultiTransformer over the given atom types.
// maxOccurs caps how many atoms of a type a structure may have; types not
// in the map are unlimited. maxOccurs may be nil. When all lower orders
// are included and KMax is at least 3, KMax-2 ghost atoms are appended to
// every formula internally; the caller never supplies them.
func NewMulti(atomTypes []string, maxOccurs map[string]int, o *Options) (*MultiTransformer, error) {
	if o == nil {
		o = DefaultOptions()
	}
	if o.Periodic && o.AtomicForces {
		return nil, PeriodicForcesError{}
	}
	M := new(MultiTransformer)
	M.opts = *o
	if o.IncludeAllK && o.KMax >= 3 {
		M.ghosts = o.KMax - 2
	}
	M.maxOccurs = make(map[string]int)
	for _, t := range atomTypes {
		M.maxOccurs[t] = unlimited
	}
	for t, occ := range maxOccurs {
		M.maxOccurs[t] = occ
	}
	if M.ghosts > 0 {
		M.maxOccurs[Ghost] = M.ghosts
	}
	M.types = make([]string, 0, len(M.maxOccurs))
	for t := range M.maxOccurs {
		M.types = append(M.types, t)
	}
	//sorted, but the ghost always goes last: the baseline solver and the
	//occurs vectors rely on the real types occupying the leading columns
	sort.Slice(M.types, func(i, j int) bool {
		a, b := M.types[i], M.types[j]
		if a == Ghost {
			return false
		}
		if b == Ghost {
			return true
		}
		return a < b
	})

	//The species pool for term enumeration: each type repeated up to
	//KMax times (more buys nothing, terms are KMax-multisets).
	var pool []string
	for _, t := range M.types {
		rep := M.maxOccurs[t]
		if rep > o.KMax {
			rep = o.KMax
		}
		for i := 0; i < rep; i++ {
			pool = append(pool, t)
		}
	}
	M.terms = TermsOf(pool, o.KMax)
	M.cache = make(map[string]*Transformer)
	return M, nil
}

// Terms returns the global ordered k-body terms shared by every cached
// transformer. Read-only.
func (M *MultiTransformer) Terms() []string { return M.terms }

// AtomTypes returns the sorted atom types, ghost included when ghost
// padding applies. This is the axis of the Occurs vectors. Read-only.
func (M *MultiTransformer) AtomTypes() []string { return M.types }

// NumAtomTypes returns the number of atom types, ghost included.
func (M *MultiTransformer) NumAtomTypes() int { return len(M.types) }

// NumRealAtomTypes returns the number of atom types excluding the ghost.
func (M *MultiTransformer) NumRealAtomTypes() int {
	if M.ghosts > 0 {
		return len(M.types) - 1
	}
	return len(M.types)
}

// NumGhosts returns the number of ghost atoms appended to each formula.
func (M *MultiTransformer) NumGhosts() int { return M.ghosts }

// KMax returns the expansion order.
func (M *MultiTransformer) KMax() int { return M.opts.KMax }

// MaxOccurs returns the occurrence cap of the given atom type, and
// whether the type is known at all. Unlimited types report a very large
// cap.
func (M *MultiTransformer) MaxOccurs(atomType string) (int, bool) {
	occ, ok := M.maxOccurs[atomType]
	return occ, ok
}

// AcceptSpecies reports whether a structure with the given ordered
// species can be transformed: every element must be a known type and
// appear no more often than its cap.
func (M *MultiTransformer) AcceptSpecies(species []string) bool {
	for e, c := range countSymbols(species) {
		occ, ok := M.maxOccurs[e]
		if !ok || c > occ {
			return false
		}
	}
	return true
}

//transformerFor returns the cached Transformer for the given species,
//building it (with the ghosts appended and the global terms and dims) on
//first use.
func (M *MultiTransformer) transformerFor(species []string) (*Transformer, error) {
	full := make([]string, 0, len(species)+M.ghosts)
	full = append(full, species...)
	for i := 0; i < M.ghosts; i++ {
		full = append(full, Ghost)
	}
	key := Formula(full)
	M.mu.Lock()
	defer M.mu.Unlock()
	if clf := M.cache[key]; clf != nil {
		return clf, nil
	}
	clf, err := New(full, M.terms, M.splitDims, &M.opts)
	if err != nil {
		return nil, errDecorate(err, "transformerFor "+key)
	}
	M.cache[key] = clf
	return clf, nil
}

//occursOf returns the atom-type count vector of a species list, over the
//sorted types axis. Ghost entries stay 0.
func (M *MultiTransformer) occursOf(species []string) []float64 {
	occurs := make([]float64, len(M.types))
	counter := countSymbols(species)
	for i, t := range M.types {
		occurs[i] = float64(counter[t])
	}
	return occurs
}

// Transform converts one Structure into a Sample. It fails with a
// CompositionError if the structure's species are not accepted.
func (M *MultiTransformer) Transform(s *Structure) (*Sample, error) {
	if !M.AcceptSpecies(s.Species) {
		return nil, CompositionError{Formula: Formula(s.Species)}
	}
	clf, err := M.transformerFor(s.Species)
	if err != nil {
		return nil, errDecorate(err, "Transform")
	}
	var features, coef *mat.Dense
	var indexing []int32
	if M.opts.Periodic {
		features, coef, indexing, err = clf.Transform(s.Coords, s.Cell)
	} else {
		features, coef, indexing, err = clf.Transform(s.Coords)
	}
	if err != nil {
		return nil, errDecorate(err, "Transform "+Formula(s.Species))
	}
	sample := new(Sample)
	sample.Features = features
	sample.SplitDims = clf.SplitDims()
	sample.Weights = clf.BinaryWeights()
	sample.Occurs = M.occursOf(s.Species)
	sample.Coef = coef
	sample.Indexing = indexing
	sample.Energy = s.Energy
	return sample, nil
}

// TransformTrajectory transforms a list of Structures sharing the same
// ordered species, in parallel, preserving the input order. All frames
// reuse one cached Transformer.
func (M *MultiTransformer) TransformTrajectory(traj []*Structure) ([]*Sample, error) {
	if len(traj) == 0 {
		return nil, CError{msg: "kbody: empty trajectory"}
	}
	first := traj[0].Species
	if !M.AcceptSpecies(first) {
		return nil, CompositionError{Formula: Formula(first)}
	}
	//warm the cache outside the workers, so they only read it
	if _, err := M.transformerFor(first); err != nil {
		return nil, errDecorate(err, "TransformTrajectory")
	}
	samples := make([]*Sample, len(traj))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, s := range traj {
		i, s := i, s
		g.Go(func() error {
			if Formula(s.Species) != Formula(first) {
				return CError{msg: "kbody: trajectory frames must share one formula"}
			}
			sample, err := M.Transform(s)
			if err != nil {
				return err
			}
			samples[i] = sample
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errDecorate(err, "TransformTrajectory")
	}
	return samples, nil
}

// ComputeAtomicEnergies folds per-row k-body contributions back onto
// atoms: each selection's contribution is shared equally, 1/k, among its
// k real atoms (selections are unique, so the 1/k! of the formal
// expansion reduces to 1/k). oneBody gives the baseline energy per atom
// type; kbodyContribs must have one entry per feature row of the
// species' transformer.
func (M *MultiTransformer) ComputeAtomicEnergies(species []string, kbodyContribs []float64, oneBody map[string]float64) ([]float64, error) {
	clf, err := M.transformerFor(species)
	if err != nil {
		return nil, errDecorate(err, "ComputeAtomicEnergies")
	}
	if len(kbodyContribs) != clf.realDim {
		return nil, ShapeError{WantRows: clf.realDim, WantCols: 1, Rows: len(kbodyContribs), Cols: 1}
	}
	natoms := len(species)
	atomic := make([]float64, natoms)
	for i := range species {
		atomic[i] = oneBody[species[i]]
	}
	for i, term := range clf.terms {
		sels := clf.Selections(term)
		if sels == nil {
			continue
		}
		atoms := atomsOfTerm(term)
		k := len(atoms)
		for _, a := range atoms {
			if a == Ghost {
				k--
			}
		}
		if k == 0 {
			continue
		}
		coef := 1.0 / float64(k)
		istart := clf.offsets[i]
		istep := clf.offsets[i+1] - istart
		if len(sels) < istep {
			istep = len(sels)
		}
		for j := 0; j < istep; j++ {
			v := kbodyContribs[istart+j] * coef
			for _, a := range sels[j] {
				if a < natoms {
					atomic[a] += v
				}
			}
		}
	}
	return atomic, nil
}

// FixedLenMultiTransformer is a MultiTransformer whose every accepted
// formula yields the same feature shape: the split dims are fixed from
// the occurrence caps, so smaller molecules get zero-padded blocks. This
// is the transformer to use when samples feed one model side by side.
type FixedLenMultiTransformer struct {
	*MultiTransformer
	totalDim int
}

// NewFixedLen builds a fixed-length multi transformer. Unlike NewMulti,
// maxOccurs here is mandatory and must cap every atom type: the caps are
// what fixes the shape.
func NewFixedLen(maxOccurs map[string]int, o *Options) (*FixedLenMultiTransformer, error) {
	if len(maxOccurs) == 0 {
		return nil, CError{msg: "kbody: NewFixedLen needs the occurrence caps"}
	}
	for t, occ := range maxOccurs {
		if occ < 1 || occ >= unlimited {
			return nil, CError{msg: "kbody: bad occurrence cap for " + t}
		}
	}
	atomTypes := make([]string, 0, len(maxOccurs))
	for t := range maxOccurs {
		atomTypes = append(atomTypes, t)
	}
	sort.Strings(atomTypes)
	M, err := NewMulti(atomTypes, maxOccurs, o)
	if err != nil {
		return nil, errDecorate(err, "NewFixedLen")
	}
	M.splitDims = fixedSplitDims(M.terms, M.maxOccurs)
	F := &FixedLenMultiTransformer{MultiTransformer: M}
	for _, d := range F.splitDims {
		F.totalDim += d
	}
	return F, nil
}

// Shape returns the feature dimensions shared by every accepted formula.
func (F *FixedLenMultiTransformer) Shape() (int, int) {
	return F.totalDim, comb(F.opts.KMax, 2)
}

// SplitDims returns the fixed per-term row counts. Read-only.
func (F *FixedLenMultiTransformer) SplitDims() []int { return F.splitDims }

// MaxNumAtoms returns the padded atom count implied by the caps, ghosts
// included: the sum of all occurrence caps.
func (F *FixedLenMultiTransformer) MaxNumAtoms() int {
	n := 0
	for _, occ := range F.maxOccurs {
		n += occ
	}
	return n
}
