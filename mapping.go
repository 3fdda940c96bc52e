/*
 * mapping.go, part of kbody.
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
	"sort"
	"strings"
)

//termMapping holds, for one k-body term realized in one concrete species
//list, the selections (ordered tuples of atom indices) and the index
//matrix mapping flattened N-by-N distance entries to feature cells.
//indices[p][s] is the row-major distance index of pair-slot p of
//selection s. Built once per formula, read-only afterwards.
type termMapping struct {
	selections [][]int
	indices    [][]int //shape [C(k,2)][len(selections)]
}

//buildMapping enumerates, for every term, all valid atom-index selections
//given the species list, and builds the distance-to-feature index
//matrices. Terms that can't be realized (not enough atoms of a required
//element) are simply absent from the returned map; their blocks stay
//zero-filled and get weight 0.
func buildMapping(species []string, terms []string) map[string]*termMapping {
	natoms := len(species)
	//indices of each element, in order of appearance
	pools := make(map[string][]int)
	for i, s := range species {
		pools[s] = append(pools[s], i)
	}
	mapping := make(map[string]*termMapping)
	for _, term := range terms {
		atoms := atomsOfTerm(term)
		counter := countSymbols(atoms)
		feasible := true
		for e, c := range counter {
			if c > len(pools[e]) {
				feasible = false
				break
			}
		}
		//CH4 can't realize a CCC or CCH interaction.
		if !feasible {
			continue
		}
		elements := make([]string, 0, len(counter))
		for e := range counter {
			elements = append(elements, e)
		}
		sort.Strings(elements)
		//per element, every way of drawing the required count from its pool
		candidates := make([][][]int, len(elements))
		for i, e := range elements {
			candidates[i] = combinationsOf(pools[e], counter[e])
		}
		selections := cartesianConcat(candidates)
		ck2 := comb(len(atoms), 2)
		indices := make([][]int, ck2)
		for p := range indices {
			indices[p] = make([]int, len(selections))
		}
		for s, sel := range selections {
			for p, ab := range pairsOf(sel) {
				indices[p][s] = ab[0]*natoms + ab[1]
			}
		}
		mapping[term] = &termMapping{selections: selections, indices: indices}
	}
	return mapping
}

//cartesianConcat takes, per element, a list of index groups, and returns
//the concatenation of every combination of one group per element (the
//cartesian product across elements, chained flat).
func cartesianConcat(groups [][][]int) [][]int {
	out := [][]int{{}}
	for _, g := range groups {
		next := make([][]int, 0, len(out)*len(g))
		for _, prefix := range out {
			for _, c := range g {
				sel := make([]int, 0, len(prefix)+len(c))
				sel = append(sel, prefix...)
				sel = append(sel, c...)
				next = append(next, sel)
			}
		}
		out = next
	}
	return out
}

// BondTypes returns, for each term, its ordered bond-type labels: the
// unordered species pairs of the term's pair slots, as "A-B" strings, in
// the same fixed pair order the mapping uses.
func BondTypes(terms []string) map[string][]string {
	bonds := make(map[string][]string)
	for _, term := range terms {
		atoms := atomsOfTerm(term)
		labels := make([]string, 0, comb(len(atoms), 2))
		for _, ab := range pairsOf(intRange(len(atoms))) {
			labels = append(labels, atoms[ab[0]]+"-"+atoms[ab[1]])
		}
		bonds[term] = labels
	}
	return bonds
}

//condSortGroups returns, per term, the groups of pair-slot columns that
//share a bond type. Only terms with at least one duplicated bond type
//appear: the others need no sorting, their columns are not
//interchangeable. Group order is the first-appearance order of the
//duplicated bond, so it is deterministic.
func condSortGroups(terms []string) map[string][][]int {
	groups := make(map[string][][]int)
	for term, labels := range BondTypes(terms) {
		counter := make(map[string]int)
		for _, l := range labels {
			counter[l]++
		}
		var g [][]int
		done := make(map[string]bool)
		for _, l := range labels {
			if counter[l] < 2 || done[l] {
				continue
			}
			done[l] = true
			var cols []int
			for i, m := range labels {
				if m == l {
					cols = append(cols, i)
				}
			}
			g = append(g, cols)
		}
		if g != nil {
			groups[term] = g
		}
	}
	return groups
}

//fixedSplitDims returns the per-term block sizes implied by the maximum
//occurrences of each species: the product over the term's elements of
//C(maxOccurs[e], count). With these dims every accepted formula shares
//one feature shape.
func fixedSplitDims(terms []string, maxOccurs map[string]int) []int {
	dims := make([]int, len(terms))
	for i, term := range terms {
		counter := countSymbols(atomsOfTerm(term))
		d := 1
		for e, c := range counter {
			d *= comb(maxOccurs[e], c)
		}
		dims[i] = d
	}
	return dims
}

//intRange returns [0..n).
func intRange(n int) []int {
	r := make([]int, n)
	for i := range r {
		r[i] = i
	}
	return r
}

//termKey builds the canonical key of a k-body multiset of symbols.
func termKey(symbols []string) string {
	s := make([]string, len(symbols))
	copy(s, symbols)
	sort.Strings(s)
	return strings.Join(s, "")
}
