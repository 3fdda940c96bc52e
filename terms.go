/*
 * terms.go, part of kbody.
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

// Formula returns the chemical formula string for a list of species. It
// is the cache key used by the multi transformers, so the same atoms in a
// different order yield different formulas on purpose: atom order fixes
// the meaning of the coordinate rows.
func Formula(species []string) string {
	return strings.Join(species, "")
}

// TermsOf returns the ordered k-body terms for the given species pool and
// expansion order: every distinct sorted kmax-combination of symbols, as
// concatenated strings, in lexicographical order. The output is fully
// deterministic and is used as the canonical block ordering everywhere
// downstream. Lower-order interactions are represented by terms that
// contain ghost symbols, not enumerated separately.
func TermsOf(species []string, kmax int) []string {
	seen := make(map[string]bool)
	buf := make([]string, kmax)
	combinations(len(species), kmax, func(sel []int) {
		for i, v := range sel {
			buf[i] = species[v]
		}
		seen[termKey(buf)] = true
	})
	terms := make([]string, 0, len(seen))
	for t := range seen {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// IncludedK returns the expansion orders covered by a transformer with
// the given settings: 1..kmax when all lower orders are included via
// ghost padding, or just {1, kmax} otherwise.
func IncludedK(kmax int, includeAllK bool) []int {
	if includeAllK {
		ks := make([]int, kmax)
		for i := range ks {
			ks[i] = i + 1
		}
		return ks
	}
	return []int{1, kmax}
}

//atomsOfTerm splits a term key back into element symbols. An uppercase
//letter starts a new symbol, so "CCH" yields [C C H] and "ClH" yields
//[Cl H]. This is the inverse of the concatenation done by TermsOf, and
//only works because element symbols start with exactly one capital.
func atomsOfTerm(term string) []string {
	var atoms []string
	start := 0
	for i := 1; i < len(term); i++ {
		if term[i] >= 'A' && term[i] <= 'Z' {
			atoms = append(atoms, term[start:i])
			start = i
		}
	}
	return append(atoms, term[start:])
}

//countSymbols counts the occurrences of each symbol.
func countSymbols(symbols []string) map[string]int {
	c := make(map[string]int)
	for _, s := range symbols {
		c[s]++
	}
	return c
}

//countGhosts returns the number of ghost symbols, and whether they all
//trail the real atoms. The force indexer relies on ghosts being last.
func countGhosts(species []string) (int, bool) {
	n := 0
	for _, s := range species {
		if s == Ghost {
			n++
		}
	}
	trailing := true
	for _, s := range species[:len(species)-n] {
		if s == Ghost {
			trailing = false
			break
		}
	}
	return n, trailing
}

//comb returns the binomial coefficient C(n,k). Both arguments are assumed
//small enough that the intermediate products fit an int (molecule-sized).
func comb(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	r := 1
	for i := 0; i < k; i++ {
		r = r * (n - i) / (i + 1)
	}
	return r
}

//combinations calls f with every k-combination of {0..n-1} in
//lexicographic order. The slice passed to f is reused between calls.
func combinations(n, k int, f func([]int)) {
	if k > n || k <= 0 {
		return
	}
	sel := make([]int, k)
	for i := range sel {
		sel[i] = i
	}
	for {
		f(sel)
		//advance to the next combination
		i := k - 1
		for i >= 0 && sel[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		sel[i]++
		for j := i + 1; j < k; j++ {
			sel[j] = sel[j-1] + 1
		}
	}
}

//combinationsOf collects the r-combinations of the given pool as new
//slices, in the pool's order.
func combinationsOf(pool []int, r int) [][]int {
	var out [][]int
	combinations(len(pool), r, func(sel []int) {
		c := make([]int, r)
		for i, v := range sel {
			c[i] = pool[v]
		}
		out = append(out, c)
	})
	return out
}

//pairsOf returns the C(k,2) unordered index pairs of a selection, in the
//fixed enumeration order used by every term: (0,1), (0,2), ... (1,2), ...
func pairsOf(sel []int) [][2]int {
	k := len(sel)
	out := make([][2]int, 0, k*(k-1)/2)
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			out = append(out, [2]int{sel[i], sel[j]})
		}
	}
	return out
}

//numForceEntries returns the number of gradient entries contributing to
//each per-atom force component for a structure of n real atoms:
//sum over k=2..kmax of C(n,k)*C(k,2)*2/n, which reduces to the exact
//integer sum of C(n-1,k-1)*(k-1).
func numForceEntries(n, kmax int) int {
	total := 0
	for k := 2; k <= kmax; k++ {
		total += comb(n-1, k-1) * (k - 1)
	}
	return total
}

//numAtomsFromTotal recovers the number of atoms n such that C(n,kmax)
//covers the given total of selection rows. Used to size the force output
//when the split dims were fixed externally.
func numAtomsFromTotal(total, kmax int) int {
	n := kmax
	for comb(n, kmax) < total {
		n++
	}
	return n
}
