package kbody

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermsOf(t *testing.T) {
	//methane with one ghost, k=3
	terms := TermsOf([]string{"C", "H", "H", "H", "H", "X"}, 3)
	assert.Equal(t, []string{"CHH", "CHX", "HHH", "HHX"}, terms)

	//k=2, no ghosts
	terms = TermsOf([]string{"H", "H", "O"}, 2)
	assert.Equal(t, []string{"HH", "HO"}, terms)

	//deterministic regardless of species order
	a := TermsOf([]string{"O", "H", "C", "H"}, 2)
	b := TermsOf([]string{"H", "C", "O", "H"}, 2)
	assert.Equal(t, a, b)
}

func TestAtomsOfTerm(t *testing.T) {
	assert.Equal(t, []string{"C", "C", "H"}, atomsOfTerm("CCH"))
	//two-letter symbols only capitalize their first rune
	assert.Equal(t, []string{"Cl", "H"}, atomsOfTerm("ClH"))
	assert.Equal(t, []string{"C", "H", "X"}, atomsOfTerm("CHX"))
}

func TestCountGhosts(t *testing.T) {
	n, trailing := countGhosts([]string{"C", "H", "X"})
	assert.Equal(t, 1, n)
	assert.True(t, trailing)

	n, trailing = countGhosts([]string{"C", "X", "H"})
	assert.Equal(t, 1, n)
	assert.False(t, trailing)

	n, trailing = countGhosts([]string{"C", "H"})
	assert.Equal(t, 0, n)
	assert.True(t, trailing)
}

func TestComb(t *testing.T) {
	assert.Equal(t, 10, comb(5, 3))
	assert.Equal(t, 1, comb(4, 0))
	assert.Equal(t, 0, comb(3, 5))
	assert.Equal(t, 6, comb(4, 2))
}

func TestCombinations(t *testing.T) {
	var got [][]int
	combinations(4, 2, func(sel []int) {
		c := make([]int, len(sel))
		copy(c, sel)
		got = append(got, c)
	})
	want := [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}
	assert.Equal(t, want, got)
}

func TestPairsOf(t *testing.T) {
	pairs := pairsOf([]int{3, 5, 9})
	assert.Equal(t, [][2]int{{3, 5}, {3, 9}, {5, 9}}, pairs)
}

func TestNumForceEntries(t *testing.T) {
	//direct evaluation of sum C(n,k)*C(k,2)*2/n against the reduced form
	direct := func(n, kmax int) int {
		total := 0
		for k := 2; k <= kmax; k++ {
			total += comb(n, k) * comb(k, 2) * 2
		}
		require.Zero(t, total%n)
		return total / n
	}
	for _, n := range []int{2, 3, 5, 8, 12} {
		for _, kmax := range []int{2, 3, 4} {
			if kmax > n {
				continue
			}
			assert.Equal(t, direct(n, kmax), numForceEntries(n, kmax), "n=%d kmax=%d", n, kmax)
		}
	}
}

func TestNumAtomsFromTotal(t *testing.T) {
	for _, n := range []int{3, 5, 9} {
		assert.Equal(t, n, numAtomsFromTotal(comb(n, 3), 3))
	}
	//a total smaller than any C(n,kmax) still yields at least kmax atoms
	assert.Equal(t, 3, numAtomsFromTotal(1, 3))
}

func TestIncludedK(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, IncludedK(3, true))
	assert.Equal(t, []int{1, 4}, IncludedK(4, false))
}

func TestFormula(t *testing.T) {
	//order matters on purpose, it is the transformer cache key
	assert.NotEqual(t, Formula([]string{"H", "O", "H"}), Formula([]string{"H", "H", "O"}))
	assert.Equal(t, "CHHHH", Formula([]string{"C", "H", "H", "H", "H"}))
}
